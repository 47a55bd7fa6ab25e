// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/absmach/stomp/frame"
	"github.com/absmach/stomp/transport"
	"github.com/stretchr/testify/require"
)

// fakeBroker serves one client over an in-memory pipe. It answers CONNECT
// and receipts, and records every frame it reads.
type fakeBroker struct {
	conn   net.Conn
	writer *frame.Writer
	wmu    sync.Mutex

	frames chan *frame.Frame

	mu     sync.Mutex
	reject map[string]string // command -> error message
}

func newFakeBroker(conn net.Conn) *fakeBroker {
	b := &fakeBroker{
		conn:   conn,
		writer: frame.NewWriter(conn),
		frames: make(chan *frame.Frame, 64),
		reject: make(map[string]string),
	}
	go b.serve()
	return b
}

func (b *fakeBroker) serve() {
	r := frame.NewReader(b.conn, nil)
	for {
		f, err := r.Read()
		if err != nil {
			return
		}
		b.frames <- f

		if f.Command == frame.CONNECT {
			id, _ := f.Header.Get(frame.RequestID)
			b.send(frame.New(frame.CONNECTED, frame.ResponseID, id))
			continue
		}
		id, ok := f.Header.Get(frame.Receipt)
		if !ok {
			continue
		}

		b.mu.Lock()
		msg, rejected := b.reject[f.Command]
		b.mu.Unlock()
		if rejected {
			b.send(frame.New(frame.ERROR, frame.ReceiptID, id, frame.Message, msg))
			continue
		}
		b.send(frame.New(frame.RECEIPT, frame.ReceiptID, id))
	}
}

func (b *fakeBroker) send(f *frame.Frame) {
	b.wmu.Lock()
	defer b.wmu.Unlock()
	_, _ = b.writer.Write(f)
}

func (b *fakeBroker) rejectCommand(command, msg string) {
	b.mu.Lock()
	b.reject[command] = msg
	b.mu.Unlock()
}

// next returns the next frame with the given command, skipping others.
func (b *fakeBroker) next(t *testing.T, command string) *frame.Frame {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case f := <-b.frames:
			if f.Command == command {
				return f
			}
		case <-timeout:
			t.Fatalf("no %s frame received", command)
			return nil
		}
	}
}

func header(t *testing.T, f *frame.Frame, name string) string {
	t.Helper()
	v, ok := f.Header.Get(name)
	require.True(t, ok, "missing header %q in %s", name, f.Command)
	return v
}

// pipeOptions returns options whose transport is a pipe to a fake broker.
func pipeOptions(t *testing.T) (*Options, chan *fakeBroker) {
	t.Helper()

	brokers := make(chan *fakeBroker, 1)
	opts := NewOptions()
	opts.Monitor = transport.MonitorConfig{}
	opts.RequestTimeout = 2 * time.Second
	opts.SetTransport(func(context.Context) (transport.Transport, error) {
		client, server := net.Pipe()
		t.Cleanup(func() { _ = server.Close() })
		brokers <- newFakeBroker(server)
		return transport.NewChain(client, "pipe", opts.Monitor, nil, nil, nil), nil
	})
	return opts, brokers
}

func connectPipe(t *testing.T, opts *Options, brokers chan *fakeBroker) (*Connection, *fakeBroker) {
	t.Helper()

	c, err := New(opts)
	require.NoError(t, err)
	require.NoError(t, c.Connect(context.Background()))
	t.Cleanup(func() { _ = c.Close() })
	return c, <-brokers
}
