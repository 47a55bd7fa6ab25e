// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"sync"

	"github.com/absmach/stomp/commands"
)

// fakeTransport records sent commands and lets tests inject inbound
// commands and faults.
type fakeTransport struct {
	handlers

	mu      sync.Mutex
	sent    []commands.Command
	sendErr error
	onSend  func(cmd commands.Command)
	stopped int
}

func (f *fakeTransport) Start() error { return nil }

func (f *fakeTransport) Stop() error {
	f.mu.Lock()
	f.stopped++
	f.mu.Unlock()
	return nil
}

func (f *fakeTransport) Oneway(cmd commands.Command) error {
	f.mu.Lock()
	err := f.sendErr
	if err == nil {
		f.sent = append(f.sent, cmd)
	}
	onSend := f.onSend
	f.mu.Unlock()

	if err == nil && onSend != nil {
		onSend(cmd)
	}
	return err
}

func (f *fakeTransport) Request(context.Context, commands.Command) (*commands.Response, error) {
	return nil, ErrRequestUnsupported
}

func (f *fakeTransport) RemoteAddr() string { return "fake" }

func (f *fakeTransport) setSendErr(err error) {
	f.mu.Lock()
	f.sendErr = err
	f.mu.Unlock()
}

func (f *fakeTransport) heartbeats() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	for _, cmd := range f.sent {
		if _, ok := cmd.(*commands.KeepAliveInfo); ok {
			n++
		}
	}
	return n
}

func (f *fakeTransport) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}
