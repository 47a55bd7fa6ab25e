// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/absmach/stomp/commands"
	"github.com/absmach/stomp/frame"
	"github.com/absmach/stomp/internal/goid"
	"github.com/absmach/stomp/metrics"
	"github.com/absmach/stomp/protocol"
)

var _ Transport = (*IOTransport)(nil)

// IOTransport reads and writes commands on a byte stream. Inbound commands
// are delivered from a single read goroutine. Writes are serialized.
type IOTransport struct {
	handlers

	conn    io.ReadWriteCloser
	remote  string
	wf      *protocol.WireFormat
	reader  *frame.Reader
	writer  *frame.Writer
	writeMu sync.Mutex
	logger  *slog.Logger
	metrics *metrics.Metrics

	started  atomic.Bool
	stopped  atomic.Bool
	faulted  atomic.Bool
	stopOnce sync.Once
	readGID  atomic.Uint64
	doneCh   chan struct{}
}

// NewIOTransport creates a transport over conn. Synthetic responses of wf
// are delivered to the command handler. A nil wf uses a default
// WireFormat; m may be nil.
func NewIOTransport(conn io.ReadWriteCloser, remote string, wf *protocol.WireFormat, m *metrics.Metrics, logger *slog.Logger) *IOTransport {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("remote_addr", remote))
	if wf == nil {
		wf = protocol.NewWireFormat(logger)
	}

	t := &IOTransport{
		conn:    conn,
		remote:  remote,
		wf:      wf,
		writer:  frame.NewWriter(conn),
		logger:  logger,
		metrics: m,
		doneCh:  make(chan struct{}),
	}
	t.reader = frame.NewReader(&countingReader{r: conn, metrics: m}, logger)
	wf.SetResponder(t.command)
	return t
}

// Start starts the read goroutine.
func (t *IOTransport) Start() error {
	if t.stopped.Load() {
		return ErrTransportStopped
	}
	if !t.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	go t.readLoop()
	return nil
}

// Stop closes the stream and waits for the read goroutine to exit.
func (t *IOTransport) Stop() error {
	var err error
	t.stopOnce.Do(func() {
		t.stopped.Store(true)
		err = t.conn.Close()
		// A handler running on the read goroutine cannot wait for it.
		if t.started.Load() && goid.Current() != t.readGID.Load() {
			<-t.doneCh
		}
	})
	return err
}

// Oneway writes cmd. Write failures are returned and reported to the
// exception handler.
func (t *IOTransport) Oneway(cmd commands.Command) error {
	if t.stopped.Load() {
		return ErrTransportStopped
	}

	t.writeMu.Lock()
	n, err := t.wf.Marshal(cmd, t.writer)
	t.writeMu.Unlock()

	if n > 0 {
		t.metrics.RecordFrameSent(kind(cmd), n)
	}
	if err == nil {
		return nil
	}

	if t.stopped.Load() {
		return ErrTransportStopped
	}
	// Translation errors leave the stream untouched.
	if n == 0 && !isStreamError(err) {
		return err
	}
	t.fault(err)
	return err
}

// Request is not supported; correlation happens in ResponseCorrelator.
func (t *IOTransport) Request(context.Context, commands.Command) (*commands.Response, error) {
	return nil, ErrRequestUnsupported
}

// RemoteAddr returns the broker address.
func (t *IOTransport) RemoteAddr() string {
	return t.remote
}

// WireFormat returns the translator used by the transport.
func (t *IOTransport) WireFormat() *protocol.WireFormat {
	return t.wf
}

func (t *IOTransport) readLoop() {
	t.readGID.Store(goid.Current())
	defer close(t.doneCh)

	for {
		cmd, err := t.wf.Unmarshal(t.reader)
		if err != nil {
			if errors.Is(err, protocol.ErrDecode) {
				t.metrics.RecordDecodeError()
				t.logger.Warn("dropping undecodable frame", slog.String("error", err.Error()))
				continue
			}
			if t.stopped.Load() {
				return
			}
			t.fault(err)
			return
		}
		if cmd == nil {
			continue
		}

		t.metrics.RecordFrameReceived(kind(cmd))
		t.command(cmd)
	}
}

// fault reports the first stream failure to the exception handler.
func (t *IOTransport) fault(err error) {
	if !t.faulted.CompareAndSwap(false, true) {
		return
	}
	t.logger.Debug("transport fault", slog.String("error", err.Error()))
	t.exception(err)
}

// isStreamError reports whether err came from the underlying writer rather
// than from translating the command.
func isStreamError(err error) bool {
	switch {
	case errors.Is(err, protocol.ErrResponseRequired),
		errors.Is(err, protocol.ErrNoMapCodec),
		errors.Is(err, protocol.ErrNilMapValue),
		errors.Is(err, protocol.ErrNestedMapValue),
		errors.Is(err, protocol.ErrUnsupportedValue):
		return false
	}
	return true
}

// countingReader records bytes read from the stream.
type countingReader struct {
	r       io.Reader
	metrics *metrics.Metrics
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.metrics.RecordBytesReceived(n)
	return n, err
}
