// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package transport moves commands over a byte stream.
//
// A connection is a chain of transports built by Dialer:
//
//	ResponseCorrelator -> InactivityMonitor -> IOTransport -> stream
//
// Commands travel down the chain through Oneway and Request. Inbound
// commands and faults travel up through the handlers each layer installs on
// the one below it.
package transport

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/absmach/stomp/commands"
)

// CommandHandler receives inbound commands.
type CommandHandler func(cmd commands.Command)

// ExceptionHandler receives transport faults.
type ExceptionHandler func(err error)

// Transport is one layer of a connection.
type Transport interface {
	// Start begins reading from the stream.
	Start() error
	// Stop closes the stream. It is safe to call more than once.
	Stop() error
	// Oneway sends cmd without waiting for a reply.
	Oneway(cmd commands.Command) error
	// Request sends cmd and waits for its response. A broker error is
	// returned as *commands.BrokerError.
	Request(ctx context.Context, cmd commands.Command) (*commands.Response, error)
	SetCommandHandler(h CommandHandler)
	SetExceptionHandler(h ExceptionHandler)
	RemoteAddr() string
}

// handlers holds the upward callbacks of a transport.
type handlers struct {
	mu          sync.RWMutex
	onCommand   CommandHandler
	onException ExceptionHandler
}

// SetCommandHandler sets the receiver of inbound commands.
func (h *handlers) SetCommandHandler(fn CommandHandler) {
	h.mu.Lock()
	h.onCommand = fn
	h.mu.Unlock()
}

// SetExceptionHandler sets the receiver of transport faults.
func (h *handlers) SetExceptionHandler(fn ExceptionHandler) {
	h.mu.Lock()
	h.onException = fn
	h.mu.Unlock()
}

func (h *handlers) command(cmd commands.Command) {
	h.mu.RLock()
	fn := h.onCommand
	h.mu.RUnlock()
	if fn != nil {
		fn(cmd)
	}
}

func (h *handlers) exception(err error) {
	h.mu.RLock()
	fn := h.onException
	h.mu.RUnlock()
	if fn != nil {
		fn(err)
	}
}

// kind names the command type for logs and metrics.
func kind(cmd commands.Command) string {
	name := fmt.Sprintf("%T", cmd)
	return strings.TrimPrefix(name, "*commands.")
}
