// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/absmach/stomp/commands"
	"github.com/absmach/stomp/metrics"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var _ Transport = (*ResponseCorrelator)(nil)

// request is a command waiting for its response.
type request struct {
	done chan struct{}
	resp *commands.Response
	err  error
}

// ResponseCorrelator assigns command ids and matches responses to the
// requests waiting for them. Once the transport below reports a fault every
// waiter fails with it, as does every later request.
type ResponseCorrelator struct {
	handlers

	next    Transport
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer // nil if tracing disabled

	nextID atomic.Int32

	mu      sync.Mutex
	pending map[int32]*request
	fault   error
}

// NewResponseCorrelator wraps next. It installs its own handlers on next.
// tracer may be nil.
func NewResponseCorrelator(next Transport, tracer trace.Tracer, m *metrics.Metrics, logger *slog.Logger) *ResponseCorrelator {
	if logger == nil {
		logger = slog.Default()
	}

	c := &ResponseCorrelator{
		next:    next,
		logger:  logger.With(slog.String("remote_addr", next.RemoteAddr())),
		metrics: m,
		tracer:  tracer,
		pending: make(map[int32]*request),
	}
	next.SetCommandHandler(c.onCommand)
	next.SetExceptionHandler(c.onException)
	return c
}

// Start starts the wrapped transport.
func (c *ResponseCorrelator) Start() error {
	return c.next.Start()
}

// Stop stops the wrapped transport and fails pending requests.
func (c *ResponseCorrelator) Stop() error {
	err := c.next.Stop()
	c.failAll(ErrTransportStopped)
	return err
}

// Oneway assigns an id to cmd and sends it without waiting.
func (c *ResponseCorrelator) Oneway(cmd commands.Command) error {
	if err := c.faultErr(); err != nil {
		return err
	}
	cmd.SetCommandID(c.nextID.Add(1))
	cmd.SetResponseRequired(false)
	return c.next.Oneway(cmd)
}

// Request sends cmd and waits for the matching response until ctx is done.
// A broker error is returned as *commands.BrokerError.
func (c *ResponseCorrelator) Request(ctx context.Context, cmd commands.Command) (*commands.Response, error) {
	id := c.nextID.Add(1)
	cmd.SetCommandID(id)
	cmd.SetResponseRequired(true)
	k := kind(cmd)

	if c.tracer != nil {
		var span trace.Span
		ctx, span = c.tracer.Start(ctx, "stomp.request "+k,
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				attribute.String("stomp.command", k),
				attribute.Int("stomp.command_id", int(id)),
				attribute.String("net.peer.name", c.next.RemoteAddr()),
			))
		defer span.End()
		resp, err := c.request(ctx, id, k, cmd)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return resp, err
	}

	return c.request(ctx, id, k, cmd)
}

func (c *ResponseCorrelator) request(ctx context.Context, id int32, k string, cmd commands.Command) (*commands.Response, error) {
	start := time.Now()
	req := &request{done: make(chan struct{})}

	c.mu.Lock()
	if c.fault != nil {
		err := c.fault
		c.mu.Unlock()
		return nil, err
	}
	c.pending[id] = req
	c.mu.Unlock()

	// Registered first: the response may arrive before Oneway returns.
	if err := c.next.Oneway(cmd); err != nil {
		c.remove(id)
		c.metrics.RecordRequestDuration(k, time.Since(start).Seconds(), true)
		return nil, err
	}

	select {
	case <-req.done:
		c.metrics.RecordRequestDuration(k, time.Since(start).Seconds(), req.err != nil)
		return req.resp, req.err
	case <-ctx.Done():
		c.remove(id)
		c.metrics.RecordRequestDuration(k, time.Since(start).Seconds(), true)
		return nil, fmt.Errorf("%w: %w", ErrRequestTimeout, ctx.Err())
	}
}

// RemoteAddr returns the broker address.
func (c *ResponseCorrelator) RemoteAddr() string {
	return c.next.RemoteAddr()
}

// Pending returns the number of requests waiting for a response.
func (c *ResponseCorrelator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

func (c *ResponseCorrelator) onCommand(cmd commands.Command) {
	switch r := cmd.(type) {
	case *commands.ExceptionResponse:
		brokerErr := r.Exception
		if brokerErr == nil {
			brokerErr = &commands.BrokerError{}
		}
		if c.complete(r.CorrelationID, nil, brokerErr) {
			return
		}
		c.logger.Warn("broker error without waiting request",
			slog.Int("correlation_id", int(r.CorrelationID)),
			slog.String("error", brokerErr.Error()))
	case *commands.Response:
		if !c.complete(r.CorrelationID, r, nil) {
			c.logger.Debug("response without waiting request", slog.Int("correlation_id", int(r.CorrelationID)))
		}
		return
	}
	c.command(cmd)
}

func (c *ResponseCorrelator) onException(err error) {
	c.failAll(err)
	c.exception(err)
}

func (c *ResponseCorrelator) complete(id int32, resp *commands.Response, err error) bool {
	c.mu.Lock()
	req, ok := c.pending[id]
	if ok {
		delete(c.pending, id)
	}
	c.mu.Unlock()

	if !ok {
		return false
	}
	req.resp = resp
	req.err = err
	close(req.done)
	return true
}

func (c *ResponseCorrelator) remove(id int32) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// failAll fails every pending request with err. Later requests fail with
// the first such error.
func (c *ResponseCorrelator) failAll(err error) {
	c.mu.Lock()
	pending := c.pending
	c.pending = make(map[int32]*request)
	if c.fault == nil {
		c.fault = err
	}
	c.mu.Unlock()

	for _, req := range pending {
		req.err = err
		close(req.done)
	}
}

func (c *ResponseCorrelator) faultErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fault
}
