// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package metrics holds the OpenTelemetry instruments of a STOMP client.
package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/absmach/stomp"

// Metrics holds OpenTelemetry metric instruments for a STOMP client.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	meter metric.Meter

	// Counters
	framesSent         metric.Int64Counter
	framesReceived     metric.Int64Counter
	bytesSent          metric.Int64Counter
	bytesReceived      metric.Int64Counter
	heartbeatsSent     metric.Int64Counter
	inactivityFailures metric.Int64Counter
	dialFailures       metric.Int64Counter
	decodeErrors       metric.Int64Counter

	// Histograms
	requestDuration metric.Float64Histogram
}

// New creates a Metrics instance using the global meter provider.
func New() (*Metrics, error) {
	return NewWithMeter(otel.Meter(meterName))
}

// NewWithMeter creates a Metrics instance with all instruments created on
// meter.
func NewWithMeter(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{meter: meter}

	var err error
	m.framesSent, err = meter.Int64Counter(
		"stomp.frames.sent.total",
		metric.WithDescription("Total frames written to the broker"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create framesSent counter: %w", err)
	}

	m.framesReceived, err = meter.Int64Counter(
		"stomp.frames.received.total",
		metric.WithDescription("Total frames read from the broker"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create framesReceived counter: %w", err)
	}

	m.bytesSent, err = meter.Int64Counter(
		"stomp.bytes.sent.total",
		metric.WithDescription("Total bytes written to the broker"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create bytesSent counter: %w", err)
	}

	m.bytesReceived, err = meter.Int64Counter(
		"stomp.bytes.received.total",
		metric.WithDescription("Total bytes read from the broker"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create bytesReceived counter: %w", err)
	}

	m.heartbeatsSent, err = meter.Int64Counter(
		"stomp.heartbeats.sent.total",
		metric.WithDescription("Total keep-alive heartbeats sent on idle connections"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create heartbeatsSent counter: %w", err)
	}

	m.inactivityFailures, err = meter.Int64Counter(
		"stomp.inactivity.failures.total",
		metric.WithDescription("Total connections failed by the inactivity monitor"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create inactivityFailures counter: %w", err)
	}

	m.dialFailures, err = meter.Int64Counter(
		"stomp.dial.failures.total",
		metric.WithDescription("Total failed broker dial attempts"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create dialFailures counter: %w", err)
	}

	m.decodeErrors, err = meter.Int64Counter(
		"stomp.decode.errors.total",
		metric.WithDescription("Total inbound frames dropped because a header could not be decoded"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create decodeErrors counter: %w", err)
	}

	m.requestDuration, err = meter.Float64Histogram(
		"stomp.request.duration",
		metric.WithDescription("Time from sending a request to receiving its response"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create requestDuration histogram: %w", err)
	}

	return m, nil
}

// RecordFrameSent records a frame of the given kind written to the broker.
func (m *Metrics) RecordFrameSent(kind string, sizeBytes int) {
	if m == nil {
		return
	}
	ctx := context.Background()
	m.framesSent.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
	m.bytesSent.Add(ctx, int64(sizeBytes))
}

// RecordFrameReceived records a frame of the given kind read from the
// broker.
func (m *Metrics) RecordFrameReceived(kind string) {
	if m == nil {
		return
	}
	m.framesReceived.Add(context.Background(), 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// RecordBytesReceived records bytes read from the broker.
func (m *Metrics) RecordBytesReceived(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.bytesReceived.Add(context.Background(), int64(n))
}

// RecordHeartbeat records a keep-alive heartbeat.
func (m *Metrics) RecordHeartbeat() {
	if m == nil {
		return
	}
	m.heartbeatsSent.Add(context.Background(), 1)
}

// RecordInactivityFailure records a connection failed by the monitor.
func (m *Metrics) RecordInactivityFailure(reason string) {
	if m == nil {
		return
	}
	m.inactivityFailures.Add(context.Background(), 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// RecordDialFailure records a failed dial to the broker at addr.
func (m *Metrics) RecordDialFailure(addr string) {
	if m == nil {
		return
	}
	m.dialFailures.Add(context.Background(), 1, metric.WithAttributes(attribute.String("addr", addr)))
}

// RecordDecodeError records an inbound frame that could not be translated.
func (m *Metrics) RecordDecodeError() {
	if m == nil {
		return
	}
	m.decodeErrors.Add(context.Background(), 1)
}

// RecordRequestDuration records the round trip of a request.
func (m *Metrics) RecordRequestDuration(kind string, seconds float64, failed bool) {
	if m == nil {
		return
	}
	m.requestDuration.Record(context.Background(), seconds, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.Bool("failed", failed),
	))
}
