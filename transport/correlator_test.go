// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/absmach/stomp/commands"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestCorrelatorRequest(t *testing.T) {
	cases := []struct {
		desc    string
		reply   func(id int32) commands.Command
		wantErr string
	}{
		{
			desc:  "receipt completes the request",
			reply: func(id int32) commands.Command { return &commands.Response{CorrelationID: id} },
		},
		{
			desc: "broker error fails the request",
			reply: func(id int32) commands.Command {
				r := &commands.ExceptionResponse{Exception: &commands.BrokerError{Message: "denied"}}
				r.CorrelationID = id
				return r
			},
			wantErr: "broker error: denied",
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			next := &fakeTransport{}
			c := NewResponseCorrelator(next, nil, nil, nil)
			next.onSend = func(cmd commands.Command) {
				assert.True(t, cmd.ResponseRequired())
				go next.command(tc.reply(cmd.CommandID()))
			}

			resp, err := c.Request(context.Background(), &commands.TransactionInfo{})
			if tc.wantErr != "" {
				var brokerErr *commands.BrokerError
				require.ErrorAs(t, err, &brokerErr)
				assert.EqualError(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, int32(1), resp.CorrelationID)
			assert.Equal(t, 0, c.Pending())
		})
	}
}

func TestCorrelatorAssignsIDs(t *testing.T) {
	next := &fakeTransport{}
	c := NewResponseCorrelator(next, nil, nil, nil)

	ack := &commands.MessageAck{}
	ack.SetResponseRequired(true)
	require.NoError(t, c.Oneway(ack))
	require.NoError(t, c.Oneway(&commands.MessageAck{}))

	require.Equal(t, 2, next.sentCount())
	assert.Equal(t, int32(1), next.sent[0].CommandID())
	assert.False(t, next.sent[0].ResponseRequired())
	assert.Equal(t, int32(2), next.sent[1].CommandID())
}

func TestCorrelatorTimeout(t *testing.T) {
	next := &fakeTransport{}
	c := NewResponseCorrelator(next, nil, nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.Request(ctx, &commands.TransactionInfo{})
	assert.ErrorIs(t, err, ErrRequestTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 0, c.Pending())
}

func TestCorrelatorFailsWaitersOnFault(t *testing.T) {
	next := &fakeTransport{}
	c := NewResponseCorrelator(next, nil, nil, nil)

	faults := make(chan error, 1)
	c.SetExceptionHandler(func(err error) { faults <- err })

	fault := errors.New("connection reset")
	done := make(chan error, 1)
	go func() {
		_, err := c.Request(context.Background(), &commands.TransactionInfo{})
		done <- err
	}()

	require.Eventually(t, func() bool { return c.Pending() == 1 }, time.Second, time.Millisecond)
	next.exception(fault)

	select {
	case err := <-done:
		assert.ErrorIs(t, err, fault)
	case <-time.After(time.Second):
		t.Fatal("waiter not failed")
	}
	assert.ErrorIs(t, <-faults, fault)

	_, err := c.Request(context.Background(), &commands.TransactionInfo{})
	assert.ErrorIs(t, err, fault)
	assert.ErrorIs(t, c.Oneway(&commands.MessageAck{}), fault)
}

func TestCorrelatorStopFailsWaiters(t *testing.T) {
	next := &fakeTransport{}
	c := NewResponseCorrelator(next, nil, nil, nil)

	done := make(chan error, 1)
	go func() {
		_, err := c.Request(context.Background(), &commands.TransactionInfo{})
		done <- err
	}()
	require.Eventually(t, func() bool { return c.Pending() == 1 }, time.Second, time.Millisecond)

	require.NoError(t, c.Stop())
	assert.ErrorIs(t, <-done, ErrTransportStopped)
}

func TestCorrelatorForwardsUnmatched(t *testing.T) {
	next := &fakeTransport{}
	c := NewResponseCorrelator(next, nil, nil, nil)

	var got []commands.Command
	c.SetCommandHandler(func(cmd commands.Command) { got = append(got, cmd) })

	dispatch := &commands.MessageDispatch{Message: commands.NewTextMessage("x")}
	unmatched := &commands.ExceptionResponse{Exception: &commands.BrokerError{Message: "boom"}}
	next.command(dispatch)
	next.command(&commands.Response{CorrelationID: 99})
	next.command(unmatched)

	assert.Equal(t, []commands.Command{dispatch, unmatched}, got)
}

func TestCorrelatorTracesRequests(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	next := &fakeTransport{}
	c := NewResponseCorrelator(next, tp.Tracer("test"), nil, nil)
	next.onSend = func(cmd commands.Command) {
		go next.command(&commands.Response{CorrelationID: cmd.CommandID()})
	}

	_, err := c.Request(context.Background(), &commands.ConnectionInfo{})
	require.NoError(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "stomp.request ConnectionInfo", spans[0].Name())
}
