// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/absmach/stomp/commands"
	"github.com/absmach/stomp/frame"
)

// FromFrame translates an inbound frame. Headers mapped to typed fields are
// removed from f. A nil command with a nil error means the frame carried
// nothing for the caller, such as a RECEIPT without receipt-id.
func (wf *WireFormat) FromFrame(f *frame.Frame) (commands.Command, error) {
	switch f.Command {
	case frame.RECEIPT, frame.CONNECTED:
		return wf.readResponse(f)
	case frame.ERROR:
		return wf.readError(f)
	case frame.MESSAGE:
		wf.logger.Debug("received message frame", slog.String("frame", f.String()))
		return wf.readMessage(f)
	default:
		wf.logger.Warn("unknown command received",
			slog.String("command", f.Command),
			slog.Any("headers", f.Header.Names()))
		return nil, nil
	}
}

func (wf *WireFormat) readResponse(f *frame.Frame) (commands.Command, error) {
	text, ok := f.Header.Del(frame.ReceiptID)
	if !ok && f.Command == frame.CONNECTED {
		text, ok = f.Header.Del(frame.ResponseID)
	}
	if !ok {
		return nil, nil
	}

	id, err := parseCorrelationID(strings.TrimPrefix(text, ignorePrefix))
	if err != nil {
		wf.unparsedReceipt(f.Command, text)
		return nil, err
	}
	wf.logger.Debug("received response", slog.String("command", f.Command), slog.Int("correlation_id", int(id)))
	return &commands.Response{CorrelationID: id}, nil
}

func (wf *WireFormat) readError(f *frame.Frame) (commands.Command, error) {
	text, ok := f.Header.Del(frame.ReceiptID)
	if ok && strings.HasPrefix(text, ignorePrefix) {
		id, err := parseCorrelationID(text[len(ignorePrefix):])
		if err != nil {
			wf.unparsedReceipt(f.Command, text)
			return nil, err
		}
		wf.logger.Debug("received suppressed error response", slog.Int("correlation_id", int(id)))
		return &commands.Response{CorrelationID: id}, nil
	}

	answer := &commands.ExceptionResponse{}
	if ok {
		id, err := parseCorrelationID(text)
		if err != nil {
			wf.unparsedReceipt(f.Command, text)
			return nil, err
		}
		answer.CorrelationID = id
	}
	msg, _ := f.Header.Del(frame.Message)
	answer.Exception = &commands.BrokerError{Message: msg}
	wf.logger.Debug("received error frame", slog.String("message", msg))
	return answer, nil
}

func (wf *WireFormat) readMessage(f *frame.Frame) (commands.Command, error) {
	h := f.Header

	// content-length and transformation select the body and stay as
	// properties.
	var msg *commands.Message
	if h.Contains(frame.ContentLength) {
		msg = commands.NewBytesMessage(f.Body)
	} else {
		msg = commands.NewTextMessage(string(f.Body))
	}

	if t, ok := h.Get(hdrTransformation); ok {
		switch {
		case t == BytesTransformation:
			msg.BodyType = commands.BytesBody
		case wf.mapCodec != nil && t == wf.mapCodec.Name():
			m, err := wf.mapCodec.Unmarshal(f.Body)
			if err != nil {
				return nil, fmt.Errorf("%w: map body: %w", ErrDecode, err)
			}
			msg.BodyType = commands.MapBody
			msg.Map = m
			msg.Content = nil
		}
	}

	h.Del(frame.Receipt)
	msg.Type, _ = h.Del(hdrType)
	msg.Destination = commands.ParseDestination(del(h, frame.Destination))
	msg.ReplyTo = commands.ParseDestination(del(h, hdrReplyTo))
	msg.TargetConsumerID = commands.ParseConsumerID(del(h, hdrSubscription))
	msg.CorrelationID, _ = h.Del(hdrCorrelationID)
	msg.MessageID = commands.ParseMessageID(del(h, hdrMessageID))
	msg.Persistent = ToBool(del(h, hdrPersistent), false)
	if v, ok := h.Del(hdrDeliveryMode); ok {
		msg.Persistent = ToBool(v, false)
	}

	if v, ok := h.Del(hdrPriority); ok {
		n, err := strconv.ParseUint(v, 10, 8)
		if err != nil {
			return nil, fmt.Errorf("%w: priority %q: %w", ErrDecode, v, err)
		}
		msg.Priority = byte(n)
	}
	if v, ok := h.Del(hdrTimestamp); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: timestamp %q: %w", ErrDecode, v, err)
		}
		msg.Timestamp = n
	}
	if v, ok := h.Del(hdrExpires); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: expires %q: %w", ErrDecode, v, err)
		}
		msg.Expiration = n
	}
	// The broker only flags redelivery, it does not send a count.
	if _, ok := h.Del(hdrRedelivered); ok {
		msg.RedeliveryCounter = 1
	}

	var err error
	h.Range(func(name, value string) bool {
		switch name {
		case commands.LegacyGroupSeqProperty, commands.GroupSeqProperty:
			n, perr := strconv.ParseInt(value, 10, 32)
			if perr != nil {
				err = fmt.Errorf("%w: %s %q: %w", ErrDecode, name, value, perr)
				return false
			}
			msg.GroupSeq = int32(n)
			msg.Properties[commands.GroupSeqProperty] = int32(n)
		case commands.LegacyGroupIDProperty, commands.GroupIDProperty:
			msg.GroupID = value
			msg.Properties[commands.GroupIDProperty] = value
		default:
			msg.Properties[name] = value
		}
		return true
	})
	if err != nil {
		return nil, err
	}

	return &commands.MessageDispatch{
		ConsumerID:        msg.TargetConsumerID,
		Destination:       msg.Destination,
		Message:           msg,
		RedeliveryCounter: msg.RedeliveryCounter,
	}, nil
}

// unparsedReceipt logs a receipt the pending request can no longer be
// matched by. That request only ends at its deadline.
func (wf *WireFormat) unparsedReceipt(command, receipt string) {
	wf.logger.Debug("receipt id not parsable, request left waiting",
		slog.String("command", command),
		slog.String("receipt_id", receipt))
}

func del(h *frame.Header, name string) string {
	v, _ := h.Del(name)
	return v
}
