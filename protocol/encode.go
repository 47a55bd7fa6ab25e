// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/absmach/stomp/commands"
	"github.com/absmach/stomp/frame"
)

var _ commands.Visitor = (*encoder)(nil)

// encoder builds the outbound frame for one command. A nil frame without
// heartbeat means the command has no wire form.
type encoder struct {
	wf        *WireFormat
	frame     *frame.Frame
	heartbeat bool
}

// groupHeaders are written from the message group fields and never copied
// from the properties while a group is set.
var groupHeaders = map[string]bool{
	commands.GroupIDProperty:        true,
	commands.GroupSeqProperty:       true,
	commands.LegacyGroupIDProperty:  true,
	commands.LegacyGroupSeqProperty: true,
}

func receipt(h *frame.Header, cmd commands.Command) {
	if cmd.ResponseRequired() {
		h.Set(frame.Receipt, formatInt(int64(cmd.CommandID())))
	}
}

func (e *encoder) VisitConnectionInfo(c *commands.ConnectionInfo) error {
	f := frame.New(frame.CONNECT)
	setIfNotEmpty(f.Header, hdrClientID, c.ClientID)
	setIfNotEmpty(f.Header, hdrLogin, c.UserName)
	setIfNotEmpty(f.Header, hdrPasscode, c.Password)
	f.Header.Set(frame.RequestID, formatInt(int64(c.CommandID())))
	e.frame = f
	return nil
}

func (e *encoder) VisitMessage(m *commands.Message) error {
	f := frame.New(frame.SEND)
	h := f.Header
	receipt(h, m)

	if m.Destination != nil {
		h.Set(frame.Destination, m.Destination.String())
	}
	if m.ReplyTo != nil {
		h.Set(hdrReplyTo, m.ReplyTo.String())
	}
	setIfNotEmpty(h, hdrCorrelationID, m.CorrelationID)
	if m.Expiration != 0 {
		h.Set(hdrExpires, formatInt(m.Expiration))
	}
	if m.Priority != commands.DefaultPriority {
		h.Set(hdrPriority, strconv.Itoa(int(m.Priority)))
	}
	setIfNotEmpty(h, hdrType, m.Type)
	if m.TransactionID != nil {
		h.Set(hdrTransaction, m.TransactionID.String())
	}

	persistent := strconv.FormatBool(m.Persistent)
	h.Set(hdrPersistent, persistent)
	h.Set(hdrDeliveryMode, persistent)

	grouped := m.GroupID != ""
	if grouped {
		seq := formatInt(int64(m.GroupSeq))
		h.Set(commands.LegacyGroupIDProperty, m.GroupID)
		h.Set(commands.GroupIDProperty, m.GroupID)
		h.Set(commands.LegacyGroupSeqProperty, seq)
		h.Set(commands.GroupSeqProperty, seq)
	}

	switch m.BodyType {
	case commands.BytesBody:
		f.Body = m.Content
		if len(m.Content) > 0 {
			h.Set(frame.ContentLength, strconv.Itoa(len(m.Content)))
		}
		h.Set(hdrTransformation, BytesTransformation)
	case commands.MapBody:
		codec := e.wf.mapCodec
		if codec == nil {
			return ErrNoMapCodec
		}
		body, err := codec.Marshal(m.Map)
		if err != nil {
			return fmt.Errorf("failed to marshal map body: %w", err)
		}
		f.Body = body
		h.Set(hdrTransformation, codec.Name())
	default:
		f.Body = m.Content
	}

	names := make([]string, 0, len(m.Properties))
	for name := range m.Properties {
		if grouped && groupHeaders[name] {
			continue
		}
		// The body decides its own framing.
		if name == frame.ContentLength || (name == hdrTransformation && h.Contains(name)) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		h.Set(name, formatValue(m.Properties[name]))
	}

	e.frame = f
	return nil
}

func (e *encoder) VisitMessageAck(c *commands.MessageAck) error {
	f := frame.New(frame.ACK)
	if c.ResponseRequired() {
		f.Header.Set(frame.Receipt, ignorePrefix+formatInt(int64(c.CommandID())))
	}
	if c.LastMessageID != nil {
		f.Header.Set(hdrMessageID, c.LastMessageID.String())
	}
	if c.TransactionID != nil {
		f.Header.Set(hdrTransaction, c.TransactionID.String())
	}
	e.frame = f
	return nil
}

func (e *encoder) VisitConsumerInfo(c *commands.ConsumerInfo) error {
	f := frame.New(frame.SUBSCRIBE)
	h := f.Header
	receipt(h, c)

	if c.Destination != nil {
		h.Set(frame.Destination, c.Destination.String())
	}
	if c.ConsumerID != nil {
		h.Set(hdrID, c.ConsumerID.String())
	}
	setIfNotEmpty(h, hdrDurableSubscriber, c.SubscriptionName)
	setIfNotEmpty(h, hdrSelector, c.Selector)
	h.Set(hdrAck, AckHeader(c.AckMode))
	if c.NoLocal {
		h.Set(hdrNoLocal, "true")
	}

	// ActiveMQ extensions.
	h.Set(hdrDispatchAsync, strconv.FormatBool(c.DispatchAsync))
	if c.Exclusive {
		h.Set(hdrExclusive, "true")
	}
	if c.SubscriptionName != "" {
		h.Set(hdrSubscriptionName, c.SubscriptionName)
		// 4.0 brokers only read the misspelled name.
		h.Set(hdrLegacySubscription, c.SubscriptionName)
	}
	h.Set(hdrMaxPendingLimit, formatInt(int64(c.MaximumPendingMessageLimit)))
	h.Set(hdrPrefetchSize, formatInt(int64(c.PrefetchSize)))
	h.Set(hdrConsumerPriority, strconv.Itoa(int(c.Priority)))
	if c.Retroactive {
		h.Set(hdrRetroactive, "true")
	}

	e.frame = f
	return nil
}

func (e *encoder) VisitRemoveInfo(c *commands.RemoveInfo) error {
	id, ok := c.ObjectID.(*commands.ConsumerID)
	if !ok || id == nil {
		return nil
	}
	f := frame.New(frame.UNSUBSCRIBE)
	receipt(f.Header, c)
	f.Header.Set(hdrID, id.String())
	e.frame = f
	return nil
}

func (e *encoder) VisitTransactionInfo(c *commands.TransactionInfo) error {
	command := frame.BEGIN
	switch c.Type {
	case commands.TransactionCommit:
		c.SetResponseRequired(true)
		command = frame.COMMIT
	case commands.TransactionRollback:
		c.SetResponseRequired(true)
		command = frame.ABORT
	}

	f := frame.New(command)
	receipt(f.Header, c)
	if c.TransactionID != nil {
		f.Header.Set(hdrTransaction, c.TransactionID.String())
	}
	e.frame = f
	return nil
}

func (e *encoder) VisitShutdownInfo(c *commands.ShutdownInfo) error {
	if c.ResponseRequired() {
		return ErrResponseRequired
	}
	e.frame = frame.New(frame.DISCONNECT)
	return nil
}

func (e *encoder) VisitKeepAliveInfo(*commands.KeepAliveInfo) error {
	e.heartbeat = true
	return nil
}

// Commands below have no wire form.

func (e *encoder) VisitSessionInfo(*commands.SessionInfo) error { return nil }

func (e *encoder) VisitProducerInfo(*commands.ProducerInfo) error { return nil }

func (e *encoder) VisitRemoveSubscriptionInfo(*commands.RemoveSubscriptionInfo) error { return nil }

func (e *encoder) VisitResponse(*commands.Response) error { return nil }

func (e *encoder) VisitExceptionResponse(*commands.ExceptionResponse) error { return nil }

func (e *encoder) VisitMessageDispatch(*commands.MessageDispatch) error { return nil }

func setIfNotEmpty(h *frame.Header, name, value string) {
	if value != "" {
		h.Set(name, value)
	}
}
