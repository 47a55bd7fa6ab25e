// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package commands

import "time"

// DefaultPriority is the message priority that is not written to the wire.
const DefaultPriority byte = 4

// Group property names. Both spellings are recognised on input and written
// on output.
const (
	GroupIDProperty        = "NMSXGroupID"
	GroupSeqProperty       = "NMSXGroupSeq"
	LegacyGroupIDProperty  = "JMSXGroupID"
	LegacyGroupSeqProperty = "JMSXGroupSeq"
)

// BodyType selects how Content is interpreted.
type BodyType uint8

// Body types.
const (
	TextBody BodyType = iota
	BytesBody
	MapBody
)

// String returns the body type name.
func (b BodyType) String() string {
	switch b {
	case TextBody:
		return "text"
	case BytesBody:
		return "bytes"
	case MapBody:
		return "map"
	default:
		return "unknown"
	}
}

// Message is an application message sent to or received from a
// destination.
type Message struct {
	BaseCommand

	ProducerID        *ProducerID
	MessageID         *MessageID
	TransactionID     *TransactionID
	TargetConsumerID  *ConsumerID
	Destination       *Destination
	ReplyTo           *Destination
	CorrelationID     string
	Type              string
	Priority          byte
	Persistent        bool
	Expiration        int64
	Timestamp         int64
	RedeliveryCounter int
	GroupID           string
	GroupSeq          int32

	// Properties are application headers. Values are written with their
	// default string form; inbound values are strings, except the group
	// sequence which is an int32.
	Properties map[string]any

	BodyType BodyType
	Content  []byte
	// Map is the body of a MapBody message. It is serialized into Content
	// by the wire format's map codec.
	Map map[string]any
}

// NewTextMessage creates a text message with the default priority.
func NewTextMessage(text string) *Message {
	return &Message{
		Priority:   DefaultPriority,
		BodyType:   TextBody,
		Content:    []byte(text),
		Properties: map[string]any{},
	}
}

// NewBytesMessage creates a bytes message with the default priority.
func NewBytesMessage(content []byte) *Message {
	return &Message{
		Priority:   DefaultPriority,
		BodyType:   BytesBody,
		Content:    content,
		Properties: map[string]any{},
	}
}

// NewMapMessage creates a map message with the default priority.
func NewMapMessage(body map[string]any) *Message {
	if body == nil {
		body = map[string]any{}
	}
	return &Message{
		Priority:   DefaultPriority,
		BodyType:   MapBody,
		Map:        body,
		Properties: map[string]any{},
	}
}

// Text returns the content as a string.
func (m *Message) Text() string {
	return string(m.Content)
}

// SetProperty sets an application property.
func (m *Message) SetProperty(name string, value any) {
	if m.Properties == nil {
		m.Properties = map[string]any{}
	}
	m.Properties[name] = value
}

// Expired reports whether the message expiration, in milliseconds since the
// epoch, has passed. Zero never expires.
func (m *Message) Expired(now time.Time) bool {
	return m.Expiration != 0 && now.UnixMilli() > m.Expiration
}

func (c *Message) Visit(v Visitor) error { return v.VisitMessage(c) }
