// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"strconv"
	"strings"
)

// ObjectID names an object a RemoveInfo can remove.
type ObjectID interface {
	String() string
	objectID()
}

// ConnectionID identifies a connection.
type ConnectionID struct {
	Value string
}

func (id *ConnectionID) String() string { return id.Value }
func (*ConnectionID) objectID()          {}

// SessionID identifies a session within a connection.
type SessionID struct {
	ConnectionID string
	Value        int64
}

// String returns "connection:session".
func (id *SessionID) String() string {
	return id.ConnectionID + ":" + strconv.FormatInt(id.Value, 10)
}

func (*SessionID) objectID() {}

// ConsumerID identifies a consumer within a session.
type ConsumerID struct {
	ConnectionID string
	SessionID    int64
	Value        int64
}

// String returns "connection:session:value", the form used for the
// SUBSCRIBE id and the MESSAGE subscription header.
func (id *ConsumerID) String() string {
	return joinID(id.ConnectionID, id.SessionID, id.Value)
}

func (*ConsumerID) objectID() {}

// ParseConsumerID parses the form produced by ConsumerID.String. Empty text
// yields nil.
func ParseConsumerID(text string) *ConsumerID {
	if text == "" {
		return nil
	}
	conn, session, value := splitID(text)
	return &ConsumerID{ConnectionID: conn, SessionID: session, Value: value}
}

// ProducerID identifies a producer within a session.
type ProducerID struct {
	ConnectionID string
	SessionID    int64
	Value        int64
}

// String returns "connection:session:value".
func (id *ProducerID) String() string {
	return joinID(id.ConnectionID, id.SessionID, id.Value)
}

func (*ProducerID) objectID() {}

// ParseProducerID parses the form produced by ProducerID.String. Empty text
// yields nil.
func ParseProducerID(text string) *ProducerID {
	if text == "" {
		return nil
	}
	conn, session, value := splitID(text)
	return &ProducerID{ConnectionID: conn, SessionID: session, Value: value}
}

// MessageID identifies a message by producer and producer sequence.
type MessageID struct {
	ProducerID         *ProducerID
	ProducerSequenceID int64
	BrokerSequenceID   int64
}

// String returns "producer:sequence".
func (id *MessageID) String() string {
	producer := ""
	if id.ProducerID != nil {
		producer = id.ProducerID.String()
	}
	return producer + ":" + strconv.FormatInt(id.ProducerSequenceID, 10)
}

// ParseMessageID parses a broker message id. The text after the last colon
// is the producer sequence; the rest is the producer id. Empty text yields
// nil.
func ParseMessageID(text string) *MessageID {
	if text == "" {
		return nil
	}
	id := &MessageID{}
	if idx := strings.LastIndexByte(text, ':'); idx >= 0 {
		id.ProducerSequenceID = parseLeadingInt(text[idx+1:])
		text = text[:idx]
	}
	id.ProducerID = ParseProducerID(text)
	if id.ProducerID == nil {
		id.ProducerID = &ProducerID{}
	}
	return id
}

// TransactionID identifies a local transaction.
type TransactionID struct {
	ConnectionID string
	Value        int64
}

// String returns "connection:value".
func (id *TransactionID) String() string {
	return id.ConnectionID + ":" + strconv.FormatInt(id.Value, 10)
}

// ParseTransactionID parses the form produced by TransactionID.String.
// Empty text yields nil.
func ParseTransactionID(text string) *TransactionID {
	if text == "" {
		return nil
	}
	id := &TransactionID{ConnectionID: text}
	if idx := strings.LastIndexByte(text, ':'); idx >= 0 {
		id.Value = parseLeadingInt(text[idx+1:])
		id.ConnectionID = text[:idx]
	}
	return id
}

func joinID(conn string, session, value int64) string {
	var b strings.Builder
	b.Grow(len(conn) + 24)
	b.WriteString(conn)
	b.WriteByte(':')
	b.WriteString(strconv.FormatInt(session, 10))
	b.WriteByte(':')
	b.WriteString(strconv.FormatInt(value, 10))
	return b.String()
}

// splitID splits "connection:session:value" from the right. Connection ids
// issued by brokers contain colons themselves, so only the last two
// components are numeric.
func splitID(text string) (conn string, session, value int64) {
	idx := strings.LastIndexByte(text, ':')
	if idx < 0 {
		return text, 0, 0
	}
	value = parseLeadingInt(text[idx+1:])
	text = text[:idx]

	idx = strings.LastIndexByte(text, ':')
	if idx < 0 {
		return text, 0, value
	}
	session = parseLeadingInt(text[idx+1:])
	return text[:idx], session, value
}

// parseLeadingInt parses the leading run of digits and '-' characters and
// returns 0 when there is none or it does not form a number.
func parseLeadingInt(text string) int64 {
	end := 0
	for end < len(text) && (text[end] == '-' || (text[end] >= '0' && text[end] <= '9')) {
		end++
	}
	n, err := strconv.ParseInt(text[:end], 10, 64)
	if err != nil {
		return 0
	}
	return n
}
