// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package commands defines the typed commands exchanged with a STOMP broker.
//
// Every command implements Command and accepts a Visitor. Adding a new
// command type means adding a method to Visitor, which breaks every visitor
// implementation until the new type is handled.
package commands

// Command is a typed protocol action or event.
type Command interface {
	CommandID() int32
	SetCommandID(id int32)
	ResponseRequired() bool
	SetResponseRequired(required bool)
	Visit(v Visitor) error
}

// Visitor has one method per command type.
type Visitor interface {
	VisitConnectionInfo(*ConnectionInfo) error
	VisitSessionInfo(*SessionInfo) error
	VisitProducerInfo(*ProducerInfo) error
	VisitConsumerInfo(*ConsumerInfo) error
	VisitRemoveInfo(*RemoveInfo) error
	VisitRemoveSubscriptionInfo(*RemoveSubscriptionInfo) error
	VisitMessage(*Message) error
	VisitMessageAck(*MessageAck) error
	VisitTransactionInfo(*TransactionInfo) error
	VisitShutdownInfo(*ShutdownInfo) error
	VisitKeepAliveInfo(*KeepAliveInfo) error
	VisitResponse(*Response) error
	VisitExceptionResponse(*ExceptionResponse) error
	VisitMessageDispatch(*MessageDispatch) error
}

// BaseCommand carries the correlation fields shared by all commands.
type BaseCommand struct {
	id               int32
	responseRequired bool
}

// CommandID returns the id used to correlate a reply with this command.
func (c *BaseCommand) CommandID() int32 { return c.id }

// SetCommandID sets the command id.
func (c *BaseCommand) SetCommandID(id int32) { c.id = id }

// ResponseRequired reports whether the sender waits for a reply.
func (c *BaseCommand) ResponseRequired() bool { return c.responseRequired }

// SetResponseRequired sets whether the sender waits for a reply.
func (c *BaseCommand) SetResponseRequired(required bool) { c.responseRequired = required }

// ConnectionInfo opens a connection.
type ConnectionInfo struct {
	BaseCommand
	ConnectionID *ConnectionID
	ClientID     string
	UserName     string
	Password     string
}

func (c *ConnectionInfo) Visit(v Visitor) error { return v.VisitConnectionInfo(c) }

// SessionInfo registers a session. It has no wire representation.
type SessionInfo struct {
	BaseCommand
	SessionID *SessionID
}

func (c *SessionInfo) Visit(v Visitor) error { return v.VisitSessionInfo(c) }

// ProducerInfo registers a producer. It has no wire representation.
type ProducerInfo struct {
	BaseCommand
	ProducerID  *ProducerID
	Destination *Destination
}

func (c *ProducerInfo) Visit(v Visitor) error { return v.VisitProducerInfo(c) }

// ConsumerInfo subscribes a consumer to a destination.
type ConsumerInfo struct {
	BaseCommand
	ConsumerID                 *ConsumerID
	Destination                *Destination
	AckMode                    AckMode
	SubscriptionName           string
	Selector                   string
	NoLocal                    bool
	DispatchAsync              bool
	Exclusive                  bool
	Retroactive                bool
	PrefetchSize               int32
	Priority                   byte
	MaximumPendingMessageLimit int32
}

func (c *ConsumerInfo) Visit(v Visitor) error { return v.VisitConsumerInfo(c) }

// RemoveInfo removes the object named by ObjectID. Only consumer removal
// reaches the wire, as UNSUBSCRIBE.
type RemoveInfo struct {
	BaseCommand
	ObjectID                ObjectID
	LastDeliveredSequenceID int64
}

func (c *RemoveInfo) Visit(v Visitor) error { return v.VisitRemoveInfo(c) }

// RemoveSubscriptionInfo removes a durable subscription. It has no wire
// representation.
type RemoveSubscriptionInfo struct {
	BaseCommand
	ConnectionID     *ConnectionID
	ClientID         string
	SubscriptionName string
}

func (c *RemoveSubscriptionInfo) Visit(v Visitor) error { return v.VisitRemoveSubscriptionInfo(c) }

// MessageAck acknowledges consumption of a message.
type MessageAck struct {
	BaseCommand
	ConsumerID    *ConsumerID
	Destination   *Destination
	LastMessageID *MessageID
	TransactionID *TransactionID
	MessageCount  int32
}

func (c *MessageAck) Visit(v Visitor) error { return v.VisitMessageAck(c) }

// TransactionInfo begins, commits or rolls back a transaction.
type TransactionInfo struct {
	BaseCommand
	ConnectionID  *ConnectionID
	TransactionID *TransactionID
	Type          TransactionType
}

func (c *TransactionInfo) Visit(v Visitor) error { return v.VisitTransactionInfo(c) }

// ShutdownInfo closes the connection. It never requests a reply.
type ShutdownInfo struct {
	BaseCommand
}

func (c *ShutdownInfo) Visit(v Visitor) error { return v.VisitShutdownInfo(c) }

// KeepAliveInfo proves liveness on an otherwise idle connection.
type KeepAliveInfo struct {
	BaseCommand
}

func (c *KeepAliveInfo) Visit(v Visitor) error { return v.VisitKeepAliveInfo(c) }

// Response is the reply to a command that required one.
type Response struct {
	BaseCommand
	CorrelationID int32
}

func (c *Response) Visit(v Visitor) error { return v.VisitResponse(c) }

// ExceptionResponse is a reply carrying a broker error.
type ExceptionResponse struct {
	Response
	Exception *BrokerError
}

func (c *ExceptionResponse) Visit(v Visitor) error { return v.VisitExceptionResponse(c) }

// MessageDispatch delivers an inbound message to a consumer.
type MessageDispatch struct {
	BaseCommand
	ConsumerID        *ConsumerID
	Destination       *Destination
	Message           *Message
	RedeliveryCounter int
}

func (c *MessageDispatch) Visit(v Visitor) error { return v.VisitMessageDispatch(c) }
