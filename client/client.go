// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package client provides a STOMP messaging connection built on the
// transport chain: connect, subscribe, send, acknowledge and transactions.
package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/absmach/stomp/commands"
	"github.com/absmach/stomp/ratelimit"
	"github.com/absmach/stomp/transport"
	"github.com/google/uuid"
)

// Connection is a thread-safe STOMP connection with a single session and
// producer.
type Connection struct {
	opts   *Options
	logger *slog.Logger

	// State management
	state *stateManager

	transport   transport.Transport
	transportMu sync.RWMutex

	connID     *commands.ConnectionID
	sessionID  *commands.SessionID
	producerID *commands.ProducerID

	nextConsumer atomic.Int64
	nextMessage  atomic.Int64
	nextTx       atomic.Int64

	subs    *subscriptionRegistry
	limiter *ratelimit.SendLimiter

	txMu sync.Mutex
	tx   *commands.TransactionID

	lostOnce sync.Once
}

// New creates a Connection with the given options.
func New(opts *Options) (*Connection, error) {
	if opts == nil {
		opts = NewOptions()
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	if opts.ClientID == "" {
		opts.ClientID = uuid.NewString()
	}
	connID := &commands.ConnectionID{Value: "ID:" + uuid.NewString()}
	sessionID := &commands.SessionID{ConnectionID: connID.Value, Value: 1}

	return &Connection{
		opts:       opts,
		logger:     opts.Logger.With(slog.String("client_id", opts.ClientID)),
		state:      newStateManager(),
		connID:     connID,
		sessionID:  sessionID,
		producerID: &commands.ProducerID{ConnectionID: connID.Value, SessionID: sessionID.Value, Value: 1},
		subs:       newSubscriptionRegistry(),
		limiter: ratelimit.NewSendLimiter(ratelimit.Config{
			Rate:             opts.SendRate,
			Burst:            opts.SendBurst,
			DestinationRate:  opts.DestinationRate,
			DestinationBurst: opts.DestinationBurst,
		}),
	}, nil
}

// Connect opens the transport and performs the STOMP handshake.
func (c *Connection) Connect(ctx context.Context) error {
	if c.state.isClosed() {
		return ErrClientClosed
	}
	if !c.state.transition(StateDisconnected, StateConnecting) {
		return ErrAlreadyConnected
	}

	if err := c.doConnect(ctx); err != nil {
		c.state.set(StateDisconnected)
		return err
	}

	c.state.set(StateConnected)
	c.logger.Info("connected", slog.String("broker", c.currentTransport().RemoteAddr()))
	return nil
}

func (c *Connection) doConnect(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.opts.ConnectTimeout)
	defer cancel()

	tr, err := c.openTransport(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConnectFailed, err)
	}

	tr.SetCommandHandler(c.onCommand)
	tr.SetExceptionHandler(c.onException)
	if err := tr.Start(); err != nil {
		_ = tr.Stop()
		return fmt.Errorf("%w: %w", ErrConnectFailed, err)
	}

	c.transportMu.Lock()
	c.transport = tr
	c.transportMu.Unlock()

	info := &commands.ConnectionInfo{
		ConnectionID: c.connID,
		ClientID:     c.opts.ClientID,
		UserName:     c.opts.Login,
		Password:     c.opts.Passcode,
	}
	if _, err := tr.Request(ctx, info); err != nil {
		c.dropTransport()
		return fmt.Errorf("%w: %w", ErrConnectFailed, err)
	}

	// Session and producer have no frames; the wire format answers them.
	registrations := []commands.Command{
		&commands.SessionInfo{SessionID: c.sessionID},
		&commands.ProducerInfo{ProducerID: c.producerID},
	}
	for _, cmd := range registrations {
		if _, err := tr.Request(ctx, cmd); err != nil {
			c.dropTransport()
			return fmt.Errorf("%w: %w", ErrConnectFailed, err)
		}
	}
	return nil
}

func (c *Connection) openTransport(ctx context.Context) (transport.Transport, error) {
	if c.opts.Transport != nil {
		return c.opts.Transport(ctx)
	}

	d, err := transport.NewDialer(transport.DialerConfig{
		URLs:             c.opts.URLs,
		ConnectTimeout:   c.opts.ConnectTimeout,
		TLSConfig:        c.opts.TLSConfig,
		WSPath:           c.opts.WSPath,
		Monitor:          c.opts.Monitor,
		FailureThreshold: c.opts.FailureThreshold,
		ResetTimeout:     c.opts.ResetTimeout,
	}, c.opts.Metrics, c.opts.Tracer, c.logger)
	if err != nil {
		return nil, err
	}
	return d.Dial(ctx)
}

// Close sends DISCONNECT, stops the transport and ends every
// subscription. The connection cannot be reused.
func (c *Connection) Close() error {
	prev := c.state.get()
	if prev == StateClosed {
		return nil
	}
	c.state.set(StateDisconnecting)

	tr := c.currentTransport()
	if tr != nil && prev == StateConnected {
		if err := tr.Oneway(&commands.ShutdownInfo{}); err != nil {
			c.logger.Debug("disconnect not sent", slog.String("error", err.Error()))
		}
	}

	// Subscriptions end first so a blocked delivery cannot hold the reader.
	c.closeSubscriptions()
	err := c.dropTransport()
	c.limiter.Stop()
	c.state.set(StateClosed)
	return err
}

// IsConnected returns true if the connection is established.
func (c *Connection) IsConnected() bool {
	return c.state.isConnected()
}

// State returns the current connection state.
func (c *Connection) State() State {
	return c.state.get()
}

// ClientID returns the client identifier sent to the broker.
func (c *Connection) ClientID() string {
	return c.opts.ClientID
}

// Subscribe registers a consumer on dest. Messages arrive on the returned
// subscription's channel.
func (c *Connection) Subscribe(ctx context.Context, dest *commands.Destination, so SubscribeOptions) (*Subscription, error) {
	if dest == nil {
		return nil, ErrNoDestination
	}
	tr, err := c.connected()
	if err != nil {
		return nil, err
	}

	prefetch := c.opts.PrefetchSize
	if so.PrefetchSize > 0 {
		prefetch = so.PrefetchSize
	}
	info := &commands.ConsumerInfo{
		ConsumerID: &commands.ConsumerID{
			ConnectionID: c.connID.Value,
			SessionID:    c.sessionID.Value,
			Value:        c.nextConsumer.Add(1),
		},
		Destination:      dest,
		AckMode:          so.AckMode,
		SubscriptionName: so.SubscriptionName,
		Selector:         so.Selector,
		NoLocal:          so.NoLocal,
		DispatchAsync:    c.opts.DispatchAsync,
		Exclusive:        so.Exclusive,
		Retroactive:      so.Retroactive,
		PrefetchSize:     prefetch,
		Priority:         so.Priority,
	}

	// Registered before SUBSCRIBE so no early message is lost.
	sub := newSubscription(info, c.opts.MessageBuffer)
	c.subs.add(sub)

	ctx, cancel := c.requestContext(ctx)
	defer cancel()
	if _, err := tr.Request(ctx, info); err != nil {
		c.subs.remove(info.ConsumerID)
		sub.close()
		return nil, err
	}

	c.logger.Debug("subscribed",
		slog.String("destination", dest.String()),
		slog.String("consumer_id", info.ConsumerID.String()))
	return sub, nil
}

// Unsubscribe removes the consumer and closes its channel.
func (c *Connection) Unsubscribe(ctx context.Context, sub *Subscription) error {
	if sub == nil || c.subs.remove(sub.ID) == nil {
		return ErrUnknownSubscription
	}
	defer sub.close()

	tr, err := c.connected()
	if err != nil {
		return err
	}

	ctx, cancel := c.requestContext(ctx)
	defer cancel()
	_, err = tr.Request(ctx, &commands.RemoveInfo{ObjectID: sub.ID})
	return err
}

// Send publishes msg to its destination. The message gets the connection's
// producer id, a new message id and the current transaction.
func (c *Connection) Send(ctx context.Context, msg *commands.Message) error {
	if msg == nil {
		return ErrNilMessage
	}
	if msg.Destination == nil {
		return ErrNoDestination
	}
	tr, err := c.connected()
	if err != nil {
		return err
	}

	if err := c.limiter.Wait(ctx, msg.Destination.String()); err != nil {
		return err
	}

	msg.ProducerID = c.producerID
	msg.MessageID = &commands.MessageID{
		ProducerID:         c.producerID,
		ProducerSequenceID: c.nextMessage.Add(1),
	}
	msg.TransactionID = c.currentTx()
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().UnixMilli()
	}

	if !c.opts.SyncSend {
		return tr.Oneway(msg)
	}
	ctx, cancel := c.requestContext(ctx)
	defer cancel()
	_, err = tr.Request(ctx, msg)
	return err
}

// Ack acknowledges md on a client or individual acknowledge subscription.
func (c *Connection) Ack(md *commands.MessageDispatch) error {
	if md == nil || md.Message == nil {
		return ErrNilMessage
	}
	sub := c.subs.get(md.ConsumerID)
	if sub == nil {
		return ErrUnknownSubscription
	}
	switch sub.AckMode {
	case commands.ClientAcknowledge, commands.IndividualAcknowledge, commands.Transactional:
	default:
		return ErrAckNotRequired
	}

	tr, err := c.connected()
	if err != nil {
		return err
	}
	return tr.Oneway(&commands.MessageAck{
		ConsumerID:    md.ConsumerID,
		Destination:   md.Destination,
		LastMessageID: md.Message.MessageID,
		TransactionID: c.currentTx(),
		MessageCount:  1,
	})
}

// Begin starts a transaction. Sends and acknowledgements join it until
// Commit or Rollback.
func (c *Connection) Begin(ctx context.Context) error {
	tr, err := c.connected()
	if err != nil {
		return err
	}

	c.txMu.Lock()
	defer c.txMu.Unlock()
	if c.tx != nil {
		return ErrTransactionActive
	}

	id := &commands.TransactionID{ConnectionID: c.connID.Value, Value: c.nextTx.Add(1)}
	ctx, cancel := c.requestContext(ctx)
	defer cancel()
	if _, err := tr.Request(ctx, c.txInfo(id, commands.TransactionBegin)); err != nil {
		return err
	}
	c.tx = id
	return nil
}

// Commit commits the current transaction.
func (c *Connection) Commit(ctx context.Context) error {
	return c.endTx(ctx, commands.TransactionCommit)
}

// Rollback aborts the current transaction.
func (c *Connection) Rollback(ctx context.Context) error {
	return c.endTx(ctx, commands.TransactionRollback)
}

func (c *Connection) endTx(ctx context.Context, kind commands.TransactionType) error {
	tr, err := c.connected()
	if err != nil {
		return err
	}

	c.txMu.Lock()
	defer c.txMu.Unlock()
	if c.tx == nil {
		return ErrNoTransaction
	}

	id := c.tx
	c.tx = nil
	ctx, cancel := c.requestContext(ctx)
	defer cancel()
	_, err = tr.Request(ctx, c.txInfo(id, kind))
	return err
}

func (c *Connection) txInfo(id *commands.TransactionID, kind commands.TransactionType) *commands.TransactionInfo {
	return &commands.TransactionInfo{ConnectionID: c.connID, TransactionID: id, Type: kind}
}

func (c *Connection) currentTx() *commands.TransactionID {
	c.txMu.Lock()
	defer c.txMu.Unlock()
	return c.tx
}

func (c *Connection) onCommand(cmd commands.Command) {
	switch cmd := cmd.(type) {
	case *commands.MessageDispatch:
		sub := c.subs.get(cmd.ConsumerID)
		if sub == nil {
			c.logger.Warn("message for unknown subscription",
				slog.Any("consumer_id", cmd.ConsumerID),
				slog.Any("destination", cmd.Destination))
			return
		}
		if cmd.Message != nil && cmd.Message.Expired(time.Now()) {
			c.logger.Debug("dropping expired message", slog.Any("message_id", cmd.Message.MessageID))
			return
		}
		sub.deliver(cmd)
	case *commands.ExceptionResponse:
		c.logger.Error("broker error", slog.String("error", cmd.Exception.Error()))
	default:
		c.logger.Debug("unhandled command", slog.String("command", fmt.Sprintf("%T", cmd)))
	}
}

func (c *Connection) onException(err error) {
	if !c.state.transition(StateConnected, StateDisconnected) {
		return
	}
	c.logger.Error("connection lost", slog.String("error", err.Error()))

	c.closeSubscriptions()
	go c.dropTransport()

	c.lostOnce.Do(func() {
		if c.opts.OnConnectionLost != nil {
			go c.opts.OnConnectionLost(fmt.Errorf("%w: %w", ErrConnectionLost, err))
		}
	})
}

func (c *Connection) closeSubscriptions() {
	for _, sub := range c.subs.drain() {
		sub.close()
	}
}

// connected returns the transport if the connection is established.
func (c *Connection) connected() (transport.Transport, error) {
	switch c.state.get() {
	case StateConnected:
	case StateClosed:
		return nil, ErrClientClosed
	default:
		return nil, ErrNotConnected
	}
	if tr := c.currentTransport(); tr != nil {
		return tr, nil
	}
	return nil, ErrNotConnected
}

func (c *Connection) currentTransport() transport.Transport {
	c.transportMu.RLock()
	defer c.transportMu.RUnlock()
	return c.transport
}

func (c *Connection) dropTransport() error {
	c.transportMu.Lock()
	tr := c.transport
	c.transport = nil
	c.transportMu.Unlock()

	if tr == nil {
		return nil
	}
	if err := tr.Stop(); err != nil && !errors.Is(err, transport.ErrTransportStopped) {
		return err
	}
	return nil
}

// requestContext applies the default request timeout to a context without
// a deadline.
func (c *Connection) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.opts.RequestTimeout)
}
