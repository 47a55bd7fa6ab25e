// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"crypto/tls"
	"log/slog"
	"time"

	"github.com/absmach/stomp/commands"
	"github.com/absmach/stomp/config"
	"github.com/absmach/stomp/metrics"
	mtls "github.com/absmach/stomp/pkg/tls"
	"github.com/absmach/stomp/transport"
	"go.opentelemetry.io/otel/trace"
)

// Default values.
const (
	DefaultBrokerURL      = "tcp://localhost:61613"
	DefaultConnectTimeout = 10 * time.Second
	DefaultRequestTimeout = 30 * time.Second
	DefaultPrefetchSize   = 1000
	DefaultMessageBuffer  = 256
	DefaultWSPath         = "/stomp"
)

// TransportFactory opens the transport chain to a broker. The returned
// transport is not started.
type TransportFactory func(ctx context.Context) (transport.Transport, error)

// Options configures a Connection.
type Options struct {
	// Connection
	URLs           []string    // Broker URLs, tried in order
	ClientID       string      // Client identifier, generated when empty
	Login          string      // Optional login
	Passcode       string      // Optional passcode
	TLSConfig      *tls.Config // Used for ssl, tls and wss URLs
	WSPath         string      // Path for ws URLs without one
	ConnectTimeout time.Duration
	RequestTimeout time.Duration // Bound for requests whose context has no deadline

	// Liveness
	Monitor transport.MonitorConfig

	// Failover
	FailureThreshold int // Consecutive dial failures that open a URL's breaker, 0 = disabled
	ResetTimeout     time.Duration

	// Producer
	SendRate         float64 // Messages per second, 0 = unlimited
	SendBurst        int
	DestinationRate  float64 // Messages per second per destination, 0 = unlimited
	DestinationBurst int
	SyncSend         bool // Wait for a receipt on every send

	// Consumer
	PrefetchSize  int32
	DispatchAsync bool
	MessageBuffer int // Capacity of each subscription channel

	// Callbacks
	OnConnectionLost func(error) // Called once when the transport fails

	// Observability
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	Tracer  trace.Tracer

	// Transport overrides dialing, mostly for tests.
	Transport TransportFactory
}

// NewOptions creates Options with defaults.
func NewOptions() *Options {
	return &Options{
		URLs:           []string{DefaultBrokerURL},
		WSPath:         DefaultWSPath,
		ConnectTimeout: DefaultConnectTimeout,
		RequestTimeout: DefaultRequestTimeout,
		Monitor:        transport.DefaultMonitorConfig(),
		PrefetchSize:   DefaultPrefetchSize,
		DispatchAsync:  true,
		MessageBuffer:  DefaultMessageBuffer,
	}
}

// OptionsFromConfig builds Options from a file configuration. It fails
// when the TLS certificates cannot be loaded.
func OptionsFromConfig(cfg *config.Config) (*Options, error) {
	o := NewOptions()
	o.URLs = cfg.Broker.URLs
	o.ClientID = cfg.Broker.ClientID
	o.Login = cfg.Broker.Login
	o.Passcode = cfg.Broker.Passcode
	o.WSPath = cfg.Broker.WSPath
	o.ConnectTimeout = cfg.Broker.ConnectTimeout
	o.RequestTimeout = cfg.Broker.RequestTimeout
	tlsConfig, err := mtls.Load(&cfg.Broker.TLS)
	if err != nil {
		return nil, err
	}
	o.TLSConfig = tlsConfig

	o.Monitor = transport.MonitorConfig{
		MaxInactivityDuration: cfg.Inactivity.MaxInactivityDuration,
		InitialDelay:          cfg.Inactivity.InitialDelay,
		StopTimeout:           cfg.Inactivity.StopTimeout,
		ReadCheck:             cfg.Inactivity.ReadCheck,
	}

	o.FailureThreshold = cfg.CircuitBreaker.FailureThreshold
	o.ResetTimeout = cfg.CircuitBreaker.ResetTimeout

	o.SendRate = cfg.Producer.SendRate
	o.SendBurst = cfg.Producer.SendBurst
	o.DestinationRate = cfg.Producer.DestinationRate
	o.DestinationBurst = cfg.Producer.DestinationBurst

	o.PrefetchSize = int32(cfg.Consumer.PrefetchSize)
	o.DispatchAsync = cfg.Consumer.DispatchAsync
	o.MessageBuffer = cfg.Consumer.MessageBuffer
	return o, nil
}

// SetURLs sets the broker URLs.
func (o *Options) SetURLs(urls ...string) *Options {
	o.URLs = urls
	return o
}

// SetClientID sets the client identifier.
func (o *Options) SetClientID(id string) *Options {
	o.ClientID = id
	return o
}

// SetCredentials sets login and passcode.
func (o *Options) SetCredentials(login, passcode string) *Options {
	o.Login = login
	o.Passcode = passcode
	return o
}

// SetTLSConfig sets TLS configuration.
func (o *Options) SetTLSConfig(cfg *tls.Config) *Options {
	o.TLSConfig = cfg
	return o
}

// SetConnectTimeout sets the connection timeout.
func (o *Options) SetConnectTimeout(d time.Duration) *Options {
	o.ConnectTimeout = d
	return o
}

// SetRequestTimeout sets the default request timeout.
func (o *Options) SetRequestTimeout(d time.Duration) *Options {
	o.RequestTimeout = d
	return o
}

// SetMaxInactivity sets the inactivity check period. 0 disables heartbeats.
func (o *Options) SetMaxInactivity(d time.Duration) *Options {
	o.Monitor.MaxInactivityDuration = d
	return o
}

// SetSendRate limits sends on the connection.
func (o *Options) SetSendRate(perSecond float64, burst int) *Options {
	o.SendRate = perSecond
	o.SendBurst = burst
	return o
}

// SetSyncSend sets whether every send waits for a receipt.
func (o *Options) SetSyncSend(sync bool) *Options {
	o.SyncSend = sync
	return o
}

// SetOnConnectionLost sets the connection lost callback.
func (o *Options) SetOnConnectionLost(fn func(error)) *Options {
	o.OnConnectionLost = fn
	return o
}

// SetLogger sets the logger.
func (o *Options) SetLogger(l *slog.Logger) *Options {
	o.Logger = l
	return o
}

// SetTransport overrides how the transport is opened.
func (o *Options) SetTransport(f TransportFactory) *Options {
	o.Transport = f
	return o
}

// Validate checks the options for errors and fills unset values.
func (o *Options) Validate() error {
	if len(o.URLs) == 0 && o.Transport == nil {
		return ErrNoBrokers
	}
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = DefaultConnectTimeout
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = DefaultRequestTimeout
	}
	if o.MessageBuffer <= 0 {
		o.MessageBuffer = DefaultMessageBuffer
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return nil
}

// SubscribeOptions configures a subscription.
type SubscribeOptions struct {
	AckMode          commands.AckMode
	Selector         string
	SubscriptionName string // Durable subscription name
	NoLocal          bool
	Exclusive        bool
	Retroactive      bool
	Priority         byte
	// PrefetchSize overrides the connection default when positive.
	PrefetchSize int32
}
