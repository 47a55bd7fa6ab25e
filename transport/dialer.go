// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/absmach/stomp/metrics"
	"github.com/gorilla/websocket"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/trace"
)

// Default broker ports per scheme.
const (
	DefaultPort    = "61613"
	DefaultTLSPort = "61612"
)

// DialerConfig configures a Dialer.
type DialerConfig struct {
	// URLs are tried in order until one connects.
	URLs           []string
	ConnectTimeout time.Duration
	// TLSConfig is used for ssl, tls and wss URLs.
	TLSConfig *tls.Config
	// WSPath is the request path for ws and wss URLs without one.
	WSPath  string
	Monitor MonitorConfig
	// FailureThreshold is the number of consecutive dial failures that open
	// the breaker of a URL. Zero disables the breakers.
	FailureThreshold int
	ResetTimeout     time.Duration
}

// Dialer connects to the first reachable broker and builds the transport
// chain on the connection. Each URL has its own circuit breaker so a broker
// that keeps failing is skipped until its reset timeout passes.
type Dialer struct {
	cfg      DialerConfig
	urls     []*url.URL
	breakers map[string]*gobreaker.CircuitBreaker
	ws       *websocket.Dialer
	metrics  *metrics.Metrics
	tracer   trace.Tracer
	logger   *slog.Logger
}

// NewDialer validates the broker URLs and creates a Dialer. m and tracer may
// be nil.
func NewDialer(cfg DialerConfig, m *metrics.Metrics, tracer trace.Tracer, logger *slog.Logger) (*Dialer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.URLs) == 0 {
		return nil, ErrNoBrokers
	}

	d := &Dialer{
		cfg:      cfg,
		breakers: make(map[string]*gobreaker.CircuitBreaker),
		ws: &websocket.Dialer{
			Proxy:            websocket.DefaultDialer.Proxy,
			HandshakeTimeout: cfg.ConnectTimeout,
			TLSClientConfig:  cfg.TLSConfig,
			Subprotocols:     []string{WSSubprotocol},
		},
		metrics: m,
		tracer:  tracer,
		logger:  logger,
	}

	for _, raw := range cfg.URLs {
		u, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid broker URL %q: %w", raw, err)
		}
		switch strings.ToLower(u.Scheme) {
		case "tcp", "stomp", "ssl", "tls", "ws", "wss":
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
		}
		d.urls = append(d.urls, u)

		if cfg.FailureThreshold <= 0 {
			continue
		}
		d.breakers[u.String()] = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        u.String(),
			MaxRequests: 1,
			Interval:    0,
			Timeout:     cfg.ResetTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= uint32(cfg.FailureThreshold)
			},
			OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
				logger.Warn("broker circuit breaker state changed",
					slog.String("broker", name),
					slog.String("from", from.String()),
					slog.String("to", to.String()))
			},
		})
	}

	return d, nil
}

// Dial connects to the first reachable broker and returns the unstarted
// transport chain. It returns the joined dial errors if no broker connects.
func (d *Dialer) Dial(ctx context.Context) (*ResponseCorrelator, error) {
	var errs []error
	for _, u := range d.urls {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		conn, err := d.dialBreaker(ctx, u)
		if err != nil {
			d.metrics.RecordDialFailure(u.Host)
			d.logger.Debug("broker dial failed", slog.String("broker", u.Redacted()), slog.String("error", err.Error()))
			errs = append(errs, fmt.Errorf("%s: %w", u.Redacted(), err))
			continue
		}

		d.logger.Info("connected to broker", slog.String("broker", u.Redacted()))
		return NewChain(conn, u.Host, d.cfg.Monitor, d.metrics, d.tracer, d.logger), nil
	}
	return nil, errors.Join(errs...)
}

func (d *Dialer) dialBreaker(ctx context.Context, u *url.URL) (io.ReadWriteCloser, error) {
	cb, ok := d.breakers[u.String()]
	if !ok {
		return d.dialURL(ctx, u)
	}

	conn, err := cb.Execute(func() (any, error) {
		return d.dialURL(ctx, u)
	})
	if err != nil {
		return nil, err
	}
	return conn.(io.ReadWriteCloser), nil
}

func (d *Dialer) dialURL(ctx context.Context, u *url.URL) (io.ReadWriteCloser, error) {
	if d.cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.cfg.ConnectTimeout)
		defer cancel()
	}

	switch strings.ToLower(u.Scheme) {
	case "tcp", "stomp":
		var nd net.Dialer
		return nd.DialContext(ctx, "tcp", hostPort(u, DefaultPort))
	case "ssl", "tls":
		td := tls.Dialer{Config: d.cfg.TLSConfig}
		return td.DialContext(ctx, "tcp", hostPort(u, DefaultTLSPort))
	case "ws", "wss":
		target := *u
		if target.Path == "" {
			target.Path = d.cfg.WSPath
		}
		ws, _, err := d.ws.DialContext(ctx, target.String(), nil)
		if err != nil {
			return nil, err
		}
		return newWSStream(ws), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
}

// NewChain builds the transport chain on an established stream. m and
// tracer may be nil.
func NewChain(conn io.ReadWriteCloser, remote string, cfg MonitorConfig, m *metrics.Metrics, tracer trace.Tracer, logger *slog.Logger) *ResponseCorrelator {
	stream := NewIOTransport(conn, remote, nil, m, logger)
	mon := NewInactivityMonitor(stream, cfg, m, logger)
	return NewResponseCorrelator(mon, tracer, m, logger)
}

func hostPort(u *url.URL, port string) string {
	if u.Port() != "" {
		return u.Host
	}
	return net.JoinHostPort(u.Hostname(), port)
}
