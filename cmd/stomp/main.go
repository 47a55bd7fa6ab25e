// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/absmach/stomp/client"
	"github.com/absmach/stomp/commands"
	"github.com/absmach/stomp/config"
	"github.com/absmach/stomp/metrics"
	mtls "github.com/absmach/stomp/pkg/tls"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
)

const usage = `Usage: stomp <command> [flags]

Commands:
  send     send messages to a destination
  listen   print messages received from a destination

Run "stomp <command> -h" for the flags of a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "send":
		err = runSend(os.Args[2:])
	case "listen":
		err = runListen(os.Args[2:])
	case "-h", "--help", "help":
		fmt.Fprint(os.Stdout, usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}

	if err != nil {
		slog.Error("Command failed", "command", os.Args[1], "error", err)
		os.Exit(1)
	}
}

// common holds the flags shared by all commands.
type common struct {
	configFile string
	url        string
	dest       string
}

func (c *common) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configFile, "config", "", "Path to configuration file")
	fs.StringVar(&c.url, "url", "", "Broker URL, overrides the configuration")
	fs.StringVar(&c.dest, "dest", "", "Destination, e.g. /queue/orders or /topic/news")
}

func runSend(args []string) error {
	var c common
	fs := flag.NewFlagSet("send", flag.ExitOnError)
	c.register(fs)
	body := fs.String("body", "", "Message body")
	asBytes := fs.Bool("bytes", false, "Send the body as a bytes message")
	count := fs.Int("count", 1, "Number of messages to send")
	tx := fs.Bool("tx", false, "Send all messages in one transaction")
	props := fs.String("props", "", "Message properties as key=value pairs separated by commas")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	conn, cfg, shutdown, err := connect(ctx, &c)
	if err != nil {
		return err
	}
	defer shutdown()
	defer conn.Close()

	dest := commands.ParseDestination(c.dest)
	if *tx {
		if err := conn.Begin(ctx); err != nil {
			return err
		}
	}

	for i := 0; i < *count; i++ {
		var msg *commands.Message
		if *asBytes {
			msg = commands.NewBytesMessage([]byte(*body))
		} else {
			msg = commands.NewTextMessage(*body)
		}
		msg.Destination = dest
		msg.Persistent = cfg.Producer.Persistent
		msg.Priority = byte(cfg.Producer.Priority)
		msg.CorrelationID = uuid.NewString()
		for name, value := range parseProps(*props) {
			msg.SetProperty(name, value)
		}

		if err := conn.Send(ctx, msg); err != nil {
			if *tx {
				_ = conn.Rollback(context.Background())
			}
			return err
		}
	}

	if *tx {
		if err := conn.Commit(ctx); err != nil {
			return err
		}
	}
	slog.Info("Messages sent", "destination", dest.String(), "count", *count)
	return nil
}

func runListen(args []string) error {
	var c common
	fs := flag.NewFlagSet("listen", flag.ExitOnError)
	c.register(fs)
	count := fs.Int("count", 0, "Exit after this many messages, 0 = run until interrupted")
	ack := fs.String("ack", "auto", "Acknowledge mode: auto, client or individual")
	selector := fs.String("selector", "", "Message selector")
	durable := fs.String("durable", "", "Durable subscription name")
	if err := fs.Parse(args); err != nil {
		return err
	}

	mode, err := parseAckMode(*ack)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	conn, _, shutdown, err := connect(ctx, &c)
	if err != nil {
		return err
	}
	defer shutdown()
	defer conn.Close()

	sub, err := conn.Subscribe(ctx, commands.ParseDestination(c.dest), client.SubscribeOptions{
		AckMode:          mode,
		Selector:         *selector,
		SubscriptionName: *durable,
	})
	if err != nil {
		return err
	}
	slog.Info("Listening", "destination", sub.Destination.String())

	received := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case md, ok := <-sub.C:
			if !ok {
				return client.ErrConnectionLost
			}
			printMessage(md)
			if mode != commands.AutoAcknowledge {
				if err := conn.Ack(md); err != nil {
					return err
				}
			}
			received++
			if *count > 0 && received >= *count {
				return conn.Unsubscribe(ctx, sub)
			}
		}
	}
}

// connect loads the configuration, sets up logging and telemetry and
// opens a connection. shutdown flushes telemetry.
func connect(ctx context.Context, c *common) (*client.Connection, *config.Config, func(), error) {
	if c.dest == "" {
		return nil, nil, nil, errors.New("-dest is required")
	}

	cfg, err := config.Load(c.configFile)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if c.url != "" {
		cfg.Broker.URLs = []string{c.url}
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	opts, err := client.OptionsFromConfig(cfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load TLS configuration: %w", err)
	}
	opts.SetLogger(logger)
	if opts.TLSConfig != nil {
		logger.Info("Broker TLS configured", slog.String("security", mtls.SecurityStatus(opts.TLSConfig)))
	}
	shutdown := func() {}

	if cfg.Metrics.Enabled {
		otelShutdown, err := metrics.InitProvider(ctx, cfg.Metrics, opts.ClientID)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
		}
		shutdown = func() {
			sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := otelShutdown(sctx); err != nil {
				slog.Error("Failed to shutdown OpenTelemetry", "error", err)
			}
		}

		m, err := metrics.New()
		if err != nil {
			shutdown()
			return nil, nil, nil, fmt.Errorf("failed to create metrics: %w", err)
		}
		opts.Metrics = m
		if cfg.Metrics.TracesEnabled {
			opts.Tracer = otel.Tracer("stomp-client")
		}
		slog.Info("OpenTelemetry initialized", "endpoint", cfg.Metrics.Endpoint)
	}

	conn, err := client.New(opts)
	if err != nil {
		shutdown()
		return nil, nil, nil, err
	}
	if err := conn.Connect(ctx); err != nil {
		shutdown()
		return nil, nil, nil, err
	}
	return conn, cfg, shutdown, nil
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	logLevel := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	} else {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	}
	return slog.New(handler)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func parseAckMode(s string) (commands.AckMode, error) {
	switch s {
	case "auto":
		return commands.AutoAcknowledge, nil
	case "client":
		return commands.ClientAcknowledge, nil
	case "individual":
		return commands.IndividualAcknowledge, nil
	default:
		return 0, fmt.Errorf("unknown ack mode %q", s)
	}
}

func parseProps(s string) map[string]string {
	props := make(map[string]string)
	for _, pair := range strings.Split(s, ",") {
		name, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if ok && name != "" {
			props[name] = value
		}
	}
	return props
}

func printMessage(md *commands.MessageDispatch) {
	msg := md.Message
	if msg == nil {
		return
	}
	id := ""
	if msg.MessageID != nil {
		id = msg.MessageID.String()
	}

	var body string
	switch msg.BodyType {
	case commands.MapBody:
		body = fmt.Sprint(msg.Map)
	case commands.BytesBody:
		body = fmt.Sprintf("%d bytes", len(msg.Content))
	default:
		body = msg.Text()
	}
	fmt.Fprintf(os.Stdout, "%s\t%s\t%s\n", md.Destination, id, body)
}
