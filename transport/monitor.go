// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/absmach/stomp/commands"
	"github.com/absmach/stomp/metrics"
	"github.com/absmach/stomp/tasks"
)

var _ Transport = (*InactivityMonitor)(nil)

// MonitorConfig configures an InactivityMonitor.
type MonitorConfig struct {
	// MaxInactivityDuration is the check period. Zero disables monitoring.
	MaxInactivityDuration time.Duration
	// InitialDelay is the time from the first traffic to the first check.
	InitialDelay time.Duration
	// StopTimeout bounds the wait for the check goroutine and the heartbeat
	// runner on stop.
	StopTimeout time.Duration
	// ReadCheck fails the monitor when a period passes with nothing read.
	ReadCheck bool
}

// DefaultMonitorConfig returns the default monitor settings.
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		MaxInactivityDuration: 10 * time.Second,
		InitialDelay:          10 * time.Second,
		StopTimeout:           2 * time.Second,
	}
}

// MonitorState is the lifecycle state of an InactivityMonitor.
type MonitorState int32

// Monitor states.
const (
	MonitorIdle MonitorState = iota
	MonitorMonitoring
	MonitorFailed
	MonitorStopped
)

func (s MonitorState) String() string {
	switch s {
	case MonitorIdle:
		return "idle"
	case MonitorMonitoring:
		return "monitoring"
	case MonitorFailed:
		return "failed"
	case MonitorStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// InactivityMonitor decorates a transport with liveness tracking. Once
// traffic starts it checks the connection every MaxInactivityDuration and
// sends a heartbeat when nothing was written during the last period. The
// heartbeat is written from a dedicated task runner, never from the check
// goroutine.
type InactivityMonitor struct {
	handlers

	next    Transport
	cfg     MonitorConfig
	logger  *slog.Logger
	metrics *metrics.Metrics

	state           atomic.Int32
	commandSent     atomic.Bool
	commandReceived atomic.Bool
	inRead          atomic.Bool
	inWrite         atomic.Bool

	// writeMu serializes sends with each other and with heartbeats.
	writeMu sync.Mutex

	monitorMu sync.Mutex
	runner    *tasks.Runner
	heartbeat *heartbeatTask
	checkStop chan struct{}
	checkDone chan struct{}
}

// NewInactivityMonitor wraps next. It installs its own handlers on next.
func NewInactivityMonitor(next Transport, cfg MonitorConfig, m *metrics.Metrics, logger *slog.Logger) *InactivityMonitor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = DefaultMonitorConfig().StopTimeout
	}

	mon := &InactivityMonitor{
		next:    next,
		cfg:     cfg,
		logger:  logger.With(slog.String("remote_addr", next.RemoteAddr())),
		metrics: m,
	}
	next.SetCommandHandler(mon.onCommand)
	next.SetExceptionHandler(mon.onException)
	return mon
}

// State returns the current monitor state.
func (m *InactivityMonitor) State() MonitorState {
	return MonitorState(m.state.Load())
}

// Start starts the wrapped transport. Monitoring begins with the first
// command sent or received.
func (m *InactivityMonitor) Start() error {
	return m.next.Start()
}

// Stop stops monitoring and the wrapped transport. It is idempotent.
func (m *InactivityMonitor) Stop() error {
	prev := MonitorState(m.state.Swap(int32(MonitorStopped)))
	if prev != MonitorStopped {
		m.stopMonitor()
	}
	return m.next.Stop()
}

// Oneway sends cmd. Sends fail with ErrInactive once the monitor failed.
func (m *InactivityMonitor) Oneway(cmd commands.Command) error {
	m.startMonitor()

	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	m.inWrite.Store(true)
	defer func() {
		m.commandSent.Store(true)
		m.inWrite.Store(false)
	}()

	switch m.State() {
	case MonitorFailed:
		return ErrInactive
	case MonitorStopped:
		return ErrTransportStopped
	}
	return m.next.Oneway(cmd)
}

// Request delegates to the wrapped transport.
func (m *InactivityMonitor) Request(ctx context.Context, cmd commands.Command) (*commands.Response, error) {
	switch m.State() {
	case MonitorFailed:
		return nil, ErrInactive
	case MonitorStopped:
		return nil, ErrTransportStopped
	}
	return m.next.Request(ctx, cmd)
}

// RemoteAddr returns the broker address.
func (m *InactivityMonitor) RemoteAddr() string {
	return m.next.RemoteAddr()
}

func (m *InactivityMonitor) onCommand(cmd commands.Command) {
	m.commandReceived.Store(true)
	m.inRead.Store(true)
	defer m.inRead.Store(false)

	m.startMonitor()
	m.command(cmd)
}

// onException latches the first fault and reports it upward.
func (m *InactivityMonitor) onException(err error) {
	for {
		s := MonitorState(m.state.Load())
		if s == MonitorFailed || s == MonitorStopped {
			return
		}
		if m.state.CompareAndSwap(int32(s), int32(MonitorFailed)) {
			break
		}
	}

	reason := "transport"
	if errors.Is(err, ErrInactive) {
		reason = "inactive"
	}
	m.metrics.RecordInactivityFailure(reason)
	m.logger.Error("connection failed", slog.String("reason", reason), slog.String("error", err.Error()))

	m.stopMonitor()
	m.exception(err)
}

func (m *InactivityMonitor) startMonitor() {
	if m.cfg.MaxInactivityDuration <= 0 || m.State() != MonitorIdle {
		return
	}

	m.monitorMu.Lock()
	defer m.monitorMu.Unlock()

	if !m.state.CompareAndSwap(int32(MonitorIdle), int32(MonitorMonitoring)) {
		return
	}

	m.runner = tasks.NewRunner(m.logger)
	m.heartbeat = &heartbeatTask{monitor: m}
	m.runner.AddTask(m.heartbeat)
	m.checkStop = make(chan struct{})
	m.checkDone = make(chan struct{})
	go m.checkLoop(m.checkStop, m.checkDone, m.heartbeat, m.runner)

	m.logger.Debug("inactivity monitoring started",
		slog.Duration("max_inactivity", m.cfg.MaxInactivityDuration),
		slog.Duration("initial_delay", m.cfg.InitialDelay))
}

// stopMonitor stops the check goroutine and the heartbeat runner. The waits
// happen outside monitorMu and are bounded by StopTimeout.
func (m *InactivityMonitor) stopMonitor() {
	m.monitorMu.Lock()
	runner, stop, done := m.runner, m.checkStop, m.checkDone
	m.runner, m.heartbeat, m.checkStop, m.checkDone = nil, nil, nil, nil
	m.monitorMu.Unlock()

	if runner == nil {
		return
	}

	close(stop)
	select {
	case <-done:
	case <-time.After(m.cfg.StopTimeout):
		m.logger.Warn("inactivity check did not stop in time")
	}
	if !runner.ShutdownTimeout(m.cfg.StopTimeout) {
		m.logger.Debug("heartbeat runner still finishing")
	}
}

func (m *InactivityMonitor) checkLoop(stop, done chan struct{}, hb *heartbeatTask, runner *tasks.Runner) {
	defer close(done)

	delay := time.NewTimer(m.cfg.InitialDelay)
	defer delay.Stop()
	select {
	case <-stop:
		return
	case <-delay.C:
	}

	ticker := time.NewTicker(m.cfg.MaxInactivityDuration)
	defer ticker.Stop()

	for {
		m.writeCheck(hb, runner)
		if m.cfg.ReadCheck && !m.readCheck() {
			// onException waits for this goroutine.
			go m.onException(ErrInactive)
			return
		}

		select {
		case <-stop:
			return
		case <-ticker.C:
		}
	}
}

// writeCheck schedules a heartbeat when nothing was sent since the last
// check. It skips the check while a send is in progress.
func (m *InactivityMonitor) writeCheck(hb *heartbeatTask, runner *tasks.Runner) {
	if m.inWrite.Load() || m.State() != MonitorMonitoring {
		return
	}

	if !m.commandSent.Load() {
		m.logger.Debug("no command sent since last check, scheduling heartbeat")
		hb.pending.Store(true)
		runner.Wakeup()
	}
	m.commandSent.Store(false)
}

// readCheck reports whether the connection is still considered alive on
// the read side.
func (m *InactivityMonitor) readCheck() bool {
	if m.inRead.Load() || m.State() != MonitorMonitoring {
		return true
	}
	alive := m.commandReceived.Swap(false)
	if !alive {
		m.logger.Debug("no command received since last check")
	}
	return alive
}

func (m *InactivityMonitor) writeHeartbeat() {
	if m.State() != MonitorMonitoring {
		return
	}

	if err := m.Oneway(&commands.KeepAliveInfo{}); err != nil {
		if m.State() == MonitorMonitoring {
			m.onException(err)
		}
		return
	}
	m.metrics.RecordHeartbeat()
}

// heartbeatTask writes one heartbeat per request.
type heartbeatTask struct {
	monitor *InactivityMonitor
	pending atomic.Bool
}

func (t *heartbeatTask) IsPending() bool {
	return t.pending.Load()
}

func (t *heartbeatTask) Iterate() bool {
	if t.pending.CompareAndSwap(true, false) {
		t.monitor.writeHeartbeat()
	}
	return false
}
