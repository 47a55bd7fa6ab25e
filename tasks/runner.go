// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package tasks runs cooperative background work on a dedicated goroutine.
package tasks

import (
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/absmach/stomp/internal/goid"
)

// Task is a unit of schedulable work.
type Task interface {
	// IsPending reports whether Iterate has work to do.
	IsPending() bool
	// Iterate performs one unit of work and reports whether more work is
	// immediately pending. The runner calls it again while it reports true.
	Iterate() bool
}

// Runner executes tasks on one goroutine owned by the Runner. Each pass
// picks the first pending task in insertion order and runs one unit of its
// work. When no task is pending the goroutine parks until Wakeup.
type Runner struct {
	logger *slog.Logger

	mu       sync.Mutex
	tasks    []Task
	shutdown bool

	// notifyCh holds at most one wake-up; a token in it means pending.
	notifyCh chan struct{}
	stopCh   chan struct{}
	doneCh   chan struct{}

	gid        atomic.Uint64
	terminated atomic.Bool
}

// NewRunner creates a Runner and starts its goroutine.
func NewRunner(logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Runner{
		logger:   logger,
		notifyCh: make(chan struct{}, 1),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	go r.run()
	return r
}

// AddTask registers t and wakes the runner.
func (r *Runner) AddTask(t Task) {
	r.mu.Lock()
	r.tasks = append(r.tasks, t)
	r.mu.Unlock()
	r.Wakeup()
}

// RemoveTask unregisters t and wakes the runner.
func (r *Runner) RemoveTask(t Task) {
	r.mu.Lock()
	if i := slices.Index(r.tasks, t); i >= 0 {
		r.tasks = slices.Delete(r.tasks, i, i+1)
	}
	r.mu.Unlock()
	r.Wakeup()
}

// Wakeup asks the runner to scan its tasks. It never blocks and does
// nothing once shutdown was requested.
func (r *Runner) Wakeup() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.shutdown {
		return
	}
	select {
	case r.notifyCh <- struct{}{}:
	default:
	}
}

// Shutdown stops the runner and waits for its goroutine to exit.
func (r *Runner) Shutdown() {
	r.ShutdownTimeout(0)
}

// ShutdownTimeout stops the runner and waits up to d for its goroutine to
// exit; d <= 0 waits without limit. It reports whether the goroutine has
// exited. Called from a task, it returns immediately and the runner exits
// once the task returns. Safe to call more than once and concurrently.
func (r *Runner) ShutdownTimeout(d time.Duration) bool {
	r.mu.Lock()
	if !r.shutdown {
		r.shutdown = true
		close(r.stopCh)
	}
	r.mu.Unlock()

	if goid.Current() == r.gid.Load() {
		return r.terminated.Load()
	}

	if d <= 0 {
		<-r.doneCh
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-r.doneCh:
		return true
	case <-timer.C:
		return false
	}
}

// Terminated reports whether the runner goroutine has exited.
func (r *Runner) Terminated() bool {
	return r.terminated.Load()
}

// Done is closed when the runner goroutine exits.
func (r *Runner) Done() <-chan struct{} {
	return r.doneCh
}

func (r *Runner) run() {
	r.gid.Store(goid.Current())
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("task runner stopped by panic", slog.Any("panic", p))
		}
		r.terminated.Store(true)
		close(r.doneCh)
	}()

	for {
		task, stop := r.next()
		if stop {
			return
		}
		if task != nil {
			// A task reporting more work keeps the goroutine until it is
			// drained or shutdown is requested.
			for task.Iterate() && !r.stopping() {
			}
			continue
		}

		select {
		case <-r.notifyCh:
		case <-r.stopCh:
			return
		}
	}
}

func (r *Runner) stopping() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.shutdown
}

// next returns the first pending task, or stop if shutdown was requested.
func (r *Runner) next() (Task, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.shutdown {
		return nil, true
	}
	for _, t := range r.tasks {
		if t.IsPending() {
			return t, false
		}
	}
	return nil, false
}
