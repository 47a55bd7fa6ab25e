// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package tasks_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/absmach/stomp/tasks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countTask runs once per Wakeup while armed.
type countTask struct {
	armed atomic.Bool
	runs  atomic.Int32
	fn    func()
}

func (t *countTask) IsPending() bool { return t.armed.Load() }

func (t *countTask) Iterate() bool {
	t.armed.Store(false)
	t.runs.Add(1)
	if t.fn != nil {
		t.fn()
	}
	return false
}

func TestRunnerRunsPendingTask(t *testing.T) {
	r := tasks.NewRunner(nil)
	defer r.Shutdown()

	task := &countTask{}
	r.AddTask(task)

	for i := 1; i <= 3; i++ {
		task.armed.Store(true)
		r.Wakeup()
		require.Eventually(t, func() bool { return task.runs.Load() == int32(i) }, time.Second, time.Millisecond)
	}

	// Not pending: a wake-up does not run it.
	r.Wakeup()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(3), task.runs.Load())
}

func TestRunnerRemoveTask(t *testing.T) {
	r := tasks.NewRunner(nil)
	defer r.Shutdown()

	task := &countTask{}
	r.AddTask(task)
	r.RemoveTask(task)

	task.armed.Store(true)
	r.Wakeup()
	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, task.runs.Load())
}

func TestRunnerFirstPendingTaskWins(t *testing.T) {
	r := tasks.NewRunner(nil)
	defer r.Shutdown()

	var order []string
	var mu sync.Mutex
	record := func(name string) func() {
		return func() {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
		}
	}

	first := &countTask{fn: record("first")}
	second := &countTask{fn: record("second")}
	first.armed.Store(true)
	second.armed.Store(true)

	r.AddTask(first)
	r.AddTask(second)

	require.Eventually(t, func() bool { return second.runs.Load() == 1 }, time.Second, time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestRunnerShutdownFromTask(t *testing.T) {
	r := tasks.NewRunner(nil)

	returned := make(chan bool, 1)
	task := &countTask{}
	task.fn = func() { returned <- r.ShutdownTimeout(time.Second) }
	task.armed.Store(true)
	r.AddTask(task)

	select {
	case ok := <-returned:
		assert.False(t, ok, "runner cannot be terminated while its own task runs")
	case <-time.After(2 * time.Second):
		require.FailNow(t, "shutdown from within a task blocked")
	}

	select {
	case <-r.Done():
	case <-time.After(time.Second):
		require.FailNow(t, "runner did not terminate")
	}
	assert.True(t, r.Terminated())
}

func TestRunnerConcurrentShutdown(t *testing.T) {
	r := tasks.NewRunner(nil)

	var wg sync.WaitGroup
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Shutdown()
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		require.FailNow(t, "concurrent shutdown hung")
	}
	assert.True(t, r.Terminated())

	// Idempotent.
	assert.True(t, r.ShutdownTimeout(10*time.Millisecond))
}

func TestRunnerShutdownTimeout(t *testing.T) {
	r := tasks.NewRunner(nil)

	release := make(chan struct{})
	started := make(chan struct{})
	task := &countTask{fn: func() {
		close(started)
		<-release
	}}
	task.armed.Store(true)
	r.AddTask(task)
	<-started

	assert.False(t, r.ShutdownTimeout(20*time.Millisecond))
	assert.False(t, r.Terminated())

	close(release)
	assert.True(t, r.ShutdownTimeout(time.Second))
	assert.True(t, r.Terminated())
}

func TestRunnerTerminatesOnPanic(t *testing.T) {
	r := tasks.NewRunner(nil)

	task := &countTask{fn: func() { panic("boom") }}
	task.armed.Store(true)
	r.AddTask(task)

	select {
	case <-r.Done():
	case <-time.After(time.Second):
		require.FailNow(t, "runner did not terminate after panic")
	}
	assert.True(t, r.Terminated())
	assert.True(t, r.ShutdownTimeout(time.Second))
}

func TestRunnerWakeupAfterShutdown(t *testing.T) {
	r := tasks.NewRunner(nil)
	r.Shutdown()

	assert.NotPanics(t, func() {
		r.Wakeup()
		r.AddTask(&countTask{})
	})
}

// batchTask is picked up once and then reports more work until its batch
// is done.
type batchTask struct {
	armed atomic.Bool
	left  atomic.Int32
	fn    func()
}

func (t *batchTask) IsPending() bool { return t.armed.Load() }

func (t *batchTask) Iterate() bool {
	t.armed.Store(false)
	if t.fn != nil {
		t.fn()
	}
	return t.left.Add(-1) > 0
}

func TestRunnerDrainsTaskReportingMoreWork(t *testing.T) {
	r := tasks.NewRunner(nil)
	defer r.Shutdown()

	var order []string
	var mu sync.Mutex
	record := func(name string) func() {
		return func() {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
		}
	}

	batch := &batchTask{fn: record("batch")}
	batch.left.Store(3)
	batch.armed.Store(true)
	other := &countTask{fn: record("other")}
	other.armed.Store(true)

	r.AddTask(batch)
	r.AddTask(other)

	require.Eventually(t, func() bool { return other.runs.Load() == 1 }, time.Second, time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"batch", "batch", "batch", "other"}, order)
}

func TestRunnerShutdownStopsEndlessTask(t *testing.T) {
	r := tasks.NewRunner(nil)

	started := make(chan struct{})
	var once sync.Once
	endless := &batchTask{fn: func() { once.Do(func() { close(started) }) }}
	endless.left.Store(1 << 30)
	endless.armed.Store(true)
	r.AddTask(endless)
	<-started

	assert.True(t, r.ShutdownTimeout(time.Second))
	assert.True(t, r.Terminated())
}
