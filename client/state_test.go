// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateDisconnected, "disconnected"},
		{StateConnecting, "connecting"},
		{StateConnected, "connected"},
		{StateDisconnecting, "disconnecting"},
		{StateClosed, "closed"},
		{State(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %s, want %s", tt.state, got, tt.want)
		}
	}
}

func TestStateTransition(t *testing.T) {
	sm := newStateManager()
	if sm.get() != StateDisconnected {
		t.Fatalf("initial state should be Disconnected, got %v", sm.get())
	}

	if !sm.transition(StateDisconnected, StateConnecting) {
		t.Error("transition Disconnected -> Connecting should succeed")
	}
	if sm.transition(StateDisconnected, StateConnected) {
		t.Error("transition from wrong state should fail")
	}
	if sm.get() != StateConnecting {
		t.Errorf("state should still be Connecting, got %v", sm.get())
	}

	if !sm.transitionFrom(StateClosed, StateConnected, StateConnecting) {
		t.Error("transitionFrom should succeed when one of the from states matches")
	}
	if !sm.isClosed() {
		t.Error("isClosed should be true when closed")
	}
	if sm.transitionFrom(StateConnecting, StateDisconnected, StateConnected) {
		t.Error("transitionFrom should fail when no from state matches")
	}
}

func TestStateSingleWinner(t *testing.T) {
	sm := newStateManager()
	sm.set(StateConnected)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if sm.transition(StateConnected, StateDisconnected) {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	if wins.Load() != 1 {
		t.Errorf("exactly one transition should win, got %d", wins.Load())
	}
	if sm.isConnected() {
		t.Error("isConnected should be false after the transition")
	}
}
