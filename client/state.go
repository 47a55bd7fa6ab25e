// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package client

import "sync/atomic"

// State represents the connection state.
type State uint32

// Connection states.
const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateDisconnecting
	StateClosed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnecting:
		return "disconnecting"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// stateManager handles atomic state transitions.
type stateManager struct {
	state atomic.Uint32
}

func newStateManager() *stateManager {
	return &stateManager{}
}

func (sm *stateManager) get() State {
	return State(sm.state.Load())
}

func (sm *stateManager) set(s State) {
	sm.state.Store(uint32(s))
}

// transition moves from one state to another. It reports whether the
// current state was from.
func (sm *stateManager) transition(from, to State) bool {
	return sm.state.CompareAndSwap(uint32(from), uint32(to))
}

// transitionFrom moves to the given state from any of the listed ones.
func (sm *stateManager) transitionFrom(to State, from ...State) bool {
	for _, f := range from {
		if sm.transition(f, to) {
			return true
		}
	}
	return false
}

func (sm *stateManager) isConnected() bool {
	return sm.get() == StateConnected
}

func (sm *stateManager) isClosed() bool {
	return sm.get() == StateClosed
}
