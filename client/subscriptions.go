// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"sync"

	"github.com/absmach/stomp/commands"
)

// Subscription receives the messages dispatched to one consumer.
type Subscription struct {
	ID          *commands.ConsumerID
	Destination *commands.Destination
	AckMode     commands.AckMode

	// C delivers messages in arrival order. It is closed when the
	// subscription ends.
	C <-chan *commands.MessageDispatch

	ch        chan *commands.MessageDispatch
	done      chan struct{}
	closeOnce sync.Once
	mu        sync.Mutex // guards ch against close during delivery
	closed    bool
}

func newSubscription(info *commands.ConsumerInfo, buffer int) *Subscription {
	ch := make(chan *commands.MessageDispatch, buffer)
	return &Subscription{
		ID:          info.ConsumerID,
		Destination: info.Destination,
		AckMode:     info.AckMode,
		C:           ch,
		ch:          ch,
		done:        make(chan struct{}),
	}
}

// deliver blocks until md is queued or the subscription ends. It reports
// whether md was queued.
func (s *Subscription) deliver(md *commands.MessageDispatch) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	select {
	case s.ch <- md:
		return true
	case <-s.done:
		return false
	}
}

// close ends the subscription and closes C.
func (s *Subscription) close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.mu.Lock()
		s.closed = true
		close(s.ch)
		s.mu.Unlock()
	})
}

// subscriptionRegistry maps consumer ids to subscriptions.
type subscriptionRegistry struct {
	mu   sync.RWMutex
	subs map[string]*Subscription
}

func newSubscriptionRegistry() *subscriptionRegistry {
	return &subscriptionRegistry{
		subs: make(map[string]*Subscription),
	}
}

func (r *subscriptionRegistry) add(sub *Subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs[sub.ID.String()] = sub
}

func (r *subscriptionRegistry) get(id *commands.ConsumerID) *Subscription {
	if id == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.subs[id.String()]
}

func (r *subscriptionRegistry) remove(id *commands.ConsumerID) *Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := id.String()
	sub := r.subs[key]
	delete(r.subs, key)
	return sub
}

// drain removes and returns every subscription.
func (r *subscriptionRegistry) drain() []*Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()

	subs := make([]*Subscription, 0, len(r.subs))
	for _, sub := range r.subs {
		subs = append(subs, sub)
	}
	r.subs = make(map[string]*Subscription)
	return subs
}

func (r *subscriptionRegistry) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}
