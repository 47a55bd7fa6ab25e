// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package ratelimit throttles outbound sends.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DestinationRateLimiter limits sends per destination.
// Limiters of destinations not used for two cleanup intervals are dropped.
type DestinationRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*destEntry
	rate     rate.Limit
	burst    int
	cleanup  time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

type destEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewDestinationRateLimiter creates a new destination-based rate limiter.
// r is sends per second, burst is the burst allowance.
func NewDestinationRateLimiter(r float64, burst int, cleanupInterval time.Duration) *DestinationRateLimiter {
	if cleanupInterval <= 0 {
		cleanupInterval = 5 * time.Minute
	}
	l := &DestinationRateLimiter{
		limiters: make(map[string]*destEntry),
		rate:     rate.Limit(r),
		burst:    burst,
		cleanup:  cleanupInterval,
		stopCh:   make(chan struct{}),
	}
	go l.cleanupLoop()
	return l
}

func (l *DestinationRateLimiter) get(destination string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, exists := l.limiters[destination]
	if !exists {
		entry = &destEntry{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.limiters[destination] = entry
	}
	entry.lastSeen = time.Now()
	return entry.limiter
}

// Allow reports whether a send to destination is allowed now.
func (l *DestinationRateLimiter) Allow(destination string) bool {
	return l.get(destination).Allow()
}

// Wait blocks until a send to destination is allowed or ctx is done.
func (l *DestinationRateLimiter) Wait(ctx context.Context, destination string) error {
	return l.get(destination).Wait(ctx)
}

// Len returns the number of tracked destinations.
func (l *DestinationRateLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

func (l *DestinationRateLimiter) cleanupLoop() {
	ticker := time.NewTicker(l.cleanup)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.cleanupStale(time.Now())
		case <-l.stopCh:
			return
		}
	}
}

func (l *DestinationRateLimiter) cleanupStale(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	threshold := now.Add(-l.cleanup * 2)
	for dest, entry := range l.limiters {
		if entry.lastSeen.Before(threshold) {
			delete(l.limiters, dest)
		}
	}
}

// Stop stops the cleanup goroutine.
func (l *DestinationRateLimiter) Stop() {
	l.stopOnce.Do(func() { close(l.stopCh) })
}

// Config holds send rate limiting configuration.
type Config struct {
	Rate             float64       // sends per second on the connection, 0 = unlimited
	Burst            int           // burst allowance
	DestinationRate  float64       // sends per second per destination, 0 = unlimited
	DestinationBurst int           // burst allowance per destination
	CleanupInterval  time.Duration // cleanup interval for idle destinations
}

// SendLimiter combines a connection-wide limit with per-destination limits.
// A nil *SendLimiter allows everything.
type SendLimiter struct {
	conn  *rate.Limiter
	dests *DestinationRateLimiter
}

// NewSendLimiter creates a SendLimiter. It returns nil when both limits are
// disabled.
func NewSendLimiter(cfg Config) *SendLimiter {
	if cfg.Rate <= 0 && cfg.DestinationRate <= 0 {
		return nil
	}

	l := &SendLimiter{}
	if cfg.Rate > 0 {
		l.conn = rate.NewLimiter(rate.Limit(cfg.Rate), max(cfg.Burst, 1))
	}
	if cfg.DestinationRate > 0 {
		l.dests = NewDestinationRateLimiter(cfg.DestinationRate, max(cfg.DestinationBurst, 1), cfg.CleanupInterval)
	}
	return l
}

// Allow reports whether a send to destination is allowed now. The
// connection-wide token is only taken when the destination allows the send.
func (l *SendLimiter) Allow(destination string) bool {
	if l == nil {
		return true
	}
	if l.dests != nil && !l.dests.Allow(destination) {
		return false
	}
	return l.conn == nil || l.conn.Allow()
}

// Wait blocks until a send to destination is allowed or ctx is done.
func (l *SendLimiter) Wait(ctx context.Context, destination string) error {
	if l == nil {
		return nil
	}
	if l.dests != nil {
		if err := l.dests.Wait(ctx, destination); err != nil {
			return err
		}
	}
	if l.conn != nil {
		return l.conn.Wait(ctx)
	}
	return nil
}

// Stop releases background resources.
func (l *SendLimiter) Stop() {
	if l == nil || l.dests == nil {
		return
	}
	l.dests.Stop()
}
