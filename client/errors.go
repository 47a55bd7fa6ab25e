// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package client

import "errors"

// Client errors.
var (
	// Configuration errors.
	ErrNoBrokers = errors.New("no broker URLs configured")

	// Connection errors.
	ErrNotConnected     = errors.New("client not connected")
	ErrAlreadyConnected = errors.New("client already connected")
	ErrConnectFailed    = errors.New("connection failed")
	ErrConnectionLost   = errors.New("connection lost")
	ErrClientClosed     = errors.New("client has been closed")

	// Operation errors.
	ErrNoDestination       = errors.New("destination required")
	ErrNilMessage          = errors.New("message required")
	ErrUnknownSubscription = errors.New("unknown subscription")
	ErrNoTransaction       = errors.New("no transaction in progress")
	ErrTransactionActive   = errors.New("transaction already in progress")
	ErrAckNotRequired      = errors.New("subscription acknowledges automatically")
)
