// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package transport

import "errors"

// Transport errors.
var (
	ErrInactive           = errors.New("channel was inactive for too long")
	ErrTransportStopped   = errors.New("transport stopped")
	ErrAlreadyStarted     = errors.New("transport already started")
	ErrRequestTimeout     = errors.New("request timed out")
	ErrRequestUnsupported = errors.New("transport does not correlate requests")
	ErrUnsupportedScheme  = errors.New("unsupported broker URL scheme")
	ErrNoBrokers          = errors.New("no broker URLs configured")
)
