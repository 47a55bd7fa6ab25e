// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package frame

import "errors"

// Frame errors.
var (
	// ErrTransportClosed is returned when the stream ends while a frame line
	// is being read.
	ErrTransportClosed = errors.New("peer closed the stream")

	// ErrInvalidContentLength is returned when the content-length header
	// is not a non-negative 32-bit integer.
	ErrInvalidContentLength = errors.New("invalid content-length header")

	// ErrBodyTooLarge is returned when content-length exceeds the reader's
	// body size limit.
	ErrBodyTooLarge = errors.New("frame body too large")
)
