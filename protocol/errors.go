// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package protocol

import "errors"

// Translation errors.
var (
	// ErrDecode wraps a header value that could not be parsed into its
	// typed field. No command is produced for the frame.
	ErrDecode = errors.New("failed to decode frame")

	// ErrResponseRequired is returned when a shutdown command asks for a
	// reply. The broker closes the connection instead of replying.
	ErrResponseRequired = errors.New("shutdown must not require a response")

	// ErrNoMapCodec is returned when a map message is marshaled without a
	// map codec configured.
	ErrNoMapCodec = errors.New("no map codec configured")
)

// Map codec errors.
var (
	ErrNilMapValue      = errors.New("map values must not be nil")
	ErrNestedMapValue   = errors.New("nested maps and lists are not supported")
	ErrUnsupportedValue = errors.New("map value is not a primitive")
	ErrInvalidMapEntry  = errors.New("invalid map entry")
)
