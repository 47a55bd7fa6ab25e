// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package goid identifies the calling goroutine.
package goid

import (
	"bytes"
	"runtime"
	"strconv"
)

var prefix = []byte("goroutine ")

// Current returns the id of the calling goroutine, or 0 if it cannot be
// determined. The id is taken from the first line of the goroutine's stack
// trace, "goroutine N [running]:".
func Current() uint64 {
	var buf [64]byte
	b := buf[:runtime.Stack(buf[:], false)]
	b = bytes.TrimPrefix(b, prefix)
	if i := bytes.IndexByte(b, ' '); i > 0 {
		b = b[:i]
	}
	id, err := strconv.ParseUint(string(b), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
