// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package bufpool pools the scratch buffers frames are serialized into.
package bufpool

import (
	"bytes"
	"sync"
)

// Frames with large bodies are serialized into fresh buffers; only buffers
// up to this capacity go back to the pool.
const maxPooledCap = 64 * 1024

// Initial capacity: command line plus a typical SEND header block.
const initialCap = 512

var pool = sync.Pool{New: func() any {
	return bytes.NewBuffer(make([]byte, 0, initialCap))
}}

// Get returns an empty buffer.
func Get() *bytes.Buffer {
	b := pool.Get().(*bytes.Buffer)
	b.Reset()
	return b
}

// Put returns b to the pool. Oversized buffers are dropped.
func Put(b *bytes.Buffer) {
	if b == nil || b.Cap() > maxPooledCap {
		return
	}
	pool.Put(b)
}
