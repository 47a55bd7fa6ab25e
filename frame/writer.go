// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package frame

import (
	"io"

	"github.com/absmach/stomp/internal/bufpool"
)

var heartbeat = []byte{newline}

// Writer writes frames to an underlying io.Writer. Each frame is serialized
// into a buffer first and handed to the underlying writer in a single call.
// Writer is not safe for concurrent use.
type Writer struct {
	w io.Writer
}

// NewWriter creates a Writer on top of w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Write serializes f and returns the number of bytes written.
func (w *Writer) Write(f *Frame) (int, error) {
	buf := bufpool.Get()
	defer bufpool.Put(buf)

	buf.WriteString(f.Command)
	buf.WriteByte(newline)
	if f.Header != nil {
		f.Header.Range(func(name, value string) bool {
			buf.WriteString(name)
			buf.WriteByte(separator)
			buf.WriteString(value)
			buf.WriteByte(newline)
			return true
		})
	}
	buf.WriteByte(newline)
	if f.Body != nil {
		buf.Write(f.Body)
	}
	buf.WriteByte(terminator)

	return w.w.Write(buf.Bytes())
}

// WriteHeartbeat writes a single end-of-line byte. Readers skip blank lines
// before a command, so the byte never starts a frame.
func (w *Writer) WriteHeartbeat() (int, error) {
	return w.w.Write(heartbeat)
}
