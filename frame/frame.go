// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package frame reads and writes STOMP frames.
//
// A frame on the wire is a command line, zero or more "name:value" header
// lines, a blank line, an optional body and a single NUL terminator:
//
//	COMMAND\n
//	name:value\n
//	\n
//	body\x00
//
// No header escaping is performed. Header names and values must not contain
// ':' or '\n'. A body sent without a content-length header must not contain
// a NUL byte, since the first NUL ends the frame.
package frame

import "fmt"

// Frame commands.
const (
	CONNECT     = "CONNECT"
	CONNECTED   = "CONNECTED"
	SEND        = "SEND"
	SUBSCRIBE   = "SUBSCRIBE"
	UNSUBSCRIBE = "UNSUBSCRIBE"
	ACK         = "ACK"
	BEGIN       = "BEGIN"
	COMMIT      = "COMMIT"
	ABORT       = "ABORT"
	DISCONNECT  = "DISCONNECT"
	MESSAGE     = "MESSAGE"
	RECEIPT     = "RECEIPT"
	ERROR       = "ERROR"
)

// Well-known header names.
const (
	ContentLength = "content-length"
	Receipt       = "receipt"
	ReceiptID     = "receipt-id"
	ResponseID    = "response-id"
	RequestID     = "request-id"
	Destination   = "destination"
	Message       = "message"
)

const (
	newline    = byte('\n')
	separator  = byte(':')
	terminator = byte(0)
)

// Frame is a single STOMP protocol unit. A Frame is owned by the operation
// that created it and must not be shared between goroutines.
type Frame struct {
	Command string
	Header  *Header
	Body    []byte
}

// New creates a frame with the given command and optional header
// name/value pairs.
func New(command string, kv ...string) *Frame {
	return &Frame{
		Command: command,
		Header:  NewHeader(kv...),
	}
}

// String returns a short description of the frame for logging.
func (f *Frame) String() string {
	return fmt.Sprintf("%s headers=%d body=%d", f.Command, f.Header.Len(), len(f.Body))
}
