// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package frame

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
)

const bufferSize = 4096

// DefaultMaxBodySize is the largest content-length body a Reader accepts
// unless SetMaxBodySize changes it.
const DefaultMaxBodySize = 64 << 20

// Reader reads frames from a buffered byte stream.
type Reader struct {
	reader  *bufio.Reader
	logger  *slog.Logger
	maxBody int64
}

// NewReader creates a Reader on top of r.
func NewReader(r io.Reader, logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reader{
		reader:  bufio.NewReaderSize(r, bufferSize),
		logger:  logger,
		maxBody: DefaultMaxBodySize,
	}
}

// SetMaxBodySize limits the content-length a frame may declare. A value
// of zero or less restores DefaultMaxBodySize.
func (r *Reader) SetMaxBodySize(n int64) {
	if n <= 0 {
		n = DefaultMaxBodySize
	}
	r.maxBody = n
}

// Read blocks until a complete frame has been read. Blank lines before the
// command are skipped. Malformed header lines and a missing terminator after
// a content-length body are logged and tolerated.
func (r *Reader) Read() (*Frame, error) {
	var command string
	for command == "" {
		line, err := r.readLine()
		if err != nil {
			return nil, err
		}
		command = line
	}

	f := New(command)
	if err := r.readHeaders(f); err != nil {
		return nil, err
	}
	if err := r.readBody(f); err != nil {
		return nil, err
	}

	return f, nil
}

func (r *Reader) readHeaders(f *Frame) error {
	for {
		line, err := r.readLine()
		if err != nil {
			return err
		}
		if line == "" {
			return nil
		}

		idx := strings.IndexByte(line, separator)
		if idx <= 0 {
			r.logger.Debug("malformed frame header", slog.String("command", f.Command), slog.String("line", line))
			continue
		}

		// Later duplicates of a header are dropped.
		f.Header.Add(line[:idx], line[idx+1:])
	}
}

func (r *Reader) readBody(f *Frame) error {
	if text, ok := f.Header.Get(ContentLength); ok {
		size, err := strconv.ParseInt(text, 10, 32)
		if err != nil || size < 0 {
			return fmt.Errorf("%w: %q", ErrInvalidContentLength, text)
		}
		if size > r.maxBody {
			return fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrBodyTooLarge, size, r.maxBody)
		}

		f.Body = make([]byte, size)
		if _, err := io.ReadFull(r.reader, f.Body); err != nil {
			return fmt.Errorf("%w: %v", ErrTransportClosed, err)
		}

		if b, err := r.reader.ReadByte(); err != nil || b != terminator {
			r.logger.Debug("invalid frame, no trailing NUL", slog.String("command", f.Command))
		}
		return nil
	}

	body, err := r.reader.ReadBytes(terminator)
	switch {
	case err == nil:
		body = body[:len(body)-1]
	case errors.Is(err, io.EOF):
		r.logger.Debug("stream ended before frame terminator", slog.String("command", f.Command))
	default:
		return fmt.Errorf("%w: %v", ErrTransportClosed, err)
	}
	if len(body) > 0 {
		f.Body = body
	}

	return nil
}

func (r *Reader) readLine() (string, error) {
	line, err := r.reader.ReadBytes(newline)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTransportClosed, err)
	}
	return string(line[:len(line)-1]), nil
}
