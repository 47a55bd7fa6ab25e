// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"errors"
	"io"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WSSubprotocol is the WebSocket subprotocol offered to the broker.
const WSSubprotocol = "v10.stomp"

const closeGracePeriod = time.Second

var errUnexpectedMessage = errors.New("expected binary or text websocket message")

// wsStream presents a WebSocket connection as a byte stream. Each write is
// sent as one binary message; reads continue across message boundaries.
type wsStream struct {
	ws     *websocket.Conn
	reader io.Reader
	mu     sync.Mutex
	closed bool
}

func newWSStream(ws *websocket.Conn) *wsStream {
	return &wsStream{ws: ws}
}

func (s *wsStream) Read(p []byte) (int, error) {
	for {
		if s.reader == nil {
			messageType, r, err := s.ws.NextReader()
			if err != nil {
				return 0, err
			}
			if messageType != websocket.BinaryMessage && messageType != websocket.TextMessage {
				return 0, errUnexpectedMessage
			}
			s.reader = r
		}

		n, err := s.reader.Read(p)
		if errors.Is(err, io.EOF) {
			s.reader = nil
			if n == 0 {
				continue
			}
			err = nil
		}
		return n, err
	}
}

func (s *wsStream) Write(p []byte) (int, error) {
	if err := s.ws.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (s *wsStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = s.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGracePeriod))
	return s.ws.Close()
}
