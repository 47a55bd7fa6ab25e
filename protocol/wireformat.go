// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package protocol translates typed commands to and from STOMP frames.
package protocol

import (
	"fmt"
	"log/slog"

	"github.com/absmach/stomp/commands"
	"github.com/absmach/stomp/frame"
)

// Responder receives the synthetic responses produced for commands that
// have no wire form but ask for a reply.
type Responder func(commands.Command)

// WireFormat is the translator between commands and frames. Configure it
// with SetResponder and SetMapCodec before it is used concurrently.
type WireFormat struct {
	logger    *slog.Logger
	mapCodec  MapCodec
	responder Responder
}

// NewWireFormat creates a WireFormat using XMLMapCodec for map bodies.
func NewWireFormat(logger *slog.Logger) *WireFormat {
	if logger == nil {
		logger = slog.Default()
	}
	return &WireFormat{
		logger:   logger,
		mapCodec: XMLMapCodec{},
	}
}

// SetResponder sets the receiver of synthetic responses.
func (wf *WireFormat) SetResponder(r Responder) {
	wf.responder = r
}

// SetMapCodec replaces the codec used for map bodies.
func (wf *WireFormat) SetMapCodec(c MapCodec) {
	wf.mapCodec = c
}

// MapCodec returns the codec used for map bodies.
func (wf *WireFormat) MapCodec() MapCodec {
	return wf.mapCodec
}

// Marshal writes cmd to w and returns the number of bytes written. Commands
// without a wire form write nothing; if they ask for a reply, a Response
// correlated to their id is handed to the responder instead.
func (wf *WireFormat) Marshal(cmd commands.Command, w *frame.Writer) (int, error) {
	enc := encoder{wf: wf}
	if err := cmd.Visit(&enc); err != nil {
		return 0, err
	}

	switch {
	case enc.heartbeat:
		return w.WriteHeartbeat()
	case enc.frame != nil:
		wf.logger.Debug("marshaling frame", slog.String("frame", enc.frame.String()))
		return w.Write(enc.frame)
	}

	if cmd.ResponseRequired() {
		wf.respond(cmd)
	} else {
		wf.logger.Debug("command has no wire form", slog.String("command", fmt.Sprintf("%T", cmd)))
	}
	return 0, nil
}

// ToFrame builds the frame for cmd. It returns nil for commands without a
// wire form and for heartbeats. Synthetic responses are not produced.
func (wf *WireFormat) ToFrame(cmd commands.Command) (*frame.Frame, error) {
	enc := encoder{wf: wf}
	if err := cmd.Visit(&enc); err != nil {
		return nil, err
	}
	return enc.frame, nil
}

// Unmarshal reads the next frame from r and translates it. A nil command
// with a nil error means the frame carried nothing for the caller.
func (wf *WireFormat) Unmarshal(r *frame.Reader) (commands.Command, error) {
	f, err := r.Read()
	if err != nil {
		return nil, err
	}
	return wf.FromFrame(f)
}

func (wf *WireFormat) respond(cmd commands.Command) {
	if wf.responder == nil {
		wf.logger.Error("no responder configured, dropping synthetic response",
			slog.String("command", fmt.Sprintf("%T", cmd)),
			slog.Int("command_id", int(cmd.CommandID())))
		return
	}
	wf.logger.Debug("responding to command without wire form",
		slog.String("command", fmt.Sprintf("%T", cmd)),
		slog.Int("command_id", int(cmd.CommandID())))
	wf.responder(&commands.Response{CorrelationID: cmd.CommandID()})
}
