// Copyright 2025 The Zocket Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package zocket

import (
	"context"
	"fmt"
)

// Dispatch is a pending outbound send: the payload is fixed, the targets are
// not. Exactly one terminal call — [Dispatch.To], [Dispatch.ToRoom] or
// [Dispatch.Broadcast] — delivers it.
//
// Send failures on one recipient never affect delivery to others; they are
// logged, surfaced to the error handler, and delivery continues. The only
// errors a terminal returns are emit-time errors: an unknown route, an
// incoming route, or a payload the outgoing schema rejected.
type Dispatch struct {
	server *Server
	route  string
	data   []byte // encoded frame, ready for every recipient
	err    error
}

// Emit starts an outbound send of the named outgoing procedure. It resolves
// the route in the dispatch table, coerces the payload through the
// procedure's output schema and encodes the frame once; the returned
// [*Dispatch] then targets any set of recipients.
//
// Emit is valid outside any request — this is the server-initiated push
// path. Broadcasting before any connection has opened is a no-op.
//
//	server.Emit("news.onPublished", article).Broadcast()
func (s *Server) Emit(route string, payload any) *Dispatch {
	p, ok := s.procs[route]
	if !ok {
		return &Dispatch{server: s, route: route, err: fmt.Errorf("%w: %q", ErrUnknownRoute, route)}
	}
	if p.direction != DirectionOut {
		return &Dispatch{server: s, route: route, err: fmt.Errorf("%w: %q", ErrNotOutgoing, route)}
	}

	if p.schema != nil {
		coerced, err := p.schema.Validate(context.Background(), payload)
		if err != nil {
			return &Dispatch{server: s, route: route, err: fmt.Errorf("outgoing payload for %q: %w", route, err)}
		}
		payload = coerced
	}

	data, err := encodeFrame(route, payload, "")
	if err != nil {
		return &Dispatch{server: s, route: route, err: fmt.Errorf("encode %q: %w", route, err)}
	}
	return &Dispatch{server: s, route: route, data: data}
}

// Emit resolves the ambient request scope carried by ctx and emits through
// it. It lets helpers declared far from any handler send events for the
// current request; outside a request scope the returned Dispatch fails with
// [ErrNoRequestContext].
func Emit(ctx context.Context, route string, payload any) *Dispatch {
	c, ok := RequestContext(ctx)
	if !ok {
		return &Dispatch{route: route, err: ErrNoRequestContext}
	}
	return c.Emit(route, payload)
}

// To delivers to each listed client. Ids that are not currently connected
// are silently skipped.
func (d *Dispatch) To(clientIDs ...string) error {
	if d.err != nil {
		d.fail()
		return d.err
	}
	for _, id := range clientIDs {
		d.server.mu.RLock()
		c, ok := d.server.conns[id]
		d.server.mu.RUnlock()
		if !ok {
			continue
		}
		d.server.sendTo(c, d.route, d.data)
	}
	return nil
}

// ToRoom delivers to every member of every listed room via the transport
// adapter's pub/sub fabric. Without a [Publisher] this logs a warning and
// delivers nothing.
func (d *Dispatch) ToRoom(rooms ...string) error {
	if d.err != nil {
		d.fail()
		return d.err
	}
	for _, room := range rooms {
		if err := d.server.publish(d.route, room, d.data); err != nil {
			return err
		}
	}
	return nil
}

// Broadcast delivers to every live connection.
func (d *Dispatch) Broadcast() error {
	if d.err != nil {
		d.fail()
		return d.err
	}
	d.server.mu.RLock()
	targets := make([]*conn, 0, len(d.server.conns))
	for _, c := range d.server.conns {
		targets = append(targets, c)
	}
	d.server.mu.RUnlock()

	for _, c := range targets {
		d.server.sendTo(c, d.route, d.data)
	}
	return nil
}

func (d *Dispatch) fail() {
	if d.server != nil {
		d.server.logger.Warn("emit failed", "route", d.route, "error", d.err)
	}
}

// sendTo writes one frame to one connection. A failure is scoped to that
// recipient: it is logged, counted and surfaced to the error handler, and
// the caller continues with the remaining recipients.
func (s *Server) sendTo(c *conn, route string, data []byte) {
	if c.failed.Load() {
		return
	}
	if err := c.sink.Send(data); err != nil {
		s.logger.Warn("send failed", "client_id", c.id, "route", route, "error", err)
		if s.recorder != nil {
			s.recorder.SendFailed(route)
		}
		if s.errorHandler != nil {
			s.errorHandler(c.id, err)
		}
	}
}

// publish fans a frame out to a room through the adapter's Publisher. No
// Publisher means no delivery: falling back to member iteration would
// silently void the performance contract of room sends, so the gap is made
// observable instead.
func (s *Server) publish(route, room string, data []byte) error {
	if s.publisher == nil {
		s.logger.Warn("room send dropped: transport adapter provides no publisher", "route", route, "room", room)
		return nil
	}
	if err := s.publisher.Publish(room, data); err != nil {
		s.logger.Warn("room publish failed", "route", route, "room", room, "error", err)
		if s.recorder != nil {
			s.recorder.SendFailed(route)
		}
		return err
	}
	return nil
}
