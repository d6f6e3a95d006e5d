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
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
)

// Rooms is the per-connection room handle exposed to handlers via
// [Context.Rooms]. A room is a named topic: it exists while at least one
// connection is subscribed and has no state beyond membership.
type Rooms struct {
	server *Server
	conn   *conn
}

// Join subscribes the connection to a room. Joining a room the connection is
// already in is a no-op.
func (r *Rooms) Join(room string) error {
	if !r.conn.subs.Add(room) {
		return nil
	}
	r.server.addMember(room, r.conn.id)
	if err := r.conn.sink.Subscribe(room); err != nil {
		r.server.logger.Warn("room subscribe failed", "client_id", r.conn.id, "room", room, "error", err)
		return err
	}
	return nil
}

// Leave unsubscribes the connection from a room. Leaving a room the
// connection is not in is a no-op.
func (r *Rooms) Leave(room string) error {
	if !r.conn.subs.Contains(room) {
		return nil
	}
	r.conn.subs.Remove(room)
	r.server.removeMember(room, r.conn.id)
	if err := r.conn.sink.Unsubscribe(room); err != nil {
		r.server.logger.Warn("room unsubscribe failed", "client_id", r.conn.id, "room", room, "error", err)
		return err
	}
	return nil
}

// Broadcast sends an event to every member of a room by its dotted wire
// path, bypassing the typed sender. The route is not resolved against the
// dispatch table, which makes it the escape hatch for dynamic room-scoped
// events; the payload is encoded as given.
func (r *Rooms) Broadcast(room, route string, payload any) error {
	data, err := encodeFrame(route, payload, "")
	if err != nil {
		r.server.logger.Warn("room broadcast encode failed", "room", room, "route", route, "error", err)
		return err
	}
	return r.server.publish(route, room, data)
}

// Current returns the connection's room subscriptions, sorted.
func (r *Rooms) Current() []string {
	return r.conn.roomSnapshot()
}

// Has reports whether the connection is subscribed to a room.
func (r *Rooms) Has(room string) bool {
	return r.conn.subs.Contains(room)
}

// addMember records a connection in the server's room index. Empty rooms are
// never materialised: the set is created on first join and dropped on last
// leave.
func (s *Server) addMember(room, clientID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	members, ok := s.rooms[room]
	if !ok {
		members = mapset.NewThreadUnsafeSet[string]()
		s.rooms[room] = members
	}
	members.Add(clientID)
}

// removeMember removes a connection from the server's room index.
func (s *Server) removeMember(room, clientID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	members, ok := s.rooms[room]
	if !ok {
		return
	}
	members.Remove(clientID)
	if members.Cardinality() == 0 {
		delete(s.rooms, room)
	}
}

// RoomMembers returns the client ids currently subscribed to a room, sorted.
// The index is bookkeeping for introspection and tests; room delivery goes
// through the transport adapter's [Publisher], not through this index.
func (s *Server) RoomMembers(room string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	members, ok := s.rooms[room]
	if !ok {
		return nil
	}
	ids := members.ToSlice()
	sort.Strings(ids)
	return ids
}
