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
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChiChuRita/zocket/schema"
)

type roomInput struct {
	Room string `json:"room" validate:"required"`
}

func roomRouter() *Router {
	r := NewRouter()
	rooms := r.Group("rooms")
	rooms.In("join", schema.Struct[roomInput](), func(c *Context) (any, error) {
		if err := c.Rooms().Join(c.Input().(roomInput).Room); err != nil {
			return nil, err
		}
		return c.Rooms().Current(), nil
	})
	rooms.In("leave", schema.Struct[roomInput](), func(c *Context) (any, error) {
		if err := c.Rooms().Leave(c.Input().(roomInput).Room); err != nil {
			return nil, err
		}
		return c.Rooms().Current(), nil
	})
	rooms.Out("onEvent", schema.Any())
	return r
}

func joinRoom(t *testing.T, s *Server, sink *fakeSink, id, room string) {
	t.Helper()
	before := sink.frameCount()
	sendFrame(t, s, id, "rooms.join", roomInput{Room: room}, "join-"+room)
	waitFor(t, func() bool { return sink.frameCount() > before })
}

func TestRoomJoinIsIdempotent(t *testing.T) {
	t.Parallel()

	s := MustNew(roomRouter())
	sink, id := openConn(t, s, "")

	joinRoom(t, s, sink, id, "lobby")
	joinRoom(t, s, sink, id, "lobby")

	reply := sink.frame(t, 1)
	assert.Equal(t, []any{"lobby"}, reply.Payload, "double join leaves a single membership")
	assert.Equal(t, []string{id}, s.RoomMembers("lobby"))
	assert.Equal(t, 1, sink.subscribeCount("lobby"), "the sink subscribes once, not twice")
}

func TestRoomLeaveNotMemberIsNoop(t *testing.T) {
	t.Parallel()

	s := MustNew(roomRouter())
	sink, id := openConn(t, s, "")

	sendFrame(t, s, id, "rooms.leave", roomInput{Room: "ghost"}, "r1")
	waitFor(t, func() bool { return sink.frameCount() == 1 })

	assert.Nil(t, s.RoomMembers("ghost"))
	sink.mu.Lock()
	unsubs := sink.unsubs["ghost"]
	sink.mu.Unlock()
	assert.Zero(t, unsubs)
}

func TestRoomJoinAndLeave(t *testing.T) {
	t.Parallel()

	s := MustNew(roomRouter())
	sink, id := openConn(t, s, "")

	joinRoom(t, s, sink, id, "a")
	joinRoom(t, s, sink, id, "b")
	assert.Equal(t, []string{id}, s.RoomMembers("a"))
	assert.Equal(t, []string{id}, s.RoomMembers("b"))

	sendFrame(t, s, id, "rooms.leave", roomInput{Room: "a"}, "r1")
	waitFor(t, func() bool { return sink.frameCount() == 3 })

	assert.Equal(t, []any{"b"}, sink.frame(t, 2).Payload)
	assert.Nil(t, s.RoomMembers("a"), "empty rooms are dropped from the index")
	assert.Equal(t, []string{id}, s.RoomMembers("b"))
}

func TestRoomDisconnectCleansUp(t *testing.T) {
	t.Parallel()

	var (
		mu       sync.Mutex
		snapshot []string
	)
	s := MustNew(roomRouter(), WithDisconnect(func(ctx context.Context, d Disconnect) error {
		mu.Lock()
		snapshot = d.Rooms
		mu.Unlock()
		return nil
	}))
	sink, id := openConn(t, s, "")

	joinRoom(t, s, sink, id, "r2")
	joinRoom(t, s, sink, id, "r1")

	closeConn(t, s, id)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"r1", "r2"}, snapshot, "the disconnect callback sees the final rooms, sorted")
	assert.Nil(t, s.RoomMembers("r1"))
	assert.Nil(t, s.RoomMembers("r2"))

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Equal(t, 1, sink.unsubs["r1"])
	assert.Equal(t, 1, sink.unsubs["r2"])
}

func TestRoomMembersAcrossConnections(t *testing.T) {
	t.Parallel()

	s := MustNew(roomRouter())
	sinkA, idA := openConn(t, s, "")
	sinkB, idB := openConn(t, s, "")

	joinRoom(t, s, sinkA, idA, "shared")
	joinRoom(t, s, sinkB, idB, "shared")

	members := s.RoomMembers("shared")
	assert.ElementsMatch(t, []string{idA, idB}, members)
	assert.IsIncreasing(t, members)

	closeConn(t, s, idA)
	assert.Equal(t, []string{idB}, s.RoomMembers("shared"))
}

func TestToRoomDelegatesToPublisher(t *testing.T) {
	t.Parallel()

	s := MustNew(roomRouter())
	pub := &fakePublisher{}
	s.SetPublisher(pub)

	require.NoError(t, s.Emit("rooms.onEvent", "hello").ToRoom("lobby", "hall"))

	calls := pub.calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "lobby", calls[0].topic)
	assert.Equal(t, "hall", calls[1].topic)
	assert.JSONEq(t, `{"type":"rooms.onEvent","payload":"hello"}`, string(calls[0].data))
}

func TestToRoomWithoutPublisherIsNoop(t *testing.T) {
	t.Parallel()

	s := MustNew(roomRouter())
	sink, id := openConn(t, s, "")

	joinRoom(t, s, sink, id, "lobby")
	before := sink.frameCount()

	assert.NoError(t, s.Emit("rooms.onEvent", "lost").ToRoom("lobby"))
	settle()
	assert.Equal(t, before, sink.frameCount(), "no publisher means no delivery, not a member-iteration fallback")
}

func TestRoomDynamicBroadcast(t *testing.T) {
	t.Parallel()

	pub := &fakePublisher{}
	r := NewRouter()
	g := r.Group("g")
	g.In("shout", schema.Any(), func(c *Context) (any, error) {
		return nil, c.Rooms().Broadcast("lobby", "custom.event", map[string]any{"n": 1})
	})

	s := MustNew(r)
	s.SetPublisher(pub)
	_, id := openConn(t, s, "")

	sendFrame(t, s, id, "g.shout", nil, "")
	waitFor(t, func() bool { return len(pub.calls()) == 1 })

	call := pub.calls()[0]
	assert.Equal(t, "lobby", call.topic)
	assert.JSONEq(t, `{"type":"custom.event","payload":{"n":1}}`, string(call.data))
}

func TestRoomHas(t *testing.T) {
	t.Parallel()

	r := NewRouter()
	g := r.Group("g")
	g.In("check", schema.Any(), func(c *Context) (any, error) {
		if err := c.Rooms().Join("here"); err != nil {
			return nil, err
		}
		return []bool{c.Rooms().Has("here"), c.Rooms().Has("elsewhere")}, nil
	})

	s := MustNew(r)
	sink, id := openConn(t, s, "")

	sendFrame(t, s, id, "g.check", nil, "r1")
	waitFor(t, func() bool { return sink.frameCount() == 1 })
	assert.Equal(t, []any{true, false}, sink.frame(t, 0).Payload)
}
