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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChiChuRita/zocket/schema"
)

func nopHandler(c *Context) (any, error) { return nil, nil }

func TestRouterFlattensNestedGroups(t *testing.T) {
	t.Parallel()

	r := NewRouter()
	r.In("ping", schema.Any(), nopHandler)
	chat := r.Group("chat")
	chat.In("send", schema.Any(), nopHandler)
	chat.Out("onMessage", schema.Any())
	admin := chat.Group("admin")
	admin.In("kick", schema.Any(), nopHandler)

	s, err := New(r)
	require.NoError(t, err)

	routes := s.Routes()
	require.Len(t, routes, 4)
	assert.Equal(t, []RouteInfo{
		{Route: "chat.admin.kick", Direction: DirectionIn},
		{Route: "chat.onMessage", Direction: DirectionOut},
		{Route: "chat.send", Direction: DirectionIn},
		{Route: "ping", Direction: DirectionIn},
	}, routes)
}

func TestRouterRejectsDuplicateRoute(t *testing.T) {
	t.Parallel()

	r := NewRouter()
	chat := r.Group("chat")
	chat.In("send", schema.Any(), nopHandler)
	chat.In("send", schema.Any(), nopHandler)

	_, err := New(r)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateRoute)
}

func TestRouterRejectsDuplicateAcrossDirections(t *testing.T) {
	t.Parallel()

	r := NewRouter()
	chat := r.Group("chat")
	chat.In("update", schema.Any(), nopHandler)
	chat.Out("update", schema.Any())

	_, err := New(r)
	assert.ErrorIs(t, err, ErrDuplicateRoute)
}

func TestRouterRejectsReservedSegment(t *testing.T) {
	t.Parallel()

	r := NewRouter()
	r.In(RPCResponseType, schema.Any(), nopHandler)

	_, err := New(r)
	assert.ErrorIs(t, err, ErrReservedSegment)
}

func TestRouterRejectsReservedNestedSegment(t *testing.T) {
	t.Parallel()

	r := NewRouter()
	g := r.Group(RPCResponseType)
	g.In("ping", schema.Any(), nopHandler)

	_, err := New(r)
	assert.ErrorIs(t, err, ErrReservedSegment)
}

func TestRouterRejectsEmptySegment(t *testing.T) {
	t.Parallel()

	r := NewRouter()
	g := r.Group("")
	g.In("ping", schema.Any(), nopHandler)

	_, err := New(r)
	assert.ErrorIs(t, err, ErrInvalidSegment)
}

func TestRouterRejectsMissingHandler(t *testing.T) {
	t.Parallel()

	r := NewRouter()
	r.In("ping", schema.Any(), nil)

	_, err := New(r)
	assert.ErrorIs(t, err, ErrMissingHandler)
}

func TestRouterBindAttachesHandler(t *testing.T) {
	t.Parallel()

	r := NewRouter()
	chat := r.Group("chat")
	chat.In("send", schema.Any(), nil)
	r.Bind("chat.send", nopHandler)

	_, err := New(r)
	assert.NoError(t, err)
}

func TestRouterBindUnknownRoute(t *testing.T) {
	t.Parallel()

	r := NewRouter()
	r.In("ping", schema.Any(), nopHandler)
	r.Bind("pong", nopHandler)

	_, err := New(r)
	assert.ErrorIs(t, err, ErrBindUnknownRoute)
}

func TestRouterBindOnOutgoingRoute(t *testing.T) {
	t.Parallel()

	r := NewRouter()
	chat := r.Group("chat")
	chat.Out("onMessage", schema.Any())
	r.Bind("chat.onMessage", nopHandler)

	_, err := New(r)
	assert.ErrorIs(t, err, ErrHandlerOnOutgoing)
}

func TestRouterBindConflictsWithColocatedHandler(t *testing.T) {
	t.Parallel()

	r := NewRouter()
	r.In("ping", schema.Any(), nopHandler)
	r.Bind("ping", nopHandler)

	_, err := New(r)
	assert.ErrorIs(t, err, ErrDuplicateRoute)
}

func TestGroupMiddlewareOrder(t *testing.T) {
	t.Parallel()

	var order []string
	mw := func(name string) MiddlewareFunc {
		return func(c *Context) error {
			order = append(order, name)
			return nil
		}
	}

	r := NewRouter()
	outer := r.Group("outer", mw("outer"))
	inner := outer.Group("inner", mw("inner"))
	inner.In("op", schema.Any(), nopHandler, mw("proc"))

	s, err := New(r)
	require.NoError(t, err)

	sink, id := openConn(t, s, "")
	sendFrame(t, s, id, "outer.inner.op", nil, "r1")
	waitFor(t, func() bool { return sink.frameCount() == 1 })

	assert.Equal(t, []string{"outer", "inner", "proc"}, order)
}
