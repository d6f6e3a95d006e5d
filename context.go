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
	"log/slog"
)

// Context is the per-request context handed to middleware and handlers.
//
// It is created for every dispatched frame and carries the connection's user
// context, the validated input payload, the sender and the room handle. The
// connection's user context is shared by reference; per-request refinements
// made by middleware live in the Context's own value store and never leak
// back to the connection or to other requests.
//
// A Context is bound to a single dispatched frame and must not be retained
// beyond the handler's return. It is not safe for concurrent use.
type Context struct {
	ctx    context.Context
	server *Server
	conn   *conn
	route  string
	input  any
	rpcID  string
	values map[string]any
	logger *slog.Logger
	rooms  *Rooms
}

// requestContextKey keys the ambient request context in a context.Context.
type requestContextKey struct{}

// newContext builds the per-request context and installs it as the ambient
// request scope on the embedded context.Context.
func newContext(ctx context.Context, s *Server, c *conn, route string, input any, rpcID string) *Context {
	rc := &Context{
		server: s,
		conn:   c,
		route:  route,
		input:  input,
		rpcID:  rpcID,
		logger: s.logger.With("client_id", c.id, "route", route),
	}
	rc.rooms = &Rooms{server: s, conn: c}
	rc.ctx = context.WithValue(ctx, requestContextKey{}, rc)
	return rc
}

// RequestContext returns the ambient per-request [*Context] carried by ctx,
// if ctx descends from a dispatched frame. This is how nested helpers reach
// the current request's sender and rooms without threading *Context through
// every call:
//
//	func notifyAll(ctx context.Context, text string) {
//	    if c, ok := zocket.RequestContext(ctx); ok {
//	        c.Emit("chat.onMessage", Message{Text: text}).Broadcast()
//	    }
//	}
func RequestContext(ctx context.Context) (*Context, bool) {
	c, ok := ctx.Value(requestContextKey{}).(*Context)
	return c, ok
}

// Context returns the context.Context of this request. It carries the
// ambient request scope (see [RequestContext]) and is the context handlers
// should pass to downstream calls.
func (c *Context) Context() context.Context {
	return c.ctx
}

// ClientID returns the server-assigned id of the originating connection.
func (c *Context) ClientID() string {
	return c.conn.id
}

// HandshakeValues returns the validated handshake metadata of the
// originating connection.
func (c *Context) HandshakeValues() map[string]string {
	return c.conn.values
}

// User returns the connection's user context, the value returned by the
// OnConnect callback.
func (c *Context) User() any {
	return c.conn.user
}

// Input returns the validated, coerced input payload.
func (c *Context) Input() any {
	return c.input
}

// IsRPC reports whether the client expects a reply for this frame.
func (c *Context) IsRPC() bool {
	return c.rpcID != ""
}

// Set stores a per-request value. This is how middleware refines the context
// for later middleware and the handler; values are scoped to this request.
func (c *Context) Set(key string, value any) {
	if c.values == nil {
		c.values = make(map[string]any)
	}
	c.values[key] = value
}

// Get returns a per-request value set by earlier middleware.
func (c *Context) Get(key string) (any, bool) {
	v, ok := c.values[key]
	return v, ok
}

// MustGet returns a per-request value or panics if it is absent. Use it for
// values a middleware contractually provides.
func (c *Context) MustGet(key string) any {
	v, ok := c.values[key]
	if !ok {
		panic("zocket: context value not set: " + key)
	}
	return v
}

// Emit starts an outbound send of the named outgoing procedure. The returned
// [*Dispatch] selects targets; the originating connection is just another
// target:
//
//	c.Emit("echo.onPong", Pong{Reply: reply}).To(c.ClientID())
func (c *Context) Emit(route string, payload any) *Dispatch {
	return c.server.Emit(route, payload)
}

// Rooms returns the room handle of the originating connection.
func (c *Context) Rooms() *Rooms {
	return c.rooms
}

// Logger returns the request-scoped logger, pre-populated with the client id
// and route.
func (c *Context) Logger() *slog.Logger {
	return c.logger
}
