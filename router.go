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
	"fmt"
	"sort"
	"strings"

	"github.com/ChiChuRita/zocket/schema"
)

// Direction distinguishes the two procedure variants of a router.
type Direction string

const (
	// DirectionIn marks a client-to-server procedure: it carries an input
	// schema, a middleware chain and a handler, and may return a value (RPC).
	DirectionIn Direction = "in"

	// DirectionOut marks a server-to-client event channel: it carries an
	// output schema only, declared so clients can type their subscriptions.
	DirectionOut Direction = "out"
)

// HandlerFunc is the handler for an incoming procedure. The returned value is
// the RPC reply payload when the frame carried an rpcId; it is ignored for
// fire-and-forget frames. A returned error drops the frame (and suppresses
// the RPC reply) without ever reaching other connections.
type HandlerFunc func(c *Context) (any, error)

// MiddlewareFunc runs before a handler. Middleware may refine the per-request
// context via [Context.Set]. A returned error aborts the request silently:
// the frame is dropped with a warning and no reply is sent even for RPC
// frames. Middleware commonly implements authorization and must not reveal
// procedure existence to unauthorized callers.
type MiddlewareFunc func(c *Context) error

// procedure is one flattened dispatch-table entry.
type procedure struct {
	route      string
	direction  Direction
	schema     schema.Schema
	middleware []MiddlewareFunc
	handler    HandlerFunc
}

// Router is a declarative tree of procedures. Leaves are procedures, internal
// nodes are named groupings; the dotted concatenation of group names and the
// procedure name is the wire identifier.
//
// Declaration happens before the server starts; the tree is flattened into an
// immutable dispatch table by [New]. Declaration errors (duplicate routes,
// reserved names, unbound handlers) are configuration errors surfaced at
// startup, never at runtime.
//
// Example:
//
//	r := zocket.NewRouter()
//	chat := r.Group("chat")
//	chat.In("send", schema.Struct[SendInput](), sendHandler)
//	chat.Out("onMessage", schema.Struct[Message]())
type Router struct {
	procs []*procedure        // declaration order
	binds map[string]HandlerFunc // legacy parallel handler tree, keyed by dotted path
}

// NewRouter creates an empty router.
func NewRouter() *Router {
	return &Router{binds: make(map[string]HandlerFunc)}
}

// Group creates a named grouping at the router root. Middleware passed here
// runs before the middleware of every procedure declared under the group.
func (r *Router) Group(name string, middleware ...MiddlewareFunc) *Group {
	return &Group{router: r, prefix: name, middleware: middleware}
}

// In declares an incoming procedure at the router root. The handler may be
// nil when it is bound later via [Router.Bind].
func (r *Router) In(name string, s schema.Schema, handler HandlerFunc, middleware ...MiddlewareFunc) {
	r.procs = append(r.procs, &procedure{
		route:      name,
		direction:  DirectionIn,
		schema:     s,
		middleware: middleware,
		handler:    handler,
	})
}

// Out declares an outgoing event channel at the router root.
func (r *Router) Out(name string, s schema.Schema) {
	r.procs = append(r.procs, &procedure{route: name, direction: DirectionOut, schema: s})
}

// Bind attaches a handler to an already-declared incoming procedure by its
// dotted path. This is the legacy declaration style where handlers live in a
// parallel tree; [Group.In] with a co-located handler is preferred. Binding
// the same path twice, or a path that was declared with a co-located handler,
// is a duplicate surfaced by [New].
func (r *Router) Bind(path string, handler HandlerFunc) {
	r.binds[path] = handler
}

// Group is a nested grouping of procedures sharing a dotted-path prefix and a
// middleware chain. Groups nest arbitrarily; a nested group inherits its
// parent's prefix and middleware.
type Group struct {
	router     *Router
	prefix     string
	middleware []MiddlewareFunc
}

// Group creates a nested group under this group.
func (g *Group) Group(name string, middleware ...MiddlewareFunc) *Group {
	all := make([]MiddlewareFunc, 0, len(g.middleware)+len(middleware))
	all = append(all, g.middleware...)
	all = append(all, middleware...)
	return &Group{router: g.router, prefix: g.prefix + "." + name, middleware: all}
}

// In declares an incoming procedure under this group. Group middleware runs
// before procedure middleware, outermost group first.
func (g *Group) In(name string, s schema.Schema, handler HandlerFunc, middleware ...MiddlewareFunc) {
	all := make([]MiddlewareFunc, 0, len(g.middleware)+len(middleware))
	all = append(all, g.middleware...)
	all = append(all, middleware...)
	g.router.procs = append(g.router.procs, &procedure{
		route:      g.prefix + "." + name,
		direction:  DirectionIn,
		schema:     s,
		middleware: all,
		handler:    handler,
	})
}

// Out declares an outgoing event channel under this group.
func (g *Group) Out(name string, s schema.Schema) {
	g.router.procs = append(g.router.procs, &procedure{
		route:     g.prefix + "." + name,
		direction: DirectionOut,
		schema:    s,
	})
}

// flatten produces the dispatch table and validates the declaration. The
// tree itself is discarded afterwards; only the table is used at runtime.
func (r *Router) flatten() (map[string]*procedure, error) {
	table := make(map[string]*procedure, len(r.procs))
	bound := make(map[string]bool, len(r.binds))

	for _, p := range r.procs {
		if err := validateRoute(p.route); err != nil {
			return nil, err
		}
		if _, ok := table[p.route]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateRoute, p.route)
		}

		if h, ok := r.binds[p.route]; ok {
			if p.direction == DirectionOut {
				return nil, fmt.Errorf("%w: %q", ErrHandlerOnOutgoing, p.route)
			}
			if p.handler != nil {
				return nil, fmt.Errorf("%w: %q has both a co-located and a bound handler", ErrDuplicateRoute, p.route)
			}
			p.handler = h
			bound[p.route] = true
		}

		if p.direction == DirectionIn && p.handler == nil {
			return nil, fmt.Errorf("%w: %q", ErrMissingHandler, p.route)
		}
		table[p.route] = p
	}

	for path := range r.binds {
		if !bound[path] {
			return nil, fmt.Errorf("%w: %q", ErrBindUnknownRoute, path)
		}
	}
	return table, nil
}

// validateRoute checks every segment of a dotted path.
func validateRoute(route string) error {
	if route == "" {
		return fmt.Errorf("%w: empty route", ErrInvalidSegment)
	}
	for _, seg := range strings.Split(route, ".") {
		if seg == "" {
			return fmt.Errorf("%w: empty segment in %q", ErrInvalidSegment, route)
		}
		if seg == RPCResponseType {
			return fmt.Errorf("%w: %q in %q", ErrReservedSegment, seg, route)
		}
	}
	return nil
}

// RouteInfo describes one flattened route, for diagnostics and client
// code generation.
type RouteInfo struct {
	Route     string
	Direction Direction
}

// Routes returns the flattened routes of the server in sorted order.
func (s *Server) Routes() []RouteInfo {
	infos := make([]RouteInfo, 0, len(s.procs))
	for _, p := range s.procs {
		infos = append(infos, RouteInfo{Route: p.route, Direction: p.direction})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Route < infos[j].Route })
	return infos
}
