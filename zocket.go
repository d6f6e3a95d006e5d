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
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/ChiChuRita/zocket/schema"
)

// ConnectFunc is the user connect callback. It runs once per successful
// handshake, before any frame of that connection is dispatched; its return
// value becomes the connection's user context. An error refuses the
// connection.
type ConnectFunc func(ctx context.Context, hs Handshake) (any, error)

// DisconnectFunc is the user disconnect callback. It runs exactly once per
// opened connection; a returned error is logged and teardown continues.
type DisconnectFunc func(ctx context.Context, d Disconnect) error

// Handshake is an accepted connection handshake.
type Handshake struct {
	// ClientID is the server-assigned opaque identifier, stable for the
	// connection's lifetime but not across reconnects.
	ClientID string

	// Values is the validated handshake metadata, merged from protocol
	// headers and URL query parameters (query wins on conflict).
	Values map[string]string
}

// Disconnect is the final state of a closing connection, observed by the
// disconnect callback before teardown.
type Disconnect struct {
	ClientID string
	User     any
	Rooms    []string // final subscription set, sorted
}

// Server is the Zocket runtime: it owns the flattened dispatch table, the
// live connection table and the room index, and exposes the four lifecycle
// callbacks a transport adapter drives.
//
// A Server is safe for concurrent use. The dispatch table is immutable after
// [New]; the connection table and room index are guarded for concurrent
// open/close and join/leave across connections, while per-connection state
// is only ever touched from that connection's own dispatch task.
type Server struct {
	procs map[string]*procedure

	handshake    schema.Schema
	onConnect    ConnectFunc
	onDisconnect DisconnectFunc
	errorHandler func(clientID string, err error)
	logger       *slog.Logger
	recorder     Recorder
	tracing      bool
	inboxSize    int

	publisher Publisher

	mu    sync.RWMutex
	conns map[string]*conn
	rooms map[string]mapset.Set[string]

	closed atomic.Bool
	wg     sync.WaitGroup
}

// New creates a server from a router declaration. The router is flattened
// here; declaration errors (duplicate routes, reserved names, incoming
// procedures without handlers, handlers bound to outgoing procedures) are
// returned now, never at runtime.
//
// Example:
//
//	s, err := zocket.New(r,
//	    zocket.WithHandshake(schema.Struct[Credentials]()),
//	    zocket.WithConnect(onConnect),
//	    zocket.WithDisconnect(onDisconnect),
//	    zocket.WithLogger(slog.Default()),
//	)
func New(r *Router, opts ...Option) (*Server, error) {
	procs, err := r.flatten()
	if err != nil {
		return nil, fmt.Errorf("router flatten failed: %w", err)
	}

	s := &Server{
		procs:     procs,
		logger:    noopLogger,
		inboxSize: 64,
		conns:     make(map[string]*conn),
		rooms:     make(map[string]mapset.Set[string]),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.inboxSize <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInboxSizeInvalid, s.inboxSize)
	}
	return s, nil
}

// MustNew creates a server and panics if the declaration is invalid. Use in
// main() where a configuration error should fail startup immediately.
func MustNew(r *Router, opts ...Option) *Server {
	s, err := New(r, opts...)
	if err != nil {
		panic(fmt.Sprintf("zocket.MustNew: %v", err))
	}
	return s
}

// SetPublisher wires the transport adapter's pub/sub fabric into room sends.
// Transport adapters call this during their own construction.
func (s *Server) SetPublisher(p Publisher) {
	s.publisher = p
}

// HandleUpgrade decides a connection handshake before the protocol upgrade.
// It merges the request's headers and URL query parameters (query wins — the
// documented escape hatch for browser WebSocket constructors, which forbid
// custom headers), validates the merged bag against the handshake schema and
// either accepts with a fresh client id or rejects with the HTTP status and
// body the adapter must answer.
func (s *Server) HandleUpgrade(r *http.Request) (Handshake, *Rejection) {
	if s.closed.Load() {
		return Handshake{}, &Rejection{
			Status: http.StatusServiceUnavailable,
			Body:   []byte(`{"error":"Server shutting down"}`),
		}
	}

	values := make(map[string]string)
	for name, vals := range r.Header {
		if len(vals) > 0 {
			values[strings.ToLower(name)] = vals[0]
		}
	}
	for name, vals := range r.URL.Query() {
		if len(vals) > 0 {
			values[name] = vals[0]
		}
	}

	if s.handshake != nil {
		if _, err := s.handshake.Validate(r.Context(), values); err != nil {
			issues := schema.AsError(err)
			body, merr := json.Marshal(map[string]any{
				"error":   "Invalid headers",
				"details": issues.Fields,
			})
			if merr != nil {
				body = []byte(`{"error":"Invalid headers"}`)
			}
			s.logger.Warn("handshake rejected", "remote", r.RemoteAddr, "error", err)
			return Handshake{}, &Rejection{Status: http.StatusBadRequest, Body: body}
		}
	}

	return Handshake{ClientID: newClientID(), Values: values}, nil
}

// HandleOpen registers a freshly upgraded connection and starts its dispatch
// pump. The pump first runs the connect callback; frames delivered by
// HandleMessage in that window queue in the connection's inbox and are
// dispatched afterwards, in receive order — deferred, never dropped.
func (s *Server) HandleOpen(sink Sink, hs Handshake) {
	c := &conn{
		id:     hs.ClientID,
		values: hs.Values,
		sink:   sink,
		inbox:  make(chan []byte, s.inboxSize),
		subs:   mapset.NewSet[string](),
	}

	s.mu.Lock()
	s.conns[c.id] = c
	s.mu.Unlock()

	s.wg.Add(1)
	go s.pump(c)
}

// HandleMessage queues one inbound frame for dispatch. The adapter must
// deliver frames of one connection from a single goroutine and must not call
// this after HandleClose for the same connection. When the connection's
// inbox is full this blocks, inheriting the adapter's backpressure.
func (s *Server) HandleMessage(clientID string, data []byte) {
	s.mu.RLock()
	c, ok := s.conns[clientID]
	s.mu.RUnlock()
	if !ok {
		return
	}
	c.inbox <- data
}

// HandleClose marks a connection's inbound stream as finished. Queued frames
// still dispatch; once they have completed, the disconnect callback runs
// with the final room snapshot and the connection is torn down.
func (s *Server) HandleClose(clientID string) {
	s.mu.RLock()
	c, ok := s.conns[clientID]
	s.mu.RUnlock()
	if !ok {
		return
	}
	c.closeInbox()
}

// pump is the per-connection dispatch task: it publishes the connection's
// user context, then processes frames strictly in receive order. Running the
// connect callback here — ahead of the receive loop — is what defers
// early frames without reordering them.
func (s *Server) pump(c *conn) {
	defer s.wg.Done()

	var user any
	if s.onConnect != nil {
		u, err := s.onConnect(context.Background(), Handshake{ClientID: c.id, Values: c.values})
		if err != nil {
			// The connection never fully opened: drop it without running
			// the disconnect callback. The conn stays in the table until the
			// adapter answers the close with HandleClose, which ends the
			// drain below.
			s.logger.Error("connect callback failed", "client_id", c.id, "error", err)
			c.failed.Store(true)
			if cerr := c.sink.Close(); cerr != nil {
				s.logger.Warn("sink close failed", "client_id", c.id, "error", cerr)
			}
			for range c.inbox {
				// Discard queued frames so the adapter's delivery path
				// never wedges.
			}
			s.mu.Lock()
			delete(s.conns, c.id)
			s.mu.Unlock()
			return
		}
		user = u
	}
	c.user = user

	s.logger.Info("connection opened", "client_id", c.id)
	if s.recorder != nil {
		s.recorder.ConnectionOpened(c.id)
	}

	for data := range c.inbox {
		s.dispatch(c, data)
	}
	s.teardown(c)
}

// teardown runs the disconnect callback against the final room snapshot,
// then removes the connection from the live table and from every room.
func (s *Server) teardown(c *conn) {
	rooms := c.roomSnapshot()

	if s.onDisconnect != nil {
		d := Disconnect{ClientID: c.id, User: c.user, Rooms: rooms}
		if err := s.onDisconnect(context.Background(), d); err != nil {
			s.logger.Error("disconnect callback failed", "client_id", c.id, "error", err)
		}
	}

	s.mu.Lock()
	delete(s.conns, c.id)
	s.mu.Unlock()

	for _, room := range rooms {
		s.removeMember(room, c.id)
		if err := c.sink.Unsubscribe(room); err != nil {
			s.logger.Warn("room unsubscribe failed", "client_id", c.id, "room", room, "error", err)
		}
	}
	c.subs.Clear()

	s.logger.Info("connection closed", "client_id", c.id)
	if s.recorder != nil {
		s.recorder.ConnectionClosed(c.id)
	}
}

// Clients returns the ids of all live connections, sorted.
func (s *Server) Clients() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.conns))
	for id := range s.conns {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ClientCount returns the number of live connections.
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conns)
}

// Shutdown gracefully stops the server: new handshakes are refused, every
// live connection's sink is closed, and Shutdown waits — up to ctx — for the
// per-connection dispatch tasks to drain and run their disconnect callbacks.
// The transport adapter is expected to answer the sink closes with
// HandleClose for each connection, exactly as it does for client-initiated
// closes.
func (s *Server) Shutdown(ctx context.Context) error {
	if !s.closed.CompareAndSwap(false, true) {
		return ErrServerClosed
	}

	s.mu.RLock()
	sinks := make([]Sink, 0, len(s.conns))
	for _, c := range s.conns {
		sinks = append(sinks, c.sink)
	}
	s.mu.RUnlock()

	for _, sink := range sinks {
		if err := sink.Close(); err != nil {
			s.logger.Warn("sink close failed during shutdown", "error", err)
		}
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
