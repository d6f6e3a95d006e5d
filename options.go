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
	"log/slog"

	"github.com/ChiChuRita/zocket/schema"
)

// Option defines functional options for server configuration.
type Option func(*Server)

// WithHandshake sets the schema the merged handshake bag (protocol headers
// and URL query parameters, query winning on conflict) is validated against.
// Connections failing it are rejected with HTTP 400 before the upgrade.
//
// Example:
//
//	type Credentials struct {
//	    Token string `json:"token" validate:"required"`
//	}
//
//	s := zocket.MustNew(r, zocket.WithHandshake(schema.Struct[Credentials]()))
func WithHandshake(s schema.Schema) Option {
	return func(srv *Server) {
		srv.handshake = s
	}
}

// WithConnect sets the connect callback, run once per successful handshake
// before any frame of that connection is dispatched. Its return value
// becomes the connection's user context.
//
// An error refuses the connection: the sink is closed and the disconnect
// callback is NOT invoked, because the connection never fully opened.
func WithConnect(fn ConnectFunc) Option {
	return func(srv *Server) {
		srv.onConnect = fn
	}
}

// WithDisconnect sets the disconnect callback, run exactly once per opened
// connection after its in-flight frames have completed. It observes the
// final room subscription set; after it returns, the connection is gone from
// every room and from the live table.
func WithDisconnect(fn DisconnectFunc) Option {
	return func(srv *Server) {
		srv.onDisconnect = fn
	}
}

// WithLogger sets the structured logger. Without it the server logs nothing.
func WithLogger(logger *slog.Logger) Option {
	return func(srv *Server) {
		if logger != nil {
			srv.logger = logger
		}
	}
}

// WithRecorder sets the observability recorder. See the metrics package for
// a Prometheus implementation.
func WithRecorder(rec Recorder) Option {
	return func(srv *Server) {
		srv.recorder = rec
	}
}

// WithTracing enables an OpenTelemetry span per dispatched frame, recording
// the route, client id and outcome. Exporter configuration is the
// application's concern; the server only emits through the global tracer
// provider.
func WithTracing(enable bool) Option {
	return func(srv *Server) {
		srv.tracing = enable
	}
}

// WithErrorHandler sets a per-connection error callback surfacing transport
// send failures. Non-fatal: delivery to other recipients continues
// regardless.
func WithErrorHandler(fn func(clientID string, err error)) Option {
	return func(srv *Server) {
		srv.errorHandler = fn
	}
}

// WithInboxSize sets the per-connection inbound frame buffer. When a
// connection's buffer is full the transport's read path blocks, inheriting
// whatever backpressure the adapter applies. Default 64.
func WithInboxSize(n int) Option {
	return func(srv *Server) {
		srv.inboxSize = n
	}
}
