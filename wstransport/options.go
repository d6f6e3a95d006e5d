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

package wstransport

import (
	"log/slog"
	"net/http"
	"time"
)

// Option defines functional options for adapter configuration.
type Option func(*Adapter)

// WithLogger sets the structured logger. Without it the adapter logs nothing.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Adapter) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithCheckOrigin sets the cross-origin policy for upgrades. Without it the
// gorilla default applies: same-origin requests only.
func WithCheckOrigin(fn func(r *http.Request) bool) Option {
	return func(a *Adapter) {
		a.upgrader.CheckOrigin = fn
	}
}

// WithWriteTimeout sets the maximum time a single write may take before the
// connection is considered dead. Default 10s.
func WithWriteTimeout(d time.Duration) Option {
	return func(a *Adapter) {
		a.writeTimeout = d
	}
}

// WithPongTimeout sets how long a connection may go without answering pings
// before its read deadline expires. Pings are sent at two-thirds of this
// interval. Default 60s.
func WithPongTimeout(d time.Duration) Option {
	return func(a *Adapter) {
		a.pongTimeout = d
	}
}

// WithReadLimit caps the size of a single inbound frame in bytes. Frames
// over the limit close the connection. Default 1 MiB.
func WithReadLimit(n int64) Option {
	return func(a *Adapter) {
		a.readLimit = n
	}
}
