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
	"io"
	"log/slog"
	"time"
)

// noopLogger is a singleton no-op logger used when no logger is configured.
var noopLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// NoopLogger returns the singleton no-op logger.
func NoopLogger() *slog.Logger {
	return noopLogger
}

// Dispatch outcomes reported to the [Recorder]. "ok" covers both
// fire-and-forget frames and RPCs that replied.
const (
	OutcomeOK                 = "ok"
	OutcomeMalformed          = "malformed"
	OutcomeUnknownRoute       = "unknown_route"
	OutcomeInvalidPayload     = "invalid_payload"
	OutcomeMiddlewareRejected = "middleware_rejected"
	OutcomeHandlerError       = "handler_error"
)

// Recorder receives connection and dispatch lifecycle events for metrics
// collection. The server functions identically with or without one; see the
// metrics package for a Prometheus implementation.
//
// All methods must be safe for concurrent use.
type Recorder interface {
	// ConnectionOpened is called once per successful handshake, after the
	// connect callback has completed.
	ConnectionOpened(clientID string)

	// ConnectionClosed is called once per opened connection, after teardown.
	ConnectionClosed(clientID string)

	// FrameDispatched is called once per inbound frame with the dispatch
	// outcome (one of the Outcome constants) and the processing duration.
	// The route is empty for frames that never resolved to one.
	FrameDispatched(route, outcome string, elapsed time.Duration)

	// SendFailed is called when delivery to a single recipient fails.
	SendFailed(route string)
}
