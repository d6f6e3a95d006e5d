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
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracerName identifies the dispatch tracer against the global provider.
const tracerName = "github.com/ChiChuRita/zocket"

// dispatch processes one inbound frame end to end: parse, route, validate,
// middleware, handler, RPC reply. It runs on the connection's pump, so
// frames of one connection are strictly ordered.
//
// Every failure here is scoped to the frame: the frame is dropped with a
// warning and the connection stays open. No reply is sent on payload or
// middleware rejection even for RPC frames — middleware commonly implements
// authorization, and an error frame would reveal procedure existence.
func (s *Server) dispatch(c *conn, data []byte) {
	start := time.Now()
	route := ""
	outcome := OutcomeMalformed
	defer func() {
		if s.recorder != nil {
			s.recorder.FrameDispatched(route, outcome, time.Since(start))
		}
	}()

	log := s.logger.With("client_id", c.id, "dispatch_id", uuid.NewString())

	f, err := decodeFrame(data)
	if err != nil {
		log.Warn("malformed frame dropped", "error", err)
		return
	}
	route = f.Type
	log = log.With("route", route)

	p, ok := s.procs[f.Type]
	if !ok || p.direction != DirectionIn {
		outcome = OutcomeUnknownRoute
		log.Warn("frame for unknown route dropped")
		return
	}

	ctx := context.Background()
	var span trace.Span
	if s.tracing {
		ctx, span = otel.Tracer(tracerName).Start(ctx, "zocket.dispatch "+f.Type,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("zocket.route", f.Type),
				attribute.String("zocket.client_id", c.id),
				attribute.Bool("zocket.rpc", f.RPCID != ""),
			),
		)
		defer func() {
			span.SetAttributes(attribute.String("zocket.outcome", outcome))
			if outcome != OutcomeOK {
				span.SetStatus(codes.Error, outcome)
			}
			span.End()
		}()
	}

	var input any
	if p.schema != nil {
		input, err = p.schema.Validate(ctx, f.Payload)
		if err != nil {
			outcome = OutcomeInvalidPayload
			log.Warn("invalid payload dropped", "issues", err)
			return
		}
	} else if len(f.Payload) > 0 {
		// No schema declared: hand the handler the generically decoded
		// payload. The bytes are valid JSON, the frame parse guaranteed it.
		_ = json.Unmarshal(f.Payload, &input)
	}

	rc := newContext(ctx, s, c, f.Type, input, f.RPCID)

	// A panic below is a handler bug, not a server failure; contain it to
	// this frame like any other handler error.
	defer func() {
		if r := recover(); r != nil {
			outcome = OutcomeHandlerError
			log.Error("handler panicked", "panic", r)
		}
	}()

	for _, mw := range p.middleware {
		if err := mw(rc); err != nil {
			outcome = OutcomeMiddlewareRejected
			log.Warn("middleware rejected frame", "error", err)
			return
		}
	}

	result, err := p.handler(rc)
	if err != nil {
		// The RPC correlation, if any, is left to time out client-side.
		outcome = OutcomeHandlerError
		log.Error("handler failed", "error", err)
		return
	}

	if f.RPCID != "" {
		reply, err := encodeFrame(RPCResponseType, result, f.RPCID)
		if err != nil {
			outcome = OutcomeHandlerError
			log.Error("rpc reply not encodable", "error", err)
			return
		}
		s.sendTo(c, RPCResponseType, reply)
	}
	outcome = OutcomeOK
}
