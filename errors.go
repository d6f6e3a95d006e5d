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

import "errors"

var (
	// ErrDuplicateRoute indicates that two procedures were declared under the
	// same dotted path.
	ErrDuplicateRoute = errors.New("duplicate route")

	// ErrReservedSegment indicates that a route segment collides with the
	// reserved RPC reply type.
	ErrReservedSegment = errors.New("route segment is reserved")

	// ErrInvalidSegment indicates that a route segment is empty or contains a dot.
	ErrInvalidSegment = errors.New("invalid route segment")

	// ErrMissingHandler indicates that an incoming procedure has no handler
	// bound, neither on the declaration nor via Bind.
	ErrMissingHandler = errors.New("incoming procedure has no handler")

	// ErrHandlerOnOutgoing indicates that a handler was bound to an outgoing
	// procedure, which only clients can handle.
	ErrHandlerOnOutgoing = errors.New("handler bound to outgoing procedure")

	// ErrBindUnknownRoute indicates that Bind referenced a route that was
	// never declared.
	ErrBindUnknownRoute = errors.New("bind references unknown route")

	// ErrUnknownRoute indicates that an emit referenced a route that is not
	// in the dispatch table.
	ErrUnknownRoute = errors.New("unknown route")

	// ErrNotOutgoing indicates that an emit referenced an incoming procedure.
	// Only outgoing procedures can be emitted by the server.
	ErrNotOutgoing = errors.New("route is not an outgoing procedure")

	// ErrServerClosed indicates that the server has been shut down and no
	// longer accepts connections.
	ErrServerClosed = errors.New("server closed")

	// ErrNoRequestContext indicates that an ambient emit was attempted
	// outside any request scope.
	ErrNoRequestContext = errors.New("no request context in scope")

	// ErrInboxSizeInvalid indicates that the configured inbox size must be positive.
	ErrInboxSizeInvalid = errors.New("inbox size must be positive")

	// errFrameMissingType marks a frame whose type field is missing or not a string.
	errFrameMissingType = errors.New("frame has no type")
)
