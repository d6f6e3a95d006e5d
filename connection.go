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
	"math/rand/v2"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
)

// conn is one live connection. It is created by HandleOpen and owned by the
// connection manager; its pump goroutine is the only place frames for this
// connection are dispatched, which serialises per-connection processing.
type conn struct {
	id     string
	values map[string]string
	sink   Sink

	// inbox carries raw inbound frames to the pump. Closed exactly once by
	// HandleClose; closing it is how the pump learns the connection is done.
	// The pump runs the connect callback before its receive loop, so frames
	// queued here before the user context is published are deferred, never
	// dropped, and dispatch in receive order.
	inbox     chan []byte
	closeOnce sync.Once

	// user is written once by the pump before any dispatch, then only read.
	user any

	// failed marks a connection whose connect callback errored; it never
	// fully opened and is skipped by the send fabric until the adapter's
	// close catches up.
	failed atomic.Bool

	// subs is the connection's room subscription set. Mutated only from
	// tasks scoped to this connection (the pump and its handlers).
	subs mapset.Set[string]
}

func (c *conn) closeInbox() {
	c.closeOnce.Do(func() { close(c.inbox) })
}

// roomSnapshot returns the sorted final subscription set, handed to the
// disconnect callback before teardown.
func (c *conn) roomSnapshot() []string {
	rooms := c.subs.ToSlice()
	sort.Strings(rooms)
	return rooms
}

const clientIDAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// newClientID allocates a fresh client id of the form
// client_<epoch_ms>_<base36_suffix>. The suffix is collision-resistant for
// the id's purpose (uniqueness among live connections) but not cryptographic;
// ids are opaque to clients and carry no authority.
func newClientID() string {
	var suffix [9]byte
	for i := range suffix {
		suffix[i] = clientIDAlphabet[rand.IntN(len(clientIDAlphabet))]
	}
	return "client_" + strconv.FormatInt(time.Now().UnixMilli(), 10) + "_" + string(suffix[:])
}
