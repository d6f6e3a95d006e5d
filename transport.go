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

// Sink is the per-connection write side a transport adapter hands to the
// core. It is the only surface through which the core touches a connection:
// the core never sees sockets or bytes beyond this interface.
//
// Subscribe and Unsubscribe register the connection on a named topic in the
// adapter's pub/sub fabric; [Publisher.Publish] on that topic must then reach
// this sink. Adapters without a pub/sub fabric may implement them as no-ops,
// at the cost of room delivery (see [Publisher]).
//
// All methods must be safe for concurrent use: the core sends from handler
// goroutines of other connections.
type Sink interface {
	Send(data []byte) error
	Close() error
	Subscribe(topic string) error
	Unsubscribe(topic string) error
}

// Publisher is the server-level fan-out a transport adapter may provide.
// Publish delivers data to every sink currently subscribed to topic; it is
// how room sends avoid iterating members in the core.
//
// Publisher is optional. When the adapter provides none, room sends log a
// warning and do nothing — deliberately NOT falling back to member
// iteration, which would silently change the performance profile.
type Publisher interface {
	Publish(topic string, data []byte) error
}

// The core exposes four lifecycle callbacks to transport adapters, in the
// order an adapter invokes them for one connection:
//
//	hs, rej := core.HandleUpgrade(r)   // before the protocol upgrade
//	core.HandleOpen(sink, hs)          // once the duplex stream is live
//	core.HandleMessage(hs.ClientID, b) // per inbound frame, in receive order
//	core.HandleClose(hs.ClientID)      // exactly once, after the last frame
//
// HandleMessage and HandleClose for one connection must come from a single
// goroutine (or be otherwise serialised): the core relies on close following
// the last frame. Distinct connections may call concurrently.

// Rejection is a refused handshake: the HTTP status and response body the
// adapter must answer with instead of upgrading.
type Rejection struct {
	Status int
	Body   []byte
}

// Error implements the error interface.
func (r *Rejection) Error() string {
	return "handshake rejected"
}
