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

// Package zocket is a bidirectional RPC-and-event framework layered over a
// single long-lived duplex byte stream, in practice a WebSocket.
//
// A server advertises a [Router]: a nested namespace of named procedures
// (client → server, optionally returning a value) and event channels
// (server → client). Clients connect, authenticate via the connection
// handshake, then invoke procedures and subscribe to events. The runtime
// guarantees validated payloads, per-connection state, fan-out to rooms, and
// server-initiated push from outside any handler.
//
// # Declaring a router
//
//	r := zocket.NewRouter()
//	echo := r.Group("echo")
//	echo.In("ping", schema.Struct[PingInput](), func(c *zocket.Context) (any, error) {
//	    in := c.Input().(PingInput)
//	    return "pong: " + in.Message, nil
//	})
//	echo.Out("onPong", schema.Struct[Pong]())
//
// # Running a server
//
//	s := zocket.MustNew(r,
//	    zocket.WithHandshake(schema.Struct[Credentials]()),
//	    zocket.WithConnect(onConnect),
//	    zocket.WithDisconnect(onDisconnect),
//	)
//	http.Handle("/ws", wstransport.New(s))
//
// # Wire format
//
// Frames are UTF-8 JSON objects. Inbound: {"type": "<dotted.path>",
// "payload": <any>, "rpcId": "<opaque>"?}. Outbound events carry {type,
// payload}; RPC replies carry {type: "__rpc_res", payload, rpcId}. The type
// "__rpc_res" is reserved and rejected as a route segment.
//
// The core never touches bytes or sockets itself; any duplex transport can
// host it by implementing [Sink] (and optionally [Publisher]) and driving
// the four lifecycle callbacks on [Server]. The wstransport package is the
// WebSocket adapter.
package zocket
