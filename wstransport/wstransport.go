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

// Package wstransport hosts a zocket server over WebSocket connections.
//
// The adapter is an http.Handler: it asks the core to decide the handshake,
// upgrades accepted requests with gorilla/websocket, reads frames into the
// core, and maintains the topic fabric behind room sends. It is the only
// place bytes and sockets appear; the core sees sinks and callbacks.
//
//	s := zocket.MustNew(r, ...)
//	http.Handle("/ws", wstransport.New(s))
package wstransport

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ChiChuRita/zocket"
)

const (
	// defaultWriteTimeout is the maximum time a write we initiate may take.
	defaultWriteTimeout = 10 * time.Second

	// defaultPongTimeout closes connections that stop answering pings.
	defaultPongTimeout = 60 * time.Second

	// defaultReadLimit caps a single inbound frame.
	defaultReadLimit = 1 << 20
)

// Adapter bridges WebSocket connections to a zocket server. Create one per
// server with [New] and mount it on an HTTP mux.
type Adapter struct {
	core   *zocket.Server
	logger *slog.Logger

	upgrader     websocket.Upgrader
	writeTimeout time.Duration
	pongTimeout  time.Duration
	readLimit    int64

	mu     sync.RWMutex
	topics map[string]map[*wsConn]struct{}
}

var _ zocket.Publisher = (*Adapter)(nil)

// New creates a WebSocket adapter for a server and wires itself in as the
// server's publisher, so room sends fan out through the adapter's topic
// fabric.
func New(core *zocket.Server, opts ...Option) *Adapter {
	a := &Adapter{
		core:   core,
		logger: zocket.NoopLogger(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		writeTimeout: defaultWriteTimeout,
		pongTimeout:  defaultPongTimeout,
		readLimit:    defaultReadLimit,
		topics:       make(map[string]map[*wsConn]struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	core.SetPublisher(a)
	return a
}

// ServeHTTP implements http.Handler: handshake decision, upgrade, then the
// connection's read loop until the peer goes away.
func (a *Adapter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	hs, rej := a.core.HandleUpgrade(r)
	if rej != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(rej.Status)
		if _, err := w.Write(rej.Body); err != nil {
			a.logger.Warn("failed to write rejection body", "remote", r.RemoteAddr, "error", err)
		}
		return
	}

	ws, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// A response has already been sent to the client by the upgrader.
		a.logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	c := &wsConn{adapter: a, ws: ws, clientID: hs.ClientID}
	a.core.HandleOpen(c, hs)
	a.readLoop(c)
}

// readLoop delivers inbound frames to the core in receive order, keeps the
// connection alive with pings, and reports the close exactly once.
func (a *Adapter) readLoop(c *wsConn) {
	ws := c.ws
	ws.SetReadLimit(a.readLimit)
	_ = ws.SetReadDeadline(time.Now().Add(a.pongTimeout))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(a.pongTimeout))
	})

	stop := make(chan struct{})
	go a.pingLoop(c, stop)

	for {
		messageType, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived) {
				a.logger.Warn("websocket read failed", "client_id", c.clientID, "error", err)
			}
			break
		}
		if messageType != websocket.TextMessage {
			// Binary frames are not part of the protocol.
			continue
		}
		a.core.HandleMessage(c.clientID, data)
	}

	close(stop)
	a.core.HandleClose(c.clientID)
	a.dropConn(c)
	_ = ws.Close()
}

// pingLoop sends pings at two-thirds of the pong timeout, the conventional
// margin that gives a slow peer one full round trip before the read deadline
// expires.
func (a *Adapter) pingLoop(c *wsConn, stop <-chan struct{}) {
	ticker := time.NewTicker(a.pongTimeout * 2 / 3)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := c.writeControl(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-stop:
			return
		}
	}
}

// Publish implements [zocket.Publisher]: it delivers data to every
// connection currently subscribed to topic. A failed delivery is logged and
// the remaining members still receive the frame.
func (a *Adapter) Publish(topic string, data []byte) error {
	a.mu.RLock()
	members := make([]*wsConn, 0, len(a.topics[topic]))
	for c := range a.topics[topic] {
		members = append(members, c)
	}
	a.mu.RUnlock()

	for _, c := range members {
		if err := c.Send(data); err != nil {
			a.logger.Warn("publish delivery failed", "topic", topic, "client_id", c.clientID, "error", err)
		}
	}
	return nil
}

func (a *Adapter) subscribe(c *wsConn, topic string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	members, ok := a.topics[topic]
	if !ok {
		members = make(map[*wsConn]struct{})
		a.topics[topic] = members
	}
	members[c] = struct{}{}
}

func (a *Adapter) unsubscribe(c *wsConn, topic string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	members, ok := a.topics[topic]
	if !ok {
		return
	}
	delete(members, c)
	if len(members) == 0 {
		delete(a.topics, topic)
	}
}

// dropConn removes a closed connection from every topic. The core also
// unsubscribes during teardown; this is the backstop for the window between
// socket death and teardown.
func (a *Adapter) dropConn(c *wsConn) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for topic, members := range a.topics {
		delete(members, c)
		if len(members) == 0 {
			delete(a.topics, topic)
		}
	}
}

// wsConn adapts one gorilla connection to the core's sink contract.
// gorilla/websocket permits a single concurrent writer, so every write goes
// through writeMu.
type wsConn struct {
	adapter  *Adapter
	ws       *websocket.Conn
	clientID string
	writeMu  sync.Mutex
}

var _ zocket.Sink = (*wsConn)(nil)

// Send implements [zocket.Sink].
func (c *wsConn) Send(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.ws.SetWriteDeadline(time.Now().Add(c.adapter.writeTimeout)); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

// Close implements [zocket.Sink]: a best-effort close handshake, then the
// underlying socket is torn down, which ends the read loop.
func (c *wsConn) Close() error {
	message := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := c.writeControl(websocket.CloseMessage, message); err != nil {
		c.adapter.logger.Warn("failed to write websocket close", "client_id", c.clientID, "error", err)
	}
	return c.ws.Close()
}

// Subscribe implements [zocket.Sink].
func (c *wsConn) Subscribe(topic string) error {
	c.adapter.subscribe(c, topic)
	return nil
}

// Unsubscribe implements [zocket.Sink].
func (c *wsConn) Unsubscribe(topic string) error {
	c.adapter.unsubscribe(c, topic)
	return nil
}

func (c *wsConn) writeControl(messageType int, data []byte) error {
	return c.ws.WriteControl(messageType, data, time.Now().Add(c.adapter.writeTimeout))
}
