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
	"encoding/json"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeSink is an in-memory Sink for core tests. On Close it reports the
// close back to the server, the way a real transport adapter does.
type fakeSink struct {
	mu        sync.Mutex
	frames    [][]byte
	subs      map[string]int
	unsubs    map[string]int
	closed    bool
	failSend  bool
	onClose   func()
	closeOnce sync.Once
}

func newFakeSink() *fakeSink {
	return &fakeSink{subs: make(map[string]int), unsubs: make(map[string]int)}
}

func (f *fakeSink) Send(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSend {
		return errSendRefused
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	f.frames = append(f.frames, cp)
	return nil
}

func (f *fakeSink) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	if f.onClose != nil {
		f.closeOnce.Do(func() { go f.onClose() })
	}
	return nil
}

func (f *fakeSink) Subscribe(topic string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs[topic]++
	return nil
}

func (f *fakeSink) Unsubscribe(topic string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unsubs[topic]++
	return nil
}

func (f *fakeSink) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeSink) frameCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.frames)
}

func (f *fakeSink) subscribeCount(topic string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subs[topic]
}

// frame decodes the i-th outbound frame.
func (f *fakeSink) frame(t *testing.T, i int) outboundFrame {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.Greater(t, len(f.frames), i, "expected at least %d frames", i+1)
	var out outboundFrame
	require.NoError(t, json.Unmarshal(f.frames[i], &out))
	return out
}

var errSendRefused = &sendRefusedError{}

type sendRefusedError struct{}

func (*sendRefusedError) Error() string { return "send refused" }

// fakePublisher records Publish calls.
type fakePublisher struct {
	mu        sync.Mutex
	published []publishCall
}

type publishCall struct {
	topic string
	data  []byte
}

func (p *fakePublisher) Publish(topic string, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	p.published = append(p.published, publishCall{topic: topic, data: cp})
	return nil
}

func (p *fakePublisher) calls() []publishCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]publishCall(nil), p.published...)
}

// openConn performs the full adapter-side open sequence against the server
// and waits until the connection is dispatch-ready.
func openConn(t *testing.T, s *Server, query string) (*fakeSink, string) {
	t.Helper()
	req := httptest.NewRequest("GET", "/ws"+query, nil)
	hs, rej := s.HandleUpgrade(req)
	require.Nil(t, rej, "handshake unexpectedly rejected")

	sink := newFakeSink()
	sink.onClose = func() { s.HandleClose(hs.ClientID) }
	s.HandleOpen(sink, hs)
	waitFor(t, func() bool {
		for _, id := range s.Clients() {
			if id == hs.ClientID {
				return true
			}
		}
		return false
	})
	return sink, hs.ClientID
}

// closeConn mimics the transport reporting a peer disconnect and waits for
// teardown to finish.
func closeConn(t *testing.T, s *Server, clientID string) {
	t.Helper()
	s.HandleClose(clientID)
	waitFor(t, func() bool {
		for _, id := range s.Clients() {
			if id == clientID {
				return false
			}
		}
		return true
	})
}

// sendFrame marshals and delivers one inbound frame.
func sendFrame(t *testing.T, s *Server, clientID, route string, payload any, rpcID string) {
	t.Helper()
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		require.NoError(t, err)
		raw = b
	}
	data, err := json.Marshal(inboundFrame{Type: route, Payload: raw, RPCID: rpcID})
	require.NoError(t, err)
	s.HandleMessage(clientID, data)
}

// waitFor polls cond until it holds or the deadline expires.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached within deadline")
}

// settle gives asynchronous dispatch a moment, for asserting that nothing
// happened.
func settle() {
	time.Sleep(50 * time.Millisecond)
}
