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

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChiChuRita/zocket"
)

func TestConnectionGauge(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	rec := New(reg)

	rec.ConnectionOpened("a")
	rec.ConnectionOpened("b")
	assert.Equal(t, 2.0, testutil.ToFloat64(rec.connections))

	rec.ConnectionClosed("a")
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.connections))
}

func TestFrameCounters(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	rec := New(reg)

	rec.FrameDispatched("chat.send", zocket.OutcomeOK, 5*time.Millisecond)
	rec.FrameDispatched("chat.send", zocket.OutcomeOK, 3*time.Millisecond)
	rec.FrameDispatched("chat.send", zocket.OutcomeInvalidPayload, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(rec.frames.WithLabelValues("chat.send", zocket.OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.frames.WithLabelValues("chat.send", zocket.OutcomeInvalidPayload)))
}

func TestUnmatchedFramesCollapseRouteLabel(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	rec := New(reg)

	// Attacker-chosen route names must not mint new label values.
	rec.FrameDispatched("made.up.route", zocket.OutcomeUnknownRoute, time.Millisecond)
	rec.FrameDispatched("another.fake", zocket.OutcomeUnknownRoute, time.Millisecond)
	rec.FrameDispatched("", zocket.OutcomeMalformed, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(rec.frames.WithLabelValues("_unmatched", zocket.OutcomeUnknownRoute)))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.frames.WithLabelValues("_unmatched", zocket.OutcomeMalformed)))
	assert.Equal(t, 0.0, testutil.ToFloat64(rec.frames.WithLabelValues("made.up.route", zocket.OutcomeUnknownRoute)))
}

func TestSendFailures(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	rec := New(reg)

	rec.SendFailed("news.onTick")
	rec.SendFailed("news.onTick")
	assert.Equal(t, 2.0, testutil.ToFloat64(rec.sendFailures.WithLabelValues("news.onTick")))
}

func TestCollectorsRegistered(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	rec := New(reg)
	rec.FrameDispatched("r", zocket.OutcomeOK, time.Millisecond)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "zocket_frames_total")
	assert.Contains(t, names, "zocket_dispatch_duration_seconds")
}
