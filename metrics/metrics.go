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

// Package metrics provides a Prometheus implementation of the zocket
// observability recorder.
//
// Example:
//
//	reg := prometheus.NewRegistry()
//	s := zocket.MustNew(r, zocket.WithRecorder(metrics.New(reg)))
//	http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ChiChuRita/zocket"
)

// Recorder records connection and dispatch lifecycle events as Prometheus
// metrics. It is safe for concurrent use.
type Recorder struct {
	connections  prometheus.Gauge
	frames       *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	sendFailures *prometheus.CounterVec
}

var _ zocket.Recorder = (*Recorder)(nil)

// New creates a Recorder and registers its collectors with reg. Registering
// twice on the same registry panics, as is usual for Prometheus collectors;
// create one Recorder per server.
func New(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "zocket_connections",
			Help: "Number of live connections.",
		}),
		frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "zocket_frames_total",
			Help: "Inbound frames by route and dispatch outcome.",
		}, []string{"route", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "zocket_dispatch_duration_seconds",
			Help:    "Frame dispatch duration by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		sendFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "zocket_send_failures_total",
			Help: "Failed deliveries to single recipients by route.",
		}, []string{"route"}),
	}
	reg.MustRegister(r.connections, r.frames, r.duration, r.sendFailures)
	return r
}

// ConnectionOpened implements [zocket.Recorder].
func (r *Recorder) ConnectionOpened(string) {
	r.connections.Inc()
}

// ConnectionClosed implements [zocket.Recorder].
func (r *Recorder) ConnectionClosed(string) {
	r.connections.Dec()
}

// FrameDispatched implements [zocket.Recorder]. Frames that never resolved
// to a table entry are counted under the "_unmatched" sentinel rather than
// their raw type, which keeps the label set bounded by the route table.
func (r *Recorder) FrameDispatched(route, outcome string, elapsed time.Duration) {
	if outcome == zocket.OutcomeMalformed || outcome == zocket.OutcomeUnknownRoute {
		route = "_unmatched"
	}
	r.frames.WithLabelValues(route, outcome).Inc()
	r.duration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// SendFailed implements [zocket.Recorder].
func (r *Recorder) SendFailed(route string) {
	r.sendFailures.WithLabelValues(route).Inc()
}
