/*
   Copyright 2025 The DIRPX Authors.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

package dispatcher

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Dispatch outcomes used as metric labels.
const (
	OutcomeOK           = "ok"
	OutcomeError        = "error"
	OutcomeNotFound     = "not_found"
	OutcomeUnresolvable = "unresolvable"
	OutcomeViolation    = "pipeline_violation"
)

// Invocation targets used as metric labels.
const (
	TargetHandler = "handler"
	TargetSelf    = "self"
	TargetNone    = "none"
)

// Metrics holds the dispatch collectors.
type Metrics struct {
	Dispatches *prometheus.CounterVec
	Duration   *prometheus.HistogramVec
	Discovered prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered. Collectors already registered by an earlier
// call are reused.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "svx",
			Name:      "dispatch_total",
			Help:      "Service dispatches by outcome and invocation target.",
		}, []string{"outcome", "target"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "svx",
			Name:      "dispatch_duration_seconds",
			Help:      "Service dispatch latency by outcome.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		Discovered: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "svx",
			Name:      "discovered_mappings",
			Help:      "Service to handler mappings found by the last discovery.",
		}),
	}
	if reg == nil {
		return m, nil
	}

	var err error
	if m.Dispatches, err = register(reg, m.Dispatches); err != nil {
		return nil, err
	}
	if m.Duration, err = register(reg, m.Duration); err != nil {
		return nil, err
	}
	if m.Discovered, err = register(reg, m.Discovered); err != nil {
		return nil, err
	}
	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (m *Metrics) observe(outcome, target string, start time.Time) {
	if m == nil {
		return
	}
	m.Dispatches.WithLabelValues(outcome, target).Inc()
	m.Duration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
}

// SetDiscovered records the size of the discovered mapping.
func (m *Metrics) SetDiscovered(n int) {
	if m == nil {
		return
	}
	m.Discovered.Set(float64(n))
}
