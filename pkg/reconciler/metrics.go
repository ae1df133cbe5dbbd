// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
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

package reconciler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Reconcile cycle metrics
	cycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "taxis_reconcile_cycle_duration_seconds",
			Help:    "Duration of one reconciliation cycle in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
		},
	)
	cyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taxis_reconcile_cycles_total",
			Help: "Total number of reconciliation cycles",
		},
		[]string{"outcome"},
	)

	// Drift and correction metrics
	driftsDetected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taxis_drift_detections_total",
			Help: "Total number of drift findings by kind",
		},
		[]string{"kind"},
	)
	prunesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "taxis_prunes_total",
			Help: "Total number of orphaned live resources deleted",
		},
	)
)
