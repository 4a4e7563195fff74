// Copyright (C) 2025 sage-x-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RandomOperations tracks mental-poker randomization operations.
	RandomOperations = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "random",
			Name:      "operations_total",
			Help:      "Total number of randomization operations by stage and outcome",
		},
		[]string{"stage", "status"}, // mask/lock/reveal/share/decrypt, success/failure
	)

	// RandomOperationDuration tracks per-stage randomization latency.
	RandomOperationDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "random",
			Name:      "operation_duration_seconds",
			Help:      "Duration of a randomization stage operation",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 2, 15), // 10us to 163ms
		},
		[]string{"stage"},
	)

	// RandomStatesActive tracks how many random states the attached
	// game's context holds, whatever their status; a checkpoint resets
	// it to zero.
	RandomStatesActive = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "random",
			Name:      "states_active",
			Help:      "Number of random states held by the game context",
		},
	)

	// SecretsCached tracks secrets inserted into the decryption cache
	// after a peer shares its random secret.
	SecretsCached = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "random",
			Name:      "secrets_cached_total",
			Help:      "Total number of decrypted secrets inserted into the decryption cache",
		},
	)

	// DecisionOperations tracks commit-reveal decision operations.
	DecisionOperations = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "decision",
			Name:      "operations_total",
			Help:      "Total number of decision operations by stage and outcome",
		},
		[]string{"stage", "status"}, // answer/release/share/decrypt, success/failure
	)

	// DecisionOperationDuration tracks per-stage decision latency.
	DecisionOperationDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "decision",
			Name:      "operation_duration_seconds",
			Help:      "Duration of a decision stage operation",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 2, 15),
		},
		[]string{"stage"},
	)
)
