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
	// CheckpointsApplied tracks checkpoints applied to a game context.
	CheckpointsApplied = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "checkpoint",
			Name:      "applied_total",
			Help:      "Total number of checkpoints applied by outcome",
		},
		[]string{"status"}, // success, failure
	)

	// MerkleProofsVerified tracks Merkle inclusion proof verifications
	// performed while reconciling off-chain deltas against an on-chain
	// checkpoint root.
	MerkleProofsVerified = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "checkpoint",
			Name:      "merkle_proofs_verified_total",
			Help:      "Total number of Merkle proof verifications by outcome",
		},
		[]string{"status"}, // valid, invalid
	)

	// BacklogEntriesReplayed tracks entries replayed from a Backlogs
	// broadcast frame during catch-up.
	BacklogEntriesReplayed = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "checkpoint",
			Name:      "backlog_entries_replayed_total",
			Help:      "Total number of backlog entries replayed during catch-up",
		},
	)

	// CheckpointApplyDuration tracks how long applying a checkpoint
	// (decode, Merkle verify, handler state swap) takes.
	CheckpointApplyDuration = promauto.With(Registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "checkpoint",
			Name:      "apply_duration_seconds",
			Help:      "Duration of applying a checkpoint to a game context",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 15),
		},
	)

	// ProfileLoads tracks profile lookups through the profile loader.
	ProfileLoads = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "profile",
			Name:      "loads_total",
			Help:      "Total number of profile loads by cache outcome",
		},
		[]string{"cache"}, // hit, miss
	)

	// ProfileLoadDuration tracks profile fetch latency on a cache miss.
	ProfileLoadDuration = promauto.With(Registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "profile",
			Name:      "load_duration_seconds",
			Help:      "Duration of fetching a profile on a cache miss",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		},
	)
)
