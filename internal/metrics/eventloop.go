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
	// AttachesStarted tracks Attach calls.
	AttachesStarted = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "eventloop",
			Name:      "attaches_total",
			Help:      "Total number of Attach calls by outcome",
		},
		[]string{"status"}, // success, failure
	)

	// ConnectionState mirrors the base client's current transport
	// connection state as a gauge (0=disconnected, 1=connected).
	ConnectionState = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "eventloop",
			Name:      "connection_state",
			Help:      "Current transport connection state (1 connected, 0 disconnected)",
		},
	)

	// ReconnectAttempts tracks reconnect attempts after a Disconnected
	// transition.
	ReconnectAttempts = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "eventloop",
			Name:      "reconnect_attempts_total",
			Help:      "Total number of reconnect attempts by outcome",
		},
		[]string{"status"}, // success, failure, exhausted
	)

	// FramesDispatched tracks frames dispatched from the transport
	// stream by kind.
	FramesDispatched = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "eventloop",
			Name:      "frames_dispatched_total",
			Help:      "Total number of stream frames dispatched by kind",
		},
		[]string{"kind"}, // sync, event, message, tx_state, backlogs
	)

	// EventsHandled tracks game events reported to the attach command's
	// OnEvent callback, by event kind.
	EventsHandled = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "eventloop",
			Name:      "events_handled_total",
			Help:      "Total number of game events handled by kind",
		},
		[]string{"kind"},
	)

	// StateShaMismatches tracks detected state hash disagreements
	// between a node's locally-driven handler state and the
	// transactor's broadcast hash.
	StateShaMismatches = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "eventloop",
			Name:      "state_sha_mismatches_total",
			Help:      "Total number of state hash mismatches detected after applying an event",
		},
	)

	// OperationTimeouts tracks operation timeouts scheduled and fired
	// while waiting on a peer's mask/lock/answer contribution.
	OperationTimeouts = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "eventloop",
			Name:      "operation_timeouts_total",
			Help:      "Total number of operation timeouts by outcome",
		},
		[]string{"status"}, // scheduled, fired
	)

	// FrameDispatchDuration tracks how long dispatchFrame takes per
	// frame kind.
	FrameDispatchDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "eventloop",
			Name:      "frame_dispatch_duration_seconds",
			Help:      "Duration of dispatching a single stream frame",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 15), // 0.1ms to 1.6s
		},
		[]string{"kind"},
	)
)
