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
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRegistration(t *testing.T) {
	require.NotNil(t, AttachesStarted)
	require.NotNil(t, ConnectionState)
	require.NotNil(t, ReconnectAttempts)
	require.NotNil(t, FramesDispatched)
	require.NotNil(t, EventsHandled)
	require.NotNil(t, StateShaMismatches)
	require.NotNil(t, OperationTimeouts)

	require.NotNil(t, RandomOperations)
	require.NotNil(t, DecisionOperations)

	require.NotNil(t, CheckpointsApplied)
	require.NotNil(t, MerkleProofsVerified)
	require.NotNil(t, ProfileLoads)
}

func TestMetricsIncrement(t *testing.T) {
	AttachesStarted.WithLabelValues("success").Inc()
	ReconnectAttempts.WithLabelValues("success").Inc()
	FramesDispatched.WithLabelValues("event").Inc()
	EventsHandled.WithLabelValues("mask").Inc()
	RandomOperations.WithLabelValues("mask", "success").Inc()
	DecisionOperations.WithLabelValues("answer", "success").Inc()
	CheckpointsApplied.WithLabelValues("success").Inc()
	MerkleProofsVerified.WithLabelValues("valid").Inc()
	ProfileLoads.WithLabelValues("miss").Inc()

	assert.NotZero(t, testutil.CollectAndCount(AttachesStarted))
	assert.NotZero(t, testutil.CollectAndCount(RandomOperations))
	assert.NotZero(t, testutil.CollectAndCount(CheckpointsApplied))
}

func TestCollectorSnapshotComputesRatesAndPercentiles(t *testing.T) {
	c := NewCollector()

	c.RecordFrameDispatch(1 * time.Millisecond)
	c.RecordFrameDispatch(3 * time.Millisecond)
	c.RecordReconnect(true)
	c.RecordReconnect(false)
	c.RecordStateShaMismatch()
	c.RecordRandomOperation(2 * time.Millisecond)
	c.RecordDecisionOperation()
	c.RecordProfileLoad(true)
	c.RecordProfileLoad(false)
	c.RecordProfileLoad(false)
	c.RecordCheckpointApply(true, 5*time.Millisecond)
	c.RecordCheckpointApply(false, 7*time.Millisecond)

	snap := c.Snapshot()
	assert.Equal(t, int64(2), snap.EventsHandled)
	assert.Equal(t, int64(1), snap.ReconnectSuccesses)
	assert.Equal(t, int64(1), snap.ReconnectFailures)
	assert.Equal(t, int64(1), snap.StateShaMismatches)
	assert.Equal(t, int64(1), snap.RandomOperations)
	assert.Equal(t, int64(1), snap.DecisionOperations)
	assert.Equal(t, int64(2), snap.CheckpointsApplied)
	assert.Equal(t, int64(1), snap.CheckpointFailures)

	assert.InDelta(t, 50.0, snap.ReconnectSuccessRate(), 0.001)
	assert.InDelta(t, 1.0/3.0*100, snap.ProfileCacheHitRate(), 0.001)
	assert.InDelta(t, 50.0, snap.CheckpointFailureRate(), 0.001)
	assert.Greater(t, snap.AvgFrameDispatchTime, 0.0)
	assert.NotZero(t, snap.P95CheckpointApplyTime)
}

func TestCollectorResetClearsState(t *testing.T) {
	c := NewCollector()
	c.RecordFrameDispatch(time.Millisecond)
	c.RecordReconnect(true)

	c.Reset()

	snap := c.Snapshot()
	assert.Zero(t, snap.EventsHandled)
	assert.Zero(t, snap.ReconnectSuccesses)
}

func TestGetGlobalCollectorReturnsSameInstance(t *testing.T) {
	assert.Same(t, GetGlobalCollector(), GetGlobalCollector())
}
