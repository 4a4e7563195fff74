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

// Package decision implements the single-value commit-reveal primitive of
// the per-player decision machine: ask, answer, release, released.
package decision

import (
	"time"

	"github.com/sage-x-project/race/internal/metrics"
	"github.com/sage-x-project/race/internal/raceerr"
	"github.com/sage-x-project/race/pkg/types"
)

// observeOperation records stage as a success/failure DecisionOperations
// count plus its DecisionOperationDuration, from a timer started at the
// top of the calling stage.
func observeOperation(stage string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	metrics.DecisionOperations.WithLabelValues(stage, status).Inc()
	metrics.DecisionOperationDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// Status is the DecisionState lifecycle.
type Status int

const (
	StatusAsked Status = iota
	StatusAnswered
	StatusReleasing
	StatusReleased
)

// Answer is the owner's commitment: a ciphertext and its digest.
type Answer struct {
	Ciphertext []byte
	Digest     []byte
}

// State is one DecisionState instance.
type State struct {
	Id     uint32
	Owner  types.Address
	Status Status
	Answer *Answer
	Secret []byte
	Value  *string
}

// Ask creates a decision owned by owner, in status asked.
func Ask(id uint32, owner types.Address) *State {
	return &State{Id: id, Owner: owner, Status: StatusAsked}
}

func (s *State) checkOwner(owner types.Address) error {
	if owner != s.Owner {
		return raceerr.New(raceerr.KindInvalidDecisionOwn, string(owner), nil)
	}
	return nil
}

// AnswerDecision records owner's commitment, moving asked -> answered.
func (s *State) AnswerDecision(owner types.Address, ciphertext, digest []byte) (err error) {
	start := time.Now()
	defer func() { observeOperation("answer", start, err) }()

	if err := s.checkOwner(owner); err != nil {
		return err
	}
	if s.Status != StatusAsked {
		return raceerr.New(raceerr.KindInvalidDecisionStat, string(owner), nil)
	}
	s.Answer = &Answer{Ciphertext: ciphertext, Digest: digest}
	s.Status = StatusAnswered
	return nil
}

// Release moves answered -> releasing.
func (s *State) Release() (err error) {
	start := time.Now()
	defer func() { observeOperation("release", start, err) }()

	if s.Status != StatusAnswered {
		return raceerr.New(raceerr.KindInvalidDecisionStat, "", nil)
	}
	s.Status = StatusReleasing
	return nil
}

// AddSecret records owner's reveal secret, moving releasing -> released.
func (s *State) AddSecret(owner types.Address, secret []byte) (err error) {
	start := time.Now()
	defer func() { observeOperation("share", start, err) }()

	if err := s.checkOwner(owner); err != nil {
		return err
	}
	if s.Status != StatusReleasing {
		return raceerr.New(raceerr.KindInvalidDecisionStat, string(owner), nil)
	}
	s.Secret = secret
	s.Status = StatusReleased
	return nil
}

// AddReleased stores the decrypted value once released is reached.
func (s *State) AddReleased(value string) error {
	if s.Status != StatusReleased {
		return raceerr.New(raceerr.KindInvalidDecisionStat, "", nil)
	}
	s.Value = &value
	return nil
}
