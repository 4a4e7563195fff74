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

// Package raceerr defines the error taxonomy shared across the engine.
package raceerr

import "fmt"

// Kind classifies an error into the taxonomy of the event loop and the
// mental-poker protocol. Kind is not itself an error type; wrap it with
// New to get one that carries a cause.
type Kind string

const (
	KindAttachFailed               Kind = "AttachFailed"
	KindOnchainDataNotFound        Kind = "OnchainDataNotFound"
	KindHandleEventError           Kind = "HandleEventError"
	KindEventStateShaMismatch      Kind = "EventStateShaMismatch"
	KindCheckpointStateShaMismatch Kind = "CheckpointStateShaMismatch"
	KindInitDataInvalid            Kind = "InitDataInvalid"
	KindReconnectExhausted         Kind = "ReconnectExhausted"

	KindDuplicateOperation  Kind = "DuplicateOperation"
	KindInvalidCiphertexts  Kind = "InvalidCiphertexts"
	KindInvalidOperator     Kind = "InvalidOperator"
	KindInvalidRandomId     Kind = "InvalidRandomId"
	KindInvalidDecisionId   Kind = "InvalidDecisionId"
	KindInvalidDecisionStat Kind = "InvalidDecisionStatus"
	KindInvalidDecisionOwn  Kind = "InvalidDecisionOwner"
	KindInvalidCheckpoint   Kind = "InvalidCheckpoint"
	KindUnknownId           Kind = "UnknownId"
	KindUnknownAddr         Kind = "UnknownAddr"
	KindKeyMissing          Kind = "KeyMissing"
	KindInvalidResult       Kind = "InvalidResult"
	KindDuplicatePosition   Kind = "DuplicatePosition"
	KindDuplicateAddress    Kind = "DuplicateAddress"
)

// Error is the concrete error type for every Kind above.
type Error struct {
	Kind Kind
	Arg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		if e.Arg != "" {
			return fmt.Sprintf("%s(%s): %v", e.Kind, e.Arg, e.Err)
		}
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	if e.Arg != "" {
		return fmt.Sprintf("%s(%s)", e.Kind, e.Arg)
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target shares this error's Kind, so callers can do
// errors.Is(err, raceerr.New(raceerr.KindUnknownId, "", nil)).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New builds an Error of the given kind, optionally naming the offending
// argument (e.g. an id or address) and wrapping a cause.
func New(kind Kind, arg string, cause error) *Error {
	return &Error{Kind: kind, Arg: arg, Err: cause}
}

// Of returns a bare sentinel of kind, suitable for errors.Is comparisons.
func Of(kind Kind) *Error {
	return &Error{Kind: kind}
}
