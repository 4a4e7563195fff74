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

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sage-x-project/race/internal/logger"
)

func TestJSONAccountDecoderDecodesAllFields(t *testing.T) {
	raw := []byte(`{
		"game_id": 7,
		"max_players": 4,
		"access_version": 10,
		"settle_version": 2,
		"checkpoint_access_version": 8,
		"init_data": "aGVsbG8="
	}`)

	account, err := jsonAccountDecoder{}.Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, 7, account.GameId)
	assert.Equal(t, uint16(4), account.MaxPlayers)
	assert.Equal(t, uint64(10), account.AccessVersion)
	assert.Equal(t, uint64(2), account.SettleVersion)
	assert.Equal(t, uint64(8), account.CheckpointAccessVersion)
	assert.Equal(t, []byte("hello"), account.InitData)
}

func TestJSONAccountDecoderRejectsInvalidJSON(t *testing.T) {
	_, err := jsonAccountDecoder{}.Decode([]byte("not json"))
	assert.Error(t, err)
}

func TestParseLevelMapsKnownNames(t *testing.T) {
	assert.Equal(t, logger.DebugLevel, parseLevel("debug"))
	assert.Equal(t, logger.WarnLevel, parseLevel("warn"))
	assert.Equal(t, logger.ErrorLevel, parseLevel("error"))
	assert.Equal(t, logger.InfoLevel, parseLevel("info"))
	assert.Equal(t, logger.InfoLevel, parseLevel("unknown"))
}

func TestFileKeyStorageRoundTrips(t *testing.T) {
	ks, err := newFileKeyStorage(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, ks.Store("node-1:rsa", []byte("secret-bytes")))
	got, err := ks.Load("node-1:rsa")
	require.NoError(t, err)
	assert.Equal(t, []byte("secret-bytes"), got)
}
