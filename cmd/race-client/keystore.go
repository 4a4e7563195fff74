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
	"fmt"
	"os"
	"path/filepath"
)

// fileKeyStorage persists a node's key material as one file per id
// under a directory, matching encryptor.KeyStorage.
type fileKeyStorage struct {
	dir string
}

func newFileKeyStorage(dir string) (*fileKeyStorage, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("keystore: create dir: %w", err)
	}
	return &fileKeyStorage{dir: dir}, nil
}

func (s *fileKeyStorage) Store(id string, priv []byte) error {
	return os.WriteFile(filepath.Join(s.dir, id+".key"), priv, 0o600)
}

func (s *fileKeyStorage) Load(id string) ([]byte, error) {
	return os.ReadFile(filepath.Join(s.dir, id+".key"))
}
