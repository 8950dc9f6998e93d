/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package securestore

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const fileStorePerm = 0o600

// FileStore persists secrets as a JSON file with owner-only permissions. It
// stands in for platform keychain storage when the wallet runs as a CLI.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore opens or creates a file-backed store at path.
func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create secure store dir: %w", err)
	}

	s := &FileStore{path: path}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err = s.save(map[string]string{}); err != nil {
			return nil, err
		}
	}

	return s, nil
}

func (s *FileStore) Get(key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return nil, err
	}

	encoded, ok := values[key]
	if !ok {
		return nil, ErrDataNotFound
	}

	return base64.StdEncoding.DecodeString(encoded)
}

func (s *FileStore) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return err
	}

	values[key] = base64.StdEncoding.EncodeToString(value)

	return s.save(values)
}

func (s *FileStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return err
	}

	delete(values, key)

	return s.save(values)
}

func (s *FileStore) load() (map[string]string, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read secure store: %w", err)
	}

	values := make(map[string]string)
	if err = json.Unmarshal(b, &values); err != nil {
		return nil, fmt.Errorf("decode secure store: %w", err)
	}

	return values, nil
}

func (s *FileStore) save(values map[string]string) error {
	b, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("encode secure store: %w", err)
	}

	if err = os.WriteFile(s.path, b, fileStorePerm); err != nil {
		return fmt.Errorf("write secure store: %w", err)
	}

	return nil
}
