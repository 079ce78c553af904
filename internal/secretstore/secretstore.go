// Package secretstore persists the node's license keys and API secrets to
// a single MessagePack-encoded key-value file under the user data dir, as
// named by the configuration surface (querent_secrets.<ext>). Encoding
// choice is grounded on github.com/hashicorp/go-msgpack/v2, already present
// transitively in the retrieved example pack's raft-based stack.
package secretstore

import (
	"os"
	"sync"

	"github.com/hashicorp/go-msgpack/v2/codec"
)

// Store is a file-backed, mutex-guarded secret KV. It is not meant for
// high write volume: secrets change rarely (license renewal, key
// rotation), so every Set re-encodes and rewrites the whole file.
type Store struct {
	path string

	mu     sync.RWMutex
	values map[string]string
}

// Open loads path if it exists, or starts with an empty store if it does
// not.
func Open(path string) (*Store, error) {
	s := &Store{path: path, values: make(map[string]string)}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, err
	}
	if len(data) == 0 {
		return s, nil
	}
	dec := codec.NewDecoderBytes(data, &codec.MsgpackHandle{})
	if err := dec.Decode(&s.values); err != nil {
		return nil, err
	}
	return s, nil
}

// Get returns the secret named key.
func (s *Store) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// Set stores value under key and flushes the whole store to disk.
func (s *Store) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return s.flushLocked()
}

// Delete removes key and flushes, if key was present.
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.values[key]; !ok {
		return nil
	}
	delete(s.values, key)
	return s.flushLocked()
}

func (s *Store) flushLocked() error {
	var buf []byte
	enc := codec.NewEncoderBytes(&buf, &codec.MsgpackHandle{})
	if err := enc.Encode(s.values); err != nil {
		return err
	}
	return os.WriteFile(s.path, buf, 0o600)
}
