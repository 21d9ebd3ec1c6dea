// Package store persists session snapshots in LevelDB.
package store

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/woozymasta/geoarea/internal/session"

	"github.com/rs/zerolog/log"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// ErrNotFound is returned when no snapshot exists for a session id.
var ErrNotFound = errors.New("session not found")

const keyPrefix = "session:"

// Store keeps one snapshot per session id.
type Store struct {
	db *leveldb.DB
}

// Open opens or creates the database directory at path.
func Open(path string) (*Store, error) {
	db, err := leveldb.OpenFile(path, &opt.Options{})
	if err != nil {
		return nil, fmt.Errorf("open store %q: %w", path, err)
	}

	log.Debug().Str("path", path).Msg("Session store opened")
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func key(id string) []byte {
	return []byte(keyPrefix + id)
}

// Save writes the snapshot, replacing any previous one.
func (s *Store) Save(snap session.Snapshot) error {
	if snap.ID == "" {
		return errors.New("save session: empty id")
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("save session %s: %w", snap.ID, err)
	}
	if err := s.db.Put(key(snap.ID), data, nil); err != nil {
		return fmt.Errorf("save session %s: %w", snap.ID, err)
	}
	return nil
}

// Load reads the snapshot of a session.
func (s *Store) Load(id string) (session.Snapshot, error) {
	data, err := s.db.Get(key(id), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return session.Snapshot{}, ErrNotFound
	}
	if err != nil {
		return session.Snapshot{}, fmt.Errorf("load session %s: %w", id, err)
	}

	var snap session.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return session.Snapshot{}, fmt.Errorf("decode session %s: %w", id, err)
	}
	return snap, nil
}

// Delete removes a snapshot. Deleting a missing id is not an error.
func (s *Store) Delete(id string) error {
	if err := s.db.Delete(key(id), nil); err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}

// List returns the ids of all stored sessions in key order.
func (s *Store) List() ([]string, error) {
	iter := s.db.NewIterator(util.BytesPrefix([]byte(keyPrefix)), nil)
	defer iter.Release()

	var ids []string
	for iter.Next() {
		ids = append(ids, string(iter.Key()[len(keyPrefix):]))
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return ids, nil
}
