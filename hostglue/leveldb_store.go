package hostglue

import (
	"errors"

	"github.com/syndtr/goleveldb/leveldb"
)

// LevelDBStore is a fake AccountStore backed by goleveldb (SPEC_FULL.md
// "C10 — host glue storage backend"): a real byte-oriented KV engine
// standing in for the host runtime's account buffers, so allocator
// growth and write-log commit/rollback are exercised against actual
// disk-shaped storage semantics rather than a bare Go slice.
type LevelDBStore struct {
	db *leveldb.DB
}

// NewLevelDBStore opens (creating if necessary) a goleveldb database at
// dir to back a LevelDBStore.
func NewLevelDBStore(dir string) (*LevelDBStore, error) {
	db, err := leveldb.OpenFile(dir, nil)
	if err != nil {
		return nil, err
	}
	return &LevelDBStore{db: db}, nil
}

// Get returns the bytes stored at key, if any.
func (s *LevelDBStore) Get(key string) ([]byte, bool, error) {
	data, err := s.db.Get([]byte(key), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Put stores (or overwrites) the bytes at key.
func (s *LevelDBStore) Put(key string, data []byte) error {
	return s.db.Put([]byte(key), data, nil)
}

// Close releases the underlying database handle.
func (s *LevelDBStore) Close() error {
	return s.db.Close()
}
