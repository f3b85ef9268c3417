package storage

import (
	"fmt"
	"strconv"
)

var tipKey = []byte("tip")

// SyncStore tracks how far the block index has caught up with the ledger
type SyncStore struct {
	db *PebbleDB
}

// NewSyncStore creates a new SyncStore
func NewSyncStore(db *PebbleDB) *SyncStore {
	return &SyncStore{db: db}
}

// GetIndexedHeight retrieves the index of the last indexed block.
// ok is false when nothing has been indexed yet.
func (s *SyncStore) GetIndexedHeight() (height int64, ok bool, err error) {
	data, err := s.db.Get(CFSyncState, tipKey)
	if err != nil {
		return 0, false, err
	}
	if data == nil {
		return 0, false, nil
	}

	height, err = strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("failed to parse indexed height: %w", err)
	}

	return height, true, nil
}

func (s *SyncStore) putBatch(batch *WriteBatch, height int64) error {
	return s.db.PutBatch(batch, CFSyncState, tipKey, []byte(strconv.FormatInt(height, 10)))
}
