package storage

import (
	"fmt"
	"os"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
)

// Key prefixes (simulating column families)
const (
	PrefixBlocks        = "blk:"
	PrefixBlocksByIndex = "bix:"
	PrefixSyncState     = "syn:"
)

// Column family names
const (
	CFBlocks        = "blocks"
	CFBlocksByIndex = "blocks_by_index"
	CFSyncState     = "sync_state"
)

// Column family name to prefix mapping
var cfPrefixes = map[string]string{
	CFBlocks:        PrefixBlocks,
	CFBlocksByIndex: PrefixBlocksByIndex,
	CFSyncState:     PrefixSyncState,
}

// PebbleDB wraps the Pebble database
type PebbleDB struct {
	db       *pebble.DB
	inMemory bool
}

// WriteBatch wraps Pebble's batch for atomic writes
type WriteBatch struct {
	batch *pebble.Batch
	db    *PebbleDB
}

// Iterator wraps Pebble's iterator
type Iterator struct {
	iter *pebble.Iterator
}

// NewPebbleDB opens a Pebble database at path. An empty path keeps the whole
// database in memory.
func NewPebbleDB(path string) (*PebbleDB, error) {
	opts := &pebble.Options{
		Cache:        pebble.NewCache(64 << 20),
		MaxOpenFiles: 500,
	}

	inMemory := path == ""
	if inMemory {
		opts.FS = vfs.NewMem()
	} else if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := pebble.Open(path, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &PebbleDB{db: db, inMemory: inMemory}, nil
}

// Close closes the database
func (p *PebbleDB) Close() error {
	return p.db.Close()
}

// InMemory reports whether the database lives on an in-memory filesystem
func (p *PebbleDB) InMemory() bool {
	return p.inMemory
}

// writeOptions skips fsync when there is no disk behind the database
func (p *PebbleDB) writeOptions() *pebble.WriteOptions {
	if p.inMemory {
		return pebble.NoSync
	}
	return pebble.Sync
}

// prefixKey creates a prefixed key for the given column family
func (p *PebbleDB) prefixKey(cf string, key []byte) ([]byte, error) {
	prefix, ok := cfPrefixes[cf]
	if !ok {
		return nil, fmt.Errorf("column family not found: %s", cf)
	}
	return append([]byte(prefix), key...), nil
}

// Get retrieves a value from the specified column family
func (p *PebbleDB) Get(cf string, key []byte) ([]byte, error) {
	prefixedKey, err := p.prefixKey(cf, key)
	if err != nil {
		return nil, err
	}

	value, closer, err := p.db.Get(prefixedKey)
	if err != nil {
		if err == pebble.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	defer closer.Close()

	// Copy the value since it's only valid until closer.Close()
	result := make([]byte, len(value))
	copy(result, value)
	return result, nil
}

// NewBatch creates a new write batch
func (p *PebbleDB) NewBatch() *WriteBatch {
	return &WriteBatch{
		batch: p.db.NewBatch(),
		db:    p,
	}
}

// WriteBatch writes a batch to the database
func (p *PebbleDB) WriteBatch(batch *WriteBatch) error {
	return batch.batch.Commit(p.writeOptions())
}

// PutBatch adds a put operation to the batch
func (p *PebbleDB) PutBatch(batch *WriteBatch, cf string, key, value []byte) error {
	prefixedKey, err := p.prefixKey(cf, key)
	if err != nil {
		return err
	}
	return batch.batch.Set(prefixedKey, value, nil)
}

// DeleteBatch adds a delete operation to the batch
func (p *PebbleDB) DeleteBatch(batch *WriteBatch, cf string, key []byte) error {
	prefixedKey, err := p.prefixKey(cf, key)
	if err != nil {
		return err
	}
	return batch.batch.Delete(prefixedKey, nil)
}

// ClearBatch adds a deletion of every key in the column family to the batch
func (p *PebbleDB) ClearBatch(batch *WriteBatch, cf string) error {
	prefix, ok := cfPrefixes[cf]
	if !ok {
		return fmt.Errorf("column family not found: %s", cf)
	}
	start := []byte(prefix)
	return batch.batch.DeleteRange(start, prefixUpperBound(start), nil)
}

// Destroy closes the batch and releases resources
func (b *WriteBatch) Destroy() {
	b.batch.Close()
}

// NewPrefixIterator creates an iterator over keys of cf starting at seek.
// Iteration stops at the end of the column family.
func (p *PebbleDB) NewPrefixIterator(cf string, seek []byte) (*Iterator, error) {
	cfPrefix, ok := cfPrefixes[cf]
	if !ok {
		return nil, fmt.Errorf("column family not found: %s", cf)
	}

	cfPrefixBytes := []byte(cfPrefix)
	iter, err := p.db.NewIter(&pebble.IterOptions{
		LowerBound: cfPrefixBytes,
		UpperBound: prefixUpperBound(cfPrefixBytes),
	})
	if err != nil {
		return nil, err
	}

	iter.SeekGE(append(append([]byte{}, cfPrefixBytes...), seek...))
	return &Iterator{iter: iter}, nil
}

// prefixUpperBound returns the upper bound for prefix iteration
func prefixUpperBound(prefix []byte) []byte {
	if len(prefix) == 0 {
		return nil
	}
	upper := make([]byte, len(prefix))
	copy(upper, prefix)
	for i := len(upper) - 1; i >= 0; i-- {
		if upper[i] < 0xff {
			upper[i]++
			return upper[:i+1]
		}
	}
	return nil
}

// Iterator methods

// Valid returns true if the iterator is positioned at a valid key
func (i *Iterator) Valid() bool {
	return i.iter.Valid()
}

// Next advances the iterator to the next key
func (i *Iterator) Next() bool {
	return i.iter.Next()
}

// Value returns the current value
func (i *Iterator) Value() []byte {
	return i.iter.Value()
}

// Close closes the iterator
func (i *Iterator) Close() error {
	return i.iter.Close()
}
