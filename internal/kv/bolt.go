package kv

import (
	"bytes"
	"fmt"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

// BoltSubstrate is the bbolt-backed implementation of Substrate, grounded
// on the teacher's pkg/storage.BoltStore (one bucket per entity,
// Update/View per operation) generalized to byte-ordered partitions with
// prefix/range scans.
//
// bbolt's single-writer-multi-reader MVCC model satisfies §4.1 directly:
// a View transaction is already a consistent point-in-time snapshot that
// never observes a concurrently-running Update's writes, so no extra
// snapshotting machinery is needed on top of it. Partitions map 1:1 onto
// top-level buckets, giving atomic multi-partition batches for free
// inside a single bolt.Tx.
type BoltSubstrate struct {
	db *bolt.DB
}

// Open opens (creating if absent) a bbolt-backed substrate at path,
// idempotently creating every partition bucket.
func Open(path string) (*BoltSubstrate, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt database %s: %w", path, err)
	}
	if err := createPartitions(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &BoltSubstrate{db: db}, nil
}

// OpenTemporary opens a substrate in a fresh temporary directory, for
// tests and ephemeral stores.
func OpenTemporary(dir string) (*BoltSubstrate, error) {
	return Open(filepath.Join(dir, "graft.db"))
}

func createPartitions(db *bolt.DB) error {
	return db.Update(func(tx *bolt.Tx) error {
		for _, p := range AllPartitions {
			if _, err := tx.CreateBucketIfNotExists([]byte(p)); err != nil {
				return fmt.Errorf("create partition %s: %w", p, err)
			}
		}
		return nil
	})
}

func (s *BoltSubstrate) Close() error {
	return s.db.Close()
}

func (s *BoltSubstrate) View(fn func(r Reader) error) error {
	return s.db.View(func(tx *bolt.Tx) error {
		return fn(&boltReader{tx: tx})
	})
}

func (s *BoltSubstrate) Update(fn func(w Writer) error) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return fn(&boltWriter{boltReader{tx: tx}})
	})
}

type boltReader struct {
	tx *bolt.Tx
}

func (r *boltReader) bucket(p Partition) *bolt.Bucket {
	return r.tx.Bucket([]byte(p))
}

func (r *boltReader) Get(partition Partition, key []byte) ([]byte, bool, error) {
	v := r.bucket(partition).Get(key)
	if v == nil {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

func (r *boltReader) ScanPrefix(partition Partition, prefix []byte) ([]KV, error) {
	var out []KV
	c := r.bucket(partition).Cursor()
	for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
		out = append(out, copyKV(k, v))
	}
	return out, nil
}

func (r *boltReader) ScanRange(partition Partition, start, end []byte) ([]KV, error) {
	var out []KV
	c := r.bucket(partition).Cursor()
	for k, v := c.Seek(start); k != nil && bytes.Compare(k, end) <= 0; k, v = c.Next() {
		out = append(out, copyKV(k, v))
	}
	return out, nil
}

func (r *boltReader) ScanRangeReverse(partition Partition, start, end []byte) ([]KV, error) {
	var out []KV
	c := r.bucket(partition).Cursor()
	k, v := seekLastLE(c, end)
	for k != nil && bytes.Compare(k, start) >= 0 {
		out = append(out, copyKV(k, v))
		k, v = c.Prev()
	}
	return out, nil
}

func (r *boltReader) SeekLast(partition Partition, start, end []byte) (KV, bool, error) {
	c := r.bucket(partition).Cursor()
	k, v := seekLastLE(c, end)
	if k == nil || bytes.Compare(k, start) < 0 {
		return KV{}, false, nil
	}
	return copyKV(k, v), true, nil
}

// seekLastLE returns the last key/value pair with key <= end, or
// (nil, nil) if the bucket has no such entry. This is the bbolt
// equivalent of the range(..=end).next_back() idiom spec.md §4.2
// describes for an LSM-tree substrate: bbolt's Cursor.Seek finds the
// first key >= target, so the last key <= end is either that exact
// match or one step back.
func seekLastLE(c *bolt.Cursor, end []byte) (k, v []byte) {
	k, v = c.Seek(end)
	if k == nil {
		// nothing >= end in the bucket; the bucket's last key, if any,
		// is necessarily < end.
		return c.Last()
	}
	if bytes.Compare(k, end) > 0 {
		return c.Prev()
	}
	return k, v
}

func copyKV(k, v []byte) KV {
	key := make([]byte, len(k))
	copy(key, k)
	val := make([]byte, len(v))
	copy(val, v)
	return KV{Key: key, Value: val}
}

type boltWriter struct {
	boltReader
}

func (w *boltWriter) Put(partition Partition, key, value []byte) {
	// bbolt's Put error is discarded here, and the commit at the end of
	// Update does not report it either. bbolt returns one only for an
	// empty or oversized key or value, or for a write inside a read-only
	// or closed transaction; Update always hands fn an open, writable
	// transaction, and the store's keys are fixed-size and non-empty.
	_ = w.bucket(partition).Put(key, value)
}

func (w *boltWriter) Delete(partition Partition, key []byte) {
	_ = w.bucket(partition).Delete(key)
}
