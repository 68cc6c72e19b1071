// Package kv defines the contract the volume store demands from its
// embedded key-value substrate (§4.1 of the specification): named
// partitions, atomic multi-partition write batches, consistent
// point-in-time read snapshots, and prefix/range-scannable iterators.
package kv

// Partition names the volume store's three named partitions. Keeping
// them as a closed set (rather than free-form strings at every call
// site) mirrors the teacher's bucket-name constants
// (pkg/storage/boltdb.go's bucketNodes/bucketServices/...).
type Partition string

const (
	// PartitionVolumeState holds VolumeStateKey -> {VolumeConfig,
	// Snapshot, Watermarks, Status} records.
	PartitionVolumeState Partition = "volume_state"

	// PartitionPages holds PageKey -> PageValue records. Large-value
	// separation is hinted for this partition (§4.1): callers must never
	// range-scan it for anything but PageKey ordering.
	PartitionPages Partition = "pages"

	// PartitionCommits holds CommitKey -> serialized offset-set records.
	// Large-value separation is hinted here too.
	PartitionCommits Partition = "commits"
)

// AllPartitions lists every partition the store needs created at open
// time.
var AllPartitions = []Partition{
	PartitionVolumeState,
	PartitionPages,
	PartitionCommits,
}

// KV is a single key/value pair yielded by an iterator.
type KV struct {
	Key   []byte
	Value []byte
}

// Reader is the read-only surface available both inside a snapshot (View)
// and, incidentally, inside a read-write batch (Update) before it applies
// its writes.
type Reader interface {
	// Get returns the value stored at key in the given partition, and
	// whether it was present.
	Get(partition Partition, key []byte) (value []byte, ok bool, err error)

	// ScanPrefix returns every key/value pair in the partition whose key
	// has the given prefix, in ascending key order.
	ScanPrefix(partition Partition, prefix []byte) ([]KV, error)

	// ScanRange returns every key/value pair in the partition with
	// start <= key <= end, in ascending key order.
	ScanRange(partition Partition, start, end []byte) ([]KV, error)

	// ScanRangeReverse is like ScanRange but in descending key order. It
	// collects the whole range; the read path uses SeekLast instead to
	// find the most recent page version in a single step.
	ScanRangeReverse(partition Partition, start, end []byte) ([]KV, error)

	// SeekLast returns the last key/value pair with start <= key <= end,
	// i.e. the range-then-next_back() lookup spec.md §4.2 describes,
	// without materializing the whole range.
	SeekLast(partition Partition, start, end []byte) (kv KV, ok bool, err error)
}

// Writer is the write surface available inside a read-write batch.
type Writer interface {
	Reader
	Put(partition Partition, key, value []byte)
	Delete(partition Partition, key []byte)
}

// Substrate is the contract the volume store demands from its embedded
// KV engine (§4.1). A concrete substrate must make write batches atomic
// and durable across partitions, and must give read snapshots a
// consistent, non-moving view that never observes a concurrent batch's
// partial effects.
type Substrate interface {
	// View runs fn against a consistent read-only snapshot. No
	// store-level lock is required around View (§4.1 "Read-only
	// transactions").
	View(fn func(r Reader) error) error

	// Update runs fn against a read-write batch; fn's writes are applied
	// atomically (all-or-nothing) when fn returns nil, and discarded if
	// fn returns an error. Callers needing the optimistic-concurrency
	// re-read-then-write pattern (§4.1 "Read-then-write transactions")
	// must hold their own external lock across the whole call — Update
	// alone only guarantees atomicity of the write, not isolation from
	// concurrent Updates.
	Update(fn func(w Writer) error) error

	// Close releases the substrate's resources.
	Close() error
}
