package graft

import (
	"errors"
	"fmt"
)

// Sentinel errors making up the store's error taxonomy (§7). The store
// returns these values as they are, with no diagnostic note attached;
// callers dispatch on them with errors.Is. The Corrupt* and substrate
// errors are the struct types below, which carry a note (CorruptError)
// or the failing operation (SubstrateError).
var (
	// ErrConcurrentWrite is returned when the optimistic-concurrency
	// check in the local commit path (§4.3 step 5) fails: another commit
	// landed on top of the caller's read snapshot. Callers retry with a
	// fresh snapshot.
	ErrConcurrentWrite = errors.New("graft: concurrent write to volume")

	// ErrVolumeNeedsRecovery is returned when a prior push neither
	// completed nor rolled back (§4.5, §9 Recovery). Callers must invoke
	// ResetVolumeToRemote before issuing any other mutating operation.
	ErrVolumeNeedsRecovery = errors.New("graft: volume needs recovery")

	// ErrRemoteConflict is returned when a remote commit arrives while
	// local commits are unsent (§4.4 step 3). Status is persisted as
	// Conflict; the caller must reset or push first.
	ErrRemoteConflict = errors.New("graft: remote conflict")
)

// CorruptKind enumerates the persisted records whose layout can fail
// validation.
type CorruptKind string

const (
	CorruptKey           CorruptKind = "key"
	CorruptSnapshotValue CorruptKind = "snapshot"
	CorruptVolumeConfig  CorruptKind = "volume_config"
	CorruptVolumeState   CorruptKind = "volume_state"
	CorruptPageValue     CorruptKind = "page"
	CorruptCommitValue   CorruptKind = "commit"
)

// CorruptError reports that a persisted record failed length/layout
// validation on read. It is fatal for the affected volume: the only
// recovery is operator intervention (§7).
type CorruptError struct {
	Kind CorruptKind
	Note string
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("graft: corrupt %s: %s", e.Kind, e.Note)
}

// NewCorruptError builds a CorruptError for the given persisted-record
// kind, with a free-form diagnostic note.
func NewCorruptError(kind CorruptKind, format string, args ...any) *CorruptError {
	return &CorruptError{Kind: kind, Note: fmt.Sprintf(format, args...)}
}

// SubstrateError wraps an error returned by the underlying KV substrate.
type SubstrateError struct {
	Op  string
	Err error
}

func (e *SubstrateError) Error() string {
	return fmt.Sprintf("graft: substrate error during %s: %v", e.Op, e.Err)
}

func (e *SubstrateError) Unwrap() error { return e.Err }

// WrapSubstrateErr wraps err (if non-nil) as a SubstrateError tagged with
// the operation that triggered it. Returns nil if err is nil.
func WrapSubstrateErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &SubstrateError{Op: op, Err: err}
}
