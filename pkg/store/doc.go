// Package store implements the Graft volume store: the local commit
// path, remote apply path, sync coordinator, read path, and transaction
// façade, all built on top of internal/kv's substrate contract and
// pkg/schema's key/value encodings.
//
// A single commit mutex serializes every read-then-write operation
// across all volumes; read transactions need no lock because the
// substrate gives them a consistent point-in-time snapshot directly.
package store
