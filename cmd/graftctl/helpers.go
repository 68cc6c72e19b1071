package main

import (
	"github.com/google/uuid"

	"github.com/graft-kv/graft/pkg/graft"
	"github.com/graft-kv/graft/pkg/store"
)

// uuidLikeParse parses a volume id given as a standard UUID string
// (VolumeId is laid out identically to a uuid.UUID).
func uuidLikeParse(s string) (graft.VolumeId, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return graft.VolumeId{}, err
	}
	return graft.VolumeId(u), nil
}

// localLSNString renders a volume's local LSN, or "none" if it has
// never committed.
func localLSNString(state store.VolumeState) string {
	if state.Snapshot == nil {
		return "none"
	}
	return lsnOptionString(state.Snapshot.LocalLSN, true)
}
