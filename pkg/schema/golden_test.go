package schema

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/graft-kv/graft/pkg/graft"
)

// These pin the exact on-disk byte layouts against fixtures so a later
// change to field order or endianness shows up as a diff here instead
// of silently breaking compatibility with an existing database. Run
// with -update to regenerate after a deliberate layout change.

func TestGoldenPageKeyLayout(t *testing.T) {
	var vid graft.VolumeId
	for i := range vid {
		vid[i] = byte(i)
	}
	key := PageKey{Vid: vid, Offset: 7, LSN: 42}

	g := goldie.New(t)
	g.Assert(t, "page_key", key.Encode())
}

func TestGoldenSnapshotLayout(t *testing.T) {
	s := Snapshot{LocalLSN: 9, RemoteLSN: 5, RemotePresent: true, Pages: 3}

	g := goldie.New(t)
	g.Assert(t, "snapshot", s.Encode())
}
