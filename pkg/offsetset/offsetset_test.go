package offsetset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graft-kv/graft/pkg/graft"
)

func TestFromOffsetsAndContains(t *testing.T) {
	s := FromOffsets([]graft.PageOffset{3, 1, 4, 1, 5})
	assert.EqualValues(t, 4, s.Cardinality())
	assert.True(t, s.Contains(1))
	assert.True(t, s.Contains(3))
	assert.False(t, s.Contains(2))
}

func TestOffsetsAscending(t *testing.T) {
	s := FromOffsets([]graft.PageOffset{9, 2, 5})
	assert.Equal(t, []graft.PageOffset{2, 5, 9}, s.Offsets())
}

func TestMaxOffsetEmpty(t *testing.T) {
	_, ok := New().MaxOffset()
	assert.False(t, ok)
}

func TestMaxOffset(t *testing.T) {
	s := FromOffsets([]graft.PageOffset{3, 1, 9, 4})
	max, ok := s.MaxOffset()
	require.True(t, ok)
	assert.EqualValues(t, 9, max)
}

func TestSerializeDeserializeRoundTrip(t *testing.T) {
	s := FromOffsets([]graft.PageOffset{0, 100, 200, 65536})
	b, err := s.Serialize()
	require.NoError(t, err)

	decoded, err := Deserialize(b)
	require.NoError(t, err)
	assert.Equal(t, s.Offsets(), decoded.Offsets())
}

func TestDeserializeRejectsGarbage(t *testing.T) {
	_, err := Deserialize([]byte{0xFF, 0xFF, 0xFF})
	assert.Error(t, err)
}
