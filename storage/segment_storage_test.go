package storage_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/GoCodeAlone/split-go-core/storage"
)

func TestSegmentStorageUnknownSegmentContainsNobody(t *testing.T) {
	ss := storage.NewSegmentStorage()
	assert.False(t, ss.Contains("unknown", "key1"))
	assert.EqualValues(t, -1, ss.ChangeNumber("unknown"))
}

// Update applies both the added and the removed keys of a delta and
// advances the segment's change number.
func TestSegmentStorageUpdateAppliesDelta(t *testing.T) {
	ss := storage.NewSegmentStorage()
	ss.Update("employees", []string{"alice", "bob"}, nil, 1)
	assert.True(t, ss.Contains("employees", "alice"))
	assert.True(t, ss.Contains("employees", "bob"))
	assert.EqualValues(t, 1, ss.ChangeNumber("employees"))

	ss.Update("employees", []string{"carol"}, []string{"bob"}, 2)
	assert.True(t, ss.Contains("employees", "alice"))
	assert.False(t, ss.Contains("employees", "bob"))
	assert.True(t, ss.Contains("employees", "carol"))
	assert.EqualValues(t, 2, ss.ChangeNumber("employees"))
}

func TestSegmentStorageSetChangeNumberNoOpForUnknown(t *testing.T) {
	ss := storage.NewSegmentStorage()
	ss.SetChangeNumber("never-seen", 99)
	assert.EqualValues(t, -1, ss.ChangeNumber("never-seen"))

	ss.Update("known", nil, nil, 1)
	ss.SetChangeNumber("known", 5)
	assert.EqualValues(t, 5, ss.ChangeNumber("known"))
}
