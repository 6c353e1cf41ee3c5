package storage_test

import (
	"context"
	"testing"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoCodeAlone/split-go-core/dto"
	"github.com/GoCodeAlone/split-go-core/storage"
)

func TestFlagStorageGetReturnsMostRecentPut(t *testing.T) {
	fs := storage.NewFlagStorage(nil)
	assert.Nil(t, fs.Get("f1"))

	fs.Put(&dto.Flag{Name: "f1", TrafficTypeName: "user", ChangeNumber: 1})
	require.NotNil(t, fs.Get("f1"))
	assert.EqualValues(t, 1, fs.Get("f1").ChangeNumber)

	fs.Put(&dto.Flag{Name: "f1", TrafficTypeName: "user", ChangeNumber: 2})
	assert.EqualValues(t, 2, fs.Get("f1").ChangeNumber)
}

// Traffic-type refcount: two flags share traffic type "user"; removing
// one leaves the type valid, removing both makes it invalid, and an
// exhaustion event fires exactly once, at the second removal.
func TestTrafficTypeRefcount(t *testing.T) {
	var captured []cloudevents.Event
	fs := storage.NewFlagStorage(func(_ context.Context, e cloudevents.Event) { captured = append(captured, e) })

	fs.Put(&dto.Flag{Name: "f1", TrafficTypeName: "user"})
	fs.Put(&dto.Flag{Name: "f2", TrafficTypeName: "user"})
	assert.True(t, fs.IsValidTrafficType("user"))

	fs.Remove("f1")
	assert.True(t, fs.IsValidTrafficType("user"), "still referenced by f2")
	assert.Empty(t, captured)

	fs.Remove("f2")
	assert.False(t, fs.IsValidTrafficType("user"))
	require.Len(t, captured, 1)
	assert.Equal(t, storage.EventTypeTrafficTypeExhausted, captured[0].Type())
}

func TestTrafficTypeRefcountOnPutReassignment(t *testing.T) {
	fs := storage.NewFlagStorage(nil)
	fs.Put(&dto.Flag{Name: "f1", TrafficTypeName: "user"})
	assert.True(t, fs.IsValidTrafficType("user"))

	fs.Put(&dto.Flag{Name: "f1", TrafficTypeName: "account"})
	assert.False(t, fs.IsValidTrafficType("user"))
	assert.True(t, fs.IsValidTrafficType("account"))
}

func TestKillLocallyIsNoOpUnlessNewer(t *testing.T) {
	fs := storage.NewFlagStorage(nil)
	fs.Put(&dto.Flag{Name: "f1", DefaultTreatment: "on", ChangeNumber: 5})

	fs.KillLocally("f1", "off", 5)
	assert.False(t, fs.Get("f1").Killed, "changeNumber == stored must be a no-op")

	fs.KillLocally("f1", "off", 3)
	assert.False(t, fs.Get("f1").Killed, "changeNumber < stored must be a no-op")

	fs.KillLocally("f1", "off", 6)
	assert.True(t, fs.Get("f1").Killed)
	assert.Equal(t, "off", fs.Get("f1").DefaultTreatment)
	assert.EqualValues(t, 6, fs.Get("f1").ChangeNumber)

	fs.KillLocally("f1", "ignored", 6)
	assert.Equal(t, "off", fs.Get("f1").DefaultTreatment, "idempotent at the same changeNumber")
}

func TestFlagStorageChangeNumberCursor(t *testing.T) {
	fs := storage.NewFlagStorage(nil)
	assert.EqualValues(t, -1, fs.ChangeNumber())

	// The cursor is independent of stored flag contents.
	fs.Put(&dto.Flag{Name: "f1", TrafficTypeName: "user", ChangeNumber: 12})
	assert.EqualValues(t, -1, fs.ChangeNumber())

	fs.SetChangeNumber(5)
	assert.EqualValues(t, 5, fs.ChangeNumber())

	fs.Remove("f1")
	assert.EqualValues(t, 5, fs.ChangeNumber())
}

func TestFetchManyMapsMissesToNil(t *testing.T) {
	fs := storage.NewFlagStorage(nil)
	fs.Put(&dto.Flag{Name: "f1"})
	result := fs.FetchMany([]string{"f1", "missing"})
	assert.NotNil(t, result["f1"])
	assert.Nil(t, result["missing"])
}
