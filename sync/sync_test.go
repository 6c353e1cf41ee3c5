package sync_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoCodeAlone/split-go-core/dto"
	"github.com/GoCodeAlone/split-go-core/storage"
	splitsync "github.com/GoCodeAlone/split-go-core/sync"
	"github.com/GoCodeAlone/split-go-core/transport"
)

type fakeBackend struct {
	splitPages    map[int64]transport.ChangesResponse[dto.Flag]
	segmentPages  map[string][]transport.SegmentChangesResult
	impressionErr error
	eventErr      error
	postedImpr    [][]dto.Impression
	postedEvents  [][]dto.Event
}

// SplitChanges serves the page registered for since, the way a real
// backend would; an unregistered cursor yields an empty caught-up page.
func (f *fakeBackend) SplitChanges(ctx context.Context, since int64) (transport.ChangesResponse[dto.Flag], error) {
	if page, ok := f.splitPages[since]; ok {
		return page, nil
	}
	return transport.ChangesResponse[dto.Flag]{Since: since, Till: since}, nil
}

func (f *fakeBackend) SegmentChanges(ctx context.Context, name string, since int64) (transport.SegmentChangesResult, error) {
	pages := f.segmentPages[name]
	if len(pages) == 0 {
		return transport.SegmentChangesResult{Name: name, Since: since, Till: since}, nil
	}
	page := pages[0]
	f.segmentPages[name] = pages[1:]
	return page, nil
}

func (f *fakeBackend) Auth(ctx context.Context) (transport.AuthResponse, error) {
	return transport.AuthResponse{}, nil
}

func (f *fakeBackend) PostImpressions(ctx context.Context, impressions []dto.Impression) error {
	f.postedImpr = append(f.postedImpr, impressions)
	return f.impressionErr
}

func (f *fakeBackend) PostEvents(ctx context.Context, events []dto.Event) error {
	f.postedEvents = append(f.postedEvents, events)
	return f.eventErr
}

func (f *fakeBackend) PostTelemetry(ctx context.Context, counters map[string]int64, gauges map[string]float64, latencies map[string][23]int64) error {
	return nil
}

func TestFlagSynchronizerAppliesPagesUntilCaughtUp(t *testing.T) {
	backend := &fakeBackend{
		splitPages: map[int64]transport.ChangesResponse[dto.Flag]{
			-1: {Items: []dto.Flag{{Name: "f1", Status: dto.StatusActive, ChangeNumber: 5, TrafficTypeName: "user"}}, Since: -1, Till: 5},
			5:  {Items: []dto.Flag{{Name: "f2", Status: dto.StatusActive, ChangeNumber: 10, TrafficTypeName: "user"}}, Since: 5, Till: 10},
		},
	}
	store := storage.NewFlagStorage(nil)
	synchronizer := splitsync.NewFlagSynchronizer(backend, store, nil)

	require.NoError(t, synchronizer.Synchronize(context.Background()))

	assert.NotNil(t, store.Get("f1"))
	assert.NotNil(t, store.Get("f2"))
	assert.EqualValues(t, 10, store.ChangeNumber())
}

func TestFlagSynchronizerRemovesArchivedFlags(t *testing.T) {
	store := storage.NewFlagStorage(nil)
	store.Put(&dto.Flag{Name: "f1", TrafficTypeName: "user", ChangeNumber: 1})
	store.SetChangeNumber(1)

	backend := &fakeBackend{
		splitPages: map[int64]transport.ChangesResponse[dto.Flag]{
			1: {Items: []dto.Flag{{Name: "f1", Status: dto.StatusArchived, ChangeNumber: 2}}, Since: 1, Till: 2},
		},
	}
	synchronizer := splitsync.NewFlagSynchronizer(backend, store, nil)
	require.NoError(t, synchronizer.Synchronize(context.Background()))

	assert.Nil(t, store.Get("f1"))
	assert.EqualValues(t, 2, store.ChangeNumber())
}

// A page whose only item is an archived flag the storage has never seen
// must still advance the cursor: Remove is a no-op for an unknown name,
// so the cursor has to come from the page's till, not from stored flags.
// A cursor stuck at the same since would re-request this page forever.
func TestFlagSynchronizerAdvancesPastUnknownArchivedFlag(t *testing.T) {
	store := storage.NewFlagStorage(nil)

	backend := &fakeBackend{
		splitPages: map[int64]transport.ChangesResponse[dto.Flag]{
			-1: {Items: []dto.Flag{{Name: "ghost", Status: dto.StatusArchived, ChangeNumber: 2}}, Since: -1, Till: 2},
		},
	}
	synchronizer := splitsync.NewFlagSynchronizer(backend, store, nil)
	require.NoError(t, synchronizer.Synchronize(context.Background()))

	assert.Nil(t, store.Get("ghost"))
	assert.EqualValues(t, 2, store.ChangeNumber())
}

func TestSegmentSynchronizerAppliesDeltasAcrossPool(t *testing.T) {
	backend := &fakeBackend{
		segmentPages: map[string][]transport.SegmentChangesResult{
			"beta-testers": {{Name: "beta-testers", Added: []string{"u1", "u2"}, Since: -1, Till: 1}},
			"employees":    {{Name: "employees", Added: []string{"u3"}, Since: -1, Till: 1}},
		},
	}
	store := storage.NewSegmentStorage()
	synchronizer := splitsync.NewSegmentSynchronizer(backend, store, 2, nil)

	require.NoError(t, synchronizer.SynchronizeAll(context.Background(), []string{"beta-testers", "employees"}))

	assert.True(t, store.Contains("beta-testers", "u1"))
	assert.True(t, store.Contains("employees", "u3"))
}

func TestImpressionSynchronizerDropsBatchOnFailure(t *testing.T) {
	backend := &fakeBackend{impressionErr: errors.New("boom")}
	queue := storage.NewImpressionQueue(10, nil)
	queue.Put(dto.Impression{MatchingKey: "k1", Feature: "f1", Treatment: "on"})

	synchronizer := splitsync.NewImpressionSynchronizer(backend, queue, 10, nil)
	require.NoError(t, synchronizer.Synchronize(context.Background()))

	assert.Equal(t, 0, queue.Count())
	assert.Len(t, backend.postedImpr, 1)
}

func TestEventSynchronizerFlushDrainsQueue(t *testing.T) {
	backend := &fakeBackend{}
	queue := storage.NewEventQueue(10000, nil)
	for i := 0; i < 3; i++ {
		queue.Put(dto.Event{Key: "k", TrafficType: "user", EventType: "purchase"})
	}

	synchronizer := splitsync.NewEventSynchronizer(backend, queue, 1, nil)
	synchronizer.Flush(context.Background())

	assert.Equal(t, 0, queue.Count())
	assert.Len(t, backend.postedEvents, 3)
}
