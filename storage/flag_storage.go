package storage

import (
	"context"
	"sync"

	"github.com/GoCodeAlone/split-go-core/dto"
)

// FlagStorage holds the most recently applied Flag per name along with a
// traffic-type reference count, so isValidTrafficType(tt) can answer in
// O(1) whether any stored flag still uses tt.
//
// Reads (Get, FetchMany, IsValidTrafficType) may proceed concurrently with
// each other; Put/Remove are serialized against each other and against
// reads via a single RWMutex.
type FlagStorage struct {
	mu            sync.RWMutex
	flags         map[string]*dto.Flag
	trafficTypeRC map[string]int
	changeNumber  int64

	emitter EventEmitter
	source  string
}

// NewFlagStorage builds an empty FlagStorage. emitter may be nil.
func NewFlagStorage(emitter EventEmitter) *FlagStorage {
	return &FlagStorage{
		flags:         make(map[string]*dto.Flag),
		trafficTypeRC: make(map[string]int),
		changeNumber:  -1,
		emitter:       emitter,
		source:        "split-flag-storage",
	}
}

// Get returns the most recently Put flag under name, or nil if absent.
func (s *FlagStorage) Get(name string) *dto.Flag {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.flags[name]
}

// FetchMany returns a map containing every requested name; misses map to
// nil.
func (s *FlagStorage) FetchMany(names []string) map[string]*dto.Flag {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make(map[string]*dto.Flag, len(names))
	for _, name := range names {
		result[name] = s.flags[name]
	}
	return result
}

// All returns every currently stored flag, keyed by name.
func (s *FlagStorage) All() map[string]*dto.Flag {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make(map[string]*dto.Flag, len(s.flags))
	for k, v := range s.flags {
		result[k] = v
	}
	return result
}

// Put stores flag, replacing any prior flag under the same name. The
// traffic-type refcount is updated: the new traffic type is incremented,
// and if a prior flag under this name had a different traffic type, its
// count is decremented).
func (s *FlagStorage) Put(flag *dto.Flag) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prior, ok := s.flags[flag.Name]; ok && prior.TrafficTypeName != flag.TrafficTypeName {
		s.decrementTrafficType(prior.TrafficTypeName)
	}
	if _, existed := s.flags[flag.Name]; !existed || s.flags[flag.Name].TrafficTypeName != flag.TrafficTypeName {
		s.trafficTypeRC[flag.TrafficTypeName]++
	}
	s.flags[flag.Name] = flag
}

// Remove deletes the flag under name, decrementing its traffic-type
// refcount if it was present.
func (s *FlagStorage) Remove(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prior, ok := s.flags[name]
	if !ok {
		return
	}
	delete(s.flags, name)
	s.decrementTrafficType(prior.TrafficTypeName)
}

// decrementTrafficType must be called with mu held.
func (s *FlagStorage) decrementTrafficType(tt string) {
	s.trafficTypeRC[tt]--
	if s.trafficTypeRC[tt] <= 0 {
		delete(s.trafficTypeRC, tt)
		emit(s.emitter, context.Background(), EventTypeTrafficTypeExhausted, s.source, map[string]interface{}{
			"trafficType": tt,
		})
	}
}

// IsValidTrafficType reports whether at least one stored flag currently
// has traffic type tt).
func (s *FlagStorage) IsValidTrafficType(tt string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.trafficTypeRC[tt] > 0
}

// KillLocally is a no-op unless changeNumber is strictly greater than the
// stored flag's change number, in which case it sets Killed, overwrites
// DefaultTreatment, and advances ChangeNumber).
// It is idempotent for changeNumber <= stored and monotone in
// changeNumber.
func (s *FlagStorage) KillLocally(name, defaultTreatment string, changeNumber int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	flag, ok := s.flags[name]
	if !ok || changeNumber <= flag.ChangeNumber {
		return
	}
	updated := flag.Clone()
	updated.Killed = true
	updated.DefaultTreatment = defaultTreatment
	updated.ChangeNumber = changeNumber
	s.flags[name] = updated

	emit(s.emitter, context.Background(), EventTypeFlagKilledLocally, s.source, map[string]interface{}{
		"flag":         name,
		"changeNumber": changeNumber,
	})
}

// ChangeNumber returns the last change number recorded via
// SetChangeNumber, or -1 if none has been recorded yet. The cursor is
// independent of the stored flags' own change numbers: a page whose
// flags are all archived still advances it.
func (s *FlagStorage) ChangeNumber() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.changeNumber
}

// SetChangeNumber records the cursor the flag synchronizer should
// resume fetching from.
func (s *FlagStorage) SetChangeNumber(changeNumber int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.changeNumber = changeNumber
}
