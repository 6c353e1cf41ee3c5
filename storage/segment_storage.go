package storage

import (
	"sync"

	"github.com/GoCodeAlone/split-go-core/dto"
)

// SegmentStorage holds the member set and change number for every known
// segment. A name absent from the map is simply an
// unknown segment; Update creates it on first sight.
type SegmentStorage struct {
	mu       sync.RWMutex
	segments map[string]*dto.Segment
}

// NewSegmentStorage builds an empty SegmentStorage.
func NewSegmentStorage() *SegmentStorage {
	return &SegmentStorage{segments: make(map[string]*dto.Segment)}
}

// Contains reports whether key is currently a member of the named
// segment. An unknown segment contains nobody.
func (s *SegmentStorage) Contains(name, key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seg, ok := s.segments[name]
	if !ok {
		return false
	}
	return seg.Contains(key)
}

// ChangeNumber returns the stored change number for name, or -1 if the
// segment is unknown.
func (s *SegmentStorage) ChangeNumber(name string) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seg, ok := s.segments[name]
	if !ok {
		return -1
	}
	return seg.ChangeNumber
}

// Update applies an added/removed delta to the named segment, creating
// it if this is the first time it's seen. The delta is applied
// atomically with respect to concurrent readers: Contains never
// observes a partially-applied delta.
func (s *SegmentStorage) Update(name string, added, removed []string, changeNumber int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seg, ok := s.segments[name]
	if !ok {
		seg = &dto.Segment{Name: name, Members: make(map[string]struct{}), ChangeNumber: -1}
		s.segments[name] = seg
	}
	seg.ApplyDelta(added, removed, changeNumber)
}

// SetChangeNumber is a no-op for a segment that has never been seen via
// Update; otherwise it overwrites the stored change number
// unconditionally.
func (s *SegmentStorage) SetChangeNumber(name string, changeNumber int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seg, ok := s.segments[name]
	if !ok {
		return
	}
	seg.ChangeNumber = changeNumber
}

// Names returns every known segment name.
func (s *SegmentStorage) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.segments))
	for name := range s.segments {
		names = append(names, name)
	}
	return names
}
