// Package session holds the dataset currently served to queries.
//
// A Session is owned by its caller (the application container or a CLI run)
// rather than being process-global. Datasets are swapped wholesale: readers
// that already hold a dataset keep a consistent view after a replacement.
package session

import (
	"sync/atomic"
	"time"

	"marketlens/pkg/contracts/domain"
)

// Session stores one immutable dataset at a time.
type Session struct {
	current    atomic.Pointer[domain.Dataset]
	replacedAt atomic.Int64
	versions   atomic.Uint64
}

// New creates an empty session.
func New() *Session {
	return &Session{}
}

// Current returns the active dataset, or nil before the first ingestion.
func (s *Session) Current() *domain.Dataset {
	return s.current.Load()
}

// Replace installs ds and returns the dataset it replaced.
func (s *Session) Replace(ds *domain.Dataset) *domain.Dataset {
	prev := s.current.Swap(ds)
	s.replacedAt.Store(time.Now().UnixNano())
	s.versions.Add(1)
	return prev
}

// Clear removes the active dataset.
func (s *Session) Clear() *domain.Dataset {
	return s.Replace(nil)
}

// Version counts replacements since creation.
func (s *Session) Version() uint64 {
	return s.versions.Load()
}

// ReplacedAt is the time of the last replacement, zero if none.
func (s *Session) ReplacedAt() time.Time {
	ns := s.replacedAt.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}
