package storage

import (
	"context"
	"time"
)

// UnconfiguredStore stands in for object storage when its settings are
// missing. Every operation fails with the configuration error so the
// service can still boot and report it per request.
type UnconfiguredStore struct {
	err error
}

// NewUnconfiguredStore returns a store that always fails with err
func NewUnconfiguredStore(err error) *UnconfiguredStore {
	return &UnconfiguredStore{err: err}
}

// Put always fails
func (s *UnconfiguredStore) Put(context.Context, string, []byte, string) error {
	return s.err
}

// PresignGet always fails
func (s *UnconfiguredStore) PresignGet(context.Context, string, time.Duration) (string, time.Time, error) {
	return "", time.Time{}, s.err
}

// PublicURL is always empty
func (s *UnconfiguredStore) PublicURL(string) string {
	return ""
}
