package storage

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"
)

// MemoryDocumentStore keeps objects in process memory.
// It backs local development without object storage and tests.
type MemoryDocumentStore struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
	baseURL string
}

type memoryObject struct {
	data        []byte
	contentType string
}

// NewMemoryDocumentStore creates an empty store whose links are rooted at baseURL
func NewMemoryDocumentStore(baseURL string) *MemoryDocumentStore {
	if baseURL == "" {
		baseURL = "https://storage.local"
	}
	return &MemoryDocumentStore{
		objects: make(map[string]memoryObject),
		baseURL: baseURL,
	}
}

// Put stores a copy of data under key
func (s *MemoryDocumentStore) Put(_ context.Context, key string, data []byte, contentType string) error {
	if key == "" {
		return ErrEmptyKey
	}
	cp := make([]byte, len(data))
	copy(cp, data)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = memoryObject{data: cp, contentType: contentType}
	return nil
}

// PresignGet returns a pseudo-signed link carrying the expiry
func (s *MemoryDocumentStore) PresignGet(_ context.Context, key string, expiresIn time.Duration) (string, time.Time, error) {
	if key == "" {
		return "", time.Time{}, ErrEmptyKey
	}
	if expiresIn <= 0 {
		expiresIn = 15 * time.Minute
	}

	s.mu.RLock()
	_, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		return "", time.Time{}, fmt.Errorf("object %s not found", key)
	}

	expiresAt := time.Now().Add(expiresIn)
	link := fmt.Sprintf("%s/%s?expires=%s", s.baseURL, key, url.QueryEscape(expiresAt.UTC().Format(time.RFC3339)))
	return link, expiresAt, nil
}

// PublicURL is always empty; memory objects are only reachable by signed link
func (s *MemoryDocumentStore) PublicURL(string) string {
	return ""
}

// Get returns the stored bytes and content type
func (s *MemoryDocumentStore) Get(key string) ([]byte, string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	if !ok {
		return nil, "", false
	}
	return obj.data, obj.contentType, true
}
