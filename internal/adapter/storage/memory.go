package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// MemoryStore is the embedded blob backend used with the in-memory store
// driver. Objects live in process memory and the URLs it mints are only
// resolvable through Object lookups; useful for development, not durable.
type MemoryStore struct {
	mu         sync.Mutex
	httpClient *http.Client
	baseURL    string
	objects    map[string][]byte
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore(baseURL string) *MemoryStore {
	if baseURL == "" {
		baseURL = "memory://blobs"
	}
	return &MemoryStore{
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		baseURL:    baseURL,
		objects:    make(map[string][]byte),
	}
}

// Put stores data and returns its URL.
func (s *MemoryStore) Put(ctx context.Context, data []byte, contentType, category string) (string, error) {
	key := objectKey(category, contentType)

	s.mu.Lock()
	s.objects[key] = append([]byte(nil), data...)
	s.mu.Unlock()

	return s.baseURL + "/" + key, nil
}

// PutFromURL fetches a remote object and stores it.
func (s *MemoryStore) PutFromURL(ctx context.Context, srcURL, category string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srcURL, nil)
	if err != nil {
		return "", fmt.Errorf("build fetch request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch source: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch source: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchSize))
	if err != nil {
		return "", fmt.Errorf("read source: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = guessContentType(srcURL)
	}

	return s.Put(ctx, data, contentType, category)
}

// Object returns a stored object's bytes by its key.
func (s *MemoryStore) Object(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.objects[key]
	return data, ok
}

// Len reports the number of stored objects.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.objects)
}
