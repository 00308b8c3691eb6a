package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/vestra-ai/vestra/internal/domain"
	"github.com/vestra-ai/vestra/internal/usecase"
)

// MockBlobStore records uploads and returns deterministic public URLs.
type MockBlobStore struct {
	mu      sync.Mutex
	counter int
	Puts    []MockBlobPut

	PutFunc        func(ctx context.Context, data []byte, contentType, category string) (string, error)
	PutFromURLFunc func(ctx context.Context, srcURL, category string) (string, error)
}

type MockBlobPut struct {
	Category    string
	ContentType string
	SourceURL   string
	Size        int
}

func NewMockBlobStore() *MockBlobStore {
	return &MockBlobStore{}
}

func (m *MockBlobStore) Put(ctx context.Context, data []byte, contentType, category string) (string, error) {
	if m.PutFunc != nil {
		return m.PutFunc(ctx, data, contentType, category)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	m.Puts = append(m.Puts, MockBlobPut{Category: category, ContentType: contentType, Size: len(data)})
	return fmt.Sprintf("https://blobs.test/%s/object-%d", category, m.counter), nil
}

func (m *MockBlobStore) PutFromURL(ctx context.Context, srcURL, category string) (string, error) {
	if m.PutFromURLFunc != nil {
		return m.PutFromURLFunc(ctx, srcURL, category)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	m.Puts = append(m.Puts, MockBlobPut{Category: category, SourceURL: srcURL})
	return fmt.Sprintf("https://blobs.test/%s/object-%d", category, m.counter), nil
}

// MockProviderSelector returns a fixed provider name.
type MockProviderSelector struct {
	mu       sync.RWMutex
	provider string

	CurrentProviderFunc func(ctx context.Context) (string, error)
}

func NewMockProviderSelector(provider string) *MockProviderSelector {
	return &MockProviderSelector{provider: provider}
}

func (m *MockProviderSelector) CurrentProvider(ctx context.Context) (string, error) {
	if m.CurrentProviderFunc != nil {
		return m.CurrentProviderFunc(ctx)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.provider, nil
}

// Switch changes the provider returned by subsequent calls.
func (m *MockProviderSelector) Switch(provider string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.provider = provider
}

// MockSyncAdapter is a synchronous provider adapter mock.
type MockSyncAdapter struct {
	NameValue    string
	GenerateFunc func(ctx context.Context, req usecase.ProviderRequest) (*domain.ProviderOutput, error)

	mu       sync.Mutex
	Requests []usecase.ProviderRequest
}

func (m *MockSyncAdapter) Name() string { return m.NameValue }

func (m *MockSyncAdapter) Generate(ctx context.Context, req usecase.ProviderRequest) (*domain.ProviderOutput, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	m.mu.Unlock()
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, req)
	}
	return &domain.ProviderOutput{URL: "https://provider.test/result.png"}, nil
}

// LastRequest returns the most recent request seen by Generate.
func (m *MockSyncAdapter) LastRequest() usecase.ProviderRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Requests) == 0 {
		return usecase.ProviderRequest{}
	}
	return m.Requests[len(m.Requests)-1]
}

// MockAsyncAdapter is a submit-and-poll provider adapter mock.
type MockAsyncAdapter struct {
	NameValue  string
	SubmitFunc func(ctx context.Context, req usecase.ProviderRequest) (string, error)
	PollFunc   func(ctx context.Context, taskID string) (*usecase.TaskStatus, error)

	mu        sync.Mutex
	PollCalls int
}

func (m *MockAsyncAdapter) Name() string { return m.NameValue }

func (m *MockAsyncAdapter) Submit(ctx context.Context, req usecase.ProviderRequest) (string, error) {
	if m.SubmitFunc != nil {
		return m.SubmitFunc(ctx, req)
	}
	return "task-1", nil
}

func (m *MockAsyncAdapter) Poll(ctx context.Context, taskID string) (*usecase.TaskStatus, error) {
	m.mu.Lock()
	m.PollCalls++
	n := m.PollCalls
	m.mu.Unlock()
	if m.PollFunc != nil {
		return m.PollFunc(ctx, taskID)
	}
	if n < 2 {
		return &usecase.TaskStatus{State: usecase.TaskStateRunning}, nil
	}
	return &usecase.TaskStatus{
		State:  usecase.TaskStateSucceeded,
		Output: &domain.ProviderOutput{URL: "https://provider.test/async-result.png"},
	}, nil
}
