// package testing contains shared testing utilities
package testing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/songrelay/internal/models"
	"github.com/desertthunder/songrelay/internal/shared"
)

// MockStore is an in-memory test double for [services.Store]
type MockStore struct {
	Entries []models.FileEntry
	Content map[string][]byte
	ListErr error
	OpenErr error
	Broken  map[string]bool // ids whose content opens fine but fails on first read

	mu        sync.Mutex
	listCalls int
	opened    []string
}

// NewMockStore builds a store whose entries are the given name/content pairs, in order.
//
// IDs are assigned as "id-1", "id-2", ...
func NewMockStore(files ...[2]string) *MockStore {
	m := &MockStore{Entries: []models.FileEntry{}, Content: map[string][]byte{}}
	for i, f := range files {
		id := fmt.Sprintf("id-%d", i+1)
		m.Entries = append(m.Entries, models.FileEntry{ID: id, Name: f[0]})
		m.Content[id] = []byte(f[1])
	}
	return m
}

func (m *MockStore) ListFolder(ctx context.Context, folderID string) ([]models.FileEntry, error) {
	m.mu.Lock()
	m.listCalls++
	m.mu.Unlock()

	if m.ListErr != nil {
		return nil, m.ListErr
	}
	out := make([]models.FileEntry, len(m.Entries))
	copy(out, m.Entries)
	return out, nil
}

func (m *MockStore) OpenContent(ctx context.Context, id string) (io.ReadCloser, error) {
	m.mu.Lock()
	m.opened = append(m.opened, id)
	m.mu.Unlock()

	if m.OpenErr != nil {
		return nil, m.OpenErr
	}
	if m.Broken[id] {
		return &FCloser{}, nil
	}
	data, ok := m.Content[id]
	if !ok {
		return nil, fmt.Errorf("%w: no content for %s", shared.ErrUpstream, id)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *MockStore) Name() string { return "mock" }

// ListCalls returns how many times ListFolder was called.
func (m *MockStore) ListCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listCalls
}

// Opened returns the ids passed to OpenContent, in call order.
func (m *MockStore) Opened() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.opened...)
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
