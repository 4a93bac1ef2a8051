// Relay client: a [Store] backed by another running songrelay instance
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/desertthunder/songrelay/internal/models"
	"github.com/desertthunder/songrelay/internal/shared"
)

const defaultRelayURL = "http://localhost:3000"

// RelayStore reads songs through the HTTP API of a running relay.
//
// Entry IDs are file names, so OpenContent resolves through the remote exact-name endpoint.
// The folder argument of ListFolder is ignored because a relay serves a single folder.
type RelayStore struct {
	baseURL    string
	httpClient *http.Client
}

// NewRelayStore creates a client for the relay at baseURL.
func NewRelayStore(baseURL string, client *http.Client) *RelayStore {
	if baseURL == "" {
		baseURL = defaultRelayURL
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &RelayStore{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
	}
}

// Name returns the store name.
func (s *RelayStore) Name() string {
	return "songrelay"
}

// ListFolder fetches /songs. A 404 carrying the relay's JSON message means the folder is empty;
// any other 404 means baseURL does not point at a relay.
func (s *RelayStore) ListFolder(ctx context.Context, _ string) ([]models.FileEntry, error) {
	resp, err := s.get(ctx, "/songs")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		if isRelayMessage(resp.Body) {
			return []models.FileEntry{}, nil
		}
		return nil, fmt.Errorf("%w: list songs: %s does not look like a relay (status 404)", shared.ErrUpstream, s.baseURL)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: list songs: status %d", shared.ErrUpstream, resp.StatusCode)
	}

	var listings []models.SongListing
	if err := json.NewDecoder(resp.Body).Decode(&listings); err != nil {
		return nil, fmt.Errorf("%w: failed to decode listing: %v", shared.ErrUpstream, err)
	}

	entries := make([]models.FileEntry, 0, len(listings))
	for _, l := range listings {
		entries = append(entries, models.FileEntry{ID: l.Name, Name: l.Name})
	}
	return entries, nil
}

// OpenContent streams /song/{id}, where id is the exact file name. The body is returned unread.
func (s *RelayStore) OpenContent(ctx context.Context, id string) (io.ReadCloser, error) {
	resp, err := s.get(ctx, "/song/"+url.PathEscape(id))
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: fetch song %s: status %d", shared.ErrUpstream, id, resp.StatusCode)
	}
	return resp.Body, nil
}

// isRelayMessage reports whether body is the relay's {"message": ...} error shape.
func isRelayMessage(body io.Reader) bool {
	var msg struct {
		Message *string `json:"message"`
	}
	if err := json.NewDecoder(io.LimitReader(body, 4096)).Decode(&msg); err != nil {
		return false
	}
	return msg.Message != nil
}

func (s *RelayStore) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request failed: %v", shared.ErrUpstream, err)
	}
	return resp, nil
}
