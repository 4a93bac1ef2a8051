// Package library resolves song names and slugs against a folder in a [services.Store].
//
// Every call lists the folder again; nothing is cached between calls, so results always reflect the store.
// Lookups return the first matching entry in store order. The store does not guarantee a stable order,
// so duplicate names or slugs may resolve differently across calls.
package library

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/songrelay/internal/models"
	"github.com/desertthunder/songrelay/internal/services"
	"github.com/desertthunder/songrelay/internal/shared"
)

// Library resolves lookups against a single folder.
type Library struct {
	store    services.Store
	folderID string
	logger   *log.Logger
}

// New creates a Library over folderID. A nil logger falls back to [shared.NewLogger].
func New(store services.Store, folderID string, logger *log.Logger) *Library {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Library{
		store:    store,
		folderID: folderID,
		logger:   shared.WithLogger(logger, "store", store.Name()),
	}
}

// FolderID returns the folder the library reads from.
func (l *Library) FolderID() string {
	return l.folderID
}

// List returns the current folder contents. An empty folder is not an error.
func (l *Library) List(ctx context.Context) ([]models.FileEntry, error) {
	entries, err := l.store.ListFolder(ctx, l.folderID)
	if err != nil {
		if !errors.Is(err, shared.ErrUpstream) {
			err = fmt.Errorf("%w: %v", shared.ErrUpstream, err)
		}
		return nil, err
	}

	l.logger.Debug("listed folder", "folder", l.folderID, "entries", len(entries))
	return entries, nil
}

// FindByName lists the folder and returns the first entry whose name equals name exactly.
func (l *Library) FindByName(ctx context.Context, name string) (*models.FileEntry, error) {
	entries, err := l.List(ctx)
	if err != nil {
		return nil, err
	}
	return MatchName(entries, name)
}

// FindBySlug lists the folder and returns the first entry whose name slugifies to slug.
func (l *Library) FindBySlug(ctx context.Context, slug string) (*models.FileEntry, error) {
	entries, err := l.List(ctx)
	if err != nil {
		return nil, err
	}
	return MatchSlug(entries, slug)
}

// Open opens the content stream for a resolved entry.
func (l *Library) Open(ctx context.Context, entry models.FileEntry) (io.ReadCloser, error) {
	body, err := l.store.OpenContent(ctx, entry.ID)
	if err != nil {
		if !errors.Is(err, shared.ErrUpstream) {
			err = fmt.Errorf("%w: %v", shared.ErrUpstream, err)
		}
		return nil, err
	}
	return body, nil
}

// MatchName returns the first entry whose name is identical to name. Matching is case-sensitive.
func MatchName(entries []models.FileEntry, name string) (*models.FileEntry, error) {
	for i := range entries {
		if entries[i].Name == name {
			return &entries[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %q", shared.ErrSongNotFound, name)
}

// MatchSlug returns the first entry whose computed slug equals slug.
func MatchSlug(entries []models.FileEntry, slug string) (*models.FileEntry, error) {
	for i := range entries {
		if shared.Slugify(entries[i].Name) == slug {
			return &entries[i], nil
		}
	}
	return nil, fmt.Errorf("%w: slug %q", shared.ErrSongNotFound, slug)
}

// Listings maps entries to their client-facing view with URLs under baseURL/songs/.
func Listings(entries []models.FileEntry, baseURL string) []models.SongListing {
	base := strings.TrimRight(baseURL, "/")
	listings := make([]models.SongListing, 0, len(entries))
	for _, e := range entries {
		slug := shared.Slugify(e.Name)
		listings = append(listings, models.SongListing{
			Name: e.Name,
			Slug: slug,
			URL:  base + "/songs/" + url.PathEscape(slug),
		})
	}
	return listings
}
