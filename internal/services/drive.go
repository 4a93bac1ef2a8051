// Google Drive v3 implementation of [Store]
//
// API reference: https://developers.google.com/drive/api/reference/rest/v3/files
package services

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/desertthunder/songrelay/internal/models"
	"github.com/desertthunder/songrelay/internal/shared"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

const (
	driveListFields = "nextPageToken, files(id, name)"
	drivePageSize   = 1000
)

// DriveStore implements [Store] on top of the Drive v3 files API.
//
// A DriveStore is safe for concurrent use and is created once per process.
type DriveStore struct {
	files *drive.FilesService
}

// NewDriveStore creates a Drive client with the given client options.
//
// Production callers pass [DriveCredentials]; tests pass [option.WithEndpoint] and [option.WithHTTPClient].
func NewDriveStore(ctx context.Context, opts ...option.ClientOption) (*DriveStore, error) {
	srv, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create drive client: %v", shared.ErrServiceUnavailable, err)
	}
	return &DriveStore{files: srv.Files}, nil
}

// DriveCredentials parses service account (or other Google credential) JSON into a client option
// scoped to read-only Drive access.
func DriveCredentials(ctx context.Context, data []byte) (option.ClientOption, error) {
	if len(data) == 0 {
		return nil, shared.ErrMissingCredentials
	}

	creds, err := google.CredentialsFromJSON(ctx, data, drive.DriveReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidCredentials, err)
	}
	return option.WithCredentials(creds), nil
}

// Name returns the store name.
func (d *DriveStore) Name() string {
	return "Google Drive"
}

// ListFolder lists the non-trashed children of folderID, following page tokens until the listing is exhausted.
func (d *DriveStore) ListFolder(ctx context.Context, folderID string) ([]models.FileEntry, error) {
	call := d.files.List().
		Q(folderQuery(folderID)).
		Fields(driveListFields).
		PageSize(drivePageSize).
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true)

	entries := []models.FileEntry{}
	err := call.Pages(ctx, func(page *drive.FileList) error {
		for _, f := range page.Files {
			entries = append(entries, models.FileEntry{ID: f.Id, Name: f.Name})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: list folder %s: %v", shared.ErrUpstream, folderID, err)
	}

	return entries, nil
}

// OpenContent downloads the file's media. The response body is returned unread so callers can stream it.
func (d *DriveStore) OpenContent(ctx context.Context, id string) (io.ReadCloser, error) {
	resp, err := d.files.Get(id).
		SupportsAllDrives(true).
		Context(ctx).
		Download()
	if err != nil {
		return nil, fmt.Errorf("%w: download %s: %v", shared.ErrUpstream, id, err)
	}
	return resp.Body, nil
}

// folderQuery builds the files.list query for the children of folderID.
//
// Backslashes and single quotes are escaped per the Drive query syntax.
func folderQuery(folderID string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(folderID)
	return fmt.Sprintf("'%s' in parents and trashed=false", escaped)
}
