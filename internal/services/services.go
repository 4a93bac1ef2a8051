// package services defines interface Store for reading a folder of audio files from an external file host
//
// Google Drive
package services

import (
	"context"
	"io"

	"github.com/desertthunder/songrelay/internal/models"
)

// Store is the narrow view of the external file host the relay depends on.
type Store interface {
	// ListFolder returns every non-trashed entry whose parent is folderID, in store order.
	// An empty folder returns an empty slice and no error.
	ListFolder(ctx context.Context, folderID string) ([]models.FileEntry, error)

	// OpenContent opens the byte stream of the object with the given id.
	// Callers must close the returned reader.
	OpenContent(ctx context.Context, id string) (io.ReadCloser, error)

	// Name returns the name of the store (e.g., "Google Drive")
	Name() string
}
