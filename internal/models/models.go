// package models defines the data model for the song relay
package models

import "time"

// FileEntry is one object in the store's folder listing.
type FileEntry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SongListing is the client-facing view of a [FileEntry].
//
// URL points back at this service's slug endpoint.
type SongListing struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
	URL  string `json:"url"`
}

// PullResult records the outcome of downloading a single entry.
type PullResult struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Slug    string `json:"slug"`
	Path    string `json:"path,omitempty"`
	Bytes   int64  `json:"bytes"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// PullManifest summarizes a bulk download.
type PullManifest struct {
	FolderID   string       `json:"folder_id"`
	OutputDir  string       `json:"output_dir"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Total      int          `json:"total"`
	Succeeded  int          `json:"succeeded"`
	Failed     int          `json:"failed"`
	TotalBytes int64        `json:"total_bytes"`
	Results    []PullResult `json:"results"`
}
