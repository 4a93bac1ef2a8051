// Package tasks runs long operations against the song folder with real-time progress reporting.
//
// # Bulk Pull
//
// [Puller.Pull] lists the folder once and downloads every entry into an output directory:
//   - A bounded worker pool (default 4, max 10) performs the downloads
//   - A shared [rate.Limiter] paces store requests (default 2 per second)
//   - Each file is written to a temporary name and renamed into place when complete
//   - Names that would escape the output directory are rejected per entry
//   - Duplicate names are disambiguated with the entry id
//
// Partial failures never abort the pull. Every entry gets a [models.PullResult], and the
// [models.PullManifest] is written as [ManifestFile] in the output directory.
//
// # Progress Reporting
//
// Progress is sent on an optional channel. The [ProgressUpdate] struct contains phase, step counters,
// and a message for display. Updates use select with default to prevent blocking.
package tasks
