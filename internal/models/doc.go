// Package models defines the data types passed between the store, the library and the HTTP layer.
//
//   - [FileEntry] : one object from a folder listing, fetched fresh on every request
//   - [SongListing] : the response view of a [FileEntry] with its slug and retrieval URL
//   - [PullResult] and [PullManifest] : outcome of a bulk download of the folder
package models
