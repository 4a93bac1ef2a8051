// Package services defines the [Store] interface for the external file host and implements it for Google Drive.
//
// # Store Interface
//
// The relay only needs two operations from the host: list a folder and open an object's byte stream.
// Keeping the interface this narrow lets tests swap in an in-memory store.
//
// # Google Drive Implementation
//
// [DriveStore] wraps the Drive v3 files API. It is created once at startup from service account JSON
// ([DriveCredentials] scopes it to drive.readonly) and shared by every request.
//
// Folder listings query non-trashed children of the folder and follow page tokens until exhausted.
// Downloads use alt=media and hand the response body back unread so callers can stream it.
//
// # Relay Implementation
//
// [RelayStore] reads from another running relay over its HTTP API (GET /songs, GET /songs/{slug}).
// The CLI uses it to list or pull songs from a remote instance without Drive credentials.
//
// # Error Handling
//
// Stores wrap failures in typed errors from the shared package:
//   - [shared.ErrUpstream] : any transport, auth or quota failure from the host
//   - [shared.ErrServiceUnavailable] : the client could not be constructed
//   - [shared.ErrInvalidCredentials] : credential JSON could not be parsed
package services
