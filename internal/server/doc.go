// Package server exposes the song relay over HTTP.
//
// # Routes
//
//   - GET /song/{fileName} streams the file whose name matches exactly (case-sensitive)
//   - GET /songs/{slug} streams the first file whose slug matches
//   - GET /songs lists every file with its slug and absolute URL
//   - GET /health reports liveness
//   - GET /metrics serves Prometheus metrics when enabled
//
// Every request re-lists the configured folder; there is no cache.
// Song bodies are always sent as audio/ogg and copied byte for byte from the store.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering,
// answering 405 for any method other than the one a route was registered with.
//
// # Handler Interface
//
// Fixed endpoints implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
//
// # Lifecycle
//
// [Server] serves until its context is cancelled, then stops accepting connections and
// waits up to the shutdown timeout for in-flight streams.
package server
