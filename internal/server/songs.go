package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/songrelay/internal/library"
	"github.com/desertthunder/songrelay/internal/models"
	"github.com/desertthunder/songrelay/internal/shared"
)

// AudioContentType is sent for every song body regardless of the stored file's encoding.
const AudioContentType = "audio/ogg"

const (
	msgSongNotFound = "song not found"
	msgSongFailed   = "failed to fetch song"
	msgNoSongs      = "no songs found"
	msgListFailed   = "failed to list songs"
)

type message struct {
	Message string `json:"message"`
}

// SongHandler serves song lookups and the folder listing.
type SongHandler struct {
	lib       *library.Library
	logger    *log.Logger
	metrics   *Metrics
	publicURL string
}

// SongHandlerOpts contains the dependencies of a [SongHandler].
type SongHandlerOpts struct {
	Library   *library.Library
	Logger    *log.Logger
	Metrics   *Metrics // optional
	PublicURL string   // optional; derived from each request when empty
}

// NewSongHandler creates a new [SongHandler].
func NewSongHandler(opts SongHandlerOpts) *SongHandler {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	return &SongHandler{
		lib:       opts.Library,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
		publicURL: strings.TrimRight(opts.PublicURL, "/"),
	}
}

// Register adds the song routes to router.
func (h *SongHandler) Register(router Router) {
	router.Handle(http.MethodGet, "/song/{fileName}", http.HandlerFunc(h.StreamByName))
	router.Handle(http.MethodGet, "/songs/{slug}", http.HandlerFunc(h.StreamBySlug))
	router.Handle(http.MethodGet, "/songs", http.HandlerFunc(h.List))
}

// StreamByName handles GET /song/{fileName}: exact, case-sensitive name lookup.
func (h *SongHandler) StreamByName(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("fileName")
	logger := requestLogger(r, h.logger).With("file", name)
	logger.Info("looking up song by name")

	entry, err := h.lib.FindByName(r.Context(), name)
	h.stream(w, r, logger, entry, err)
}

// StreamBySlug handles GET /songs/{slug}.
func (h *SongHandler) StreamBySlug(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	logger := requestLogger(r, h.logger).With("slug", slug)
	logger.Info("looking up song by slug")

	entry, err := h.lib.FindBySlug(r.Context(), slug)
	h.stream(w, r, logger, entry, err)
}

// List handles GET /songs.
func (h *SongHandler) List(w http.ResponseWriter, r *http.Request) {
	logger := requestLogger(r, h.logger)

	entries, err := h.lib.List(r.Context())
	if err != nil {
		logger.Error("failed to list songs", "folder", h.lib.FolderID(), "error", err)
		h.metrics.upstreamError("list")
		writeJSON(w, http.StatusInternalServerError, message{Message: msgListFailed})
		return
	}

	if len(entries) == 0 {
		logger.Warn("folder is empty", "folder", h.lib.FolderID())
		writeJSON(w, http.StatusNotFound, message{Message: msgNoSongs})
		return
	}

	writeJSON(w, http.StatusOK, library.Listings(entries, h.baseURL(r)))
}

// stream relays the matched entry's bytes. Headers are written only after the store stream is open,
// so lookup and open failures never leave a partial body.
func (h *SongHandler) stream(w http.ResponseWriter, r *http.Request, logger *log.Logger, entry *models.FileEntry, err error) {
	if err != nil {
		if errors.Is(err, shared.ErrSongNotFound) {
			logger.Warn("song not found")
			http.Error(w, msgSongNotFound, http.StatusNotFound)
			return
		}
		logger.Error("failed to list songs", "folder", h.lib.FolderID(), "error", err)
		h.metrics.upstreamError("list")
		http.Error(w, msgSongFailed, http.StatusInternalServerError)
		return
	}

	logger = logger.With("id", entry.ID)
	logger.Info("song found", "name", entry.Name)

	body, err := h.lib.Open(r.Context(), *entry)
	if err != nil {
		logger.Error("failed to open song", "error", err)
		h.metrics.upstreamError("open")
		http.Error(w, msgSongFailed, http.StatusInternalServerError)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", AudioContentType)
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		logger.Debug("head request, body skipped")
		return
	}

	n, err := io.Copy(w, body)
	h.metrics.streamed(n)
	if err != nil {
		logger.Warn("stream interrupted", "bytes", n, "error", err)
		h.metrics.upstreamError("copy")
		return
	}
	logger.Debug("stream complete", "bytes", n)
}

// baseURL returns the configured public URL, or scheme://host of the request.
func (h *SongHandler) baseURL(r *http.Request) string {
	if h.publicURL != "" {
		return h.publicURL
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = strings.TrimSpace(strings.Split(proto, ",")[0])
	}
	return scheme + "://" + r.Host
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
