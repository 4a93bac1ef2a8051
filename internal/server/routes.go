package server

import (
	"github.com/charmbracelet/log"
	"github.com/desertthunder/songrelay/internal/library"
	"github.com/desertthunder/songrelay/internal/shared"
)

// Options configures the relay's HTTP surface.
type Options struct {
	Library   *library.Library
	Logger    *log.Logger
	Metrics   *Metrics // nil disables /metrics and request metrics
	PublicURL string
}

// NewRouter builds the relay router: request logging and panic recovery around the song, health and metrics routes.
func NewRouter(opts Options) *BasicRouter {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	router := NewBasicRouter()
	router.Use(RequestLogger(opts.Logger, opts.Metrics), Recoverer(opts.Logger))

	NewSongHandler(SongHandlerOpts{
		Library:   opts.Library,
		Logger:    opts.Logger,
		Metrics:   opts.Metrics,
		PublicURL: opts.PublicURL,
	}).Register(router)

	router.Handler(HealthHandler{})
	if opts.Metrics != nil {
		router.Handler(opts.Metrics)
	}
	return router
}
