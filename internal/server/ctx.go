package server

import (
	"net/http"

	"github.com/woozymasta/kmlview/assets"
	"github.com/woozymasta/kmlview/internal/config"
	"github.com/woozymasta/kmlview/internal/dataset"
	"github.com/woozymasta/kmlview/internal/render"

	"github.com/rs/zerolog/log"
)

// ServerContext holds dependencies for request handlers.
type ServerContext struct {
	Config    *config.Config
	Store     *dataset.Store
	IndexHTML []byte
	Favicon   []byte
	Preview   render.Options
}

// NewServerContext initializes the context from a validated configuration.
func NewServerContext(cfg *config.Config) (*ServerContext, error) {
	bg, err := render.ParseHex(cfg.Preview.Background)
	if err != nil {
		return nil, err
	}

	preview := render.DefaultOptions()
	preview.Width = cfg.Preview.Width
	preview.Height = cfg.Preview.Height
	preview.Background = bg

	log.Info().
		Str("tiles", cfg.TileURL).
		Int("max_upload_mb", cfg.MaxUploadMB).
		Int("preview_width", preview.Width).
		Int("preview_height", preview.Height).
		Msg("Server context initialized successfully")

	return &ServerContext{
		Config:    cfg,
		Store:     &dataset.Store{},
		IndexHTML: assets.Index,
		Favicon:   assets.Favicon,
		Preview:   preview,
	}, nil
}

// Handler returns the routed and logged HTTP handler.
func (s *ServerContext) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/config", s.HandleConfig)
	mux.HandleFunc("POST /api/analyze", s.HandleAnalyze)
	mux.HandleFunc("GET /api/dataset", s.HandleDataset)
	mux.HandleFunc("GET /api/features", s.HandleFeatures)
	mux.HandleFunc("GET /api/preview.webp", s.HandlePreview)
	mux.HandleFunc("GET /favicon.svg", s.HandleFavicon)
	mux.HandleFunc("GET /", s.HandleIndex)

	return RequestLogger(mux)
}
