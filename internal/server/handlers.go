// Package server handles HTTP requests and middleware.
package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/woozymasta/kmlview/internal/dataset"
	"github.com/woozymasta/kmlview/internal/geo"
	"github.com/woozymasta/kmlview/internal/kml"
	"github.com/woozymasta/kmlview/internal/render"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog/log"
)

// AnalysisResponse is the result of one upload as sent to the browser.
type AnalysisResponse struct {
	Name     string                     `json:"name"`
	Format   dataset.Format             `json:"format"`
	Bounds   *[2][2]float64             `json:"bounds"` // [[south, west], [north, east]]
	GeoJSON  *geojson.FeatureCollection `json:"geojson"`
	Colors   []string                   `json:"colors"` // indexed by feature id
	Summary  geo.Summary                `json:"summary"`
	Detailed geo.Stats                  `json:"detailed"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	// Ignoring error as we cannot handle client disconnects
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// HandleConfig serves the map settings used by the page.
func (s *ServerContext) HandleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Config)
}

// HandleFavicon serves the site favicon.
func (s *ServerContext) HandleFavicon(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	_, _ = w.Write(s.Favicon)
}

// HandleIndex serves the main HTML application.
func (s *ServerContext) HandleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	etag := fmt.Sprintf(`"%x"`, len(s.IndexHTML))

	if match := r.Header.Get("If-None-Match"); match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "public, no-cache")
	_, _ = w.Write(s.IndexHTML)
}

// HandleAnalyze loads an uploaded KML or GeoJSON file, replaces the current
// dataset with it and returns both summary views.
// The file is sent either as multipart field "file" or as the raw request
// body with the file name in the "name" query parameter.
func (s *ServerContext) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	name, data, err := s.readUpload(w, r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("File exceeds the %d MB upload limit", s.Config.MaxUploadMB))
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ds, err := dataset.Load(name, data)
	if err != nil {
		log.Warn().Err(err).Str("file", name).Msg("Failed to load uploaded file")

		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, dataset.ErrUnsupportedFormat):
			status = http.StatusUnsupportedMediaType
		case isParseError(err), errors.Is(err, dataset.ErrNoFeatures):
			status = http.StatusUnprocessableEntity
		}
		writeError(w, status, "Error parsing file: "+err.Error())
		return
	}

	if prev := s.Store.Replace(ds); prev != nil {
		log.Debug().Str("previous", prev.Name).Str("file", ds.Name).Msg("Dataset replaced")
	}

	log.Info().
		Str("file", ds.Name).
		Str("format", string(ds.Format)).
		Int("features", len(ds.Features)).
		Msg("File analyzed")

	writeJSON(w, http.StatusOK, s.response(ds, ds.FeatureCollection()))
}

func (s *ServerContext) readUpload(w http.ResponseWriter, r *http.Request) (string, []byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.Config.MaxUploadBytes()))
	if err != nil {
		return "", nil, err
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		if len(bytes.TrimSpace(body)) == 0 {
			return "", nil, errors.New("no file selected")
		}
		name := r.URL.Query().Get("name")
		if name == "" {
			name = "upload"
		}
		return name, body, nil
	}

	r.Body = io.NopCloser(bytes.NewReader(body))
	file, header, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return "", nil, errors.New("no file selected")
		}
		return "", nil, err
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		return "", nil, err
	}
	return header.Filename, data, nil
}

func (s *ServerContext) response(ds *dataset.Dataset, fc *geojson.FeatureCollection) AnalysisResponse {
	colors := make([]string, len(ds.Features))
	for i, f := range ds.Features {
		colors[i] = render.Hex(s.Preview.Palette.Color(i, f.Type))
	}

	resp := AnalysisResponse{
		Name:     ds.Name,
		Format:   ds.Format,
		GeoJSON:  fc,
		Colors:   colors,
		Summary:  ds.Summary,
		Detailed: ds.Stats,
	}
	if ds.HasBound() {
		resp.Bounds = &[2][2]float64{
			{ds.Bound.Min.Lat(), ds.Bound.Min.Lon()},
			{ds.Bound.Max.Lat(), ds.Bound.Max.Lon()},
		}
	}
	return resp
}

// HandleDataset serves the result of the most recent upload.
func (s *ServerContext) HandleDataset(w http.ResponseWriter, r *http.Request) {
	ds := s.Store.Current()
	if ds == nil {
		writeError(w, http.StatusNotFound, "No file loaded")
		return
	}
	writeJSON(w, http.StatusOK, s.response(ds, ds.FeatureCollection()))
}

// HandleFeatures serves the current features intersecting the "bbox"
// query parameter, given as "minLon,minLat,maxLon,maxLat".
func (s *ServerContext) HandleFeatures(w http.ResponseWriter, r *http.Request) {
	ds := s.Store.Current()
	if ds == nil {
		writeError(w, http.StatusNotFound, "No file loaded")
		return
	}

	bound, err := parseBBox(r.URL.Query().Get("bbox"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid bbox format: "+err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/geo+json")
	w.Header().Set("Cache-Control", "no-store")
	_ = json.NewEncoder(w).Encode(ds.Subset(ds.Query(bound)))
}

// HandlePreview serves a WebP rendering of the current dataset.
func (s *ServerContext) HandlePreview(w http.ResponseWriter, r *http.Request) {
	ds := s.Store.Current()
	if ds == nil {
		writeError(w, http.StatusNotFound, "No file loaded")
		return
	}

	var buf bytes.Buffer
	if err := render.EncodeWebP(&buf, render.Render(ds, s.Preview)); err != nil {
		log.Error().Err(err).Str("file", ds.Name).Msg("Failed to encode preview")
		writeError(w, http.StatusInternalServerError, "Failed to render preview")
		return
	}

	w.Header().Set("Content-Type", "image/webp")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, _ = w.Write(buf.Bytes())
}

// parseBBox parses "minLon,minLat,maxLon,maxLat".
func parseBBox(bbox string) (orb.Bound, error) {
	parts := strings.Split(bbox, ",")
	if len(parts) != 4 {
		return orb.Bound{}, fmt.Errorf("bbox must have 4 components, got %d", len(parts))
	}

	var vals [4]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return orb.Bound{}, fmt.Errorf("component %d: %w", i+1, err)
		}
		vals[i] = v
	}

	minLon, minLat, maxLon, maxLat := vals[0], vals[1], vals[2], vals[3]
	if minLat < -90 || minLat > 90 || maxLat < -90 || maxLat > 90 {
		return orb.Bound{}, errors.New("latitude out of range [-90, 90]")
	}
	if minLon < -180 || minLon > 180 || maxLon < -180 || maxLon > 180 {
		return orb.Bound{}, errors.New("longitude out of range [-180, 180]")
	}
	if minLat > maxLat || minLon > maxLon {
		return orb.Bound{}, errors.New("minimum must not exceed maximum")
	}

	return orb.Bound{Min: orb.Point{minLon, minLat}, Max: orb.Point{maxLon, maxLat}}, nil
}

// isParseError reports whether err came from reading the file markup.
func isParseError(err error) bool {
	return errors.Is(err, kml.ErrParse) || errors.Is(err, geo.ErrInvalidCollection)
}
