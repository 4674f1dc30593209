package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/woozymasta/kmlview/internal/config"

	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/webp"
)

const lineKML = `<kml xmlns="http://www.opengis.net/kml/2.2"><Document>
  <Placemark><name>m</name><LineString><coordinates>0,0 0,1</coordinates></LineString></Placemark>
  <Placemark><Point><coordinates>3,3</coordinates></Point></Placemark>
</Document></kml>`

const pointsKML = `<kml xmlns="http://www.opengis.net/kml/2.2"><Document>
  <Placemark><Point><coordinates>1,1</coordinates></Point></Placemark>
  <Placemark><Point><coordinates>2,2</coordinates></Point></Placemark>
</Document></kml>`

type analysis struct {
	Name     string                     `json:"name"`
	Bounds   *[2][2]float64             `json:"bounds"`
	GeoJSON  *geojson.FeatureCollection `json:"geojson"`
	Colors   []string                   `json:"colors"`
	Summary  map[string]int             `json:"summary"`
	Detailed map[string]struct {
		Count            int    `json:"count"`
		TotalLength      int64  `json:"total_length"`
		LengthApplicable bool   `json:"length_applicable"`
		Display          string `json:"display"`
	} `json:"detailed"`
}

func newTestServer(t *testing.T) (*ServerContext, http.Handler) {
	t.Helper()
	cfg := config.Default()
	cfg.MaxUploadMB = 1
	cfg.Preview.Width, cfg.Preview.Height = 64, 48

	s, err := NewServerContext(cfg)
	require.NoError(t, err)
	return s, s.Handler()
}

func multipartUpload(t *testing.T, name, body string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = fw.Write([]byte(body))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeAnalysis(t *testing.T, rr *httptest.ResponseRecorder) analysis {
	t.Helper()
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var a analysis
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &a))
	return a
}

func TestAnalyzeMultipart(t *testing.T) {
	_, h := newTestServer(t)

	a := decodeAnalysis(t, serve(h, multipartUpload(t, "route.kml", lineKML)))

	assert.Equal(t, "route.kml", a.Name)
	assert.Equal(t, map[string]int{"LineString": 1, "Point": 1}, a.Summary)
	assert.Equal(t, int64(111195), a.Detailed["LineString"].TotalLength)
	assert.Equal(t, "111,195", a.Detailed["LineString"].Display)
	assert.False(t, a.Detailed["Point"].LengthApplicable)
	assert.Equal(t, "N/A", a.Detailed["Point"].Display)

	require.NotNil(t, a.Bounds)
	assert.Equal(t, [2][2]float64{{0, 0}, {3, 3}}, *a.Bounds)
	assert.Len(t, a.GeoJSON.Features, 2)
	assert.Len(t, a.Colors, 2)
	assert.True(t, strings.HasPrefix(a.Colors[0], "#"))
}

func TestAnalyzeRawBody(t *testing.T) {
	_, h := newTestServer(t)

	body := `{"type":"FeatureCollection","features":[{"type":"Feature","properties":{},"geometry":{"type":"Circle","coordinates":[0,0]}},{"type":"Feature","properties":{},"geometry":{"type":"Point","coordinates":[0,0]}}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/analyze?name=shapes.geojson", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/geo+json")

	a := decodeAnalysis(t, serve(h, req))
	assert.Equal(t, map[string]int{"Circle": 1, "Point": 1}, a.Summary)
	assert.Equal(t, 1, a.Detailed["Circle"].Count)
	assert.Len(t, a.GeoJSON.Features, 1)
	assert.Len(t, a.Colors, 2)
}

func TestAnalyzeErrors(t *testing.T) {
	s, h := newTestServer(t)

	tests := []struct {
		name   string
		req    *http.Request
		status int
	}{
		{name: "malformed kml", req: multipartUpload(t, "bad.kml", "<kml><Placemark>"), status: http.StatusUnprocessableEntity},
		{name: "empty kml", req: multipartUpload(t, "empty.kml", "<kml/>"), status: http.StatusUnprocessableEntity},
		{name: "unsupported", req: multipartUpload(t, "notes.txt", "hello"), status: http.StatusUnsupportedMediaType},
		{name: "no body", req: httptest.NewRequest(http.MethodPost, "/api/analyze", nil), status: http.StatusBadRequest},
		{name: "too large", req: multipartUpload(t, "big.kml", strings.Repeat(" ", 2<<20)), status: http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serve(h, tt.req)
			assert.Equal(t, tt.status, rr.Code, rr.Body.String())

			var e errorResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &e))
			assert.NotEmpty(t, e.Error)
		})
	}

	assert.Nil(t, s.Store.Current())
}

func TestUploadReplacesPreviousDataset(t *testing.T) {
	_, h := newTestServer(t)

	rr := serve(h, httptest.NewRequest(http.MethodGet, "/api/dataset", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	decodeAnalysis(t, serve(h, multipartUpload(t, "route.kml", lineKML)))
	second := decodeAnalysis(t, serve(h, multipartUpload(t, "points.kml", pointsKML)))
	assert.Equal(t, map[string]int{"Point": 2}, second.Summary)

	current := decodeAnalysis(t, serve(h, httptest.NewRequest(http.MethodGet, "/api/dataset", nil)))
	assert.Equal(t, "points.kml", current.Name)
	assert.Equal(t, map[string]int{"Point": 2}, current.Summary)
	assert.NotContains(t, current.Detailed, "LineString")

	// a failed upload keeps the previous result
	serve(h, multipartUpload(t, "bad.kml", "<kml><Placemark>"))
	current = decodeAnalysis(t, serve(h, httptest.NewRequest(http.MethodGet, "/api/dataset", nil)))
	assert.Equal(t, "points.kml", current.Name)
}

func TestFeaturesBBox(t *testing.T) {
	_, h := newTestServer(t)

	rr := serve(h, httptest.NewRequest(http.MethodGet, "/api/features?bbox=0,0,1,1", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	decodeAnalysis(t, serve(h, multipartUpload(t, "route.kml", lineKML)))

	rr = serve(h, httptest.NewRequest(http.MethodGet, "/api/features?bbox=2,2,4,4", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	fc, err := geojson.UnmarshalFeatureCollection(rr.Body.Bytes())
	require.NoError(t, err)
	require.Len(t, fc.Features, 1)
	assert.Equal(t, "Point", fc.Features[0].Geometry.GeoJSONType())

	for _, bbox := range []string{"", "1,2,3", "a,0,1,1", "0,-91,1,1", "5,0,1,1"} {
		rr = serve(h, httptest.NewRequest(http.MethodGet, "/api/features?bbox="+bbox, nil))
		assert.Equal(t, http.StatusBadRequest, rr.Code, bbox)
	}
}

func TestPreview(t *testing.T) {
	_, h := newTestServer(t)

	rr := serve(h, httptest.NewRequest(http.MethodGet, "/api/preview.webp", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	decodeAnalysis(t, serve(h, multipartUpload(t, "route.kml", lineKML)))

	rr = serve(h, httptest.NewRequest(http.MethodGet, "/api/preview.webp", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "image/webp", rr.Header().Get("Content-Type"))

	img, err := webp.Decode(rr.Body)
	require.NoError(t, err)
	assert.Equal(t, 64, img.Bounds().Dx())
	assert.Equal(t, 48, img.Bounds().Dy())
}

func TestIndexAndConfig(t *testing.T) {
	_, h := newTestServer(t)

	rr := serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "KML Viewer")
	etag := rr.Header().Get("ETag")
	require.NotEmpty(t, etag)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("If-None-Match", etag)
	assert.Equal(t, http.StatusNotModified, serve(h, req).Code)

	assert.Equal(t, http.StatusNotFound, serve(h, httptest.NewRequest(http.MethodGet, "/nope.js", nil)).Code)

	rr = serve(h, httptest.NewRequest(http.MethodGet, "/api/config", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var cfg map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &cfg))
	assert.Contains(t, cfg["tile_url"], "{z}")
	assert.NotContains(t, cfg, "preview")

	rr = serve(h, httptest.NewRequest(http.MethodGet, "/favicon.svg", nil))
	assert.Equal(t, "image/svg+xml", rr.Header().Get("Content-Type"))
}
