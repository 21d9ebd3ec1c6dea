package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/woozymasta/geoarea/internal/config"
	"github.com/woozymasta/geoarea/internal/geo"
	"github.com/woozymasta/geoarea/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRemote struct {
	release chan struct{}
	value   float64
	mu      sync.Mutex
	calls   int
}

func (f *fakeRemote) Area(ctx context.Context, list geo.CoordinateList) (float64, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	return f.value, nil
}

type apiNotice struct {
	Level   string `json:"level"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

type apiView struct {
	Area        *float64           `json:"area"`
	ID          string             `json:"id"`
	Style       string             `json:"style"`
	Input       string             `json:"input"`
	Geometry    string             `json:"geometry"`
	State       string             `json:"state"`
	Unit        string             `json:"unit"`
	Coordinates geo.CoordinateList `json:"coordinates"`
	Measurement struct {
		Source string `json:"source"`
	} `json:"measurement"`
	Features struct {
		Features []json.RawMessage `json:"features"`
	} `json:"features"`
	InputVisible bool `json:"input_visible"`
}

type apiResponse struct {
	Session *apiView    `json:"session"`
	Error   string      `json:"error"`
	Notices []apiNotice `json:"notices"`
}

func newTestServer(t *testing.T, st Store, remote *fakeRemote) *httptest.Server {
	t.Helper()

	var ctx *ServerContext
	var err error
	if remote != nil {
		ctx, err = NewServerContext(config.Default(), st, remote)
	} else {
		ctx, err = NewServerContext(config.Default(), st, nil)
	}
	require.NoError(t, err)

	srv := httptest.NewServer(RequestLogger(ctx.Routes()))
	t.Cleanup(srv.Close)
	return srv
}

func call(t *testing.T, srv *httptest.Server, method, path string, body any) (int, apiResponse) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req, err := http.NewRequest(method, srv.URL+path, &buf)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out apiResponse
	if resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp.StatusCode, out
}

func createSession(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	status, resp := call(t, srv, http.MethodPost, "/api/sessions", nil)
	require.Equal(t, http.StatusCreated, status)
	require.NotNil(t, resp.Session)
	require.NotEmpty(t, resp.Session.ID)
	return resp.Session.ID
}

func commit(t *testing.T, srv *httptest.Server, id string, entries ...string) apiResponse {
	t.Helper()
	var resp apiResponse
	for _, e := range entries {
		var status int
		status, resp = call(t, srv, http.MethodPost, "/api/sessions/"+id+"/points", map[string]string{"entry": e})
		require.Equal(t, http.StatusOK, status, e)
	}
	return resp
}

func TestHandleIndex(t *testing.T) {
	srv := newTestServer(t, nil, nil)

	resp, err := srv.Client().Get(srv.URL + "/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	etag := resp.Header.Get("ETag")
	require.NotEmpty(t, etag)
	assert.Equal(t, contentETag([]byte("a")), contentETag([]byte("a")))
	assert.NotEqual(t, contentETag([]byte("a")), contentETag([]byte("b")))

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/", nil)
	req.Header.Set("If-None-Match", etag)
	resp, err = srv.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotModified, resp.StatusCode)

	resp, err = srv.Client().Get(srv.URL + "/missing")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandleConfig(t *testing.T) {
	srv := newTestServer(t, nil, nil)

	resp, err := srv.Client().Get(srv.URL + "/api/config")
	require.NoError(t, err)
	defer resp.Body.Close()

	var cfg struct {
		Center geo.Coordinate `json:"center"`
		Style  string         `json:"style"`
		Unit   string         `json:"unit"`
		Styles []config.Style `json:"styles"`
		Units  []struct {
			Code string `json:"code"`
		} `json:"units"`
		Zoom       float64 `json:"zoom"`
		RemoteArea bool    `json:"remote_area"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&cfg))

	assert.Equal(t, config.DefaultCenter, cfg.Center)
	assert.Equal(t, float64(config.DefaultZoom), cfg.Zoom)
	assert.Len(t, cfg.Styles, 2)
	assert.Len(t, cfg.Units, 3)
	assert.Equal(t, "m2", cfg.Unit)
	assert.False(t, cfg.RemoteArea)
}

func TestSessionLifecycle(t *testing.T) {
	srv := newTestServer(t, nil, nil)
	id := createSession(t, srv)

	status, resp := call(t, srv, http.MethodPost, "/api/sessions/"+id+"/input", nil)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, resp.Session.InputVisible)

	resp = commit(t, srv, id, "0,0")
	assert.Equal(t, "SinglePoint", resp.Session.State)
	assert.Equal(t, "Point", resp.Session.Geometry)
	assert.False(t, resp.Session.InputVisible)
	assert.Nil(t, resp.Session.Area)

	resp = commit(t, srv, id, "1,0", "1,1")
	assert.Equal(t, "PolygonReady", resp.Session.State)
	assert.Len(t, resp.Session.Features.Features, 1)
	require.NotNil(t, resp.Session.Area)
	assert.Greater(t, *resp.Session.Area, 6e9)

	status, resp = call(t, srv, http.MethodGet, "/api/sessions/"+id, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, resp.Session.Coordinates, 3)

	status, _ = call(t, srv, http.MethodDelete, "/api/sessions/"+id, nil)
	assert.Equal(t, http.StatusNoContent, status)

	status, resp = call(t, srv, http.MethodGet, "/api/sessions/"+id, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.NotEmpty(t, resp.Error)
}

func TestCommitInvalidEntry(t *testing.T) {
	srv := newTestServer(t, nil, nil)
	id := createSession(t, srv)
	commit(t, srv, id, "0,0")

	status, resp := call(t, srv, http.MethodPost, "/api/sessions/"+id+"/points", map[string]string{"entry": "181,0"})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Contains(t, resp.Error, "longitude")
	require.NotNil(t, resp.Session)
	assert.Len(t, resp.Session.Coordinates, 1)
	assert.Equal(t, "181,0", resp.Session.Input)
	require.Len(t, resp.Notices, 1)
	assert.Equal(t, "error", resp.Notices[0].Level)
	assert.Equal(t, "ERROR", resp.Notices[0].Title)

	// drained
	_, resp = call(t, srv, http.MethodGet, "/api/sessions/"+id, nil)
	assert.Empty(t, resp.Notices)

	status, _ = call(t, srv, http.MethodPost, "/api/sessions/"+id+"/points", "not an object")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestRemovePoint(t *testing.T) {
	srv := newTestServer(t, nil, nil)
	id := createSession(t, srv)
	commit(t, srv, id, "0,0", "1,0", "1,1")

	status, resp := call(t, srv, http.MethodDelete, "/api/sessions/"+id+"/points", geo.Coordinate{Lng: 1, Lat: 0})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "TwoPoint", resp.Session.State)
	assert.Nil(t, resp.Session.Area)

	status, resp = call(t, srv, http.MethodDelete, "/api/sessions/"+id+"/points", geo.Coordinate{Lng: 5, Lat: 5})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Len(t, resp.Session.Coordinates, 2)
}

func TestDraw(t *testing.T) {
	srv := newTestServer(t, nil, nil)
	id := createSession(t, srv)

	polygon := json.RawMessage(`{"type":"FeatureCollection","features":[
		{"type":"Feature","id":"abc","properties":{},"geometry":{"type":"Polygon",
		"coordinates":[[[0,0],[1,0],[1,1],[0,1],[0,0]]]}}]}`)

	status, resp := call(t, srv, http.MethodPost, "/api/sessions/"+id+"/draw",
		map[string]any{"type": "draw.create", "features": polygon})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "PolygonReady", resp.Session.State)
	assert.Len(t, resp.Session.Coordinates, 4)
	assert.Len(t, resp.Session.Features.Features, 1)
	assert.Contains(t, string(resp.Session.Features.Features[0]), "calculate-polygon")

	two := json.RawMessage(`{"type":"FeatureCollection","features":[
		{"type":"Feature","properties":{},"geometry":{"type":"Point","coordinates":[0,0]}},
		{"type":"Feature","properties":{},"geometry":{"type":"Point","coordinates":[1,1]}}]}`)

	status, resp = call(t, srv, http.MethodPost, "/api/sessions/"+id+"/draw",
		map[string]any{"type": "draw.update", "features": two})
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, resp.Session.Coordinates, 4)
	require.Len(t, resp.Notices, 1)
	assert.Equal(t, "warning", resp.Notices[0].Level)

	status, resp = call(t, srv, http.MethodPost, "/api/sessions/"+id+"/draw",
		map[string]any{"type": "draw.delete"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Empty", resp.Session.State)
	assert.Empty(t, resp.Session.Features.Features)

	status, _ = call(t, srv, http.MethodPost, "/api/sessions/"+id+"/draw",
		map[string]any{"type": "draw.bogus"})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestUnitAndStyle(t *testing.T) {
	srv := newTestServer(t, nil, nil)
	id := createSession(t, srv)
	resp := commit(t, srv, id, "0,0", "1,0", "1,1")
	m2 := *resp.Session.Area

	status, resp := call(t, srv, http.MethodPut, "/api/sessions/"+id+"/unit", map[string]string{"unit": "ha"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ha", resp.Session.Unit)
	assert.InDelta(t, m2*0.0001, *resp.Session.Area, 1e-6)

	status, _ = call(t, srv, http.MethodPut, "/api/sessions/"+id+"/unit", map[string]string{"unit": "acre"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, resp = call(t, srv, http.MethodPut, "/api/sessions/"+id+"/style", map[string]string{"style": "satellite"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "mapbox://styles/mapbox/satellite-v9", resp.Session.Style)

	status, resp = call(t, srv, http.MethodPut, "/api/sessions/"+id+"/style", map[string]string{"style": "mapbox://styles/custom"})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "mapbox://styles/mapbox/satellite-v9", resp.Session.Style)
}

func TestRemoteAreaDisabled(t *testing.T) {
	srv := newTestServer(t, nil, nil)
	id := createSession(t, srv)
	commit(t, srv, id, "0,0", "1,0", "1,1")

	status, resp := call(t, srv, http.MethodPost, "/api/sessions/"+id+"/remote-area", nil)
	assert.Equal(t, http.StatusNotImplemented, status)
	assert.NotEmpty(t, resp.Error)
}

func TestRemoteArea(t *testing.T) {
	remote := &fakeRemote{release: make(chan struct{}), value: 1234.5}
	srv := newTestServer(t, nil, remote)
	id := createSession(t, srv)
	commit(t, srv, id, "0,0", "1,0")

	status, _ := call(t, srv, http.MethodPost, "/api/sessions/"+id+"/remote-area", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	commit(t, srv, id, "1,1")
	status, resp := call(t, srv, http.MethodPost, "/api/sessions/"+id+"/remote-area", nil)
	require.Equal(t, http.StatusAccepted, status)
	assert.Equal(t, "local", resp.Session.Measurement.Source)

	close(remote.release)

	assert.Eventually(t, func() bool {
		_, resp := call(t, srv, http.MethodGet, "/api/sessions/"+id, nil)
		return resp.Session.Measurement.Source == "remote"
	}, 2*time.Second, 10*time.Millisecond)

	_, resp = call(t, srv, http.MethodGet, "/api/sessions/"+id, nil)
	require.NotNil(t, resp.Session.Area)
	assert.Equal(t, 1234.5, *resp.Session.Area)
}

func TestSessionRestoredFromStore(t *testing.T) {
	st, err := store.Open(t.TempDir())
	require.NoError(t, err)
	defer st.Close()

	first := newTestServer(t, st, nil)
	id := createSession(t, first)
	commit(t, first, id, "0,0", "1,0", "1,1")
	status, _ := call(t, first, http.MethodPut, "/api/sessions/"+id+"/unit", map[string]string{"unit": "mu"})
	require.Equal(t, http.StatusOK, status)

	second := newTestServer(t, st, nil)
	status, resp := call(t, second, http.MethodGet, "/api/sessions/"+id, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "PolygonReady", resp.Session.State)
	assert.Equal(t, "mu", resp.Session.Unit)
	assert.Len(t, resp.Session.Features.Features, 1)

	status, _ = call(t, second, http.MethodDelete, "/api/sessions/"+id, nil)
	assert.Equal(t, http.StatusNoContent, status)

	third := newTestServer(t, st, nil)
	status, _ = call(t, third, http.MethodGet, "/api/sessions/"+id, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusOK, statusFor(nil))
	assert.Equal(t, http.StatusNotFound, statusFor(errSessionNotFound))
	assert.Equal(t, http.StatusUnprocessableEntity, statusFor(geo.ErrMalformedEntry))
	assert.Equal(t, http.StatusBadGateway, statusFor(assert.AnError))
}

func TestRemovedSessionStaysRemoved(t *testing.T) {
	st, err := store.Open(t.TempDir())
	require.NoError(t, err)
	defer st.Close()

	ctx, err := NewServerContext(config.Default(), st, nil)
	require.NoError(t, err)

	ls := ctx.create()
	id := ls.ctrl.ID()
	require.NoError(t, ctx.remove(id))

	// a handler still holding the controller commits after the delete
	require.NoError(t, ls.ctrl.TextCommit("1,1"))

	_, err = st.Load(id)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = ctx.lookup(id)
	assert.ErrorIs(t, err, errSessionNotFound)
}
