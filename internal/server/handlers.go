// Package server exposes geometry sessions over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/woozymasta/geoarea/internal/area"
	"github.com/woozymasta/geoarea/internal/config"
	"github.com/woozymasta/geoarea/internal/draw"
	"github.com/woozymasta/geoarea/internal/geo"
	"github.com/woozymasta/geoarea/internal/notify"
	"github.com/woozymasta/geoarea/internal/session"

	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog/log"
)

const maxBodySize = 1 << 20

// pageConfig is what the map page needs to boot.
type pageConfig struct {
	Center      *geo.Coordinate   `json:"center"`
	AccessToken string            `json:"access_token,omitempty"`
	Attribution string            `json:"attribution,omitempty"`
	Welcome     string            `json:"welcome"`
	Style       string            `json:"style"`
	Styles      []config.Style    `json:"styles"`
	Units       []area.UnitOption `json:"units"`
	Zoom        float64           `json:"zoom"`
	Unit        area.Unit         `json:"unit"`
	RemoteArea  bool              `json:"remote_area"`
}

// sessionResponse carries the session view and the notices raised while
// handling the request.
type sessionResponse struct {
	Session *session.View   `json:"session,omitempty"`
	Error   string          `json:"error,omitempty"`
	Notices []notify.Notice `json:"notices"`
}

// Routes registers all handlers on a new mux.
func (s *ServerContext) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/config", s.HandleConfig)
	mux.HandleFunc("POST /api/sessions", s.HandleCreateSession)
	mux.HandleFunc("GET /api/sessions/{id}", s.HandleGetSession)
	mux.HandleFunc("DELETE /api/sessions/{id}", s.HandleDeleteSession)
	mux.HandleFunc("POST /api/sessions/{id}/input", s.HandleShowInput)
	mux.HandleFunc("POST /api/sessions/{id}/points", s.HandleCommitPoint)
	mux.HandleFunc("DELETE /api/sessions/{id}/points", s.HandleRemovePoint)
	mux.HandleFunc("POST /api/sessions/{id}/draw", s.HandleDraw)
	mux.HandleFunc("PUT /api/sessions/{id}/unit", s.HandleUnit)
	mux.HandleFunc("PUT /api/sessions/{id}/style", s.HandleStyle)
	mux.HandleFunc("POST /api/sessions/{id}/remote-area", s.HandleRemoteArea)
	mux.HandleFunc("GET /{$}", s.HandleIndex)
	return mux
}

// HandleIndex serves the map page.
func (s *ServerContext) HandleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("ETag", s.indexETag)
	w.Header().Set("Cache-Control", "public, no-cache")

	if r.Header.Get("If-None-Match") == s.indexETag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(s.IndexHTML)
}

// HandleConfig serves the settings the page boots with.
func (s *ServerContext) HandleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, pageConfig{
		Center:      s.Config.Center,
		Zoom:        s.Config.Zoom,
		AccessToken: s.Config.AccessToken,
		Attribution: s.Config.Attribution,
		Welcome:     s.Config.Welcome,
		Style:       s.Config.Style,
		Styles:      s.Config.Styles,
		Unit:        s.Config.Unit,
		Units:       area.Units(),
		RemoteArea:  s.Remote != nil,
	})
}

// HandleCreateSession starts a new editing session.
func (s *ServerContext) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	ls := s.create()
	s.respond(w, r, http.StatusCreated, ls, nil)
}

// HandleGetSession returns the current view of a session.
func (s *ServerContext) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	ls, ok := s.session(w, r)
	if !ok {
		return
	}
	s.respond(w, r, http.StatusOK, ls, nil)
}

// HandleDeleteSession forgets a session.
func (s *ServerContext) HandleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.remove(id); err != nil {
		writeError(w, r, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleShowInput opens the coordinate input of a session.
func (s *ServerContext) HandleShowInput(w http.ResponseWriter, r *http.Request) {
	ls, ok := s.session(w, r)
	if !ok {
		return
	}
	ls.ctrl.ShowInput()
	s.respond(w, r, http.StatusOK, ls, nil)
}

// HandleCommitPoint appends a typed "lng,lat" entry.
func (s *ServerContext) HandleCommitPoint(w http.ResponseWriter, r *http.Request) {
	ls, ok := s.session(w, r)
	if !ok {
		return
	}

	var req struct {
		Entry string `json:"entry"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}

	err := ls.ctrl.TextCommit(req.Entry)
	s.respond(w, r, statusFor(err), ls, err)
}

// HandleRemovePoint removes the first matching coordinate.
func (s *ServerContext) HandleRemovePoint(w http.ResponseWriter, r *http.Request) {
	ls, ok := s.session(w, r)
	if !ok {
		return
	}

	var c geo.Coordinate
	if err := decode(r, &c); err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}

	if !ls.ctrl.RemoveTag(c) {
		s.respond(w, r, http.StatusNotFound, ls, fmt.Errorf("coordinate %s not in session", c))
		return
	}
	s.respond(w, r, http.StatusOK, ls, nil)
}

// HandleDraw applies a draw tool event carrying the complete feature set.
func (s *ServerContext) HandleDraw(w http.ResponseWriter, r *http.Request) {
	ls, ok := s.session(w, r)
	if !ok {
		return
	}

	var req struct {
		Type     string          `json:"type"`
		Features json.RawMessage `json:"features"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}

	kind, err := draw.ParseEventType(req.Type)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}

	fc := geojson.NewFeatureCollection()
	if len(req.Features) > 0 && string(req.Features) != "null" {
		fc, err = geojson.UnmarshalFeatureCollection(req.Features)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, fmt.Errorf("decode features: %w", err))
			return
		}
	}

	ls.surface.Apply(kind, fc)
	s.respond(w, r, http.StatusOK, ls, nil)
}

// HandleUnit switches the display unit.
func (s *ServerContext) HandleUnit(w http.ResponseWriter, r *http.Request) {
	ls, ok := s.session(w, r)
	if !ok {
		return
	}

	var req struct {
		Unit area.Unit `json:"unit"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}

	err := ls.ctrl.SetUnit(req.Unit)
	s.respond(w, r, statusFor(err), ls, err)
}

// HandleStyle switches the base map style.
func (s *ServerContext) HandleStyle(w http.ResponseWriter, r *http.Request) {
	ls, ok := s.session(w, r)
	if !ok {
		return
	}

	var req struct {
		Style string `json:"style"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}

	style := req.Style
	if st, found := s.Config.FindStyle(style); found {
		style = st.URL
	}

	err := ls.ctrl.SetStyle(style)
	s.respond(w, r, statusFor(err), ls, err)
}

// HandleRemoteArea starts the remote area computation and returns at once.
// The result shows up in a later session view if it is still current.
func (s *ServerContext) HandleRemoteArea(w http.ResponseWriter, r *http.Request) {
	ls, ok := s.session(w, r)
	if !ok {
		return
	}

	done := s.requestRemoteArea(ls)
	select {
	case err := <-done:
		s.respond(w, r, statusFor(err), ls, err)
		return
	default:
	}

	id := ls.ctrl.ID()
	go func() {
		if err := <-done; err != nil {
			log.Warn().Err(err).Str("session", id).Msg("Remote area not applied")
			return
		}
		log.Debug().Str("session", id).Msg("Remote area applied")
	}()

	s.respond(w, r, http.StatusAccepted, ls, nil)
}

// session resolves the {id} path value, writing 404 when unknown.
func (s *ServerContext) session(w http.ResponseWriter, r *http.Request) (*liveSession, bool) {
	ls, err := s.lookup(r.PathValue("id"))
	if err != nil {
		writeError(w, r, statusFor(err), err)
		return nil, false
	}
	return ls, true
}

func (s *ServerContext) respond(w http.ResponseWriter, r *http.Request, status int, ls *liveSession, err error) {
	view := ls.ctrl.View()
	resp := sessionResponse{
		Session: &view,
		Notices: ls.notices.Drain(),
	}
	if err != nil {
		resp.Error = err.Error()
	}
	writeJSON(w, r, status, resp)
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

// statusFor maps domain errors to HTTP statuses.
func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, errSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, geo.ErrMalformedEntry),
		errors.Is(err, geo.ErrInvalidLongitude),
		errors.Is(err, geo.ErrInvalidLatitude),
		errors.Is(err, session.ErrUnknownStyle),
		errors.Is(err, session.ErrInvalidUnit),
		errors.Is(err, area.ErrNotPolygon):
		return http.StatusUnprocessableEntity
	case errors.Is(err, session.ErrNoRemote):
		return http.StatusNotImplemented
	case errors.Is(err, session.ErrStaleResult):
		return http.StatusConflict
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().
			Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
	}
	writeJSON(w, r, status, map[string]string{"error": err.Error()})
}
