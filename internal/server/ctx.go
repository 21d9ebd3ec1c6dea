package server

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"

	"github.com/woozymasta/geoarea/assets"
	"github.com/woozymasta/geoarea/internal/area"
	"github.com/woozymasta/geoarea/internal/config"
	"github.com/woozymasta/geoarea/internal/draw"
	"github.com/woozymasta/geoarea/internal/notify"
	"github.com/woozymasta/geoarea/internal/session"
	"github.com/woozymasta/geoarea/internal/store"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// errSessionNotFound is returned for ids neither live nor stored.
var errSessionNotFound = errors.New("session not found")

// Store is the persistence used for sessions.
type Store interface {
	Save(snap session.Snapshot) error
	Load(id string) (session.Snapshot, error)
	Delete(id string) error
}

// ServerContext holds dependencies for request handlers.
type ServerContext struct {
	Config    *config.Config
	Store     Store
	Remote    area.Provider
	sessions  map[string]*liveSession
	indexETag string
	IndexHTML []byte
	mu        sync.Mutex
}

// liveSession bundles a controller with the surface and queue it talks to.
type liveSession struct {
	ctrl    *session.Controller
	surface *draw.Memory
	notices *notify.Queue
}

// NewServerContext renders the page and prepares an empty session registry.
// st and remote may be nil.
func NewServerContext(cfg *config.Config, st Store, remote area.Provider) (*ServerContext, error) {
	page, err := assets.Render("Geographic polygon area")
	if err != nil {
		return nil, fmt.Errorf("render index: %w", err)
	}

	log.Info().
		Int("styles", len(cfg.Styles)).
		Str("unit", cfg.Unit.String()).
		Bool("store", st != nil).
		Bool("remote_area", remote != nil).
		Msg("Server context initialized")

	return &ServerContext{
		Config:    cfg,
		Store:     st,
		Remote:    remote,
		IndexHTML: page,
		indexETag: contentETag(page),
		sessions:  make(map[string]*liveSession),
	}, nil
}

// contentETag returns a strong ETag for the rendered page.
func contentETag(b []byte) string {
	h := fnv.New64a()
	_, _ = h.Write(b)
	return fmt.Sprintf(`"%016x"`, h.Sum64())
}

func (s *ServerContext) newSession(id string) *liveSession {
	ls := &liveSession{
		surface: draw.NewMemory(),
		notices: &notify.Queue{},
	}
	ls.ctrl = session.New(session.Options{
		ID:        id,
		FeatureID: s.Config.FeatureID,
		Unit:      s.Config.Unit,
		Style:     s.Config.Style,
		Styles:    s.Config.StyleURLs(),
		Surface:   ls.surface,
		Notifier:  notify.Tee(ls.notices, notify.Log{Session: id}),
		Remote:    s.Remote,
		OnChange:  s.persist,
	})
	ls.surface.Subscribe(ls.ctrl.HandleDrawEvent)
	return ls
}

// create starts a new session and registers it.
func (s *ServerContext) create() *liveSession {
	id := uuid.NewString()
	ls := s.newSession(id)

	s.mu.Lock()
	s.sessions[id] = ls
	s.mu.Unlock()

	s.persist(ls.ctrl.Snapshot())
	log.Debug().Str("session", id).Msg("Session created")
	return ls
}

// lookup returns a live session, restoring it from the store when needed.
func (s *ServerContext) lookup(id string) (*liveSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ls, ok := s.sessions[id]; ok {
		return ls, nil
	}
	if s.Store == nil {
		return nil, errSessionNotFound
	}

	snap, err := s.Store.Load(id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, errSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	ls := s.newSession(id)
	ls.ctrl.Restore(snap)
	s.sessions[id] = ls

	log.Debug().
		Str("session", id).
		Int("points", len(snap.Coordinates)).
		Msg("Session restored from store")
	return ls, nil
}

// remove drops a session from memory and the store.
// Controllers already handed out stop persisting once their id is gone.
func (s *ServerContext) remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, live := s.sessions[id]
	delete(s.sessions, id)

	if s.Store == nil {
		if !live {
			return errSessionNotFound
		}
		return nil
	}

	if !live {
		if _, err := s.Store.Load(id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return errSessionNotFound
			}
			return err
		}
	}
	return s.Store.Delete(id)
}

// persist saves snapshots of registered sessions only.
func (s *ServerContext) persist(snap session.Snapshot) {
	if s.Store == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[snap.ID]; !ok {
		log.Debug().Str("session", snap.ID).Msg("Skipping persist of removed session")
		return
	}
	if err := s.Store.Save(snap); err != nil {
		log.Error().Err(err).Str("session", snap.ID).Msg("Failed to persist session")
	}
}

// requestRemoteArea starts a remote computation detached from the request.
func (s *ServerContext) requestRemoteArea(ls *liveSession) <-chan error {
	return ls.ctrl.RequestRemoteArea(context.Background())
}
