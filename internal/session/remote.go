package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/woozymasta/geoarea/internal/area"

	"github.com/rs/zerolog/log"
)

// Errors returned through RequestRemoteArea.
var (
	ErrNoRemote    = errors.New("no remote area provider configured")
	ErrStaleResult = errors.New("remote area result is stale")
)

// RequestRemoteArea asks the remote provider for the area of the current
// polygon without blocking further edits. The returned channel yields the
// outcome once and is then closed.
//
// Every request and every coordinate change advances the session generation.
// A response is applied only when its generation is still the latest, so a
// slow answer can never overwrite the result of a newer edit.
func (c *Controller) RequestRemoteArea(ctx context.Context) <-chan error {
	done := make(chan error, 1)

	c.mu.Lock()
	if c.remote == nil {
		c.mu.Unlock()
		done <- ErrNoRemote
		close(done)
		return done
	}
	if StateOf(c.s.Coordinates) != PolygonReady {
		c.mu.Unlock()
		done <- area.ErrNotPolygon
		close(done)
		return done
	}

	c.s.generation++
	gen := c.s.generation
	list := c.s.Coordinates.Clone()
	provider := c.remote
	c.mu.Unlock()

	go func() {
		defer close(done)

		raw, err := provider.Area(ctx, list)
		if err != nil {
			done <- c.failRemote(gen, err)
			return
		}

		done <- c.applyRemote(gen, raw)
	}()

	return done
}

// current reports whether a response for gen may still touch the session.
// The caller holds the lock.
func (c *Controller) current(gen uint64) bool {
	if gen == c.s.generation && StateOf(c.s.Coordinates) == PolygonReady {
		return true
	}

	log.Debug().
		Str("session", c.s.ID).
		Uint64("generation", gen).
		Uint64("current", c.s.generation).
		Msg("Dropping stale remote area")
	return false
}

func (c *Controller) failRemote(gen uint64, err error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.current(gen) {
		return fmt.Errorf("%w: %w", ErrStaleResult, err)
	}

	c.notifier.NotifyError(titleError, err.Error())
	return err
}

func (c *Controller) applyRemote(gen uint64, raw float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.current(gen) {
		return ErrStaleResult
	}

	c.s.Measurement = area.Measurement{
		Raw:    &raw,
		Unit:   c.s.Unit,
		Source: area.SourceRemote,
	}
	c.touch()
	return nil
}
