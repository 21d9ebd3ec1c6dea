package session

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/woozymasta/geoarea/internal/area"
	"github.com/woozymasta/geoarea/internal/draw"
	"github.com/woozymasta/geoarea/internal/geo"
	"github.com/woozymasta/geoarea/internal/notify"

	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog/log"
)

// Errors reported by the controller.
var (
	ErrTooManyFeatures = errors.New("the number of features needs to be one, please delete the extra")
	ErrUnknownStyle    = errors.New("unknown map style")
	ErrInvalidUnit     = errors.New("invalid area unit")
)

// Notification titles, as shown by the map page.
const (
	titleError   = "ERROR"
	titleWarning = "Warning"

	msgBadPosition = "There is a problem with the position format!"
)

// Options configure a Controller.
type Options struct {
	Surface   draw.Surface
	Notifier  notify.Notifier
	Remote    area.Provider
	OnChange  func(Snapshot)
	ID        string
	FeatureID string
	Style     string
	Styles    []string
	Unit      area.Unit
}

// Controller owns a session's coordinate list, the single source of truth,
// and keeps the draw surface and the measurement derived from it.
// Methods are safe for concurrent use; events are applied one at a time.
type Controller struct {
	surface   draw.Surface
	notifier  notify.Notifier
	remote    area.Provider
	onChange  func(Snapshot)
	featureID string
	styles    []string
	s         Session
	mu        sync.Mutex
}

// New starts an empty session.
func New(opts Options) *Controller {
	if opts.Surface == nil {
		opts.Surface = draw.NewMemory()
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.Log{Session: opts.ID}
	}
	if opts.FeatureID == "" {
		opts.FeatureID = "calculate-polygon"
	}
	if !opts.Unit.Valid() {
		opts.Unit = area.SquareMeters
	}
	if opts.Style == "" && len(opts.Styles) > 0 {
		opts.Style = opts.Styles[0]
	}

	c := &Controller{
		surface:   opts.Surface,
		notifier:  opts.Notifier,
		remote:    opts.Remote,
		onChange:  opts.OnChange,
		featureID: opts.FeatureID,
		styles:    opts.Styles,
		s: Session{
			ID:          opts.ID,
			Coordinates: geo.CoordinateList{},
			Unit:        opts.Unit,
			Style:       opts.Style,
			Measurement: area.Measurement{Unit: opts.Unit, Source: area.SourceLocal},
			UpdatedAt:   time.Now().UTC(),
		},
	}
	c.render()
	return c
}

// ID returns the session id.
func (c *Controller) ID() string {
	return c.s.ID
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return StateOf(c.s.Coordinates)
}

// Coordinates returns a copy of the coordinate list.
func (c *Controller) Coordinates() geo.CoordinateList {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.s.Coordinates.Clone()
}

// Measurement returns the current measurement.
func (c *Controller) Measurement() area.Measurement {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.s.Measurement
}

// Snapshot returns the persisted part of the session.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

func (c *Controller) snapshot() Snapshot {
	return Snapshot{
		ID:          c.s.ID,
		Coordinates: c.s.Coordinates.Clone(),
		Unit:        c.s.Unit,
		Style:       c.s.Style,
		UpdatedAt:   c.s.UpdatedAt,
	}
}

// View renders the session for clients.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := View{
		ID:           c.s.ID,
		State:        StateOf(c.s.Coordinates),
		Geometry:     geo.Classify(c.s.Coordinates).Kind.String(),
		Coordinates:  c.s.Coordinates.Clone(),
		Features:     c.surface.AllFeatures(),
		Measurement:  c.s.Measurement,
		Unit:         c.s.Unit,
		Style:        c.s.Style,
		Input:        c.s.Input,
		InputVisible: c.s.InputVisible,
		Viewport:     c.s.Viewport,
		UpdatedAt:    c.s.UpdatedAt,
	}
	if value, ok := c.s.Measurement.Value(); ok {
		v.Area = &value
	}
	return v
}

// ShowInput opens the coordinate input.
func (c *Controller) ShowInput() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.s.InputVisible = true
}

// TextCommit appends the coordinate typed as "lng,lat".
// A blank entry only closes the input. An invalid entry is reported to the
// notifier and leaves the session unchanged apart from the input buffer.
func (c *Controller) TextCommit(entry string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if strings.TrimSpace(entry) == "" {
		c.s.Input = ""
		c.s.InputVisible = false
		return nil
	}

	coord, err := geo.Parse(entry)
	if err != nil {
		c.s.Input = entry
		c.notifier.NotifyError(titleError, msgBadPosition)
		return err
	}

	list := append(c.s.Coordinates.Clone(), coord)

	c.s.Input = ""
	c.s.InputVisible = false
	if vp, ok := geo.ViewportFor(list); ok {
		c.s.Viewport = &vp
	}

	c.apply("text", list)
	return nil
}

// RemoveTag removes the first coordinate equal to coord.
// It returns false when the coordinate is not in the list.
func (c *Controller) RemoveTag(coord geo.Coordinate) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	list, ok := c.s.Coordinates.Without(coord)
	if !ok {
		return false
	}

	c.apply("tag", list)
	return true
}

// HandleDrawEvent adapts DrawEdited to draw.Memory subscriptions.
func (c *Controller) HandleDrawEvent(ev draw.Event) {
	if err := c.DrawEdited(ev.Features); err != nil {
		log.Debug().
			Err(err).
			Str("session", c.s.ID).
			Str("event", string(ev.Type)).
			Msg("Draw edit rejected")
	}
}

// DrawEdited replaces the coordinate list with the one drawn by the user.
// More than one feature is rejected with a warning and nothing changes;
// the surface keeps showing the extra features until the user deletes them.
func (c *Controller) DrawEdited(fc *geojson.FeatureCollection) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var features []*geojson.Feature
	if fc != nil {
		features = fc.Features
	}

	var list geo.CoordinateList
	switch len(features) {
	case 0:
		list = geo.CoordinateList{}
	case 1:
		g, err := geo.FromOrb(features[0].Geometry)
		if err != nil {
			c.notifier.NotifyWarning(titleWarning, err.Error())
			return err
		}
		list = geo.Extract(g)
	default:
		c.notifier.NotifyWarning(titleWarning, "The number of features needs to be one, please delete the extra!")
		return fmt.Errorf("%w: got %d", ErrTooManyFeatures, len(features))
	}

	c.apply("draw", list)
	return nil
}

// Restore replaces the session with a persisted snapshot without
// reporting it as a change.
func (c *Controller) Restore(snap Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if snap.Unit.Valid() {
		c.s.Unit = snap.Unit
	}
	if snap.Style != "" && c.knownStyle(snap.Style) {
		c.s.Style = snap.Style
	}

	c.s.Coordinates = snap.Coordinates.Clone()
	c.s.generation++
	if vp, ok := geo.ViewportFor(c.s.Coordinates); ok {
		c.s.Viewport = &vp
	}
	c.render()
	c.measure()
	if !snap.UpdatedAt.IsZero() {
		c.s.UpdatedAt = snap.UpdatedAt
	}
}

// SetUnit changes the display unit. The raw area is not recomputed.
func (c *Controller) SetUnit(u area.Unit) error {
	if !u.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidUnit, int(u))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.s.Unit = u
	c.s.Measurement.Unit = u
	c.touch()
	return nil
}

// SetStyle switches the base map style.
func (c *Controller) SetStyle(style string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.knownStyle(style) {
		return fmt.Errorf("%w: %q", ErrUnknownStyle, style)
	}

	c.s.Style = style
	c.touch()
	return nil
}

func (c *Controller) knownStyle(style string) bool {
	if len(c.styles) == 0 {
		return style != ""
	}
	for _, s := range c.styles {
		if s == style {
			return true
		}
	}
	return false
}

// apply installs a new coordinate list and derives everything else from it.
// The caller holds the lock.
func (c *Controller) apply(source string, list geo.CoordinateList) {
	from := StateOf(c.s.Coordinates)

	c.s.Coordinates = list
	c.s.generation++
	c.render()
	c.measure()

	log.Debug().
		Str("session", c.s.ID).
		Str("source", source).
		Stringer("from", from).
		Stringer("to", StateOf(list)).
		Int("points", len(list)).
		Msg("Coordinates changed")

	c.touch()
}

// render replaces whatever the surface shows with the derived geometry.
func (c *Controller) render() {
	c.surface.DeleteAllFeatures()

	g := geo.Classify(c.s.Coordinates)
	if g.IsEmpty() {
		return
	}
	c.surface.AddFeature(c.featureID, g.Orb())
}

func (c *Controller) measure() {
	c.s.Measurement = area.Measure(c.s.Coordinates, c.s.Unit)
}

func (c *Controller) touch() {
	c.s.UpdatedAt = time.Now().UTC()
	if c.onChange != nil {
		c.onChange(c.snapshot())
	}
}
