// Package focus owns the notion of "current focus": it issues session ids,
// answers validity checks for in-flight work, and drives the sampling loop
// that turns front-end state into sessions.
package focus

import (
	"sync"

	"github.com/jonboulle/clockwork"

	"focuswatch/models"
)

// Controller issues monotonically increasing session ids and is the single
// authority in-flight work consults before producing any side effect.
// Cancellation is cooperative: beginning a session invalidates every prior
// one, and stale tasks notice through IsValid at their checkpoints. Nothing
// is ever forcibly interrupted.
type Controller struct {
	mu      sync.Mutex
	clock   clockwork.Clock
	current models.FocusSession
	active  bool
}

// NewController creates a session controller.
func NewController(clock clockwork.Clock) *Controller {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Controller{clock: clock}
}

// Begin allocates the next session id for the given item and makes it
// current, superseding any previous session.
func (c *Controller) Begin(itemID string, kind models.MediaKind) models.FocusSession {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	session := models.FocusSession{
		ID:        c.current.ID + 1,
		ItemID:    itemID,
		Kind:      kind,
		StartTime: now,
	}
	if c.active {
		session.Gap = now.Sub(c.current.StartTime)
	}

	c.current = session
	c.active = true
	return session
}

// Invalidate supersedes the current session without starting a new one.
// Used when focus leaves the library entirely.
func (c *Controller) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.active {
		return
	}
	c.current = models.FocusSession{ID: c.current.ID + 1}
	c.active = false
}

// IsValid reports whether the given session id and item still match the
// current session.
func (c *Controller) IsValid(sessionID uint64, itemID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active && c.current.ID == sessionID && c.current.ItemID == itemID
}

// Current returns the current session, if any.
func (c *Controller) Current() (models.FocusSession, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current, c.active
}
