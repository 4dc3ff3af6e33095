package focus

import (
	"context"
	"log"
	"runtime/debug"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"focuswatch/config"
	"focuswatch/models"
)

// ObservationPort samples the front end. The poller is pure logic over this
// interface so it can run against a fake in tests.
type ObservationPort interface {
	Observe() (models.Observation, error)
}

// MetadataChain is the per-session lookup pipeline.
type MetadataChain interface {
	ProcessSession(session models.FocusSession)
	ClearPublished()
}

// TrailerPipeline is the trailer state machine.
type TrailerPipeline interface {
	// ScheduleFor arms trailer playback for the session after the delay.
	ScheduleFor(session models.FocusSession, delay time.Duration)
	// Interrupt forces any active trailer back to idle.
	Interrupt()
}

// Poller is the single driving loop. It samples front-end state on a
// variable interval, detects focus transitions, and dispatches the metadata
// chain and trailer pipeline for each new session.
type Poller struct {
	port     ObservationPort
	ctrl     *Controller
	delays   *DelayScheduler
	metadata MetadataChain
	trailer  TrailerPipeline
	clock    clockwork.Clock

	cfg            config.PollerSettings
	trailerEnabled bool

	mu       sync.Mutex
	running  bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	lastItem string
}

// NewPoller wires the driving loop.
func NewPoller(
	port ObservationPort,
	ctrl *Controller,
	delays *DelayScheduler,
	metadata MetadataChain,
	trailer TrailerPipeline,
	clock clockwork.Clock,
	cfg config.PollerSettings,
	trailerEnabled bool,
) *Poller {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Poller{
		port:           port,
		ctrl:           ctrl,
		delays:         delays,
		metadata:       metadata,
		trailer:        trailer,
		clock:          clock,
		cfg:            cfg,
		trailerEnabled: trailerEnabled,
	}
}

// Start begins the polling loop.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return nil
	}
	ctx, p.cancel = context.WithCancel(ctx)
	p.running = true

	p.wg.Add(1)
	go p.loop(ctx)

	log.Println("[poller] started")
	return nil
}

// Stop halts the loop and waits for it to exit.
func (p *Poller) Stop(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return nil
	}
	p.cancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		log.Println("[poller] stopped")
	case <-ctx.Done():
		log.Println("[poller] stopped (timeout)")
	}

	p.running = false
	return nil
}

func (p *Poller) loop(ctx context.Context) {
	defer p.wg.Done()

	interval := p.cfg.ActiveInterval.D()
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.clock.After(interval):
		}
		interval = p.tick()
	}
}

// tick samples the front end once and returns the interval until the next
// sample. A single faulty lookup must never take the loop down, so the
// whole tick is panic-guarded.
func (p *Poller) tick() (next time.Duration) {
	next = p.cfg.ActiveInterval.D()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[poller] tick panicked: %v\n%s", r, debug.Stack())
		}
	}()

	obs, err := p.port.Observe()
	if err != nil {
		log.Printf("[poller] observe failed: %v", err)
		return p.cfg.IdleInterval.D()
	}

	// During long-form fullscreen playback, paused or not, back off and
	// leave the player alone. Trailer playback is windowed, never fullscreen.
	if obs.Flags.Fullscreen && (obs.PlayerPlaying || obs.PlayerPaused) {
		return p.cfg.IdleInterval.D()
	}

	// A blocking overlay means the focused item is not meaningfully
	// selected; sample again soon without starting work.
	if obs.Flags.LoadingOverlay || obs.Flags.ContextMenuOpen || obs.Flags.DialogActive {
		return p.cfg.ActiveInterval.D()
	}

	// Focus samples are home-window properties. When the home window is not
	// visible the reported item is leftover state, not a live focus.
	if !obs.Flags.Home {
		obs.ItemID = ""
	}

	switch {
	case obs.ItemID == "" && p.lastItem != "":
		// Focus left the library: supersede the session, drop published
		// metadata and force any trailer back to idle.
		p.lastItem = ""
		p.ctrl.Invalidate()
		p.trailer.Interrupt()
		p.metadata.ClearPublished()
		return p.cfg.IdleInterval.D()

	case obs.ItemID == "":
		return p.cfg.IdleInterval.D()

	case obs.ItemID != p.lastItem:
		p.lastItem = obs.ItemID
		p.handleFocusChange(obs)
	}

	return p.cfg.ActiveInterval.D()
}

func (p *Poller) handleFocusChange(obs models.Observation) {
	// New session first: every task spawned below checks validity against
	// it, and any work belonging to the previous session goes stale now.
	session := p.ctrl.Begin(obs.ItemID, obs.Kind)
	p.trailer.Interrupt()

	log.Printf("[poller] focus -> %s (session %d, gap %s)", session.ItemID, session.ID, session.Gap)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Printf("[poller] metadata chain panicked: %v\n%s", r, debug.Stack())
			}
		}()
		p.metadata.ProcessSession(session)
	}()

	if p.trailerEnabled {
		p.trailer.ScheduleFor(session, p.delays.DelayFor(session.Gap))
	}
}
