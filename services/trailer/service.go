// Package trailer owns trailer-URL resolution, player invocation, and the
// sniper watchdog that confirms playback actually started.
package trailer

import (
	"log"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"focuswatch/config"
	"focuswatch/models"
	"focuswatch/services/executor"
)

// Skin properties the pipeline toggles while a trailer spins up.
const (
	PropTrailerLoading = "ds_ondemand_trailer_loading"
	PropTrailerPlaying = "ds_ondemand_trailer_playing"
)

// Provider resolves trailer prerequisites. Implemented by the cache-backed
// metadata providers.
type Provider interface {
	ResolveCrossID(itemID string, kind models.MediaKind) (string, bool)
	FetchTrailerURL(itemID string, kind models.MediaKind) (string, bool)
}

// PlayerControl is the shared playback transport. The player is a singleton
// resource; the pipeline serializes every command to it.
type PlayerControl interface {
	Play(url, title string) error
	Stop() error
	TotalDuration() (time.Duration, error)
}

// PropertySink publishes the loading/playing flags to the skin.
type PropertySink interface {
	SetProperty(name, value string) error
	ClearProperty(name string) error
}

// SessionValidator reports whether a session is still current.
type SessionValidator interface {
	IsValid(sessionID uint64, itemID string) bool
}

// Service is the single live trailer pipeline. Exactly one trailer may be
// loading or playing at a time; a new focus session always forces the
// active one back to idle before starting its own.
type Service struct {
	provider Provider
	player   PlayerControl
	sink     PropertySink
	sessions SessionValidator
	clock    clockwork.Clock
	cfg      config.TrailerSettings

	resolution *executor.Executor
	playback   *executor.Executor
	sniper     *executor.Executor

	// stateMu guards the pipeline state and its owning session only, so
	// poller reads never wait on a slow fetch.
	stateMu   sync.Mutex
	state     models.TrailerState
	ownerID   uint64
	ownerItem string

	// playerMu serializes commands to the shared player.
	playerMu sync.Mutex
}

// NewService creates the trailer pipeline on the three bounded executors.
func NewService(
	provider Provider,
	player PlayerControl,
	sink PropertySink,
	sessions SessionValidator,
	clock clockwork.Clock,
	cfg config.TrailerSettings,
	resolution, playback, sniper *executor.Executor,
) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Service{
		provider:   provider,
		player:     player,
		sink:       sink,
		sessions:   sessions,
		clock:      clock,
		cfg:        cfg,
		resolution: resolution,
		playback:   playback,
		sniper:     sniper,
		state:      models.TrailerIdle,
	}
}

// State returns the current pipeline state, for the status endpoint.
func (s *Service) State() models.TrailerState {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.state
}

// ScheduleFor arms trailer playback for the session once the adaptive delay
// elapses. The timer belongs to the session: if focus has moved on by the
// time it fires, nothing happens.
func (s *Service) ScheduleFor(session models.FocusSession, delay time.Duration) {
	go func() {
		<-s.clock.After(delay)

		if !s.sessions.IsValid(session.ID, session.ItemID) {
			return
		}
		if !s.acquire(session) {
			return
		}
		if _, ok := s.resolution.Submit(session.ID, session.ItemID, func() { s.resolveAndPlay(session) }); !ok {
			// Saturated resolution executor: shed this trailer, do not retry.
			log.Printf("[trailer] resolution executor saturated, skipping item %s", session.ItemID)
			s.release(session)
		}
	}()
}

// Interrupt forces any active trailer back to idle. Called on every focus
// change before the new session's pipeline starts.
func (s *Service) Interrupt() {
	s.stateMu.Lock()
	if s.state == models.TrailerIdle {
		s.stateMu.Unlock()
		return
	}
	wasLive := s.state == models.TrailerLoading || s.state == models.TrailerPlaying
	s.state = models.TrailerIdle
	s.ownerID = 0
	s.ownerItem = ""
	s.stateMu.Unlock()

	s.clearProps()
	if wasLive {
		s.stopPlayer()
	}
}

// acquire moves Idle -> ResolvingId for the session. Fails when another
// trailer is already in flight; the interrupt on focus change makes that
// window small, but two sessions must never share the pipeline.
func (s *Service) acquire(session models.FocusSession) bool {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()

	if s.state != models.TrailerIdle {
		return false
	}
	s.state = models.TrailerResolvingID
	s.ownerID = session.ID
	s.ownerItem = session.ItemID
	return true
}

// transition advances the state machine on behalf of a session. A stale or
// non-owning session's attempt is a no-op.
func (s *Service) transition(session models.FocusSession, to models.TrailerState) bool {
	if !s.sessions.IsValid(session.ID, session.ItemID) {
		return false
	}

	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	if s.ownerID != session.ID {
		return false
	}
	s.state = to
	return true
}

// owns reports whether the session currently owns the pipeline.
func (s *Service) owns(session models.FocusSession) bool {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.ownerID == session.ID
}

// release resets the pipeline to idle if the session still owns it.
func (s *Service) release(session models.FocusSession) {
	s.stateMu.Lock()
	if s.ownerID != session.ID {
		s.stateMu.Unlock()
		return
	}
	s.state = models.TrailerIdle
	s.ownerID = 0
	s.ownerItem = ""
	s.stateMu.Unlock()

	s.clearProps()
}

// resolveAndPlay runs on the resolution executor: cross-id resolution, then
// the trailer-URL fetch, then hand-off to the playback executor.
func (s *Service) resolveAndPlay(session models.FocusSession) {
	if _, ok := s.provider.ResolveCrossID(session.ItemID, session.Kind); !ok {
		s.release(session)
		return
	}
	if !s.transition(session, models.TrailerFetchingTrailer) {
		s.release(session)
		return
	}

	url, ok := s.provider.FetchTrailerURL(session.ItemID, session.Kind)
	if !ok {
		s.release(session)
		return
	}
	if !s.transition(session, models.TrailerReady) {
		s.release(session)
		return
	}

	if _, ok := s.playback.Submit(session.ID, session.ItemID, func() { s.startPlayback(session, url) }); !ok {
		log.Printf("[trailer] playback executor saturated, skipping item %s", session.ItemID)
		s.release(session)
	}
}

// startPlayback runs on the playback executor: invoke the player and spawn
// the sniper that verifies playback really begins.
func (s *Service) startPlayback(session models.FocusSession, url string) {
	if !s.transition(session, models.TrailerLoading) {
		s.release(session)
		return
	}
	s.setProp(PropTrailerLoading, "true")

	s.playerMu.Lock()
	// An interrupt can land between the transition above and here. Its Stop
	// must never be followed by this session's Play, so re-verify ownership
	// while holding the player lock.
	if !s.sessions.IsValid(session.ID, session.ItemID) || !s.owns(session) {
		s.playerMu.Unlock()
		s.release(session)
		return
	}
	err := s.player.Play(url, "Trailer Preview")
	s.playerMu.Unlock()
	if err != nil {
		// Treated exactly like a start that never happened.
		log.Printf("[trailer] player invocation failed for %s: %v", session.ItemID, err)
		s.forceStop(session)
		return
	}

	log.Printf("[trailer] loading %s for item %s (session %d)", url, session.ItemID, session.ID)

	if _, ok := s.sniper.Submit(session.ID, session.ItemID, func() { s.snipe(session) }); !ok {
		// Without a sniper nothing would ever confirm or abort this start.
		log.Printf("[trailer] sniper executor saturated, aborting item %s", session.ItemID)
		s.forceStop(session)
	}
}

// snipe polls the player until it reports a real duration or the timeout
// lapses. A silent failed start otherwise leaves the pipeline wedged in
// Loading forever.
func (s *Service) snipe(session models.FocusSession) {
	deadline := s.clock.Now().Add(s.cfg.SniperTimeout.D())

	for {
		if !s.sessions.IsValid(session.ID, session.ItemID) {
			// Stale mid-watch. If this session still owns the pipeline the
			// interrupt for the next one has not run yet, so the start being
			// watched is live and must be stopped here. Once ownership is
			// gone the interrupt already tore the player down.
			s.playerMu.Lock()
			if s.owns(session) {
				if err := s.player.Stop(); err != nil {
					log.Printf("[trailer] player stop failed: %v", err)
				}
			}
			s.playerMu.Unlock()
			s.release(session)
			return
		}

		duration, err := s.player.TotalDuration()
		if err != nil {
			log.Printf("[trailer] sniper poll failed: %v", err)
		}
		if duration > 0 {
			if !s.transition(session, models.TrailerPlaying) {
				s.release(session)
				return
			}
			s.setProp(PropTrailerPlaying, "true")
			s.clearProp(PropTrailerLoading)
			log.Printf("[trailer] playing confirmed for item %s (session %d)", session.ItemID, session.ID)

			// Short post-stabilization window before the sniper exits, so
			// an immediate player hiccup still lands inside a watched span.
			<-s.clock.After(s.cfg.StabilizationDelay.D())
			return
		}

		if s.clock.Now().After(deadline) {
			log.Printf("[trailer] sniper timeout for item %s, forcing stop", session.ItemID)
			s.forceStop(session)
			return
		}

		<-s.clock.After(s.cfg.SniperInterval.D())
	}
}

// forceStop stops the player and resets to idle. The invocation is never
// left half-started.
func (s *Service) forceStop(session models.FocusSession) {
	s.stopPlayer()
	s.release(session)
}

func (s *Service) stopPlayer() {
	s.playerMu.Lock()
	defer s.playerMu.Unlock()
	if err := s.player.Stop(); err != nil {
		log.Printf("[trailer] player stop failed: %v", err)
	}
}

func (s *Service) setProp(name, value string) {
	if err := s.sink.SetProperty(name, value); err != nil {
		log.Printf("[trailer] set %s failed: %v", name, err)
	}
}

func (s *Service) clearProp(name string) {
	if err := s.sink.ClearProperty(name); err != nil {
		log.Printf("[trailer] clear %s failed: %v", name, err)
	}
}

func (s *Service) clearProps() {
	s.clearProp(PropTrailerLoading)
	s.clearProp(PropTrailerPlaying)
}
