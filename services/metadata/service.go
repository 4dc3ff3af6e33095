// Package metadata runs the per-session lookup chain: cross-id resolution,
// parallel ratings/reviews fetches, and diffed skin property publication.
package metadata

import (
	"fmt"
	"log"

	"github.com/sourcegraph/conc"

	"focuswatch/models"
)

// SessionValidator reports whether a session is still the current one.
// Every observable side effect checks it after any blocking call it
// depended on; a superseded session must never write stale data.
type SessionValidator interface {
	IsValid(sessionID uint64, itemID string) bool
}

// providerSet is the slice of the provider adapters the chain consumes.
type providerSet interface {
	ResolveCrossID(itemID string, kind models.MediaKind) (string, bool)
	FetchRatings(imdbID string) (map[string]float64, bool)
	FetchReviews(imdbID string, kind models.MediaKind) (string, bool)
}

// Service orchestrates the metadata chain for one focus session at a time.
type Service struct {
	providers providerSet
	writer    *PropertyWriter
	sessions  SessionValidator
}

// NewService creates the metadata chain service.
func NewService(providers providerSet, writer *PropertyWriter, sessions SessionValidator) *Service {
	return &Service{
		providers: providers,
		writer:    writer,
		sessions:  sessions,
	}
}

// ProcessSession resolves ids and publishes ratings and reviews for the
// given session. Safe to call from a detached goroutine; it returns without
// side effects the moment the session goes stale.
func (s *Service) ProcessSession(session models.FocusSession) {
	imdbID, ok := s.providers.ResolveCrossID(session.ItemID, session.Kind)
	if !s.sessions.IsValid(session.ID, session.ItemID) {
		return
	}
	if !ok {
		// No stable id: wipe whatever the previous item published and stop.
		log.Printf("[metadata] no imdb id for item %s, clearing properties", session.ItemID)
		s.writer.ClearTracked()
		return
	}

	var wg conc.WaitGroup
	wg.Go(func() { s.publishRatings(session, imdbID) })
	wg.Go(func() { s.publishReviews(session, imdbID) })
	wg.Wait()
}

// ClearPublished wipes every property the chain publishes. The poller calls
// this when focus leaves the library.
func (s *Service) ClearPublished() {
	s.writer.ClearTracked()
}

func (s *Service) publishRatings(session models.FocusSession, imdbID string) {
	if !s.sessions.IsValid(session.ID, session.ItemID) {
		return
	}
	raw, ok := s.providers.FetchRatings(imdbID)
	if !s.sessions.IsValid(session.ID, session.ItemID) {
		return
	}

	ratings := models.Ratings{}
	if ok {
		ratings = shapeRatings(raw)
	}
	s.writer.Apply(map[string]string{
		PropIMDBRating:       ratings.IMDB,
		PropLetterboxdRating: ratings.Letterboxd,
		PropTraktRating:      ratings.Trakt,
	})
}

func (s *Service) publishReviews(session models.FocusSession, imdbID string) {
	if !s.sessions.IsValid(session.ID, session.ItemID) {
		return
	}
	reviews, ok := s.providers.FetchReviews(imdbID, session.Kind)
	if !s.sessions.IsValid(session.ID, session.ItemID) {
		return
	}

	if !ok {
		reviews = ""
	}
	s.writer.Apply(map[string]string{
		PropReviews: reviews,
	})
}

// shapeRatings converts raw provider scores into the display values the
// skin expects: Letterboxd's 0-5 scale is doubled, Trakt's 0-100 percentage
// is divided down to 0-10.
func shapeRatings(raw map[string]float64) models.Ratings {
	var ratings models.Ratings
	if v, ok := raw["imdb"]; ok {
		ratings.IMDB = fmt.Sprintf("%.1f", v)
	}
	if v, ok := raw["letterboxd"]; ok {
		ratings.Letterboxd = fmt.Sprintf("%.1f", v*2)
	}
	if v, ok := raw["trakt"]; ok {
		ratings.Trakt = fmt.Sprintf("%.1f", v/10)
	}
	return ratings
}
