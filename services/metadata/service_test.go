package metadata

import (
	"sync"
	"testing"
	"time"

	"focuswatch/models"
)

type stubProviders struct {
	mu      sync.Mutex
	imdbID  string
	ratings map[string]float64
	reviews string

	// onResolve runs inside ResolveCrossID, before it returns. Tests use it
	// to supersede the session mid-flight.
	onResolve func()
}

func (p *stubProviders) ResolveCrossID(itemID string, kind models.MediaKind) (string, bool) {
	if p.onResolve != nil {
		p.onResolve()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.imdbID, p.imdbID != ""
}

func (p *stubProviders) FetchRatings(imdbID string) (map[string]float64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ratings, len(p.ratings) > 0
}

func (p *stubProviders) FetchReviews(imdbID string, kind models.MediaKind) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reviews, p.reviews != ""
}

type stubValidator struct {
	mu   sync.Mutex
	id   uint64
	item string
}

func (v *stubValidator) set(id uint64, item string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.id = id
	v.item = item
}

func (v *stubValidator) IsValid(sessionID uint64, itemID string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.id == sessionID && v.item == itemID
}

type recordingSink struct {
	mu       sync.Mutex
	sets     map[string]string
	setCalls int
	clears   []string
}

func newRecordingSink() *recordingSink {
	return &recordingSink{sets: make(map[string]string)}
}

func (s *recordingSink) SetProperty(name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sets[name] = value
	s.setCalls++
	return nil
}

func (s *recordingSink) ClearProperty(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clears = append(s.clears, name)
	return nil
}

func (s *recordingSink) setCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sets)
}

func (s *recordingSink) get(name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sets[name]
}

func (s *recordingSink) clearedNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.clears...)
}

func testSession() models.FocusSession {
	return models.FocusSession{ID: 1, ItemID: "603", Kind: models.MediaKindMovie, StartTime: time.Now()}
}

func TestProcessSessionPublishesShapedRatings(t *testing.T) {
	providers := &stubProviders{
		imdbID:  "tt0133093",
		ratings: map[string]float64{"imdb": 8.7, "letterboxd": 4.2, "trakt": 85},
		reviews: "Mind-bending. — neo",
	}
	validator := &stubValidator{}
	validator.set(1, "603")
	sink := newRecordingSink()

	svc := NewService(providers, NewPropertyWriter(sink), validator)
	svc.ProcessSession(testSession())

	if got := sink.get(PropIMDBRating); got != "8.7" {
		t.Fatalf("imdb rating = %q", got)
	}
	if got := sink.get(PropLetterboxdRating); got != "8.4" {
		t.Fatalf("letterboxd rating should be doubled, got %q", got)
	}
	if got := sink.get(PropTraktRating); got != "8.5" {
		t.Fatalf("trakt rating should be scaled down, got %q", got)
	}
	if got := sink.get(PropReviews); got != "Mind-bending. — neo" {
		t.Fatalf("reviews = %q", got)
	}
}

func TestProcessSessionResolutionFailureClearsEverything(t *testing.T) {
	providers := &stubProviders{imdbID: ""}
	validator := &stubValidator{}
	validator.set(1, "603")
	sink := newRecordingSink()

	svc := NewService(providers, NewPropertyWriter(sink), validator)
	svc.ProcessSession(testSession())

	if n := sink.setCount(); n != 0 {
		t.Fatalf("no writes expected, got %d", n)
	}
	cleared := sink.clearedNames()
	for _, want := range trackedProperties {
		found := false
		for _, name := range cleared {
			if name == want {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("property %s never cleared; cleared: %v", want, cleared)
		}
	}
}

func TestStaleSessionProducesNoWrites(t *testing.T) {
	validator := &stubValidator{}
	validator.set(1, "603")

	providers := &stubProviders{
		imdbID:  "tt0133093",
		ratings: map[string]float64{"imdb": 8.7},
		reviews: "great",
	}
	// Focus moves on while resolution is in flight.
	providers.onResolve = func() { validator.set(2, "604") }

	sink := newRecordingSink()
	svc := NewService(providers, NewPropertyWriter(sink), validator)
	svc.ProcessSession(testSession())

	if n := sink.setCount(); n != 0 {
		t.Fatalf("superseded session must not write, got %d writes", n)
	}
	if n := len(sink.clearedNames()); n != 0 {
		t.Fatalf("superseded session must not clear, got %d clears", n)
	}
}

func TestMissingRatingsClearOnlyRatingProperties(t *testing.T) {
	providers := &stubProviders{
		imdbID:  "tt0133093",
		reviews: "solid",
	}
	validator := &stubValidator{}
	validator.set(1, "603")
	sink := newRecordingSink()

	svc := NewService(providers, NewPropertyWriter(sink), validator)
	svc.ProcessSession(testSession())

	if got := sink.get(PropReviews); got != "solid" {
		t.Fatalf("reviews should publish, got %q", got)
	}
	if got := sink.get(PropIMDBRating); got != "" {
		t.Fatalf("imdb rating should not be set, got %q", got)
	}
}

func TestPropertyWriterSuppressesUnchangedWrites(t *testing.T) {
	sink := newRecordingSink()
	writer := NewPropertyWriter(sink)

	writer.Apply(map[string]string{PropIMDBRating: "8.7"})
	writer.Apply(map[string]string{PropIMDBRating: "8.7"})

	sink.mu.Lock()
	calls := sink.setCalls
	sink.mu.Unlock()
	if calls != 1 {
		t.Fatalf("unchanged value should be suppressed, got %d writes", calls)
	}

	writer.Apply(map[string]string{PropIMDBRating: "9.0"})
	sink.mu.Lock()
	calls = sink.setCalls
	sink.mu.Unlock()
	if calls != 2 {
		t.Fatalf("changed value should be written, got %d writes", calls)
	}
	if got := sink.get(PropIMDBRating); got != "9.0" {
		t.Fatalf("changed value = %q", got)
	}
}

func TestShapeRatingsHandlesMissingSources(t *testing.T) {
	got := shapeRatings(map[string]float64{"letterboxd": 3.5})
	if got.Letterboxd != "7.0" {
		t.Fatalf("letterboxd = %q", got.Letterboxd)
	}
	if got.IMDB != "" || got.Trakt != "" {
		t.Fatalf("missing sources should stay empty: %+v", got)
	}
}
