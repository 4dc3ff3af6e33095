package metadata

import (
	"log"
	"net/http"

	"focuswatch/internal/database"
	"focuswatch/models"
	"focuswatch/services/trakt"
)

// Providers wraps each external lookup behind a uniform cache-backed
// fetch(key) -> (value, ok) contract. A false return covers both "no data"
// and transient failure; the two are logged differently but callers treat
// them the same.
//
// Negative-result caching is deliberately asymmetric: an item known to have
// no trailer is cached empty under the long trailer TTL so we stop hammering
// the provider for it, while empty ratings/reviews are never cached so the
// next session retries them.
type Providers struct {
	cache   *database.CacheStore
	tmdb    *tmdbClient
	mdblist *mdblistClient
	trakt   *trakt.Client
}

// NewProviders constructs the provider adapters with shared HTTP transport.
func NewProviders(cache *database.CacheStore, tmdbAPIKey, mdblistAPIKey, traktClientID string, httpc *http.Client) *Providers {
	return &Providers{
		cache:   cache,
		tmdb:    newTMDBClient(tmdbAPIKey, httpc),
		mdblist: newMDBListClient(mdblistAPIKey, httpc),
		trakt:   trakt.NewClient(traktClientID, httpc),
	}
}

// ResolveCrossID resolves a front-end item id (TMDB) to a stable IMDb id.
func (p *Providers) ResolveCrossID(itemID string, kind models.MediaKind) (string, bool) {
	key := string(kind) + ":" + itemID

	var imdbID string
	hit, err := p.cache.Get(database.NamespaceIDResolution, key, &imdbID)
	if err != nil {
		log.Printf("[providers] id cache read failed for %s: %v", key, err)
	}
	if hit && imdbID != "" {
		return imdbID, true
	}

	imdbID, err = p.tmdb.ExternalIMDBID(itemID, kind)
	if err != nil {
		log.Printf("[providers] id resolution failed for %s: %v", key, err)
		return "", false
	}
	if imdbID == "" {
		return "", false
	}

	if err := p.cache.Put(database.NamespaceIDResolution, key, imdbID); err != nil {
		log.Printf("[providers] id cache write failed for %s: %v", key, err)
	}
	return imdbID, true
}

// FetchRatings returns the raw provider scores for an IMDb id.
func (p *Providers) FetchRatings(imdbID string) (map[string]float64, bool) {
	var ratings map[string]float64
	hit, err := p.cache.Get(database.NamespaceRatings, imdbID, &ratings)
	if err != nil {
		log.Printf("[providers] ratings cache read failed for %s: %v", imdbID, err)
	}
	if hit && len(ratings) > 0 {
		return ratings, true
	}

	ratings, err = p.mdblist.Ratings(imdbID)
	if err != nil {
		log.Printf("[providers] ratings fetch failed for %s: %v", imdbID, err)
		return nil, false
	}
	if len(ratings) == 0 {
		// Empty ratings are not cached; the next session retries.
		return nil, false
	}

	if err := p.cache.Put(database.NamespaceRatings, imdbID, ratings); err != nil {
		log.Printf("[providers] ratings cache write failed for %s: %v", imdbID, err)
	}
	return ratings, true
}

// FetchReviews returns the review text blob for an IMDb id.
func (p *Providers) FetchReviews(imdbID string, kind models.MediaKind) (string, bool) {
	key := string(kind) + ":" + imdbID

	var reviews string
	hit, err := p.cache.Get(database.NamespaceReviews, key, &reviews)
	if err != nil {
		log.Printf("[providers] reviews cache read failed for %s: %v", key, err)
	}
	if hit && reviews != "" {
		return reviews, true
	}

	reviews, err = p.trakt.Reviews(imdbID, kind)
	if err != nil {
		log.Printf("[providers] reviews fetch failed for %s: %v", key, err)
		return "", false
	}
	if reviews == "" {
		// Empty reviews are not cached; the next session retries.
		return "", false
	}

	if err := p.cache.Put(database.NamespaceReviews, key, reviews); err != nil {
		log.Printf("[providers] reviews cache write failed for %s: %v", key, err)
	}
	return reviews, true
}

// FetchTrailerURL returns a playable trailer URL for a front-end item id.
// An empty fetch result is cached so repeat visits to a trailer-less item
// cost nothing until the long trailer TTL lapses.
func (p *Providers) FetchTrailerURL(itemID string, kind models.MediaKind) (string, bool) {
	key := string(kind) + ":" + itemID

	var url string
	hit, err := p.cache.Get(database.NamespaceTrailerURL, key, &url)
	if err != nil {
		log.Printf("[providers] trailer cache read failed for %s: %v", key, err)
	}
	if hit {
		return url, url != ""
	}

	url, err = p.tmdb.TrailerURL(itemID, kind)
	if err != nil {
		log.Printf("[providers] trailer fetch failed for %s: %v", key, err)
		return "", false
	}

	if err := p.cache.Put(database.NamespaceTrailerURL, key, url); err != nil {
		log.Printf("[providers] trailer cache write failed for %s: %v", key, err)
	}
	return url, url != ""
}
