package metadata

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"focuswatch/internal/database"
	"focuswatch/models"
)

func setupCache(t *testing.T) *database.CacheStore {
	t.Helper()
	db, err := database.NewDB(database.Config{
		DatabasePath: filepath.Join(t.TempDir(), "cache.db"),
	})
	if err != nil {
		t.Fatalf("new db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db.Cache
}

func TestResolveCrossIDCachesHit(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path != "/movie/603/external_ids" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]string{"imdb_id": "tt0133093"})
	}))
	defer server.Close()

	orig := tmdbBaseURL
	defer func() { setTMDBBaseURL(orig) }()
	setTMDBBaseURL(server.URL)

	providers := NewProviders(setupCache(t), "key", "key", "id", nil)

	for i := 0; i < 3; i++ {
		imdbID, ok := providers.ResolveCrossID("603", models.MediaKindMovie)
		if !ok || imdbID != "tt0133093" {
			t.Fatalf("resolve attempt %d: got %q ok=%v", i, imdbID, ok)
		}
	}
	if n := hits.Load(); n != 1 {
		t.Fatalf("expected 1 provider hit, got %d", n)
	}
}

func TestResolveCrossIDFailureIsNotCached(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	orig := tmdbBaseURL
	defer func() { setTMDBBaseURL(orig) }()
	setTMDBBaseURL(server.URL)

	providers := NewProviders(setupCache(t), "key", "key", "id", nil)

	for i := 0; i < 2; i++ {
		if _, ok := providers.ResolveCrossID("999", models.MediaKindMovie); ok {
			t.Fatal("expected miss")
		}
	}
	if n := hits.Load(); n != 2 {
		t.Fatalf("misses must retry, expected 2 provider hits, got %d", n)
	}
}

func TestEmptyTrailerResultIsCachedNegative(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		json.NewEncoder(w).Encode(map[string]any{"results": []any{}})
	}))
	defer server.Close()

	orig := tmdbBaseURL
	defer func() { setTMDBBaseURL(orig) }()
	setTMDBBaseURL(server.URL)

	providers := NewProviders(setupCache(t), "key", "key", "id", nil)

	for i := 0; i < 3; i++ {
		if _, ok := providers.FetchTrailerURL("603", models.MediaKindMovie); ok {
			t.Fatal("expected no trailer")
		}
	}
	// An item known to have no trailer is not re-fetched.
	if n := hits.Load(); n != 1 {
		t.Fatalf("expected 1 provider hit, got %d", n)
	}
}

func TestEmptyRatingsAreNotCachedNegative(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		json.NewEncoder(w).Encode(map[string]any{"ratings": []any{}})
	}))
	defer server.Close()

	orig := mdblistBaseURL
	defer func() { setMDBListBaseURL(orig) }()
	setMDBListBaseURL(server.URL)

	providers := NewProviders(setupCache(t), "key", "key", "id", nil)

	for i := 0; i < 2; i++ {
		if _, ok := providers.FetchRatings("tt0133093"); ok {
			t.Fatal("expected no ratings")
		}
	}
	// Empty ratings retry on the next session.
	if n := hits.Load(); n != 2 {
		t.Fatalf("expected 2 provider hits, got %d", n)
	}
}

func TestFetchTrailerURLPicksOfficialTrailer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{"key": "teaser1", "site": "YouTube", "type": "Teaser"},
				{"key": "fanmade", "site": "YouTube", "type": "Trailer", "official": false},
				{"key": "official1", "site": "YouTube", "type": "Trailer", "official": true},
				{"key": "vimeo1", "site": "Vimeo", "type": "Trailer", "official": true},
			},
		})
	}))
	defer server.Close()

	orig := tmdbBaseURL
	defer func() { setTMDBBaseURL(orig) }()
	setTMDBBaseURL(server.URL)

	providers := NewProviders(setupCache(t), "key", "key", "id", nil)

	url, ok := providers.FetchTrailerURL("603", models.MediaKindMovie)
	if !ok {
		t.Fatal("expected trailer")
	}
	want := "plugin://plugin.video.youtube/play/?video_id=official1"
	if url != want {
		t.Fatalf("url = %q, want %q", url, want)
	}
}

func TestRatingsCachedAfterSuccess(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		json.NewEncoder(w).Encode(map[string]any{
			"ratings": []map[string]any{
				{"source": "imdb", "value": 8.7},
				{"source": "metacritic", "value": nil},
			},
		})
	}))
	defer server.Close()

	orig := mdblistBaseURL
	defer func() { setMDBListBaseURL(orig) }()
	setMDBListBaseURL(server.URL)

	providers := NewProviders(setupCache(t), "key", "key", "id", nil)

	for i := 0; i < 3; i++ {
		ratings, ok := providers.FetchRatings("tt0133093")
		if !ok {
			t.Fatalf("attempt %d: expected ratings", i)
		}
		if ratings["imdb"] != 8.7 {
			t.Fatalf("imdb = %v", ratings["imdb"])
		}
		if _, exists := ratings["metacritic"]; exists {
			t.Fatal("null scores should be dropped")
		}
	}
	if n := hits.Load(); n != 1 {
		t.Fatalf("expected 1 provider hit, got %d", n)
	}
}
