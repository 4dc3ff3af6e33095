package trakt

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"focuswatch/models"
)

func TestReviews(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/movies/tt0133093/comments/likes" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("trakt-api-key") != "test-client-id" {
			t.Errorf("expected trakt-api-key header")
		}
		if r.Header.Get("trakt-api-version") != "2" {
			t.Errorf("expected trakt-api-version header")
		}
		json.NewEncoder(w).Encode([]Comment{
			{Comment: "Mind-bending.", User: struct {
				Username string `json:"username"`
			}{Username: "neo"}},
			{Comment: "Spoiler: he is the one.", Spoiler: true},
			{Comment: "Still holds up."},
		})
	}))
	defer server.Close()

	origURL := traktAPIBaseURL
	defer func() { setBaseURL(origURL) }()
	setBaseURL(server.URL)

	client := NewClient("test-client-id", nil)
	reviews, err := client.Reviews("tt0133093", models.MediaKindMovie)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(reviews, "Mind-bending. — neo") {
		t.Fatalf("missing first comment: %q", reviews)
	}
	if strings.Contains(reviews, "Spoiler") {
		t.Fatalf("spoiler comment should be skipped: %q", reviews)
	}
	if !strings.Contains(reviews, "Still holds up.") {
		t.Fatalf("missing second comment: %q", reviews)
	}
}

func TestReviewsShowPath(t *testing.T) {
	var path string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		json.NewEncoder(w).Encode([]Comment{})
	}))
	defer server.Close()

	origURL := traktAPIBaseURL
	defer func() { setBaseURL(origURL) }()
	setBaseURL(server.URL)

	client := NewClient("id", nil)
	reviews, err := client.Reviews("tt0903747", models.MediaKindTV)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reviews != "" {
		t.Fatalf("expected empty reviews, got %q", reviews)
	}
	if path != "/shows/tt0903747/comments/likes" {
		t.Fatalf("unexpected path %s", path)
	}
}

func TestReviewsNotFoundIsNoData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	origURL := traktAPIBaseURL
	defer func() { setBaseURL(origURL) }()
	setBaseURL(server.URL)

	client := NewClient("id", nil)
	reviews, err := client.Reviews("tt0000000", models.MediaKindMovie)
	if err != nil {
		t.Fatalf("404 should not be an error: %v", err)
	}
	if reviews != "" {
		t.Fatalf("expected empty reviews, got %q", reviews)
	}
}

func TestReviewsServerErrorIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	origURL := traktAPIBaseURL
	defer func() { setBaseURL(origURL) }()
	setBaseURL(server.URL)

	client := NewClient("id", nil)
	if _, err := client.Reviews("tt0133093", models.MediaKindMovie); err == nil {
		t.Fatal("expected error for server failure")
	}
}
