// Package trakt provides the review lookups published alongside ratings.
package trakt

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"focuswatch/models"
)

var traktAPIBaseURL = "https://api.trakt.tv"

// setBaseURL overrides the API base URL for testing.
func setBaseURL(u string) { traktAPIBaseURL = u }

const (
	traktAPIVersion = "2"

	// maxComments caps how many review comments are folded into the
	// published text blob.
	maxComments = 3
)

// Client handles Trakt API interactions for review fetching.
type Client struct {
	httpClient *http.Client
	clientID   string
}

// Comment represents one Trakt comment on a movie or show.
type Comment struct {
	Comment   string    `json:"comment"`
	Spoiler   bool      `json:"spoiler"`
	Review    bool      `json:"review"`
	Likes     int       `json:"likes"`
	CreatedAt time.Time `json:"created_at"`
	User      struct {
		Username string `json:"username"`
	} `json:"user"`
}

// NewClient creates a new Trakt API client.
func NewClient(clientID string, httpc *http.Client) *Client {
	if httpc == nil {
		httpc = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		httpClient: httpc,
		clientID:   clientID,
	}
}

// setTraktHeaders adds required Trakt API headers to a request.
func (c *Client) setTraktHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("trakt-api-version", traktAPIVersion)
	req.Header.Set("trakt-api-key", c.clientID)
}

// Reviews fetches the most-liked comments for an item and folds them into a
// single display blob. Empty with a nil error means no reviews exist.
func (c *Client) Reviews(imdbID string, kind models.MediaKind) (string, error) {
	kindPath := "movies"
	if kind == models.MediaKindTV {
		kindPath = "shows"
	}
	url := fmt.Sprintf("%s/%s/%s/comments/likes?limit=%d", traktAPIBaseURL, kindPath, imdbID, maxComments)

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build comments request: %w", err)
	}
	c.setTraktHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch comments: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", nil
	}
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("fetch comments: unexpected status %s", resp.Status)
	}

	var comments []Comment
	if err := json.NewDecoder(resp.Body).Decode(&comments); err != nil {
		return "", fmt.Errorf("decode comments: %w", err)
	}

	return formatComments(comments), nil
}

// formatComments joins comments into the text published to the skin,
// skipping spoilers.
func formatComments(comments []Comment) string {
	var parts []string
	for _, comment := range comments {
		if comment.Spoiler {
			continue
		}
		text := strings.TrimSpace(comment.Comment)
		if text == "" {
			continue
		}
		if comment.User.Username != "" {
			parts = append(parts, fmt.Sprintf("%s — %s", text, comment.User.Username))
		} else {
			parts = append(parts, text)
		}
		if len(parts) >= maxComments {
			break
		}
	}
	return strings.Join(parts, "\n\n")
}
