package metadata

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"

	"focuswatch/models"
)

// Minimal TMDB v3 client (external_ids and videos endpoints we need)

var tmdbBaseURL = "https://api.themoviedb.org/3"

// setTMDBBaseURL overrides the API base URL for testing.
func setTMDBBaseURL(u string) { tmdbBaseURL = u }

type tmdbClient struct {
	apiKey string
	httpc  *http.Client
}

func newTMDBClient(apiKey string, httpc *http.Client) *tmdbClient {
	if httpc == nil {
		httpc = &http.Client{Timeout: 15 * time.Second}
	}
	return &tmdbClient{apiKey: apiKey, httpc: httpc}
}

func tmdbKindPath(kind models.MediaKind) string {
	if kind == models.MediaKindTV {
		return "tv"
	}
	return "movie"
}

// getJSON performs a GET with retries on transport errors and 5xx responses.
// A 404 is reported via the notFound return, distinct from failure.
func (c *tmdbClient) getJSON(url string, out any) (notFound bool, err error) {
	err = retry.Do(
		func() error {
			resp, err := c.httpc.Get(url)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			switch {
			case resp.StatusCode == http.StatusNotFound:
				notFound = true
				return nil
			case resp.StatusCode >= 500:
				return fmt.Errorf("tmdb: server status %s", resp.Status)
			case resp.StatusCode >= 300:
				return retry.Unrecoverable(fmt.Errorf("tmdb: unexpected status %s", resp.Status))
			}
			return json.NewDecoder(resp.Body).Decode(out)
		},
		retry.Attempts(3),
		retry.Delay(200*time.Millisecond),
		retry.LastErrorOnly(true),
	)
	return notFound, err
}

// ExternalIMDBID resolves a TMDB id to its IMDb id. An empty id with a nil
// error means the item has no IMDb mapping.
func (c *tmdbClient) ExternalIMDBID(tmdbID string, kind models.MediaKind) (string, error) {
	url := fmt.Sprintf("%s/%s/%s/external_ids?api_key=%s", tmdbBaseURL, tmdbKindPath(kind), tmdbID, c.apiKey)

	var data struct {
		IMDBID string `json:"imdb_id"`
	}
	notFound, err := c.getJSON(url, &data)
	if err != nil {
		return "", err
	}
	if notFound {
		return "", nil
	}
	return data.IMDBID, nil
}

// TrailerURL returns a playable URL for the best trailer of the given item,
// or empty when the item has none. Official YouTube trailers win, then any
// YouTube trailer, then any YouTube teaser.
func (c *tmdbClient) TrailerURL(tmdbID string, kind models.MediaKind) (string, error) {
	url := fmt.Sprintf("%s/%s/%s/videos?api_key=%s", tmdbBaseURL, tmdbKindPath(kind), tmdbID, c.apiKey)

	var data struct {
		Results []struct {
			Key      string `json:"key"`
			Site     string `json:"site"`
			Type     string `json:"type"`
			Official bool   `json:"official"`
		} `json:"results"`
	}
	notFound, err := c.getJSON(url, &data)
	if err != nil {
		return "", err
	}
	if notFound {
		return "", nil
	}

	var trailer, teaser string
	for _, v := range data.Results {
		if v.Site != "YouTube" || v.Key == "" {
			continue
		}
		switch v.Type {
		case "Trailer":
			if v.Official {
				return youtubePlayURL(v.Key), nil
			}
			if trailer == "" {
				trailer = v.Key
			}
		case "Teaser":
			if teaser == "" {
				teaser = v.Key
			}
		}
	}
	if trailer != "" {
		return youtubePlayURL(trailer), nil
	}
	if teaser != "" {
		return youtubePlayURL(teaser), nil
	}
	return "", nil
}

// youtubePlayURL builds the front-end playable URL for a YouTube video key.
func youtubePlayURL(key string) string {
	return "plugin://plugin.video.youtube/play/?video_id=" + key
}
