package metadata

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
)

// Minimal MDBList client (single ratings lookup by IMDb id)

var mdblistBaseURL = "https://api.mdblist.com"

// setMDBListBaseURL overrides the API base URL for testing.
func setMDBListBaseURL(u string) { mdblistBaseURL = u }

type mdblistClient struct {
	apiKey string
	httpc  *http.Client
}

func newMDBListClient(apiKey string, httpc *http.Client) *mdblistClient {
	if httpc == nil {
		httpc = &http.Client{Timeout: 15 * time.Second}
	}
	return &mdblistClient{apiKey: apiKey, httpc: httpc}
}

// Ratings returns the raw provider scores keyed by source name
// (imdb, letterboxd, trakt, ...). Sources without a score are omitted.
func (c *mdblistClient) Ratings(imdbID string) (map[string]float64, error) {
	url := fmt.Sprintf("%s/imdb/%s?apikey=%s", mdblistBaseURL, imdbID, c.apiKey)

	var data struct {
		Ratings []struct {
			Source string   `json:"source"`
			Value  *float64 `json:"value"`
		} `json:"ratings"`
	}

	err := retry.Do(
		func() error {
			resp, err := c.httpc.Get(url)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			switch {
			case resp.StatusCode == http.StatusNotFound:
				return nil
			case resp.StatusCode >= 500:
				return fmt.Errorf("mdblist: server status %s", resp.Status)
			case resp.StatusCode >= 300:
				return retry.Unrecoverable(fmt.Errorf("mdblist: unexpected status %s", resp.Status))
			}
			return json.NewDecoder(resp.Body).Decode(&data)
		},
		retry.Attempts(3),
		retry.Delay(200*time.Millisecond),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, err
	}

	ratings := make(map[string]float64)
	for _, r := range data.Ratings {
		if r.Value != nil {
			ratings[r.Source] = *r.Value
		}
	}
	return ratings, nil
}
