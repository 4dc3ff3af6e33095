// Package kodi implements the front-end ports (focus observation, skin
// property sink, player transport) against a Kodi-compatible JSON-RPC
// HTTP endpoint.
package kodi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"focuswatch/models"
)

const notifySender = "focuswatch"

// propTrailerTitle carries the display title of the current trailer. The
// trailer overlay shows it while playback is active.
const propTrailerTitle = "ds_ondemand_trailer_title"

// Info label and boolean names sampled each poller tick. The skin publishes
// the focused item's id and dbtype as home-window properties.
const (
	labelFocusedID = "Window(Home).Property(ds_info_tmdb_id)"
	labelDBType    = "Window(Home).Property(ds_info_dbtype)"
)

var observeBooleans = []string{
	"Window.IsVisible(home)",
	"Window.IsActive(busydialog)",
	"VideoPlayer.IsFullscreen",
	"Window.IsActive(contextmenu)",
	"System.HasActiveModalDialog",
	"Player.Playing",
	"Player.Paused",
}

// Client is a minimal Kodi JSON-RPC client over HTTP.
type Client struct {
	endpoint string
	username string
	password string
	httpc    *http.Client

	requestID atomic.Int64
}

// NewClient creates a client for the given JSON-RPC endpoint
// (e.g. http://127.0.0.1:8080/jsonrpc).
func NewClient(endpoint, username, password string, httpc *http.Client) *Client {
	if httpc == nil {
		httpc = &http.Client{Timeout: 5 * time.Second}
	}
	return &Client{
		endpoint: endpoint,
		username: username,
		password: password,
		httpc:    httpc,
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

// call performs one JSON-RPC request and decodes the result into out.
func (c *Client) call(method string, params, out any) error {
	payload := rpcRequest{
		JSONRPC: "2.0",
		ID:      c.requestID.Add(1),
		Method:  method,
		Params:  params,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", method, err)
	}

	req, err := http.NewRequest(http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s: unexpected status %s", method, resp.Status)
	}

	var decoded rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	if decoded.Error != nil {
		return fmt.Errorf("%s: rpc error %d: %s", method, decoded.Error.Code, decoded.Error.Message)
	}
	if out != nil && len(decoded.Result) > 0 {
		if err := json.Unmarshal(decoded.Result, out); err != nil {
			return fmt.Errorf("decode %s result: %w", method, err)
		}
	}
	return nil
}

// Observe samples the focused item, window flags and player transport state.
func (c *Client) Observe() (models.Observation, error) {
	var labels map[string]string
	err := c.call("XBMC.GetInfoLabels", map[string]any{
		"labels": []string{labelFocusedID, labelDBType},
	}, &labels)
	if err != nil {
		return models.Observation{}, err
	}

	var booleans map[string]bool
	err = c.call("XBMC.GetInfoBooleans", map[string]any{
		"booleans": observeBooleans,
	}, &booleans)
	if err != nil {
		return models.Observation{}, err
	}

	return models.Observation{
		ItemID: labels[labelFocusedID],
		Kind:   models.ParseMediaKind(labels[labelDBType]),
		Flags: models.VisibilityFlags{
			Home:            booleans["Window.IsVisible(home)"],
			LoadingOverlay:  booleans["Window.IsActive(busydialog)"],
			Fullscreen:      booleans["VideoPlayer.IsFullscreen"],
			ContextMenuOpen: booleans["Window.IsActive(contextmenu)"],
			DialogActive:    booleans["System.HasActiveModalDialog"],
		},
		PlayerPlaying: booleans["Player.Playing"],
		PlayerPaused:  booleans["Player.Paused"],
	}, nil
}

// TotalDuration returns the total duration reported by the active video
// player, or zero when nothing is playing yet.
func (c *Client) TotalDuration() (time.Duration, error) {
	var players []struct {
		PlayerID int    `json:"playerid"`
		Type     string `json:"type"`
	}
	if err := c.call("Player.GetActivePlayers", nil, &players); err != nil {
		return 0, err
	}
	if len(players) == 0 {
		return 0, nil
	}

	var props struct {
		TotalTime struct {
			Hours        int `json:"hours"`
			Minutes      int `json:"minutes"`
			Seconds      int `json:"seconds"`
			Milliseconds int `json:"milliseconds"`
		} `json:"totaltime"`
	}
	err := c.call("Player.GetProperties", map[string]any{
		"playerid":   players[0].PlayerID,
		"properties": []string{"totaltime"},
	}, &props)
	if err != nil {
		return 0, err
	}

	tt := props.TotalTime
	return time.Duration(tt.Hours)*time.Hour +
		time.Duration(tt.Minutes)*time.Minute +
		time.Duration(tt.Seconds)*time.Second +
		time.Duration(tt.Milliseconds)*time.Millisecond, nil
}

// Play opens the given URL on the player. Player.Open cannot carry display
// metadata, so the title travels as a skin property the trailer overlay
// reads while playback is active.
func (c *Client) Play(url, title string) error {
	if title != "" {
		if err := c.SetProperty(propTrailerTitle, title); err != nil {
			return fmt.Errorf("publish trailer title: %w", err)
		}
	}
	return c.call("Player.Open", map[string]any{
		"item": map[string]any{"file": url},
	}, nil)
}

// Stop stops all active players and drops the published trailer title.
func (c *Client) Stop() error {
	var players []struct {
		PlayerID int `json:"playerid"`
	}
	if err := c.call("Player.GetActivePlayers", nil, &players); err != nil {
		return err
	}
	for _, p := range players {
		if err := c.call("Player.Stop", map[string]any{"playerid": p.PlayerID}, nil); err != nil {
			return err
		}
	}
	return c.ClearProperty(propTrailerTitle)
}

// Pause toggles pause on all active players.
func (c *Client) Pause() error {
	var players []struct {
		PlayerID int `json:"playerid"`
	}
	if err := c.call("Player.GetActivePlayers", nil, &players); err != nil {
		return err
	}
	for _, p := range players {
		if err := c.call("Player.PlayPause", map[string]any{"playerid": p.PlayerID}, nil); err != nil {
			return err
		}
	}
	return nil
}

// SetProperty broadcasts a skin property update the front end listens for.
func (c *Client) SetProperty(name, value string) error {
	return c.call("JSONRPC.NotifyAll", map[string]any{
		"sender":  notifySender,
		"message": "SetProperty",
		"data":    map[string]string{"name": name, "value": value},
	}, nil)
}

// ClearProperty broadcasts a skin property removal.
func (c *Client) ClearProperty(name string) error {
	return c.call("JSONRPC.NotifyAll", map[string]any{
		"sender":  notifySender,
		"message": "ClearProperty",
		"data":    map[string]string{"name": name},
	}, nil)
}
