package models

import "time"

// MediaKind classifies the focused library item.
type MediaKind string

const (
	MediaKindMovie MediaKind = "movie"
	MediaKindTV    MediaKind = "tv"
)

// ParseMediaKind maps front-end dbtype labels onto a MediaKind.
// Anything show-shaped (tvshow, season, episode) counts as tv.
func ParseMediaKind(dbtype string) MediaKind {
	switch dbtype {
	case "tv", "tvshow", "season", "episode":
		return MediaKindTV
	default:
		return MediaKindMovie
	}
}

// FocusSession identifies one focus episode. Exactly one session is current
// at a time; a session is superseded, never mutated, by the next one.
type FocusSession struct {
	ID        uint64    `json:"id"`
	ItemID    string    `json:"itemId"`
	Kind      MediaKind `json:"kind"`
	StartTime time.Time `json:"startTime"`
	// Gap is the time between the previous focus change and this one.
	Gap time.Duration `json:"interArrivalGap"`
}

// TrailerState is the lifecycle of the single shared trailer pipeline.
type TrailerState string

const (
	TrailerIdle            TrailerState = "idle"
	TrailerResolvingID     TrailerState = "resolving_id"
	TrailerFetchingTrailer TrailerState = "fetching_trailer"
	TrailerReady           TrailerState = "ready"
	TrailerLoading         TrailerState = "loading"
	TrailerPlaying         TrailerState = "playing"
)

// VisibilityFlags is a snapshot of the front-end window state the poller
// samples each tick.
type VisibilityFlags struct {
	Home            bool `json:"home"`
	LoadingOverlay  bool `json:"loadingOverlay"`
	Fullscreen      bool `json:"fullscreen"`
	ContextMenuOpen bool `json:"contextMenuOpen"`
	DialogActive    bool `json:"dialogActive"`
}

// Observation is one sample of front-end state taken by the focus poller.
type Observation struct {
	ItemID        string          `json:"itemId"`
	Kind          MediaKind       `json:"kind"`
	Flags         VisibilityFlags `json:"flags"`
	PlayerPlaying bool            `json:"playerPlaying"`
	PlayerPaused  bool            `json:"playerPaused"`
}

// Ratings holds the scores published to the skin for one item.
type Ratings struct {
	IMDB       string `json:"imdb_rating,omitempty"`
	Letterboxd string `json:"letterboxd_rating,omitempty"`
	Trakt      string `json:"trakt_rating,omitempty"`
}

// Empty reports whether no provider returned a score.
func (r Ratings) Empty() bool {
	return r.IMDB == "" && r.Letterboxd == "" && r.Trakt == ""
}
