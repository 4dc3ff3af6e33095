package config

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/afero"
)

// Settings is the full persisted configuration for the service.
type Settings struct {
	Kodi      KodiSettings     `json:"kodi"`
	Providers ProviderSettings `json:"providers"`
	Cache     CacheSettings    `json:"cache"`
	Poller    PollerSettings   `json:"poller"`
	Trailer   TrailerSettings  `json:"trailer"`
	Executors ExecutorSettings `json:"executors"`
	Logging   LoggingSettings  `json:"logging"`
}

// KodiSettings configures the JSON-RPC connection to the front end.
type KodiSettings struct {
	Endpoint string `json:"endpoint"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
}

// ProviderSettings holds external API credentials.
type ProviderSettings struct {
	TMDBAPIKey     string   `json:"tmdbApiKey"`
	MDBListAPIKey  string   `json:"mdblistApiKey"`
	TraktClientID  string   `json:"traktClientId"`
	RequestTimeout Duration `json:"requestTimeout"`
}

// CacheSettings holds the per-namespace TTLs of the lookup cache.
type CacheSettings struct {
	DatabasePath string   `json:"databasePath"`
	IDResolution Duration `json:"idResolutionTTL"`
	TrailerURL   Duration `json:"trailerUrlTTL"`
	Ratings      Duration `json:"ratingsTTL"`
	Reviews      Duration `json:"reviewsTTL"`
}

// PollerSettings drives the focus sampling loop and the adaptive trailer delay.
type PollerSettings struct {
	ActiveInterval Duration `json:"activeInterval"`
	IdleInterval   Duration `json:"idleInterval"`

	// Inter-arrival gap classification thresholds.
	FastThreshold   Duration `json:"fastThreshold"`
	MediumThreshold Duration `json:"mediumThreshold"`

	// Trailer trigger delay per velocity tier. Fast scrolling gets the
	// longest delay, deliberate focus the shortest.
	FastDelay   Duration `json:"fastDelay"`
	MediumDelay Duration `json:"mediumDelay"`
	SlowDelay   Duration `json:"slowDelay"`
}

// TrailerSettings configures trailer playback and the sniper watchdog.
type TrailerSettings struct {
	Enabled            bool     `json:"enabled"`
	SniperTimeout      Duration `json:"sniperTimeout"`
	SniperInterval     Duration `json:"sniperInterval"`
	StabilizationDelay Duration `json:"stabilizationDelay"`
}

// ExecutorSettings sizes the three bounded task executors.
type ExecutorSettings struct {
	ResolutionWorkers int `json:"resolutionWorkers"`
	ResolutionQueue   int `json:"resolutionQueue"`
	PlaybackWorkers   int `json:"playbackWorkers"`
	PlaybackQueue     int `json:"playbackQueue"`
	SniperWorkers     int `json:"sniperWorkers"`
	SniperQueue       int `json:"sniperQueue"`
}

// LoggingSettings configures the rotating log file.
type LoggingSettings struct {
	Path       string `json:"path"`
	MaxSizeMB  int    `json:"maxSizeMb"`
	MaxBackups int    `json:"maxBackups"`
	MaxAgeDays int    `json:"maxAgeDays"`
}

// DefaultSettings returns the settings used when no settings file exists yet.
func DefaultSettings() Settings {
	return Settings{
		Kodi: KodiSettings{
			Endpoint: "http://127.0.0.1:8080/jsonrpc",
		},
		Providers: ProviderSettings{
			RequestTimeout: Duration(15 * time.Second),
		},
		Cache: CacheSettings{
			DatabasePath: "data/cache.db",
			IDResolution: Duration(90 * 24 * time.Hour),
			TrailerURL:   Duration(60 * 24 * time.Hour),
			Ratings:      Duration(15 * 24 * time.Hour),
			Reviews:      Duration(15 * 24 * time.Hour),
		},
		Poller: PollerSettings{
			ActiveInterval:  Duration(250 * time.Millisecond),
			IdleInterval:    Duration(2 * time.Second),
			FastThreshold:   Duration(400 * time.Millisecond),
			MediumThreshold: Duration(1500 * time.Millisecond),
			FastDelay:       Duration(5 * time.Second),
			MediumDelay:     Duration(3 * time.Second),
			SlowDelay:       Duration(1500 * time.Millisecond),
		},
		Trailer: TrailerSettings{
			Enabled:            true,
			SniperTimeout:      Duration(12 * time.Second),
			SniperInterval:     Duration(200 * time.Millisecond),
			StabilizationDelay: Duration(500 * time.Millisecond),
		},
		Executors: ExecutorSettings{
			ResolutionWorkers: 1,
			ResolutionQueue:   1,
			PlaybackWorkers:   1,
			PlaybackQueue:     1,
			SniperWorkers:     1,
			SniperQueue:       1,
		},
		Logging: LoggingSettings{
			Path:       "logs/focuswatch.log",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 14,
		},
	}
}

// Manager loads and saves the settings file. Reads are served from an
// in-memory copy so the hot path never touches disk.
type Manager struct {
	mu   sync.RWMutex
	fs   afero.Fs
	path string

	loaded  bool
	current Settings
}

// NewManager creates a settings manager backed by the OS filesystem.
func NewManager(path string) *Manager {
	return NewManagerWithFs(afero.NewOsFs(), path)
}

// NewManagerWithFs creates a settings manager on the given filesystem.
// Tests use afero.NewMemMapFs().
func NewManagerWithFs(fs afero.Fs, path string) *Manager {
	return &Manager{fs: fs, path: path}
}

// Load returns the current settings, reading the file on first use and
// falling back to defaults when it does not exist.
func (m *Manager) Load() (Settings, error) {
	m.mu.RLock()
	if m.loaded {
		s := m.current
		m.mu.RUnlock()
		return s, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loaded {
		return m.current, nil
	}

	exists, err := afero.Exists(m.fs, m.path)
	if err != nil {
		return Settings{}, fmt.Errorf("stat settings file: %w", err)
	}
	if !exists {
		m.current = DefaultSettings()
		m.loaded = true
		return m.current, nil
	}

	data, err := afero.ReadFile(m.fs, m.path)
	if err != nil {
		return Settings{}, fmt.Errorf("read settings file: %w", err)
	}

	settings := DefaultSettings()
	if err := json.Unmarshal(data, &settings); err != nil {
		return Settings{}, fmt.Errorf("decode settings: %w", err)
	}

	m.current = settings
	m.loaded = true
	return m.current, nil
}

// Save persists the given settings and makes them current.
func (m *Manager) Save(settings Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if dir := filepath.Dir(m.path); dir != "." {
		if err := m.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create settings dir: %w", err)
		}
	}

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	// Write to temp file then rename so a crash never truncates settings.
	tmp := m.path + ".tmp"
	if err := afero.WriteFile(m.fs, tmp, data, 0o644); err != nil {
		return fmt.Errorf("write settings temp file: %w", err)
	}
	if err := m.fs.Rename(tmp, m.path); err != nil {
		return fmt.Errorf("replace settings file: %w", err)
	}

	m.current = settings
	m.loaded = true
	return nil
}
