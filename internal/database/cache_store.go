package database

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Namespace is a logical partition of the cache with its own TTL.
// Each namespace maps to one table.
type Namespace string

const (
	NamespaceIDResolution Namespace = "id_resolution"
	NamespaceTrailerURL   Namespace = "trailer_url"
	NamespaceRatings      Namespace = "ratings"
	NamespaceReviews      Namespace = "reviews"
)

var allNamespaces = []Namespace{
	NamespaceIDResolution,
	NamespaceTrailerURL,
	NamespaceRatings,
	NamespaceReviews,
}

// DefaultTTLs are the namespace TTLs used when none are configured.
var DefaultTTLs = map[Namespace]time.Duration{
	NamespaceIDResolution: 90 * 24 * time.Hour,
	NamespaceTrailerURL:   60 * 24 * time.Hour,
	NamespaceRatings:      15 * 24 * time.Hour,
	NamespaceReviews:      15 * 24 * time.Hour,
}

var ErrUnknownNamespace = errors.New("unknown cache namespace")

// CacheStore is the namespaced key/value store backing every external lookup.
// Entries expire lazily: an expired row is reported as a miss and left in
// place until the next successful fetch overwrites it. All access goes
// through one guarded connection; every write commits individually.
type CacheStore struct {
	mu    sync.Mutex
	conn  *sql.DB
	clock clockwork.Clock
	ttls  map[Namespace]time.Duration
}

func newCacheStore(conn *sql.DB, clock clockwork.Clock, ttls map[Namespace]time.Duration) *CacheStore {
	return &CacheStore{conn: conn, clock: clock, ttls: ttls}
}

// TTL returns the configured TTL for a namespace.
func (s *CacheStore) TTL(ns Namespace) time.Duration {
	return s.ttls[ns]
}

// Get looks up a cache entry and decodes it into v. The second return is
// false on a miss, including entries older than the namespace TTL.
func (s *CacheStore) Get(ns Namespace, key string, v any) (bool, error) {
	ttl, ok := s.ttls[ns]
	if !ok {
		return false, ErrUnknownNamespace
	}
	if key == "" {
		return false, errors.New("empty cache key")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var value string
	var writtenAt int64
	query := fmt.Sprintf("SELECT value, written_at FROM %s WHERE key = ?", ns)
	err := s.conn.QueryRow(query, key).Scan(&value, &writtenAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache get %s/%s: %w", ns, key, err)
	}

	if s.clock.Now().Sub(time.Unix(writtenAt, 0)) >= ttl {
		// Lazy expiry: treat as a miss, leave the row for the next Put.
		return false, nil
	}

	if err := json.Unmarshal([]byte(value), v); err != nil {
		return false, fmt.Errorf("cache decode %s/%s: %w", ns, key, err)
	}
	return true, nil
}

// Put upserts a cache entry with the current time.
func (s *CacheStore) Put(ns Namespace, key string, v any) error {
	if _, ok := s.ttls[ns]; !ok {
		return ErrUnknownNamespace
	}
	if key == "" {
		return errors.New("empty cache key")
	}

	value, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cache encode %s/%s: %w", ns, key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := fmt.Sprintf(
		"INSERT INTO %s (key, value, written_at) VALUES (?, ?, ?) "+
			"ON CONFLICT(key) DO UPDATE SET value = excluded.value, written_at = excluded.written_at", ns)
	if _, err := s.conn.Exec(query, key, string(value), s.clock.Now().Unix()); err != nil {
		return fmt.Errorf("cache put %s/%s: %w", ns, key, err)
	}
	return nil
}

// ClearAll wipes every namespace. User-triggered, not part of the hot path.
func (s *CacheStore) ClearAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ns := range allNamespaces {
		if _, err := s.conn.Exec(fmt.Sprintf("DELETE FROM %s", ns)); err != nil {
			return fmt.Errorf("cache clear %s: %w", ns, err)
		}
	}
	if _, err := s.conn.Exec("VACUUM"); err != nil {
		return fmt.Errorf("cache vacuum: %w", err)
	}
	return nil
}

// Prune deletes rows older than their namespace TTL and returns how many
// were removed. Expiry is otherwise lazy, so without pruning a long-lived
// database accumulates rows for items that are never focused again.
func (s *CacheStore) Prune() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	var total int64
	for _, ns := range allNamespaces {
		cutoff := now.Add(-s.ttls[ns]).Unix()
		res, err := s.conn.Exec(fmt.Sprintf("DELETE FROM %s WHERE written_at < ?", ns), cutoff)
		if err != nil {
			return total, fmt.Errorf("cache prune %s: %w", ns, err)
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return total, nil
}

// Counts returns the number of rows per namespace, for the status endpoint.
func (s *CacheStore) Counts() (map[Namespace]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[Namespace]int, len(allNamespaces))
	for _, ns := range allNamespaces {
		var n int
		if err := s.conn.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", ns)).Scan(&n); err != nil {
			return nil, fmt.Errorf("cache count %s: %w", ns, err)
		}
		counts[ns] = n
	}
	return counts, nil
}
