package handlers

import (
	"encoding/json"
	"log"
	"net/http"
)

// CacheStore is the slice of the cache the handler needs.
type CacheStore interface {
	ClearAll() error
}

// CacheHandler exposes maintenance operations on the lookup cache.
type CacheHandler struct {
	Store CacheStore
}

func NewCacheHandler(store CacheStore) *CacheHandler {
	return &CacheHandler{Store: store}
}

func (h *CacheHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.ClearAll(); err != nil {
		log.Printf("[cache] clear failed: %v", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	log.Printf("[cache] cleared all namespaces")
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "cleared"})
}
