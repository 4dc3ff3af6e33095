package metadata

import (
	"log"
	"sync"
)

// Skin property names published by the metadata chain.
const (
	PropIMDBRating       = "ds_info_imdb_rating"
	PropLetterboxdRating = "ds_info_letterboxd_rating"
	PropTraktRating      = "ds_info_trakt_rating"
	PropReviews          = "Trakt.Reviews"
)

// trackedProperties are every name the chain may publish, in the order they
// are cleared when resolution fails or focus is lost.
var trackedProperties = []string{
	PropIMDBRating,
	PropLetterboxdRating,
	PropTraktRating,
	PropReviews,
}

// PropertySink is the skin property bus the chain writes to.
type PropertySink interface {
	SetProperty(name, value string) error
	ClearProperty(name string) error
}

// PropertyWriter pushes batches of property values through the sink,
// suppressing writes whose value matches the last push. The last-pushed map
// is a write-dedup cache only, never authoritative state.
type PropertyWriter struct {
	mu   sync.Mutex
	sink PropertySink
	last map[string]string
}

// NewPropertyWriter creates a diffing writer over the given sink.
func NewPropertyWriter(sink PropertySink) *PropertyWriter {
	return &PropertyWriter{
		sink: sink,
		last: make(map[string]string),
	}
}

// Apply writes each property whose value changed since the last push. An
// empty value clears the property.
func (w *PropertyWriter) Apply(props map[string]string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for name, value := range props {
		if prev, ok := w.last[name]; ok && prev == value {
			continue
		}

		var err error
		if value == "" {
			err = w.sink.ClearProperty(name)
		} else {
			err = w.sink.SetProperty(name, value)
		}
		if err != nil {
			// Drop the dedup entry so the write is retried next push.
			delete(w.last, name)
			log.Printf("[properties] write %s failed: %v", name, err)
			continue
		}
		w.last[name] = value
	}
}

// ClearTracked clears every property the chain may have published.
func (w *PropertyWriter) ClearTracked() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, name := range trackedProperties {
		if prev, ok := w.last[name]; ok && prev == "" {
			continue
		}
		if err := w.sink.ClearProperty(name); err != nil {
			delete(w.last, name)
			log.Printf("[properties] clear %s failed: %v", name, err)
			continue
		}
		w.last[name] = ""
	}
}
