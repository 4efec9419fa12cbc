package relay

import (
	"time"

	"github.com/rs/zerolog/log"
)

// RetentionWorker caps the persisted history of every room. It runs as
// a background goroutine and periodically trims each known room to the
// most recent keep messages, so the store doesn't grow without bound.
type RetentionWorker struct {
	store    *Store
	registry *VisitorRegistry
	interval time.Duration
	keep     int
	stopChan chan struct{}
}

// NewRetentionWorker creates a retention worker.
// - interval: how often to trim (e.g., 10 minutes)
// - keep: messages retained per room after a trim
func NewRetentionWorker(store *Store, registry *VisitorRegistry, interval time.Duration, keep int) *RetentionWorker {
	return &RetentionWorker{
		store:    store,
		registry: registry,
		interval: interval,
		keep:     keep,
		stopChan: make(chan struct{}),
	}
}

// Start begins the background trim loop.
// This method blocks and should be called with 'go'.
func (w *RetentionWorker) Start() {
	log.Info().Dur("interval", w.interval).Int("keep", w.keep).Msg("[relay] retention worker started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.trim()
		case <-w.stopChan:
			log.Info().Msg("[relay] retention worker stopped")
			return
		}
	}
}

// Stop gracefully shuts down the worker.
func (w *RetentionWorker) Stop() {
	close(w.stopChan)
}

// trim caps every known room's history.
func (w *RetentionWorker) trim() {
	for _, v := range w.registry.List() {
		removed, err := w.store.TrimRoom(v.Email, w.keep)
		if err != nil {
			log.Warn().Err(err).Str("room", v.Email).Msg("[relay] trim failed")
			continue
		}
		if removed > 0 {
			log.Info().Str("room", v.Email).Int("removed", removed).Msg("[relay] history trimmed")
		}
	}
}
