/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package live keeps live-updating playlists in sync with the library.
package live

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/cancion/internal/events"
	"github.com/friendsincode/cancion/internal/generator"
	"github.com/friendsincode/cancion/internal/store"
)

// Watcher refreshes every live-updating playlist whenever the library
// changes. Refreshes run serially; if more changes arrive while a sweep is in
// flight they coalesce into a single follow-up sweep.
type Watcher struct {
	store     *store.Store
	generator *generator.Service
	bus       *events.Bus
	logger    zerolog.Logger

	// Debounce window between a change notification and the sweep, so
	// bursts of library writes trigger one recomputation.
	debounce time.Duration
}

// NewWatcher creates a watcher.
func NewWatcher(st *store.Store, gen *generator.Service, bus *events.Bus, logger zerolog.Logger) *Watcher {
	return &Watcher{
		store:     st,
		generator: gen,
		bus:       bus,
		logger:    logger.With().Str("component", "live").Logger(),
		debounce:  500 * time.Millisecond,
	}
}

// Run blocks until ctx is done, sweeping on every library change.
func (w *Watcher) Run(ctx context.Context) {
	sub := w.bus.Subscribe(events.EventLibraryChanged)
	defer w.bus.Unsubscribe(events.EventLibraryChanged, sub)

	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-sub:
			if !ok {
				return
			}
			w.waitQuiet(ctx, sub)
			w.Sweep(ctx)
		}
	}
}

// waitQuiet drains further change events until the debounce window passes
// without one.
func (w *Watcher) waitQuiet(ctx context.Context, sub events.Subscriber) {
	if w.debounce <= 0 {
		return
	}
	timer := time.NewTimer(w.debounce)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			return
		case _, ok := <-sub:
			if !ok {
				return
			}
			if !timer.Stop() {
				<-timer.C
			}
			timer.Reset(w.debounce)
		}
	}
}

// Sweep recomputes every live-updating playlist once.
func (w *Watcher) Sweep(ctx context.Context) {
	playlists, err := w.store.LiveUpdatingPlaylists(ctx)
	if err != nil {
		w.logger.Error().Err(err).Msg("load live playlists")
		return
	}
	if len(playlists) == 0 {
		return
	}

	var changed int
	for i := range playlists {
		if ctx.Err() != nil {
			return
		}
		updated, err := w.generator.Refresh(ctx, &playlists[i])
		if err != nil {
			w.logger.Error().Err(err).
				Str("playlist_id", playlists[i].ID).
				Msg("refresh playlist")
			continue
		}
		if updated {
			changed++
		}
	}
	w.logger.Info().
		Int("playlists", len(playlists)).
		Int("changed", changed).
		Msg("live sweep complete")
}
