/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package live

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/friendsincode/cancion/internal/events"
	"github.com/friendsincode/cancion/internal/export"
	"github.com/friendsincode/cancion/internal/generator"
	"github.com/friendsincode/cancion/internal/models"
	"github.com/friendsincode/cancion/internal/rules"
	"github.com/friendsincode/cancion/internal/store"
)

type watcherSource struct {
	songs []models.Song
}

func (w *watcherSource) AllSongs(context.Context) ([]models.Song, error) {
	return w.songs, nil
}

func (w *watcherSource) PlaybackQueueSongs(context.Context) ([]models.Song, error) {
	return nil, nil
}

func intPtr(v int) *int { return &v }

func newTestWatcher(t *testing.T, src *watcherSource) (*Watcher, *generator.Service, *store.Store) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.Rule{}, &models.Playlist{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	st := store.New(db, zerolog.Nop())
	gen := generator.NewService(st, src, export.Noop{}, rules.MatchConfig{CaseInsensitive: true}, rules.LimitConfig{}, zerolog.Nop())
	w := NewWatcher(st, gen, events.NewBus(), zerolog.Nop())
	w.debounce = 0
	return w, gen, st
}

func TestSweepRefreshesLivePlaylists(t *testing.T) {
	src := &watcherSource{songs: []models.Song{
		{ID: "s1", Artist: "Yeat", PlayCount: intPtr(10)},
	}}
	w, gen, st := newTestWatcher(t, src)
	ctx := context.Background()

	live, err := gen.Create(ctx, generator.Request{
		Name:             "Live",
		Rules:            []models.Rule{{Field: models.FieldArtist, Operator: models.OpContains, Value: "ye"}},
		MatchMode:        models.MatchAll,
		Limit:            models.LimitSpec{SortType: models.SortMostPlayed},
		SmartRulesActive: true,
		LiveUpdating:     true,
	})
	if err != nil {
		t.Fatalf("create live: %v", err)
	}
	frozen, err := gen.Create(ctx, generator.Request{
		Name:             "Frozen",
		Rules:            []models.Rule{{Field: models.FieldArtist, Operator: models.OpContains, Value: "ye"}},
		MatchMode:        models.MatchAll,
		Limit:            models.LimitSpec{SortType: models.SortMostPlayed},
		SmartRulesActive: true,
	})
	if err != nil {
		t.Fatalf("create frozen: %v", err)
	}

	src.songs = append(src.songs, models.Song{ID: "s2", Artist: "Kanye", PlayCount: intPtr(99)})
	w.Sweep(ctx)

	reloaded, err := st.PlaylistByID(ctx, live.ID)
	if err != nil {
		t.Fatalf("load live: %v", err)
	}
	if !reloaded.SongIDs.Equal(models.StringList{"s2", "s1"}) {
		t.Fatalf("live playlist not refreshed: %v", reloaded.SongIDs)
	}

	untouched, err := st.PlaylistByID(ctx, frozen.ID)
	if err != nil {
		t.Fatalf("load frozen: %v", err)
	}
	if !untouched.SongIDs.Equal(frozen.SongIDs) {
		t.Fatalf("non-live playlist must keep its membership: %v", untouched.SongIDs)
	}
}

func TestRunSweepsOnLibraryChange(t *testing.T) {
	src := &watcherSource{songs: []models.Song{
		{ID: "s1", Artist: "Yeat", PlayCount: intPtr(10)},
	}}
	w, gen, st := newTestWatcher(t, src)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	live, err := gen.Create(ctx, generator.Request{
		Name:             "Live",
		Rules:            []models.Rule{{Field: models.FieldArtist, Operator: models.OpContains, Value: "ye"}},
		MatchMode:        models.MatchAll,
		Limit:            models.LimitSpec{SortType: models.SortMostPlayed},
		SmartRulesActive: true,
		LiveUpdating:     true,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	src.songs = append(src.songs, models.Song{ID: "s2", Artist: "Kanye", PlayCount: intPtr(99)})

	// Republish until the sweep lands; Run may not have subscribed yet when
	// the first publish fires.
	waitFor(t, func() bool {
		w.bus.Publish(events.EventLibraryChanged, nil)
		reloaded, err := st.PlaylistByID(ctx, live.ID)
		return err == nil && len(reloaded.SongIDs) == 2
	})

	cancel()
	<-done
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	for i := 0; i < 200; i++ {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition never met")
}
