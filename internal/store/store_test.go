/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package store

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/friendsincode/cancion/internal/models"
)

func openStoreTestDB(t *testing.T) *gorm.DB {
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
	return db
}

func TestCreateAndLoadPlaylist(t *testing.T) {
	db := openStoreTestDB(t)
	s := New(db, zerolog.Nop())
	ctx := context.Background()

	playlist := &models.Playlist{
		Name:             "Heavy Rotation",
		MatchMode:        models.MatchAll,
		Limit:            models.DefaultLimitSpec(),
		SmartRulesActive: true,
		SongIDs:          models.StringList{"s1", "s2"},
	}
	ruleSet := []models.Rule{
		{Field: models.FieldArtist, Operator: models.OpContains, Value: "ye"},
		{Field: models.FieldPlayCount, Operator: models.OpGreaterThan, Value: "10"},
	}

	if err := s.CreatePlaylist(ctx, playlist, ruleSet); err != nil {
		t.Fatalf("create: %v", err)
	}
	if playlist.ID == "" {
		t.Fatal("expected generated playlist id")
	}

	loaded, err := s.PlaylistByID(ctx, playlist.ID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Name != "Heavy Rotation" {
		t.Fatalf("unexpected name %q", loaded.Name)
	}
	if len(loaded.Rules) != 2 {
		t.Fatalf("expected 2 rules, got %d", len(loaded.Rules))
	}
	if !loaded.SongIDs.Equal(models.StringList{"s1", "s2"}) {
		t.Fatalf("song ids lost: %v", loaded.SongIDs)
	}
	if loaded.Limit.Count != 25 {
		t.Fatalf("limit spec lost: %+v", loaded.Limit)
	}
}

func TestUpdatePlaylistFieldsOnlyTouchesGivenColumns(t *testing.T) {
	db := openStoreTestDB(t)
	s := New(db, zerolog.Nop())
	ctx := context.Background()

	playlist := &models.Playlist{Name: "A", MatchMode: models.MatchAll, SongIDs: models.StringList{"s1"}}
	if err := s.CreatePlaylist(ctx, playlist, nil); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := s.UpdatePlaylistFields(ctx, playlist.ID, map[string]any{"name": "B"}); err != nil {
		t.Fatalf("update: %v", err)
	}

	loaded, err := s.PlaylistByID(ctx, playlist.ID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Name != "B" {
		t.Fatalf("expected renamed playlist, got %q", loaded.Name)
	}
	if !loaded.SongIDs.Equal(models.StringList{"s1"}) {
		t.Fatalf("song ids should be untouched, got %v", loaded.SongIDs)
	}
}

func TestUpdatePlaylistFieldsMissingRow(t *testing.T) {
	db := openStoreTestDB(t)
	s := New(db, zerolog.Nop())

	err := s.UpdatePlaylistFields(context.Background(), "nope", map[string]any{"name": "B"})
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected record not found, got %v", err)
	}
}

func TestDeletePlaylistKeepsSharedRules(t *testing.T) {
	db := openStoreTestDB(t)
	s := New(db, zerolog.Nop())
	ctx := context.Background()

	shared := models.Rule{ID: "shared-rule", Field: models.FieldArtist, Operator: models.OpContains, Value: "ye"}
	own := models.Rule{ID: "own-rule", Field: models.FieldTitle, Operator: models.OpEquals, Value: "Runaway"}

	first := &models.Playlist{Name: "First"}
	if err := s.CreatePlaylist(ctx, first, []models.Rule{shared, own}); err != nil {
		t.Fatalf("create first: %v", err)
	}
	second := &models.Playlist{Name: "Second"}
	if err := s.CreatePlaylist(ctx, second, []models.Rule{shared}); err != nil {
		t.Fatalf("create second: %v", err)
	}

	if err := s.DeletePlaylist(ctx, first.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	var count int64
	if err := db.Model(&models.Rule{}).Where("id = ?", "shared-rule").Count(&count).Error; err != nil {
		t.Fatalf("count shared: %v", err)
	}
	if count != 1 {
		t.Fatal("shared rule must survive while another playlist references it")
	}

	if err := db.Model(&models.Rule{}).Where("id = ?", "own-rule").Count(&count).Error; err != nil {
		t.Fatalf("count own: %v", err)
	}
	if count != 0 {
		t.Fatal("unreferenced rule should be deleted with its last playlist")
	}
}

func TestReplaceRulesRefcounts(t *testing.T) {
	db := openStoreTestDB(t)
	s := New(db, zerolog.Nop())
	ctx := context.Background()

	old := models.Rule{ID: "old-rule", Field: models.FieldArtist, Operator: models.OpEquals, Value: "Drake"}
	playlist := &models.Playlist{Name: "Rotation"}
	if err := s.CreatePlaylist(ctx, playlist, []models.Rule{old}); err != nil {
		t.Fatalf("create: %v", err)
	}

	replacement := []models.Rule{{Field: models.FieldArtist, Operator: models.OpEquals, Value: "Yeat"}}
	if err := s.ReplaceRules(ctx, playlist.ID, replacement); err != nil {
		t.Fatalf("replace: %v", err)
	}

	loaded, err := s.PlaylistByID(ctx, playlist.ID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded.Rules) != 1 || loaded.Rules[0].Value != "Yeat" {
		t.Fatalf("expected replaced rule set, got %+v", loaded.Rules)
	}

	var count int64
	if err := db.Model(&models.Rule{}).Where("id = ?", "old-rule").Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatal("orphaned rule should have been deleted")
	}
}

func TestLiveUpdatingPlaylists(t *testing.T) {
	db := openStoreTestDB(t)
	s := New(db, zerolog.Nop())
	ctx := context.Background()

	live := &models.Playlist{Name: "Live", LiveUpdating: true}
	static := &models.Playlist{Name: "Static"}
	if err := s.CreatePlaylist(ctx, live, nil); err != nil {
		t.Fatalf("create live: %v", err)
	}
	if err := s.CreatePlaylist(ctx, static, nil); err != nil {
		t.Fatalf("create static: %v", err)
	}

	playlists, err := s.LiveUpdatingPlaylists(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(playlists) != 1 || playlists[0].ID != live.ID {
		t.Fatalf("expected only the live playlist, got %+v", playlists)
	}
}
