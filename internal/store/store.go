/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package store persists playlists and their rules. Rules are shared rows
// referenced through the playlist_rules join table; deletes are refcounted so
// a rule survives as long as any playlist still references it.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/cancion/internal/models"
)

// Store wraps the playlist persistence boundary. Commits run inside a single
// transaction so a failed save leaves no partial state behind.
type Store struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// New creates a playlist store.
func New(db *gorm.DB, logger zerolog.Logger) *Store {
	return &Store{
		db:     db,
		logger: logger.With().Str("component", "store").Logger(),
	}
}

// CreatePlaylist inserts the playlist together with its rules and
// associations in one transaction.
func (s *Store) CreatePlaylist(ctx context.Context, playlist *models.Playlist, ruleSet []models.Rule) error {
	if playlist.ID == "" {
		playlist.ID = uuid.NewString()
	}
	now := time.Now()
	playlist.CreatedAt = now
	playlist.UpdatedAt = now

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range ruleSet {
			if ruleSet[i].ID == "" {
				ruleSet[i].ID = uuid.NewString()
			}
			if err := tx.Save(&ruleSet[i]).Error; err != nil {
				return err
			}
		}
		playlist.Rules = ruleSet
		return tx.Create(playlist).Error
	})
	if err != nil {
		return fmt.Errorf("create playlist: %w", err)
	}

	s.logger.Info().Str("playlist_id", playlist.ID).Str("name", playlist.Name).Msg("playlist created")
	return nil
}

// UpdatePlaylistFields writes only the given columns. The generator computes
// the changed-field set by diffing proposed against persisted values, so an
// edit that only renames a playlist never rewrites its song list.
func (s *Store) UpdatePlaylistFields(ctx context.Context, id string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	res := s.db.WithContext(ctx).Model(&models.Playlist{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("update playlist: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ReplaceRules swaps the playlist's rule associations for the given set,
// refcount-deleting rules that end up unreferenced.
func (s *Store) ReplaceRules(ctx context.Context, playlistID string, ruleSet []models.Rule) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var playlist models.Playlist
		if err := tx.Preload("Rules").First(&playlist, "id = ?", playlistID).Error; err != nil {
			return err
		}
		previous := playlist.Rules

		for i := range ruleSet {
			if ruleSet[i].ID == "" {
				ruleSet[i].ID = uuid.NewString()
			}
			if err := tx.Save(&ruleSet[i]).Error; err != nil {
				return err
			}
		}
		if err := tx.Model(&playlist).Association("Rules").Replace(ruleSet); err != nil {
			return err
		}
		return deleteUnreferencedRules(tx, previous)
	})
	if err != nil {
		return fmt.Errorf("replace rules: %w", err)
	}
	return nil
}

// DeletePlaylist removes the playlist, its associations, and any rules left
// unreferenced afterwards.
func (s *Store) DeletePlaylist(ctx context.Context, id string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var playlist models.Playlist
		if err := tx.Preload("Rules").First(&playlist, "id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Model(&playlist).Association("Rules").Clear(); err != nil {
			return err
		}
		if err := tx.Delete(&playlist).Error; err != nil {
			return err
		}
		return deleteUnreferencedRules(tx, playlist.Rules)
	})
	if err != nil {
		return fmt.Errorf("delete playlist: %w", err)
	}

	s.logger.Info().Str("playlist_id", id).Msg("playlist deleted")
	return nil
}

// deleteUnreferencedRules removes each candidate rule that no playlist
// references anymore.
func deleteUnreferencedRules(tx *gorm.DB, candidates []models.Rule) error {
	for _, rule := range candidates {
		var refs int64
		if err := tx.Table("playlist_rules").Where("rule_id = ?", rule.ID).Count(&refs).Error; err != nil {
			return err
		}
		if refs == 0 {
			if err := tx.Delete(&models.Rule{}, "id = ?", rule.ID).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

// PlaylistByID loads one playlist with its rules.
func (s *Store) PlaylistByID(ctx context.Context, id string) (*models.Playlist, error) {
	var playlist models.Playlist
	if err := s.db.WithContext(ctx).Preload("Rules").First(&playlist, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &playlist, nil
}

// Playlists loads all playlists with rules, newest first.
func (s *Store) Playlists(ctx context.Context) ([]models.Playlist, error) {
	var playlists []models.Playlist
	if err := s.db.WithContext(ctx).Preload("Rules").Order("created_at DESC").Find(&playlists).Error; err != nil {
		return nil, fmt.Errorf("load playlists: %w", err)
	}
	return playlists, nil
}

// LiveUpdatingPlaylists loads only the playlists flagged for automatic
// re-evaluation.
func (s *Store) LiveUpdatingPlaylists(ctx context.Context) ([]models.Playlist, error) {
	var playlists []models.Playlist
	if err := s.db.WithContext(ctx).Preload("Rules").Where("live_updating = ?", true).Find(&playlists).Error; err != nil {
		return nil, fmt.Errorf("load live playlists: %w", err)
	}
	return playlists, nil
}
