/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package library provides read access to the song collection. The rule
// engine consumes it through the SongSource interface and never mutates
// songs.
package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/cancion/internal/events"
	"github.com/friendsincode/cancion/internal/models"
)

// SongSource is the collaborator contract the generator depends on.
type SongSource interface {
	AllSongs(ctx context.Context) ([]models.Song, error)
	PlaybackQueueSongs(ctx context.Context) ([]models.Song, error)
}

// Store is the database-backed song source. Writes publish a library-changed
// event so live-updating playlists get re-evaluated.
type Store struct {
	db     *gorm.DB
	bus    *events.Bus
	logger zerolog.Logger
}

// NewStore creates a library store.
func NewStore(db *gorm.DB, bus *events.Bus, logger zerolog.Logger) *Store {
	return &Store{
		db:     db,
		bus:    bus,
		logger: logger.With().Str("component", "library").Logger(),
	}
}

// AllSongs returns a snapshot of the whole library.
func (s *Store) AllSongs(ctx context.Context) ([]models.Song, error) {
	var songs []models.Song
	if err := s.db.WithContext(ctx).Order("created_at ASC").Find(&songs).Error; err != nil {
		return nil, fmt.Errorf("load songs: %w", err)
	}
	return songs, nil
}

// SongByID loads a single song.
func (s *Store) SongByID(ctx context.Context, id string) (*models.Song, error) {
	var song models.Song
	if err := s.db.WithContext(ctx).First(&song, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &song, nil
}

// SongsByIDs loads songs preserving the order of ids. Unknown ids are
// skipped.
func (s *Store) SongsByIDs(ctx context.Context, ids []string) ([]models.Song, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var songs []models.Song
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&songs).Error; err != nil {
		return nil, fmt.Errorf("load songs by id: %w", err)
	}
	byID := make(map[string]models.Song, len(songs))
	for _, song := range songs {
		byID[song.ID] = song
	}
	ordered := make([]models.Song, 0, len(ids))
	for _, id := range ids {
		if song, ok := byID[id]; ok {
			ordered = append(ordered, song)
		}
	}
	return ordered, nil
}

// PlaybackQueueSongs returns the queued songs in queue order.
func (s *Store) PlaybackQueueSongs(ctx context.Context) ([]models.Song, error) {
	var entries []models.QueueEntry
	if err := s.db.WithContext(ctx).Order("position ASC").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("load queue: %w", err)
	}
	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		ids = append(ids, entry.SongID)
	}
	return s.SongsByIDs(ctx, ids)
}

// Enqueue appends a song to the playback queue.
func (s *Store) Enqueue(ctx context.Context, songID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxPos sql.NullInt64
		if err := tx.Model(&models.QueueEntry{}).Select("MAX(position)").Scan(&maxPos).Error; err != nil {
			return err
		}
		next := 0
		if maxPos.Valid {
			next = int(maxPos.Int64) + 1
		}
		entry := models.QueueEntry{
			ID:        uuid.NewString(),
			SongID:    songID,
			Position:  next,
			CreatedAt: time.Now(),
		}
		return tx.Create(&entry).Error
	})
}

// ClearQueue empties the playback queue.
func (s *Store) ClearQueue(ctx context.Context) error {
	return s.db.WithContext(ctx).Where("1 = 1").Delete(&models.QueueEntry{}).Error
}

// UpsertSongs inserts or updates library tracks and announces the change.
// Song identity follows ExternalID when present so repeated imports do not
// duplicate rows.
func (s *Store) UpsertSongs(ctx context.Context, songs []models.Song) error {
	if len(songs) == 0 {
		return nil
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range songs {
			song := &songs[i]
			if song.ExternalID != "" {
				var existing models.Song
				found := tx.Where("external_id = ?", song.ExternalID).First(&existing).Error
				if found == nil {
					song.ID = existing.ID
					if err := tx.Model(&existing).Updates(song).Error; err != nil {
						return err
					}
					continue
				}
				if !errors.Is(found, gorm.ErrRecordNotFound) {
					return found
				}
			}
			if song.ID == "" {
				song.ID = uuid.NewString()
			}
			if err := tx.Create(song).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("upsert songs: %w", err)
	}

	s.logger.Debug().Int("count", len(songs)).Msg("library updated")
	if s.bus != nil {
		s.bus.Publish(events.EventLibraryChanged, events.Payload{"count": len(songs)})
		s.bus.Publish(events.EventSongsInvalidated, nil)
	}
	return nil
}

// RecordPlay bumps a song's play count and last-played timestamp.
func (s *Store) RecordPlay(ctx context.Context, songID string, at time.Time) error {
	var song models.Song
	if err := s.db.WithContext(ctx).First(&song, "id = ?", songID).Error; err != nil {
		return err
	}
	count := song.PlayCountOrZero() + 1
	updates := map[string]any{
		"play_count":  count,
		"last_played": at,
	}
	if err := s.db.WithContext(ctx).Model(&song).Updates(updates).Error; err != nil {
		return fmt.Errorf("record play: %w", err)
	}
	if s.bus != nil {
		s.bus.Publish(events.EventLibraryChanged, events.Payload{"song_id": songID})
		s.bus.Publish(events.EventSongsInvalidated, nil)
	}
	return nil
}
