/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package generator orchestrates the playlist pipeline: match-filter, sort,
// then limit-truncate, strictly in that order. It owns commit validation and
// the diff-based edit flow; persistence is all-or-nothing, export is
// best-effort afterwards.
package generator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/cancion/internal/export"
	"github.com/friendsincode/cancion/internal/library"
	"github.com/friendsincode/cancion/internal/models"
	"github.com/friendsincode/cancion/internal/rules"
	"github.com/friendsincode/cancion/internal/store"
	"github.com/friendsincode/cancion/internal/telemetry"
)

var (
	// ErrEmptySongs blocks a commit when the pipeline produced no songs.
	ErrEmptySongs = errors.New("generated playlist has no songs")
	// ErrEmptyName blocks a commit when the playlist name is blank. When a
	// commit fails both checks, this one wins for user messaging.
	ErrEmptyName = errors.New("playlist name is empty")
	// ErrPersistence wraps a failed insert or save.
	ErrPersistence = errors.New("playlist persistence failed")
	// ErrExport wraps a failed remote export. The local commit stands.
	ErrExport = errors.New("external playlist export failed")
)

// Request carries everything one generation or edit needs.
type Request struct {
	Name             string
	Rules            []models.Rule
	DateOverrides    map[string]string
	MatchMode        models.MatchMode
	Limit            models.LimitSpec
	SmartRulesActive bool
	LiveUpdating     bool
	Cover            []byte
	Export           bool
}

// Service is the rule-set controller.
type Service struct {
	store    *store.Store
	library  library.SongSource
	exporter export.Exporter
	matchCfg rules.MatchConfig
	limitCfg rules.LimitConfig
	logger   zerolog.Logger
}

// NewService creates the controller. The exporter may be export.Noop{}.
func NewService(st *store.Store, lib library.SongSource, exp export.Exporter, matchCfg rules.MatchConfig, limitCfg rules.LimitConfig, logger zerolog.Logger) *Service {
	return &Service{
		store:    st,
		library:  lib,
		exporter: exp,
		matchCfg: matchCfg,
		limitCfg: limitCfg,
		logger:   logger.With().Str("component", "generator").Logger(),
	}
}

// Generate runs the pipeline over a song snapshot and returns the ordered
// result. It has no side effects; commit validation beyond ErrEmptySongs
// happens in Create and Edit.
func (s *Service) Generate(songs []models.Song, req Request) ([]models.Song, error) {
	start := time.Now()

	input := songs
	if req.SmartRulesActive {
		input = rules.FilterSongs(songs, req.Rules, req.MatchMode, req.DateOverrides, s.matchCfg)
	}
	sorted := rules.SortSongs(input, req.Limit.SortType)
	limited := rules.ApplyLimit(sorted, req.Limit, s.limitCfg)

	if len(limited) == 0 {
		telemetry.ObserveGeneration("empty", time.Since(start), 0)
		return nil, ErrEmptySongs
	}

	telemetry.ObserveGeneration("ok", time.Since(start), len(limited))
	return limited, nil
}

// SongIDs maps a generation result to its ordered id list.
func SongIDs(songs []models.Song) models.StringList {
	ids := make(models.StringList, len(songs))
	for i, song := range songs {
		ids[i] = song.ID
	}
	return ids
}

// Create validates, generates, and commits a new playlist. When export is
// requested the remote playlist is created after the local commit; an export
// failure is returned alongside the committed playlist.
func (s *Service) Create(ctx context.Context, req Request) (*models.Playlist, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, ErrEmptyName
	}

	songs, err := s.library.AllSongs(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch songs: %w", err)
	}

	result, err := s.Generate(songs, req)
	if err != nil {
		return nil, err
	}

	playlist := &models.Playlist{
		Name:             req.Name,
		Cover:            req.Cover,
		MatchMode:        req.MatchMode,
		Limit:            req.Limit,
		SmartRulesActive: req.SmartRulesActive,
		LiveUpdating:     req.LiveUpdating,
		SongIDs:          SongIDs(result),
	}
	if err := s.store.CreatePlaylist(ctx, playlist, req.Rules); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	if !req.Export {
		return playlist, nil
	}
	if err := s.exportNew(ctx, playlist, result); err != nil {
		// Local-first, remote-best-effort: the committed playlist is
		// returned together with the export failure.
		return playlist, err
	}
	return playlist, nil
}

func (s *Service) exportNew(ctx context.Context, playlist *models.Playlist, songs []models.Song) error {
	ref, err := s.exporter.CreatePlaylist(ctx, playlist.Name)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrExport, err)
	}
	if ref == "" {
		return nil
	}
	if err := s.exporter.AddSongs(ctx, ref, songs); err != nil {
		return fmt.Errorf("%w: %v", ErrExport, err)
	}
	if err := s.store.UpdatePlaylistFields(ctx, playlist.ID, map[string]any{"external_ref": ref}); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	playlist.ExternalRef = &ref
	s.logger.Info().Str("playlist_id", playlist.ID).Str("ref", ref).Msg("playlist exported")
	return nil
}

// Edit applies a proposed edit to an existing playlist, writing back only the
// fields that actually changed. The song list is recomputed only when the
// rule set, combinator, limit, or smart-rules flag changed.
func (s *Service) Edit(ctx context.Context, id string, req Request) (*models.Playlist, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, ErrEmptyName
	}

	persisted, err := s.store.PlaylistByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	rulesChanged := !ruleSetsEquivalent(persisted.Rules, req.Rules)
	pipelineChanged := rulesChanged ||
		persisted.MatchMode != req.MatchMode ||
		persisted.Limit != req.Limit ||
		persisted.SmartRulesActive != req.SmartRulesActive

	songIDs := persisted.SongIDs
	var result []models.Song
	if pipelineChanged {
		songs, err := s.library.AllSongs(ctx)
		if err != nil {
			return nil, fmt.Errorf("fetch songs: %w", err)
		}
		result, err = s.Generate(songs, req)
		if err != nil {
			return nil, err
		}
		songIDs = SongIDs(result)
	}

	fields := map[string]any{}
	if persisted.Name != req.Name {
		fields["name"] = req.Name
	}
	if !bytes.Equal(persisted.Cover, req.Cover) {
		fields["cover"] = req.Cover
	}
	if persisted.MatchMode != req.MatchMode {
		fields["match_mode"] = req.MatchMode
	}
	if persisted.Limit != req.Limit {
		fields["limit_active"] = req.Limit.Active
		fields["limit_count"] = req.Limit.Count
		fields["limit_unit"] = req.Limit.Unit
		fields["limit_sort_type"] = req.Limit.SortType
	}
	if persisted.SmartRulesActive != req.SmartRulesActive {
		fields["smart_rules_active"] = req.SmartRulesActive
	}
	if persisted.LiveUpdating != req.LiveUpdating {
		fields["live_updating"] = req.LiveUpdating
	}
	if !persisted.SongIDs.Equal(songIDs) {
		fields["song_ids"] = songIDs
	}

	if rulesChanged {
		if err := s.store.ReplaceRules(ctx, id, req.Rules); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
		}
	}
	if err := s.store.UpdatePlaylistFields(ctx, id, fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	updated, err := s.store.PlaylistByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	if persisted.ExternalRef != nil {
		if result == nil {
			result, err = s.songsForIDs(ctx, updated.SongIDs)
			if err != nil {
				return updated, fmt.Errorf("%w: %v", ErrExport, err)
			}
		}
		if err := s.exporter.EditPlaylist(ctx, *persisted.ExternalRef, req.Name, result); err != nil {
			return updated, fmt.Errorf("%w: %v", ErrExport, err)
		}
	}
	return updated, nil
}

// Refresh re-runs the pipeline for a live-updating playlist against the
// current library. The stored list is replaced only when the result differs
// and is non-empty, and a linked remote playlist is updated to match.
func (s *Service) Refresh(ctx context.Context, playlist *models.Playlist) (bool, error) {
	songs, err := s.library.AllSongs(ctx)
	if err != nil {
		telemetry.ObserveLiveRefresh("error")
		return false, fmt.Errorf("fetch songs: %w", err)
	}

	result, err := s.Generate(songs, requestFromPlaylist(playlist))
	if err != nil {
		telemetry.ObserveLiveRefresh("empty")
		// An empty result keeps the previous membership.
		if errors.Is(err, ErrEmptySongs) {
			return false, nil
		}
		return false, err
	}

	ids := SongIDs(result)
	if playlist.SongIDs.Equal(ids) {
		telemetry.ObserveLiveRefresh("unchanged")
		return false, nil
	}

	if err := s.store.UpdatePlaylistFields(ctx, playlist.ID, map[string]any{"song_ids": ids}); err != nil {
		telemetry.ObserveLiveRefresh("error")
		return false, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	playlist.SongIDs = ids

	if playlist.ExternalRef != nil {
		if err := s.exporter.EditPlaylist(ctx, *playlist.ExternalRef, playlist.Name, result); err != nil {
			telemetry.ObserveLiveRefresh("export_error")
			return true, fmt.Errorf("%w: %v", ErrExport, err)
		}
	}

	telemetry.ObserveLiveRefresh("ok")
	s.logger.Debug().Str("playlist_id", playlist.ID).Int("songs", len(ids)).Msg("live playlist refreshed")
	return true, nil
}

func (s *Service) songsForIDs(ctx context.Context, ids models.StringList) ([]models.Song, error) {
	all, err := s.library.AllSongs(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]models.Song, len(all))
	for _, song := range all {
		byID[song.ID] = song
	}
	out := make([]models.Song, 0, len(ids))
	for _, id := range ids {
		if song, ok := byID[id]; ok {
			out = append(out, song)
		}
	}
	return out, nil
}

func requestFromPlaylist(p *models.Playlist) Request {
	return Request{
		Name:             p.Name,
		Rules:            p.Rules,
		MatchMode:        p.MatchMode,
		Limit:            p.Limit,
		SmartRulesActive: p.SmartRulesActive,
		LiveUpdating:     p.LiveUpdating,
	}
}

// ruleSetsEquivalent compares rule sets by value, ignoring order since the
// join table does not preserve it.
func ruleSetsEquivalent(a, b []models.Rule) bool {
	if len(a) != len(b) {
		return false
	}
	used := make([]bool, len(b))
outer:
	for _, rule := range a {
		for i, candidate := range b {
			if !used[i] && rule.EquivalentTo(candidate) {
				used[i] = true
				continue outer
			}
		}
		return false
	}
	return true
}
