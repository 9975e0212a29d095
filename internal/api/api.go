/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package api exposes the HTTP surface: playlist CRUD, preview, the song
// library, the playback queue, and dropdown option listings.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/cancion/internal/dateutil"
	"github.com/friendsincode/cancion/internal/dropdown"
	"github.com/friendsincode/cancion/internal/generator"
	"github.com/friendsincode/cancion/internal/library"
	"github.com/friendsincode/cancion/internal/models"
	"github.com/friendsincode/cancion/internal/store"
)

// API exposes HTTP handlers.
type API struct {
	store     *store.Store
	library   *library.Store
	generator *generator.Service
	logger    zerolog.Logger
}

// New creates the API router wrapper.
func New(st *store.Store, lib *library.Store, gen *generator.Service, logger zerolog.Logger) *API {
	return &API{
		store:     st,
		library:   lib,
		generator: gen,
		logger:    logger.With().Str("component", "api").Logger(),
	}
}

type ruleRequest struct {
	Field     string  `json:"field"`
	Condition string  `json:"condition"`
	Value     string  `json:"value"`
	Date      *string `json:"date,omitempty"`
}

type limitRequest struct {
	Active   bool   `json:"active"`
	Count    int    `json:"count"`
	Unit     string `json:"unit"`
	SortType string `json:"sort_type"`
}

type playlistRequest struct {
	Name             string            `json:"name"`
	Cover            []byte            `json:"cover,omitempty"`
	Rules            []ruleRequest     `json:"rules"`
	MatchMode        string            `json:"match_mode"`
	Limit            limitRequest      `json:"limit"`
	SmartRulesActive bool              `json:"smart_rules_active"`
	LiveUpdating     bool              `json:"live_updating"`
	Export           bool              `json:"export"`
	DateOverrides    map[string]string `json:"date_overrides,omitempty"`
}

type enqueueRequest struct {
	SongIDs []string `json:"song_ids"`
}

// Routes mounts API routes on provided router.
func (a *API) Routes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", a.handleHealth)

		r.Route("/songs", func(r chi.Router) {
			r.Get("/", a.handleSongsList)
			r.Post("/{songID}/play", a.handleSongPlay)
		})

		r.Route("/queue", func(r chi.Router) {
			r.Get("/", a.handleQueueList)
			r.Post("/", a.handleQueueAdd)
			r.Delete("/", a.handleQueueClear)
		})

		r.Route("/playlists", func(r chi.Router) {
			r.Get("/", a.handlePlaylistsList)
			r.Post("/", a.handlePlaylistsCreate)
			r.Post("/preview", a.handlePlaylistsPreview)
			r.Route("/{playlistID}", func(r chi.Router) {
				r.Get("/", a.handlePlaylistsGet)
				r.Put("/", a.handlePlaylistsUpdate)
				r.Delete("/", a.handlePlaylistsDelete)
			})
		})

		r.Get("/options/{domain}", a.handleOptions)
	})
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) handleSongsList(w http.ResponseWriter, r *http.Request) {
	songs, err := a.library.AllSongs(r.Context())
	if err != nil {
		a.logger.Error().Err(err).Msg("list songs")
		writeError(w, http.StatusInternalServerError, "songs_list_failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"songs": songs})
}

func (a *API) handleSongPlay(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "songID")
	if err := a.library.RecordPlay(r.Context(), id, time.Now()); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeError(w, http.StatusNotFound, "song_not_found")
			return
		}
		a.logger.Error().Err(err).Str("song_id", id).Msg("record play")
		writeError(w, http.StatusInternalServerError, "record_play_failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) handleQueueList(w http.ResponseWriter, r *http.Request) {
	songs, err := a.library.PlaybackQueueSongs(r.Context())
	if err != nil {
		a.logger.Error().Err(err).Msg("list queue")
		writeError(w, http.StatusInternalServerError, "queue_list_failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"songs": songs})
}

func (a *API) handleQueueAdd(w http.ResponseWriter, r *http.Request) {
	var req enqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if len(req.SongIDs) == 0 {
		writeError(w, http.StatusBadRequest, "song_ids_required")
		return
	}
	for _, songID := range req.SongIDs {
		if err := a.library.Enqueue(r.Context(), songID); err != nil {
			a.logger.Error().Err(err).Str("song_id", songID).Msg("enqueue")
			writeError(w, http.StatusInternalServerError, "enqueue_failed")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) handleQueueClear(w http.ResponseWriter, r *http.Request) {
	if err := a.library.ClearQueue(r.Context()); err != nil {
		a.logger.Error().Err(err).Msg("clear queue")
		writeError(w, http.StatusInternalServerError, "queue_clear_failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) handlePlaylistsList(w http.ResponseWriter, r *http.Request) {
	playlists, err := a.store.Playlists(r.Context())
	if err != nil {
		a.logger.Error().Err(err).Msg("list playlists")
		writeError(w, http.StatusInternalServerError, "playlists_list_failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"playlists": playlists})
}

func (a *API) handlePlaylistsGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "playlistID")
	playlist, err := a.store.PlaylistByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeError(w, http.StatusNotFound, "playlist_not_found")
			return
		}
		a.logger.Error().Err(err).Str("playlist_id", id).Msg("load playlist")
		writeError(w, http.StatusInternalServerError, "playlist_load_failed")
		return
	}
	writeJSON(w, http.StatusOK, playlist)
}

func (a *API) handlePlaylistsCreate(w http.ResponseWriter, r *http.Request) {
	req, ok := a.decodeGeneratorRequest(w, r)
	if !ok {
		return
	}
	playlist, err := a.generator.Create(r.Context(), req)
	if err != nil && !errors.Is(err, generator.ErrExport) {
		a.writeGeneratorError(w, err)
		return
	}
	status := http.StatusCreated
	body := map[string]any{"playlist": playlist}
	if errors.Is(err, generator.ErrExport) {
		// Local commit stands; surface the export failure to the caller.
		body["export_error"] = "export_failed"
	}
	writeJSON(w, status, body)
}

func (a *API) handlePlaylistsUpdate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "playlistID")
	req, ok := a.decodeGeneratorRequest(w, r)
	if !ok {
		return
	}
	playlist, err := a.generator.Edit(r.Context(), id, req)
	if err != nil && !errors.Is(err, generator.ErrExport) {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeError(w, http.StatusNotFound, "playlist_not_found")
			return
		}
		a.writeGeneratorError(w, err)
		return
	}
	body := map[string]any{"playlist": playlist}
	if errors.Is(err, generator.ErrExport) {
		body["export_error"] = "export_failed"
	}
	writeJSON(w, http.StatusOK, body)
}

func (a *API) handlePlaylistsDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "playlistID")
	if err := a.store.DeletePlaylist(r.Context(), id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeError(w, http.StatusNotFound, "playlist_not_found")
			return
		}
		a.logger.Error().Err(err).Str("playlist_id", id).Msg("delete playlist")
		writeError(w, http.StatusInternalServerError, "playlist_delete_failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handlePlaylistsPreview runs the pipeline without persisting anything.
func (a *API) handlePlaylistsPreview(w http.ResponseWriter, r *http.Request) {
	req, ok := a.decodeGeneratorRequest(w, r)
	if !ok {
		return
	}
	songs, err := a.library.AllSongs(r.Context())
	if err != nil {
		a.logger.Error().Err(err).Msg("load songs for preview")
		writeError(w, http.StatusInternalServerError, "preview_failed")
		return
	}
	result, err := a.generator.Generate(songs, req)
	if err != nil {
		if errors.Is(err, generator.ErrEmptySongs) {
			writeJSON(w, http.StatusOK, map[string]any{"songs": []models.Song{}, "empty": true})
			return
		}
		a.writeGeneratorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"songs": result, "empty": false})
}

func (a *API) handleOptions(w http.ResponseWriter, r *http.Request) {
	domain, ok := dropdown.ParseDomain(chi.URLParam(r, "domain"))
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown_domain")
		return
	}

	var options []string
	switch domain {
	case dropdown.DomainRuleCondition:
		raw := r.URL.Query().Get("field")
		field := models.ParseFilterField(raw)
		if string(field) != raw {
			writeError(w, http.StatusBadRequest, "unknown_field")
			return
		}
		options = dropdown.OptionsFor(domain, field)
	case dropdown.DomainLimitValue:
		raw := r.URL.Query().Get("unit")
		unit := models.ParseLimitUnit(raw)
		if string(unit) != raw {
			writeError(w, http.StatusBadRequest, "unknown_unit")
			return
		}
		options = dropdown.LimitValueOptions(unit)
	default:
		options = dropdown.OptionsFor(domain, "")
	}
	writeJSON(w, http.StatusOK, map[string]any{"options": options})
}

// decodeGeneratorRequest decodes and validates the playlist payload. Unknown
// enum values are rejected rather than coerced.
func (a *API) decodeGeneratorRequest(w http.ResponseWriter, r *http.Request) (generator.Request, bool) {
	var payload playlistRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return generator.Request{}, false
	}

	ruleSet := make([]models.Rule, 0, len(payload.Rules))
	for _, raw := range payload.Rules {
		field := models.ParseFilterField(raw.Field)
		if string(field) != raw.Field {
			writeError(w, http.StatusBadRequest, "unknown_field")
			return generator.Request{}, false
		}
		op := models.ParseFilterOperator(raw.Condition)
		if string(op) != raw.Condition {
			writeError(w, http.StatusBadRequest, "unknown_condition")
			return generator.Request{}, false
		}
		if !models.OperatorAllowed(field, op) {
			writeError(w, http.StatusBadRequest, "condition_not_allowed_for_field")
			return generator.Request{}, false
		}
		rule := models.Rule{Field: field, Operator: op, Value: raw.Value}
		if raw.Date != nil {
			if _, err := dateutil.ParseVerbose(*raw.Date); err != nil {
				writeError(w, http.StatusBadRequest, "invalid_date")
				return generator.Request{}, false
			}
			text := strings.TrimSpace(*raw.Date)
			rule.Date = &text
		}
		ruleSet = append(ruleSet, rule)
	}

	matchMode := models.MatchAll
	if payload.MatchMode != "" {
		matchMode = models.ParseMatchMode(payload.MatchMode)
		if string(matchMode) != payload.MatchMode {
			writeError(w, http.StatusBadRequest, "unknown_match_mode")
			return generator.Request{}, false
		}
	}

	limit := models.DefaultLimitSpec()
	limit.Active = payload.Limit.Active
	if payload.Limit.Count > 0 {
		limit.Count = payload.Limit.Count
	}
	if payload.Limit.Unit != "" {
		limit.Unit = models.ParseLimitUnit(payload.Limit.Unit)
		if string(limit.Unit) != payload.Limit.Unit {
			writeError(w, http.StatusBadRequest, "unknown_limit_unit")
			return generator.Request{}, false
		}
	}
	if payload.Limit.SortType != "" {
		limit.SortType = models.ParseSortType(payload.Limit.SortType)
		if string(limit.SortType) != payload.Limit.SortType {
			writeError(w, http.StatusBadRequest, "unknown_sort_type")
			return generator.Request{}, false
		}
	}

	return generator.Request{
		Name:             strings.TrimSpace(payload.Name),
		Cover:            payload.Cover,
		Rules:            ruleSet,
		DateOverrides:    payload.DateOverrides,
		MatchMode:        matchMode,
		Limit:            limit,
		SmartRulesActive: payload.SmartRulesActive,
		LiveUpdating:     payload.LiveUpdating,
		Export:           payload.Export,
	}, true
}

func (a *API) writeGeneratorError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, generator.ErrEmptyName):
		writeError(w, http.StatusUnprocessableEntity, "name_required")
	case errors.Is(err, generator.ErrEmptySongs):
		writeError(w, http.StatusUnprocessableEntity, "no_songs_matched")
	default:
		a.logger.Error().Err(err).Msg("generator")
		writeError(w, http.StatusInternalServerError, "internal_error")
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
