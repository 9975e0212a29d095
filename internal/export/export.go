/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package export pushes generated playlists to an external streaming
// service. The generator only depends on the Exporter interface; export is
// best-effort and never rolls back a committed local playlist.
package export

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"

	"github.com/friendsincode/cancion/internal/models"
)

// Exporter is the external playlist collaborator contract.
type Exporter interface {
	CreatePlaylist(ctx context.Context, name string) (string, error)
	AddSongs(ctx context.Context, ref string, songs []models.Song) error
	EditPlaylist(ctx context.Context, ref, name string, songs []models.Song) error
}

// Noop is the exporter used when no external service is configured.
type Noop struct{}

func (Noop) CreatePlaylist(context.Context, string) (string, error) { return "", nil }

func (Noop) AddSongs(context.Context, string, []models.Song) error { return nil }

func (Noop) EditPlaylist(context.Context, string, string, []models.Song) error { return nil }

// Spotify exports playlists through the Spotify Web API. Songs map to
// external tracks via Song.ExternalID; songs without one are skipped.
type Spotify struct {
	client *spotify.Client
	userID string
	logger zerolog.Logger
}

// NewSpotify wraps an already-authenticated client. Authorization is the
// caller's concern.
func NewSpotify(client *spotify.Client, userID string, logger zerolog.Logger) *Spotify {
	return &Spotify{
		client: client,
		userID: userID,
		logger: logger.With().Str("component", "export").Logger(),
	}
}

// NewSpotifyClient builds a client from an offline refresh token. The expiry
// is backdated so the first call refreshes immediately.
func NewSpotifyClient(ctx context.Context, clientID, clientSecret, refreshToken string) *spotify.Client {
	auth := spotifyauth.New(
		spotifyauth.WithClientID(clientID),
		spotifyauth.WithClientSecret(clientSecret),
		spotifyauth.WithScopes(
			spotifyauth.ScopePlaylistModifyPrivate,
			spotifyauth.ScopePlaylistModifyPublic,
		),
	)
	token := &oauth2.Token{
		RefreshToken: refreshToken,
		Expiry:       time.Now().Add(-time.Hour),
	}
	return spotify.New(auth.Client(ctx, token))
}

// CreatePlaylist creates a private playlist and returns its id as the
// external ref.
func (s *Spotify) CreatePlaylist(ctx context.Context, name string) (string, error) {
	playlist, err := s.client.CreatePlaylistForUser(ctx, s.userID, name, "", false, false)
	if err != nil {
		return "", fmt.Errorf("create remote playlist: %w", err)
	}
	s.logger.Info().Str("name", name).Str("ref", string(playlist.ID)).Msg("remote playlist created")
	return string(playlist.ID), nil
}

// AddSongs appends tracks to the remote playlist.
func (s *Spotify) AddSongs(ctx context.Context, ref string, songs []models.Song) error {
	ids := trackIDs(songs)
	if len(ids) == 0 {
		return nil
	}
	if _, err := s.client.AddTracksToPlaylist(ctx, spotify.ID(ref), ids...); err != nil {
		return fmt.Errorf("add remote tracks: %w", err)
	}
	return nil
}

// EditPlaylist renames the remote playlist and replaces its membership.
func (s *Spotify) EditPlaylist(ctx context.Context, ref, name string, songs []models.Song) error {
	if err := s.client.ChangePlaylistName(ctx, spotify.ID(ref), name); err != nil {
		return fmt.Errorf("rename remote playlist: %w", err)
	}
	if err := s.client.ReplacePlaylistTracks(ctx, spotify.ID(ref), trackIDs(songs)...); err != nil {
		return fmt.Errorf("replace remote tracks: %w", err)
	}
	return nil
}

func trackIDs(songs []models.Song) []spotify.ID {
	ids := make([]spotify.ID, 0, len(songs))
	for _, song := range songs {
		if song.ExternalID != "" {
			ids = append(ids, spotify.ID(song.ExternalID))
		}
	}
	return ids
}
