/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package rules

import (
	"math/rand"
	"sort"
	"strings"

	"github.com/friendsincode/cancion/internal/models"
)

// SortSongs orders a copy of songs by the named strategy. The date-based
// strategies drop songs missing the relevant date; ties everywhere else keep
// their original relative order. Random is an unseeded uniform shuffle.
func SortSongs(songs []models.Song, sortType models.SortType) []models.Song {
	out := make([]models.Song, len(songs))
	copy(out, songs)

	switch sortType {
	case models.SortMostPlayed:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].PlayCountOrZero() > out[j].PlayCountOrZero()
		})
	case models.SortLastPlayed:
		out = dropMissing(out, func(s models.Song) bool { return s.LastPlayed == nil })
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].LastPlayed.After(*out[j].LastPlayed)
		})
	case models.SortMostRecentlyAdded:
		out = dropMissing(out, func(s models.Song) bool { return s.DateAdded == nil })
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].DateAdded.After(*out[j].DateAdded)
		})
	case models.SortTitle:
		sort.SliceStable(out, func(i, j int) bool {
			return strings.ToLower(out[i].Title) < strings.ToLower(out[j].Title)
		})
	case models.SortArtist:
		sort.SliceStable(out, func(i, j int) bool {
			return strings.ToLower(out[i].Artist) < strings.ToLower(out[j].Artist)
		})
	case models.SortRandom:
		rand.Shuffle(len(out), func(i, j int) {
			out[i], out[j] = out[j], out[i]
		})
	}

	return out
}

func dropMissing(songs []models.Song, missing func(models.Song) bool) []models.Song {
	kept := songs[:0]
	for _, song := range songs {
		if !missing(song) {
			kept = append(kept, song)
		}
	}
	return kept
}
