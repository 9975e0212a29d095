/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package rules

import "github.com/friendsincode/cancion/internal/models"

// LimitConfig tunes the open question around null-duration songs under a
// duration cap. The historical behaviour excludes them from the limited
// result entirely; PassNullDurations lets them through uncounted instead.
type LimitConfig struct {
	PassNullDurations bool
}

// ApplyLimit truncates an already-sorted song list. Items limits take the
// first Count entries. Minute and hour limits walk the list accumulating
// duration and stop at the first song that would push the total over the cap:
// a greedy prefix cutoff, not best-fit packing.
func ApplyLimit(songs []models.Song, spec models.LimitSpec, cfg LimitConfig) []models.Song {
	if !spec.Active {
		return songs
	}
	if spec.Count <= 0 {
		return nil
	}

	switch spec.Unit {
	case models.UnitMinutes, models.UnitHours:
		maxMinutes := float64(spec.Count)
		if spec.Unit == models.UnitHours {
			maxMinutes *= 60
		}
		return limitByMinutes(songs, maxMinutes, cfg)
	default:
		if spec.Count >= len(songs) {
			return songs
		}
		return songs[:spec.Count]
	}
}

func limitByMinutes(songs []models.Song, maxMinutes float64, cfg LimitConfig) []models.Song {
	out := make([]models.Song, 0, len(songs))
	total := 0.0
	for _, song := range songs {
		if song.DurationSec == nil {
			if cfg.PassNullDurations {
				out = append(out, song)
			}
			continue
		}
		minutes := *song.DurationSec / 60
		if total+minutes > maxMinutes {
			break
		}
		total += minutes
		out = append(out, song)
	}
	return out
}
