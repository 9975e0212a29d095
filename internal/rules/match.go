/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package rules implements the playlist generation pipeline primitives:
// rule matching, sort strategies, and the limit policy. Everything here is a
// pure function over in-memory song snapshots; malformed rules degrade to
// non-matching rather than erroring.
package rules

import (
	"strconv"
	"strings"
	"time"

	"github.com/friendsincode/cancion/internal/dateutil"
	"github.com/friendsincode/cancion/internal/models"
)

// MatchConfig tunes string comparison behaviour. The historical default is
// case-sensitive exact/substring matching.
type MatchConfig struct {
	CaseInsensitive bool
}

// ResolveDate produces the date a rule compares against: the override map
// wins over the rule's own stored date text. Returns nil when neither parses.
func ResolveDate(rule models.Rule, overrides map[string]string) *time.Time {
	text := ""
	if rule.Date != nil {
		text = *rule.Date
	}
	if override, ok := overrides[rule.ID]; ok {
		text = override
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}
	parsed, err := dateutil.ParseVerbose(text)
	if err != nil {
		return nil
	}
	return &parsed
}

// Matches evaluates a single rule against a song. Illegal field/operator
// pairs return false, never an error.
func Matches(song models.Song, rule models.Rule, resolvedDate *time.Time, cfg MatchConfig) bool {
	if !models.OperatorAllowed(rule.Field, rule.Operator) {
		return false
	}

	switch rule.Field {
	case models.FieldArtist:
		return matchText(song.Artist, rule.Operator, rule.Value, cfg)
	case models.FieldTitle:
		return matchText(song.Title, rule.Operator, rule.Value, cfg)
	case models.FieldPlayCount:
		return matchPlayCount(song, rule.Operator, rule.Value)
	case models.FieldDateAdded:
		return matchDate(song.DateAdded, rule.Operator, resolvedDate)
	case models.FieldLastPlayed:
		return matchDate(song.LastPlayed, rule.Operator, resolvedDate)
	}
	return false
}

func matchText(subject string, op models.FilterOperator, value string, cfg MatchConfig) bool {
	if cfg.CaseInsensitive {
		subject = strings.ToLower(subject)
		value = strings.ToLower(value)
	}
	switch op {
	case models.OpEquals:
		return subject == value
	case models.OpContains:
		return strings.Contains(subject, value)
	case models.OpDoesNotContain:
		return !strings.Contains(subject, value)
	}
	return false
}

func matchPlayCount(song models.Song, op models.FilterOperator, value string) bool {
	threshold, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return false
	}
	count := song.PlayCountOrZero()
	switch op {
	case models.OpGreaterThan:
		return count > threshold
	case models.OpLessThan:
		return count < threshold
	}
	return false
}

func matchDate(songDate *time.Time, op models.FilterOperator, resolved *time.Time) bool {
	// A song with no relevant date never matches, and an unparseable rule
	// date disables the rule rather than erroring.
	if songDate == nil || resolved == nil {
		return false
	}
	switch op {
	case models.OpEquals:
		return dateutil.SameDay(*songDate, *resolved)
	case models.OpBefore:
		return songDate.Before(*resolved)
	case models.OpAfter:
		return songDate.After(*resolved)
	}
	return false
}

// MatchesSet evaluates the full rule set for one song under the given
// combinator. An empty set is vacuously true under all but matches nothing
// under any; that asymmetry is inherited behaviour and deliberate.
func MatchesSet(song models.Song, ruleSet []models.Rule, mode models.MatchMode, overrides map[string]string, cfg MatchConfig) bool {
	if len(ruleSet) == 0 {
		return mode == models.MatchAll
	}

	for _, rule := range ruleSet {
		matched := Matches(song, rule, ResolveDate(rule, overrides), cfg)
		switch mode {
		case models.MatchAny:
			if matched {
				return true
			}
		default:
			if !matched {
				return false
			}
		}
	}
	return mode == models.MatchAll
}

// FilterSongs returns the songs passing the rule set. The input slice is
// never mutated.
func FilterSongs(songs []models.Song, ruleSet []models.Rule, mode models.MatchMode, overrides map[string]string, cfg MatchConfig) []models.Song {
	out := make([]models.Song, 0, len(songs))
	for _, song := range songs {
		if MatchesSet(song, ruleSet, mode, overrides, cfg) {
			out = append(out, song)
		}
	}
	return out
}
