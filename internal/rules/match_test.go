/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package rules

import (
	"testing"
	"time"

	"github.com/friendsincode/cancion/internal/dateutil"
	"github.com/friendsincode/cancion/internal/models"
)

func intPtr(v int) *int              { return &v }
func floatPtr(v float64) *float64    { return &v }
func timePtr(v time.Time) *time.Time { return &v }
func strPtr(v string) *string        { return &v }

func TestMatchesTextOperators(t *testing.T) {
	song := models.Song{Artist: "Kanye West", Title: "Runaway"}

	tests := []struct {
		name     string
		rule     models.Rule
		expected bool
	}{
		{"artist equals", models.Rule{Field: models.FieldArtist, Operator: models.OpEquals, Value: "Kanye West"}, true},
		{"artist equals mismatch", models.Rule{Field: models.FieldArtist, Operator: models.OpEquals, Value: "Kanye"}, false},
		{"artist contains", models.Rule{Field: models.FieldArtist, Operator: models.OpContains, Value: "ye"}, true},
		{"artist does not contain", models.Rule{Field: models.FieldArtist, Operator: models.OpDoesNotContain, Value: "Drake"}, true},
		{"title contains", models.Rule{Field: models.FieldTitle, Operator: models.OpContains, Value: "Run"}, true},
		{"case sensitive by default", models.Rule{Field: models.FieldArtist, Operator: models.OpContains, Value: "kanye"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Matches(song, tt.rule, nil, MatchConfig{}); got != tt.expected {
				t.Errorf("Matches() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestMatchesCaseInsensitiveConfig(t *testing.T) {
	song := models.Song{Artist: "Kanye West"}
	rule := models.Rule{Field: models.FieldArtist, Operator: models.OpContains, Value: "kanye"}

	if Matches(song, rule, nil, MatchConfig{}) {
		t.Error("default config should be case-sensitive")
	}
	if !Matches(song, rule, nil, MatchConfig{CaseInsensitive: true}) {
		t.Error("case-insensitive config should match")
	}
}

func TestMatchesPlayCount(t *testing.T) {
	tests := []struct {
		name     string
		song     models.Song
		rule     models.Rule
		expected bool
	}{
		{"greater than", models.Song{PlayCount: intPtr(10)}, models.Rule{Field: models.FieldPlayCount, Operator: models.OpGreaterThan, Value: "5"}, true},
		{"greater than strict", models.Song{PlayCount: intPtr(5)}, models.Rule{Field: models.FieldPlayCount, Operator: models.OpGreaterThan, Value: "5"}, false},
		{"less than", models.Song{PlayCount: intPtr(3)}, models.Rule{Field: models.FieldPlayCount, Operator: models.OpLessThan, Value: "5"}, true},
		{"missing count treated as zero", models.Song{}, models.Rule{Field: models.FieldPlayCount, Operator: models.OpLessThan, Value: "1"}, true},
		{"missing count never greater", models.Song{}, models.Rule{Field: models.FieldPlayCount, Operator: models.OpGreaterThan, Value: "0"}, false},
		{"unparseable value fails closed", models.Song{PlayCount: intPtr(10)}, models.Rule{Field: models.FieldPlayCount, Operator: models.OpGreaterThan, Value: "lots"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Matches(tt.song, tt.rule, nil, MatchConfig{}); got != tt.expected {
				t.Errorf("Matches() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestMatchesDates(t *testing.T) {
	day := time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)
	earlier := day.AddDate(0, 0, -3)
	later := day.AddDate(0, 0, 3)

	tests := []struct {
		name     string
		song     models.Song
		op       models.FilterOperator
		resolved *time.Time
		expected bool
	}{
		{"equals same calendar day", models.Song{DateAdded: timePtr(day.Add(9 * time.Hour))}, models.OpEquals, timePtr(day), true},
		{"equals different day", models.Song{DateAdded: timePtr(earlier)}, models.OpEquals, timePtr(day), false},
		{"before strict", models.Song{DateAdded: timePtr(earlier)}, models.OpBefore, timePtr(day), true},
		{"before same instant", models.Song{DateAdded: timePtr(day)}, models.OpBefore, timePtr(day), false},
		{"after strict", models.Song{DateAdded: timePtr(later)}, models.OpAfter, timePtr(day), true},
		{"null song date never matches", models.Song{}, models.OpEquals, timePtr(day), false},
		{"nil resolved date never matches", models.Song{DateAdded: timePtr(day)}, models.OpEquals, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := models.Rule{Field: models.FieldDateAdded, Operator: tt.op}
			if got := Matches(tt.song, rule, tt.resolved, MatchConfig{}); got != tt.expected {
				t.Errorf("Matches() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestMatchesIllegalPairFailsClosed(t *testing.T) {
	song := models.Song{Title: "Runaway", PlayCount: intPtr(100)}

	illegal := []models.Rule{
		{Field: models.FieldTitle, Operator: models.OpGreaterThan, Value: "5"},
		{Field: models.FieldPlayCount, Operator: models.OpContains, Value: "0"},
		{Field: models.FieldDateAdded, Operator: models.OpContains, Value: "Jun"},
	}

	for _, rule := range illegal {
		if Matches(song, rule, nil, MatchConfig{}) {
			t.Errorf("illegal pair %s/%s should never match", rule.Field, rule.Operator)
		}
	}
}

func TestResolveDateOverrideWins(t *testing.T) {
	stored := dateutil.FormatVerbose(time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC))
	override := dateutil.FormatVerbose(time.Date(2024, time.February, 2, 0, 0, 0, 0, time.UTC))
	rule := models.Rule{ID: "r1", Field: models.FieldDateAdded, Operator: models.OpAfter, Date: &stored}

	resolved := ResolveDate(rule, map[string]string{"r1": override})
	if resolved == nil {
		t.Fatal("expected resolved date")
	}
	if resolved.Month() != time.February {
		t.Fatalf("override should win, got %v", resolved)
	}

	resolved = ResolveDate(rule, nil)
	if resolved == nil || resolved.Month() != time.January {
		t.Fatalf("stored date should be used without an override, got %v", resolved)
	}
}

func TestResolveDateUnparseable(t *testing.T) {
	rule := models.Rule{ID: "r1", Field: models.FieldDateAdded, Operator: models.OpAfter, Date: strPtr("not a date")}
	if ResolveDate(rule, nil) != nil {
		t.Fatal("unparseable date text should resolve to nil")
	}
	if ResolveDate(models.Rule{ID: "r2"}, nil) != nil {
		t.Fatal("missing date text should resolve to nil")
	}
}

func TestFilterSongsEmptyRuleSetAsymmetry(t *testing.T) {
	songs := []models.Song{{ID: "1", Artist: "Yeat"}, {ID: "2", Artist: "Drake"}}

	all := FilterSongs(songs, nil, models.MatchAll, nil, MatchConfig{})
	if len(all) != len(songs) {
		t.Fatalf("empty rule set under all should be identity, got %d songs", len(all))
	}

	any := FilterSongs(songs, nil, models.MatchAny, nil, MatchConfig{})
	if len(any) != 0 {
		t.Fatalf("empty rule set under any should match nothing, got %d songs", len(any))
	}
}

func TestFilterSongsArtistContainsScenario(t *testing.T) {
	songs := []models.Song{
		{ID: "1", Artist: "Yeat"},
		{ID: "2", Artist: "Drake"},
		{ID: "3", Artist: "Kanye"},
	}
	ruleSet := []models.Rule{{Field: models.FieldArtist, Operator: models.OpContains, Value: "ye"}}

	matched := FilterSongs(songs, ruleSet, models.MatchAll, nil, MatchConfig{CaseInsensitive: true})
	if len(matched) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matched))
	}
	got := map[string]bool{}
	for _, song := range matched {
		got[song.Artist] = true
	}
	if !got["Yeat"] || !got["Kanye"] {
		t.Fatalf("expected Yeat and Kanye, got %v", got)
	}
}

func TestFilterSongsAllVsAny(t *testing.T) {
	songs := []models.Song{
		{ID: "1", Artist: "Kanye", PlayCount: intPtr(50)},
		{ID: "2", Artist: "Kanye", PlayCount: intPtr(2)},
		{ID: "3", Artist: "Drake", PlayCount: intPtr(50)},
	}
	ruleSet := []models.Rule{
		{Field: models.FieldArtist, Operator: models.OpEquals, Value: "Kanye"},
		{Field: models.FieldPlayCount, Operator: models.OpGreaterThan, Value: "10"},
	}

	all := FilterSongs(songs, ruleSet, models.MatchAll, nil, MatchConfig{})
	if len(all) != 1 || all[0].ID != "1" {
		t.Fatalf("all mode: expected only song 1, got %v", all)
	}

	any := FilterSongs(songs, ruleSet, models.MatchAny, nil, MatchConfig{})
	if len(any) != 3 {
		t.Fatalf("any mode: expected all 3 songs, got %d", len(any))
	}
}
