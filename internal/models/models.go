/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Song is a library track. The rule engine never mutates songs; they are
// owned by the library collaborator and treated as a read-only snapshot.
type Song struct {
	ID          string `gorm:"type:uuid;primaryKey"`
	Title       string `gorm:"index"`
	Artist      string `gorm:"index"`
	Album       string
	PlayCount   *int
	DateAdded   *time.Time
	LastPlayed  *time.Time
	DurationSec *float64
	ExternalID  string `gorm:"index"`
	ArtworkURL  string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// PlayCountOrZero treats a missing play count as zero for comparisons.
func (s Song) PlayCountOrZero() int {
	if s.PlayCount == nil {
		return 0
	}
	return *s.PlayCount
}

// FilterField enumerates the song attributes a rule can target.
type FilterField string

const (
	FieldArtist     FilterField = "artist"
	FieldTitle      FilterField = "title"
	FieldPlayCount  FilterField = "play_count"
	FieldDateAdded  FilterField = "date_added"
	FieldLastPlayed FilterField = "last_played"
)

// FilterOperator enumerates rule comparisons.
type FilterOperator string

const (
	OpEquals         FilterOperator = "equals"
	OpContains       FilterOperator = "contains"
	OpDoesNotContain FilterOperator = "does_not_contain"
	OpGreaterThan    FilterOperator = "greater_than"
	OpLessThan       FilterOperator = "less_than"
	OpBefore         FilterOperator = "before"
	OpAfter          FilterOperator = "after"
)

// legalOperators is the authoritative field → operator table. It governs both
// matching (illegal pairs never match) and dropdown option population.
var legalOperators = map[FilterField][]FilterOperator{
	FieldArtist:     {OpEquals, OpContains, OpDoesNotContain},
	FieldTitle:      {OpEquals, OpContains, OpDoesNotContain},
	FieldPlayCount:  {OpGreaterThan, OpLessThan},
	FieldDateAdded:  {OpEquals, OpBefore, OpAfter},
	FieldLastPlayed: {OpEquals, OpBefore, OpAfter},
}

// LegalOperators returns the operators valid for field, in display order.
func LegalOperators(field FilterField) []FilterOperator {
	ops := legalOperators[field]
	out := make([]FilterOperator, len(ops))
	copy(out, ops)
	return out
}

// OperatorAllowed reports whether op is legal for field.
func OperatorAllowed(field FilterField, op FilterOperator) bool {
	for _, candidate := range legalOperators[field] {
		if candidate == op {
			return true
		}
	}
	return false
}

// IsDateField reports whether field compares against a resolved date.
func (f FilterField) IsDateField() bool {
	return f == FieldDateAdded || f == FieldLastPlayed
}

// ParseFilterField decodes a stored field string. Unknown values fail closed
// to FieldArtist rather than erroring, so a corrupted row degrades instead of
// crashing deserialization.
func ParseFilterField(s string) FilterField {
	switch FilterField(s) {
	case FieldArtist, FieldTitle, FieldPlayCount, FieldDateAdded, FieldLastPlayed:
		return FilterField(s)
	}
	return FieldArtist
}

// ParseFilterOperator decodes a stored operator string, failing closed to
// OpEquals on unknown input.
func ParseFilterOperator(s string) FilterOperator {
	switch FilterOperator(s) {
	case OpEquals, OpContains, OpDoesNotContain, OpGreaterThan, OpLessThan, OpBefore, OpAfter:
		return FilterOperator(s)
	}
	return OpEquals
}

// Rule is one filter predicate: a field, a comparison, and a value. Date
// fields carry an optional formatted date text (verbose layout) instead of
// using Value.
type Rule struct {
	ID        string         `gorm:"type:uuid;primaryKey"`
	Field     FilterField    `gorm:"type:varchar(32)"`
	Operator  FilterOperator `gorm:"type:varchar(32)"`
	Value     string
	Date      *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// EquivalentTo compares rules by value, ignoring identity and timestamps. The
// edit flow uses this to decide whether a playlist's rules actually changed.
func (r Rule) EquivalentTo(other Rule) bool {
	if r.Field != other.Field || r.Operator != other.Operator || r.Value != other.Value {
		return false
	}
	if (r.Date == nil) != (other.Date == nil) {
		return false
	}
	return r.Date == nil || *r.Date == *other.Date
}

// MatchMode is the boolean combinator across a playlist's rules.
type MatchMode string

const (
	MatchAll MatchMode = "all"
	MatchAny MatchMode = "any"
)

// ParseMatchMode fails closed to MatchAll on unknown input.
func ParseMatchMode(s string) MatchMode {
	if MatchMode(s) == MatchAny {
		return MatchAny
	}
	return MatchAll
}

// LimitUnit selects between row-count and duration-cap limit semantics.
type LimitUnit string

const (
	UnitItems   LimitUnit = "items"
	UnitMinutes LimitUnit = "minutes"
	UnitHours   LimitUnit = "hours"
)

// ParseLimitUnit fails closed to UnitItems on unknown input.
func ParseLimitUnit(s string) LimitUnit {
	switch LimitUnit(s) {
	case UnitItems, UnitMinutes, UnitHours:
		return LimitUnit(s)
	}
	return UnitItems
}

// SortType names a sort strategy applied before limiting.
type SortType string

const (
	SortMostPlayed        SortType = "most_played"
	SortLastPlayed        SortType = "last_played"
	SortMostRecentlyAdded SortType = "most_recently_added"
	SortTitle             SortType = "title"
	SortArtist            SortType = "artist"
	SortRandom            SortType = "random"
)

// ParseSortType fails closed to SortMostPlayed on unknown input.
func ParseSortType(s string) SortType {
	switch SortType(s) {
	case SortMostPlayed, SortLastPlayed, SortMostRecentlyAdded, SortTitle, SortArtist, SortRandom:
		return SortType(s)
	}
	return SortMostPlayed
}

// LimitSpec is the truncation policy for a playlist. When Unit is not items,
// Count is a duration cap rather than a row cap.
type LimitSpec struct {
	Active   bool      `json:"active"`
	Count    int       `json:"count"`
	Unit     LimitUnit `json:"unit" gorm:"type:varchar(16)"`
	SortType SortType  `json:"sort_type" gorm:"type:varchar(32)"`
}

// DefaultLimitSpec mirrors the defaults a new playlist editor starts with.
func DefaultLimitSpec() LimitSpec {
	return LimitSpec{Active: false, Count: 25, Unit: UnitItems, SortType: SortMostPlayed}
}

// StringList stores an ordered id list as a JSON text column.
type StringList []string

// Value implements driver.Valuer.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	data, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner.
func (l *StringList) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		*l = nil
		return nil
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	}
	return fmt.Errorf("unsupported StringList source type %T", value)
}

// Equal reports element-wise equality.
func (l StringList) Equal(other StringList) bool {
	if len(l) != len(other) {
		return false
	}
	for i := range l {
		if l[i] != other[i] {
			return false
		}
	}
	return true
}

// Playlist is a persisted smart playlist definition plus its materialized
// result. Rules are shared rows associated through a join table; deleting a
// playlist must not delete rules still referenced elsewhere.
type Playlist struct {
	ID               string `gorm:"type:uuid;primaryKey"`
	Name             string `gorm:"index"`
	Cover            []byte
	MatchMode        MatchMode `gorm:"type:varchar(8)"`
	Limit            LimitSpec `gorm:"embedded;embeddedPrefix:limit_"`
	SmartRulesActive bool
	LiveUpdating     bool
	SongIDs          StringList `gorm:"type:text"`
	ExternalRef      *string
	Rules            []Rule `gorm:"many2many:playlist_rules"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// QueueEntry pins a song into the playback queue at a position.
type QueueEntry struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	SongID    string `gorm:"type:uuid;index"`
	Position  int    `gorm:"index"`
	CreatedAt time.Time
}
