/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package dropdown is the headless selection state machine behind the rule
// editor. Each dropdown maps a selection domain to its legal option list and
// current choice; selecting an option closes the dropdown and emits an event
// the owning controller applies to the underlying rule or spec.
package dropdown

import (
	"strconv"

	"github.com/friendsincode/cancion/internal/models"
)

// Domain names a selection universe.
type Domain string

const (
	DomainRuleField     Domain = "rule_field"
	DomainRuleCondition Domain = "rule_condition"
	DomainMatchMode     Domain = "match_mode"
	DomainLimitType     Domain = "limit_type"
	DomainLimitSortType Domain = "limit_sort_type"
	DomainLimitValue    Domain = "limit_value"
)

// ParseDomain decodes a domain name; unknown names are rejected.
func ParseDomain(s string) (Domain, bool) {
	switch Domain(s) {
	case DomainRuleField, DomainRuleCondition, DomainMatchMode,
		DomainLimitType, DomainLimitSortType, DomainLimitValue:
		return Domain(s), true
	}
	return "", false
}

// Event is emitted when a selection is made.
type Event struct {
	Domain    Domain
	Selection string
}

// State is one dropdown: its domain, option list, and current selection.
type State struct {
	Domain    Domain
	Options   []string
	Selection string
	IsOpen    bool
}

// limit value presets per unit. The first entry is the default whenever the
// option list changes out from under the current selection.
var limitPresets = map[models.LimitUnit][]int{
	models.UnitItems:   {25, 50, 100, 250, 500},
	models.UnitMinutes: {15, 30, 45, 60, 90, 120},
	models.UnitHours:   {1, 2, 3, 4, 5, 10},
}

// OptionsFor returns the legal options for a domain. Rule-condition options
// depend on the owning rule's field.
func OptionsFor(domain Domain, field models.FilterField) []string {
	switch domain {
	case DomainRuleField:
		return []string{
			string(models.FieldArtist),
			string(models.FieldTitle),
			string(models.FieldPlayCount),
			string(models.FieldDateAdded),
			string(models.FieldLastPlayed),
		}
	case DomainRuleCondition:
		ops := models.LegalOperators(field)
		out := make([]string, len(ops))
		for i, op := range ops {
			out[i] = string(op)
		}
		return out
	case DomainMatchMode:
		return []string{string(models.MatchAll), string(models.MatchAny)}
	case DomainLimitType:
		return []string{string(models.UnitItems), string(models.UnitMinutes), string(models.UnitHours)}
	case DomainLimitSortType:
		return []string{
			string(models.SortMostPlayed),
			string(models.SortLastPlayed),
			string(models.SortMostRecentlyAdded),
			string(models.SortTitle),
			string(models.SortArtist),
			string(models.SortRandom),
		}
	}
	return nil
}

// LimitValueOptions returns the numeric presets for a limit unit as display
// strings.
func LimitValueOptions(unit models.LimitUnit) []string {
	presets := limitPresets[unit]
	out := make([]string, len(presets))
	for i, v := range presets {
		out[i] = strconv.Itoa(v)
	}
	return out
}

// NewState builds a dropdown with its initial options and the first option
// selected. The field argument only matters for DomainRuleCondition.
func NewState(domain Domain, field models.FilterField) *State {
	s := &State{Domain: domain, Options: OptionsFor(domain, field)}
	if len(s.Options) > 0 {
		s.Selection = s.Options[0]
	}
	return s
}

// Toggle flips open/closed on a tap.
func (s *State) Toggle() {
	s.IsOpen = !s.IsOpen
}

// Select picks an option, closes the dropdown, and emits the event. A
// selection while closed, or of an option not in the list, is ignored.
func (s *State) Select(option string) (Event, bool) {
	if !s.IsOpen || !s.contains(option) {
		return Event{}, false
	}
	s.Selection = option
	s.IsOpen = false
	return Event{Domain: s.Domain, Selection: option}, true
}

// SetOptions swaps the option list. When the current selection falls out of
// the new list, the first option becomes the selection.
func (s *State) SetOptions(options []string) {
	s.Options = options
	if !s.contains(s.Selection) {
		if len(options) > 0 {
			s.Selection = options[0]
		} else {
			s.Selection = ""
		}
	}
}

func (s *State) contains(option string) bool {
	for _, candidate := range s.Options {
		if candidate == option {
			return true
		}
	}
	return false
}

// RuleRow couples a field dropdown with its dependent condition dropdown and
// mediates selections into the rule. Changing the field resets the condition
// to the first legal operator for the new field, never leaving a stale
// illegal operator selected.
type RuleRow struct {
	Rule      *models.Rule
	Field     *State
	Condition *State
}

// NewRuleRow builds the pair of dropdowns for a rule.
func NewRuleRow(rule *models.Rule) *RuleRow {
	row := &RuleRow{
		Rule:      rule,
		Field:     NewState(DomainRuleField, rule.Field),
		Condition: NewState(DomainRuleCondition, rule.Field),
	}
	row.Field.Selection = string(rule.Field)
	if row.Condition.contains(string(rule.Operator)) {
		row.Condition.Selection = string(rule.Operator)
	} else {
		rule.Operator = models.ParseFilterOperator(row.Condition.Selection)
	}
	return row
}

// Apply consumes a selection event and mutates the rule.
func (r *RuleRow) Apply(event Event) {
	switch event.Domain {
	case DomainRuleField:
		field := models.ParseFilterField(event.Selection)
		if field == r.Rule.Field {
			return
		}
		r.Rule.Field = field
		r.Condition.SetOptions(OptionsFor(DomainRuleCondition, field))
		r.Rule.Operator = models.ParseFilterOperator(r.Condition.Selection)
	case DomainRuleCondition:
		r.Rule.Operator = models.ParseFilterOperator(event.Selection)
	}
}

// LimitControls couples the limit-type dropdown with the dependent numeric
// preset dropdown.
type LimitControls struct {
	Spec   *models.LimitSpec
	Type   *State
	Values *State
	Sort   *State
}

// NewLimitControls builds the limit dropdowns for a spec.
func NewLimitControls(spec *models.LimitSpec) *LimitControls {
	c := &LimitControls{
		Spec:   spec,
		Type:   NewState(DomainLimitType, ""),
		Values: &State{Domain: DomainLimitValue},
		Sort:   NewState(DomainLimitSortType, ""),
	}
	c.Type.Selection = string(spec.Unit)
	c.Sort.Selection = string(spec.SortType)
	c.Values.SetOptions(LimitValueOptions(spec.Unit))
	if c.Values.contains(strconv.Itoa(spec.Count)) {
		c.Values.Selection = strconv.Itoa(spec.Count)
	} else {
		c.syncCount()
	}
	return c
}

// Apply consumes a selection event and mutates the limit. A limit-type change
// resyncs the numeric presets and defaults to the first when the previous
// count is not a preset of the new unit.
func (c *LimitControls) Apply(event Event) {
	switch event.Domain {
	case DomainLimitType:
		unit := models.ParseLimitUnit(event.Selection)
		if unit == c.Spec.Unit {
			return
		}
		c.Spec.Unit = unit
		c.Values.SetOptions(LimitValueOptions(unit))
		c.syncCount()
	case DomainLimitValue:
		if count, err := strconv.Atoi(event.Selection); err == nil {
			c.Spec.Count = count
		}
	case DomainLimitSortType:
		c.Spec.SortType = models.ParseSortType(event.Selection)
	}
}

func (c *LimitControls) syncCount() {
	if count, err := strconv.Atoi(c.Values.Selection); err == nil {
		c.Spec.Count = count
	}
}
