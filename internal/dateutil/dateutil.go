/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package dateutil holds the two date text formats shared by the rule editor
// and the matching engine. Rule dates are always written and parsed with the
// verbose layout; a mismatch between the write and read paths silently breaks
// date matching, so both sides must go through this package.
package dateutil

import (
	"strings"
	"time"
)

const (
	// CompactLayout renders 6/15/24 style dates for display chrome.
	CompactLayout = "1/2/06"
	// VerboseLayout renders Jun 15, 2024 style dates for the editable
	// per-rule date text.
	VerboseLayout = "Jan 02, 2006"
)

// FormatCompact renders t in the compact numeric form.
func FormatCompact(t time.Time) string {
	return t.Format(CompactLayout)
}

// FormatVerbose renders t in the verbose form used by Rule.Date.
func FormatVerbose(t time.Time) string {
	return t.Format(VerboseLayout)
}

// ParseVerbose parses rule date text. Whitespace is trimmed first since the
// text is user-editable.
func ParseVerbose(s string) (time.Time, error) {
	return time.Parse(VerboseLayout, strings.TrimSpace(s))
}

// SameDay reports calendar-day equality, ignoring time of day.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
