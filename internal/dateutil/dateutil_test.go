/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package dateutil

import (
	"testing"
	"time"
)

func TestFormatLayouts(t *testing.T) {
	ts := time.Date(2024, time.June, 5, 14, 30, 0, 0, time.UTC)

	if got := FormatCompact(ts); got != "6/5/24" {
		t.Errorf("FormatCompact = %q, want %q", got, "6/5/24")
	}
	if got := FormatVerbose(ts); got != "Jun 05, 2024" {
		t.Errorf("FormatVerbose = %q, want %q", got, "Jun 05, 2024")
	}
}

func TestParseVerboseRoundTrip(t *testing.T) {
	ts := time.Date(2023, time.November, 28, 0, 0, 0, 0, time.UTC)

	parsed, err := ParseVerbose(FormatVerbose(ts))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !parsed.Equal(ts) {
		t.Fatalf("round trip mismatch: %v != %v", parsed, ts)
	}
}

func TestParseVerboseTrimsWhitespace(t *testing.T) {
	if _, err := ParseVerbose("  Jun 05, 2024 "); err != nil {
		t.Fatalf("expected whitespace-padded input to parse: %v", err)
	}
}

func TestParseVerboseRejectsCompact(t *testing.T) {
	if _, err := ParseVerbose("6/5/24"); err == nil {
		t.Fatal("compact-format input should not parse as verbose")
	}
}

func TestSameDay(t *testing.T) {
	morning := time.Date(2024, time.March, 10, 8, 0, 0, 0, time.UTC)
	evening := time.Date(2024, time.March, 10, 23, 59, 59, 0, time.UTC)
	nextDay := time.Date(2024, time.March, 11, 0, 0, 0, 0, time.UTC)

	if !SameDay(morning, evening) {
		t.Error("same calendar day should match regardless of time")
	}
	if SameDay(evening, nextDay) {
		t.Error("adjacent days should not match")
	}
}
