/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package version holds the build version.
package version

// Version is the current version of Cancion.
// This is set at build time via ldflags:
//
//	-X github.com/friendsincode/cancion/internal/version.Version=X.Y.Z
var Version = "0.3.0"
