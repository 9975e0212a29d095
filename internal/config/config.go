/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Database backend selection.
type DatabaseBackend string

const (
	DatabasePostgres DatabaseBackend = "postgres"
	DatabaseMySQL    DatabaseBackend = "mysql"
	DatabaseSQLite   DatabaseBackend = "sqlite"
)

// Config covers process level configuration read from environment variables.
type Config struct {
	Environment string
	HTTPBind    string
	HTTPPort    int
	DBBackend   DatabaseBackend
	DBDSN       string

	// Redis cache configuration
	CacheEnabled  bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Matching and limiting policy
	MatchCaseInsensitive   bool
	LimitPassNullDurations bool

	// Spotify export configuration
	ExportEnabled       bool
	SpotifyClientID     string
	SpotifyClientSecret string
	SpotifyRefreshToken string
	SpotifyUserID       string
}

// Load reads environment variables, applies defaults, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Environment: getEnv("CANCION_ENV", "development"),
		HTTPBind:    getEnv("CANCION_HTTP_BIND", "0.0.0.0"),
		HTTPPort:    getEnvInt("CANCION_HTTP_PORT", 8080),
		DBBackend:   DatabaseBackend(getEnv("CANCION_DB_BACKEND", string(DatabaseSQLite))),
		DBDSN:       getEnv("CANCION_DB_DSN", ""),

		CacheEnabled:  getEnvBool("CANCION_CACHE_ENABLED", false),
		RedisAddr:     getEnv("CANCION_REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("CANCION_REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("CANCION_REDIS_DB", 0),

		MatchCaseInsensitive:   getEnvBool("CANCION_MATCH_CASE_INSENSITIVE", false),
		LimitPassNullDurations: getEnvBool("CANCION_LIMIT_PASS_NULL_DURATIONS", false),

		ExportEnabled:       getEnvBool("CANCION_EXPORT_ENABLED", false),
		SpotifyClientID:     getEnv("CANCION_SPOTIFY_CLIENT_ID", ""),
		SpotifyClientSecret: getEnv("CANCION_SPOTIFY_CLIENT_SECRET", ""),
		SpotifyRefreshToken: getEnv("CANCION_SPOTIFY_REFRESH_TOKEN", ""),
		SpotifyUserID:       getEnv("CANCION_SPOTIFY_USER_ID", ""),
	}

	if cfg.DBBackend != DatabasePostgres && cfg.DBBackend != DatabaseMySQL && cfg.DBBackend != DatabaseSQLite {
		return nil, fmt.Errorf("unsupported database backend %q", cfg.DBBackend)
	}

	if cfg.DBDSN == "" {
		if cfg.DBBackend != DatabaseSQLite {
			return nil, fmt.Errorf("CANCION_DB_DSN must be provided for backend %q", cfg.DBBackend)
		}
		cfg.DBDSN = "cancion.db"
	}

	if cfg.ExportEnabled {
		missing := []string{}
		if cfg.SpotifyClientID == "" {
			missing = append(missing, "CANCION_SPOTIFY_CLIENT_ID")
		}
		if cfg.SpotifyClientSecret == "" {
			missing = append(missing, "CANCION_SPOTIFY_CLIENT_SECRET")
		}
		if cfg.SpotifyRefreshToken == "" {
			missing = append(missing, "CANCION_SPOTIFY_REFRESH_TOKEN")
		}
		if cfg.SpotifyUserID == "" {
			missing = append(missing, "CANCION_SPOTIFY_USER_ID")
		}
		if len(missing) > 0 {
			return nil, fmt.Errorf("export enabled but %s not set", strings.Join(missing, ", "))
		}
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if val := os.Getenv(key); val != "" {
		val = strings.ToLower(strings.TrimSpace(val))
		if val == "true" || val == "1" || val == "yes" {
			return true
		}
		if val == "false" || val == "0" || val == "no" {
			return false
		}
	}
	return def
}
