package config

import (
	"log"
	"os"
	"path/filepath"
	"strings"
)

// Package config provides file system locations for the crop engine's
// persisted state (settings, cache database, logs).

// GetPath returns the path to the user's config directory
func GetPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Fatalf("Error getting user home directory: %v", err)
	}
	return filepath.Join(homeDir, "."+strings.ToLower(AppName))
}

// GetCacheDBPath returns the path to the crop decision cache database.
func GetCacheDBPath() string {
	return filepath.Join(GetPath(), CacheDBFile)
}

// GetSettingsPath returns the path to the persisted crop settings file.
func GetSettingsPath() string {
	return filepath.Join(GetPath(), SettingsFile)
}

// EnsurePath creates the config directory if it does not exist.
func EnsurePath() error {
	return os.MkdirAll(GetPath(), 0700)
}
