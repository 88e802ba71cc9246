// Package xdg provides helpers to resolve XDG Base Directory paths for neardeal.
// The config directory holds non-secret settings; the data directory holds the
// sqlite credential database and the keyring file backend when those are selected.
//
// The package handles fallback to traditional locations when XDG environment
// variables are not set and creates directories with private permissions.
package xdg

import (
	"os"
	"path/filepath"
)

const appDir = "neardeal"

// ConfigDir returns the XDG config directory for neardeal.
// The directory is created with private permissions (0700) if missing.
// It falls back to ~/.config/neardeal when XDG_CONFIG_HOME is unset.
func ConfigDir() (string, error) {
	return resolve("XDG_CONFIG_HOME", ".config")
}

// DataDir returns the XDG data directory for neardeal.
// It falls back to ~/.local/share/neardeal when XDG_DATA_HOME is unset.
func DataDir() (string, error) {
	return resolve("XDG_DATA_HOME", filepath.Join(".local", "share"))
}

func resolve(env, homeRel string) (string, error) {
	base := os.Getenv(env)
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, homeRel)
	}
	dir := filepath.Join(base, appDir)
	if err := os.MkdirAll(dir, 0o700); err != nil { // private dir
		return "", err
	}
	return dir, nil
}
