// Package platform provides OS-aware path helpers.
// All code that needs to behave differently per OS must use this package.
package platform

import (
	"os"
	"path/filepath"
	"runtime"
)

// DefaultWorkDir returns the OS-appropriate data directory for ecowatch.
//
//	Linux:   ~/.local/share/ecowatch
//	macOS:   ~/Library/Application Support/ecowatch
//	Windows: %APPDATA%\ecowatch
//
// If WORK_DIR env var is set, that takes priority (used in Docker).
func DefaultWorkDir() string {
	if env := os.Getenv("WORK_DIR"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	switch runtime.GOOS {
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		return filepath.Join(appData, "ecowatch")
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "ecowatch")
	default:
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			return filepath.Join(xdg, "ecowatch")
		}
		return filepath.Join(home, ".local", "share", "ecowatch")
	}
}

// EnsureDir creates a directory and all parents if they don't exist.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0o755)
}
