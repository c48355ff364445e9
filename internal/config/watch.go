package config

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// ReadSettingsFile parses a YAML settings file into raw overrides.
// Unknown keys are kept; MergeSettings ignores them.
func ReadSettingsFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.ReadSettingsFile: %w", err)
	}
	overrides := make(map[string]any)
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("config.ReadSettingsFile: parse: %w", err)
	}
	return overrides, nil
}

// WatchSettingsFile applies the settings file once, then again after every
// change, until ctx is cancelled. The parent directory is watched so that
// editors which replace the file on save are still picked up.
func WatchSettingsFile(ctx context.Context, path string, apply func(map[string]any) error) error {
	path = filepath.Clean(path)
	load := func() {
		overrides, err := ReadSettingsFile(path)
		if err != nil {
			log.Printf("config: settings file: %v", err)
			return
		}
		if err := apply(overrides); err != nil {
			log.Printf("config: apply settings file: %v", err)
		}
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config.WatchSettingsFile: %w", err)
	}
	defer w.Close()
	if err := w.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("config.WatchSettingsFile: watch %s: %w", filepath.Dir(path), err)
	}

	load()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != path {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				load()
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Printf("config: settings watcher: %v", err)
		}
	}
}
