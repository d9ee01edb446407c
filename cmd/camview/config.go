package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gogpu/camview"
	"github.com/pelletier/go-toml/v2"
)

// Config is the demo configuration file.
//
//	[filter]
//	brightness = 0.1
//	contrast = 1.2
//	saturation = 1.0
//
//	[render]
//	width = 1280
//	height = 720
//	fps = 30
//	tiers = ["modern", "legacy"]
//	software = false
//	log_level = "info"
type Config struct {
	Filter camview.ParameterUpdate `toml:"filter"`
	Render RenderConfig            `toml:"render"`
}

// RenderConfig holds the settings read once at startup.
type RenderConfig struct {
	Width       int      `toml:"width"`
	Height      int      `toml:"height"`
	FPS         float64  `toml:"fps"`
	RefreshRate float64  `toml:"refresh_rate"`
	Tiers       []string `toml:"tiers"`
	Software    bool     `toml:"software"`
	LogLevel    string   `toml:"log_level"`
}

func defaultConfig() Config {
	return Config{
		Render: RenderConfig{
			Width:    1280,
			Height:   720,
			FPS:      30,
			LogLevel: "info",
		},
	}
}

// loadConfig reads path over the defaults. A missing file is not an error.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// tiers converts tier names to camview tiers.
func (c RenderConfig) tiers() ([]camview.Tier, error) {
	var out []camview.Tier
	for _, name := range c.Tiers {
		switch strings.ToLower(name) {
		case "modern":
			out = append(out, camview.TierModern)
		case "legacy":
			out = append(out, camview.TierLegacy)
		default:
			return nil, fmt.Errorf("unknown tier %q", name)
		}
	}
	return out, nil
}

func (c RenderConfig) level() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// watchConfig calls apply with the filter table each time path changes,
// until ctx is done. The directory is watched so that editors replacing
// the file are noticed.
func watchConfig(ctx context.Context, path string, apply func(camview.ParameterUpdate)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()
		var (
			pending <-chan time.Time
			name    = filepath.Clean(path)
		)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != name {
					continue
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
					// Editors often write in several steps.
					pending = time.After(100 * time.Millisecond)
				}
			case <-pending:
				pending = nil
				cfg, err := loadConfig(path)
				if err != nil {
					slog.Warn("config reload failed", "path", path, "err", err)
					continue
				}
				apply(cfg.Filter)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Warn("config watcher", "err", err)
			}
		}
	}()
	return nil
}
