package config

import (
	"fmt"
	"strings"
)

// Validate checks the config for:
//   - Required fields
//   - Known log level and format
//   - Duplicate singleton (tag, singleton) pairs and duplicate default tags
//   - Non-negative limits
func Validate(cfg *Config) error {
	if cfg.Version == "" {
		return fmt.Errorf("config: version is required")
	}
	var errs []string

	switch strings.ToLower(cfg.Log.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("log.level %q is not one of debug, info, warn, error", cfg.Log.Level))
	}
	switch cfg.Log.Format {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Sprintf("log.format %q is not one of text, json", cfg.Log.Format))
	}
	if cfg.Server.QueueDepth < 0 {
		errs = append(errs, "server.queue_depth must not be negative")
	}
	if cfg.Server.OpTimeoutMs < 0 {
		errs = append(errs, "server.op_timeout_ms must not be negative")
	}
	if cfg.Scene.Undo.MaxDepth < 0 {
		errs = append(errs, "scene.undo.max_depth must not be negative")
	}

	seen := make(map[string]int) // tag/singleton → index
	for i, s := range cfg.Scene.Singletons {
		loc := fmt.Sprintf("scene.singletons[%d]", i)
		if s.Tag == "" {
			errs = append(errs, loc+": tag is required")
			continue
		}
		if s.Singleton == "" {
			errs = append(errs, loc+": singleton is required")
			continue
		}
		key := s.Tag + "/" + s.Singleton
		if prev, ok := seen[key]; ok {
			errs = append(errs, fmt.Sprintf("duplicate singleton %q (first seen at scene.singletons[%d], again at %s)", key, prev, loc))
		} else {
			seen[key] = i
		}
	}

	defaults := make(map[string]int)
	for i, d := range cfg.Scene.Defaults {
		loc := fmt.Sprintf("scene.defaults[%d]", i)
		if d.Tag == "" {
			errs = append(errs, loc+": tag is required")
			continue
		}
		if prev, ok := defaults[d.Tag]; ok {
			errs = append(errs, fmt.Sprintf("duplicate default %q (first seen at scene.defaults[%d], again at %s)", d.Tag, prev, loc))
		} else {
			defaults[d.Tag] = i
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
