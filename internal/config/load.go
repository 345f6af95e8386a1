package config

import (
	"errors"
	"fmt"
	"os"
)

// Loaded is the resolved config path, the effective values, and any non-fatal warnings.
type Loaded struct {
	Path     string
	Config   Config
	Warnings []Warning
	Exists   bool
}

// Load resolves, reads, parses, and validates the runtime configuration.
// A missing file yields the validated defaults plus a warning.
func Load(explicitPath string) (Loaded, error) {
	path := ResolvePath(explicitPath)
	content, err := os.ReadFile(path)
	exists := err == nil
	switch {
	case errors.Is(err, os.ErrNotExist):
		content = nil
	case err != nil:
		return Loaded{}, fmt.Errorf("read config %q: %w", path, err)
	}

	cfg, warnings, err := Parse(string(content), Default())
	if err != nil {
		return Loaded{}, fmt.Errorf("parse config %q: %w", path, err)
	}
	if !exists {
		warnings = append([]Warning{{
			Message: fmt.Sprintf("config file %q not found; using defaults", path),
		}}, warnings...)
	}

	return Loaded{Path: path, Config: cfg, Warnings: warnings, Exists: exists}, nil
}
