package settings

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	registry "utility-registry/internal/registry/domain"
)

// FileProvider reads registry settings from a YAML (or JSON) file.
type FileProvider struct {
	path string
}

// NewFileProvider constructs a provider; an empty path always yields defaults.
func NewFileProvider(path string) *FileProvider {
	return &FileProvider{path: path}
}

// Path is the settings file location.
func (p *FileProvider) Path() string {
	if p == nil {
		return ""
	}
	return p.path
}

// Load reads the file on every call so operator edits apply to the next run.
// A missing file yields defaults; a malformed file is an error.
func (p *FileProvider) Load(ctx context.Context) (registry.Settings, error) {
	_ = ctx
	if p == nil || p.path == "" {
		return registry.Settings{}, nil
	}
	data, err := os.ReadFile(p.path)
	if errors.Is(err, fs.ErrNotExist) {
		return registry.Settings{}, nil
	}
	if err != nil {
		return registry.Settings{}, fmt.Errorf("settings: read %s: %w", p.path, err)
	}
	return Parse(data)
}

// Parse decodes settings. JSON documents are accepted as YAML.
func Parse(data []byte) (registry.Settings, error) {
	var cfg registry.Settings
	if len(strings.TrimSpace(string(data))) == 0 {
		return cfg, nil
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return registry.Settings{}, fmt.Errorf("settings: decode: %w", err)
	}
	cfg.SavePath = strings.TrimSpace(cfg.SavePath)
	for i := range cfg.Signatures {
		cfg.Signatures[i].Position = strings.TrimSpace(cfg.Signatures[i].Position)
		cfg.Signatures[i].Name = strings.TrimSpace(cfg.Signatures[i].Name)
	}
	return cfg, nil
}
