package connection

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// LoadInfo reads a connection profile. The format follows the file
// extension: .yaml/.yml, .toml or .json.
func LoadInfo(path string) (Info, error) {
	var info Info

	// #nosec G304 - profile path comes from configuration
	data, err := os.ReadFile(path)
	if err != nil {
		return info, fmt.Errorf("failed to read connection profile: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &info)
	case ".toml":
		err = toml.Unmarshal(data, &info)
	case ".json":
		err = json.Unmarshal(data, &info)
	default:
		return info, fmt.Errorf("%w: unsupported profile format %q", ErrInvalidInfo, ext)
	}
	if err != nil {
		return info, fmt.Errorf("failed to parse connection profile %s: %w", path, err)
	}

	if info.Type == "" {
		return info, fmt.Errorf("%w: profile %s has no type", ErrInvalidInfo, path)
	}
	return info, nil
}

// SaveInfo writes a connection profile in the format given by the extension.
func SaveInfo(path string, info Info) error {
	var (
		data []byte
		err  error
	)

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(info)
	case ".toml":
		var b strings.Builder
		err = toml.NewEncoder(&b).Encode(info)
		data = []byte(b.String())
	case ".json":
		data, err = json.MarshalIndent(info, "", "  ")
	default:
		return fmt.Errorf("%w: unsupported profile format %q", ErrInvalidInfo, ext)
	}
	if err != nil {
		return fmt.Errorf("failed to encode connection profile: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create profile directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write connection profile: %w", err)
	}
	return nil
}
