//go:build !darwin

package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
)

// xdgPath joins name under $<envVar>/clawgram, falling back to
// ~/<fallback>/clawgram when the variable is unset.
func xdgPath(envVar, fallback, name string) string {
	dir := os.Getenv(envVar)
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join("clawgram-data", name)
		}
		dir = filepath.Join(home, fallback)
	}
	return filepath.Join(dir, "clawgram", name)
}

func defaultDataDir() string {
	return xdgPath("XDG_DATA_HOME", filepath.Join(".local", "share"), "")
}

func secretsFilePath() string {
	return xdgPath("XDG_DATA_HOME", filepath.Join(".local", "share"), "secrets.json")
}

func secretStoreHint() string {
	return secretsFilePath()
}

// jsonFileBackend stores config as a flat JSON object in an XDG-compatible
// path. This is the default for Linux and other non-macOS platforms.
type jsonFileBackend struct {
	path string
	data map[string]any
}

func newPlatformBackend() ConfigBackend {
	return openJSONBackend(xdgPath("XDG_CONFIG_HOME", ".config", "config.json"))
}

func openJSONBackend(path string) *jsonFileBackend {
	b := &jsonFileBackend{path: path, data: make(map[string]any)}
	raw, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "[WARN] could not read config file %s: %v. Using default values.\n", path, err)
		}
		return b
	}
	if err := json.Unmarshal(raw, &b.data); err != nil {
		fmt.Fprintf(os.Stderr, "[WARN] could not parse config file %s: %v. Using default values.\n", path, err)
	}
	return b
}

func (b *jsonFileBackend) save() error {
	if err := os.MkdirAll(filepath.Dir(b.path), 0o700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	raw, err := json.MarshalIndent(b.data, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(b.path, raw, 0o600)
}

func (b *jsonFileBackend) GetString(key string) (string, bool, error) {
	v, ok := b.data[key]
	if !ok {
		return "", false, nil
	}
	if s, ok := v.(string); ok {
		return s, true, nil
	}
	return fmt.Sprintf("%v", v), true, nil
}

func (b *jsonFileBackend) GetInt(key string) (int, bool, error) {
	v, ok := b.data[key]
	if !ok {
		return 0, false, nil
	}
	switch val := v.(type) {
	case float64:
		if val < math.MinInt || val > math.MaxInt || val != math.Trunc(val) {
			return 0, true, fmt.Errorf("value %v for %s is not a valid integer or is out of range", val, key)
		}
		return int(val), true, nil
	case string:
		i, err := strconv.Atoi(val)
		if err != nil {
			return 0, true, fmt.Errorf("invalid integer for %s: %w", key, err)
		}
		return i, true, nil
	default:
		return 0, true, fmt.Errorf("invalid type for %s", key)
	}
}

func (b *jsonFileBackend) SetString(key, val string) error {
	b.data[key] = val
	return b.save()
}

func (b *jsonFileBackend) SetInt(key string, val int) error {
	b.data[key] = val
	return b.save()
}

func (b *jsonFileBackend) Delete(key string) error {
	delete(b.data, key)
	return b.save()
}
