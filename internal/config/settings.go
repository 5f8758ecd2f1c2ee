package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DefaultPath = "/etc/libreport/plugins/ureport.yaml"
	EnvPrefix   = "uReport_"
)

// Settings is a flat key/value view over a settings file. Lookups consult
// the uReport_<Key> environment variable first; a variable set to the empty
// string still overrides the file.
type Settings struct {
	values    map[string]string
	lookupEnv func(string) (string, bool)
}

func NewSettings(values map[string]string) Settings {
	if values == nil {
		values = map[string]string{}
	}
	return Settings{values: values, lookupEnv: os.LookupEnv}
}

// WithEnv returns a copy that reads overrides through lookupEnv. Nil
// disables overrides.
func (s Settings) WithEnv(lookupEnv func(string) (string, bool)) Settings {
	s.lookupEnv = lookupEnv
	return s
}

// LoadFile reads a YAML settings file. A missing file yields empty settings
// and fs.ErrNotExist so callers can decide whether to care.
func LoadFile(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return NewSettings(nil), err
		}
		return NewSettings(nil), fmt.Errorf("read %s: %w", path, err)
	}
	values, err := parseSettings(data)
	if err != nil {
		return NewSettings(nil), fmt.Errorf("parse %s: %w", path, err)
	}
	return NewSettings(values), nil
}

func parseSettings(data []byte) (map[string]string, error) {
	raw := map[string]interface{}{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	values := map[string]string{}
	for key, value := range raw {
		switch v := value.(type) {
		case nil:
			values[key] = ""
		case string:
			values[key] = v
		case []interface{}:
			items := make([]string, 0, len(v))
			for _, item := range v {
				items = append(items, fmt.Sprint(item))
			}
			values[key] = strings.Join(items, ",")
		case map[string]interface{}:
			return nil, fmt.Errorf("key %s: nested sections are not supported", key)
		default:
			values[key] = fmt.Sprint(v)
		}
	}
	return values, nil
}

// Lookup returns the value for key and whether it was set anywhere.
func (s Settings) Lookup(key string) (string, bool) {
	if s.lookupEnv != nil {
		if value, ok := s.lookupEnv(EnvPrefix + key); ok {
			return value, true
		}
	}
	value, ok := s.values[key]
	return value, ok
}

func (s Settings) Bool(key string, fallback bool) bool {
	value, ok := s.Lookup(key)
	if !ok {
		return fallback
	}
	return ParseBool(value)
}

func ParseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "yes", "true", "on":
		return true
	}
	return false
}

// ParseList splits a comma-separated list, dropping empty items.
func ParseList(value string) []string {
	out := []string{}
	for _, item := range strings.Split(value, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
