package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// source resolves a setting by trying each key in the environment first,
// then in the optional YAML file. The first key is the canonical name, the
// rest are accepted fallbacks.
type source struct {
	path    string
	file    map[string]string
	environ func(string) (string, bool)
}

func newSource(path string) *source {
	s := &source{path: path, environ: os.LookupEnv}
	if path == "" {
		return s
	}

	file, err := readFile(path)
	if err != nil {
		panic(fmt.Sprintf("❌ FATAL: cannot read CONFIG_FILE %s: %v", path, err))
	}
	s.file = file
	return s
}

// readFile loads a flat YAML mapping of KEY: value. Keys are matched
// case-insensitively against the environment names.
func readFile(path string) (map[string]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var doc map[string]interface{}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}

	out := make(map[string]string, len(doc))
	for k, v := range doc {
		switch val := v.(type) {
		case nil:
			out[strings.ToUpper(k)] = ""
		case []interface{}:
			parts := make([]string, 0, len(val))
			for _, p := range val {
				parts = append(parts, fmt.Sprint(p))
			}
			out[strings.ToUpper(k)] = strings.Join(parts, ",")
		case map[string]interface{}:
			return nil, fmt.Errorf("key %s: nested mappings are not supported", k)
		default:
			out[strings.ToUpper(k)] = fmt.Sprint(val)
		}
	}
	return out, nil
}

// lookup returns the first non-empty value for keys, env before file.
func (s *source) lookup(keys ...string) (string, bool) {
	for _, k := range keys {
		if v, ok := s.environ(k); ok && v != "" {
			return v, true
		}
	}
	for _, k := range keys {
		if v, ok := s.file[k]; ok && v != "" {
			return v, true
		}
	}
	return "", false
}

// lookupRaw is like lookup but an explicitly empty value counts as set.
func (s *source) lookupRaw(keys ...string) (string, bool) {
	for _, k := range keys {
		if v, ok := s.environ(k); ok {
			return v, true
		}
	}
	for _, k := range keys {
		if v, ok := s.file[k]; ok {
			return v, true
		}
	}
	return "", false
}

// helpers
func (s *source) getenv(def string, keys ...string) string {
	if v, ok := s.lookup(keys...); ok {
		return v
	}
	return def
}

func (s *source) getenvAllowEmpty(def string, keys ...string) string {
	if v, ok := s.lookupRaw(keys...); ok {
		return v
	}
	return def
}

func (s *source) requireEnv(keys ...string) string {
	v, ok := s.lookup(keys...)
	if !ok {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", keys[0]))
	}
	return v
}

func (s *source) requireEnvInt64(keys ...string) int64 {
	v, ok := s.lookup(keys...)
	if !ok {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", keys[0]))
	}
	i, err := parseInt64(v)
	if err != nil {
		panic(fmt.Sprintf("❌ FATAL: Invalid integer value for %s: %s", keys[0], v))
	}
	return i
}

func (s *source) getenvInt(def int, keys ...string) int {
	if v, ok := s.lookup(keys...); ok {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func (s *source) getenvFloat(def float64, keys ...string) float64 {
	if v, ok := s.lookup(keys...); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func (s *source) mustBool(def bool, keys ...string) bool {
	if v, ok := s.lookup(keys...); ok {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func (s *source) mustDuration(def time.Duration, keys ...string) time.Duration {
	if v, ok := s.lookup(keys...); ok {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
