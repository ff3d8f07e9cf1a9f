// Package secrets assembles the per-run secret map from the process environment
// and an optional JSON blob carried in a single variable.
package secrets

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// DefaultBlobVar is the environment variable holding the bulk JSON secrets object.
const DefaultBlobVar = "SECRETS_JSON"

// Store is an immutable key/value view over the run's secrets.
type Store struct {
	values map[string]string
}

// New returns a store over a copy of values.
func New(values map[string]string) *Store {
	copied := make(map[string]string, len(values))
	for k, v := range values {
		copied[k] = v
	}
	return &Store{values: copied}
}

// FromEnvironment builds a store from os.Environ and the blob in blobVar.
func FromEnvironment(blobVar string, logger zerolog.Logger) *Store {
	return Load(os.Environ(), blobVar, logger)
}

// Load merges the JSON object found in blobVar with the KEY=VALUE pairs in environ.
// Environment pairs are applied last and win on conflict; empty values are ignored.
// A blob that does not parse is logged and skipped.
func Load(environ []string, blobVar string, logger zerolog.Logger) *Store {
	if blobVar == "" {
		blobVar = DefaultBlobVar
	}

	env := make(map[string]string, len(environ))
	for _, pair := range environ {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			continue
		}
		env[key] = value
	}

	values := map[string]string{}
	if blob := env[blobVar]; strings.TrimSpace(blob) != "" {
		parsed, err := parseBlob(blob, logger)
		if err != nil {
			logger.Warn().Err(err).Str("variable", blobVar).Msg("could not parse secrets blob")
		} else {
			for k, v := range parsed {
				values[k] = v
			}
		}
	}

	for k, v := range env {
		if v == "" {
			continue
		}
		values[k] = v
	}

	return &Store{values: values}
}

func parseBlob(blob string, logger zerolog.Logger) (map[string]string, error) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(blob), &raw); err != nil {
		return nil, fmt.Errorf("decode secrets blob: %w", err)
	}

	out := make(map[string]string, len(raw))
	for key, value := range raw {
		switch typed := value.(type) {
		case string:
			out[key] = typed
		case float64:
			out[key] = strconv.FormatFloat(typed, 'f', -1, 64)
		case bool:
			out[key] = strconv.FormatBool(typed)
		case nil:
		default:
			logger.Warn().Str("key", key).Msg("ignoring non-scalar secret value")
		}
	}
	return out, nil
}

// Get returns the value stored under key exactly.
func (s *Store) Get(key string) (string, bool) {
	if s == nil {
		return "", false
	}
	value, ok := s.values[key]
	if !ok || value == "" {
		return "", false
	}
	return value, true
}

// Lookup tries key as given, then its upper-cased form.
func (s *Store) Lookup(key string) (string, bool) {
	if value, ok := s.Get(key); ok {
		return value, true
	}
	upper := strings.ToUpper(key)
	if upper == key {
		return "", false
	}
	return s.Get(upper)
}

// Len reports how many secrets are available.
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.values)
}
