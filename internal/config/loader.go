package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix     = "LEAGUE_"
	envConfigFile = "LEAGUE_CONFIG"
)

// listKeys hold comma separated values when they come from the environment.
var listKeys = map[string]struct{}{ //nolint:gochecknoglobals // static lookup
	"competitors": {},
}

// Load builds a Config by layering defaults, optional file, env vars and
// explicit overrides (usually CLI flags the user actually set).
// Order of precedence (low -> high):
//  1. defaults (New(ctx))
//  2. file (YAML) if LEAGUE_CONFIG is set
//  3. env (prefix LEAGUE_)
//  4. overrides
func Load(ctx context.Context, overrides map[string]any) (*Config, error) {
	base := New(ctx)

	k := koanf.New(".")

	if path := os.Getenv(envConfigFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// LEAGUE_NUM_MATCHES -> num_matches; underscores match the koanf tags.
	envProvider := env.ProviderWithValue(envPrefix, ".", func(key, value string) (string, interface{}) {
		key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
		if key == "config" {
			return "", nil
		}
		if _, ok := listKeys[key]; ok {
			return key, SplitList(value)
		}
		return key, value
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	if len(overrides) > 0 {
		if err := k.Load(confmap.Provider(overrides, "."), nil); err != nil {
			return nil, fmt.Errorf("%w: overrides: %w", ErrLoadConfig, err)
		}
	}

	cfg := *base
	if k.Exists("competitors") {
		// replace rather than merge into the default roster
		cfg.Competitors = nil
	}
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(ctx); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SplitList splits a comma separated value, trimming blanks and dropping
// empty entries.
func SplitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
