// Package config loads the runtime configuration: a YAML file plus
// POSTPILOT_* environment overrides. Environment wins over file, file
// wins over defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"
)

type Config struct {
	State     StateConfig     `yaml:"state"`
	Vault     PathConfig      `yaml:"vault"`
	Drafts    PathConfig      `yaml:"drafts"`
	Predictor PredictorConfig `yaml:"predictor"`
	Publisher PublisherConfig `yaml:"publisher"`

	// ModelTier is the default Brain tier for new threads.
	ModelTier string `yaml:"modelTier"`

	// FollowerCount seeds scheduling predictions when the caller does
	// not supply one.
	FollowerCount int `yaml:"followerCount"`
}

type StateConfig struct {
	Backend    string `yaml:"backend"`
	SQLitePath string `yaml:"sqlitePath"`
	RedisAddr  string `yaml:"redisAddr"`
}

type PathConfig struct {
	SQLitePath string `yaml:"sqlitePath"`
}

type PredictorConfig struct {
	// URL of the remote scoring service; empty selects the local
	// heuristic model.
	URL string `yaml:"url"`
}

type PublisherConfig struct {
	// WebhookURL of the outbound publish hook; empty selects the
	// simulated publisher.
	WebhookURL string `yaml:"webhookUrl"`
	AuthToken  string `yaml:"authToken"`
}

func Default() Config {
	return Config{
		State: StateConfig{
			Backend:    "sqlite",
			SQLitePath: "./.postpilot/state.db",
		},
		Vault:         PathConfig{SQLitePath: "./.postpilot/vault.db"},
		Drafts:        PathConfig{SQLitePath: "./.postpilot/drafts.db"},
		ModelTier:     "fast",
		FollowerCount: 50000,
	}
}

// Load reads the YAML file at path, layered over the defaults. An empty
// path or a missing file yields the defaults; a malformed file is an
// error. Environment overrides are applied last.
func Load(path string) (Config, error) {
	cfg := Default()

	path = strings.TrimSpace(path)
	if path != "" {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to resolve config path: %w", err)
		}
		data, err := os.ReadFile(absPath)
		switch {
		case os.IsNotExist(err):
			// Defaults apply.
		case err != nil:
			return Config{}, fmt.Errorf("failed to read config file %q: %w", absPath, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("failed to decode config file %q: %w", absPath, err)
			}
		}
	}

	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.State.Backend, "POSTPILOT_STATE_BACKEND")
	setString(&c.State.SQLitePath, "POSTPILOT_SQLITE_PATH")
	setString(&c.State.RedisAddr, "POSTPILOT_REDIS_ADDR")
	setString(&c.Vault.SQLitePath, "POSTPILOT_VAULT_PATH")
	setString(&c.Drafts.SQLitePath, "POSTPILOT_DRAFTS_PATH")
	setString(&c.Predictor.URL, "POSTPILOT_PREDICTOR_URL")
	setString(&c.Publisher.WebhookURL, "POSTPILOT_PUBLISHER_URL")
	setString(&c.Publisher.AuthToken, "POSTPILOT_PUBLISHER_TOKEN")
	setString(&c.ModelTier, "POSTPILOT_MODEL_TIER")
	setInt(&c.FollowerCount, "POSTPILOT_FOLLOWER_COUNT")
}

func (c *Config) validate() error {
	switch c.State.Backend {
	case "sqlite", "redis":
	default:
		return fmt.Errorf("unknown state backend %q (use sqlite or redis)", c.State.Backend)
	}
	switch c.ModelTier {
	case "fast", "creative":
	default:
		return fmt.Errorf("unknown model tier %q (use fast or creative)", c.ModelTier)
	}
	return nil
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return
	}
	if n, err := strconv.Atoi(v); err == nil {
		*dst = n
	}
}
