// Package config loads device configuration from an optional YAML file with
// environment variable overrides for the store connection.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mcdev12/neuroswipe/internal/game"
)

// Config is everything a host or player device needs to come up.
type Config struct {
	// StoreURL is the record store base URL, e.g. http://localhost:8090.
	StoreURL string `yaml:"store_url"`
	// StoreAPIKey is sent in the api_key header on every store request.
	StoreAPIKey string `yaml:"store_api_key"`
	// JoinBaseURL is the public base used when printing the player join link.
	JoinBaseURL string `yaml:"join_base_url"`

	Game game.Settings `yaml:"game"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		StoreURL:    "http://localhost:8090",
		JoinBaseURL: "http://localhost:8090",
		Game:        game.DefaultSettings(),
	}
}

// Load reads the YAML file at path (missing file is fine, defaults apply)
// and then applies STORE_URL / STORE_API_KEY environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	if v := os.Getenv("STORE_URL"); v != "" {
		cfg.StoreURL = v
	}
	if v := os.Getenv("STORE_API_KEY"); v != "" {
		cfg.StoreAPIKey = v
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.StoreURL == "" {
		return fmt.Errorf("store_url must be set")
	}
	if c.Game.TotalQuestions <= 0 {
		return fmt.Errorf("game.total_questions must be positive, got %d", c.Game.TotalQuestions)
	}
	if c.Game.TimerSeconds <= 0 {
		return fmt.Errorf("game.timer_seconds must be positive, got %d", c.Game.TimerSeconds)
	}
	switch c.Game.Difficulty {
	case "":
		return fmt.Errorf("game.difficulty must be set")
	default:
		if !c.Game.Difficulty.Valid() {
			return fmt.Errorf("unknown difficulty %q", c.Game.Difficulty)
		}
	}
	return nil
}
