package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mcdev12/neuroswipe/internal/models"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.StoreURL != "http://localhost:8090" {
		t.Errorf("store url = %q", cfg.StoreURL)
	}
	if cfg.Game.TotalQuestions != 15 || cfg.Game.Difficulty != models.DifficultyMixed {
		t.Errorf("game defaults = %+v", cfg.Game)
	}
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "neuroswipe.yaml")
	content := []byte(`
store_url: http://file.local:8090
store_api_key: from-file
game:
  total_questions: 5
  difficulty: easy
  timer_seconds: 20
  sound_enabled: false
`)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("STORE_URL", "http://env.local:8090")
	t.Setenv("STORE_API_KEY", "")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.StoreURL != "http://env.local:8090" {
		t.Errorf("env override lost: %q", cfg.StoreURL)
	}
	if cfg.StoreAPIKey != "from-file" {
		t.Errorf("api key = %q, want value from file", cfg.StoreAPIKey)
	}
	if cfg.Game.TotalQuestions != 5 || cfg.Game.Difficulty != models.DifficultyEasy || cfg.Game.TimerSeconds != 20 {
		t.Errorf("game settings = %+v", cfg.Game)
	}
}

func TestLoadRejectsBadSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("game:\n  difficulty: impossible\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Error("Load() accepted an unknown difficulty")
	}
}
