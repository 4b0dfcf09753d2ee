// Package game holds the session state machine and the scoring engine. All
// transitions are pure: they take the current session value and return the
// next one plus the store mutations that realize it. Applying the mutations
// (and tolerating partial failure) is the caller's job.
package game

import (
	"github.com/mcdev12/neuroswipe/internal/models"
)

// Settings is the run configuration, fixed at session creation.
type Settings struct {
	TotalQuestions int               `yaml:"total_questions"`
	Difficulty     models.Difficulty `yaml:"difficulty"`
	TimerSeconds   int               `yaml:"timer_seconds"`
	SoundEnabled   bool              `yaml:"sound_enabled"`
}

// DefaultSettings mirrors the host's default game setup.
func DefaultSettings() Settings {
	return Settings{
		TotalQuestions: 15,
		Difficulty:     models.DifficultyMixed,
		TimerSeconds:   30,
		SoundEnabled:   true,
	}
}

// PlayerMutation is a partial update of one player row.
type PlayerMutation struct {
	PlayerID string
	Patch    models.PlayerPatch
}

// Plan is the ordered set of store mutations a transition produces.
// Players are applied first; the session patch is applied only after the
// player writes are observably complete, so no device can see a new question
// while a stale answer is still set.
type Plan struct {
	Players       []PlayerMutation
	Session       *models.SessionPatch
	DeletePlayers []string
	DeleteSession bool
}

// BatchFailure is one player mutation that could not be applied.
type BatchFailure struct {
	PlayerID string
	Err      error
}

// BatchResult reports the outcome of applying a plan's player mutations.
// Vanished players land in Failed without aborting the rest of the batch.
type BatchResult struct {
	Applied []string
	Failed  []BatchFailure
}
