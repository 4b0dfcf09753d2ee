package models

import (
	"time"
)

// SessionStatus defines the phase of a game session.
type SessionStatus string

const (
	StatusLobby     SessionStatus = "lobby"
	StatusPlaying   SessionStatus = "playing"
	StatusRevealing SessionStatus = "revealing"
	StatusFinished  SessionStatus = "finished"
)

// Difficulty selects which part of the question bank a run draws from.
type Difficulty string

const (
	DifficultyEasy  Difficulty = "easy"
	DifficultyMixed Difficulty = "mixed"
	DifficultyHard  Difficulty = "hard"
)

// Valid reports whether d is one of the known difficulty settings.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMixed, DifficultyHard:
		return true
	}
	return false
}

// GameSession is the shared session record. The host device is its single
// writer; player devices only read it.
type GameSession struct {
	ID                   string         `json:"id,omitempty"`
	SessionCode          string         `json:"session_code"`
	Status               SessionStatus  `json:"status"`
	QuestionIDs          []int          `json:"question_ids"`
	CurrentQuestionIndex int            `json:"current_question_index"`
	CurrentQuestionStart *time.Time     `json:"current_question_start,omitempty"`
	TotalQuestions       int            `json:"total_questions"`
	Difficulty           Difficulty     `json:"difficulty"`
	TimerSeconds         int            `json:"timer_seconds"`
	SoundEnabled         bool           `json:"sound_enabled"`
	Votes                map[string]int `json:"votes"`
}

// SessionPatch is a partial update of a GameSession record. Nil fields are
// left untouched by the store; set fields overwrite last-write-wins.
type SessionPatch struct {
	Status               *SessionStatus  `json:"status,omitempty"`
	QuestionIDs          *[]int          `json:"question_ids,omitempty"`
	CurrentQuestionIndex *int            `json:"current_question_index,omitempty"`
	CurrentQuestionStart *time.Time      `json:"current_question_start,omitempty"`
	Votes                *map[string]int `json:"votes,omitempty"`
}
