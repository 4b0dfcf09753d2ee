package game

import (
	"errors"
	"time"

	"github.com/mcdev12/neuroswipe/internal/models"
)

var (
	// ErrNoPlayers is returned when starting a round with an empty lobby.
	ErrNoPlayers = errors.New("at least one active player is required")
	// ErrWrongPhase is returned when a transition is attempted from a
	// status it is not defined for.
	ErrWrongPhase = errors.New("session is not in the required status")
)

// NewSession builds the create payload for a fresh session: status lobby,
// index 0, the sampled question set, and the frozen run configuration.
func NewSession(code string, questionIDs []int, cfg Settings) models.GameSession {
	return models.GameSession{
		SessionCode:          code,
		Status:               models.StatusLobby,
		QuestionIDs:          questionIDs,
		CurrentQuestionIndex: 0,
		TotalQuestions:       cfg.TotalQuestions,
		Difficulty:           cfg.Difficulty,
		TimerSeconds:         cfg.TimerSeconds,
		SoundEnabled:         cfg.SoundEnabled,
		Votes:                map[string]int{},
	}
}

// clearAnswers builds the per-player mutations that reset current_answer
// before a question becomes visible.
func clearAnswers(players []models.Player) []PlayerMutation {
	none := models.AnswerNone
	muts := make([]PlayerMutation, 0, len(players))
	for _, p := range players {
		muts = append(muts, PlayerMutation{
			PlayerID: p.ID,
			Patch:    models.PlayerPatch{CurrentAnswer: &none},
		})
	}
	return muts
}

func playingPatch(index int, now time.Time) *models.SessionPatch {
	status := models.StatusPlaying
	votes := map[string]int{}
	return &models.SessionPatch{
		Status:               &status,
		CurrentQuestionIndex: &index,
		CurrentQuestionStart: &now,
		Votes:                &votes,
	}
}

// Start transitions lobby -> playing on question 0. Answers are cleared
// first; the session patch must only be applied once those clears are
// observably complete.
func Start(s models.GameSession, players []models.Player, now time.Time) (models.GameSession, Plan, error) {
	if s.Status != models.StatusLobby {
		return s, Plan{}, ErrWrongPhase
	}
	if len(players) == 0 {
		return s, Plan{}, ErrNoPlayers
	}

	next := s
	next.Status = models.StatusPlaying
	next.CurrentQuestionIndex = 0
	next.CurrentQuestionStart = &now
	next.Votes = map[string]int{}

	return next, Plan{
		Players: clearAnswers(players),
		Session: playingPatch(0, now),
	}, nil
}

// Advance moves to the next question, or to finished when the run is
// exhausted. The index only ever increases.
func Advance(s models.GameSession, players []models.Player, now time.Time) (models.GameSession, Plan, error) {
	if s.Status != models.StatusPlaying && s.Status != models.StatusRevealing {
		return s, Plan{}, ErrWrongPhase
	}

	nextIndex := s.CurrentQuestionIndex + 1
	if nextIndex >= len(s.QuestionIDs) {
		next := s
		next.Status = models.StatusFinished
		status := models.StatusFinished
		return next, Plan{Session: &models.SessionPatch{Status: &status}}, nil
	}

	next := s
	next.Status = models.StatusPlaying
	next.CurrentQuestionIndex = nextIndex
	next.CurrentQuestionStart = &now
	next.Votes = map[string]int{}

	return next, Plan{
		Players: clearAnswers(players),
		Session: playingPatch(nextIndex, now),
	}, nil
}

// PlayAgain rolls every player's round score into their cumulative totals,
// resets round state, resamples the question set and returns the session to
// the lobby. Joined players stay joined.
func PlayAgain(s models.GameSession, players []models.Player, questionIDs []int) (models.GameSession, Plan) {
	muts := make([]PlayerMutation, 0, len(players))
	for _, p := range players {
		total := p.TotalScore + p.Score
		rounds := p.RoundsPlayed + 1
		zero := 0
		none := models.AnswerNone
		history := []models.HistoryEntry{}
		muts = append(muts, PlayerMutation{
			PlayerID: p.ID,
			Patch: models.PlayerPatch{
				TotalScore:     &total,
				RoundsPlayed:   &rounds,
				Score:          &zero,
				CurrentAnswer:  &none,
				AnswersHistory: &history,
			},
		})
	}

	next := s
	next.Status = models.StatusLobby
	next.CurrentQuestionIndex = 0
	next.QuestionIDs = questionIDs
	next.Votes = map[string]int{}

	status := models.StatusLobby
	index := 0
	votes := map[string]int{}
	return next, Plan{
		Players: muts,
		Session: &models.SessionPatch{
			Status:               &status,
			CurrentQuestionIndex: &index,
			QuestionIDs:          &questionIDs,
			Votes:                &votes,
		},
	}
}

// Reset tears the whole session down: every player row, then the session
// row. The host returns to its pre-session state.
func Reset(s models.GameSession, players []models.Player) Plan {
	ids := make([]string, 0, len(players))
	for _, p := range players {
		ids = append(ids, p.ID)
	}
	return Plan{DeletePlayers: ids, DeleteSession: true}
}
