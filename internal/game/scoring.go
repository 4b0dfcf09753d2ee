package game

import (
	"math"

	"github.com/mcdev12/neuroswipe/internal/models"
	"github.com/mcdev12/neuroswipe/internal/questions"
)

// Summary is the vote distribution computed at reveal time and shown on the
// host display.
type Summary struct {
	QuestionIndex int
	Romantic      int // percent
	Platonic      int // percent
	Both          int // percent
	CorrectCount  int
	Answered      int
}

func percent(count, total int) int {
	return int(math.Round(float64(count) / float64(total) * 100))
}

// Score computes the reveal for one question from a fresh player list. It
// returns the vote summary and the per-player score/history mutations, plus
// the session patch moving the session to revealing.
//
// A correct answer earns one point and a correct:true history entry. A wrong
// non-empty answer earns a correct:false entry and no points. An empty
// answer earns nothing at all. When nobody answered, the denominator is
// forced to 1 so every percentage is zero.
func Score(s models.GameSession, q questions.Question, players []models.Player) (models.GameSession, Summary, Plan) {
	index := s.CurrentQuestionIndex

	counts := map[models.Answer]int{}
	for _, p := range players {
		if p.HasAnswered() {
			counts[p.CurrentAnswer]++
		}
	}
	answered := counts[models.AnswerRomantic] + counts[models.AnswerPlatonic] + counts[models.AnswerBoth]
	total := answered
	if total == 0 {
		total = 1
	}

	summary := Summary{
		QuestionIndex: index,
		Romantic:      percent(counts[models.AnswerRomantic], total),
		Platonic:      percent(counts[models.AnswerPlatonic], total),
		Both:          percent(counts[models.AnswerBoth], total),
		CorrectCount:  counts[q.Correct],
		Answered:      answered,
	}

	var muts []PlayerMutation
	for _, p := range players {
		if !p.HasAnswered() {
			continue
		}
		entry := models.HistoryEntry{
			QuestionIndex: index,
			Answer:        p.CurrentAnswer,
			Correct:       p.CurrentAnswer == q.Correct,
		}
		history := append(append([]models.HistoryEntry{}, p.AnswersHistory...), entry)
		patch := models.PlayerPatch{AnswersHistory: &history}
		if entry.Correct {
			score := p.Score + 1
			patch.Score = &score
		}
		muts = append(muts, PlayerMutation{PlayerID: p.ID, Patch: patch})
	}

	next := s
	next.Status = models.StatusRevealing
	status := models.StatusRevealing
	return next, summary, Plan{
		Players: muts,
		Session: &models.SessionPatch{Status: &status},
	}
}
