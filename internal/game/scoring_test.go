package game

import (
	"testing"

	"github.com/mcdev12/neuroswipe/internal/models"
	"github.com/mcdev12/neuroswipe/internal/questions"
)

func romanticQuestion() questions.Question {
	return questions.Question{ID: 99, Title: "Test card", Correct: models.AnswerRomantic}
}

func playingSession(index int) models.GameSession {
	s := lobbySession()
	s.Status = models.StatusPlaying
	s.CurrentQuestionIndex = index
	return s
}

func TestScoreSinglePlayerCorrect(t *testing.T) {
	players := []models.Player{
		{ID: "p1", Score: 2, CurrentAnswer: models.AnswerRomantic},
	}

	next, summary, plan := Score(playingSession(1), romanticQuestion(), players)

	if next.Status != models.StatusRevealing {
		t.Errorf("status = %q, want revealing", next.Status)
	}
	if summary.Romantic != 100 || summary.Platonic != 0 || summary.Both != 0 {
		t.Errorf("percents = %d/%d/%d, want 100/0/0", summary.Romantic, summary.Platonic, summary.Both)
	}
	if summary.CorrectCount != 1 || summary.Answered != 1 {
		t.Errorf("correct=%d answered=%d, want 1/1", summary.CorrectCount, summary.Answered)
	}

	if len(plan.Players) != 1 {
		t.Fatalf("player mutations = %d, want 1", len(plan.Players))
	}
	patch := plan.Players[0].Patch
	if patch.Score == nil || *patch.Score != 3 {
		t.Errorf("score = %v, want 3", patch.Score)
	}
	if patch.AnswersHistory == nil || len(*patch.AnswersHistory) != 1 {
		t.Fatalf("history = %v, want one entry", patch.AnswersHistory)
	}
	entry := (*patch.AnswersHistory)[0]
	if entry.QuestionIndex != 1 || entry.Answer != models.AnswerRomantic || !entry.Correct {
		t.Errorf("history entry = %+v", entry)
	}
}

func TestScoreWrongAnswerGetsHistoryNoPoints(t *testing.T) {
	players := []models.Player{
		{ID: "p1", Score: 2, CurrentAnswer: models.AnswerPlatonic},
	}

	_, summary, plan := Score(playingSession(0), romanticQuestion(), players)

	if summary.CorrectCount != 0 {
		t.Errorf("correct count = %d, want 0", summary.CorrectCount)
	}
	patch := plan.Players[0].Patch
	if patch.Score != nil {
		t.Errorf("score patched to %v for a wrong answer", *patch.Score)
	}
	entry := (*patch.AnswersHistory)[0]
	if entry.Correct || entry.Answer != models.AnswerPlatonic {
		t.Errorf("history entry = %+v, want correct=false platonic", entry)
	}
}

func TestScoreNonAnswererUntouched(t *testing.T) {
	players := []models.Player{
		{ID: "p1", CurrentAnswer: models.AnswerBoth},
		{ID: "p2", CurrentAnswer: models.AnswerNone},
	}

	_, summary, plan := Score(playingSession(0), romanticQuestion(), players)

	if summary.Answered != 1 {
		t.Errorf("answered = %d, want 1", summary.Answered)
	}
	if summary.Both != 100 {
		t.Errorf("both = %d%%, want 100%% of the one vote cast", summary.Both)
	}
	if len(plan.Players) != 1 || plan.Players[0].PlayerID != "p1" {
		t.Errorf("mutations = %+v, want only p1 (no history entry for silence)", plan.Players)
	}
}

func TestScoreNobodyAnswered(t *testing.T) {
	players := []models.Player{
		{ID: "p1"},
		{ID: "p2"},
	}

	next, summary, plan := Score(playingSession(0), romanticQuestion(), players)

	if summary.Romantic != 0 || summary.Platonic != 0 || summary.Both != 0 {
		t.Errorf("percents = %d/%d/%d, want all zero", summary.Romantic, summary.Platonic, summary.Both)
	}
	if len(plan.Players) != 0 {
		t.Errorf("mutations = %d, want none", len(plan.Players))
	}
	// The reveal still happens on schedule with an empty chart.
	if next.Status != models.StatusRevealing {
		t.Errorf("status = %q, want revealing", next.Status)
	}
	if plan.Session == nil || plan.Session.Status == nil || *plan.Session.Status != models.StatusRevealing {
		t.Errorf("session patch = %+v, want revealing", plan.Session)
	}
}

func TestScorePercentagesNearHundred(t *testing.T) {
	players := []models.Player{
		{ID: "p1", CurrentAnswer: models.AnswerRomantic},
		{ID: "p2", CurrentAnswer: models.AnswerPlatonic},
		{ID: "p3", CurrentAnswer: models.AnswerBoth},
	}

	_, summary, _ := Score(playingSession(0), romanticQuestion(), players)

	sum := summary.Romantic + summary.Platonic + summary.Both
	if sum < 98 || sum > 102 {
		t.Errorf("percent sum = %d, want within 100±2", sum)
	}
	if summary.Romantic != 33 || summary.Platonic != 33 || summary.Both != 33 {
		t.Errorf("percents = %d/%d/%d, want 33/33/33", summary.Romantic, summary.Platonic, summary.Both)
	}
}
