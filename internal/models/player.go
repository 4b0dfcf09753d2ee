package models

// Answer is a player's classification of the current card.
type Answer string

const (
	AnswerNone     Answer = ""
	AnswerRomantic Answer = "romantic"
	AnswerPlatonic Answer = "platonic"
	AnswerBoth     Answer = "both"
)

// HistoryEntry records one scored answer. Players that did not answer a
// question get no entry at all, so did-not-answer is distinguishable from
// wrong-answer by absence.
type HistoryEntry struct {
	QuestionIndex int    `json:"question_index"`
	Answer        Answer `json:"answer"`
	Correct       bool   `json:"correct"`
}

// Player is a joined device's record. The player writes its own answer; the
// host writes score, history and answer clears. Writes are arranged so the
// two never race on the same field during normal play.
type Player struct {
	ID             string         `json:"id,omitempty"`
	SessionID      string         `json:"session_id"`
	Name           string         `json:"name"`
	AvatarEmoji    string         `json:"avatar_emoji"`
	IsActive       bool           `json:"is_active"`
	CurrentAnswer  Answer         `json:"current_answer"`
	Score          int            `json:"score"`
	TotalScore     int            `json:"total_score"`
	RoundsPlayed   int            `json:"rounds_played"`
	AnswersHistory []HistoryEntry `json:"answers_history"`
}

// PlayerPatch is a partial update of a Player record.
type PlayerPatch struct {
	CurrentAnswer  *Answer         `json:"current_answer,omitempty"`
	Score          *int            `json:"score,omitempty"`
	TotalScore     *int            `json:"total_score,omitempty"`
	RoundsPlayed   *int            `json:"rounds_played,omitempty"`
	AnswersHistory *[]HistoryEntry `json:"answers_history,omitempty"`
	IsActive       *bool           `json:"is_active,omitempty"`
}

// HasAnswered reports whether the player has answered the active question.
func (p Player) HasAnswered() bool {
	return p.CurrentAnswer != AnswerNone
}
