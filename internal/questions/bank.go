// Package questions is the static card bank: 50 immutable cards about the
// neuroscience of romantic vs platonic love, embedded at build time.
package questions

import (
	_ "embed"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/mcdev12/neuroswipe/internal/models"
)

//go:embed questions.json
var rawBank []byte

// Question is one card. Only ID, Correct and Difficulty matter to the game
// engine; the text fields are consumed by the rendering layer.
type Question struct {
	ID                 int               `json:"id"`
	Category           string            `json:"category"`
	Title              string            `json:"title"`
	Subtitle           string            `json:"subtitle"`
	BrainRegion        string            `json:"brainRegion"`
	UsualRole          string            `json:"usualRole"`
	NeuroplasticEffect string            `json:"neuroplasticEffect"`
	Correct            models.Answer     `json:"correct"`
	Explanation        string            `json:"explanation"`
	Difficulty         models.Difficulty `json:"difficulty"`
}

var (
	bank []Question
	byID map[int]Question
	rng  = rand.New(rand.NewSource(time.Now().UnixNano()))
)

func init() {
	if err := json.Unmarshal(rawBank, &bank); err != nil {
		panic("questions: invalid embedded bank: " + err.Error())
	}
	byID = make(map[int]Question, len(bank))
	for _, q := range bank {
		byID[q.ID] = q
	}
}

// All returns every card in bank order.
func All() []Question {
	out := make([]Question, len(bank))
	copy(out, bank)
	return out
}

// ByID looks up a card by id.
func ByID(id int) (Question, bool) {
	q, ok := byID[id]
	return q, ok
}

// ByDifficulty returns the pool for a difficulty. "mixed" returns the whole
// bank; medium cards only appear in mixed runs, matching the original bank.
func ByDifficulty(d models.Difficulty) []Question {
	if d == models.DifficultyMixed {
		return All()
	}
	var out []Question
	for _, q := range bank {
		if q.Difficulty == d {
			out = append(out, q)
		}
	}
	return out
}

// PickSet samples up to count question ids from the difficulty pool, without
// replacement: the same id never appears twice in one run.
func PickSet(count int, d models.Difficulty) []int {
	pool := ByDifficulty(d)
	rng.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})
	if count > len(pool) {
		count = len(pool)
	}
	ids := make([]int, count)
	for i := 0; i < count; i++ {
		ids[i] = pool[i].ID
	}
	return ids
}
