package host

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/mcdev12/neuroswipe/internal/game"
	"github.com/mcdev12/neuroswipe/internal/models"
	"github.com/mcdev12/neuroswipe/internal/questions"
	"github.com/mcdev12/neuroswipe/internal/store/storetest"
)

func testSettings() game.Settings {
	return game.Settings{
		TotalQuestions: 2,
		Difficulty:     models.DifficultyMixed,
		TimerSeconds:   30,
		SoundEnabled:   true,
	}
}

// newRunningGame creates a session with two joined players and refreshes the
// host's player cache, leaving the game one StartGame call away from playing.
func newRunningGame(t *testing.T) (*Host, *storetest.Store, *clockwork.FakeClock, *models.GameSession, []string) {
	t.Helper()
	ctx := context.Background()
	st := storetest.New()
	clock := clockwork.NewFakeClock()
	h := New(st, clock, testSettings())

	sess, err := h.CreateSession(ctx)
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	var ids []string
	for _, name := range []string{"Ana", "Ben"} {
		p, err := st.CreatePlayer(ctx, models.Player{
			SessionID: sess.ID,
			Name:      name,
			IsActive:  true,
		})
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, p.ID)
	}
	if err := h.refreshPlayers(ctx); err != nil {
		t.Fatalf("refreshPlayers() error = %v", err)
	}
	return h, st, clock, sess, ids
}

func answer(t *testing.T, st *storetest.Store, playerID string, a models.Answer) {
	t.Helper()
	if _, err := st.UpdatePlayer(context.Background(), playerID, models.PlayerPatch{CurrentAnswer: &a}); err != nil {
		t.Fatal(err)
	}
}

func correctAnswerFor(t *testing.T, sess models.GameSession, index int) models.Answer {
	t.Helper()
	q, ok := questions.ByID(sess.QuestionIDs[index])
	if !ok {
		t.Fatalf("unknown question id %d", sess.QuestionIDs[index])
	}
	return q.Correct
}

func storedSession(t *testing.T, st *storetest.Store, id string) models.GameSession {
	t.Helper()
	sess, ok := st.GetSession(id)
	if !ok {
		t.Fatalf("session %s missing from store", id)
	}
	return sess
}

func TestCreateSession(t *testing.T) {
	st := storetest.New()
	h := New(st, clockwork.NewFakeClock(), testSettings())

	sess, err := h.CreateSession(context.Background())
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	if sess.Status != models.StatusLobby {
		t.Errorf("status = %q, want lobby", sess.Status)
	}
	if len(sess.SessionCode) != game.CodeLength {
		t.Errorf("code = %q, want %d chars", sess.SessionCode, game.CodeLength)
	}
	if len(sess.QuestionIDs) != 2 {
		t.Errorf("sampled %d questions, want 2", len(sess.QuestionIDs))
	}
	if _, ok := st.GetSession(sess.ID); !ok {
		t.Error("session not persisted")
	}
}

func TestStartGameRequiresPlayers(t *testing.T) {
	st := storetest.New()
	h := New(st, clockwork.NewFakeClock(), testSettings())
	if _, err := h.CreateSession(context.Background()); err != nil {
		t.Fatal(err)
	}

	if err := h.StartGame(context.Background()); !errors.Is(err, game.ErrNoPlayers) {
		t.Errorf("StartGame() error = %v, want ErrNoPlayers", err)
	}
}

func TestStartGameOrdersWrites(t *testing.T) {
	h, st, _, sess, _ := newRunningGame(t)
	ctx := context.Background()

	if err := h.StartGame(ctx); err != nil {
		t.Fatalf("StartGame() error = %v", err)
	}

	stored := storedSession(t, st, sess.ID)
	if stored.Status != models.StatusPlaying || stored.CurrentQuestionIndex != 0 {
		t.Errorf("stored session = %q index %d, want playing index 0", stored.Status, stored.CurrentQuestionIndex)
	}

	// The answer clears must be applied before the session flips to playing,
	// so no phone can see the new question with a stale answer still set.
	var sessionPatched bool
	for _, op := range st.Ops() {
		if op.Entity == "GameSession" && op.Kind == "update" {
			sessionPatched = true
		}
		if op.Entity == "Player" && op.Kind == "update" && sessionPatched {
			t.Fatalf("player write after session patch: %+v", st.Ops())
		}
	}
	if !sessionPatched {
		t.Fatal("session never patched to playing")
	}
}

func TestRevealWhenAllAnswered(t *testing.T) {
	h, st, _, sess, ids := newRunningGame(t)
	ctx := context.Background()

	if err := h.StartGame(ctx); err != nil {
		t.Fatal(err)
	}

	correct := correctAnswerFor(t, *sess, 0)
	answer(t, st, ids[0], correct)
	answer(t, st, ids[1], models.AnswerNone) // Ben holds out

	// Not everyone answered yet; no reveal.
	if err := h.refreshPlayers(ctx); err != nil {
		t.Fatal(err)
	}
	if got := storedSession(t, st, sess.ID); got.Status != models.StatusPlaying {
		t.Fatalf("revealed early: status = %q", got.Status)
	}

	answer(t, st, ids[1], models.AnswerBoth)
	if err := h.refreshPlayers(ctx); err != nil {
		t.Fatal(err)
	}

	stored := storedSession(t, st, sess.ID)
	if stored.Status != models.StatusRevealing {
		t.Fatalf("status = %q, want revealing", stored.Status)
	}

	summary, ok := h.Summary()
	if !ok {
		t.Fatal("no summary computed")
	}
	if summary.Answered != 2 {
		t.Errorf("answered = %d, want 2", summary.Answered)
	}

	p, _ := st.GetPlayer(ids[0])
	if p.Score != 1 {
		t.Errorf("correct answerer score = %d, want 1", p.Score)
	}
	if len(p.AnswersHistory) != 1 || !p.AnswersHistory[0].Correct {
		t.Errorf("history = %+v", p.AnswersHistory)
	}
}

func TestRevealOnTimerExpiry(t *testing.T) {
	h, st, clock, sess, ids := newRunningGame(t)
	ctx := context.Background()

	if err := h.StartGame(ctx); err != nil {
		t.Fatal(err)
	}
	answer(t, st, ids[0], correctAnswerFor(t, *sess, 0))

	clock.Advance(30 * time.Second)

	waitFor(t, func() bool {
		got := storedSession(t, st, sess.ID)
		return got.Status == models.StatusRevealing
	})

	summary, ok := h.Summary()
	if !ok {
		t.Fatal("no summary after timeout reveal")
	}
	if summary.Answered != 1 {
		t.Errorf("answered = %d, want 1 (Ben never answered)", summary.Answered)
	}
	if p, _ := st.GetPlayer(ids[1]); len(p.AnswersHistory) != 0 {
		t.Errorf("non-answerer got history %+v", p.AnswersHistory)
	}
}

func TestRevealExactlyOnce(t *testing.T) {
	h, st, clock, _, ids := newRunningGame(t)
	ctx := context.Background()

	if err := h.StartGame(ctx); err != nil {
		t.Fatal(err)
	}
	answer(t, st, ids[0], models.AnswerRomantic)
	answer(t, st, ids[1], models.AnswerPlatonic)

	// All-answered fires the reveal; the countdown firing right after must be
	// swallowed.
	if err := h.refreshPlayers(ctx); err != nil {
		t.Fatal(err)
	}
	clock.Advance(30 * time.Second)
	if err := h.refreshPlayers(ctx); err != nil {
		t.Fatal(err)
	}

	reveals := 0
	for _, op := range st.Ops() {
		if op.Entity != "GameSession" || op.Kind != "update" {
			continue
		}
		if s, ok := op.Snapshot.(models.GameSession); ok && s.Status == models.StatusRevealing {
			reveals++
		}
	}
	if reveals != 1 {
		t.Errorf("session patched to revealing %d times, want exactly once", reveals)
	}

	if p, _ := st.GetPlayer(ids[0]); len(p.AnswersHistory) != 1 {
		t.Errorf("player scored %d times, want once: %+v", len(p.AnswersHistory), p.AnswersHistory)
	}
}

func TestRevealHoldsPhaseWhenSessionPatchFails(t *testing.T) {
	h, st, _, sess, ids := newRunningGame(t)
	ctx := context.Background()

	if err := h.StartGame(ctx); err != nil {
		t.Fatal(err)
	}
	answer(t, st, ids[0], models.AnswerBoth)
	answer(t, st, ids[1], models.AnswerBoth)

	// The scoring writes land but the flip to revealing does not.
	st.FailSessionUpdate = errors.New("store unreachable")
	if err := h.refreshPlayers(ctx); err != nil {
		t.Fatal(err)
	}

	// The stored session is still playing with every answer set, which is
	// exactly the state the all-answered check fires on. Further polls must
	// not score the question again.
	for i := 0; i < 3; i++ {
		if err := h.refreshPlayers(ctx); err != nil {
			t.Fatal(err)
		}
	}
	for _, id := range ids {
		p, _ := st.GetPlayer(id)
		if p.Score != 1 || len(p.AnswersHistory) != 1 {
			t.Fatalf("player %s scored again: score=%d history=%+v, want 1/1",
				id, p.Score, p.AnswersHistory)
		}
	}

	// The host recovers by advancing; the next question opens normally.
	if err := h.NextQuestion(ctx); err != nil {
		t.Fatalf("NextQuestion() error = %v", err)
	}
	stored := storedSession(t, st, sess.ID)
	if stored.Status != models.StatusPlaying || stored.CurrentQuestionIndex != 1 {
		t.Errorf("session = %q index %d, want playing index 1", stored.Status, stored.CurrentQuestionIndex)
	}

	// And question 1 reveals once everyone answers it.
	answer(t, st, ids[0], models.AnswerRomantic)
	answer(t, st, ids[1], models.AnswerRomantic)
	if err := h.refreshPlayers(ctx); err != nil {
		t.Fatal(err)
	}
	if got := storedSession(t, st, sess.ID); got.Status != models.StatusRevealing {
		t.Errorf("status = %q, want revealing for question 1", got.Status)
	}
}

func TestRevealContinuesPastFailedPlayerWrite(t *testing.T) {
	h, st, _, sess, ids := newRunningGame(t)
	ctx := context.Background()

	if err := h.StartGame(ctx); err != nil {
		t.Fatal(err)
	}
	correct := correctAnswerFor(t, *sess, 0)
	answer(t, st, ids[0], correct)
	answer(t, st, ids[1], correct)

	// One player's score write fails with a transport error mid-batch. The
	// rest of the batch and the phase change must still go through.
	st.FailPlayerUpdate = map[string]error{ids[0]: errors.New("store unreachable")}
	if err := h.refreshPlayers(ctx); err != nil {
		t.Fatal(err)
	}

	if got := storedSession(t, st, sess.ID); got.Status != models.StatusRevealing {
		t.Fatalf("status = %q, want revealing despite one failed write", got.Status)
	}
	if p, _ := st.GetPlayer(ids[1]); p.Score != 1 || len(p.AnswersHistory) != 1 {
		t.Errorf("unaffected player = score %d history %+v, want 1/1", p.Score, p.AnswersHistory)
	}

	// Once revealing, nothing re-fires: the failed player is not scored late
	// and the scored one is not scored twice.
	if err := h.refreshPlayers(ctx); err != nil {
		t.Fatal(err)
	}
	if p, _ := st.GetPlayer(ids[0]); p.Score != 0 || len(p.AnswersHistory) != 0 {
		t.Errorf("failed player scored on a later tick: score=%d history=%+v", p.Score, p.AnswersHistory)
	}
	if p, _ := st.GetPlayer(ids[1]); p.Score != 1 || len(p.AnswersHistory) != 1 {
		t.Errorf("scored player re-scored: score=%d history=%+v", p.Score, p.AnswersHistory)
	}
}

func TestStaleEpochTriggerDropped(t *testing.T) {
	h, st, _, sess, ids := newRunningGame(t)
	ctx := context.Background()

	if err := h.StartGame(ctx); err != nil {
		t.Fatal(err)
	}

	h.mu.Lock()
	stale := h.epoch
	h.mu.Unlock()

	// Reveal question 0 and advance to question 1, bumping the epoch.
	answer(t, st, ids[0], models.AnswerBoth)
	answer(t, st, ids[1], models.AnswerBoth)
	if err := h.refreshPlayers(ctx); err != nil {
		t.Fatal(err)
	}
	if err := h.NextQuestion(ctx); err != nil {
		t.Fatal(err)
	}

	before := len(st.Ops())
	h.triggerReveal(ctx, stale)
	if got := len(st.Ops()); got != before {
		t.Errorf("stale trigger wrote %d ops", got-before)
	}
	if got := storedSession(t, st, sess.ID); got.Status != models.StatusPlaying || got.CurrentQuestionIndex != 1 {
		t.Errorf("session = %q index %d, want playing index 1", got.Status, got.CurrentQuestionIndex)
	}
}

func TestNextQuestionFinishesRun(t *testing.T) {
	h, st, _, sess, ids := newRunningGame(t)
	ctx := context.Background()

	if err := h.StartGame(ctx); err != nil {
		t.Fatal(err)
	}

	for q := 0; q < 2; q++ {
		answer(t, st, ids[0], models.AnswerBoth)
		answer(t, st, ids[1], models.AnswerBoth)
		if err := h.refreshPlayers(ctx); err != nil {
			t.Fatal(err)
		}
		if err := h.NextQuestion(ctx); err != nil {
			t.Fatal(err)
		}
	}

	if got := storedSession(t, st, sess.ID); got.Status != models.StatusFinished {
		t.Errorf("status = %q, want finished after last question", got.Status)
	}
}

func TestPlayAgain(t *testing.T) {
	h, st, _, sess, ids := newRunningGame(t)
	ctx := context.Background()

	if err := h.StartGame(ctx); err != nil {
		t.Fatal(err)
	}
	correct := correctAnswerFor(t, *sess, 0)
	answer(t, st, ids[0], correct)
	answer(t, st, ids[1], correct)
	if err := h.refreshPlayers(ctx); err != nil {
		t.Fatal(err)
	}

	if err := h.PlayAgain(ctx); err != nil {
		t.Fatalf("PlayAgain() error = %v", err)
	}

	stored := storedSession(t, st, sess.ID)
	if stored.Status != models.StatusLobby || stored.CurrentQuestionIndex != 0 {
		t.Errorf("session = %q index %d, want lobby index 0", stored.Status, stored.CurrentQuestionIndex)
	}

	p, _ := st.GetPlayer(ids[0])
	if p.TotalScore != 1 || p.Score != 0 || p.RoundsPlayed != 1 {
		t.Errorf("player after restart = total %d score %d rounds %d, want 1/0/1",
			p.TotalScore, p.Score, p.RoundsPlayed)
	}
	if len(p.AnswersHistory) != 0 || p.CurrentAnswer != models.AnswerNone {
		t.Errorf("round state not cleared: %+v", p)
	}
}

func TestResetGame(t *testing.T) {
	h, st, _, sess, ids := newRunningGame(t)
	ctx := context.Background()

	if err := h.StartGame(ctx); err != nil {
		t.Fatal(err)
	}
	if err := h.ResetGame(ctx); err != nil {
		t.Fatalf("ResetGame() error = %v", err)
	}

	if _, ok := st.GetSession(sess.ID); ok {
		t.Error("session still in store after reset")
	}
	for _, id := range ids {
		if _, ok := st.GetPlayer(id); ok {
			t.Errorf("player %s still in store after reset", id)
		}
	}
	if _, ok := h.Session(); ok {
		t.Error("host still holds a session after reset")
	}
}

func TestApplyPlanSkipsVanishedPlayers(t *testing.T) {
	h, st, _, sess, ids := newRunningGame(t)
	ctx := context.Background()

	st.RemovePlayer(ids[1])

	none := models.AnswerNone
	plan := game.Plan{
		Players: []game.PlayerMutation{
			{PlayerID: ids[0], Patch: models.PlayerPatch{CurrentAnswer: &none}},
			{PlayerID: ids[1], Patch: models.PlayerPatch{CurrentAnswer: &none}},
		},
	}

	result, err := h.applyPlan(ctx, sess.ID, plan)
	if err != nil {
		t.Fatalf("applyPlan() error = %v", err)
	}
	if len(result.Applied) != 1 || result.Applied[0] != ids[0] {
		t.Errorf("applied = %v, want just %s", result.Applied, ids[0])
	}
	if len(result.Failed) != 1 || result.Failed[0].PlayerID != ids[1] {
		t.Errorf("failed = %v, want just %s", result.Failed, ids[1])
	}
}

func TestJoinURL(t *testing.T) {
	h, _, _, sess, _ := newRunningGame(t)

	want := "https://game.local/play?code=" + sess.SessionCode
	if got := h.JoinURL("https://game.local"); got != want {
		t.Errorf("JoinURL() = %q, want %q", got, want)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}
