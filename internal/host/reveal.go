package host

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/neuroswipe/internal/game"
	"github.com/mcdev12/neuroswipe/internal/models"
	"github.com/mcdev12/neuroswipe/internal/questions"
	"github.com/mcdev12/neuroswipe/internal/store"
)

// activateQuestionLocked opens a new timer epoch for the question that just
// became active and arms the countdown. Any trigger still carrying an older
// epoch is rejected when it eventually fires. Caller holds h.mu.
func (h *Host) activateQuestionLocked(sess models.GameSession) {
	h.epoch++
	captured := h.epoch

	h.stopCountdownLocked()
	seconds := sess.TimerSeconds
	if seconds <= 0 {
		seconds = game.DefaultSettings().TimerSeconds
	}
	timer := h.clock.NewTimer(time.Duration(seconds) * time.Second)
	cancelCtx, cancel := context.WithCancel(context.Background())
	h.countdown = timer
	h.countdownCancel = cancel

	go func() {
		select {
		case <-timer.Chan():
			h.triggerReveal(context.Background(), captured)
		case <-cancelCtx.Done():
		}
	}()

	log.Info().Int("question_index", sess.CurrentQuestionIndex).
		Int64("epoch", captured).Int("timer_seconds", seconds).
		Msg("question activated")
}

// stopCountdownLocked stops the active countdown and drains its channel so
// the waiting goroutine does not leak a fire. Caller holds h.mu.
func (h *Host) stopCountdownLocked() {
	if h.countdown == nil {
		return
	}
	if !h.countdown.Stop() {
		select {
		case <-h.countdown.Chan():
		default:
		}
	}
	h.countdownCancel()
	h.countdown = nil
	h.countdownCancel = nil
}

// triggerReveal is the single entry point for both reveal triggers: the
// countdown expiring and the all-answered check. The in-flight flag plus the
// epoch comparison make the playing -> revealing transition single-flight;
// a duplicate or stale trigger is dropped silently, never an error.
func (h *Host) triggerReveal(ctx context.Context, captured int64) {
	h.mu.Lock()
	if h.session == nil ||
		h.session.Status != models.StatusPlaying ||
		h.revealInFlight ||
		captured != h.epoch {
		h.mu.Unlock()
		return
	}
	h.revealInFlight = true
	sess := *h.session
	h.stopCountdownLocked()
	h.mu.Unlock()

	// Score from a freshly fetched list, not the cached poll, so answers
	// written moments ago are counted.
	fresh, err := h.store.FilterPlayers(ctx, store.Filter{
		"session_id": sess.ID,
		"is_active":  "true",
	})
	if err != nil {
		log.Warn().Err(err).Str("session_id", sess.ID).Msg("reveal aborted: player fetch failed")
		h.clearInFlight()
		return
	}

	q, ok := questions.ByID(sess.QuestionIDs[sess.CurrentQuestionIndex])
	if !ok {
		log.Error().Int("question_id", sess.QuestionIDs[sess.CurrentQuestionIndex]).
			Msg("reveal aborted: unknown question id")
		h.clearInFlight()
		return
	}

	next, summary, plan := game.Score(sess, q, fresh)

	// Scoring writes are not idempotent: once any of them may have landed,
	// retrying the reveal would add points and history entries twice. Apply
	// them tolerating per-player failures instead of aborting.
	result := h.applyScoring(ctx, plan.Players)
	for _, f := range result.Failed {
		log.Warn().Err(f.Err).Str("player_id", f.PlayerID).Msg("player update failed during scoring; skipped")
	}

	if _, err := h.store.UpdateSession(ctx, sess.ID, *plan.Session); err != nil {
		// The in-flight flag stays set so the poll loop cannot re-fire and
		// score this question again. The host recovers with next or reset.
		log.Warn().Err(err).Str("session_id", sess.ID).
			Msg("reveal session update failed; holding phase until host advances")
		return
	}

	h.mu.Lock()
	if captured == h.epoch {
		h.session = &next
		h.summary = &summary
	}
	h.revealInFlight = false
	h.mu.Unlock()

	log.Info().Int("question_index", summary.QuestionIndex).
		Int("answered", summary.Answered).Int("correct", summary.CorrectCount).
		Msg("reveal computed")
	h.emit(RevealComputed{Summary: summary, Result: result})
}

func (h *Host) clearInFlight() {
	h.mu.Lock()
	h.revealInFlight = false
	h.mu.Unlock()
}

// applyScoring writes the reveal's score/history mutations. Every failure,
// vanished row or transport, lands in Failed and the rest of the batch still
// applies; players whose writes went through must never be re-scored.
func (h *Host) applyScoring(ctx context.Context, muts []game.PlayerMutation) game.BatchResult {
	var result game.BatchResult
	for _, m := range muts {
		if _, err := h.store.UpdatePlayer(ctx, m.PlayerID, m.Patch); err != nil {
			result.Failed = append(result.Failed, game.BatchFailure{PlayerID: m.PlayerID, Err: err})
			continue
		}
		result.Applied = append(result.Applied, m.PlayerID)
	}
	return result
}

// applyPlan realizes a lifecycle transition's mutations against the store.
// These plans (answer clears, play-again rollovers, deletes) are safe to
// re-apply, so a transport error aborts and the caller may retry; only
// vanished players are skipped. When the plan also patches the session, the
// player list is re-read first so the answer clears are observably applied
// before any device can see the new question.
func (h *Host) applyPlan(ctx context.Context, sessionID string, plan game.Plan) (game.BatchResult, error) {
	var result game.BatchResult
	for _, m := range plan.Players {
		if _, err := h.store.UpdatePlayer(ctx, m.PlayerID, m.Patch); err != nil {
			if store.IsNotFound(err) {
				result.Failed = append(result.Failed, game.BatchFailure{PlayerID: m.PlayerID, Err: err})
				continue
			}
			return result, err
		}
		result.Applied = append(result.Applied, m.PlayerID)
	}

	for _, id := range plan.DeletePlayers {
		if err := h.store.DeletePlayer(ctx, id); err != nil {
			if store.IsNotFound(err) {
				result.Failed = append(result.Failed, game.BatchFailure{PlayerID: id, Err: err})
				continue
			}
			return result, err
		}
		result.Applied = append(result.Applied, id)
	}

	if plan.Session != nil {
		if len(plan.Players) > 0 {
			if err := h.refreshPlayers(ctx); err != nil {
				return result, err
			}
		}
		if _, err := h.store.UpdateSession(ctx, sessionID, *plan.Session); err != nil {
			return result, err
		}
	}

	if plan.DeleteSession {
		if err := h.store.DeleteSession(ctx, sessionID); err != nil && !store.IsNotFound(err) {
			return result, err
		}
	}

	return result, nil
}
