// Package host runs the host device: it owns the authoritative session
// record (single writer), polls the player list, runs the per-question
// countdown and fires the reveal engine exactly once per question.
package host

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/neuroswipe/internal/game"
	"github.com/mcdev12/neuroswipe/internal/models"
	"github.com/mcdev12/neuroswipe/internal/questions"
	"github.com/mcdev12/neuroswipe/internal/reconcile"
	"github.com/mcdev12/neuroswipe/internal/store"
)

// Event is an asynchronous notification for the rendering layer.
type Event interface {
	isHostEvent()
}

// PlayersUpdated is emitted after every player poll.
type PlayersUpdated struct {
	Players  []models.Player
	Answered int
}

// RevealComputed is emitted once per question when the reveal engine has
// scored it, whether the trigger was the countdown or everyone answering.
type RevealComputed struct {
	Summary game.Summary
	Result  game.BatchResult
}

func (PlayersUpdated) isHostEvent() {}
func (RevealComputed) isHostEvent() {}

// Host orchestrates one game session.
type Host struct {
	store    store.Interface
	clock    clockwork.Clock
	settings game.Settings
	events   chan Event

	mu              sync.Mutex
	session         *models.GameSession
	players         []models.Player
	summary         *game.Summary
	epoch           int64
	revealInFlight  bool
	starting        bool
	countdown       clockwork.Timer
	countdownCancel context.CancelFunc
}

// New creates a Host. The clock is injectable so tests can drive countdowns
// with a fake.
func New(st store.Interface, clock clockwork.Clock, settings game.Settings) *Host {
	return &Host{
		store:    st,
		clock:    clock,
		settings: settings,
		events:   make(chan Event, 16),
	}
}

// Events delivers asynchronous notifications. Sends never block; if the
// consumer falls behind, events are dropped.
func (h *Host) Events() <-chan Event {
	return h.events
}

func (h *Host) emit(ev Event) {
	select {
	case h.events <- ev:
	default:
	}
}

// Session returns a copy of the current session, if one exists.
func (h *Host) Session() (models.GameSession, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.session == nil {
		return models.GameSession{}, false
	}
	return *h.session, true
}

// Players returns the most recently polled player list.
func (h *Host) Players() []models.Player {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]models.Player, len(h.players))
	copy(out, h.players)
	return out
}

// Summary returns the last computed reveal summary.
func (h *Host) Summary() (game.Summary, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.summary == nil {
		return game.Summary{}, false
	}
	return *h.summary, true
}

// JoinURL builds the player join link carrying the session code.
func (h *Host) JoinURL(base string) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.session == nil {
		return ""
	}
	return fmt.Sprintf("%s/play?code=%s", base, url.QueryEscape(h.session.SessionCode))
}

// CreateSession generates a join code, samples the question set and creates
// the session record in the lobby status.
func (h *Host) CreateSession(ctx context.Context) (*models.GameSession, error) {
	code := game.NewSessionCode()
	ids := questions.PickSet(h.settings.TotalQuestions, h.settings.Difficulty)

	created, err := h.store.CreateSession(ctx, game.NewSession(code, ids, h.settings))
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	h.mu.Lock()
	h.session = created
	h.players = nil
	h.summary = nil
	h.revealInFlight = false
	h.mu.Unlock()

	log.Info().Str("session_id", created.ID).Str("code", created.SessionCode).
		Int("questions", len(created.QuestionIDs)).Msg("session created")
	return created, nil
}

// StartGame transitions lobby -> playing on question 0. It is single-flight:
// a second call while one is in progress is a no-op.
func (h *Host) StartGame(ctx context.Context) error {
	h.mu.Lock()
	if h.session == nil || h.starting {
		h.mu.Unlock()
		return nil
	}
	h.starting = true
	sess := *h.session
	players := make([]models.Player, len(h.players))
	copy(players, h.players)
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		h.starting = false
		h.mu.Unlock()
	}()

	next, plan, err := game.Start(sess, players, h.clock.Now())
	if err != nil {
		return err
	}
	if _, err := h.applyPlan(ctx, sess.ID, plan); err != nil {
		return fmt.Errorf("failed to start game: %w", err)
	}

	h.commit(next)
	return nil
}

// NextQuestion advances past a reveal: either the next question becomes
// active or the session finishes.
func (h *Host) NextQuestion(ctx context.Context) error {
	h.mu.Lock()
	if h.session == nil {
		h.mu.Unlock()
		return nil
	}
	sess := *h.session
	players := make([]models.Player, len(h.players))
	copy(players, h.players)
	h.mu.Unlock()

	next, plan, err := game.Advance(sess, players, h.clock.Now())
	if err != nil {
		return err
	}
	if _, err := h.applyPlan(ctx, sess.ID, plan); err != nil {
		return fmt.Errorf("failed to advance: %w", err)
	}

	h.commit(next)
	return nil
}

// PlayAgain starts a fresh round with the same players, carrying their
// round scores into the cumulative totals.
func (h *Host) PlayAgain(ctx context.Context) error {
	h.mu.Lock()
	if h.session == nil {
		h.mu.Unlock()
		return nil
	}
	sess := *h.session
	players := make([]models.Player, len(h.players))
	copy(players, h.players)
	h.mu.Unlock()

	ids := questions.PickSet(h.settings.TotalQuestions, h.settings.Difficulty)
	next, plan := game.PlayAgain(sess, players, ids)
	if _, err := h.applyPlan(ctx, sess.ID, plan); err != nil {
		return fmt.Errorf("failed to restart: %w", err)
	}

	h.commit(next)
	return nil
}

// ResetGame deletes every player row and the session row. The worst-case
// stuck phase is always recoverable through this path.
func (h *Host) ResetGame(ctx context.Context) error {
	h.mu.Lock()
	if h.session == nil {
		h.mu.Unlock()
		return nil
	}
	sess := *h.session
	players := make([]models.Player, len(h.players))
	copy(players, h.players)
	h.mu.Unlock()

	plan := game.Reset(sess, players)
	if _, err := h.applyPlan(ctx, sess.ID, plan); err != nil {
		return fmt.Errorf("failed to reset: %w", err)
	}

	h.mu.Lock()
	h.epoch++ // invalidate any pending countdown or completion check
	h.stopCountdownLocked()
	h.session = nil
	h.players = nil
	h.summary = nil
	h.revealInFlight = false
	h.mu.Unlock()

	log.Info().Str("session_id", sess.ID).Msg("session reset")
	return nil
}

// commit installs the post-transition session value and, when a question
// became active, opens a new timer epoch for it.
func (h *Host) commit(next models.GameSession) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.session = &next
	switch next.Status {
	case models.StatusPlaying:
		h.summary = nil
		h.revealInFlight = false
		h.activateQuestionLocked(next)
	case models.StatusFinished, models.StatusLobby:
		h.epoch++
		h.revealInFlight = false
		h.stopCountdownLocked()
	}
}

// RunPlayerPoller polls the active player list until ctx is cancelled: every
// 2s while the lobby is idle, every 1s once the game is playing. Each poll
// re-evaluates the all-answered trigger.
func (h *Host) RunPlayerPoller(ctx context.Context) {
	poller := &reconcile.Poller{
		Name:  "host-players",
		Clock: h.clock,
		Interval: func() time.Duration {
			h.mu.Lock()
			defer h.mu.Unlock()
			if h.session != nil && h.session.Status != models.StatusLobby {
				return time.Second
			}
			return 2 * time.Second
		},
		Fetch: h.refreshPlayers,
	}
	poller.Run(ctx)
}

func (h *Host) refreshPlayers(ctx context.Context) error {
	h.mu.Lock()
	if h.session == nil {
		h.mu.Unlock()
		return nil
	}
	sessionID := h.session.ID
	h.mu.Unlock()

	players, err := h.store.FilterPlayers(ctx, store.Filter{
		"session_id": sessionID,
		"is_active":  "true",
	})
	if err != nil {
		return err
	}

	answered := 0
	for _, p := range players {
		if p.HasAnswered() {
			answered++
		}
	}

	h.mu.Lock()
	h.players = players
	fire := h.session != nil &&
		h.session.Status == models.StatusPlaying &&
		!h.revealInFlight &&
		len(players) > 0 && answered == len(players)
	captured := h.epoch
	h.mu.Unlock()

	h.emit(PlayersUpdated{Players: players, Answered: answered})

	if fire {
		h.triggerReveal(ctx, captured)
	}
	return nil
}
