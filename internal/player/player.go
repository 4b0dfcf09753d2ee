// Package player runs a player device: join a lobby by code, answer each
// question at most once, and derive reveal results from polled snapshots.
package player

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/neuroswipe/internal/models"
	"github.com/mcdev12/neuroswipe/internal/questions"
	"github.com/mcdev12/neuroswipe/internal/reconcile"
	"github.com/mcdev12/neuroswipe/internal/store"
)

var (
	// ErrSessionNotFound means the join code resolved to no session.
	ErrSessionNotFound = errors.New("game not found, check the code and try again")
	// ErrAlreadyStarted means the session exists but has left the lobby.
	ErrAlreadyStarted = errors.New("this game has already started")
	// ErrNameRequired means the join form was submitted without a name.
	ErrNameRequired = errors.New("a display name is required")
)

// Avatars is the fixed emoji set players choose from.
var Avatars = []string{"🧠", "💕", "💜", "🦋", "✨", "🌸", "💫", "🎀", "🌺", "💝", "🌷", "💖"}

// DisplayCountdownSeconds is the player-side countdown length. The original
// client pins this to 30s instead of reading the host's timer_seconds; the
// mismatch is display-only since reveals are driven entirely by the host.
const DisplayCountdownSeconds = 30

const (
	sessionPollInterval = 800 * time.Millisecond
	playerPollInterval  = time.Second
)

// ParseJoinCode extracts the session code from a join URL, or returns the
// input uppercased if it is already a bare code.
func ParseJoinCode(raw string) string {
	if u, err := url.Parse(raw); err == nil {
		if code := u.Query().Get("code"); code != "" {
			return strings.ToUpper(code)
		}
	}
	return strings.ToUpper(strings.TrimSpace(raw))
}

// Event is an asynchronous notification for the rendering layer.
type Event interface {
	isPlayerEvent()
}

// QuestionShown means a new question is active and the device may answer.
type QuestionShown struct {
	Index    int
	Question questions.Question
}

// ResultShown is delivered at most once per question when the host reveals.
// Answered is false when this device never answered (no vibration, no
// history entry; absence, not a wrong answer).
type ResultShown struct {
	Index    int
	Answered bool
	Answer   models.Answer
	Correct  bool
}

// RoundFinished means the run is over and the leaderboard is on the host
// screen.
type RoundFinished struct {
	Score      int
	TotalScore int
}

// BackInLobby means the host chose to play another round.
type BackInLobby struct{}

func (QuestionShown) isPlayerEvent() {}
func (ResultShown) isPlayerEvent()   {}
func (RoundFinished) isPlayerEvent() {}
func (BackInLobby) isPlayerEvent()   {}

// Device is one joined player.
type Device struct {
	store store.Interface
	clock clockwork.Clock

	mu          sync.Mutex
	self        models.Player
	session     models.GameSession
	tracker     *reconcile.Tracker
	hasAnswered bool
	lastAnswer  models.Answer

	events chan Event
}

// Join validates the code and name, resolves the session and creates the
// player row. Codes are matched uppercased; duplicate names and avatars are
// allowed.
func Join(ctx context.Context, st store.Interface, clock clockwork.Clock, code, name, avatar string) (*Device, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, ErrSessionNotFound
	}
	if strings.TrimSpace(name) == "" {
		return nil, ErrNameRequired
	}
	if avatar == "" {
		avatar = Avatars[0]
	}

	sessions, err := st.FilterSessions(ctx, store.Filter{"session_code": code})
	if err != nil {
		return nil, fmt.Errorf("failed to look up session: %w", err)
	}
	if len(sessions) == 0 {
		return nil, ErrSessionNotFound
	}
	sess := sessions[0]
	if sess.Status != models.StatusLobby {
		return nil, ErrAlreadyStarted
	}

	created, err := st.CreatePlayer(ctx, models.Player{
		SessionID:      sess.ID,
		Name:           name,
		AvatarEmoji:    avatar,
		IsActive:       true,
		CurrentAnswer:  models.AnswerNone,
		Score:          0,
		AnswersHistory: []models.HistoryEntry{},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to join session: %w", err)
	}

	log.Info().Str("session_id", sess.ID).Str("player_id", created.ID).
		Str("name", name).Msg("joined session")

	return &Device{
		store:   st,
		clock:   clock,
		self:    *created,
		session: sess,
		tracker: reconcile.NewTracker(),
		events:  make(chan Event, 16),
	}, nil
}

// Events delivers asynchronous notifications. Sends never block.
func (d *Device) Events() <-chan Event {
	return d.events
}

func (d *Device) emit(ev Event) {
	select {
	case d.events <- ev:
	default:
	}
}

// Self returns the current player record.
func (d *Device) Self() models.Player {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.self
}

// Session returns the last observed session snapshot.
func (d *Device) Session() models.GameSession {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.session
}

// SubmitAnswer writes the player's classification for the active question.
// Only the first answer per question is accepted; later calls are no-ops.
func (d *Device) SubmitAnswer(ctx context.Context, answer models.Answer) error {
	d.mu.Lock()
	if d.hasAnswered || d.session.Status != models.StatusPlaying {
		d.mu.Unlock()
		return nil
	}
	d.hasAnswered = true
	d.lastAnswer = answer
	playerID := d.self.ID
	d.mu.Unlock()

	a := answer
	if _, err := d.store.UpdatePlayer(ctx, playerID, models.PlayerPatch{CurrentAnswer: &a}); err != nil {
		// Let the player retry; the write never reached the store.
		d.mu.Lock()
		d.hasAnswered = false
		d.lastAnswer = models.AnswerNone
		d.mu.Unlock()
		return fmt.Errorf("failed to submit answer: %w", err)
	}
	return nil
}

// Run polls the session record (~0.8s) and the player's own record (~1s)
// until ctx is cancelled.
func (d *Device) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		p := &reconcile.Poller{
			Name:     "player-session",
			Clock:    d.clock,
			Interval: reconcile.FixedInterval(sessionPollInterval),
			Fetch:    d.pollSession,
		}
		p.Run(ctx)
	}()

	go func() {
		defer wg.Done()
		p := &reconcile.Poller{
			Name:     "player-self",
			Clock:    d.clock,
			Interval: reconcile.FixedInterval(playerPollInterval),
			Fetch:    d.pollSelf,
		}
		p.Run(ctx)
	}()

	wg.Wait()
}

func (d *Device) pollSession(ctx context.Context) error {
	d.mu.Lock()
	sessionID := d.session.ID
	d.mu.Unlock()

	sessions, err := d.store.FilterSessions(ctx, store.Filter{"id": sessionID})
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		// Host reset the game; keep the last known state on screen.
		return nil
	}
	d.observe(sessions[0])
	return nil
}

func (d *Device) pollSelf(ctx context.Context) error {
	d.mu.Lock()
	playerID := d.self.ID
	d.mu.Unlock()

	players, err := d.store.FilterPlayers(ctx, store.Filter{"id": playerID})
	if err != nil {
		return err
	}
	if len(players) == 0 {
		return nil
	}
	d.mu.Lock()
	d.self = players[0]
	d.mu.Unlock()
	return nil
}

// observe reconciles one polled session snapshot into local state. Every
// snapshot is authoritative-as-of-read; intermediate states the poller never
// saw are not assumed.
func (d *Device) observe(sess models.GameSession) {
	d.mu.Lock()
	events := d.tracker.Observe(sess)
	d.session = sess

	var out []Event
	for _, ev := range events {
		switch ev := ev.(type) {
		case reconcile.QuestionStarted:
			d.hasAnswered = false
			d.lastAnswer = models.AnswerNone
			if q, ok := d.questionAt(sess, ev.Index); ok {
				out = append(out, QuestionShown{Index: ev.Index, Question: q})
			}
		case reconcile.RevealStarted:
			q, ok := d.questionAt(sess, ev.Index)
			if !ok {
				continue
			}
			result := ResultShown{Index: ev.Index}
			if d.lastAnswer != models.AnswerNone {
				result.Answered = true
				result.Answer = d.lastAnswer
				result.Correct = d.lastAnswer == q.Correct
			}
			out = append(out, result)
		case reconcile.GameFinished:
			out = append(out, RoundFinished{
				Score:      d.self.Score,
				TotalScore: d.self.TotalScore + d.self.Score,
			})
		case reconcile.ReturnedToLobby:
			d.hasAnswered = false
			d.lastAnswer = models.AnswerNone
			out = append(out, BackInLobby{})
		}
	}
	d.mu.Unlock()

	for _, ev := range out {
		d.emit(ev)
	}
}

func (d *Device) questionAt(sess models.GameSession, index int) (questions.Question, bool) {
	if index < 0 || index >= len(sess.QuestionIDs) {
		return questions.Question{}, false
	}
	return questions.ByID(sess.QuestionIDs[index])
}
