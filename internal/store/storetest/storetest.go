// Package storetest provides an in-memory record store for tests. It applies
// the same last-write-wins partial-update semantics as the real store and can
// simulate vanished records and transport failures.
package storetest

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/mcdev12/neuroswipe/internal/models"
	"github.com/mcdev12/neuroswipe/internal/store"
)

// Op is one observed mutation, recorded in apply order.
type Op struct {
	Kind     string // "create", "update", "delete"
	Entity   string // "GameSession", "Player"
	ID       string
	Snapshot any // value after the mutation, nil for deletes
}

// Store is an in-memory store.Interface.
type Store struct {
	mu       sync.Mutex
	sessions map[string]models.GameSession
	players  map[string]models.Player
	ops      []Op

	// FailNext, when non-nil, is returned for the next mutating call and
	// then cleared.
	FailNext error
	// FailSessionUpdate, when non-nil, is returned for the next
	// UpdateSession call and then cleared.
	FailSessionUpdate error
	// FailPlayerUpdate maps player ids to an error returned once for the
	// next update of that player.
	FailPlayerUpdate map[string]error
}

var _ store.Interface = (*Store)(nil)

func New() *Store {
	return &Store{
		sessions: make(map[string]models.GameSession),
		players:  make(map[string]models.Player),
	}
}

func notFound(entity, id string) error {
	return &store.APIError{
		Status: http.StatusNotFound,
		Body:   fmt.Sprintf("%s %s not found", entity, id),
	}
}

func (s *Store) takeFailure() error {
	err := s.FailNext
	s.FailNext = nil
	return err
}

func (s *Store) record(kind, entity, id string, snapshot any) {
	s.ops = append(s.ops, Op{Kind: kind, Entity: entity, ID: id, Snapshot: snapshot})
}

// Ops returns the mutation log in apply order.
func (s *Store) Ops() []Op {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Op, len(s.ops))
	copy(out, s.ops)
	return out
}

func (s *Store) CreateSession(ctx context.Context, sess models.GameSession) (*models.GameSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return nil, err
	}
	sess.ID = uuid.New().String()
	s.sessions[sess.ID] = sess
	s.record("create", "GameSession", sess.ID, sess)
	return &sess, nil
}

func (s *Store) FilterSessions(ctx context.Context, f store.Filter) ([]models.GameSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.GameSession
	for _, sess := range s.sessions {
		if f["id"] != "" && sess.ID != f["id"] {
			continue
		}
		if f["session_code"] != "" && sess.SessionCode != f["session_code"] {
			continue
		}
		out = append(out, sess)
	}
	return out, nil
}

func (s *Store) UpdateSession(ctx context.Context, id string, patch models.SessionPatch) (*models.GameSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return nil, err
	}
	if err := s.FailSessionUpdate; err != nil {
		s.FailSessionUpdate = nil
		return nil, err
	}
	sess, ok := s.sessions[id]
	if !ok {
		return nil, notFound("GameSession", id)
	}
	if patch.Status != nil {
		sess.Status = *patch.Status
	}
	if patch.QuestionIDs != nil {
		sess.QuestionIDs = *patch.QuestionIDs
	}
	if patch.CurrentQuestionIndex != nil {
		sess.CurrentQuestionIndex = *patch.CurrentQuestionIndex
	}
	if patch.CurrentQuestionStart != nil {
		sess.CurrentQuestionStart = patch.CurrentQuestionStart
	}
	if patch.Votes != nil {
		sess.Votes = *patch.Votes
	}
	s.sessions[id] = sess
	s.record("update", "GameSession", id, sess)
	return &sess, nil
}

func (s *Store) DeleteSession(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return err
	}
	if _, ok := s.sessions[id]; !ok {
		return notFound("GameSession", id)
	}
	delete(s.sessions, id)
	s.record("delete", "GameSession", id, nil)
	return nil
}

func (s *Store) CreatePlayer(ctx context.Context, p models.Player) (*models.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return nil, err
	}
	p.ID = uuid.New().String()
	s.players[p.ID] = p
	s.record("create", "Player", p.ID, p)
	return &p, nil
}

func (s *Store) FilterPlayers(ctx context.Context, f store.Filter) ([]models.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Player
	for _, p := range s.players {
		if f["id"] != "" && p.ID != f["id"] {
			continue
		}
		if f["session_id"] != "" && p.SessionID != f["session_id"] {
			continue
		}
		if f["is_active"] == "true" && !p.IsActive {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *Store) UpdatePlayer(ctx context.Context, id string, patch models.PlayerPatch) (*models.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return nil, err
	}
	if err := s.FailPlayerUpdate[id]; err != nil {
		delete(s.FailPlayerUpdate, id)
		return nil, err
	}
	p, ok := s.players[id]
	if !ok {
		return nil, notFound("Player", id)
	}
	if patch.CurrentAnswer != nil {
		p.CurrentAnswer = *patch.CurrentAnswer
	}
	if patch.Score != nil {
		p.Score = *patch.Score
	}
	if patch.TotalScore != nil {
		p.TotalScore = *patch.TotalScore
	}
	if patch.RoundsPlayed != nil {
		p.RoundsPlayed = *patch.RoundsPlayed
	}
	if patch.AnswersHistory != nil {
		p.AnswersHistory = *patch.AnswersHistory
	}
	if patch.IsActive != nil {
		p.IsActive = *patch.IsActive
	}
	s.players[id] = p
	s.record("update", "Player", id, p)
	return &p, nil
}

func (s *Store) DeletePlayer(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return err
	}
	if _, ok := s.players[id]; !ok {
		return notFound("Player", id)
	}
	delete(s.players, id)
	s.record("delete", "Player", id, nil)
	return nil
}

// GetSession returns a session by id, for assertions.
func (s *Store) GetSession(id string) (models.GameSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

// GetPlayer returns a player by id, for assertions.
func (s *Store) GetPlayer(id string) (models.Player, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[id]
	return p, ok
}

// RemovePlayer deletes a player out-of-band, simulating a row vanishing
// between list and update.
func (s *Store) RemovePlayer(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.players, id)
}
