// Package reconcile turns polled snapshots into local phase-transition
// events. Polling delivers snapshots, not events, and a slow poller may skip
// intermediate states entirely (question k playing straight to k+1 playing),
// so edges are derived purely from (status, index) pairs and every snapshot
// is treated as authoritative-as-of-read.
package reconcile

import (
	"github.com/mcdev12/neuroswipe/internal/models"
)

// Snapshot is the part of a session record edge detection cares about.
type Snapshot struct {
	Status        models.SessionStatus
	QuestionIndex int
	Known         bool // false until the first poll lands
}

// SnapshotOf extracts a Snapshot from a session record.
func SnapshotOf(s models.GameSession) Snapshot {
	return Snapshot{Status: s.Status, QuestionIndex: s.CurrentQuestionIndex, Known: true}
}

// Event is a derived phase-transition edge.
type Event interface {
	isEvent()
}

// QuestionStarted fires when a question becomes active: status is playing
// and either the index changed or the previous status was not playing.
type QuestionStarted struct {
	Index int
}

// RevealStarted fires when the host has revealed the answer for Index.
type RevealStarted struct {
	Index int
}

// GameFinished fires when the session reaches its terminal status.
type GameFinished struct{}

// ReturnedToLobby fires on a play-again, when the session re-enters the
// lobby from a later phase.
type ReturnedToLobby struct{}

func (QuestionStarted) isEvent() {}
func (RevealStarted) isEvent()   {}
func (GameFinished) isEvent()    {}
func (ReturnedToLobby) isEvent() {}

// Diff derives the edges between two successive snapshots. It is pure and
// transport-free; identical snapshots produce no events, so re-polling the
// same state is harmless.
func Diff(prev, next Snapshot) []Event {
	var events []Event

	switch next.Status {
	case models.StatusPlaying:
		if !prev.Known || next.QuestionIndex != prev.QuestionIndex || prev.Status != models.StatusPlaying {
			events = append(events, QuestionStarted{Index: next.QuestionIndex})
		}
	case models.StatusRevealing:
		if !prev.Known || prev.Status != models.StatusRevealing || next.QuestionIndex != prev.QuestionIndex {
			events = append(events, RevealStarted{Index: next.QuestionIndex})
		}
	case models.StatusFinished:
		if !prev.Known || prev.Status != models.StatusFinished {
			events = append(events, GameFinished{})
		}
	case models.StatusLobby:
		if prev.Known && prev.Status != models.StatusLobby {
			events = append(events, ReturnedToLobby{})
		}
	}

	return events
}

// Tracker adds at-most-once reveal delivery on top of Diff: a slow or
// repeated poll never re-triggers result handling for an index that was
// already processed. A play-again resets the guard so the next run's
// question 0 reveals again.
type Tracker struct {
	prev            Snapshot
	processedReveal int
}

// NewTracker returns a Tracker with no observed snapshot yet.
func NewTracker() *Tracker {
	return &Tracker{processedReveal: -1}
}

// Observe feeds the next polled session record and returns the derived
// events, deduplicating reveals per question index.
func (t *Tracker) Observe(s models.GameSession) []Event {
	next := SnapshotOf(s)
	raw := Diff(t.prev, next)
	t.prev = next

	events := raw[:0]
	for _, ev := range raw {
		switch ev := ev.(type) {
		case RevealStarted:
			if ev.Index == t.processedReveal {
				continue
			}
			t.processedReveal = ev.Index
		case ReturnedToLobby:
			t.processedReveal = -1
		}
		events = append(events, ev)
	}
	return events
}
