package domain

import (
	"maps"
	"time"
)

// Phase is the coarse position of a conversation in its lifecycle.
type Phase string

const (
	// PhaseGreeting is the state of a freshly created session; the next turn
	// only shows the welcome message and the first question.
	PhaseGreeting Phase = "greeting"
	// PhaseCollecting means questions are being asked and answered.
	PhaseCollecting Phase = "collecting"
	// PhaseDone is reported on the completion reply; the session itself is
	// already gone from the store at that point.
	PhaseDone Phase = "done"
)

// Session holds the slot-filling progress of one conversation.
//
// Answers contains exactly the keys of the fields whose index is below Step.
// Values are either a canonical category name (string) or a float64.
type Session struct {
	ID        string         `json:"id"`
	Answers   map[string]any `json:"answers"`
	Step      int            `json:"step"`
	Phase     Phase          `json:"phase"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// NewSession returns a session in the greeting phase.
func NewSession(id string, now time.Time) *Session {
	return &Session{
		ID:        id,
		Answers:   make(map[string]any),
		Phase:     PhaseGreeting,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a deep copy of the session.
func (s *Session) Clone() *Session {
	c := *s
	c.Answers = maps.Clone(s.Answers)
	if c.Answers == nil {
		c.Answers = make(map[string]any)
	}
	return &c
}

// Number returns the numeric answer stored under key.
func (s *Session) Number(key string) (float64, bool) {
	v, ok := s.Answers[key].(float64)
	return v, ok
}

// Category returns the category answer stored under key.
func (s *Session) Category(key string) (string, bool) {
	v, ok := s.Answers[key].(string)
	return v, ok
}
