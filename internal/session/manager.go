// Package session provides per-user conversation state for bot-telegram.
//
// Sessions live only in process memory: losing them on restart costs the
// user one interrupted dialog, nothing more. Durable state belongs to the
// store.
package session

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/GregPesc/bot-telegram/pkg/models"
)

// ConfirmKeyword is the one-shot keyword that authorizes a bulk clear.
// Compared case-insensitively; any other reply cancels.
const ConfirmKeyword = "CONFIRM"

// Kind discriminates the mutually exclusive session flows.
type Kind int

const (
	// KindCreate is the two-step reminder creation dialog.
	KindCreate Kind = iota
	// KindDelete awaits a 1-based index into a snapshot of active reminders.
	KindDelete
	// KindClear awaits the destructive-clear confirmation keyword.
	KindClear
)

// CreateStep tracks progress through the creation dialog.
type CreateStep int

const (
	// StepAwaitingText waits for the reminder message body.
	StepAwaitingText CreateStep = iota
	// StepAwaitingDateTime waits for "HH:MM DD/MM/YYYY".
	StepAwaitingDateTime
)

// Session is one user's open dialog. At most one exists per user;
// beginning a new one discards the old one.
type Session struct {
	Kind      Kind
	Step      CreateStep
	DraftText string
	// Snapshot pins the reminder list shown at prompt time, so a deletion
	// index always targets what the user actually saw even if the store
	// changed before the reply arrived.
	Snapshot []models.Reminder
}

// Status classifies the outcome of an Advance call.
type Status int

const (
	// NeedsMoreInput keeps the session open; the caller prompts for the
	// next piece.
	NeedsMoreInput Status = iota
	// Completed closes the session with a value for the caller to commit.
	Completed
	// Rejected closes the session; the input failed validation and the
	// user must restart the flow.
	Rejected
)

// Rejection reasons reported in Result.Reason.
const (
	ReasonBadDateTime = "bad_datetime"
	ReasonPastTime    = "past_time"
	ReasonBadIndex    = "bad_index"
	ReasonCancelled   = "cancelled"
)

// Draft is the committed value of a completed creation flow.
type Draft struct {
	Text      string
	TriggerAt time.Time
}

// Result is the outcome of advancing a session with one input.
type Result struct {
	Status Status
	Reason string

	// Draft is set when a creation flow completes.
	Draft *Draft
	// DeleteID is set when a deletion flow completes. It is the reminder
	// identifier, not the index: the store may have changed since the
	// prompt.
	DeleteID string
	// Confirmed is set when a clear flow completes with the keyword.
	Confirmed bool
}

// Manager owns the per-user session map. Safe for concurrent use.
type Manager struct {
	mu       sync.Mutex
	sessions map[int64]*Session
	now      func() time.Time
}

// NewManager creates an empty session manager.
func NewManager() *Manager {
	return &Manager{
		sessions: make(map[int64]*Session),
		now:      time.Now,
	}
}

// SetClock overrides the manager's time source. Tests only.
func (m *Manager) SetClock(now func() time.Time) {
	m.now = now
}

// BeginCreate opens a creation dialog, replacing any open session.
func (m *Manager) BeginCreate(userID int64) {
	m.begin(userID, &Session{Kind: KindCreate, Step: StepAwaitingText})
}

// BeginDelete opens a deletion dialog over a snapshot of the user's
// active reminders as shown at prompt time.
func (m *Manager) BeginDelete(userID int64, snapshot []models.Reminder) {
	m.begin(userID, &Session{Kind: KindDelete, Snapshot: snapshot})
}

// BeginClear opens the destructive-clear confirmation gate.
func (m *Manager) BeginClear(userID int64) {
	m.begin(userID, &Session{Kind: KindClear})
}

func (m *Manager) begin(userID int64, s *Session) {
	m.mu.Lock()
	if _, open := m.sessions[userID]; open {
		log.Debug().Int64("userId", userID).Msg("Replacing open session")
	}
	m.sessions[userID] = s
	m.mu.Unlock()
}

// Current returns a copy of the user's open session, if any.
func (m *Manager) Current(userID int64) (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID]
	if !ok {
		return Session{}, false
	}
	return *s, true
}

// End discards the user's session. Ending a missing session is a no-op.
func (m *Manager) End(userID int64) {
	m.mu.Lock()
	delete(m.sessions, userID)
	m.mu.Unlock()
}

// Count returns the number of open sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Advance feeds one inbound text into the user's open session and returns
// the transition. The second return is false when no session is open.
// Completed and Rejected both close the session.
func (m *Manager) Advance(userID int64, input string) (Result, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[userID]
	if !ok {
		return Result{}, false
	}

	var res Result
	switch s.Kind {
	case KindCreate:
		res = m.advanceCreate(s, input)
	case KindDelete:
		res = advanceDelete(s, input)
	case KindClear:
		res = advanceClear(input)
	}

	if res.Status != NeedsMoreInput {
		delete(m.sessions, userID)
	}
	return res, true
}

func (m *Manager) advanceCreate(s *Session, input string) Result {
	switch s.Step {
	case StepAwaitingText:
		text := strings.TrimSpace(input)
		if text == "" {
			return Result{Status: NeedsMoreInput}
		}
		s.DraftText = text
		s.Step = StepAwaitingDateTime
		return Result{Status: NeedsMoreInput}

	default: // StepAwaitingDateTime
		triggerAt, err := ParseDateTime(input)
		if err != nil {
			return Result{Status: Rejected, Reason: ReasonBadDateTime}
		}
		if !triggerAt.After(m.now()) {
			return Result{Status: Rejected, Reason: ReasonPastTime}
		}
		return Result{
			Status: Completed,
			Draft:  &Draft{Text: s.DraftText, TriggerAt: triggerAt},
		}
	}
}

func advanceDelete(s *Session, input string) Result {
	idx, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil || idx < 1 || idx > len(s.Snapshot) {
		return Result{Status: Rejected, Reason: ReasonBadIndex}
	}
	return Result{Status: Completed, DeleteID: s.Snapshot[idx-1].ID}
}

func advanceClear(input string) Result {
	if strings.EqualFold(strings.TrimSpace(input), ConfirmKeyword) {
		return Result{Status: Completed, Confirmed: true}
	}
	return Result{Status: Rejected, Reason: ReasonCancelled}
}
