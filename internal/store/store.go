// Package store provides the durable user/reminder store for bot-telegram.
//
// The whole store is one JSON document on disk. Every mutation updates the
// in-memory document under the store lock and then rewrites the file with
// atomic replace-on-write semantics (temp file + rename), so a crash
// mid-save can never leave a truncated canonical file behind.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/GregPesc/bot-telegram/pkg/models"
)

var (
	// ErrEmptyText rejects reminders with no message body.
	ErrEmptyText = errors.New("reminder text is empty")
	// ErrPastTime rejects reminders whose trigger time is not in the future.
	ErrPastTime = errors.New("reminder time is not in the future")
)

// ClearMode selects which reminders ClearReminders removes.
type ClearMode int

const (
	// ClearAll removes every reminder, active and sent.
	ClearAll ClearMode = iota
	// ClearCompleted removes only reminders that were already delivered.
	ClearCompleted
)

// ClearResult reports what a ClearReminders call did.
type ClearResult struct {
	Removed int
	Outcome string
}

// Due pairs a due reminder with its owning user.
type Due struct {
	UserID   int64
	Reminder models.Reminder
}

// Store is a file-backed user/reminder store. All methods are safe for
// concurrent use; a single mutex serializes every read-modify-write so the
// scheduler tick and inbound handlers never clobber each other's updates.
type Store struct {
	path string

	mu  sync.Mutex
	doc *models.Document

	now func() time.Time
}

// Open reads the document at path. A missing or unparsable file
// initializes an empty document and saves it immediately, so the file
// always exists in a valid state after Open returns.
func Open(path string) (*Store, error) {
	s := &Store{path: path, now: time.Now}

	data, err := os.ReadFile(path)
	if err == nil {
		var doc models.Document
		if jsonErr := json.Unmarshal(data, &doc); jsonErr == nil {
			if doc.Users == nil {
				doc.Users = make(map[string]*models.User)
			}
			s.doc = &doc
			return s, nil
		}
		log.Warn().Str("path", path).Msg("Data file unparsable, reinitializing")
	}

	s.doc = models.NewDocument()
	if err := s.save(); err != nil {
		return nil, fmt.Errorf("initialize %s: %w", path, err)
	}
	return s, nil
}

// Path returns the canonical data file path.
func (s *Store) Path() string {
	return s.path
}

// SetClock overrides the store's time source. Tests only.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

// save writes the document atomically. Callers must hold s.mu.
func (s *Store) save() error {
	data, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal store: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}

// persist saves and logs on failure. In-memory state stays authoritative;
// the next successful save picks the change up.
func (s *Store) persist() error {
	if err := s.save(); err != nil {
		log.Error().Err(err).Str("path", s.path).Msg("Failed to persist store")
		return err
	}
	return nil
}

// Save flushes the current document to disk.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persist()
}

// userKey is the map key for a user id in the persisted document.
func userKey(id int64) string {
	return strconv.FormatInt(id, 10)
}

// getUser returns the live record, inserting a default one if needed.
// Callers must hold s.mu.
func (s *Store) getUser(id int64) *models.User {
	key := userKey(id)
	u, ok := s.doc.Users[key]
	if !ok {
		now := s.now()
		u = &models.User{
			ID:        id,
			FirstSeen: now,
			LastSeen:  now,
			Reminders: []models.Reminder{},
		}
		s.doc.Users[key] = u
	}
	return u
}

// GetUser returns a copy of the user record, creating it lazily on first
// access. The copy is safe to read without holding the store lock.
func (s *Store) GetUser(id int64) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyUser(s.getUser(id))
}

func copyUser(u *models.User) models.User {
	out := *u
	out.Reminders = make([]models.Reminder, len(u.Reminders))
	copy(out.Reminders, u.Reminders)
	return out
}

// UpdateUser merges the partial update into the user record, refreshes
// last-seen, and persists. Set fields win over stored values; nil fields
// are untouched.
func (s *Store) UpdateUser(id int64, upd models.UserUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.getUser(id)
	if upd.FirstName != nil {
		u.FirstName = *upd.FirstName
	}
	if upd.Username != nil {
		u.Username = *upd.Username
	}
	if upd.BumpMessageCount {
		u.MessageCount++
		s.doc.Stats.TotalMessages++
	}
	u.LastSeen = s.now()

	return s.persist()
}

// AddReminder validates and appends a new reminder for the user.
// The trigger time must be strictly in the future.
func (s *Store) AddReminder(userID int64, text string, triggerAt time.Time) (models.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if text == "" {
		return models.Reminder{}, ErrEmptyText
	}
	if !triggerAt.After(s.now()) {
		return models.Reminder{}, ErrPastTime
	}

	r := models.Reminder{
		ID:        uuid.NewString(),
		Text:      text,
		TriggerAt: triggerAt,
	}

	u := s.getUser(userID)
	u.Reminders = append(u.Reminders, r)
	u.LastSeen = s.now()

	if err := s.persist(); err != nil {
		return r, err
	}
	log.Debug().Int64("userId", userID).Str("reminderId", r.ID).Time("triggerAt", triggerAt).Msg("Reminder added")
	return r, nil
}

// DeleteReminder removes at most one reminder by id and reports whether a
// removal happened. Order of the remaining reminders is preserved.
func (s *Store) DeleteReminder(userID int64, reminderID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.getUser(userID)
	for i, r := range u.Reminders {
		if r.ID == reminderID {
			u.Reminders = append(u.Reminders[:i], u.Reminders[i+1:]...)
			return true, s.persist()
		}
	}
	return false, nil
}

// ClearReminders removes reminders according to mode and reports the count
// plus a human-readable outcome. Nothing is persisted when nothing changed.
func (s *Store) ClearReminders(userID int64, mode ClearMode) (ClearResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.getUser(userID)

	var kept []models.Reminder
	removed := 0
	for _, r := range u.Reminders {
		if mode == ClearAll || (mode == ClearCompleted && r.Sent) {
			removed++
			continue
		}
		kept = append(kept, r)
	}

	if removed == 0 {
		return ClearResult{Outcome: "nothing to clear"}, nil
	}

	if kept == nil {
		kept = []models.Reminder{}
	}
	u.Reminders = kept

	res := ClearResult{
		Removed: removed,
		Outcome: fmt.Sprintf("removed %d reminder(s)", removed),
	}
	return res, s.persist()
}

// ListDueUnsent returns every reminder across all users whose trigger time
// has passed and that has not been delivered yet. The scan runs under the
// store lock, so the result is a complete, consistent snapshot.
func (s *Store) ListDueUnsent(now time.Time) []Due {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []Due
	for _, u := range s.doc.Users {
		for _, r := range u.Reminders {
			if r.Due(now) {
				due = append(due, Due{UserID: u.ID, Reminder: r})
			}
		}
	}
	return due
}

// MarkSent flips a reminder's sent flag. Marking an already-sent or
// already-deleted reminder is a no-op, so overlapping scheduler ticks
// cannot double-record a delivery.
func (s *Store) MarkSent(userID int64, reminderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.getUser(userID)
	for i := range u.Reminders {
		if u.Reminders[i].ID == reminderID {
			if u.Reminders[i].Sent {
				return nil
			}
			u.Reminders[i].Sent = true
			return s.persist()
		}
	}
	return nil
}

// Stats returns the persisted global counters.
func (s *Store) Stats() models.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Stats
}

// Counts returns the number of users and the total / unsent reminder
// counts, for the status endpoint.
func (s *Store) Counts() (users, reminders, active int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users = len(s.doc.Users)
	for _, u := range s.doc.Users {
		reminders += len(u.Reminders)
		for _, r := range u.Reminders {
			if !r.Sent {
				active++
			}
		}
	}
	return users, reminders, active
}
