// Package models contains domain models for bot-telegram.
package models

import "time"

// Reminder is a single scheduled note owned by one user.
type Reminder struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	TriggerAt time.Time `json:"trigger_at"`
	Sent      bool      `json:"sent"`
}

// Due returns true when the reminder should be delivered: its trigger
// time has passed and it has not been sent yet.
func (r *Reminder) Due(now time.Time) bool {
	return !r.Sent && !r.TriggerAt.After(now)
}

// User is one chat participant. Users are created lazily on first
// contact and never deleted. Reminders keep insertion order because
// list numbering is derived from it.
type User struct {
	ID           int64      `json:"id"`
	FirstName    string     `json:"first_name,omitempty"`
	Username     string     `json:"username,omitempty"`
	MessageCount int64      `json:"message_count"`
	FirstSeen    time.Time  `json:"first_seen"`
	LastSeen     time.Time  `json:"last_seen"`
	Reminders    []Reminder `json:"reminders"`
}

// ActiveReminders returns the user's unsent reminders in insertion order.
func (u *User) ActiveReminders() []Reminder {
	active := make([]Reminder, 0, len(u.Reminders))
	for _, r := range u.Reminders {
		if !r.Sent {
			active = append(active, r)
		}
	}
	return active
}

// UserUpdate is a partial update applied to a User. Nil fields are
// left untouched; set fields win over the stored value.
type UserUpdate struct {
	FirstName        *string
	Username         *string
	BumpMessageCount bool
}

// Stats holds process-wide counters persisted alongside users.
type Stats struct {
	TotalMessages int64 `json:"total_messages"`
}

// Document is the root of the persisted file: the whole store is one
// JSON document replaced atomically on every save.
type Document struct {
	Users map[string]*User `json:"users"`
	Stats Stats            `json:"stats"`
}

// NewDocument returns an empty document ready for use.
func NewDocument() *Document {
	return &Document{Users: make(map[string]*User)}
}
