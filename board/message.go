package board

import "time"

// Kind is the styling of a status message.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

// Message is a transient status message.
type Message struct {
	Text      string
	Kind      Kind
	CreatedAt time.Time
	HideAfter time.Duration
}

// IsZero reports whether m carries no message.
func (m Message) IsZero() bool {
	return m.Text == "" && m.Kind == ""
}

// Expired reports whether m should no longer be shown at now.
func (m Message) Expired(now time.Time) bool {
	if m.HideAfter <= 0 {
		return false
	}
	return !now.Before(m.CreatedAt.Add(m.HideAfter))
}

// Remaining returns how long m is still visible at now, never negative.
func (m Message) Remaining(now time.Time) time.Duration {
	if m.HideAfter <= 0 {
		return 0
	}
	d := m.CreatedAt.Add(m.HideAfter).Sub(now)
	if d < 0 {
		return 0
	}
	return d
}
