package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/sessions"

	"github.com/nomis52/activityboard/board"
	"github.com/nomis52/activityboard/view"
)

const (
	sessionName = "activityboard"
	flashKey    = "status"
)

// Flash is what a mutation hands over to the next page render.
type Flash struct {
	Message board.Message
	// Form is echoed back into the signup form, set when a signup failed.
	Form view.FormValues
}

// flashRecord is the cookie form of a Flash.
type flashRecord struct {
	Text        string `json:"text"`
	Kind        string `json:"kind"`
	CreatedAtMS int64  `json:"created_at_ms"`
	HideAfterMS int64  `json:"hide_after_ms"`
	Email       string `json:"email,omitempty"`
	Activity    string `json:"activity,omitempty"`
}

// FlashStore keeps flashes in a signed and encrypted session cookie.
type FlashStore struct {
	store sessions.Store
	now   func() time.Time
}

// NewFlashStore creates a FlashStore on top of store.
func NewFlashStore(store sessions.Store) *FlashStore {
	return &FlashStore{store: store, now: time.Now}
}

// Add saves f in the session of r. It must be called before the response
// header is written.
func (s *FlashStore) Add(w http.ResponseWriter, r *http.Request, f Flash) error {
	session, err := s.store.Get(r, sessionName)
	if err != nil && session == nil {
		return fmt.Errorf("loading session: %w", err)
	}

	data, err := json.Marshal(flashRecord{
		Text:        f.Message.Text,
		Kind:        string(f.Message.Kind),
		CreatedAtMS: f.Message.CreatedAt.UnixMilli(),
		HideAfterMS: f.Message.HideAfter.Milliseconds(),
		Email:       f.Form.Email,
		Activity:    f.Form.Activity,
	})
	if err != nil {
		return fmt.Errorf("encoding flash: %w", err)
	}

	// Only the latest status is kept.
	session.Flashes(flashKey)
	session.AddFlash(string(data), flashKey)
	return session.Save(r, w)
}

// Pop removes the pending flash from the session of r and returns it. A flash
// whose message has expired is dropped and reported as absent. An unreadable
// session cookie is treated as empty.
func (s *FlashStore) Pop(w http.ResponseWriter, r *http.Request) (Flash, bool, error) {
	session, err := s.store.Get(r, sessionName)
	if err != nil && session == nil {
		return Flash{}, false, fmt.Errorf("loading session: %w", err)
	}

	flashes := session.Flashes(flashKey)
	if len(flashes) == 0 {
		return Flash{}, false, nil
	}
	if err := session.Save(r, w); err != nil {
		return Flash{}, false, fmt.Errorf("saving session: %w", err)
	}

	raw, ok := flashes[len(flashes)-1].(string)
	if !ok {
		return Flash{}, false, nil
	}
	var rec flashRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return Flash{}, false, nil
	}

	f := Flash{
		Message: board.Message{
			Text:      rec.Text,
			Kind:      board.Kind(rec.Kind),
			CreatedAt: time.UnixMilli(rec.CreatedAtMS),
			HideAfter: time.Duration(rec.HideAfterMS) * time.Millisecond,
		},
		Form: view.FormValues{Email: rec.Email, Activity: rec.Activity},
	}
	if f.Message.Expired(s.now()) {
		return Flash{}, false, nil
	}
	return f, true, nil
}
