// Package fakeapi is an in-memory implementation of the activities API for tests
// and local development.
//
// It mirrors the observable contract of the real backend: the activity collection
// is returned as a JSON object keyed by name, mutations answer {"message": ...} on
// success and {"detail": ...} on failure.
//
//	api := fakeapi.New(fakeapi.DefaultActivities()...)
//	ts := httptest.NewServer(api)
//	defer ts.Close()
package fakeapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"sync"

	"github.com/nomis52/activityboard/activity"
)

// Server is a fake activities API. It is safe for concurrent use.
type Server struct {
	mu         sync.Mutex
	activities activity.Collection
	requests   []string
	failList   bool

	mux *http.ServeMux
}

// New creates a Server holding a copy of the given activities.
func New(activities ...activity.Activity) *Server {
	s := &Server{}
	for _, a := range activities {
		a.Participants = slices.Clone(a.Participants)
		s.update(a)
	}

	s.mux = http.NewServeMux()
	s.mux.HandleFunc("GET /activities", s.handleList)
	s.mux.HandleFunc("POST /activities/{name}/signup", s.handleSignup)
	s.mux.HandleFunc("DELETE /activities/{name}/unregister", s.handleUnregister)
	return s
}

// DefaultActivities returns the sample data the backend ships with.
func DefaultActivities() []activity.Activity {
	return []activity.Activity{
		{
			Name:            "Chess Club",
			Description:     "Learn strategies and compete in chess tournaments",
			Schedule:        "Fridays, 3:30 PM - 5:00 PM",
			MaxParticipants: 12,
			Participants:    []string{"michael@mergington.edu", "daniel@mergington.edu"},
		},
		{
			Name:            "Programming Class",
			Description:     "Learn programming fundamentals and build software projects",
			Schedule:        "Tuesdays and Thursdays, 3:30 PM - 4:30 PM",
			MaxParticipants: 20,
			Participants:    []string{"emma@mergington.edu", "sophia@mergington.edu"},
		},
		{
			Name:            "Gym Class",
			Description:     "Physical education and sports activities",
			Schedule:        "Mondays, Wednesdays, Fridays, 2:00 PM - 3:00 PM",
			MaxParticipants: 30,
			Participants:    []string{"john@mergington.edu", "olivia@mergington.edu"},
		},
	}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.requests = append(s.requests, r.Method+" "+r.URL.RequestURI())
	s.mu.Unlock()

	s.mux.ServeHTTP(w, r)
}

// SetFailList makes GET /activities fail with a non-JSON 500 response.
func (s *Server) SetFailList(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failList = fail
}

// Requests returns the "METHOD /request-uri" lines received so far.
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.requests)
}

// Collection returns a snapshot of the current state.
func (s *Server) Collection() activity.Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

func (s *Server) snapshot() activity.Collection {
	out := make([]activity.Activity, 0, s.activities.Len())
	for _, a := range s.activities.All() {
		a.Participants = slices.Clone(a.Participants)
		out = append(out, a)
	}
	return activity.NewCollection(out...)
}

// update replaces the activity with the same name, or appends a new one.
// Participant slices are never modified in place once stored.
func (s *Server) update(a activity.Activity) {
	s.activities = activity.NewCollection(append(s.activities.All(), a)...)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	fail := s.failList
	c := s.snapshot()
	s.mu.Unlock()

	if fail {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	email := r.URL.Query().Get("email")

	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.activities.Get(name)
	if !ok {
		writeDetail(w, http.StatusNotFound, "Activity not found")
		return
	}
	if email == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "Email is required")
		return
	}
	if a.HasParticipant(email) {
		writeDetail(w, http.StatusBadRequest, "Student is already signed up")
		return
	}
	if len(a.Participants) >= a.MaxParticipants {
		writeDetail(w, http.StatusBadRequest, "Activity is full")
		return
	}

	a.Participants = append(slices.Clone(a.Participants), email)
	s.update(a)
	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Signed up %s for %s", email, name),
	})
}

func (s *Server) handleUnregister(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	email := r.URL.Query().Get("email")

	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.activities.Get(name)
	if !ok {
		writeDetail(w, http.StatusNotFound, "Activity not found")
		return
	}
	if !a.HasParticipant(email) {
		writeDetail(w, http.StatusNotFound, "Participant not found")
		return
	}

	a.Participants = slices.DeleteFunc(slices.Clone(a.Participants), func(p string) bool { return p == email })
	s.update(a)
	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Unregistered %s from %s", email, name),
	})
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
