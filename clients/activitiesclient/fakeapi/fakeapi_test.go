package fakeapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nomis52/activityboard/activity"
)

func serve(t *testing.T, s *Server, method, name, action, email string) (int, map[string]string) {
	t.Helper()
	target := "/activities/" + url.PathEscape(name) + "/" + action + "?email=" + url.QueryEscape(email)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, httptest.NewRequest(method, target, nil))

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

func TestServer_Signup(t *testing.T) {
	s := New(activity.Activity{Name: "Chess Club", MaxParticipants: 2, Participants: []string{"a@x.com"}})

	code, body := serve(t, s, http.MethodPost, "Chess Club", "signup", "b@x.com")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Signed up b@x.com for Chess Club", body["message"])

	code, body = serve(t, s, http.MethodPost, "Chess Club", "signup", "b@x.com")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Student is already signed up", body["detail"])

	code, body = serve(t, s, http.MethodPost, "Chess Club", "signup", "c@x.com")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Activity is full", body["detail"])

	code, body = serve(t, s, http.MethodPost, "Drama", "signup", "c@x.com")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Activity not found", body["detail"])

	chess, ok := s.Collection().Get("Chess Club")
	require.True(t, ok)
	assert.Equal(t, []string{"a@x.com", "b@x.com"}, chess.Participants)
}

func TestServer_Unregister(t *testing.T) {
	s := New(activity.Activity{Name: "Chess Club", MaxParticipants: 2, Participants: []string{"a@x.com", "b@x.com"}})
	before := s.Collection()

	code, body := serve(t, s, http.MethodDelete, "Chess Club", "unregister", "a@x.com")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Unregistered a@x.com from Chess Club", body["message"])

	code, body = serve(t, s, http.MethodDelete, "Chess Club", "unregister", "a@x.com")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Participant not found", body["detail"])

	chess, _ := s.Collection().Get("Chess Club")
	assert.Equal(t, []string{"b@x.com"}, chess.Participants)

	old, _ := before.Get("Chess Club")
	assert.Equal(t, []string{"a@x.com", "b@x.com"}, old.Participants, "snapshots are not changed by later requests")
}
