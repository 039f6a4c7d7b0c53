package board

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nomis52/activityboard/activity"
	"github.com/nomis52/activityboard/clients/activitiesclient"
	"github.com/nomis52/activityboard/metrics"
)

type mockAPI struct {
	collection activity.Collection
	listErr    error

	signupMsg string
	signupErr error

	unregisterMsg string
	unregisterErr error

	calls []string
}

func (m *mockAPI) List(ctx context.Context) (activity.Collection, error) {
	m.calls = append(m.calls, "list")
	return m.collection, m.listErr
}

func (m *mockAPI) Signup(ctx context.Context, name, email string) (string, error) {
	m.calls = append(m.calls, fmt.Sprintf("signup %s %s", name, email))
	return m.signupMsg, m.signupErr
}

func (m *mockAPI) Unregister(ctx context.Context, name, email string) (string, error) {
	m.calls = append(m.calls, fmt.Sprintf("unregister %s %s", name, email))
	return m.unregisterMsg, m.unregisterErr
}

var transportErr = fmt.Errorf("%w: dial tcp: connection refused", activitiesclient.ErrTransport)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestLoad(t *testing.T) {
	api := &mockAPI{
		collection: activity.NewCollection(
			activity.Activity{Name: "Chess Club", Description: "d", Schedule: "Mon", MaxParticipants: 2, Participants: []string{"a@x.com"}},
			activity.Activity{Name: "Art Club", Description: "paint", Schedule: "Wed", MaxParticipants: 10},
		),
	}
	ctrl := New(api, WithLogger(testLogger()))

	listing := ctrl.Load(context.Background())

	assert.False(t, listing.Failed())
	assert.Equal(t, []string{PlaceholderOption, "Chess Club", "Art Club"}, listing.Options)
	assert.Equal(t, []string{"Chess Club", "Art Club"}, listing.ActivityOptions())
	require.Len(t, listing.Cards, 2)

	chess := listing.Cards[0]
	assert.Equal(t, "Chess Club", chess.Name)
	assert.Equal(t, "d", chess.Description)
	assert.Equal(t, "Mon", chess.Schedule)
	assert.Equal(t, 1, chess.SpotsLeft)
	assert.Equal(t, 1, chess.ParticipantCount())
	assert.Equal(t, []string{"a@x.com"}, chess.Participants)

	art := listing.Cards[1]
	assert.Equal(t, 10, art.SpotsLeft)
	assert.Equal(t, 0, art.ParticipantCount())
}

func TestLoad_Failure(t *testing.T) {
	api := &mockAPI{listErr: transportErr}
	ctrl := New(api, WithLogger(testLogger()))

	listing := ctrl.Load(context.Background())

	assert.True(t, listing.Failed())
	assert.Equal(t, LoadFailedText, listing.Error)
	assert.Empty(t, listing.Cards)
	assert.Equal(t, []string{PlaceholderOption}, listing.Options)
	assert.Empty(t, listing.ActivityOptions())
}

func TestSubmitSignup(t *testing.T) {
	now := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		msg      string
		err      error
		wantText string
		wantKind Kind
	}{
		{
			name:     "success uses server message",
			msg:      "Signed up a@x.com for Chess Club",
			wantText: "Signed up a@x.com for Chess Club",
			wantKind: KindSuccess,
		},
		{
			name:     "server detail",
			err:      &activitiesclient.APIError{StatusCode: http.StatusBadRequest, Detail: "Already signed up"},
			wantText: "Already signed up",
			wantKind: KindError,
		},
		{
			name:     "server error without detail",
			err:      &activitiesclient.APIError{StatusCode: http.StatusInternalServerError},
			wantText: SignupFallbackText,
			wantKind: KindError,
		},
		{
			name:     "transport failure",
			err:      transportErr,
			wantText: SignupFailedText,
			wantKind: KindError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &mockAPI{signupMsg: tt.msg, signupErr: tt.err}
			ctrl := New(api, WithLogger(testLogger()), WithClock(fixedClock(now)))

			got := ctrl.SubmitSignup(context.Background(), "a@x.com", "Chess Club")

			assert.Equal(t, tt.wantText, got.Text)
			assert.Equal(t, tt.wantKind, got.Kind)
			assert.Equal(t, now, got.CreatedAt)
			assert.Equal(t, 5*time.Second, got.HideAfter)
			assert.Equal(t, []string{"signup Chess Club a@x.com"}, api.calls)
		})
	}
}

func TestRemoveParticipant(t *testing.T) {
	tests := []struct {
		name     string
		msg      string
		err      error
		wantText string
		wantKind Kind
	}{
		{
			name:     "success",
			msg:      "Unregistered a@x.com from Chess Club",
			wantText: "Unregistered a@x.com from Chess Club",
			wantKind: KindSuccess,
		},
		{
			name:     "not found detail",
			err:      &activitiesclient.APIError{StatusCode: http.StatusNotFound, Detail: "Participant not found"},
			wantText: "Participant not found",
			wantKind: KindError,
		},
		{
			name:     "blank detail falls back",
			err:      &activitiesclient.APIError{StatusCode: http.StatusNotFound, Detail: "  "},
			wantText: RemoveFailedText,
			wantKind: KindError,
		},
		{
			name:     "transport failure",
			err:      transportErr,
			wantText: RemoveFailedText,
			wantKind: KindError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &mockAPI{unregisterMsg: tt.msg, unregisterErr: tt.err}
			ctrl := New(api, WithLogger(testLogger()))

			got := ctrl.RemoveParticipant(context.Background(), "Chess Club", "a@x.com")

			assert.Equal(t, tt.wantText, got.Text)
			assert.Equal(t, tt.wantKind, got.Kind)
			assert.Equal(t, MessageTTL, got.HideAfter)
			assert.Equal(t, []string{"unregister Chess Club a@x.com"}, api.calls)
		})
	}
}

func TestRemoveParticipant_BlankInputAborts(t *testing.T) {
	api := &mockAPI{}
	ctrl := New(api, WithLogger(testLogger()))

	assert.True(t, ctrl.RemoveParticipant(context.Background(), "", "a@x.com").IsZero())
	assert.True(t, ctrl.RemoveParticipant(context.Background(), "Chess Club", "").IsZero())
	assert.Empty(t, api.calls)
}

func TestWithMessageTTL(t *testing.T) {
	api := &mockAPI{signupMsg: "ok"}
	ctrl := New(api, WithLogger(testLogger()), WithMessageTTL(2*time.Second))

	got := ctrl.SubmitSignup(context.Background(), "a@x.com", "Chess Club")
	assert.Equal(t, 2*time.Second, got.HideAfter)
}

func TestConfirmPrompt(t *testing.T) {
	assert.Equal(t, "Remove a@x.com from Chess Club?", ConfirmPrompt("Chess Club", "a@x.com"))
}

func TestMessage_Expiry(t *testing.T) {
	created := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	m := Message{Text: "x", Kind: KindSuccess, CreatedAt: created, HideAfter: MessageTTL}

	assert.False(t, m.Expired(created))
	assert.False(t, m.Expired(created.Add(4999*time.Millisecond)))
	assert.True(t, m.Expired(created.Add(5*time.Second)))
	assert.True(t, m.Expired(created.Add(time.Minute)))

	assert.Equal(t, 5*time.Second, m.Remaining(created))
	assert.Equal(t, 2*time.Second, m.Remaining(created.Add(3*time.Second)))
	assert.Equal(t, time.Duration(0), m.Remaining(created.Add(time.Hour)))

	forever := Message{Text: "x", CreatedAt: created}
	assert.False(t, forever.Expired(created.Add(time.Hour)))
	assert.True(t, Message{}.IsZero())
	assert.False(t, m.IsZero())
}

func TestMetrics_CountsOutcomes(t *testing.T) {
	reg, err := metrics.NewScrapeRegistry()
	require.NoError(t, err)
	m, err := NewMetrics(reg)
	require.NoError(t, err)

	api := &mockAPI{signupErr: &activitiesclient.APIError{StatusCode: 400, Detail: "nope"}}
	ctrl := New(api, WithLogger(testLogger()), WithMetrics(m))
	ctx := context.Background()

	ctrl.Load(ctx)
	ctrl.SubmitSignup(ctx, "a@x.com", "Chess Club")
	api.unregisterErr = transportErr
	ctrl.RemoveParticipant(ctx, "Chess Club", "a@x.com")

	families, err := reg.PrometheusRegistry().Gather()
	require.NoError(t, err)

	got := map[string]float64{}
	for _, f := range families {
		if f.GetName() != "api_requests_total" {
			continue
		}
		for _, metric := range f.GetMetric() {
			labels := map[string]string{}
			for _, l := range metric.GetLabel() {
				labels[l.GetName()] = l.GetValue()
			}
			got[labels["operation"]+"/"+labels["outcome"]] = metric.GetCounter().GetValue()
		}
	}

	assert.Equal(t, map[string]float64{
		"list/ok":                    1,
		"signup/rejected":            1,
		"unregister/transport_error": 1,
	}, got)
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "ok", outcome(nil))
	assert.Equal(t, "rejected", outcome(fmt.Errorf("wrapped: %w", &activitiesclient.APIError{StatusCode: 400})))
	assert.Equal(t, "transport_error", outcome(errors.New("boom")))
}
