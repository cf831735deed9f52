package motivation

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kawadia/dad-son-fitness-challenge/internal/domain"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestTimeLeft(t *testing.T) {
	h, m := TimeLeft(time.Date(2025, 3, 10, 21, 15, 30, 0, time.UTC))
	require.Equal(t, 2, h)
	require.Equal(t, 44, m)

	h, m = TimeLeft(time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC))
	require.Equal(t, 23, h)
	require.Equal(t, 59, m)
}

func TestBuildStats(t *testing.T) {
	rec := domain.NewFamilyRecord(time.Now())
	rec.AppendSession(domain.UserDad, "2025-03-10", domain.Session{Exercise: domain.ExerciseSquats, Reps: 150})
	rec.AppendSession(domain.UserSon, "2025-03-10", domain.Session{Exercise: domain.ExercisePushups, Reps: 30})

	s := BuildStats(rec, "2025-03-10", time.Date(2025, 3, 10, 14, 5, 0, 0, time.UTC))
	require.Equal(t, 150, s.DadReps)
	require.Equal(t, 30, s.SonReps)
	require.True(t, s.DadGoalMet)
	require.False(t, s.SonGoalMet)
	require.Equal(t, 9, s.HoursLeft)
	require.Equal(t, "2:05:00 PM", s.CurrentTime)
	require.Equal(t, "Monday, March 10, 2025", s.CurrentDate)
}

func TestFallbackRules(t *testing.T) {
	first := func(int) int { return 0 }

	cases := []struct {
		name  string
		stats Stats
		want  string
	}{
		{"both met", Stats{DadGoalMet: true, SonGoalMet: true}, "Both champions completed their goals! Time for a victory dance!"},
		{"dad met", Stats{DadGoalMet: true, HoursLeft: 5}, "Dad's crushing it! Son, can you catch up with 5h left?"},
		{"son met", Stats{SonGoalMet: true, HoursLeft: 1}, "Son's on fire! Dad, time to show those dad muscles!"},
		{"crunch time", Stats{HoursLeft: 2}, "Crunch time! Every rep counts in the final hours!"},
		{"generic", Stats{HoursLeft: 10}, phrases[0]},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Fallback(tc.stats, first))
		})
	}
}

func TestQuoteUsesProvider(t *testing.T) {
	var got Stats
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"quote":"  Go get them!  "}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second, WithLogger(quietLogger()))
	quote := client.Quote(context.Background(), Stats{DadReps: 12, HoursLeft: 4})
	require.Equal(t, "Go get them!", quote)
	require.Equal(t, 12, got.DadReps)
}

func TestQuoteFallsBackOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second, WithLogger(quietLogger()))
	require.Equal(t, "Crunch time! Every rep counts in the final hours!", client.Quote(context.Background(), Stats{HoursLeft: 1}))
}

func TestQuoteFallsBackOnEmptyQuote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"quote":""}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second, WithPicker(func(int) int { return 1 }), WithLogger(quietLogger()))
	require.Equal(t, phrases[1], client.Quote(context.Background(), Stats{HoursLeft: 8}))
}

func TestQuoteWithoutEndpoint(t *testing.T) {
	client := NewClient("", time.Second)
	require.Equal(t, "Both champions completed their goals! Time for a victory dance!",
		client.Quote(context.Background(), Stats{DadGoalMet: true, SonGoalMet: true}))
}
