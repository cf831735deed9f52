// Package motivation fetches a daily pep talk for the family and falls back
// to local phrases when the provider is unavailable.
package motivation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/kawadia/dad-son-fitness-challenge/internal/domain"
	"github.com/kawadia/dad-son-fitness-challenge/internal/stats"
)

// Stats is the request body sent to the quote provider.
type Stats struct {
	DadReps     int    `json:"dadReps"`
	SonReps     int    `json:"sonReps"`
	DadGoalMet  bool   `json:"dadGoalMet"`
	SonGoalMet  bool   `json:"sonGoalMet"`
	HoursLeft   int    `json:"hoursLeft"`
	MinutesLeft int    `json:"minutesLeft"`
	CurrentTime string `json:"currentTime"`
	CurrentDate string `json:"currentDate"`
}

// BuildStats summarises today's progress for both users at now.
func BuildStats(rec domain.FamilyRecord, today string, now time.Time) Stats {
	hours, minutes := TimeLeft(now)
	return Stats{
		DadReps:     stats.TodaysProgress(rec, domain.UserDad, today),
		SonReps:     stats.TodaysProgress(rec, domain.UserSon, today),
		DadGoalMet:  stats.GoalMet(rec, domain.UserDad, today),
		SonGoalMet:  stats.GoalMet(rec, domain.UserSon, today),
		HoursLeft:   hours,
		MinutesLeft: minutes,
		CurrentTime: now.Format(domain.TimeLabelLayout),
		CurrentDate: now.Format("Monday, January 2, 2006"),
	}
}

// TimeLeft returns whole hours and remaining minutes until the end of now's day.
func TimeLeft(now time.Time) (hours, minutes int) {
	y, m, d := now.Date()
	end := time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), now.Location())
	left := end.Sub(now)
	if left < 0 {
		return 0, 0
	}
	return int(left / time.Hour), int((left % time.Hour) / time.Minute)
}

var phrases = []string{
	"The family that squats together, stays together! Keep pushing!",
	"Dad vs Son: the ultimate fitness showdown continues!",
	"Every rep counts in this epic father-son battle!",
	"Sweat now, high-five later! You've got this team!",
	fmt.Sprintf("%d reps standing between you and victory!", domain.DefaultDailyGoal),
	"Dad's muscles vs Son's energy: who will win today?",
	"Champions are made one workout at a time!",
	"The only bad workout is the one you didn't do!",
	"Blast off to fitness greatness, team family!",
	"Strong families finish strong together!",
}

// Fallback picks a local phrase for s. pick chooses among the generic
// phrases and receives the list length.
func Fallback(s Stats, pick func(n int) int) string {
	switch {
	case s.DadGoalMet && s.SonGoalMet:
		return "Both champions completed their goals! Time for a victory dance!"
	case s.DadGoalMet:
		return fmt.Sprintf("Dad's crushing it! Son, can you catch up with %dh left?", s.HoursLeft)
	case s.SonGoalMet:
		return "Son's on fire! Dad, time to show those dad muscles!"
	case s.HoursLeft < 3:
		return "Crunch time! Every rep counts in the final hours!"
	}
	if pick == nil {
		pick = rand.Intn
	}
	return phrases[pick(len(phrases))]
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithPicker overrides the random choice among generic phrases.
func WithPicker(pick func(n int) int) Option {
	return func(c *Client) { c.pick = pick }
}

// WithLogger overrides the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Client asks a remote provider for a quote. An empty endpoint always uses the fallback.
type Client struct {
	endpoint string
	http     *http.Client
	pick     func(n int) int
	logger   *slog.Logger
}

// NewClient constructs a Client.
func NewClient(endpoint string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		endpoint: strings.TrimSpace(endpoint),
		http:     &http.Client{Timeout: timeout},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "motivation")
	return c
}

// Quote never fails; provider errors are logged and replaced by Fallback.
func (c *Client) Quote(ctx context.Context, s Stats) string {
	if c.endpoint == "" {
		return Fallback(s, c.pick)
	}
	quote, err := c.fetch(ctx, s)
	if err != nil {
		c.logger.Warn("quote provider failed", "error", err)
		return Fallback(s, c.pick)
	}
	if quote == "" {
		return Fallback(s, c.pick)
	}
	return quote
}

func (c *Client) fetch(ctx context.Context, s Stats) (string, error) {
	body, err := json.Marshal(s)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("quote provider status %d: %s", resp.StatusCode, data)
	}

	var payload struct {
		Quote string `json:"quote"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", err
	}
	return strings.TrimSpace(payload.Quote), nil
}
