package api

import (
	"time"

	"github.com/kawadia/dad-son-fitness-challenge/internal/domain"
	"github.com/kawadia/dad-son-fitness-challenge/internal/ledger"
	"github.com/kawadia/dad-son-fitness-challenge/internal/motivation"
	"github.com/kawadia/dad-son-fitness-challenge/internal/stats"
)

// ConnectFamilyRequest is the payload for POST /v1/families.
type ConnectFamilyRequest struct {
	FamilyID string `json:"family_id"`
}

// AddSessionRequest is the payload for POST .../users/{user}/sessions.
type AddSessionRequest struct {
	Exercise string `json:"exercise"`
	Reps     int    `json:"reps"`
}

// SetGoalRequest is the payload for PUT .../goals/{date}.
type SetGoalRequest struct {
	Goal int `json:"goal"`
}

// SelectUserRequest is the payload for PUT /v1/device/user.
type SelectUserRequest struct {
	User string `json:"user"`
}

// UserProgress describes one user's standing on the current date.
type UserProgress struct {
	User     domain.User      `json:"user"`
	Date     string           `json:"date"`
	Reps     int              `json:"reps"`
	Goal     int              `json:"goal"`
	GoalMet  bool             `json:"goal_met"`
	Streak   int              `json:"streak"`
	CanUndo  bool             `json:"can_undo"`
	Sessions []domain.Session `json:"sessions"`
}

// CelebrationView is present while a goal celebration is active.
type CelebrationView struct {
	User domain.User `json:"user"`
	At   time.Time   `json:"at"`
}

// FamilyView is the full state of a connected family.
type FamilyView struct {
	FamilyID    string                       `json:"family_id"`
	Today       string                       `json:"today"`
	Goal        int                          `json:"goal"`
	Users       map[domain.User]UserProgress `json:"users"`
	Celebration *CelebrationView             `json:"celebration,omitempty"`
	Record      domain.FamilyRecord          `json:"record"`
}

// AddSessionResponse describes the response body for a logged session.
type AddSessionResponse struct {
	Session  domain.Session `json:"session"`
	Progress UserProgress   `json:"progress"`
}

// UndoResponse describes the response body for undo. Removed is null when the day was empty.
type UndoResponse struct {
	Removed  *domain.Session `json:"removed"`
	Progress UserProgress    `json:"progress"`
}

// GoalView reports the goal active on a date.
type GoalView struct {
	Date string `json:"date"`
	Goal int    `json:"goal"`
}

// ChartResponse carries per-day totals, oldest first.
type ChartResponse struct {
	Days   int           `json:"days"`
	Points []stats.Point `json:"points"`
}

// QuoteResponse carries the motivational line and the figures it was based on.
type QuoteResponse struct {
	Quote string           `json:"quote"`
	Stats motivation.Stats `json:"stats"`
}

// DeviceView exposes this device's stored preferences.
type DeviceView struct {
	FamilyID     string      `json:"family_id,omitempty"`
	SelectedUser domain.User `json:"selected_user,omitempty"`
}

func toUserProgress(view ledger.View, u domain.User) UserProgress {
	return UserProgress{
		User:     u,
		Date:     view.Today,
		Reps:     stats.TodaysProgress(view.Record, u, view.Today),
		Goal:     view.Record.GoalFor(view.Today),
		GoalMet:  stats.GoalMet(view.Record, u, view.Today),
		Streak:   stats.Streak(view.Record, u, view.Today),
		CanUndo:  stats.CanUndo(view.Record, u, view.Today),
		Sessions: stats.TodaysSessions(view.Record, u, view.Today),
	}
}

func toFamilyView(view ledger.View) FamilyView {
	out := FamilyView{
		FamilyID: view.FamilyID,
		Today:    view.Today,
		Goal:     view.Record.GoalFor(view.Today),
		Users:    make(map[domain.User]UserProgress, len(domain.Users)),
		Record:   view.Record,
	}
	for _, u := range domain.Users {
		out.Users[u] = toUserProgress(view, u)
	}
	if view.Celebration != nil {
		out.Celebration = &CelebrationView{User: view.Celebration.User, At: view.Celebration.At}
	}
	return out
}
