// Package stats computes read-only projections over a family record.
package stats

import (
	"sort"
	"time"

	"github.com/kawadia/dad-son-fitness-challenge/internal/domain"
)

// TodaysProgress returns u's total reps on today, or 0 when no record exists.
func TodaysProgress(rec domain.FamilyRecord, u domain.User, today string) int {
	day, ok := rec.Day(u, today)
	if !ok {
		return 0
	}
	return day.TotalReps
}

// TodaysSessions returns u's sessions on today in chronological order.
func TodaysSessions(rec domain.FamilyRecord, u domain.User, today string) []domain.Session {
	day, ok := rec.Day(u, today)
	if !ok || len(day.Sessions) == 0 {
		return []domain.Session{}
	}
	out := make([]domain.Session, len(day.Sessions))
	copy(out, day.Sessions)
	return out
}

// CanUndo reports whether u has at least one session today.
func CanUndo(rec domain.FamilyRecord, u domain.User, today string) bool {
	day, ok := rec.Day(u, today)
	return ok && len(day.Sessions) > 0
}

// GoalMet reports whether u has reached today's goal.
func GoalMet(rec domain.FamilyRecord, u domain.User, today string) bool {
	day, ok := rec.Day(u, today)
	return ok && day.GoalMet
}

// Streak counts consecutive goal-met days, newest first. An unmet today is
// skipped rather than treated as a break; the first unmet earlier day ends the count.
func Streak(rec domain.FamilyRecord, u domain.User, today string) int {
	ledger := rec.Ledger(u)
	dates := make([]string, 0, len(ledger))
	for date := range ledger {
		dates = append(dates, date)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))

	streak := 0
	for _, date := range dates {
		if ledger[date].GoalMet {
			streak++
			continue
		}
		if date == today {
			continue
		}
		break
	}
	return streak
}

// Point is one date in a chart series.
type Point struct {
	Date string `json:"date"`
	Dad  int    `json:"dad"`
	Son  int    `json:"son"`
}

// Series returns per-user totals for the days ending on today, oldest first.
func Series(rec domain.FamilyRecord, today string, days int) []Point {
	if days <= 0 {
		return []Point{}
	}
	end, err := time.Parse(domain.DateLayout, today)
	if err != nil {
		return []Point{}
	}

	points := make([]Point, 0, days)
	for i := days - 1; i >= 0; i-- {
		date := end.AddDate(0, 0, -i).Format(domain.DateLayout)
		points = append(points, Point{
			Date: date,
			Dad:  TodaysProgress(rec, domain.UserDad, date),
			Son:  TodaysProgress(rec, domain.UserSon, date),
		})
	}
	return points
}
