// Package export renders the whole family ledger as a flat table.
package export

import (
	"sort"
	"strconv"
	"time"

	"github.com/kawadia/dad-son-fitness-challenge/internal/domain"
)

// Header is the first row of every export.
var Header = []string{"Date", "User", "Exercise", "Reps", "Time", "Daily Total", "Goal Met"}

// Rows flattens rec into table rows, Dad before Son and dates ascending.
// Daily Total and Goal Met appear only on the first row of each day.
// A day without sessions yields a single "No workouts" row.
func Rows(rec domain.FamilyRecord) [][]string {
	rows := [][]string{}
	for _, u := range domain.Users {
		ledger := rec.Ledger(u)
		dates := make([]string, 0, len(ledger))
		for date := range ledger {
			dates = append(dates, date)
		}
		sort.Strings(dates)

		for _, date := range dates {
			day := ledger[date]
			total := strconv.Itoa(day.TotalReps)
			met := yesNo(day.GoalMet)
			if len(day.Sessions) == 0 {
				rows = append(rows, []string{date, string(u), "No workouts", "0", "", total, met})
				continue
			}
			for i, s := range day.Sessions {
				row := []string{date, string(u), string(s.Exercise), strconv.Itoa(s.Reps), s.Time, "", ""}
				if i == 0 {
					row[5], row[6] = total, met
				}
				rows = append(rows, row)
			}
		}
	}
	return rows
}

// Filename returns the download name for an export taken on date.
func Filename(date time.Time, ext string) string {
	return "fitness-data-" + date.Format(domain.DateLayout) + "." + ext
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}
