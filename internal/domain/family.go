package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	// DefaultDailyGoal applies to any date without an override.
	DefaultDailyGoal = 141
	// MinDailyGoal is the smallest accepted override.
	MinDailyGoal = 1
	// MaxDailyGoal is the exclusive upper bound for overrides.
	MaxDailyGoal = 278

	// DateLayout formats local calendar date keys.
	DateLayout = "2006-01-02"
	// TimestampLayout matches the ISO-8601 UTC form stored with each session.
	TimestampLayout = "2006-01-02T15:04:05.000Z07:00"
	// TimeLabelLayout is the wall-clock label shown next to a session.
	TimeLabelLayout = "3:04:05 PM"
)

// Session is one logged exercise event.
type Session struct {
	Exercise  Exercise `json:"exercise"`
	Reps      int      `json:"reps"`
	Time      string   `json:"time"`
	Timestamp string   `json:"timestamp"`
}

// NewSession stamps a session with the local time label and UTC timestamp of now.
func NewSession(exercise Exercise, reps int, now time.Time) Session {
	return Session{
		Exercise:  exercise,
		Reps:      reps,
		Time:      now.Format(TimeLabelLayout),
		Timestamp: now.UTC().Format(TimestampLayout),
	}
}

// DayRecord holds one user's sessions for one calendar date.
type DayRecord struct {
	Sessions  []Session `json:"sessions"`
	TotalReps int       `json:"totalReps"`
	GoalMet   bool      `json:"goalMet"`
}

func (d *DayRecord) append(s Session, goal int) {
	d.Sessions = append(d.Sessions, s)
	d.TotalReps += s.Reps
	d.GoalMet = d.TotalReps >= goal
}

func (d *DayRecord) popLast(goal int) (Session, bool) {
	if len(d.Sessions) == 0 {
		return Session{}, false
	}
	last := d.Sessions[len(d.Sessions)-1]
	d.Sessions = d.Sessions[:len(d.Sessions)-1]
	d.TotalReps -= last.Reps
	d.GoalMet = d.TotalReps >= goal
	return last, true
}

func (d DayRecord) clone() DayRecord {
	out := d
	out.Sessions = make([]Session, len(d.Sessions))
	copy(out.Sessions, d.Sessions)
	return out
}

// UserLedger maps date keys to a user's day records.
type UserLedger map[string]DayRecord

// FamilyRecord is the persisted document shared by both users.
type FamilyRecord struct {
	Dad         UserLedger     `json:"Dad"`
	Son         UserLedger     `json:"Son"`
	LastUpdated string         `json:"lastUpdated"`
	DailyGoals  map[string]int `json:"dailyGoals,omitempty"`
}

// NewFamilyRecord returns an empty record stamped with now.
func NewFamilyRecord(now time.Time) FamilyRecord {
	return FamilyRecord{
		Dad:         UserLedger{},
		Son:         UserLedger{},
		LastUpdated: now.UTC().Format(TimestampLayout),
	}
}

// Ledger returns the ledger for u, or nil for an unknown user.
func (r FamilyRecord) Ledger(u User) UserLedger {
	switch u {
	case UserDad:
		return r.Dad
	case UserSon:
		return r.Son
	}
	return nil
}

func (r *FamilyRecord) ledgerRef(u User) *UserLedger {
	var ref *UserLedger
	switch u {
	case UserDad:
		ref = &r.Dad
	case UserSon:
		ref = &r.Son
	default:
		return nil
	}
	if *ref == nil {
		*ref = UserLedger{}
	}
	return ref
}

// Day returns the record for u on date.
func (r FamilyRecord) Day(u User, date string) (DayRecord, bool) {
	day, ok := r.Ledger(u)[date]
	return day, ok
}

// GoalFor returns the active goal for date.
func (r FamilyRecord) GoalFor(date string) int {
	if goal, ok := r.DailyGoals[date]; ok && goal > 0 {
		return goal
	}
	return DefaultDailyGoal
}

// EnsureDay creates an empty record for each user missing one on date.
// It reports whether anything was added.
func (r *FamilyRecord) EnsureDay(date string) bool {
	added := false
	for _, u := range Users {
		ledger := r.ledgerRef(u)
		if _, ok := (*ledger)[date]; !ok {
			(*ledger)[date] = DayRecord{Sessions: []Session{}}
			added = true
		}
	}
	return added
}

// AppendSession adds s to u's record on date and regrades it.
func (r *FamilyRecord) AppendSession(u User, date string, s Session) DayRecord {
	ledger := r.ledgerRef(u)
	day := (*ledger)[date]
	day.append(s, r.GoalFor(date))
	(*ledger)[date] = day
	return day
}

// PopSession removes the most recent session for u on date.
func (r *FamilyRecord) PopSession(u User, date string) (Session, bool) {
	ledger := r.ledgerRef(u)
	day, ok := (*ledger)[date]
	if !ok {
		return Session{}, false
	}
	last, popped := day.popLast(r.GoalFor(date))
	if popped {
		(*ledger)[date] = day
	}
	return last, popped
}

// SetGoal stores an override for date and regrades both users' records on that date.
func (r *FamilyRecord) SetGoal(date string, goal int) {
	if r.DailyGoals == nil {
		r.DailyGoals = make(map[string]int)
	}
	r.DailyGoals[date] = goal
	for _, u := range Users {
		ledger := r.ledgerRef(u)
		if day, ok := (*ledger)[date]; ok {
			day.GoalMet = day.TotalReps >= goal
			(*ledger)[date] = day
		}
	}
}

// Touch stamps LastUpdated.
func (r *FamilyRecord) Touch(now time.Time) {
	r.LastUpdated = now.UTC().Format(TimestampLayout)
}

// Clone returns a deep copy safe to hand to another goroutine.
func (r FamilyRecord) Clone() FamilyRecord {
	out := FamilyRecord{
		Dad:         cloneLedger(r.Dad),
		Son:         cloneLedger(r.Son),
		LastUpdated: r.LastUpdated,
	}
	if r.DailyGoals != nil {
		out.DailyGoals = make(map[string]int, len(r.DailyGoals))
		for date, goal := range r.DailyGoals {
			out.DailyGoals[date] = goal
		}
	}
	return out
}

// DecodeFamilyRecord parses a stored or published family document.
func DecodeFamilyRecord(body []byte) (FamilyRecord, error) {
	var rec FamilyRecord
	if err := json.Unmarshal(body, &rec); err != nil {
		return FamilyRecord{}, fmt.Errorf("decode family document: %w", err)
	}
	if rec.Dad == nil {
		rec.Dad = UserLedger{}
	}
	if rec.Son == nil {
		rec.Son = UserLedger{}
	}
	return rec, nil
}

func cloneLedger(in UserLedger) UserLedger {
	out := make(UserLedger, len(in))
	for date, day := range in {
		out[date] = day.clone()
	}
	return out
}

// ValidateReps rejects non-positive rep counts.
func ValidateReps(reps int) error {
	if reps <= 0 {
		return fmt.Errorf("%w: reps must be > 0", ErrInvalidInput)
	}
	return nil
}

// ValidateGoal enforces MinDailyGoal <= goal < MaxDailyGoal.
func ValidateGoal(goal int) error {
	if goal < MinDailyGoal || goal >= MaxDailyGoal {
		return fmt.Errorf("%w: goal must be between %d and %d", ErrInvalidInput, MinDailyGoal, MaxDailyGoal-1)
	}
	return nil
}

// DateKey formats t as a local calendar date in loc.
func DateKey(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(DateLayout)
}

// ParseDateKey validates a YYYY-MM-DD key.
func ParseDateKey(raw string) (string, error) {
	parsed, err := time.Parse(DateLayout, strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidInput)
	}
	return parsed.Format(DateLayout), nil
}

// NormalizeFamilyID lowercases raw and strips everything outside [a-z0-9].
func NormalizeFamilyID(raw string) (string, error) {
	var b strings.Builder
	for _, r := range strings.ToLower(raw) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("%w: family id is required", ErrInvalidInput)
	}
	return b.String(), nil
}
