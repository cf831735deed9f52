package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNormalizeFamilyID(t *testing.T) {
	cases := map[string]string{
		"Test-Family":   "testfamily",
		"  SMITH 42 ":   "smith42",
		"o'brien_house": "obrienhouse",
	}
	for raw, want := range cases {
		got, err := NormalizeFamilyID(raw)
		require.NoError(t, err, raw)
		require.Equal(t, want, got)
	}

	_, err := NormalizeFamilyID("--- !!")
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestValidateGoalBounds(t *testing.T) {
	require.ErrorIs(t, ValidateGoal(0), ErrInvalidInput)
	require.ErrorIs(t, ValidateGoal(278), ErrInvalidInput)
	require.NoError(t, ValidateGoal(1))
	require.NoError(t, ValidateGoal(277))
}

func TestAppendAndPopAreInverse(t *testing.T) {
	rec := NewFamilyRecord(time.Now())
	rec.EnsureDay("2025-03-01")

	rec.AppendSession(UserDad, "2025-03-01", Session{Exercise: ExerciseSquats, Reps: 100})
	before := rec.Clone()

	day := rec.AppendSession(UserDad, "2025-03-01", Session{Exercise: ExercisePushups, Reps: 41})
	require.Equal(t, 141, day.TotalReps)
	require.True(t, day.GoalMet)

	last, ok := rec.PopSession(UserDad, "2025-03-01")
	require.True(t, ok)
	require.Equal(t, 41, last.Reps)
	require.Equal(t, before, rec)
}

func TestPopOnEmptyDayIsNoop(t *testing.T) {
	rec := NewFamilyRecord(time.Now())
	rec.EnsureDay("2025-03-01")
	before := rec.Clone()

	_, ok := rec.PopSession(UserSon, "2025-03-01")
	require.False(t, ok)
	require.Equal(t, before, rec)
}

func TestSetGoalRegradesBothUsers(t *testing.T) {
	rec := NewFamilyRecord(time.Now())
	rec.EnsureDay("2025-03-01")
	rec.AppendSession(UserSon, "2025-03-01", Session{Exercise: ExerciseSquats, Reps: 50})
	rec.AppendSession(UserDad, "2025-03-01", Session{Exercise: ExerciseSquats, Reps: 10})

	rec.SetGoal("2025-03-01", 50)
	son, _ := rec.Day(UserSon, "2025-03-01")
	dad, _ := rec.Day(UserDad, "2025-03-01")
	require.True(t, son.GoalMet)
	require.False(t, dad.GoalMet)

	rec.SetGoal("2025-03-01", 51)
	son, _ = rec.Day(UserSon, "2025-03-01")
	require.False(t, son.GoalMet)
	require.Equal(t, 51, rec.GoalFor("2025-03-01"))
	require.Equal(t, DefaultDailyGoal, rec.GoalFor("2025-03-02"))
}

func TestCloneIsDeep(t *testing.T) {
	rec := NewFamilyRecord(time.Now())
	rec.AppendSession(UserDad, "2025-03-01", Session{Exercise: ExerciseLunges, Reps: 5})
	rec.SetGoal("2025-03-01", 10)

	cp := rec.Clone()
	cp.AppendSession(UserDad, "2025-03-01", Session{Exercise: ExerciseLunges, Reps: 5})
	cp.DailyGoals["2025-03-01"] = 99

	day, _ := rec.Day(UserDad, "2025-03-01")
	require.Len(t, day.Sessions, 1)
	require.Equal(t, 10, rec.GoalFor("2025-03-01"))
}

func TestFamilyRecordDocumentShape(t *testing.T) {
	rec := NewFamilyRecord(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	rec.AppendSession(UserDad, "2025-03-01", NewSession(ExercisePushups, 25, time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)))

	raw, err := json.Marshal(rec)
	require.NoError(t, err)
	require.JSONEq(t, `{
		"Dad": {"2025-03-01": {"sessions": [{"exercise": "pushups", "reps": 25, "time": "12:00:00 PM", "timestamp": "2025-03-01T12:00:00.000Z"}], "totalReps": 25, "goalMet": false}},
		"Son": {},
		"lastUpdated": "2025-03-01T12:00:00.000Z"
	}`, string(raw))
}

func TestParseUserAndExercise(t *testing.T) {
	u, err := ParseUser("dad")
	require.NoError(t, err)
	require.Equal(t, UserDad, u)

	_, err = ParseUser("Mom")
	require.ErrorIs(t, err, ErrInvalidInput)

	ex, err := ParseExercise("bulgarian squats")
	require.NoError(t, err)
	require.Equal(t, ExerciseBulgarianSquats, ex)

	_, err = ParseExercise("burpees")
	require.ErrorIs(t, err, ErrInvalidInput)
}
