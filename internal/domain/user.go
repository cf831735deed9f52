package domain

import (
	"fmt"
	"strings"
)

// User is one of the two fixed family members.
type User string

const (
	UserDad User = "Dad"
	UserSon User = "Son"
)

// Users lists family members in their fixed processing order.
var Users = []User{UserDad, UserSon}

// ParseUser accepts the user name case-insensitively.
func ParseUser(raw string) (User, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "dad":
		return UserDad, nil
	case "son":
		return UserSon, nil
	}
	return "", fmt.Errorf("%w: unknown user %q", ErrInvalidInput, raw)
}

// Valid reports whether u is Dad or Son.
func (u User) Valid() bool {
	return u == UserDad || u == UserSon
}

// Exercise is one of the loggable movements.
type Exercise string

const (
	ExerciseSquats          Exercise = "squats"
	ExerciseSitUps          Exercise = "sit-ups"
	ExercisePushups         Exercise = "pushups"
	ExerciseBulgarianSquats Exercise = "Bulgarian squats"
	ExerciseLunges          Exercise = "lunges"
)

// Exercises lists the selectable exercises in display order.
var Exercises = []Exercise{
	ExerciseSquats,
	ExerciseSitUps,
	ExercisePushups,
	ExerciseBulgarianSquats,
	ExerciseLunges,
}

// ParseExercise matches an exercise name, ignoring case and surrounding space.
func ParseExercise(raw string) (Exercise, error) {
	trimmed := strings.TrimSpace(raw)
	for _, ex := range Exercises {
		if strings.EqualFold(string(ex), trimmed) {
			return ex, nil
		}
	}
	return "", fmt.Errorf("%w: unknown exercise %q", ErrInvalidInput, raw)
}
