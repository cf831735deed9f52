// Package domain defines the family workout ledger model.
package domain

import "errors"

var (
	// ErrInvalidInput is returned when a mutation is rejected before touching state.
	ErrInvalidInput = errors.New("invalid input")
	// ErrTransport wraps failures reported by the sync bridge.
	ErrTransport = errors.New("sync transport failure")
	// ErrNotFound indicates no family document exists yet.
	ErrNotFound = errors.New("family not found")
	// ErrNotConnected is returned when a family has no live ledger.
	ErrNotConnected = errors.New("family not connected")
)
