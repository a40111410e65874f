package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound     = errors.New("not found")
	ErrNoRun        = errors.New("no run stored")
	ErrInvalidLimit = errors.New("invalid leaderboard limit")
)
