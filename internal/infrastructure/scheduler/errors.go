package scheduler

import "errors"

var (
	// ErrSweepInProgress is returned when an audit is requested while another one runs
	ErrSweepInProgress = errors.New("balance audit already in progress")

	// ErrInvalidConfig is returned when configuration is invalid
	ErrInvalidConfig = errors.New("invalid scheduler configuration")
)
