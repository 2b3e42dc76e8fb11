package service

import (
	"errors"
	"fmt"
	"time"

	"controlling_roaster/internal/port"
)

// MaxInterval is the longest tick the roaster tolerates between polls.
const MaxInterval = time.Second

var (
	ErrInvalidInterval = errors.New("invalid interval: must be > 0 and <= 1s")
	ErrInvalidSerial   = errors.New("invalid serial settings")
)

// StartParams configures one run of the control loop.
type StartParams struct {
	Interval time.Duration
	Port     port.Config
}

// Validate rejects settings the loop cannot run with.
func (p StartParams) Validate() error {
	if p.Interval <= 0 || p.Interval > MaxInterval {
		return fmt.Errorf("%w (got %s)", ErrInvalidInterval, p.Interval)
	}
	if err := p.Port.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSerial, err)
	}
	return nil
}

// LogFilter selects audit events by time range and type.
type LogFilter struct {
	From time.Time // inclusive; zero means no lower bound
	To   time.Time // inclusive; zero means no upper bound
	Type string    // "" or one of the models.Event* types
}
