package service

import (
	"context"
	"time"

	"controlling_roaster/internal/logger"
	"controlling_roaster/internal/metrics"
	"controlling_roaster/internal/models"
	"controlling_roaster/internal/port"
	"controlling_roaster/internal/repository"
	"controlling_roaster/internal/state"
)

type Authorization interface {
	SignUp(ctx context.Context, username, password string) (int, error)
	GenerateToken(ctx context.Context, username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
}

// Roaster is the control plane of the serial control loop. None of its
// methods wait on the device.
type Roaster interface {
	Start(ctx context.Context, p StartParams) error
	Stop(ctx context.Context) error
	EngageControl(ctx context.Context) error
	DisengageControl(ctx context.Context) error
	RequestSetpoints(ctx context.Context, r state.SetpointRequest) error
	Reading() models.Reading
	State() models.RoasterState
}

// EventLog exposes the audit log with filtering.
type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]models.RoasterEvent, error)
}

type Service struct {
	Roaster
	EventLog
	Authorization

	audit *EventLogService
}

// Options carries the non-repository dependencies.
type Options struct {
	Opener     port.Opener // nil: real serial driver
	Logger     *logger.Logger
	Metrics    *metrics.Metrics
	SigningKey string
	TokenTTL   time.Duration
}

func NewService(repos *repository.Repository, opts Options) *Service {
	audit := NewEventLogService(repos.EventRepo, opts.Logger, opts.Metrics)
	return &Service{
		Roaster:       NewRoasterService(audit, opts.Opener, opts.Logger, opts.Metrics),
		EventLog:      audit,
		Authorization: NewAuthService(repos.Auth, opts.SigningKey, opts.TokenTTL),
		audit:         audit,
	}
}

// Close flushes the audit log. Stop the roaster first so its STOP event is
// kept.
func (s *Service) Close() {
	s.audit.Close()
}
