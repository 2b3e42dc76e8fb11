package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"controlling_roaster/internal/logger"
	"controlling_roaster/internal/metrics"
	"controlling_roaster/internal/models"
	"controlling_roaster/internal/port"
	"controlling_roaster/internal/state"
)

// ErrNotRunning is returned by control operations when no loop is allocated.
var ErrNotRunning = errors.New("roaster loop is not running")

// loopRun is one started loop and the state it owns.
type loopRun struct {
	state  *state.Shared
	cancel context.CancelFunc
	done   chan struct{}
}

// RoasterService starts and stops the control loop and hands callers the
// state of the current run. Lifecycle calls are serialized; reads never block
// on them.
type RoasterService struct {
	audit   AuditRecorder
	opener  port.Opener
	log     *logger.Logger
	metrics *metrics.Metrics

	mu  sync.Mutex
	run atomic.Pointer[loopRun]
}

func NewRoasterService(audit AuditRecorder, opener port.Opener, log *logger.Logger, m *metrics.Metrics) *RoasterService {
	if log == nil {
		log = logger.Nop()
	}
	if m == nil {
		m = metrics.New()
	}
	return &RoasterService{
		audit:   audit,
		opener:  opener,
		log:     log.Named("roaster"),
		metrics: m,
	}
}

// Start stops any running loop, allocates fresh state and launches a new loop.
// Rejected params leave nothing running. The loop outlives ctx; only Stop
// ends it.
func (s *RoasterService) Start(ctx context.Context, p StartParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopLocked() {
		s.log.Infow("roaster_stopped", "reason", "restart")
		s.record(ctx, models.EventStop, "Control loop stopped for restart", nil)
	}
	if err := p.Validate(); err != nil {
		return err
	}

	st := state.New()
	pm := port.NewManager(p.Port, s.opener, s.log.Named("port"))
	loop := NewControlLoop(pm, st, s.audit, s.log.Named("loop"), s.metrics, p.Interval)

	runCtx, cancel := context.WithCancel(context.Background())
	r := &loopRun{
		state:  st,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	s.run.Store(r)

	go func() {
		defer close(r.done)
		loop.Run(runCtx)
	}()

	s.log.Infow("roaster_started", "port", p.Port.Name, "interval", p.Interval.String())
	s.record(ctx, models.EventStart, "Control loop started", map[string]any{
		"port":        p.Port.Name,
		"baud_rate":   p.Port.BaudRate,
		"interval_ms": p.Interval.Milliseconds(),
	})
	return nil
}

// Stop ends the running loop and waits until the port is released. Calling it
// with nothing running is a no-op.
func (s *RoasterService) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.stopLocked() {
		return nil
	}
	s.log.Infow("roaster_stopped")
	s.record(ctx, models.EventStop, "Control loop stopped", nil)
	return nil
}

// stopLocked cancels the current run and waits for its goroutine. Reports
// whether anything was running.
func (s *RoasterService) stopLocked() bool {
	r := s.run.Swap(nil)
	if r == nil {
		return false
	}
	r.cancel()
	<-r.done
	return true
}

// EngageControl lets staged set-points reach the device.
func (s *RoasterService) EngageControl(ctx context.Context) error {
	return s.setEngaged(ctx, true)
}

// DisengageControl stops sending set-points. The safety override still applies.
func (s *RoasterService) DisengageControl(ctx context.Context) error {
	return s.setEngaged(ctx, false)
}

func (s *RoasterService) setEngaged(ctx context.Context, v bool) error {
	r := s.run.Load()
	if r == nil {
		return ErrNotRunning
	}
	if prev := r.state.SetEngaged(v); prev == v {
		return nil
	}
	if v {
		s.log.Infow("control_engaged")
		s.record(ctx, models.EventEngage, "External control engaged", nil)
	} else {
		s.log.Infow("control_disengaged")
		s.record(ctx, models.EventDisengage, "External control disengaged", nil)
	}
	return nil
}

// RequestSetpoints stages set-points for the next tick.
func (s *RoasterService) RequestSetpoints(ctx context.Context, req state.SetpointRequest) error {
	r := s.run.Load()
	if r == nil {
		return ErrNotRunning
	}
	if req.Empty() {
		return nil
	}
	r.state.Request(req)
	s.record(ctx, models.EventSetpoints, "Set-points requested", setpointMetadata(req))
	return nil
}

// Reading returns the latest sensor values, all unavailable when idle.
func (s *RoasterService) Reading() models.Reading {
	r := s.run.Load()
	if r == nil {
		return models.Reading{}
	}
	return r.state.Reading()
}

// State returns a full snapshot of the current run.
func (s *RoasterService) State() models.RoasterState {
	r := s.run.Load()
	if r == nil {
		return models.RoasterState{}
	}
	snap := r.state.Snapshot()
	snap.Running = true
	return snap
}

func (s *RoasterService) record(ctx context.Context, typ, desc string, meta map[string]any) {
	if s.audit != nil {
		s.audit.Record(ctx, typ, desc, meta)
	}
}

func setpointMetadata(r state.SetpointRequest) map[string]any {
	m := map[string]any{}
	if r.Heater != nil {
		m["heater"] = *r.Heater
	}
	if r.Fan != nil {
		m["fan"] = *r.Fan
	}
	if r.MainFan != nil {
		m["main_fan"] = *r.MainFan
	}
	if r.Solenoid != nil {
		m["solenoid"] = *r.Solenoid
	}
	if r.DrumMotor != nil {
		m["drum_motor"] = *r.DrumMotor
	}
	if r.CoolingMotor != nil {
		m["cooling_motor"] = *r.CoolingMotor
	}
	return m
}
