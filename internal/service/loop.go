package service

import (
	"context"
	"errors"
	"time"

	"controlling_roaster/internal/logger"
	"controlling_roaster/internal/metrics"
	"controlling_roaster/internal/models"
	"controlling_roaster/internal/protocol"
	"controlling_roaster/internal/safety"
	"controlling_roaster/internal/state"
)

// FramePort is what the loop needs from the serial line. *port.Manager
// satisfies it.
type FramePort interface {
	ReadFrame() ([]byte, error)
	WriteFrame(b []byte) error
	Close()
}

// ControlLoop polls the roaster, keeps the shared state current and sends
// commands. It is the only user of its port.
type ControlLoop struct {
	port     FramePort
	state    *state.Shared
	audit    AuditRecorder
	log      *logger.Logger
	metrics  *metrics.Metrics
	interval time.Duration
	now      func() time.Time

	readFailing bool
}

// NewControlLoop wires a loop. audit may be nil when no audit log is kept.
func NewControlLoop(p FramePort, st *state.Shared, audit AuditRecorder, log *logger.Logger, m *metrics.Metrics, interval time.Duration) *ControlLoop {
	if log == nil {
		log = logger.Nop()
	}
	if m == nil {
		m = metrics.New()
	}
	return &ControlLoop{
		port:     p,
		state:    st,
		audit:    audit,
		log:      log,
		metrics:  m,
		interval: interval,
		now:      time.Now,
	}
}

// Run ticks at the configured interval until ctx is canceled. The port is
// closed before Run returns.
func (l *ControlLoop) Run(ctx context.Context) {
	defer l.port.Close()

	t := time.NewTicker(l.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			l.Tick(ctx)
		}
	}
}

// Tick performs one read/decide/write cycle. Faults are logged and counted,
// never returned.
func (l *ControlLoop) Tick(ctx context.Context) {
	l.metrics.Tick()

	fresh := models.None[float64]()
	frame, err := l.readFrame()
	if err != nil {
		if !l.readFailing {
			l.log.Warnw("frame_read_failed", "err", err)
		}
		l.readFailing = true
	} else {
		if l.readFailing {
			l.log.Infow("frame_read_recovered")
		}
		l.readFailing = false

		l.state.Apply(frame, l.now())
		fresh = models.Some(float64(frame.BT))
		if bt := l.state.BT(); bt.Valid {
			et := l.state.Reading().ET
			l.metrics.Temperatures(bt.Value, et.Or(0))
		}
	}

	if cmd, tripped := safety.Evaluate(fresh, l.state.BT()); tripped {
		// the override goes out before anything else happens on this tick
		l.send(protocol.EncodeControlFrame(protocol.ControlCommand{}, cmd), metrics.ReasonSafety)
		if !l.state.SetTripped(true) {
			bt := l.state.BT()
			l.log.Warnw("safety_cutoff_engaged", "bt_c", bt.Value, "cutoff_c", safety.CutoffC)
			l.metrics.SafetyTrip()
			l.record(ctx, models.EventSafetyCutoff, "Bean temperature reached cutoff; override sent",
				map[string]any{"bt_c": bt.Value, "cutoff_c": safety.CutoffC})
		}
		return
	}
	cleared := l.state.SetTripped(false)

	if l.state.Engaged() {
		l.send(protocol.EncodeControlFrame(l.state.Observed(), l.state.Requested()), metrics.ReasonControl)
	}
	if cleared {
		l.log.Infow("safety_cutoff_cleared")
		l.record(ctx, models.EventSafetyCleared, "Bean temperature back below cutoff", nil)
	}
}

// readFrame reads and decodes one frame. A malformed or undersized frame
// closes the port and is retried once; a port that cannot be opened is not.
func (l *ControlLoop) readFrame() (protocol.SensorFrame, error) {
	f, err := l.readOnce()
	if err == nil || !retryable(err) {
		return f, err
	}
	l.port.Close()
	l.metrics.ReadRetry()
	l.log.Debugw("frame_read_retry", "err", err)
	return l.readOnce()
}

func (l *ControlLoop) readOnce() (protocol.SensorFrame, error) {
	b, err := l.port.ReadFrame()
	if err != nil {
		l.metrics.FrameFault(err)
		return protocol.SensorFrame{}, err
	}
	f, err := protocol.DecodeSensorFrame(b)
	if err != nil {
		l.metrics.FrameFault(err)
		return protocol.SensorFrame{}, err
	}
	return f, nil
}

func retryable(err error) bool {
	return errors.Is(err, protocol.ErrFraming) ||
		errors.Is(err, protocol.ErrChecksum) ||
		errors.Is(err, protocol.ErrShortRead)
}

func (l *ControlLoop) send(frame []byte, reason string) {
	if err := l.port.WriteFrame(frame); err != nil {
		l.metrics.WriteFault()
		l.log.Debugw("frame_write_failed", "reason", reason, "err", err)
		return
	}
	l.metrics.CommandSent(reason)
}

func (l *ControlLoop) record(ctx context.Context, typ, desc string, meta map[string]any) {
	if l.audit != nil {
		l.audit.Record(ctx, typ, desc, meta)
	}
}
