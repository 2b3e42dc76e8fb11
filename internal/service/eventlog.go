package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"controlling_roaster/internal/logger"
	"controlling_roaster/internal/metrics"
	"controlling_roaster/internal/models"
	"controlling_roaster/internal/repository"

	"github.com/google/uuid"
)

var (
	errInvalidTimeRange = errors.New("invalid time range: From must be <= To")

	// ErrUnknownEventType is returned for a type filter outside the audit vocabulary.
	ErrUnknownEventType = errors.New("unknown event type")
)

var knownEventTypes = map[string]struct{}{
	models.EventStart:         {},
	models.EventStop:          {},
	models.EventEngage:        {},
	models.EventDisengage:     {},
	models.EventSetpoints:     {},
	models.EventSafetyCutoff:  {},
	models.EventSafetyCleared: {},
}

// AuditRecorder is how the roaster and its loop write to the audit log.
type AuditRecorder interface {
	Record(ctx context.Context, typ, description string, metadata map[string]any)
}

const (
	auditQueueSize     = 64
	auditAppendTimeout = 5 * time.Second
)

// EventLogService is the audit log of control actions and safety trips.
// Record only queues; one worker goroutine does the writes.
type EventLogService struct {
	eventRepo repository.EventRepo
	log       *logger.Logger
	metrics   *metrics.Metrics
	now       func() time.Time

	mu     sync.RWMutex // guards closed against sends on queue
	closed bool
	queue  chan queuedEvent
	done   chan struct{}
}

type queuedEvent struct {
	ctx context.Context
	ev  models.RoasterEvent
}

// NewEventLogService starts the writer. Close stops it after draining.
func NewEventLogService(eventRepo repository.EventRepo, log *logger.Logger, m *metrics.Metrics) *EventLogService {
	if log == nil {
		log = logger.Nop()
	}
	if m == nil {
		m = metrics.New()
	}
	s := &EventLogService{
		eventRepo: eventRepo,
		log:       log.Named("audit"),
		metrics:   m,
		now:       time.Now,
		queue:     make(chan queuedEvent, auditQueueSize),
		done:      make(chan struct{}),
	}
	if eventRepo == nil {
		close(s.done)
		return s
	}
	go s.drain()
	return s
}

// Record stamps an event with a fresh id and the current UTC time and queues
// it. It never waits on storage: with the queue full the event is dropped and
// counted.
func (s *EventLogService) Record(ctx context.Context, typ, description string, metadata map[string]any) {
	if s == nil || s.eventRepo == nil {
		return
	}
	ev := models.RoasterEvent{
		EventID:     uuid.NewString(),
		OccurredAt:  s.now().UTC(),
		Type:        typ,
		Description: description,
	}
	if len(metadata) > 0 {
		ev.Metadata = metadata
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		s.log.Debugw("event_dropped", "type", typ, "reason", "closed")
		return
	}
	select {
	case s.queue <- queuedEvent{ctx: context.WithoutCancel(ctx), ev: ev}:
	default:
		s.metrics.AuditDropped()
		s.log.Warnw("event_dropped", "type", typ, "reason", "queue_full")
	}
}

// Close writes what is queued and stops the writer. Later Records are dropped.
func (s *EventLogService) Close() {
	if s == nil {
		return
	}
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()
	<-s.done
}

func (s *EventLogService) drain() {
	defer close(s.done)
	for q := range s.queue {
		ctx, cancel := context.WithTimeout(q.ctx, auditAppendTimeout)
		if err := s.eventRepo.Append(ctx, q.ev); err != nil {
			s.log.Errorw("event_append_failed", "type", q.ev.Type, "err", err)
		}
		cancel()
	}
}

// List returns audit events matching f, oldest first.
func (s *EventLogService) List(ctx context.Context, f LogFilter) ([]models.RoasterEvent, error) {
	n, err := f.normalize()
	if err != nil {
		return nil, err
	}
	return s.eventRepo.List(ctx, n.From, n.To, n.Type)
}

// normalize converts bounds to UTC, canonicalizes the type and rejects an
// inverted range or an unknown type. Zero bounds stay zero.
func (f LogFilter) normalize() (LogFilter, error) {
	out := LogFilter{
		From: utcOrZero(f.From),
		To:   utcOrZero(f.To),
		Type: strings.ToUpper(strings.TrimSpace(f.Type)),
	}
	if !out.From.IsZero() && !out.To.IsZero() && out.From.After(out.To) {
		return LogFilter{}, errInvalidTimeRange
	}
	if out.Type != "" {
		if _, ok := knownEventTypes[out.Type]; !ok {
			return LogFilter{}, fmt.Errorf("%w: %q", ErrUnknownEventType, out.Type)
		}
	}
	return out, nil
}

func utcOrZero(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}
