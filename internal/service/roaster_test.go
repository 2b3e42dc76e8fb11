package service

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"controlling_roaster/internal/models"
	"controlling_roaster/internal/port"
	"controlling_roaster/internal/protocol"
	"controlling_roaster/internal/state"
)

// loopbackConn answers every read with the same telemetry frame.
type loopbackConn struct {
	mu     sync.Mutex
	frame  []byte
	pos    int
	writes [][]byte
	closed int
}

func (c *loopbackConn) Read(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := copy(p, c.frame[c.pos:])
	c.pos = (c.pos + n) % len(c.frame)
	return n, nil
}

func (c *loopbackConn) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes = append(c.writes, append([]byte(nil), p...))
	return len(p), nil
}

func (c *loopbackConn) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pos = 0
	return nil
}

func (c *loopbackConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed++
	return nil
}

func (c *loopbackConn) lastWrite() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.writes) == 0 {
		return nil
	}
	return c.writes[len(c.writes)-1]
}

func (c *loopbackConn) closeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// auditedEvents flushes the audit writer and returns what reached the repository.
type auditedEvents struct {
	audit *EventLogService
	repo  *recordingEventRepo
}

func (a auditedEvents) flush() []string {
	a.audit.Close()
	return a.repo.types()
}

func newLoopbackService(t *testing.T, conn *loopbackConn) (*RoasterService, auditedEvents) {
	t.Helper()
	events := auditedEvents{repo: &recordingEventRepo{}}
	events.audit = NewEventLogService(events.repo, nil, nil)
	opener := func(port.Config) (port.Conn, error) { return conn, nil }
	svc := NewRoasterService(events.audit, opener, nil, nil)
	t.Cleanup(func() {
		_ = svc.Stop(context.Background())
		events.audit.Close()
	})
	return svc, events
}

func testStartParams() StartParams {
	return StartParams{Interval: 10 * time.Millisecond, Port: port.DefaultConfig("/dev/ttyFAKE")}
}

// eventually polls cond until it holds or the deadline passes.
func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestRoasterService_ControlBeforeStart(t *testing.T) {
	svc, _ := newLoopbackService(t, &loopbackConn{frame: frameBytes(100, 120)})
	ctx := context.Background()
	heater := 40

	if err := svc.EngageControl(ctx); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("EngageControl err=%v; want ErrNotRunning", err)
	}
	if err := svc.DisengageControl(ctx); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("DisengageControl err=%v; want ErrNotRunning", err)
	}
	if err := svc.RequestSetpoints(ctx, state.SetpointRequest{Heater: &heater}); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("RequestSetpoints err=%v; want ErrNotRunning", err)
	}
	if r := svc.Reading(); r != (models.Reading{}) {
		t.Fatalf("Reading before start=%+v; want all unavailable", r)
	}
	if st := svc.State(); st.Running {
		t.Fatalf("State before start must not be running")
	}
	if err := svc.Stop(ctx); err != nil {
		t.Fatalf("Stop with nothing running: %v", err)
	}
}

func TestRoasterService_Start_Validation(t *testing.T) {
	svc, events := newLoopbackService(t, &loopbackConn{frame: frameBytes(100, 120)})

	tests := []struct {
		name    string
		params  StartParams
		wantErr error
	}{
		{"zero interval", StartParams{Port: port.DefaultConfig("/dev/ttyFAKE")}, ErrInvalidInterval},
		{"interval above one second", StartParams{Interval: 1500 * time.Millisecond, Port: port.DefaultConfig("/dev/ttyFAKE")}, ErrInvalidInterval},
		{"missing port name", StartParams{Interval: 500 * time.Millisecond, Port: port.DefaultConfig("")}, ErrInvalidSerial},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.Start(context.Background(), tt.params)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err=%v; want %v", err, tt.wantErr)
			}
		})
	}
	if svc.State().Running {
		t.Fatalf("rejected Start must not launch a loop")
	}
	if got := events.flush(); len(got) != 0 {
		t.Fatalf("events=%v; want none", got)
	}
}

func TestRoasterService_RejectedRestartStopsPreviousRun(t *testing.T) {
	conn := &loopbackConn{frame: frameBytes(120, 140)}
	svc, events := newLoopbackService(t, conn)
	ctx := context.Background()

	if err := svc.Start(ctx, testStartParams()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	eventually(t, "first reading", func() bool { return svc.Reading().BT.Valid })

	bad := testStartParams()
	bad.Interval = 0
	if err := svc.Start(ctx, bad); !errors.Is(err, ErrInvalidInterval) {
		t.Fatalf("err=%v; want ErrInvalidInterval", err)
	}
	if svc.State().Running {
		t.Fatalf("previous loop must not survive a rejected restart")
	}
	if conn.closeCount() == 0 {
		t.Fatalf("previous run must release the port")
	}

	want := []string{models.EventStart, models.EventStop}
	got := events.flush()
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("events=%v; want %v", got, want)
	}
}

func TestRoasterService_Lifecycle(t *testing.T) {
	conn := &loopbackConn{frame: frameBytes(150, 180)}
	svc, events := newLoopbackService(t, conn)
	ctx := context.Background()

	if err := svc.Start(ctx, testStartParams()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	eventually(t, "first reading", func() bool { return svc.Reading().BT.Valid })

	r := svc.Reading()
	if r.BT != models.Some(150.0) || r.ET != models.Some(180.0) {
		t.Fatalf("reading=%+v; want BT=150 ET=180", r)
	}
	if r.MainFan != models.Some(30) {
		t.Fatalf("main fan=%+v; want 30 (device 3 x 10)", r.MainFan)
	}

	heater, fan := 50, 65
	if err := svc.RequestSetpoints(ctx, state.SetpointRequest{Heater: &heater, Fan: &fan}); err != nil {
		t.Fatalf("RequestSetpoints: %v", err)
	}
	if err := svc.EngageControl(ctx); err != nil {
		t.Fatalf("EngageControl: %v", err)
	}
	eventually(t, "command with requested heater", func() bool {
		w := conn.lastWrite()
		return w != nil && w[10] == 50
	})
	w := conn.lastWrite()
	if w[11] != 6 {
		t.Fatalf("fan byte=%d; want 6 (65 rounds half to even)", w[11])
	}

	st := svc.State()
	if !st.Running || !st.Engaged {
		t.Fatalf("state=%+v; want running and engaged", st)
	}
	if st.Setpoints.Heater != models.Some(50) {
		t.Fatalf("setpoint heater=%+v; want 50", st.Setpoints.Heater)
	}

	if err := svc.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if conn.closeCount() == 0 {
		t.Fatalf("port must be released after Stop")
	}
	if svc.State().Running || svc.Reading().BT.Valid {
		t.Fatalf("state must be discarded after Stop")
	}
	if err := svc.Stop(ctx); err != nil {
		t.Fatalf("second Stop: %v", err)
	}

	want := []string{models.EventStart, models.EventSetpoints, models.EventEngage, models.EventStop}
	got := events.flush()
	if len(got) != len(want) {
		t.Fatalf("events=%v; want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events[%d]=%q; want %q", i, got[i], want[i])
		}
	}
}

func TestRoasterService_RestartDiscardsState(t *testing.T) {
	conn := &loopbackConn{frame: frameBytes(120, 140)}
	svc, _ := newLoopbackService(t, conn)
	ctx := context.Background()

	if err := svc.Start(ctx, testStartParams()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	eventually(t, "port opened", func() bool { return svc.Reading().BT.Valid })
	if err := svc.EngageControl(ctx); err != nil {
		t.Fatalf("EngageControl: %v", err)
	}
	if err := svc.Start(ctx, testStartParams()); err != nil {
		t.Fatalf("restart: %v", err)
	}
	if svc.State().Engaged {
		t.Fatalf("a new run must start disengaged")
	}
	if conn.closeCount() == 0 {
		t.Fatalf("previous run must release the port")
	}
}

func TestRoasterService_EngageIsIdempotent(t *testing.T) {
	svc, events := newLoopbackService(t, &loopbackConn{frame: frameBytes(120, 140)})
	ctx := context.Background()

	if err := svc.Start(ctx, testStartParams()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := svc.EngageControl(ctx); err != nil {
			t.Fatalf("EngageControl #%d: %v", i, err)
		}
	}
	if err := svc.RequestSetpoints(ctx, state.SetpointRequest{}); err != nil {
		t.Fatalf("empty RequestSetpoints: %v", err)
	}

	count := 0
	for _, typ := range events.flush() {
		if typ == models.EventEngage {
			count++
		}
		if typ == models.EventSetpoints {
			t.Fatalf("empty request must not be audited")
		}
	}
	if count != 1 {
		t.Fatalf("ENGAGE events=%d; want 1", count)
	}
}

func TestRoasterService_SafetyOverrideThroughPort(t *testing.T) {
	conn := &loopbackConn{frame: frameBytes(220, 240)}
	svc, _ := newLoopbackService(t, conn)

	if err := svc.Start(context.Background(), testStartParams()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	eventually(t, "override frame", func() bool { return conn.lastWrite() != nil })

	got, err := protocol.DecodeControlFrame(conn.lastWrite())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := protocol.EncodeControlFrame(protocol.ControlCommand{}, got)
	if !bytes.Equal(conn.lastWrite(), want) {
		t.Fatalf("override frame does not round-trip")
	}
	if got.Heater != models.Some(0) || got.Fan != models.Some(protocol.MaxFan) {
		t.Fatalf("override=%+v; want heater 0 and fan max", got)
	}
	if !svc.State().SafetyTripped {
		t.Fatalf("state must report the trip")
	}
}
