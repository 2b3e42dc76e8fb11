package metrics

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"controlling_roaster/internal/port"
	"controlling_roaster/internal/protocol"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestFaultKind(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("%w: x", protocol.ErrFraming), FaultFraming},
		{fmt.Errorf("%w: x", protocol.ErrChecksum), FaultChecksum},
		{fmt.Errorf("%w: x", protocol.ErrShortRead), FaultShortRead},
		{fmt.Errorf("%w: x", port.ErrIO), FaultIO},
		{errors.New("other"), FaultOther},
	}
	for _, tc := range cases {
		if got := FaultKind(tc.err); got != tc.want {
			t.Fatalf("FaultKind(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestCounters(t *testing.T) {
	m := New()
	m.Tick()
	m.Tick()
	m.FrameFault(protocol.ErrChecksum)
	m.CommandSent(ReasonSafety)
	m.SafetyTrip()
	m.AuditDropped()

	if got := testutil.ToFloat64(m.auditDropped); got != 1 {
		t.Fatalf("audit dropped = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.ticks); got != 2 {
		t.Fatalf("ticks = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.frameFaults.WithLabelValues(FaultChecksum)); got != 1 {
		t.Fatalf("checksum faults = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.commandsSent.WithLabelValues(ReasonSafety)); got != 1 {
		t.Fatalf("safety commands = %v, want 1", got)
	}
}

func TestHandler_ServesRegistry(t *testing.T) {
	m := New()
	m.Temperatures(180.5, 220)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "roaster_bean_temperature_celsius 180.5") {
		t.Fatalf("bean temperature gauge missing:\n%s", w.Body.String())
	}
}
