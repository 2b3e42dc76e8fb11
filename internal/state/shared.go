// Package state holds the record shared between the control loop and its callers.
//
// The loop is the only writer of sensor fields; callers are the only writers of
// set-points and the engaged flag. Every field is read and written under one
// RWMutex, so a single field is never observed half-written. Consistency across
// fields is not promised.
package state

import (
	"math"
	"sync"
	"time"

	"controlling_roaster/internal/models"
	"controlling_roaster/internal/protocol"
)

// Shared is the live state of one control loop run.
type Shared struct {
	mu sync.RWMutex

	bt           models.Optional[float64]
	et           models.Optional[float64]
	heater       models.Optional[int]
	fan          models.Optional[int]
	mainFan      models.Optional[int]
	solenoid     models.Optional[int]
	drumMotor    models.Optional[int]
	coolingMotor models.Optional[int]
	chaffTray    models.Optional[int]
	updatedAt    time.Time

	requested protocol.ControlCommand
	engaged   bool
	tripped   bool
}

// New returns a state with every field unavailable and control disengaged.
func New() *Shared {
	return &Shared{}
}

// SetpointRequest carries caller-facing set-points. Fans are in 0-100 and
// switches are booleans; nil leaves the staged value unchanged.
type SetpointRequest struct {
	Heater       *int  `json:"heater,omitempty"`
	Fan          *int  `json:"fan,omitempty"`
	MainFan      *int  `json:"main_fan,omitempty"`
	Solenoid     *bool `json:"solenoid,omitempty"`
	DrumMotor    *bool `json:"drum_motor,omitempty"`
	CoolingMotor *bool `json:"cooling_motor,omitempty"`
}

// Empty reports whether the request carries no set-point at all.
func (r SetpointRequest) Empty() bool {
	return r.Heater == nil && r.Fan == nil && r.MainFan == nil &&
		r.Solenoid == nil && r.DrumMotor == nil && r.CoolingMotor == nil
}

// ---- loop side ----

// Apply stores a freshly decoded frame. BT and ET are smoothed with the
// previous value; every other field is stored as read.
func (s *Shared) Apply(f protocol.SensorFrame, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.bt = models.Some(Smooth(s.bt, float64(f.BT)))
	s.et = models.Some(Smooth(s.et, float64(f.ET)))
	s.heater = models.Some(f.Heater)
	s.fan = models.Some(f.Fan)
	s.mainFan = models.Some(f.MainFan)
	s.solenoid = models.Some(boolInt(f.Solenoid))
	s.drumMotor = models.Some(boolInt(f.DrumMotor))
	s.coolingMotor = models.Some(boolInt(f.CoolingMotor))
	s.chaffTray = models.Some(boolInt(f.ChaffTray))
	s.updatedAt = now.UTC()
}

// Smooth averages a fresh reading with the previous one, compensating for the
// sensor's whole-degree resolution. The first reading is taken as-is.
func Smooth(prev models.Optional[float64], fresh float64) float64 {
	if !prev.Valid {
		return fresh
	}
	return (prev.Value + fresh) / 2
}

// BT returns the stored (smoothed) bean temperature.
func (s *Shared) BT() models.Optional[float64] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bt
}

// Observed returns the last device values of the controllable channels.
func (s *Shared) Observed() protocol.ControlCommand {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return protocol.ControlCommand{
		Heater:       s.heater,
		Fan:          s.fan,
		MainFan:      s.mainFan,
		Solenoid:     s.solenoid,
		DrumMotor:    s.drumMotor,
		CoolingMotor: s.coolingMotor,
	}
}

// Requested returns the staged set-points in device units.
func (s *Shared) Requested() protocol.ControlCommand {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.requested
}

// Engaged reports whether the external controller may send commands.
func (s *Shared) Engaged() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engaged
}

// SetTripped records whether the safety interlock fired on the last tick and
// returns the previous value.
func (s *Shared) SetTripped(v bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.tripped
	s.tripped = v
	return prev
}

// ---- caller side ----

// Reading returns BT, ET, heater and main fan. The main fan is scaled to 0-100.
func (s *Shared) Reading() models.Reading {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.Reading{
		BT:      s.bt,
		ET:      s.et,
		Heater:  s.heater,
		MainFan: scaleUp(s.mainFan),
	}
}

// Request stages set-points for the next tick.
func (s *Shared) Request(r SetpointRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.Heater != nil {
		s.requested.Heater = models.Some(clampInt(*r.Heater, 0, protocol.MaxHeater))
	}
	if r.Fan != nil {
		s.requested.Fan = models.Some(ScaleDown(*r.Fan))
	}
	if r.MainFan != nil {
		s.requested.MainFan = models.Some(ScaleDown(*r.MainFan))
	}
	if r.Solenoid != nil {
		s.requested.Solenoid = models.Some(boolInt(*r.Solenoid))
	}
	if r.DrumMotor != nil {
		s.requested.DrumMotor = models.Some(boolInt(*r.DrumMotor))
	}
	if r.CoolingMotor != nil {
		s.requested.CoolingMotor = models.Some(boolInt(*r.CoolingMotor))
	}
}

// SetEngaged toggles control and returns the previous value.
func (s *Shared) SetEngaged(v bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.engaged
	s.engaged = v
	return prev
}

// Snapshot returns every field in caller units.
func (s *Shared) Snapshot() models.RoasterState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.RoasterState{
		Engaged:       s.engaged,
		SafetyTripped: s.tripped,
		BT:            s.bt,
		ET:            s.et,
		Heater:        s.heater,
		Fan:           scaleUp(s.fan),
		MainFan:       scaleUp(s.mainFan),
		Solenoid:      toBool(s.solenoid),
		DrumMotor:     toBool(s.drumMotor),
		CoolingMotor:  toBool(s.coolingMotor),
		ChaffTray:     toBool(s.chaffTray),
		Setpoints: models.Setpoints{
			Heater:       s.requested.Heater,
			Fan:          s.requested.Fan,
			MainFan:      s.requested.MainFan,
			Solenoid:     s.requested.Solenoid,
			DrumMotor:    s.requested.DrumMotor,
			CoolingMotor: s.requested.CoolingMotor,
		},
		UpdatedAt: s.updatedAt,
	}
}

// ScaleDown converts a 0-100 fan level to the device's 0-10 unit, rounding
// halves to even.
func ScaleDown(v int) int {
	return clampInt(int(math.RoundToEven(float64(v)/10)), 0, protocol.MaxFan)
}

func scaleUp(v models.Optional[int]) models.Optional[int] {
	if !v.Valid {
		return v
	}
	return models.Some(v.Value * 10)
}

func toBool(v models.Optional[int]) models.Optional[bool] {
	if !v.Valid {
		return models.None[bool]()
	}
	return models.Some(v.Value != 0)
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func clampInt(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
