// Package simulator emulates a roaster on the far side of the serial line.
// It speaks the same 36-byte frames as the hardware so the control loop can
// run end to end without a device attached.
package simulator

import (
	"sync"
	"time"

	"controlling_roaster/internal/port"
	"controlling_roaster/internal/protocol"
)

// PortName selects the emulated device instead of a serial driver.
const PortName = "sim"

// Thermal model constants.
const (
	AmbientC          = 25.0  // ambient temperature °C
	MaxEnvC           = 300.0 // element saturation °C
	RampUpCPerSec     = 4.0   // ET rise per second at full heater
	FanCoolCPerSec    = 1.5   // ET loss per second per fan step
	StandbyCoolPerSec = 0.5   // drift toward ambient with the heater off
	BeanLagPerSec     = 0.08  // fraction of the ET/BT gap closed per second
	DumpCoolCPerSec   = 6.0   // BT loss per second in the cooling tray
)

// Device is an emulated roaster. It implements port.Conn and survives
// close/reopen cycles the way a physical device would.
type Device struct {
	mu sync.Mutex

	now  func() time.Time
	last time.Time

	bt, et float64
	cmd    protocol.ControlCommand

	out []byte
	pos int
}

// New returns a cold roaster at ambient temperature with every actuator off.
func New() *Device {
	return NewAt(time.Now)
}

// NewAt is New with an injectable clock.
func NewAt(now func() time.Time) *Device {
	return &Device{
		now:  now,
		last: now(),
		bt:   AmbientC,
		et:   AmbientC,
	}
}

// Opener hands out the same device on every open.
func (d *Device) Opener() port.Opener {
	return func(port.Config) (port.Conn, error) {
		return d, nil
	}
}

// Route returns an opener that serves PortName from d and every other port
// from next.
func (d *Device) Route(next port.Opener) port.Opener {
	return func(cfg port.Config) (port.Conn, error) {
		if cfg.Name == PortName {
			return d, nil
		}
		return next(cfg)
	}
}

// Read serves the current telemetry frame. A new frame is built at the start
// of each frame boundary.
func (d *Device) Read(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.out == nil || d.pos >= len(d.out) {
		d.advance()
		d.out = protocol.EncodeSensorFrame(d.frame())
		d.pos = 0
	}
	n := copy(p, d.out[d.pos:])
	d.pos += n
	return n, nil
}

// Write accepts a command frame. Invalid frames are ignored like the
// firmware does.
func (d *Device) Write(p []byte) (int, error) {
	cmd, err := protocol.DecodeControlFrame(p)
	if err != nil {
		return len(p), nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.advance()
	d.cmd = cmd
	return len(p), nil
}

// Flush drops any partially read frame.
func (d *Device) Flush() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.out = nil
	d.pos = 0
	return nil
}

func (d *Device) Close() error { return nil }

// Temperatures returns the model's bean and environment temperatures.
func (d *Device) Temperatures() (bt, et float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.bt, d.et
}

// advance steps the thermal model to now. Caller holds mu.
func (d *Device) advance() {
	now := d.now()
	elapsed := now.Sub(d.last).Seconds()
	d.last = now
	if elapsed <= 0 {
		return
	}

	heater := float64(d.cmd.Heater.Or(0)) / protocol.MaxHeater
	fans := float64(d.cmd.Fan.Or(0) + d.cmd.MainFan.Or(0))

	if heater > 0 {
		d.et += (RampUpCPerSec*heater - FanCoolCPerSec*fans/protocol.MaxFan) * elapsed
	} else if d.et > AmbientC {
		d.et -= (StandbyCoolPerSec + FanCoolCPerSec*fans/protocol.MaxFan) * elapsed
	}
	d.et = clampFloat(d.et, AmbientC, MaxEnvC)

	if d.cmd.Solenoid.Or(0) == 1 {
		// beans are in the cooling tray
		rate := StandbyCoolPerSec
		if d.cmd.CoolingMotor.Or(0) == 1 {
			rate = DumpCoolCPerSec
		}
		d.bt = max(d.bt-rate*elapsed, AmbientC)
		return
	}
	gap := d.et - d.bt
	d.bt += gap * min(BeanLagPerSec*elapsed, 1)
}

// frame renders the model as the device would report it. Caller holds mu.
func (d *Device) frame() protocol.SensorFrame {
	return protocol.SensorFrame{
		BT:           int(d.bt),
		ET:           int(d.et),
		Heater:       d.cmd.Heater.Or(0),
		Fan:          d.cmd.Fan.Or(0),
		MainFan:      d.cmd.MainFan.Or(0),
		Solenoid:     d.cmd.Solenoid.Or(0) == 1,
		DrumMotor:    d.cmd.DrumMotor.Or(0) == 1,
		CoolingMotor: d.cmd.CoolingMotor.Or(0) == 1,
		ChaffTray:    true,
	}
}

func clampFloat(v, lo, hi float64) float64 {
	return min(max(v, lo), hi)
}
