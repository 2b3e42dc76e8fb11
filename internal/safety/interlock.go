// Package safety holds the over-temperature interlock. It runs on every tick
// whether or not an external controller is engaged.
package safety

import (
	"controlling_roaster/internal/models"
	"controlling_roaster/internal/protocol"
)

// CutoffC is the bean temperature at which the roaster is forced to dump and cool.
const CutoffC = 212.0

// Override is the emergency command: heater off, both fans at maximum,
// solenoid open to eject, drum and cooling motors on.
func Override() protocol.ControlCommand {
	return protocol.ControlCommand{
		Heater:       models.Some(0),
		Fan:          models.Some(protocol.MaxFan),
		MainFan:      models.Some(protocol.MaxFan),
		Solenoid:     models.Some(1),
		DrumMotor:    models.Some(1),
		CoolingMotor: models.Some(1),
	}
}

// Tripped reports whether any of the given bean temperatures reaches the cutoff.
// Unavailable values never trip.
func Tripped(bt ...models.Optional[float64]) bool {
	for _, v := range bt {
		if v.Valid && v.Value >= CutoffC {
			return true
		}
	}
	return false
}

// Evaluate returns the override command and true when the interlock fires.
func Evaluate(bt ...models.Optional[float64]) (protocol.ControlCommand, bool) {
	if !Tripped(bt...) {
		return protocol.ControlCommand{}, false
	}
	return Override(), true
}
