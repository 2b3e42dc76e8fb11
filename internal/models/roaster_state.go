package models

import "time"

// Reading is the compact telemetry view handed to host applications.
type Reading struct {
	BT      Optional[float64] `json:"bt_c"`     // °C, smoothed
	ET      Optional[float64] `json:"et_c"`     // °C, smoothed
	Heater  Optional[int]     `json:"heater"`   // 0-100
	MainFan Optional[int]     `json:"main_fan"` // 0-100
}

// Setpoints are the values staged by the external controller, in device units.
type Setpoints struct {
	Heater       Optional[int] `json:"heater"`   // 0-100
	Fan          Optional[int] `json:"fan"`      // 0-10
	MainFan      Optional[int] `json:"main_fan"` // 0-10
	Solenoid     Optional[int] `json:"solenoid"` // 0 closed, 1 open
	DrumMotor    Optional[int] `json:"drum_motor"`
	CoolingMotor Optional[int] `json:"cooling_motor"`
}

// RoasterState is the full snapshot of the roaster as last observed by the control loop.
type RoasterState struct {
	Running       bool              `json:"running"`
	Engaged       bool              `json:"engaged"`
	SafetyTripped bool              `json:"safety_tripped"`
	BT            Optional[float64] `json:"bt_c"`
	ET            Optional[float64] `json:"et_c"`
	Heater        Optional[int]     `json:"heater"`   // 0-100
	Fan           Optional[int]     `json:"fan"`      // 0-100
	MainFan       Optional[int]     `json:"main_fan"` // 0-100
	Solenoid      Optional[bool]    `json:"solenoid_open"`
	DrumMotor     Optional[bool]    `json:"drum_motor"`
	CoolingMotor  Optional[bool]    `json:"cooling_motor"`
	ChaffTray     Optional[bool]    `json:"chaff_tray"`
	Setpoints     Setpoints         `json:"setpoints"`
	UpdatedAt     time.Time         `json:"updated_at,omitempty"`
}
