// Package protocol implements the fixed 36-byte serial frames exchanged with
// the roaster: telemetry from the device and control commands to it.
package protocol

import (
	"encoding/binary"
	"fmt"

	"controlling_roaster/internal/models"
)

// FrameLen is the length of every frame in both directions.
const FrameLen = 36

const (
	header0 = 0xA5
	header1 = 0x96

	checksumOffset = FrameLen - 1
)

// Telemetry field offsets.
const (
	offHeater       = 10
	offFan          = 11
	offMainFan      = 12
	offSolenoid     = 16
	offDrumMotor    = 17
	offCoolingMotor = 18
	offChaffTray    = 19
	offET           = 23
	offBT           = 25
)

// commandHeader occupies offsets 0-6 of every control frame.
var commandHeader = [...]byte{header0, header1, 0xB0, 0xA0, 0x01, 0x01, 0x24}

// Channel limits in device units.
const (
	MaxHeater = 100
	MaxFan    = 10
)

// SensorFrame is a decoded telemetry frame. Values are raw device units:
// °C for temperatures, 0-10 for both fans.
type SensorFrame struct {
	BT           int
	ET           int
	Heater       int
	Fan          int
	MainFan      int
	Solenoid     bool // true: open
	DrumMotor    bool
	CoolingMotor bool
	ChaffTray    bool
}

// ControlCommand holds one optional value per controllable channel.
// Switch channels use 0/1. An unset channel means "keep current".
type ControlCommand struct {
	Heater       models.Optional[int]
	Fan          models.Optional[int]
	MainFan      models.Optional[int]
	Solenoid     models.Optional[int]
	DrumMotor    models.Optional[int]
	CoolingMotor models.Optional[int]
}

// Checksum returns the modulo-256 sum of the first 35 bytes of a frame.
func Checksum(b []byte) byte {
	var sum byte
	for _, v := range b[:checksumOffset] {
		sum += v
	}
	return sum
}

// DecodeSensorFrame validates and decodes a telemetry frame.
func DecodeSensorFrame(b []byte) (SensorFrame, error) {
	if len(b) != FrameLen {
		return SensorFrame{}, fmt.Errorf("%w: got %d bytes, want %d", ErrShortRead, len(b), FrameLen)
	}
	if b[0] != header0 || b[1] != header1 {
		return SensorFrame{}, fmt.Errorf("%w: % X", ErrFraming, b[:2])
	}
	if sum := Checksum(b); sum != b[checksumOffset] {
		return SensorFrame{}, fmt.Errorf("%w: computed %#02x, frame has %#02x", ErrChecksum, sum, b[checksumOffset])
	}
	return SensorFrame{
		Heater:       int(b[offHeater]),
		Fan:          int(b[offFan]),
		MainFan:      int(b[offMainFan]),
		Solenoid:     b[offSolenoid] != 0,
		DrumMotor:    b[offDrumMotor] != 0,
		CoolingMotor: b[offCoolingMotor] != 0,
		ChaffTray:    b[offChaffTray] != 0,
		ET:           int(binary.BigEndian.Uint16(b[offET:])),
		BT:           int(binary.BigEndian.Uint16(b[offBT:])),
	}, nil
}

// EncodeControlFrame builds a command frame. Each channel is filled with the
// requested value if set, else the observed device value, else zero.
func EncodeControlFrame(observed, requested ControlCommand) []byte {
	b := make([]byte, FrameLen)
	copy(b, commandHeader[:])
	b[offHeater] = clamp(Select(requested.Heater, observed.Heater), MaxHeater)
	b[offFan] = clamp(Select(requested.Fan, observed.Fan), MaxFan)
	b[offMainFan] = clamp(Select(requested.MainFan, observed.MainFan), MaxFan)
	b[offSolenoid] = clamp(Select(requested.Solenoid, observed.Solenoid), 1)
	b[offDrumMotor] = clamp(Select(requested.DrumMotor, observed.DrumMotor), 1)
	b[offCoolingMotor] = clamp(Select(requested.CoolingMotor, observed.CoolingMotor), 1)
	b[checksumOffset] = Checksum(b)
	return b
}

// Select prefers the requested value, then the observed one, then zero.
func Select(requested, observed models.Optional[int]) int {
	if requested.Valid {
		return requested.Value
	}
	if observed.Valid {
		return observed.Value
	}
	return 0
}

func clamp(v, limit int) byte {
	if v < 0 {
		return 0
	}
	if v > limit {
		return byte(limit)
	}
	return byte(v)
}

// EncodeSensorFrame builds a valid telemetry frame. The roaster never receives
// one; it exists for device emulation and tests.
func EncodeSensorFrame(f SensorFrame) []byte {
	b := make([]byte, FrameLen)
	b[0], b[1] = header0, header1
	b[offHeater] = byte(f.Heater)
	b[offFan] = byte(f.Fan)
	b[offMainFan] = byte(f.MainFan)
	b[offSolenoid] = boolByte(f.Solenoid)
	b[offDrumMotor] = boolByte(f.DrumMotor)
	b[offCoolingMotor] = boolByte(f.CoolingMotor)
	b[offChaffTray] = boolByte(f.ChaffTray)
	binary.BigEndian.PutUint16(b[offET:], uint16(f.ET))
	binary.BigEndian.PutUint16(b[offBT:], uint16(f.BT))
	b[checksumOffset] = Checksum(b)
	return b
}

func boolByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}

// DecodeControlFrame validates and decodes a command frame. Every channel of
// the result is set.
func DecodeControlFrame(b []byte) (ControlCommand, error) {
	if len(b) != FrameLen {
		return ControlCommand{}, fmt.Errorf("%w: got %d bytes, want %d", ErrShortRead, len(b), FrameLen)
	}
	for i, h := range commandHeader {
		if b[i] != h {
			return ControlCommand{}, fmt.Errorf("%w: % X", ErrFraming, b[:len(commandHeader)])
		}
	}
	if sum := Checksum(b); sum != b[checksumOffset] {
		return ControlCommand{}, fmt.Errorf("%w: computed %#02x, frame has %#02x", ErrChecksum, sum, b[checksumOffset])
	}
	return ControlCommand{
		Heater:       models.Some(int(b[offHeater])),
		Fan:          models.Some(int(b[offFan])),
		MainFan:      models.Some(int(b[offMainFan])),
		Solenoid:     models.Some(int(b[offSolenoid])),
		DrumMotor:    models.Some(int(b[offDrumMotor])),
		CoolingMotor: models.Some(int(b[offCoolingMotor])),
	}, nil
}
