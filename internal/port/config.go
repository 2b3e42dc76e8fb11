package port

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config describes the serial line to the roaster.
type Config struct {
	Name     string        `json:"port"`      // e.g. /dev/ttyUSB0 or COM4
	BaudRate int           `json:"baud_rate"` // the roaster talks 115200
	ByteSize int           `json:"byte_size"` // 5-8
	Parity   string        `json:"parity"`    // N, O or E
	StopBits int           `json:"stop_bits"` // 1 or 2
	Timeout  time.Duration `json:"timeout"`   // bound for a single frame read
}

// Defaults used by the roaster firmware.
const (
	DefaultBaudRate = 115200
	DefaultByteSize = 8
	DefaultParity   = "N"
	DefaultStopBits = 1
	DefaultTimeout  = time.Second
)

// DefaultConfig returns the stock line settings for the given port name.
func DefaultConfig(name string) Config {
	return Config{
		Name:     name,
		BaudRate: DefaultBaudRate,
		ByteSize: DefaultByteSize,
		Parity:   DefaultParity,
		StopBits: DefaultStopBits,
		Timeout:  DefaultTimeout,
	}
}

var errEmptyName = errors.New("serial port name is empty")

// Validate checks that the settings can be handed to the serial driver.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return errEmptyName
	}
	if c.BaudRate <= 0 {
		return fmt.Errorf("invalid baud rate %d", c.BaudRate)
	}
	if c.ByteSize < 5 || c.ByteSize > 8 {
		return fmt.Errorf("invalid byte size %d: must be 5-8", c.ByteSize)
	}
	switch strings.ToUpper(c.Parity) {
	case "N", "O", "E":
	default:
		// mark and space are not supported by the serial driver on Linux
		return fmt.Errorf("invalid parity %q: must be one of N, O, E", c.Parity)
	}
	if c.StopBits != 1 && c.StopBits != 2 {
		return fmt.Errorf("invalid stop bits %d: must be 1 or 2", c.StopBits)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("invalid read timeout %s", c.Timeout)
	}
	return nil
}
