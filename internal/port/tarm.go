package port

import (
	"strings"

	"github.com/tarm/serial"
)

// TarmOpener opens the line with github.com/tarm/serial.
func TarmOpener(cfg Config) (Conn, error) {
	p, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Name,
		Baud:        cfg.BaudRate,
		Size:        byte(cfg.ByteSize),
		Parity:      toTarmParity(cfg.Parity),
		StopBits:    serial.StopBits(cfg.StopBits),
		ReadTimeout: cfg.Timeout,
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func toTarmParity(p string) serial.Parity {
	switch strings.ToUpper(strings.TrimSpace(p)) {
	case "O":
		return serial.ParityOdd
	case "E":
		return serial.ParityEven
	default:
		return serial.ParityNone
	}
}
