// Package port owns the serial connection to the roaster. The line is opened
// lazily, closed on any fault and reopened on the next use. A Manager is not
// safe for concurrent use: exactly one goroutine (the control loop) drives it.
package port

import (
	"errors"
	"fmt"
	"io"
	"time"

	"controlling_roaster/internal/logger"
	"controlling_roaster/internal/protocol"
)

// ErrIO reports a fault while opening, reading or writing the line.
var ErrIO = errors.New("serial i/o failure")

// Conn is the subset of a serial port the manager needs.
type Conn interface {
	io.ReadWriteCloser
	Flush() error
}

// Opener opens a connection for the given settings.
type Opener func(cfg Config) (Conn, error)

// Manager wraps one serial line.
type Manager struct {
	cfg  Config
	open Opener
	conn Conn
	log  *logger.Logger
	now  func() time.Time

	openFailing bool
}

// NewManager returns a closed manager. Nothing is opened until first use.
func NewManager(cfg Config, open Opener, log *logger.Logger) *Manager {
	if open == nil {
		open = TarmOpener
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Manager{cfg: cfg, open: open, log: log, now: time.Now}
}

// IsOpen reports whether the line is currently open.
func (m *Manager) IsOpen() bool {
	return m.conn != nil
}

// Open opens the line if it is closed. Failures leave the port closed; callers
// check IsOpen.
func (m *Manager) Open() {
	_ = m.ensureOpen()
}

// ensureOpen opens the line if needed. The first failure of a streak is
// logged at warn with the driver error, repeats at debug.
func (m *Manager) ensureOpen() error {
	if m.conn != nil {
		return nil
	}
	conn, err := m.open(m.cfg)
	if err != nil {
		if !m.openFailing {
			m.log.Warnw("serial_open_failed", "port", m.cfg.Name, "err", err)
		} else {
			m.log.Debugw("serial_open_failed", "port", m.cfg.Name, "err", err)
		}
		m.openFailing = true
		return fmt.Errorf("%w: open %s: %v", ErrIO, m.cfg.Name, err)
	}
	if m.openFailing {
		m.log.Infow("serial_open_recovered", "port", m.cfg.Name)
	}
	m.openFailing = false
	m.conn = conn
	m.log.Debugw("serial_opened", "port", m.cfg.Name)
	return nil
}

// Close closes the line if it is open.
func (m *Manager) Close() {
	if m.conn == nil {
		return
	}
	if err := m.conn.Close(); err != nil {
		m.log.Debugw("serial_close_failed", "port", m.cfg.Name, "err", err)
	}
	m.conn = nil
}

// ReadFrame flushes both buffers and reads one frame, bounded by the configured
// timeout. Any fault or short read closes the port.
func (m *Manager) ReadFrame() ([]byte, error) {
	if err := m.ensureOpen(); err != nil {
		return nil, err
	}
	if err := m.conn.Flush(); err != nil {
		m.Close()
		return nil, fmt.Errorf("%w: flush: %v", ErrIO, err)
	}

	buf := make([]byte, protocol.FrameLen)
	deadline := m.now().Add(m.cfg.Timeout)
	n := 0
	for n < len(buf) {
		k, err := m.conn.Read(buf[n:])
		n += k
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			m.Close()
			return nil, fmt.Errorf("%w: read: %v", ErrIO, err)
		}
		// The driver returns 0 bytes when its own read timeout expires.
		if k == 0 || !m.now().Before(deadline) {
			break
		}
	}
	if n != len(buf) {
		m.Close()
		return nil, fmt.Errorf("%w: got %d of %d bytes", protocol.ErrShortRead, n, protocol.FrameLen)
	}
	return buf, nil
}

// WriteFrame flushes both buffers and writes b. There is no retry; a fault
// closes the port and is returned for accounting only.
func (m *Manager) WriteFrame(b []byte) error {
	if err := m.ensureOpen(); err != nil {
		return err
	}
	if err := m.conn.Flush(); err != nil {
		m.Close()
		return fmt.Errorf("%w: flush: %v", ErrIO, err)
	}
	if _, err := m.conn.Write(b); err != nil {
		m.Close()
		return fmt.Errorf("%w: write: %v", ErrIO, err)
	}
	return nil
}
