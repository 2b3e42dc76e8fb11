package protocol

import "errors"

// Frame faults. Callers classify with errors.Is.
var (
	ErrFraming   = errors.New("bad frame header")
	ErrChecksum  = errors.New("frame checksum mismatch")
	ErrShortRead = errors.New("short frame")
)
