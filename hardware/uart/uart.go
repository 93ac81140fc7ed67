// Package uart opens serial devices: optical meter read head and UART attached
// radio module. Read timeout is not an error here: Read returns 0, nil.
package uart

import (
	"io"
	"time"

	"github.com/juju/errors"
	"go.bug.st/serial"
)

const (
	DefaultBaud        = 9600
	DefaultReadTimeout = 100 * time.Millisecond
)

// Port is the subset of serial.Port used by this module.
type Port interface {
	io.ReadWriteCloser
	Drain() error
	ResetInputBuffer() error
	SetReadTimeout(t time.Duration) error
}

var _ Port = serial.Port(nil)

// Open configures 8N1 at baud (0 = DefaultBaud).
func Open(device string, baud int, readTimeout time.Duration) (Port, error) {
	if baud == 0 {
		baud = DefaultBaud
	}
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	p, err := serial.Open(device, mode)
	if err != nil {
		return nil, errors.Annotatef(err, "uart open device=%s baud=%d", device, baud)
	}
	if readTimeout <= 0 {
		readTimeout = DefaultReadTimeout
	}
	if err = p.SetReadTimeout(readTimeout); err != nil {
		_ = p.Close()
		return nil, errors.Annotatef(err, "uart device=%s set read timeout=%v", device, readTimeout)
	}
	return p, nil
}
