package link

import (
	"fmt"
	"time"
)

type Outcome uint8

const (
	OutcomeInvalid Outcome = iota
	Sent
	TimedOut
	Error
)

func (o Outcome) String() string {
	switch o {
	case Sent:
		return "sent"
	case TimedOut:
		return "timeout"
	case Error:
		return "error"
	default:
		return fmt.Sprintf("Outcome(%d)", uint8(o))
	}
}

// Frame is one packet received over the air with link quality.
type Frame struct {
	Payload []byte
	RSSI    int16   // dBm
	SNR     float32 // dB, 0 when transceiver does not report it
}

func (f Frame) String() string {
	return fmt.Sprintf("len=%d rssi=%d snr=%.1f", len(f.Payload), f.RSSI, f.SNR)
}

// Radio contract:
// - Send blocks at most for timeout, outcome tells caller what happened, no internal retry
// - err is set only with Outcome Error
// - TryReceive does not wait for a packet, ok=false means nothing arrived yet
// - Payload belongs to caller
type Radio interface {
	Send(payload []byte, timeout time.Duration) (Outcome, error)
	TryReceive() (Frame, bool, error)
	Close() error
}
