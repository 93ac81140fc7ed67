package publish

import (
	"github.com/temoto/meterlink/log2"
)

// Transporter contract:
// - Init fails only with invalid config, network errors are handled in background
// - Send* deliver within network timeout or return false, caller keeps message for retry
// - application may start without network available
type Transporter interface {
	Init(log *log2.Log, c Config, willPayload []byte) error
	SendReport(payload []byte) bool
	SendError(payload []byte) bool
	SendState(payload []byte) bool
	Close()
}

// Retained state topic values.
const (
	StateOffline byte = 0x00 // last will
	StateOnline  byte = 0x01
)
