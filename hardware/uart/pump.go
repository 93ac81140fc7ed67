package uart

import (
	"expvar"
	"fmt"
	"io"
	"time"

	"github.com/temoto/alive/v2"
	"github.com/temoto/meterlink/helpers"
	"github.com/temoto/meterlink/log2"
	"github.com/temoto/meterlink/sml"
)

const pumpBufferSize = 256

type PumpStat struct {
	Bytes    expvar.Int
	Messages expvar.Int
	Errors   expvar.Int
}

func (s *PumpStat) String() string {
	return fmt.Sprintf(`{"bytes":%d,"messages":%d,"errors":%d}`,
		s.Bytes.Value(), s.Messages.Value(), s.Errors.Value())
}

// Pump feeds meter bytes into assembler. Asm is owned by Run goroutine,
// OnMessage is called from it with message valid only during the call.
type Pump struct {
	Log       *log2.Log
	Asm       *sml.Assembler
	OnMessage func(msg []byte)
	Stat      PumpStat

	RetryMin time.Duration
	RetryMax time.Duration
}

// Run returns nil on alive stop or io.EOF (capture file).
// Other read errors are logged and retried with backoff.
func (self *Pump) Run(a *alive.Alive, r io.Reader) error {
	retryMin := self.RetryMin
	if retryMin == 0 {
		retryMin = 100 * time.Millisecond
	}
	retryMax := self.RetryMax
	if retryMax == 0 {
		retryMax = 10 * time.Second
	}
	backoff := helpers.NewBackoff(retryMin, retryMax, 2)
	buf := make([]byte, pumpBufferSize)
	r = helpers.CountReader{R: r, N: &self.Stat.Bytes}
	for a.IsRunning() {
		n, err := r.Read(buf)
		if n > 0 {
			self.feed(buf[:n])
		}
		switch err {
		case nil:
			if backoff.Failures() != 0 {
				backoff.Reset()
			}
		case io.EOF:
			return nil
		default:
			self.Stat.Errors.Add(1)
			delay := backoff.DelayAfter(false)
			self.Log.Errorf("uart read err=%v retry in %v", err, delay)
			select {
			case <-a.StopChan():
				return nil
			case <-time.After(delay):
			}
		}
	}
	return nil
}

func (self *Pump) feed(chunk []byte) {
	for _, b := range chunk {
		msg, ok := self.Asm.Feed(b)
		if !ok {
			continue
		}
		self.Stat.Messages.Add(1)
		self.Log.Debugf("uart message len=%d %s", len(msg), self.Asm.Stat().String())
		if self.OnMessage != nil {
			self.OnMessage(msg)
		}
	}
}
