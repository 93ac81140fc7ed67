package radio

import (
	"expvar"
	"fmt"
	"io"
	"time"

	"github.com/juju/errors"
	gpio "github.com/temoto/gpio-cdev-go"
	"github.com/temoto/meterlink/hardware/uart"
	"github.com/temoto/meterlink/helpers"
	"github.com/temoto/meterlink/link"
	"github.com/temoto/meterlink/log2"
)

const (
	modName     = "radio.e32"
	gpioLabel   = "meterlink-e32"
	maxAirFrame = 512
	// AUX drops within few ms after UART idle, otherwise idle AUX right after write is ambiguous
	auxSettle = 5 * time.Millisecond
)

var errAuxBusy = fmt.Errorf("%s AUX busy", modName)

// E32 drives UART attached LoRa module (Ebyte E32 family) in transparent mode.
// AUX pin high means module is idle. M0=M1=0 selects normal mode.
// Send and TryReceive may run in different goroutines, each must be single owner.
type E32 struct {
	TxBytes expvar.Int
	RxBytes expvar.Int

	log      *log2.Log
	hw       e32hardware
	rssiByte bool
	rxGap    time.Duration
	rxChunk  [64]byte
	rxBuf    []byte
}

var _ link.Radio = &E32{}

type e32hardware struct {
	port uart.Port    // used
	aux  gpio.Eventer // used, may be nil
	mode gpio.Lineser // used, may be nil

	chip gpio.Chiper // only for resource cleanup
}

func OpenE32(log *log2.Log, c Config) (*E32, error) {
	self := &E32{
		log:      log,
		rssiByte: c.RssiByte,
		rxGap:    c.RxGap(),
		rxBuf:    make([]byte, 0, maxAirFrame),
	}
	if err := self.hw.open(&c, self.rxGap); err != nil {
		_ = self.hw.Close()
		return nil, errors.Annotate(err, modName)
	}
	if err := self.setNormalMode(); err != nil {
		_ = self.hw.Close()
		return nil, errors.Annotate(err, modName)
	}
	return self, nil
}

func (h *e32hardware) open(c *Config, readTimeout time.Duration) error {
	if c.testhw != nil {
		*h = *c.testhw
		return nil
	}

	var err error
	h.port, err = uart.Open(c.UartDevice, c.UartBaud, readTimeout)
	if err != nil {
		return err
	}
	if err = h.port.ResetInputBuffer(); err != nil {
		return errors.Annotate(err, "uart reset input")
	}
	if c.PinM0 == PinNone && c.PinAux == PinNone {
		return nil
	}

	h.chip, err = gpio.Open(c.GpioChip, gpioLabel)
	if err != nil {
		return errors.Annotatef(err, "gpio open chip=%s", c.GpioChip)
	}
	if c.PinM0 != PinNone {
		h.mode, err = h.chip.OpenLines(gpio.GPIOHANDLE_REQUEST_OUTPUT, gpioLabel, uint32(c.PinM0), uint32(c.PinM1))
		if err != nil {
			return errors.Annotatef(err, "gpio mode lines m0=%d m1=%d", c.PinM0, c.PinM1)
		}
	}
	if c.PinAux != PinNone {
		h.aux, err = h.chip.GetLineEvent(uint32(c.PinAux), gpio.GPIOHANDLE_REQUEST_INPUT,
			gpio.GPIOEVENT_REQUEST_RISING_EDGE, gpioLabel)
		if err != nil {
			return errors.Annotatef(err, "gpio aux line=%d", c.PinAux)
		}
	}
	return nil
}

func (h *e32hardware) Close() error {
	closers := []io.Closer{
		h.port,
		h.mode,
		h.aux,
		h.chip,
	}
	errs := make([]error, len(closers))
	for i, c := range closers {
		if c != nil {
			errs[i] = c.Close()
		}
	}
	return helpers.FoldErrors(errs)
}

func (self *E32) Close() error { return self.hw.Close() }

func (self *E32) setNormalMode() error {
	if self.hw.mode == nil {
		return nil
	}
	self.hw.mode.SetBulk(0, 0)
	if err := self.hw.mode.Flush(); err != nil {
		return errors.Annotate(err, "set normal mode")
	}
	return self.waitIdle(time.Now().Add(DefaultTxTimeout))
}

// Send returns after module reports transmit complete via AUX.
// Without AUX wired, Sent means bytes left UART.
func (self *E32) Send(payload []byte, timeout time.Duration) (link.Outcome, error) {
	deadline := time.Now().Add(timeout)
	if err := self.waitIdle(deadline); err != nil {
		return self.outcome(err, "before")
	}
	if err := helpers.WriteAll(helpers.CountWriter{W: self.hw.port, N: &self.TxBytes}, payload); err != nil {
		return link.Error, errors.Annotatef(err, "%s write", modName)
	}
	if err := self.hw.port.Drain(); err != nil {
		return link.Error, errors.Annotatef(err, "%s drain", modName)
	}
	if self.hw.aux != nil {
		time.Sleep(auxSettle)
	}
	if err := self.waitIdle(deadline); err != nil {
		return self.outcome(err, "after")
	}
	self.log.Debugf("%s sent len=%d", modName, len(payload))
	return link.Sent, nil
}

func (self *E32) outcome(err error, stage string) (link.Outcome, error) {
	if err == errAuxBusy {
		self.log.Debugf("%s send timeout %s write", modName, stage)
		return link.TimedOut, nil
	}
	return link.Error, errors.Annotatef(err, "%s %s write", modName, stage)
}

func (self *E32) waitIdle(deadline time.Time) error {
	if self.hw.aux == nil {
		return nil
	}
	for {
		v, err := self.hw.aux.Read()
		if err != nil {
			return errors.Annotate(err, "aux read")
		}
		if v != 0 {
			return nil
		}
		remain := time.Until(deadline)
		if remain <= 0 {
			return errAuxBusy
		}
		if _, err = self.hw.aux.Wait(remain); err != nil && !gpio.IsTimeout(err) {
			return errors.Annotate(err, "aux wait")
		}
	}
}

// TryReceive collects bytes of one air packet until rx gap of UART silence.
// When nothing is pending it returns after one read timeout (rx gap).
func (self *E32) TryReceive() (link.Frame, bool, error) {
	buf := self.rxBuf[:0]
	for len(buf) < maxAirFrame {
		n, err := self.hw.port.Read(self.rxChunk[:])
		if err != nil {
			return link.Frame{}, false, errors.Annotatef(err, "%s read pending=%x", modName, buf)
		}
		if n == 0 {
			break
		}
		buf = append(buf, self.rxChunk[:n]...)
	}
	if len(buf) == 0 {
		return link.Frame{}, false, nil
	}
	self.RxBytes.Add(int64(len(buf)))

	f := link.Frame{}
	if self.rssiByte {
		if len(buf) < 2 {
			self.log.Debugf("%s short frame=%x", modName, buf)
			return link.Frame{}, false, nil
		}
		f.RSSI = rssiDBm(buf[len(buf)-1])
		buf = buf[:len(buf)-1]
	}
	f.Payload = append([]byte(nil), buf...)
	return f, true, nil
}

func rssiDBm(b byte) int16 { return -(256 - int16(b)) }
