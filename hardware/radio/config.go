// Package radio implements link.Radio for UART attached LoRa modules and an
// in-memory loopback for tests and simulation.
package radio

import (
	"time"

	"github.com/juju/errors"
	"github.com/temoto/meterlink/helpers"
	"github.com/temoto/meterlink/link"
	"github.com/temoto/meterlink/log2"
)

const (
	DriverE32      = "e32"
	DriverLoopback = "loopback"

	DefaultTxTimeout = 3000 * time.Millisecond
	DefaultRxGap     = 50 * time.Millisecond

	PinNone = -1
)

type Config struct { //nolint:maligned
	Driver      string `hcl:"driver"`
	UartDevice  string `hcl:"uart_device"`
	UartBaud    int    `hcl:"uart_baud"`
	RssiByte    bool   `hcl:"rssi_byte"`
	TxTimeoutMs int    `hcl:"tx_timeout_ms"`
	RxGapMs     int    `hcl:"rx_gap_ms"`
	GpioChip    string `hcl:"gpio_chip"`
	PinM0       int    `hcl:"pin_m0"`
	PinM1       int    `hcl:"pin_m1"`
	PinAux      int    `hcl:"pin_aux"`

	testhw *e32hardware
}

// Default pins to "not wired". HCL leaves absent ints at 0 which is a valid line.
func DefaultConfig() Config {
	return Config{
		Driver:   DriverE32,
		GpioChip: "/dev/gpiochip0",
		PinM0:    PinNone,
		PinM1:    PinNone,
		PinAux:   PinNone,
	}
}

func (c *Config) TxTimeout() time.Duration {
	return helpers.IntMillisecondDefault(c.TxTimeoutMs, DefaultTxTimeout)
}
func (c *Config) RxGap() time.Duration { return helpers.IntMillisecondDefault(c.RxGapMs, DefaultRxGap) }

func (c *Config) Validate() error {
	switch c.Driver {
	case "":
		c.Driver = DriverE32
	case DriverE32, DriverLoopback:
	default:
		return errors.NotValidf("radio driver=%s", c.Driver)
	}
	if c.Driver == DriverE32 && c.UartDevice == "" && c.testhw == nil {
		return errors.NotValidf("radio uart_device empty")
	}
	if (c.PinM0 == PinNone) != (c.PinM1 == PinNone) {
		return errors.NotValidf("radio pin_m0=%d pin_m1=%d must be both wired or both -1", c.PinM0, c.PinM1)
	}
	for _, p := range []int{c.PinM0, c.PinM1, c.PinAux} {
		if p < PinNone {
			return errors.NotValidf("radio pin=%d", p)
		}
	}
	return nil
}

// Open returns transceiver by config driver.
// Loopback driver echoes sent packets back to own receive queue.
func Open(log *log2.Log, c Config) (link.Radio, error) {
	if err := c.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	switch c.Driver {
	case DriverLoopback:
		return NewLoopbackEcho(), nil
	default:
		r, err := OpenE32(log, c)
		if err != nil {
			return nil, err
		}
		return r, nil
	}
}
