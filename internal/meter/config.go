package meter

import (
	"time"

	"github.com/juju/errors"
	"github.com/temoto/meterlink/helpers"
	"github.com/temoto/meterlink/schema"
)

const (
	DefaultSendInterval = 30 * time.Second
	DefaultStaleWarn    = 120 * time.Second
	DefaultUartBaud     = 9600
)

type Config struct { //nolint:maligned
	UartDevice      string `hcl:"uart_device"`
	UartBaud        int    `hcl:"uart_baud"`
	BufferSize      int    `hcl:"buffer_size"`
	StrictFraming   bool   `hcl:"strict_framing"`
	SendIntervalSec int    `hcl:"send_interval_sec"`
	StaleWarnSec    int    `hcl:"stale_warn_sec"`
	CounterDir      string `hcl:"counter_dir"`
}

func (c *Config) SendInterval() time.Duration {
	return helpers.IntSecondDefault(c.SendIntervalSec, DefaultSendInterval)
}
func (c *Config) StaleWarn() time.Duration {
	return helpers.IntSecondDefault(c.StaleWarnSec, DefaultStaleWarn)
}

func (c *Config) Validate() error {
	if c.BufferSize == 0 {
		c.BufferSize = schema.DefaultMessageCapacity
	}
	min := schema.EndMarkerLen
	if c.StrictFraming {
		min += schema.StartMarkerLen
	}
	if c.BufferSize < min {
		return errors.NotValidf("meter buffer_size=%d (min=%d)", c.BufferSize, min)
	}
	if c.UartBaud == 0 {
		c.UartBaud = DefaultUartBaud
	}
	if c.UartBaud < 0 {
		return errors.NotValidf("meter uart_baud=%d", c.UartBaud)
	}
	return nil
}
