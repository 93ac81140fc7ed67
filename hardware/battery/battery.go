// Package battery reads supply voltage reported in every transmitted packet.
package battery

import (
	"fmt"
	"io/ioutil"
	"strconv"
	"strings"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/meterlink/helpers"
	"github.com/temoto/meterlink/helpers/cacheval"
	"github.com/temoto/meterlink/log2"
)

const (
	DriverNone   = ""
	DriverFixed  = "fixed"
	DriverSysfs  = "sysfs"
	DriverINA219 = "ina219"

	DefaultCache      = 10 * time.Second
	DefaultSysfsScale = 1e-6 // microvolts
)

type Sensor interface {
	Voltage() (float32, error)
}

type Config struct { //nolint:maligned
	Driver     string  `hcl:"driver"`
	FixedVolt  float64 `hcl:"fixed_volt"`
	SysfsPath  string  `hcl:"sysfs_path"`
	SysfsScale float64 `hcl:"sysfs_scale"`
	I2cBus     string  `hcl:"i2c_bus"`
	I2cAddr    int     `hcl:"i2c_addr"`
	CacheMs    int     `hcl:"cache_ms"`

	testhw *ina219hw
}

func (c *Config) Cache() time.Duration { return helpers.IntMillisecondDefault(c.CacheMs, DefaultCache) }

func (c *Config) Validate() error {
	switch c.Driver {
	case DriverNone, DriverFixed:
	case DriverSysfs:
		if c.SysfsPath == "" {
			return errors.NotValidf("battery sysfs_path empty")
		}
		if c.SysfsScale == 0 {
			c.SysfsScale = DefaultSysfsScale
		}
	case DriverINA219:
		if c.I2cAddr == 0 {
			c.I2cAddr = ina219DefaultAddr
		}
		if c.I2cAddr < 0x03 || c.I2cAddr > 0x77 {
			return errors.NotValidf("battery i2c_addr=%#x", c.I2cAddr)
		}
	default:
		return errors.NotValidf("battery driver=%s", c.Driver)
	}
	return nil
}

// Fixed is for mains powered transmitters and tests.
type Fixed float32

func (f Fixed) Voltage() (float32, error) { return float32(f), nil }

// Sysfs reads integer from file, e.g. power_supply voltage_now or iio in_voltageN_raw.
type Sysfs struct {
	Path  string
	Scale float64
}

func (s Sysfs) Voltage() (float32, error) {
	b, err := ioutil.ReadFile(s.Path)
	if err != nil {
		return 0, errors.Annotate(err, "battery sysfs")
	}
	x, err := strconv.ParseInt(strings.TrimSpace(string(b)), 10, 64)
	if err != nil {
		return 0, errors.Annotatef(err, "battery sysfs path=%s", s.Path)
	}
	return float32(float64(x) * s.Scale), nil
}

// Open returns nil Monitor for empty driver. Nil Monitor reports 0 V.
func Open(log *log2.Log, c Config) (*Monitor, error) {
	if err := c.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	var s Sensor
	switch c.Driver {
	case DriverNone:
		return nil, nil
	case DriverFixed:
		s = Fixed(c.FixedVolt)
	case DriverSysfs:
		s = Sysfs{Path: c.SysfsPath, Scale: c.SysfsScale}
	case DriverINA219:
		ina, err := OpenINA219(&c)
		if err != nil {
			return nil, errors.Annotate(err, "battery")
		}
		s = ina
	}
	return NewMonitor(log, s, c.Cache()), nil
}

// Monitor caches sensor reading, hardware is not queried for every packet.
type Monitor struct {
	log    *log2.Log
	sensor Sensor
	cv     cacheval.Float32
}

func NewMonitor(log *log2.Log, s Sensor, valid time.Duration) *Monitor {
	m := &Monitor{log: log, sensor: s}
	m.cv.Init(valid)
	return m
}

// Voltage never fails. Sensor error is logged and reported as 0 V,
// packet goes on air anyway.
func (m *Monitor) Voltage() float32 {
	if m == nil {
		return 0
	}
	return m.cv.GetOrUpdate(m.refresh)
}

func (m *Monitor) refresh() {
	v, err := m.sensor.Voltage()
	if err != nil {
		m.log.Error(errors.Annotate(err, "battery read"))
		v = 0
	}
	m.cv.Set(v)
}

func (m *Monitor) String() string {
	if m == nil {
		return "battery=none"
	}
	return fmt.Sprintf("battery=%.2fV age=%v", m.cv.Get(), m.cv.Age().Truncate(time.Millisecond))
}

func (m *Monitor) Close() error {
	if m == nil {
		return nil
	}
	if c, ok := m.sensor.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
