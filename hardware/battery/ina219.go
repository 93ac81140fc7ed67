package battery

import (
	"github.com/juju/errors"
	"periph.io/x/periph/conn/i2c"
	"periph.io/x/periph/conn/i2c/i2creg"
	"periph.io/x/periph/host"
)

const (
	ina219DefaultAddr = 0x40
	ina219RegBus      = 0x02
	ina219BusLSB      = 4 // mV
	ina219FlagOVF     = 0x0001
)

type TxFunc func(w, r []byte) error

type ina219hw struct {
	tx  TxFunc        // used
	bus i2c.BusCloser // only for resource cleanup
}

// INA219 measures bus voltage of battery rail. Shunt and current are not used.
type INA219 struct {
	hw ina219hw
}

func OpenINA219(c *Config) (*INA219, error) {
	self := &INA219{}
	if c.testhw != nil {
		self.hw = *c.testhw
		return self, nil
	}
	if _, err := host.Init(); err != nil {
		return nil, errors.Annotate(err, "periph/init")
	}
	bus, err := i2creg.Open(c.I2cBus)
	if err != nil {
		return nil, errors.Annotatef(err, "I2C Open bus=%s", c.I2cBus)
	}
	dev := &i2c.Dev{Bus: bus, Addr: uint16(c.I2cAddr)}
	self.hw = ina219hw{tx: dev.Tx, bus: bus}
	return self, nil
}

func (self *INA219) Voltage() (float32, error) {
	var r [2]byte
	if err := self.hw.tx([]byte{ina219RegBus}, r[:]); err != nil {
		return 0, errors.Annotate(err, "ina219 read bus voltage")
	}
	raw := uint16(r[0])<<8 | uint16(r[1])
	if raw&ina219FlagOVF != 0 {
		return 0, errors.Errorf("ina219 math overflow raw=%04x", raw)
	}
	mv := (raw >> 3) * ina219BusLSB
	return float32(mv) / 1000, nil
}

func (self *INA219) Close() error {
	if self.hw.bus == nil {
		return nil
	}
	return self.hw.bus.Close()
}
