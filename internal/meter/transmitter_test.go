package meter

import (
	"bytes"
	"fmt"
	"io/ioutil"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/temoto/alive/v2"
	"github.com/temoto/meterlink/hardware/radio"
	"github.com/temoto/meterlink/link"
	"github.com/temoto/meterlink/log2"
	"github.com/temoto/meterlink/sml"
	"github.com/temoto/meterlink/wire"
)

type fakeRadio struct {
	outcome link.Outcome
	err     error
	sent    int
}

func (f *fakeRadio) Send(payload []byte, timeout time.Duration) (link.Outcome, error) {
	f.sent++
	return f.outcome, f.err
}
func (f *fakeRadio) TryReceive() (link.Frame, bool, error) { return link.Frame{}, false, nil }
func (f *fakeRadio) Close() error                          { return nil }

type fixedBattery float32

func (f fixedBattery) Voltage() float32 { return float32(f) }

func newTestTransmitter(t testing.TB, c Config) (*Transmitter, *radio.Loopback) {
	log := log2.NewTest(t, log2.LDebug)
	a, b := radio.NewLoopbackPair()
	tx, err := NewTransmitter(log, c, a, fixedBattery(3.7), time.Second)
	require.NoError(t, err)
	return tx, b
}

func receivePacket(t testing.TB, r link.Radio) wire.Packet {
	t.Helper()
	f, ok, err := r.TryReceive()
	require.NoError(t, err)
	require.True(t, ok, "expected packet on air")
	p, err := wire.Decode(f.Payload)
	require.NoError(t, err)
	return p
}


func TestTransmitterCounter(t *testing.T) {
	t.Parallel()
	log := log2.NewTest(t, log2.LDebug)
	a, b := radio.NewLoopbackPair()
	tx, err := NewTransmitter(log, Config{}, a, fixedBattery(3.7), time.Second)
	require.NoError(t, err)
	for i := uint32(1); i <= 3; i++ {
		p, o, err := tx.Tick()
		require.NoError(t, err)
		assert.Equal(t, link.Sent, o)
		assert.Equal(t, i, p.Counter)
		rp := receivePacket(t, b)
		assert.Equal(t, p, rp)
		assert.Equal(t, sml.Reading{}, rp.Reading, "no meter data yet")
		assert.Equal(t, float32(3.7), rp.BatteryVoltage)
	}
	assert.Equal(t, int64(3), tx.Stat.Sent.Count.Value())
	assert.Equal(t, int64(60), tx.Stat.Sent.Size.Value())
}

func TestTransmitterLatestWins(t *testing.T) {
	t.Parallel()
	tx, b := newTestTransmitter(t, Config{})
	tx.OnMessage(sml.EncodeReading(100, 1000, 0))
	tx.OnMessage(sml.EncodeReading(-120, 12345, 0))
	_, _, err := tx.Tick()
	require.NoError(t, err)
	p := receivePacket(t, b)
	assert.Equal(t, float32(-120), p.PowerWatts)
	assert.InDelta(t, 12.345, p.ConsumptionKWh, 1e-6)

	// no fresh data: same reading again, next counter
	_, _, err = tx.Tick()
	require.NoError(t, err)
	p2 := receivePacket(t, b)
	assert.Equal(t, p.Reading, p2.Reading)
	assert.Equal(t, p.Counter+1, p2.Counter)
}

func TestTransmitterStale(t *testing.T) {
	t.Parallel()
	tx, _ := newTestTransmitter(t, Config{})
	assert.False(t, tx.Stale())
	tx.started.SetTime(time.Now().Add(-DefaultStaleWarn - time.Second))
	assert.True(t, tx.Stale(), "nothing received since start")
	tx.OnMessage(sml.EncodeReading(1, 1, 1))
	assert.False(t, tx.Stale())
	tx.lastMessage.SetTime(time.Now().Add(-3 * time.Minute))
	assert.True(t, tx.Stale())
	_, o, err := tx.Tick()
	assert.NoError(t, err)
	assert.Equal(t, link.Sent, o, "stale data is still sent")
}

func TestTransmitterOutcomes(t *testing.T) {
	t.Parallel()
	log := log2.NewTest(t, log2.LDebug)
	fr := &fakeRadio{outcome: link.TimedOut}
	tx, err := NewTransmitter(log, Config{}, fr, nil, time.Second)
	require.NoError(t, err)
	p, o, err := tx.Tick()
	assert.NoError(t, err)
	assert.Equal(t, link.TimedOut, o)
	assert.Equal(t, float32(0), p.BatteryVoltage)

	fr.outcome, fr.err = link.Error, fmt.Errorf("uart gone")
	p, o, err = tx.Tick()
	require.Error(t, err)
	assert.Equal(t, link.Error, o)
	assert.Contains(t, err.Error(), "uart gone")
	assert.Equal(t, uint32(2), p.Counter, "counter advances regardless of outcome")
	assert.Equal(t, 2, fr.sent)
	assert.Equal(t, int64(1), tx.Stat.TimedOut.Value())
	assert.Equal(t, int64(1), tx.Stat.SendError.Value())
}

func TestTransmitterPersistCounter(t *testing.T) {
	t.Parallel()
	dir, err := ioutil.TempDir("", "meterlink-meter-")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	c := Config{CounterDir: dir}

	tx1, _ := newTestTransmitter(t, c)
	for i := 0; i < 2; i++ {
		_, _, err = tx1.Tick()
		require.NoError(t, err)
	}
	tx2, b := newTestTransmitter(t, c)
	_, _, err = tx2.Tick()
	require.NoError(t, err)
	assert.Equal(t, uint32(3), receivePacket(t, b).Counter)
}

func TestTransmitterRun(t *testing.T) {
	t.Parallel()
	tx, b := newTestTransmitter(t, Config{})
	tx.interval = 5 * time.Millisecond

	stream := bytes.Repeat(sml.EncodeReading(-50, 777, 3), 3)
	a := alive.NewAlive()
	pump := tx.Pump()
	require.NoError(t, pump.Run(a, bytes.NewReader(stream)))
	assert.Equal(t, int64(3), pump.Stat.Messages.Value())

	go tx.Run(a)
	var p wire.Packet
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		f, ok, err := b.TryReceive()
		require.NoError(t, err)
		if ok {
			p, err = wire.Decode(f.Payload)
			require.NoError(t, err)
			break
		}
		time.Sleep(time.Millisecond)
	}
	a.Stop()
	a.Wait()
	assert.Equal(t, uint32(1), p.Counter)
	assert.Equal(t, float32(-50), p.PowerWatts)
	assert.InDelta(t, 0.777, p.ConsumptionKWh, 1e-6)
	assert.InDelta(t, 0.003, p.GenerationKWh, 1e-6)
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()
	c := Config{}
	require.NoError(t, c.Validate())
	assert.Equal(t, 512, c.BufferSize)
	assert.Equal(t, DefaultUartBaud, c.UartBaud)
	assert.Equal(t, DefaultSendInterval, c.SendInterval())
	assert.Equal(t, DefaultStaleWarn, c.StaleWarn())
	c = Config{BufferSize: 4}
	assert.Error(t, c.Validate())
	c = Config{BufferSize: 8, StrictFraming: true}
	assert.Error(t, c.Validate())
	c = Config{BufferSize: 13, StrictFraming: true}
	assert.NoError(t, c.Validate())
}
