package publish

import (
	"fmt"
	"testing"
	"time"

	"github.com/golang/protobuf/proto"
	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/temoto/meterlink/helpers"
	"github.com/temoto/meterlink/internal/gateway"
	"github.com/temoto/meterlink/log2"
	"github.com/temoto/meterlink/sml"
	"github.com/temoto/meterlink/wire"
)

func testConfig() Config {
	return Config{
		Enable:            true,
		MqttBroker:        "tcp://localhost:1883",
		MqttClientId:      "gw1",
		NetworkTimeoutSec: 1,
	}
}

func testReport(counter uint32) gateway.Report {
	return gateway.Report{
		Packet: wire.Packet{
			Reading:        sml.Reading{PowerWatts: -120, ConsumptionKWh: 12.345},
			BatteryVoltage: 3.7,
			Counter:        counter,
		},
		RSSI:     -87,
		SNR:      9.5,
		Gap:      2,
		Missed:   5,
		Received: time.Unix(1500000000, 42),
	}
}

// receive skips messages from other topics, e.g. state published on connect
func receive(t testing.TB, mock *MqttMock, topic string) MockMsg {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case msg := <-mock.Pub:
			if msg.T == topic {
				return msg
			}
		case <-timeout:
			t.Fatalf("no message topic=%s", topic)
			return MockMsg{}
		}
	}
}

func openMqtt(t testing.TB, c Config) (*publisher, *MqttMock) {
	log := log2.NewTest(t, log2.LDebug)
	mock := NewMqttMock()
	p, err := NewWithTransporter(log, c, &transportMqtt{newClient: mock.MockNew})
	require.NoError(t, err)
	p.backoff.SetLimits(time.Millisecond, 5*time.Millisecond)
	return p, mock
}

func TestPublishReport(t *testing.T) {
	t.Parallel()
	p, mock := openMqtt(t, testConfig())
	defer p.Close()

	state := receive(t, mock, "meterlink/gw1/state")
	assert.Equal(t, []byte{StateOnline}, state.P)
	assert.True(t, state.R)

	p.Report(testReport(7))
	msg := receive(t, mock, "meterlink/gw1/report")
	assert.Equal(t, byte(1), msg.Q)
	assert.False(t, msg.R)
	var r Report
	require.NoError(t, proto.Unmarshal(msg.P, &r))
	assert.Equal(t, uint32(7), r.Counter)
	assert.Equal(t, float32(-120), r.PowerWatts)
	assert.Equal(t, float32(12.345), r.ConsumptionKwh)
	assert.Equal(t, float32(3.7), r.BatteryVoltage)
	assert.Equal(t, int32(-87), r.Rssi)
	assert.Equal(t, float32(9.5), r.Snr)
	assert.Equal(t, uint32(2), r.Gap)
	assert.Equal(t, uint32(5), r.Missed)
	assert.False(t, r.First)
	assert.Equal(t, time.Unix(1500000000, 42).UnixNano(), r.ReceivedUnixNano)
	assert.Equal(t, "gw1", r.GatewayId)
}

func TestPublishOrder(t *testing.T) {
	t.Parallel()
	p, mock := openMqtt(t, testConfig())
	defer p.Close()

	const n = 10
	for i := uint32(1); i <= n; i++ {
		p.Report(testReport(i))
	}
	for i := uint32(1); i <= n; i++ {
		msg := receive(t, mock, "meterlink/gw1/report")
		var r Report
		require.NoError(t, proto.Unmarshal(msg.P, &r))
		assert.Equal(t, i, r.Counter)
	}
	assert.Equal(t, int64(n), p.Stat.Queued.Value())
}

func TestPublishRetry(t *testing.T) {
	t.Parallel()
	p, mock := openMqtt(t, testConfig())
	defer p.Close()
	_ = receive(t, mock, "meterlink/gw1/state")

	mock.FailPublish(2)
	p.Report(testReport(3))
	msg := receive(t, mock, "meterlink/gw1/report")
	var r Report
	require.NoError(t, proto.Unmarshal(msg.P, &r))
	assert.Equal(t, uint32(3), r.Counter)
	assert.Equal(t, int64(2), p.Stat.Retried.Value())
	assert.Eventually(t, func() bool { return p.Stat.Delivered.Value() == 1 }, time.Second, time.Millisecond)
}

func TestPublishError(t *testing.T) {
	t.Parallel()
	p, mock := openMqtt(t, testConfig())
	defer p.Close()

	log := log2.NewTest(t, log2.LDebug)
	log.SetErrorFunc(p.Error)
	log.Errorf("radio timeout count=%d", 3)
	msg := receive(t, mock, "meterlink/gw1/error")
	var e Error
	require.NoError(t, proto.Unmarshal(msg.P, &e))
	assert.Equal(t, "radio timeout count=3", e.Message)
	assert.Equal(t, "gw1", e.GatewayId)
	assert.NotZero(t, e.TimeUnixNano)
}

func TestPublishWill(t *testing.T) {
	t.Parallel()
	p, mock := openMqtt(t, testConfig())
	_ = receive(t, mock, "meterlink/gw1/state")

	assert.Equal(t, "meterlink/gw1/state", mock.Opt.WillTopic)
	assert.Equal(t, []byte{StateOffline}, mock.Opt.WillPayload)
	assert.True(t, mock.Opt.WillRetained)
	assert.Equal(t, "gw1", mock.Opt.ClientID)

	require.NoError(t, p.Close())
	msg := receive(t, mock, "meterlink/gw1/state")
	assert.Equal(t, []byte{StateOffline}, msg.P)
	assert.True(t, msg.R)
	assert.False(t, mock.IsConnected())
}

func TestPublishPersist(t *testing.T) {
	t.Parallel()
	log := log2.NewTest(t, log2.LDebug)
	c := testConfig()
	c.PersistPath = t.TempDir()

	down := newTransportMock(true)
	p1, err := NewWithTransporter(log, c, down)
	require.NoError(t, err)
	p1.Report(testReport(11))
	p1.Report(testReport(12))
	require.NoError(t, p1.Close())
	assert.Empty(t, down.Reports())

	up := newTransportMock(false)
	p2, err := NewWithTransporter(log, c, up)
	require.NoError(t, err)
	defer p2.Close()
	for i := 0; i < 2; i++ {
		select {
		case <-up.sent:
		case <-time.After(5 * time.Second):
			t.Fatal("persisted report not delivered")
		}
	}
	got := make([]uint32, 0, 2)
	for _, b := range up.Reports() {
		var r Report
		require.NoError(t, proto.Unmarshal(b, &r))
		got = append(got, r.Counter)
	}
	// failed delivery moves message to queue tail
	assert.ElementsMatch(t, []uint32{11, 12}, got)
	assert.Equal(t, int64(0), p1.Stat.Dropped.Value())
}

func TestOpenDisabled(t *testing.T) {
	t.Parallel()
	log := log2.NewTest(t, log2.LDebug)
	p, err := Open(log, Config{Enable: false})
	require.NoError(t, err)
	assert.Equal(t, Noop{}, p)
	p.Report(testReport(1))
	p.Error(errors.New("ignored"))
	assert.NoError(t, p.Close())
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()
	type Case struct {
		name   string
		c      Config
		expect string
		check  func(testing.TB, *Config)
	}
	cases := []Case{
		{"disabled", Config{}, "", nil},
		{"no-broker", Config{Enable: true}, "publish mqtt_broker empty not valid", nil},
		{"bad-broker", Config{Enable: true, MqttBroker: "localhost"}, "mqtt_broker=localhost", nil},
		{"defaults", Config{Enable: true, MqttBroker: "tls://broker:8883"}, "", func(t testing.TB, c *Config) {
			assert.Equal(t, DefaultTopicPrefix, c.TopicPrefix)
			assert.Regexp(t, `^meterlink-[0-9a-f-]{36}$`, c.MqttClientId)
			assert.Equal(t, DefaultNetworkTimeout, c.NetworkTimeout())
			assert.Equal(t, DefaultKeepalive, c.Keepalive())
		}},
		{"topics", Config{Enable: true, MqttBroker: "tcp://b:1883", TopicPrefix: "home", MqttClientId: "cellar"}, "", func(t testing.TB, c *Config) {
			assert.Equal(t, "home/cellar/report", c.TopicReport())
			assert.Equal(t, "home/cellar/state", c.TopicState())
			assert.Equal(t, "home/cellar/error", c.TopicError())
		}},
	}
	helpers.RandUnix().Shuffle(len(cases), func(i int, j int) { cases[i], cases[j] = cases[j], cases[i] })
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()
			err := c.c.Validate()
			if c.expect == "" {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), c.expect)
				assert.True(t, errors.IsNotValid(err), fmt.Sprintf("err=%v", err))
			}
			if c.check != nil {
				c.check(t, &c.c)
			}
		})
	}
}
