package publish

import (
	"crypto/tls"
	"crypto/x509"
	"io/ioutil"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/juju/errors"
	"github.com/temoto/meterlink/log2"
)

type transportMqtt struct {
	log    *log2.Log
	m      mqtt.Client
	mopt   *mqtt.ClientOptions
	stopCh chan struct{}
	// test code replaces paho client
	newClient func(*mqtt.ClientOptions) mqtt.Client

	topicReport string
	topicState  string
	topicError  string
}

func (self *transportMqtt) Init(log *log2.Log, c Config, willPayload []byte) error {
	self.log = log
	self.stopCh = make(chan struct{})
	mqttLog := log.Clone(log2.LInfo)
	mqttLog.SetPrefix("publish.mqtt ")
	mqtt.CRITICAL = mqttLog
	mqtt.ERROR = mqttLog
	mqtt.WARN = mqttLog
	if c.MqttLogDebug {
		mqtt.DEBUG = mqttLog
	}

	self.topicReport = c.TopicReport()
	self.topicState = c.TopicState()
	self.topicError = c.TopicError()

	networkTimeout := c.NetworkTimeout()
	connectTimeout := networkTimeout * 3

	var tlsconf *tls.Config
	if c.TlsCaFile != "" {
		tlsconf = new(tls.Config)
		tlsconf.RootCAs = x509.NewCertPool()
		cabytes, err := ioutil.ReadFile(c.TlsCaFile)
		if err != nil {
			return errors.Annotate(err, "publish TLS")
		}
		tlsconf.RootCAs.AppendCertsFromPEM(cabytes)
	}

	defaultHandler := func(_ mqtt.Client, msg mqtt.Message) {
		self.log.Errorf("publish: unexpected mqtt message topic=%s", msg.Topic())
	}
	onConnect := func(client mqtt.Client) {
		self.log.Infof("publish: mqtt connected")
		// retained state replaces last will left from previous connection
		client.Publish(self.topicState, 1, true, []byte{StateOnline})
	}
	onLost := func(_ mqtt.Client, err error) {
		self.log.Infof("publish: mqtt connection lost err=%v", err)
	}
	self.mopt = mqtt.NewClientOptions().
		AddBroker(c.MqttBroker).
		SetAutoReconnect(true).
		SetBinaryWill(self.topicState, willPayload, 1, true).
		SetCleanSession(true).
		SetClientID(c.MqttClientId).
		SetConnectTimeout(connectTimeout).
		SetConnectionLostHandler(onLost).
		SetDefaultPublishHandler(defaultHandler).
		SetKeepAlive(c.Keepalive()).
		SetMaxReconnectInterval(connectTimeout).
		SetOnConnectHandler(onConnect).
		SetOrderMatters(false).
		SetPingTimeout(networkTimeout).
		SetWriteTimeout(networkTimeout)
	if c.MqttUsername != "" {
		self.mopt.SetUsername(c.MqttUsername).SetPassword(c.MqttPassword)
	}
	if tlsconf != nil {
		self.mopt.SetTLSConfig(tlsconf)
	}
	if self.newClient == nil { // production path
		self.newClient = mqtt.NewClient
	}
	self.m = self.newClient(self.mopt)

	go self.online()
	return nil
}

func (self *transportMqtt) Close() {
	select {
	case <-self.stopCh:
		return
	default:
	}
	close(self.stopCh)
	if self.m.IsConnected() {
		self.m.Disconnect(uint(self.mopt.PingTimeout / time.Millisecond))
	}
}

func (self *transportMqtt) SendReport(payload []byte) bool {
	t := self.m.Publish(self.topicReport, 1, false, payload)
	return self.tokenWait(t, self.mopt.WriteTimeout, "publish report") == nil
}

func (self *transportMqtt) SendError(payload []byte) bool {
	t := self.m.Publish(self.topicError, 1, false, payload)
	return self.tokenWait(t, self.mopt.WriteTimeout, "publish error") == nil
}

func (self *transportMqtt) SendState(payload []byte) bool {
	t := self.m.Publish(self.topicState, 1, true, payload)
	return self.tokenWait(t, self.mopt.WriteTimeout, "publish state") == nil
}

// Only first connect is retried here, later reconnects are done by paho.
func (self *transportMqtt) online() {
	for self.isRunning() {
		self.log.Debugf("publish: mqtt connect broker=%v", self.mopt.Servers)
		t := self.m.Connect()
		if self.tokenWait(t, self.mopt.ConnectTimeout, "connect") == nil {
			return // success path
		}
		select {
		case <-self.stopCh:
			return
		case <-time.After(self.mopt.ConnectTimeout / 3):
		}
	}
}

func (self *transportMqtt) isRunning() bool {
	select {
	case <-self.stopCh:
		return false
	default:
		return true
	}
}

func (self *transportMqtt) tokenWait(t mqtt.Token, timeout time.Duration, tag string) error {
	if !t.WaitTimeout(timeout) {
		err := errors.Errorf("%s timeout", tag)
		self.log.Errorf("publish: MQTT %s", err.Error())
		return err
	}
	if err := t.Error(); err != nil {
		err = errors.Annotate(err, tag)
		self.log.Errorf("publish: MQTT %s", err.Error())
		return err
	}
	return nil
}
