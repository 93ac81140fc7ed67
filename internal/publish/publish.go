// Package publish delivers gateway reports to MQTT through a persistent queue.
package publish

import (
	"expvar"
	"fmt"
	"time"

	"github.com/golang/protobuf/proto"
	"github.com/juju/errors"
	"github.com/temoto/alive/v2"
	"github.com/temoto/meterlink/helpers"
	"github.com/temoto/meterlink/internal/gateway"
	"github.com/temoto/meterlink/log2"
	"github.com/temoto/spq"
)

const (
	retryMin = 1 * time.Second
	retryMax = 60 * time.Second
)

// Publisher contract:
// - Report and Error block at most for queue disk write
// - network may be slow or absent, messages are delivered in background at least once
// - Close stops delivery, undelivered messages stay in persistent queue
type Publisher interface {
	gateway.Sink
	Error(error)
	Close() error
}

type Stat struct {
	Queued    expvar.Int
	Delivered expvar.Int
	Retried   expvar.Int
	Dropped   expvar.Int
}

func (s *Stat) String() string {
	return fmt.Sprintf(`{"queued":%d,"delivered":%d,"retried":%d,"dropped":%d}`,
		s.Queued.Value(), s.Delivered.Value(), s.Retried.Value(), s.Dropped.Value())
}

type Noop struct{}

func (Noop) Report(gateway.Report) {}
func (Noop) Error(error)           {}
func (Noop) Close() error          { return nil }

var _ Publisher = Noop{}

type publisher struct {
	Stat Stat

	config    Config
	log       *log2.Log
	transport Transporter
	q         *spq.Queue
	alive     *alive.Alive
	backoff   *helpers.Backoff
}

// Open returns Noop when publish is disabled.
func Open(log *log2.Log, c Config) (Publisher, error) {
	if !c.Enable {
		log.Debugf("publish disabled")
		return Noop{}, nil
	}
	return NewWithTransporter(log, c, &transportMqtt{})
}

func NewWithTransporter(log *log2.Log, c Config, trans Transporter) (*publisher, error) {
	if err := c.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	self := &publisher{
		config:    c,
		transport: trans,
		alive:     alive.NewAlive(),
		backoff:   helpers.NewBackoff(retryMin, retryMax, 2),
	}
	// own logger without error func: delivery errors must not be published
	level := log2.Level(log2.LInfo)
	if c.LogDebug {
		level = log2.LDebug
	}
	self.log = log.Clone(level)

	path := c.PersistPath
	if path == "" {
		path = spq.OnlyForTesting
		self.log.Infof("publish persist_path empty, queue in memory")
	}
	var err error
	self.q, err = spq.Open(path)
	if err != nil {
		return nil, errors.Annotatef(err, "publish queue path=%s", c.PersistPath)
	}
	if err := self.transport.Init(self.log, c, []byte{StateOffline}); err != nil {
		_ = self.q.Close()
		return nil, errors.Annotate(err, "publish transport")
	}
	self.log.Infof("publish client_id=%s topic=%s", c.MqttClientId, c.TopicReport())

	self.alive.Add(1)
	go self.qworker()
	return self, nil
}

func (self *publisher) Close() error {
	self.alive.Stop()
	err := self.q.Close()
	self.alive.Wait()
	self.transport.SendState([]byte{StateOffline})
	self.transport.Close()
	return errors.Annotate(err, "publish close")
}

func (self *publisher) Report(r gateway.Report) {
	pb := ReportProto(r, self.config.MqttClientId)
	if err := self.qpushTagProto(qReport, pb); err != nil {
		self.log.Errorf("CRITICAL publish queue report=%s err=%v", r.String(), err)
	}
}

// Error is meant for log2.SetErrorFunc.
func (self *publisher) Error(e error) {
	pb := &Error{
		Message:      e.Error(),
		TimeUnixNano: time.Now().UnixNano(),
		GatewayId:    self.config.MqttClientId,
	}
	if err := self.qpushTagProto(qError, pb); err != nil {
		self.log.Errorf("CRITICAL publish queue error=%v err=%v", e, err)
	}
}

func ReportProto(r gateway.Report, gatewayID string) *Report {
	return &Report{
		Counter:          r.Counter,
		PowerWatts:       r.PowerWatts,
		ConsumptionKwh:   r.ConsumptionKWh,
		GenerationKwh:    r.GenerationKWh,
		BatteryVoltage:   r.BatteryVoltage,
		Rssi:             int32(r.RSSI),
		Snr:              r.SNR,
		Gap:              r.Gap,
		Missed:           r.Missed,
		First:            r.First,
		ReceivedUnixNano: r.Received.UnixNano(),
		GatewayId:        gatewayID,
	}
}

// denote value type in persistent queue bytes form
const (
	qReport byte = 1
	qError  byte = 2
)

func (self *publisher) qworker() {
	defer self.alive.Done()
	for {
		box, err := self.q.Peek()
		switch err {
		case nil:
			b := box.Bytes()
			var del bool
			del, err = self.qhandle(b)
			if err != nil {
				self.Stat.Dropped.Add(1)
				self.log.Errorf("publish qhandle b=%x err=%v", b, err)
			}
			if del {
				if err = self.q.Delete(box); err != nil {
					self.log.Errorf("publish qhandle Delete b=%x err=%v", b, err)
				}
				self.backoff.Update(true)
				continue
			}
			self.Stat.Retried.Add(1)
			if err = self.q.DeletePush(box); err != nil {
				self.log.Errorf("publish qhandle DeletePush b=%x err=%v", b, err)
			}
			delay := self.backoff.DelayAfter(false)
			self.log.Debugf("publish retry in %v", delay)
			select {
			case <-self.alive.StopChan():
				return
			case <-time.After(delay):
			}

		case spq.ErrClosed:
			if !self.alive.IsRunning() { // success path
				return
			}
			self.log.Errorf("CRITICAL publish spq closed unexpectedly")
			return

		default:
			self.log.Errorf("CRITICAL publish spq err=%v", err)
			select {
			case <-self.alive.StopChan():
				return
			case <-time.After(retryMax):
			}
		}
	}
}

// Returns true when message should leave the queue: delivered or undeliverable.
func (self *publisher) qhandle(b []byte) (bool, error) {
	if len(b) == 0 {
		return true, errors.Errorf("spq peek=empty")
	}
	switch b[0] {
	case qReport:
		var r Report
		if err := proto.Unmarshal(b[1:], &r); err != nil {
			return true, err
		}
		return self.delivered(self.transport.SendReport(b[1:])), nil

	case qError:
		var e Error
		if err := proto.Unmarshal(b[1:], &e); err != nil {
			return true, err
		}
		return self.delivered(self.transport.SendError(b[1:])), nil

	default:
		return true, errors.Errorf("unknown kind=%d", b[0])
	}
}

func (self *publisher) delivered(ok bool) bool {
	if ok {
		self.Stat.Delivered.Add(1)
	}
	return ok
}

func (self *publisher) qpushTagProto(tag byte, pb proto.Message) error {
	buf := proto.NewBuffer(make([]byte, 0, 128))
	if err := buf.EncodeVarint(uint64(tag)); err != nil {
		return err
	}
	if err := buf.Marshal(pb); err != nil {
		return err
	}
	if err := self.q.Push(buf.Bytes()); err != nil {
		return err
	}
	self.Stat.Queued.Add(1)
	return nil
}
