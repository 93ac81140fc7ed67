package publish

import (
	"sync"

	"github.com/temoto/meterlink/log2"
)

// transportMock records payloads, Send* result is controlled by fail.
type transportMock struct {
	sync.Mutex
	fail    bool
	reports [][]byte
	errors  [][]byte
	states  [][]byte
	sent    chan struct{}
}

func newTransportMock(fail bool) *transportMock {
	return &transportMock{fail: fail, sent: make(chan struct{}, 32)}
}

func (self *transportMock) Init(*log2.Log, Config, []byte) error { return nil }
func (self *transportMock) Close()                                {}

func (self *transportMock) SendReport(b []byte) bool { return self.record(&self.reports, b) }
func (self *transportMock) SendError(b []byte) bool  { return self.record(&self.errors, b) }
func (self *transportMock) SendState(b []byte) bool  { return self.record(&self.states, b) }

func (self *transportMock) record(to *[][]byte, b []byte) bool {
	self.Lock()
	defer self.Unlock()
	if self.fail {
		return false
	}
	*to = append(*to, append([]byte(nil), b...))
	select {
	case self.sent <- struct{}{}:
	default:
	}
	return true
}

func (self *transportMock) Reports() [][]byte {
	self.Lock()
	defer self.Unlock()
	return self.reports
}
