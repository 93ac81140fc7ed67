package link

// Values are read and modified atomically, but not consistently,
// i.e. it is possible to read .Sent.Count=1 .Sent.Size=0 because Size has not updated yet.

import (
	"expvar"
	"fmt"
)

// Stat is safe to publish with expvar.Publish, String() is JSON.
type Stat struct {
	Sent      CountSizePair
	TimedOut  expvar.Int
	SendError expvar.Int
	Received  CountSizePair
	Invalid   expvar.Int // received but not decoded
	Missed    expvar.Int
}

var _ expvar.Var = &Stat{}

func (s *Stat) Outcome(o Outcome, size int) {
	switch o {
	case Sent:
		s.Sent.Count.Add(1)
		s.Sent.Size.Add(int64(size))
	case TimedOut:
		s.TimedOut.Add(1)
	default:
		s.SendError.Add(1)
	}
}

func (s *Stat) Receive(size int, valid bool, gap uint32) {
	s.Received.Count.Add(1)
	s.Received.Size.Add(int64(size))
	if !valid {
		s.Invalid.Add(1)
	}
	s.Missed.Add(int64(gap))
}

func (s *Stat) Value() (r Stat) {
	r.Sent.Set(s.Sent.Value())
	r.TimedOut.Set(s.TimedOut.Value())
	r.SendError.Set(s.SendError.Value())
	r.Received.Set(s.Received.Value())
	r.Invalid.Set(s.Invalid.Value())
	r.Missed.Set(s.Missed.Value())
	return
}

func (s *Stat) String() string {
	return fmt.Sprintf(`{"sent":%s,"timeout":%d,"send_error":%d,"received":%s,"invalid":%d,"missed":%d}`,
		s.Sent.String(), s.TimedOut.Value(), s.SendError.Value(),
		s.Received.String(), s.Invalid.Value(), s.Missed.Value())
}

type CountSizePair struct {
	Count expvar.Int
	Size  expvar.Int
}

func (csp *CountSizePair) Value() (r CountSizePair) {
	r.Count.Set(csp.Count.Value())
	r.Size.Set(csp.Size.Value())
	return
}

func (csp *CountSizePair) Set(new CountSizePair) {
	csp.Count.Set(new.Count.Value())
	csp.Size.Set(new.Size.Value())
}

func (csp *CountSizePair) String() string {
	return fmt.Sprintf(`{"count":%d,"size":%d}`, csp.Count.Value(), csp.Size.Value())
}
