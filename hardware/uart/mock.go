package uart

import (
	"bytes"
	"encoding/hex"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/juju/errors"
)

// MockRead is one scripted Read result. Empty B and nil Err mean timeout.
type MockRead struct {
	B     []byte
	Delay time.Duration
	Err   error
}

// MockPort is a scripted serial port for tests.
// Script syntax, space separated effects, comma separated tokens:
// b<hex> bytes, d<duration> delay before return, e<text> error, t timeout.
// Example: "b1b1b1b1b d10ms,b1a t eIO"
type MockPort struct {
	mu       sync.Mutex
	reads    []MockRead
	written  bytes.Buffer
	closed   bool
	timeout  time.Duration
	EOF      bool // script exhausted: io.EOF instead of timeout
	DrainErr error
	WriteErr error
	OnWrite  func(p []byte)
	Resets   int
	Drains   int
}

var _ Port = &MockPort{}

func NewMockPort(script string) *MockPort {
	m := &MockPort{timeout: time.Millisecond}
	m.Push(ParseMockReads(script)...)
	return m
}

func ParseMockReads(s string) []MockRead {
	var rs []MockRead
	for _, es := range strings.Fields(s) {
		r := MockRead{}
		for _, token := range strings.Split(es, ",") {
			switch token[0] {
			case 'b':
				b, err := hex.DecodeString(token[1:])
				if err != nil {
					panic(errors.Annotatef(err, "code error mock token=%s", token))
				}
				r.B = b
			case 'd':
				d, err := time.ParseDuration(token[1:])
				if err != nil {
					panic(errors.Annotatef(err, "code error mock token=%s", token))
				}
				r.Delay = d
			case 'e':
				r.Err = errors.New(token[1:])
			case 't':
			default:
				panic("code error unknown mock token=" + token)
			}
		}
		rs = append(rs, r)
	}
	return rs
}

func (m *MockPort) Push(rs ...MockRead) {
	m.mu.Lock()
	m.reads = append(m.reads, rs...)
	m.mu.Unlock()
}

func (m *MockPort) Read(p []byte) (int, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return 0, io.ErrClosedPipe
	}
	if len(m.reads) == 0 {
		eof, timeout := m.EOF, m.timeout
		m.mu.Unlock()
		if eof {
			return 0, io.EOF
		}
		time.Sleep(timeout)
		return 0, nil
	}
	r := m.reads[0]
	n := copy(p, r.B)
	if n < len(r.B) {
		m.reads[0].B = r.B[n:]
		m.reads[0].Delay = 0
	} else {
		m.reads = m.reads[1:]
	}
	m.mu.Unlock()

	time.Sleep(r.Delay)
	if r.Err != nil {
		return 0, r.Err
	}
	return n, nil
}

func (m *MockPort) Write(p []byte) (int, error) {
	m.mu.Lock()
	if m.WriteErr != nil {
		err := m.WriteErr
		m.mu.Unlock()
		return 0, err
	}
	m.written.Write(p)
	f := m.OnWrite
	m.mu.Unlock()
	if f != nil {
		f(p)
	}
	return len(p), nil
}

func (m *MockPort) Written() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.written.Bytes()...)
}

func (m *MockPort) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

func (m *MockPort) Drain() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Drains++
	return m.DrainErr
}

func (m *MockPort) ResetInputBuffer() error {
	m.mu.Lock()
	m.reads = nil
	m.Resets++
	m.mu.Unlock()
	return nil
}

func (m *MockPort) SetReadTimeout(t time.Duration) error {
	m.mu.Lock()
	m.timeout = t
	m.mu.Unlock()
	return nil
}
