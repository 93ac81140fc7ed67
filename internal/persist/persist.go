// Package persist keeps small fixed size records across restarts,
// currently the transmitter packet counter.
package persist

import (
	"encoding"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/extremofile"
	"github.com/temoto/meterlink/log2"
)

type Record interface {
	encoding.BinaryMarshaler
	encoding.BinaryUnmarshaler
}

type file interface {
	Read() ([]byte, error)
	Write([]byte) (int, error)
}

// Store binds Record to dir/name. Files are overwritten in place,
// so Record must marshal to fixed size.
type Store struct {
	mu   sync.Mutex
	log  *log2.Log
	name string
	dir  string
	rec  Record
	f    file // nil = disabled
}

// Open with empty dir returns disabled Store, Load and Save do nothing.
func Open(log *log2.Log, dir, name string, rec Record) *Store {
	if name == "" || rec == nil {
		panic(fmt.Sprintf("code error persist.Open name='%s' rec=%v", name, rec))
	}
	s := &Store{log: log, name: name, rec: rec}
	if dir == "" {
		log.Debugf("%s disabled", s.String())
		return s
	}
	s.dir = filepath.Join(dir, name)
	s.f = extremofile.New(extremofile.Config{
		Dir:      s.dir,
		DirPerm:  0755,
		FilePerm: 0644,
	})
	return s
}

func (s *Store) Enabled() bool { return s.f != nil }

func (s *Store) String() string {
	if s.f == nil {
		return "persist " + s.name
	}
	return fmt.Sprintf("persist %s dir=%s", s.name, s.dir)
}

// Load restored=false means nothing stored yet (or disabled), record is untouched.
// Damaged main copy with good backup is logged, not returned.
func (s *Store) Load() (restored bool, err error) {
	if s.f == nil {
		return false, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t := time.Now()
	b, err := s.f.Read()
	s.log.Debugf("%s read len=%d duration=%v", s.String(), len(b), time.Since(t))
	if b == nil {
		if err != nil {
			return false, errors.Annotatef(err, "%s load", s.String())
		}
		return false, nil
	}
	if err != nil {
		s.log.Errorf("%s recovered from backup err=%v", s.String(), err)
	}
	if err = s.rec.UnmarshalBinary(b); err != nil {
		return false, errors.Annotatef(err, "%s decode", s.String())
	}
	return true, nil
}

func (s *Store) Save() error {
	if s.f == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.rec.MarshalBinary()
	if err != nil {
		return errors.Annotatef(err, "%s encode", s.String())
	}
	t := time.Now()
	_, err = s.f.Write(b)
	switch {
	case err == nil:
	case extremofile.IsCritical(err):
		return errors.Annotatef(err, "%s save", s.String())
	default:
		s.log.Errorf("%s backup copy err=%v", s.String(), err)
	}
	s.log.Debugf("%s write duration=%v", s.String(), time.Since(t))
	return nil
}
