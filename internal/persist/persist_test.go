package persist

import (
	"encoding/binary"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/temoto/extremofile"
	"github.com/temoto/meterlink/helpers"
	"github.com/temoto/meterlink/log2"
)

// seq mirrors transmitter counter record: 4 bytes little endian.
type seq uint32

func (x *seq) MarshalBinary() ([]byte, error) {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, uint32(*x))
	return b, nil
}
func (x *seq) UnmarshalBinary(b []byte) error {
	if len(b) != 4 {
		return errors.NotValidf("seq len=%d", len(b))
	}
	*x = seq(binary.LittleEndian.Uint32(b))
	return nil
}

func tempDir(t testing.TB) string {
	dir, err := ioutil.TempDir("", "meterlink-persist-")
	require.NoError(t, err)
	return dir
}

func TestStoreCounterSurvivesRestart(t *testing.T) {
	t.Parallel()
	log := log2.NewTest(t, log2.LDebug)
	dir := tempDir(t)
	defer os.RemoveAll(dir)

	var first seq
	s1 := Open(log, dir, "counter", &first)
	require.True(t, s1.Enabled())
	restored, err := s1.Load()
	require.NoError(t, err)
	assert.False(t, restored, "fresh dir")

	start := seq(helpers.RandUnix().Uint32() >> 1)
	first = start
	for i := 0; i < 3; i++ {
		first++
		require.NoError(t, s1.Save())
	}

	var second seq
	s2 := Open(log, dir, "counter", &second)
	restored, err = s2.Load()
	require.NoError(t, err)
	assert.True(t, restored)
	assert.Equal(t, start+3, second)

	raw, err := ioutil.ReadFile(filepath.Join(dir, "counter", extremofile.DefaultFilePrefix+"v1.main"))
	require.NoError(t, err)
	assert.Equal(t, []byte{byte(second), byte(second >> 8), byte(second >> 16), byte(second >> 24)}, raw[:4])
}

func TestStoreLoadDamaged(t *testing.T) {
	t.Parallel()
	type Case struct {
		name    string
		damage  []string
		restore bool
	}
	cases := []Case{
		{"main", []string{"v1.main"}, true},
		{"both", []string{"v1.main", "v1.backup"}, false},
	}
	helpers.RandUnix().Shuffle(len(cases), func(i int, j int) { cases[i], cases[j] = cases[j], cases[i] })
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()
			log := log2.NewTest(t, log2.LDebug)
			dir := tempDir(t)
			defer os.RemoveAll(dir)

			x := seq(42)
			s := Open(log, dir, "counter", &x)
			require.NoError(t, s.Save())
			for _, name := range c.damage {
				path := filepath.Join(dir, "counter", extremofile.DefaultFilePrefix+name)
				require.NoError(t, ioutil.WriteFile(path, []byte("not-a-counter-record"), 0644))
			}

			x = 0
			restored, err := s.Load()
			assert.Equal(t, c.restore, restored)
			if c.restore {
				require.NoError(t, err)
				assert.Equal(t, seq(42), x)
			} else {
				require.Error(t, err)
				assert.True(t, extremofile.IsCorrupt(errors.Cause(err)))
				assert.Equal(t, seq(0), x, "record untouched")
			}
		})
	}
}

func TestStoreWrongSize(t *testing.T) {
	t.Parallel()
	log := log2.NewTest(t, log2.LDebug)
	dir := tempDir(t)
	defer os.RemoveAll(dir)

	f := extremofile.New(extremofile.Config{Dir: filepath.Join(dir, "counter")})
	_, err := f.Write([]byte{1, 2})
	require.NoError(t, err)

	var x seq
	restored, err := Open(log, dir, "counter", &x).Load()
	assert.False(t, restored)
	assert.True(t, errors.IsNotValid(errors.Cause(err)), "err=%v", err)
}

func TestStoreDisabled(t *testing.T) {
	t.Parallel()
	x := seq(1)
	s := Open(log2.NewTest(t, log2.LDebug), "", "counter", &x)
	assert.False(t, s.Enabled())
	assert.Equal(t, "persist counter", s.String())
	restored, err := s.Load()
	assert.NoError(t, err)
	assert.False(t, restored)
	assert.NoError(t, s.Save())
	assert.Equal(t, seq(1), x)
}
