package helpers

import (
	"expvar"
	"io"
)

// CountReader adds bytes read to expvar counter, e.g. serial traffic stats.
type CountReader struct {
	R io.Reader
	N *expvar.Int
}

func (cr CountReader) Read(p []byte) (int, error) {
	n, err := cr.R.Read(p)
	if n > 0 {
		cr.N.Add(int64(n))
	}
	return n, err
}

type CountWriter struct {
	W io.Writer
	N *expvar.Int
}

func (cw CountWriter) Write(p []byte) (int, error) {
	n, err := cw.W.Write(p)
	if n > 0 {
		cw.N.Add(int64(n))
	}
	return n, err
}

var (
	_ io.Reader = CountReader{}
	_ io.Writer = CountWriter{}
)
