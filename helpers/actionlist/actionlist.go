// Package actionlist runs tagged func(Context)error concurrently,
// e.g. closing independent devices at shutdown.
// All methods are thread-safe.
package actionlist

import (
	"context"
	"sync"

	"github.com/juju/errors"
	"github.com/temoto/meterlink/helpers"
)

type Func func(context.Context) error

type tagged struct {
	f   Func
	tag string
}

type List struct {
	lk    sync.Mutex
	items []tagged
}

func (self *List) Append(fun Func, tag string) {
	self.lk.Lock()
	self.items = append(self.items, tagged{fun, tag})
	self.lk.Unlock()
}

func (self *List) Len() int {
	self.lk.Lock()
	defer self.lk.Unlock()
	return len(self.items)
}

// Do waits all funcs, errors are prefixed with tag. Order of errors is random.
func (self *List) Do(ctx context.Context) []error {
	self.lk.Lock()
	defer self.lk.Unlock()

	errCh := make(chan error, len(self.items))
	for i := range self.items {
		go self.doOne(ctx, self.items[i], errCh)
	}
	var errs []error
	for range self.items {
		if e := <-errCh; e != nil {
			errs = append(errs, e)
		}
	}
	return errs
}

// Fold is Do joined into one error.
func (self *List) Fold(ctx context.Context) error {
	return helpers.FoldErrors(self.Do(ctx))
}

func (self *List) doOne(ctx context.Context, t tagged, ch chan<- error) {
	if err := t.f(ctx); err != nil {
		// errors.Annotate without call location
		e := errors.NewErrWithCause(err, t.tag)
		ch <- &e
	} else {
		ch <- nil
	}
}
