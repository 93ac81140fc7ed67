// Support sub-commands in meterlink application.
// It's simple but fine so far.
package subcmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/coreos/go-systemd/daemon"
	"github.com/juju/errors"
	"github.com/mattn/go-isatty"
	"github.com/temoto/alive/v2"
	"github.com/temoto/meterlink/helpers/actionlist"
	"github.com/temoto/meterlink/internal/config"
	"github.com/temoto/meterlink/log2"
)

const ContextKey = "run/subcmd"

type Mod struct {
	Name  string
	Usage string
	Main  func(context.Context, *config.Config, []string) error
}

func Parse(command string, modules []Mod) (*Mod, error) {
	if command == "" {
		return nil, fmt.Errorf("empty command")
	}

	for i := range modules {
		m := &modules[i]
		if m.Name == "" {
			panic(fmt.Sprintf("code error Name='' module=%#v", m))
		}
		if command == m.Name {
			return m, nil
		}
	}
	return nil, fmt.Errorf("unknown command='%s'", command)
}

// Run is shared state of a long running command.
type Run struct {
	Alive *alive.Alive
	// Closers are called concurrently after Alive finished.
	Closers actionlist.List
}

func NewContext(log *log2.Log) (context.Context, *Run) {
	r := &Run{Alive: alive.NewAlive()}
	ctx := context.Background()
	ctx = log2.ContextWithLogger(ctx, log)
	ctx = context.WithValue(ctx, ContextKey, r) //nolint:staticcheck
	return ctx, r
}

func GetRun(ctx context.Context) *Run {
	v := ctx.Value(ContextKey)
	if r, ok := v.(*Run); ok {
		return r
	}
	panic(fmt.Sprintf("context['%s'] expected type *Run actual=%#v", ContextKey, v))
}

// Wait blocks until signal or Alive stop, then closes resources.
func (r *Run) Wait(ctx context.Context) error {
	log := log2.ContextValueLogger(ctx)
	sigch := make(chan os.Signal, 1)
	signal.Notify(sigch, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigch)
	go func() {
		select {
		case sig := <-sigch:
			log.Infof("signal=%v stopping", sig)
			r.Alive.Stop()
		case <-r.Alive.StopChan():
		}
	}()

	_ = SdNotify(daemon.SdNotifyReady)
	r.Alive.Wait()
	_ = SdNotify(daemon.SdNotifyStopping)
	return errors.Annotate(r.Closers.Fold(ctx), "close")
}

// LogFlags drops timestamps under systemd journal or without terminal.
func LogFlags() int {
	if SdNotify("STATUS=starting") || !isatty.IsTerminal(os.Stderr.Fd()) {
		return log2.LServiceFlags
	}
	return log2.LInteractiveFlags
}

func SdNotify(s string) bool {
	ok, err := daemon.SdNotify(false, s)
	if err != nil {
		log2.NewStderr(log2.LError).Fatal("sdnotify: ", errors.ErrorStack(err))
	}
	return ok
}
