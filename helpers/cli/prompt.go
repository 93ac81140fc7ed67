// Package cli runs line oriented interactive tools.
// On a terminal it is a go-prompt loop with completion,
// otherwise every stdin line is executed in order.
package cli

import (
	"bufio"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/c-bata/go-prompt"
	"github.com/juju/errors"
	"github.com/mattn/go-isatty"
)

type ExecFunc func(line string)
type CompleteFunc func(d prompt.Document) []prompt.Suggest

func MainLoop(tag string, exec ExecFunc, complete CompleteFunc) error {
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh,
		syscall.SIGHUP,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT)
	go func() {
		for range signalCh {
			os.Exit(1)
		}
	}()

	if isatty.IsTerminal(os.Stdin.Fd()) {
		prompt.New(prompt.Executor(exec), prompt.Completer(complete),
			prompt.OptionPrefix(tag+"> "),
			prompt.OptionTitle(tag),
		).Run()
		return nil
	}
	return errors.Annotate(ExecLines(os.Stdin, exec), tag)
}

// ExecLines runs exec for each trimmed non-empty line of r.
func ExecLines(r io.Reader, exec ExecFunc) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		exec(line)
	}
	return scanner.Err()
}

// Complete suggests from fixed list by word prefix.
func Complete(items []prompt.Suggest) CompleteFunc {
	return func(d prompt.Document) []prompt.Suggest {
		return prompt.FilterHasPrefix(items, d.GetWordBeforeCursor(), true)
	}
}
