// Command probeguard verifies compiled trace handler programs.
//
//	probeguard [flags] <unit>...
//
// Each unit is a class name such as samples.Histo, resolved to
// samples/Histo.class relative to the working directory, or a path ending in
// .class. The exit status is 0 when every unit verifies, 2 when any
// violation is found, and 1 for usage or input errors.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// exitError carries a process exit status through cobra.
type exitError struct {
	code int
	err  error // nil when the output already explains the failure
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	var ee *exitError
	if errors.As(err, &ee) {
		if ee.err != nil {
			fmt.Fprintln(stderr, "probeguard:", ee.err)
		}
		return ee.code
	}

	fmt.Fprintln(stderr, "probeguard:", err)
	return 1
}
