package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/archmap/archmap/internal/logging"
)

func main() {
	os.Exit(runMain(Execute, os.Stderr))
}

// runMain executes the root command and maps its error to a process exit
// code, reporting the error on stderr unless it was already reported.
func runMain(execute func() error, stderr io.Writer) int {
	err := execute()
	if err == nil {
		return exitOK
	}
	return exitCodeForError(err, stderr)
}

func exitCodeForError(err error, stderr io.Writer) int {
	code, cause, silent := exitStatus(err)
	if !silent {
		emitCommandError(cause, failureMessage(code), code, stderr)
	}
	return code
}

// exitStatus unpacks err into the code to exit with and the error to report.
func exitStatus(err error) (code int, cause error, silent bool) {
	var ee *exitError
	switch {
	case errors.As(err, &ee):
		cause = err
		if ee.err != nil {
			cause = ee.err
		}
		return ee.code, cause, ee.silent
	case errors.Is(err, context.Canceled):
		return exitCanceled, err, false
	default:
		return exitFailure, err, false
	}
}

func failureMessage(code int) string {
	switch code {
	case exitCanceled:
		return "command canceled"
	case exitPartial:
		return "command finished with failed passes"
	default:
		return "command failed"
	}
}

// emitCommandError writes a structured log line for commands that bootstrap
// slog and a bare line for the rest.
func emitCommandError(err error, message string, code int, stderr io.Writer) {
	cmdCtx := currentCommandExecutionContext()
	if cmdCtx.UsesStructuredLog {
		fatalLogger(cmdCtx.CommandPath, stderr).Error(message, "exit_code", code, "error", err)
		return
	}
	if code == exitCanceled {
		fmt.Fprintln(stderr, "canceled")
		return
	}
	fmt.Fprintln(stderr, err)
}

// fatalLogger rebuilds a logger from the environment since the command's own
// logger may never have been set up. A bad logging env falls back to JSON.
func fatalLogger(commandPath string, stderr io.Writer) *slog.Logger {
	cfg, err := logging.LoadConfigFromEnv()
	if err != nil {
		cfg = logging.DefaultConfig()
	}
	return logging.NewLogger(cfg, stderr, commandPath)
}
