package main

import (
	"context"
	"errors"
	"fmt"
)

const (
	exitOK       = 0
	exitFailure  = 1
	exitPartial  = 2
	exitCanceled = 130
)

type exitError struct {
	code   int
	err    error
	silent bool
}

func (e *exitError) Error() string {
	if e == nil {
		return ""
	}
	if e.err != nil {
		return e.err.Error()
	}
	return fmt.Sprintf("exit %d", e.code)
}

func (e *exitError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.err
}

// commandFailed wraps err for main. An error that already carries an exit
// code keeps it; cancellation exits 130 without a second log line.
func commandFailed(err error) error {
	if err == nil {
		return nil
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return &exitError{code: exitCanceled, err: err, silent: true}
	}
	return &exitError{code: exitFailure, err: err}
}
