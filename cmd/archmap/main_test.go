package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestEmitCommandError_StructuredForScopedCommands(t *testing.T) {
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("LOG_LEVEL", "info")
	setCommandExecutionContext(commandExecutionContext{
		CommandPath:       "archmap serve",
		UsesStructuredLog: true,
	})
	t.Cleanup(resetCommandExecutionContext)

	var out bytes.Buffer
	emitCommandError(errors.New("boom"), "command failed", 1, &out)

	line := strings.TrimSpace(out.String())
	if line == "" {
		t.Fatal("expected structured log output")
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(line), &payload); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	if got := payload["app"]; got != "archmap" {
		t.Fatalf("app = %v, want %q", got, "archmap")
	}
	if got := payload["command"]; got != "archmap serve" {
		t.Fatalf("command = %v, want %q", got, "archmap serve")
	}
	if got := payload["exit_code"]; got != float64(1) {
		t.Fatalf("exit_code = %v, want %v", got, 1)
	}
	if got := payload["error"]; got != "boom" {
		t.Fatalf("error = %v, want %q", got, "boom")
	}
}

func TestEmitCommandError_FallsBackToJSONWhenLoggingEnvInvalid(t *testing.T) {
	t.Setenv("LOG_FORMAT", "invalid")
	t.Setenv("LOG_LEVEL", "info")
	setCommandExecutionContext(commandExecutionContext{
		CommandPath:       "archmap refresh",
		UsesStructuredLog: true,
	})
	t.Cleanup(resetCommandExecutionContext)

	var out bytes.Buffer
	emitCommandError(errors.New("boom"), "command failed", 1, &out)

	line := strings.TrimSpace(out.String())
	if line == "" {
		t.Fatal("expected structured log output")
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(line), &payload); err != nil {
		t.Fatalf("expected JSON fallback log, got parse error: %v", err)
	}
}

func TestEmitCommandError_PlainOutputForNonScopedCommands(t *testing.T) {
	setCommandExecutionContext(commandExecutionContext{
		CommandPath:       "archmap layout",
		UsesStructuredLog: false,
	})
	t.Cleanup(resetCommandExecutionContext)

	var out bytes.Buffer
	emitCommandError(errors.New("plain boom"), "command failed", 1, &out)
	if got := out.String(); got != "plain boom\n" {
		t.Fatalf("output = %q, want %q", got, "plain boom\n")
	}
}

func TestEmitCommandError_CanceledOutputForNonScopedCommands(t *testing.T) {
	setCommandExecutionContext(commandExecutionContext{
		CommandPath:       "archmap layout",
		UsesStructuredLog: false,
	})
	t.Cleanup(resetCommandExecutionContext)

	var out bytes.Buffer
	emitCommandError(context.Canceled, "command canceled", 130, &out)
	if got := out.String(); got != "canceled\n" {
		t.Fatalf("output = %q, want %q", got, "canceled\n")
	}
}

func TestExitCodeForError(t *testing.T) {
	resetCommandExecutionContext()
	t.Cleanup(resetCommandExecutionContext)

	tests := []struct {
		name    string
		err     error
		want    int
		wantOut string
	}{
		{name: "plain", err: errors.New("boom"), want: 1, wantOut: "boom\n"},
		{name: "exit error", err: &exitError{code: 2, err: errors.New("passes failed")}, want: 2, wantOut: "passes failed\n"},
		{name: "silent", err: &exitError{code: 130, err: context.Canceled, silent: true}, want: 130},
		{name: "canceled", err: context.Canceled, want: 130, wantOut: "canceled\n"},
		{name: "wrapped by commandFailed", err: commandFailed(errors.New("db down")), want: 1, wantOut: "db down\n"},
		{name: "canceled by commandFailed", err: commandFailed(context.Canceled), want: 130},
		{
			name:    "partial refresh keeps its code through commandFailed",
			err:     commandFailed(&exitError{code: exitPartial, err: errors.New("refresh passes failed: layout:sp")}),
			want:    2,
			wantOut: "refresh passes failed: layout:sp\n",
		},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		if got := exitCodeForError(tt.err, &out); got != tt.want {
			t.Fatalf("%s: exitCodeForError() = %d, want %d", tt.name, got, tt.want)
		}
		if out.String() != tt.wantOut {
			t.Fatalf("%s: output = %q, want %q", tt.name, out.String(), tt.wantOut)
		}
	}
}

func TestRunMainPartialRefreshExitsTwo(t *testing.T) {
	resetCommandExecutionContext()
	t.Cleanup(resetCommandExecutionContext)

	var out bytes.Buffer
	got := runMain(func() error {
		return commandFailed(&exitError{code: exitPartial, err: errors.New("refresh passes failed: layout:sp")})
	}, &out)
	if got != 2 {
		t.Fatalf("runMain() = %d, want 2", got)
	}
	if want := "refresh passes failed: layout:sp\n"; out.String() != want {
		t.Fatalf("output = %q, want %q", out.String(), want)
	}
}

func TestRunMainReturnsZeroOnSuccess(t *testing.T) {
	if got := runMain(func() error { return nil }, &bytes.Buffer{}); got != 0 {
		t.Fatalf("runMain() = %d, want 0", got)
	}
}
