package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"bc-cli/pkg/interpreter"
	"bc-cli/pkg/runtime"
)

func newTestREPL(input string, interactive bool) (*repl, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	interp := interpreter.New(runtime.NewEnvironment(runtime.DefaultConfig()), interpreter.Options{Output: &out})
	return &repl{
		interp:      interp,
		in:          strings.NewReader(input),
		out:         &out,
		errOut:      &errOut,
		interactive: interactive,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, &out, &errOut
}

func TestREPLAccumulatesIncompleteInput(t *testing.T) {
	r, out, errOut := newTestREPL("define sq(n) {\n  return n * n\n}\nsq(\n  7)\nif (1) print 5\n", false)
	failed, err := r.run(context.Background())
	if err != nil || failed {
		t.Fatalf("unexpected failure %v (stderr %q)", err, errOut.String())
	}
	if out.String() != "49\n5\n" {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestREPLContinuesAfterErrors(t *testing.T) {
	r, out, errOut := newTestREPL("x = 1\n1 / 0\n)\nx + 1\n", false)
	failed, err := r.run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if !failed {
		t.Fatalf("expected the failures to be reported")
	}
	if out.String() != "2\n" {
		t.Fatalf("unexpected output %q", out.String())
	}
	lines := strings.Split(strings.TrimSpace(errOut.String()), "\n")
	if len(lines) != 2 || !strings.Contains(lines[0], "divide by zero") || !strings.Contains(lines[1], "expected") {
		t.Fatalf("unexpected diagnostics %q", errOut.String())
	}
}

func TestREPLIncompleteAtEOF(t *testing.T) {
	r, _, errOut := newTestREPL("if (1) {\n", false)
	failed, err := r.run(context.Background())
	if err != nil || !failed {
		t.Fatalf("expected a reported failure, got %v %v", failed, err)
	}
	if !strings.Contains(errOut.String(), "expected '}'") {
		t.Fatalf("unexpected diagnostics %q", errOut.String())
	}
}

func TestREPLPrompts(t *testing.T) {
	r, out, _ := newTestREPL("1 +\n2\n", true)
	if _, err := r.run(context.Background()); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	want := promptPrimary + promptContinuation + "3\n" + promptPrimary + "\n"
	if out.String() != want {
		t.Fatalf("expected %q, got %q", want, out.String())
	}
}

func TestREPLRecordsHistory(t *testing.T) {
	r, _, _ := newTestREPL("x = 2\n\nx ^ 10\n", true)
	var history bytes.Buffer
	r.history = &history
	if _, err := r.run(context.Background()); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if history.String() != "x = 2\nx ^ 10\n" {
		t.Fatalf("unexpected history %q", history.String())
	}
}

func TestREPLCancelledContextStopsPipedInput(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r, out, _ := newTestREPL("1\n2\n", false)
	failed, err := r.run(ctx)
	if err != nil || !failed {
		t.Fatalf("expected a reported failure, got %v %v", failed, err)
	}
	if out.Len() != 0 {
		t.Fatalf("nothing should run after cancellation, got %q", out.String())
	}
}
