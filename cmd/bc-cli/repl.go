package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"bc-cli/pkg/ast"
	"bc-cli/pkg/interpreter"
	"bc-cli/pkg/parser"
)

const (
	promptPrimary      = "❯ "
	promptContinuation = "· "
)

// repl reads statements line by line, buffering lines until they form
// complete input. Errors are reported and the loop carries on; in
// non-interactive mode a cancellation ends it.
type repl struct {
	interp      *interpreter.Interpreter
	in          io.Reader
	out         io.Writer
	errOut      io.Writer
	interactive bool
	history     io.Writer
	interrupts  *interrupts
	logger      *slog.Logger
}

// run returns whether any statement failed.
func (r *repl) run(ctx context.Context) (bool, error) {
	scanner := bufio.NewScanner(r.in)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	failed := false
	var pending strings.Builder
	for {
		r.prompt(pending.Len() > 0)
		if !scanner.Scan() {
			break
		}
		pending.WriteString(scanner.Text())
		pending.WriteByte('\n')

		program, err := parser.ParseIncremental(pending.String())
		if errors.Is(err, parser.ErrIncompleteInput) {
			continue
		}
		src := pending.String()
		pending.Reset()
		if err != nil {
			r.report(err)
			failed = true
			continue
		}
		r.record(src)
		ok, stop := r.exec(ctx, program.Body)
		if !ok {
			failed = true
		}
		if stop {
			return failed, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return failed, fmt.Errorf("read input: %w", err)
	}
	if strings.TrimSpace(pending.String()) != "" {
		// Input ended mid-statement; the full parse names what was missing.
		_, err := parser.ParseProgram(pending.String())
		if err == nil {
			err = fmt.Errorf("unexpected end of input")
		}
		r.report(err)
		failed = true
	}
	if r.interactive {
		fmt.Fprintln(r.out)
	}
	return failed, nil
}

// exec runs statements until one fails. stop is set when the loop should
// end, which happens for a cancellation outside interactive mode.
func (r *repl) exec(ctx context.Context, stmts []ast.Statement) (ok bool, stop bool) {
	for _, stmt := range stmts {
		runCtx, done := r.interrupts.begin(ctx)
		res, err := r.interp.Exec(runCtx, stmt)
		done()
		if err != nil {
			r.report(err)
			cancelled := errors.Is(err, interpreter.ErrCancelled)
			return false, cancelled && (!r.interactive || ctx.Err() != nil)
		}
		if res.Echo {
			fmt.Fprintln(r.out, r.interp.Format(res.Value))
		}
	}
	return true, false
}

func (r *repl) prompt(continuation bool) {
	if !r.interactive {
		return
	}
	if continuation {
		fmt.Fprint(r.out, promptContinuation)
		return
	}
	fmt.Fprint(r.out, promptPrimary)
}

func (r *repl) report(err error) {
	if errors.Is(err, interpreter.ErrCancelled) {
		r.logger.Debug("evaluation cancelled", "error", err)
	}
	fmt.Fprintf(r.errOut, "error: %v\n", err)
}

func (r *repl) record(src string) {
	if r.history == nil || strings.TrimSpace(src) == "" {
		return
	}
	if _, err := io.WriteString(r.history, src); err != nil {
		r.logger.Warn("history write failed", "error", err)
		r.history = nil
	}
}
