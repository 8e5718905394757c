package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
)

// interrupts turns SIGINT into cancellation of whatever evaluation is
// running. An interrupt while nothing runs calls the idle hook, or is
// ignored when none is set.
type interrupts struct {
	mu     sync.Mutex
	cancel context.CancelFunc
	idle   func()
	sigs   chan os.Signal
	done   chan struct{}
	logger *slog.Logger
}

func watchInterrupts(logger *slog.Logger) *interrupts {
	w := &interrupts{
		sigs:   make(chan os.Signal, 1),
		done:   make(chan struct{}),
		logger: logger,
	}
	signal.Notify(w.sigs, os.Interrupt)
	go w.loop()
	return w
}

func (w *interrupts) loop() {
	for {
		select {
		case <-w.done:
			return
		case <-w.sigs:
			w.handle()
		}
	}
}

func (w *interrupts) handle() {
	w.mu.Lock()
	cancel, idle := w.cancel, w.idle
	w.mu.Unlock()
	switch {
	case cancel != nil:
		w.logger.Info("interrupt: cancelling evaluation")
		cancel()
	case idle != nil:
		w.logger.Debug("interrupt while idle: ending session")
		idle()
	default:
		w.logger.Debug("interrupt ignored: nothing running")
	}
}

// onIdle sets the hook run by an interrupt that arrives while nothing is
// running.
func (w *interrupts) onIdle(fn func()) {
	if w == nil {
		return
	}
	w.mu.Lock()
	w.idle = fn
	w.mu.Unlock()
}

// begin returns a context that the next interrupt cancels. The returned
// func must be called when the evaluation ends.
func (w *interrupts) begin(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	if w == nil {
		return ctx, cancel
	}
	w.mu.Lock()
	w.cancel = cancel
	w.mu.Unlock()
	return ctx, func() {
		w.mu.Lock()
		w.cancel = nil
		w.mu.Unlock()
		cancel()
	}
}

func (w *interrupts) stop() {
	if w == nil {
		return
	}
	signal.Stop(w.sigs)
	close(w.done)
}
