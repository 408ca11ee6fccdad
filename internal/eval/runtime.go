// Package eval runs JavaScript examples in an embedded, sandboxed engine.
//
// Each Runtime owns one goja VM and one console capture buffer. Examples from
// the same document share a Runtime so later snippets can use bindings
// introduced by earlier ones, which is how tutorial prose is written
// ("as shown in the previous example"). Nothing from the host environment is
// exposed to the VM beyond the captured console.
package eval

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dop251/goja"
)

// EngineTag identifies the evaluation engine and the console semantics
// installed on it. It participates in snippet hashing so cached results are
// invalidated when the engine behavior changes.
const EngineTag = "goja/es2020+console.v2"

// EvalError is a failed evaluation: a thrown value or a deadline interrupt.
type EvalError struct {
	// Message is the engine's error text, e.g. "TypeError: x is not a function".
	Message string

	// Interrupted marks deadline or cancellation, as opposed to a throw.
	Interrupted bool
}

func (e *EvalError) Error() string {
	if e.Interrupted {
		return "evaluation interrupted: " + e.Message
	}
	return e.Message
}

// Runtime wraps a goja VM with a captured console.
type Runtime struct {
	vm      *goja.Runtime
	console *console
}

// New creates a Runtime with the console installed.
func New() (*Runtime, error) {
	vm := goja.New()
	c := &console{vm: vm}
	if err := vm.Set("console", c.object()); err != nil {
		return nil, fmt.Errorf("installing console: %w", err)
	}
	return &Runtime{vm: vm, console: c}, nil
}

// Eval runs src and returns the console output it produced.
//
// The VM is interrupted when ctx is canceled or timeout elapses (timeout <= 0
// means no deadline). Output produced before a failure is still returned, so
// a partially correct example can be diffed against its declaration.
func (r *Runtime) Eval(ctx context.Context, src string, timeout time.Duration) ([]byte, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	done := make(chan struct{})
	watchdog := make(chan struct{})
	go func() {
		defer close(watchdog)
		select {
		case <-ctx.Done():
			r.vm.Interrupt(ctx.Err())
		case <-done:
		}
	}()

	mark := r.console.mark()
	_, err := r.vm.RunString(src)
	close(done)
	<-watchdog

	// The watchdog may have set the interrupt flag after the final statement
	// completed, so a successful run can still leave the VM poisoned. Join the
	// watchdog first, then clear unconditionally; later examples in the
	// document need a working VM.
	r.vm.ClearInterrupt()
	out := r.console.since(mark)

	if err != nil {
		return out, asEvalError(err)
	}
	return out, nil
}

func asEvalError(err error) error {
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		return &EvalError{Message: interrupted.String(), Interrupted: true}
	}
	var exc *goja.Exception
	if errors.As(err, &exc) {
		return &EvalError{Message: exc.Error()}
	}
	return &EvalError{Message: err.Error()}
}
