package execution

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dop251/goja"
)

// JSEvaluator runs JavaScript in an isolated goja runtime with a hard deadline.
// The sandbox exposes only console and stdin; there is no module loader,
// filesystem or network access.
type JSEvaluator struct {
	timeout time.Duration
}

// NewJSEvaluator creates an evaluator that interrupts scripts after timeout.
func NewJSEvaluator(timeout time.Duration) *JSEvaluator {
	return &JSEvaluator{timeout: timeout}
}

// Run evaluates code. Script errors and timeouts are reported on stderr, not as errors.
func (e *JSEvaluator) Run(ctx context.Context, code, stdin string) (stdout, stderr string) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	var out, errs []string
	vm := goja.New()

	console := vm.NewObject()
	for name, sink := range map[string]*[]string{
		"log":   &out,
		"info":  &out,
		"debug": &out,
		"error": &errs,
		"warn":  &errs,
	} {
		_ = console.Set(name, func(call goja.FunctionCall) goja.Value {
			*sink = append(*sink, joinArgs(call.Arguments))
			return goja.Undefined()
		})
	}
	_ = vm.Set("console", console)
	_ = vm.Set("stdin", stdin)

	stop := context.AfterFunc(ctx, func() {
		vm.Interrupt(ctx.Err())
	})
	defer stop()

	if _, err := vm.RunScript("cell.js", code); err != nil {
		errs = append(errs, e.describe(ctx, err))
	}
	return strings.Join(out, "\n"), strings.Join(errs, "\n")
}

func (e *JSEvaluator) describe(ctx context.Context, err error) string {
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Sprintf("Error: Script execution timed out after %dms", e.timeout.Milliseconds())
		}
		return "Error: Script execution was cancelled"
	}
	return err.Error()
}

func joinArgs(args []goja.Value) string {
	parts := make([]string, len(args))
	for i, arg := range args {
		parts[i] = arg.String()
	}
	return strings.Join(parts, " ")
}
