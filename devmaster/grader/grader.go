// Package grader runs untrusted JavaScript submissions against hidden
// verification code inside an embedded interpreter. Each run gets a fresh
// interpreter with no host bindings beyond a captured console, and a hard
// wall-clock limit enforced through interpreter interruption.
package grader

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dop251/goja"
)

const DefaultTimeout = 2 * time.Second

var errTimeout = errors.New("execution timed out")

// Result is the outcome of one graded run. Error carries the submission's
// own failure message and is safe to show to the author; it never contains
// the verification code.
type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Output  string `json:"output,omitempty"`
}

type Grader struct {
	timeout time.Duration
}

func New(timeout time.Duration) *Grader {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Grader{timeout: timeout}
}

// Grade concatenates the submission with the verification fragment and
// evaluates both in one scope. Only a literal boolean true counts as a
// pass; any other value, any thrown error and any timeout is a failure
// with a message, never a Go error. The error return is reserved for
// grader-internal faults.
func (g *Grader) Grade(userCode, testCode string) (*Result, error) {
	source := fmt.Sprintf("(function() {\n%s\n%s\n})()", userCode, testCode)
	value, console, err := g.run(source)
	if err != nil {
		return &Result{Success: false, Error: failureMessage(err), Output: console}, nil
	}

	passed, ok := value.Export().(bool)
	if !ok || !passed {
		return &Result{Success: false, Error: "tests did not pass", Output: console}, nil
	}
	return &Result{Success: true, Output: console}, nil
}

// RunPractice evaluates code on its own and returns whatever it printed.
// Used by the sandbox mode that costs no energy.
func (g *Grader) RunPractice(code string) (*Result, error) {
	source := fmt.Sprintf("(function() {\n%s\n})()", code)
	_, console, err := g.run(source)
	if err != nil {
		return &Result{Success: false, Error: failureMessage(err), Output: console}, nil
	}
	return &Result{Success: true, Output: console}, nil
}

func (g *Grader) run(source string) (goja.Value, string, error) {
	vm := goja.New()
	console := newConsoleBuffer()
	if err := console.bind(vm); err != nil {
		return nil, "", err
	}

	timer := time.AfterFunc(g.timeout, func() {
		vm.Interrupt(errTimeout)
	})
	defer timer.Stop()

	value, err := vm.RunString(source)
	return value, console.String(), err
}

func failureMessage(err error) string {
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		return errTimeout.Error()
	}
	var exception *goja.Exception
	if errors.As(err, &exception) {
		return exception.Value().String()
	}
	// Parse errors arrive as plain errors; trim goja's position prefix noise.
	return strings.TrimSpace(err.Error())
}
