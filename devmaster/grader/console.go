package grader

import (
	"fmt"
	"strings"

	"github.com/dop251/goja"
)

// consoleBuffer collects console.log output from a run so practice mode
// can echo it back. Bounded so a tight print loop cannot exhaust memory.
type consoleBuffer struct {
	sb      strings.Builder
	limit   int
	dropped bool
}

const consoleLimit = 64 * 1024

func newConsoleBuffer() *consoleBuffer {
	return &consoleBuffer{limit: consoleLimit}
}

func (c *consoleBuffer) bind(vm *goja.Runtime) error {
	console := vm.NewObject()
	log := func(call goja.FunctionCall) goja.Value {
		c.writeLine(call.Arguments)
		return goja.Undefined()
	}
	for _, name := range []string{"log", "info", "warn", "error"} {
		if err := console.Set(name, log); err != nil {
			return err
		}
	}
	return vm.Set("console", console)
}

func (c *consoleBuffer) writeLine(args []goja.Value) {
	if c.dropped {
		return
	}
	parts := make([]string, len(args))
	for i, arg := range args {
		parts[i] = arg.String()
	}
	line := strings.Join(parts, " ")
	if c.sb.Len()+len(line)+1 > c.limit {
		c.dropped = true
		c.sb.WriteString("... output truncated\n")
		return
	}
	fmt.Fprintln(&c.sb, line)
}

func (c *consoleBuffer) String() string {
	return c.sb.String()
}
