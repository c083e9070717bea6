package effects

import (
	"fmt"
	"io"
	"os"

	"github.com/vaislang/vais/internal/ir"
)

// defaultWriter is where IO.printInt/printFloat/printBool send output,
// swappable via SetOutput for tests that want to capture output instead
// of writing to the real process stdout.
var defaultWriter io.Writer = os.Stdout

func init() {
	RegisterOp("IO", "printInt", ioPrintInt)
	RegisterOp("IO", "printFloat", ioPrintFloat)
	RegisterOp("IO", "printBool", ioPrintBool)
}

// SetOutput redirects every IO.print* operation to w, for callers (tests,
// an embedding host) that need to capture output instead of writing to
// the process's real stdout. Kept as package-level plumbing rather than
// a Context field since it configures where output goes, not what's
// granted.
func SetOutput(w io.Writer) { defaultWriter = w }

func ioPrintInt(ctx *Context, args []ir.Value) (ir.Value, error) {
	if len(args) != 1 || args[0].Kind != ir.KindInt {
		return ir.UnitValue(), fmt.Errorf("IO.printInt: expected 1 int argument")
	}
	fmt.Fprintf(defaultWriter, "%d\n", args[0].Int)
	return ir.UnitValue(), nil
}

func ioPrintFloat(ctx *Context, args []ir.Value) (ir.Value, error) {
	if len(args) != 1 || args[0].Kind != ir.KindFloat {
		return ir.UnitValue(), fmt.Errorf("IO.printFloat: expected 1 float argument")
	}
	fmt.Fprintf(defaultWriter, "%g\n", args[0].Float)
	return ir.UnitValue(), nil
}

func ioPrintBool(ctx *Context, args []ir.Value) (ir.Value, error) {
	if len(args) != 1 || args[0].Kind != ir.KindBool {
		return ir.UnitValue(), fmt.Errorf("IO.printBool: expected 1 bool argument")
	}
	fmt.Fprintf(defaultWriter, "%t\n", args[0].Bool)
	return ir.UnitValue(), nil
}
