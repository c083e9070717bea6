package effects

import (
	"fmt"

	"github.com/vaislang/vais/internal/ir"
)

// Op implements one effect operation: capability-gated host code the VM
// dispatches into for a call that isn't a compiled Vais function.
type Op func(ctx *Context, args []ir.Value) (ir.Value, error)

// Registry holds every effect operation, organized effectName -> opName
// (e.g. Registry["IO"]["printInt"]), pre-populated by each effect
// family's init().
var Registry = map[string]map[string]Op{}

// RegisterOp adds op under effectName/opName, called from each effect
// family's init().
func RegisterOp(effectName, opName string, op Op) {
	if Registry[effectName] == nil {
		Registry[effectName] = make(map[string]Op)
	}
	Registry[effectName][opName] = op
}

// Call checks ctx's capability grant for effectName, looks up opName,
// and invokes it.
func Call(ctx *Context, effectName, opName string, args []ir.Value) (ir.Value, error) {
	if err := ctx.RequireCap(effectName); err != nil {
		return ir.UnitValue(), err
	}
	ops, ok := Registry[effectName]
	if !ok {
		return ir.UnitValue(), fmt.Errorf("effects: unknown effect %q", effectName)
	}
	op, ok := ops[opName]
	if !ok {
		return ir.UnitValue(), fmt.Errorf("effects: unknown operation %s.%s", effectName, opName)
	}
	return op(ctx, args)
}
