package effects

import (
	"strings"

	"github.com/vaislang/vais/internal/ir"
)

// Host adapts a Context into vm.HostCall: a call to a name the Machine's
// function table doesn't recognize is tried here before the VM gives up
// with "undefined function". Names are dispatched as "Effect.op" (e.g.
// "Clock.now", "IO.printInt"); anything without exactly one dot, or
// whose effect/op pair isn't registered, is reported unhandled so the
// VM's original error still surfaces.
type Host struct {
	ctx *Context
}

// NewHost wraps ctx as a vm.HostCall.
func NewHost(ctx *Context) *Host { return &Host{ctx: ctx} }

func (h *Host) Call(name string, args []ir.Value) (ir.Value, bool, error) {
	effectName, opName, ok := strings.Cut(name, ".")
	if !ok {
		return ir.UnitValue(), false, nil
	}
	if _, known := Registry[effectName]; !known {
		return ir.UnitValue(), false, nil
	}
	if _, known := Registry[effectName][opName]; !known {
		return ir.UnitValue(), false, nil
	}
	result, err := Call(h.ctx, effectName, opName, args)
	return result, true, err
}
