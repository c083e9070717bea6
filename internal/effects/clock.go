package effects

import (
	"fmt"
	"time"

	"github.com/vaislang/vais/internal/ir"
)

func init() {
	RegisterOp("Clock", "now", clockNow)
	RegisterOp("Clock", "sleepMs", clockSleepMs)
}

// clockNow implements Clock.now() -> i64: the Context's start time in
// Unix milliseconds, advanced by the monotonic time elapsed since.
func clockNow(ctx *Context, args []ir.Value) (ir.Value, error) {
	if len(args) != 0 {
		return ir.UnitValue(), fmt.Errorf("Clock.now: expected 0 arguments, got %d", len(args))
	}
	return ir.IntValue(ctx.monotonicMillis()), nil
}

// clockSleepMs implements Clock.sleepMs(ms: i64) -> (), blocking the
// calling goroutine for ms milliseconds.
func clockSleepMs(ctx *Context, args []ir.Value) (ir.Value, error) {
	if len(args) != 1 || args[0].Kind != ir.KindInt {
		return ir.UnitValue(), fmt.Errorf("Clock.sleepMs: expected 1 int argument")
	}
	if args[0].Int < 0 {
		return ir.UnitValue(), fmt.Errorf("Clock.sleepMs: negative duration %d", args[0].Int)
	}
	time.Sleep(time.Duration(args[0].Int) * time.Millisecond)
	return ir.UnitValue(), nil
}
