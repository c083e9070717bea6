package effects

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaislang/vais/internal/ir"
)

func TestCall_DeniedWithoutGrant(t *testing.T) {
	ctx := NewContext()
	_, err := Call(ctx, "Clock", "now", nil)
	require.Error(t, err)
	var capErr *CapabilityError
	assert.ErrorAs(t, err, &capErr)
}

func TestCall_ClockNowMonotonic(t *testing.T) {
	ctx := NewContext()
	ctx.Grant(NewCapability("Clock"))

	first, err := Call(ctx, "Clock", "now", nil)
	require.NoError(t, err)
	second, err := Call(ctx, "Clock", "now", nil)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, second.Int, first.Int)
}

func TestCall_UnknownEffectOrOp(t *testing.T) {
	ctx := NewContext()
	ctx.Grant(NewCapability("Clock"))

	_, err := Call(ctx, "Nope", "thing", nil)
	assert.Error(t, err)

	_, err = Call(ctx, "Clock", "nope", nil)
	assert.Error(t, err)
}

func TestIOPrintInt_WritesToConfiguredOutput(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stdout)

	ctx := NewContext()
	ctx.Grant(NewCapability("IO"))

	_, err := Call(ctx, "IO", "printInt", []ir.Value{ir.IntValue(42)})
	require.NoError(t, err)
	assert.Equal(t, "42\n", buf.String())
}

func TestHost_DispatchesDottedNameAndReportsUnhandled(t *testing.T) {
	ctx := NewContext()
	ctx.Grant(NewCapability("Clock"))
	h := NewHost(ctx)

	result, handled, err := h.Call("Clock.now", nil)
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Equal(t, ir.KindInt, result.Kind)

	_, handled, err = h.Call("user_function", nil)
	assert.False(t, handled)
	assert.NoError(t, err)

	_, handled, _ = h.Call("Unknown.op", nil)
	assert.False(t, handled)
}
