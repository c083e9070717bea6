package plugin

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunBefore_InvokesEveryRegisteredHookInOrder(t *testing.T) {
	r := NewRegistry()
	var seen []string
	r.RegisterBefore("ast", func(stage string, input any) { seen = append(seen, "first:"+stage) })
	r.RegisterBefore("ast", func(stage string, input any) { seen = append(seen, "second:"+stage) })

	r.RunBefore("ast", "main.vais")

	assert.Equal(t, []string{"first:ast", "second:ast"}, seen)
}

func TestRunBefore_UnregisteredStageIsANoop(t *testing.T) {
	r := NewRegistry()
	assert.NotPanics(t, func() { r.RunBefore("ir", nil) })
}

func TestRunAfter_ObserverReturningNilLeavesOutputUnchanged(t *testing.T) {
	r := NewRegistry()
	var observedOutput any
	r.RegisterAfter("ir", func(stage string, input, output any) any {
		observedOutput = output
		return nil
	})

	result := r.RunAfter("ir", "input", 42)

	assert.Equal(t, 42, observedOutput)
	assert.Equal(t, 42, result)
}

func TestRunAfter_TransformerReplacementFeedsIntoNextHook(t *testing.T) {
	r := NewRegistry()
	r.RegisterAfter("ir", func(stage string, input, output any) any {
		return output.(int) + 1
	})
	r.RegisterAfter("ir", func(stage string, input, output any) any {
		return output.(int) * 2
	})

	result := r.RunAfter("ir", nil, 10)

	assert.Equal(t, 22, result)
}
