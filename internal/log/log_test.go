package log

import "testing"

func TestSetDebug_SwapsLevelWithoutPanicking(t *testing.T) {
	SetDebug(true)
	Debugw("debug on", "k", 1)
	SetDebug(false)
	Infow("debug off", "k", 2)
}

func TestL_ReturnsUsableLogger(t *testing.T) {
	if L() == nil {
		t.Fatal("L() returned nil")
	}
	Infow("hello", "n", 42)
}
