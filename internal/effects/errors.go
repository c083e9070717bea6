package effects

import "fmt"

// CapabilityError reports a call into an effect family with no grant —
// the runtime half of the deny-by-default enforcement that static
// EffectSet checking assumes actually happens.
type CapabilityError struct {
	Effect string
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("effects: capability %q not granted", e.Effect)
}

// NewCapabilityError builds a CapabilityError for effect.
func NewCapabilityError(effect string) error {
	return &CapabilityError{Effect: effect}
}
