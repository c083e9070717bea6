// Package effects is the runtime counterpart to the static EffectSet
// every function type carries (Pure, Read, Write, Alloc, IO, Panic,
// Diverge, Unsafe): a deny-by-default capability registry the VM
// dispatches host calls through for names that aren't compiled Vais
// functions. Adapted to this IR's numeric-only Value type — no String
// value exists here, so only numeric-signature host operations (clock,
// numeric IO) have a home; a String ResolvedType has no IR value to land
// in, and no ad-hoc string encoding stands in for one.
package effects

// Capability is a granted permission to invoke one effect family's
// operations, e.g. "IO" or "Clock".
type Capability struct {
	Name string
	Meta map[string]any
}

// NewCapability creates a capability with empty metadata.
func NewCapability(name string) Capability {
	return Capability{Name: name, Meta: make(map[string]any)}
}
