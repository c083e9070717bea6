package effects

import (
	"sync"
	"time"
)

// Context holds the capability grants and clock state for one
// compilation/execution session. A Context is typically created once
// per Database (internal/query) and shared across every Machine it
// builds.
type Context struct {
	mu   sync.RWMutex
	caps map[string]Capability

	startTime time.Time
	epoch     int64
}

// NewContext creates a Context with no capabilities granted
// (deny-by-default) and a monotonic clock anchor.
func NewContext() *Context {
	now := time.Now()
	return &Context{
		caps:      make(map[string]Capability),
		startTime: now,
		epoch:     now.UnixMilli(),
	}
}

// Grant adds a capability. Granting the same name twice is idempotent.
func (c *Context) Grant(cap Capability) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.caps[cap.Name] = cap
}

// HasCap reports whether name is currently granted.
func (c *Context) HasCap(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.caps[name]
	return ok
}

// RequireCap returns a CapabilityError if name is not granted.
func (c *Context) RequireCap(name string) error {
	if !c.HasCap(name) {
		return NewCapabilityError(name)
	}
	return nil
}

// monotonicMillis returns the Unix-millisecond time captured when the
// Context was built (c.epoch) plus the monotonic time elapsed since then,
// so readings are immune to NTP/DST/manual clock adjustments the way the
// teacher's ClockContext.now() is.
func (c *Context) monotonicMillis() int64 {
	return c.epoch + time.Since(c.startTime).Milliseconds()
}
