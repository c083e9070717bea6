package jit

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/vaislang/vais/internal/ir"
	"github.com/vaislang/vais/internal/metrics"
)

func floatBits(f float64) uint64 { return math.Float64bits(f) }

// OsrDecision is returned by OsrPoint.RecordIteration, ported from
// original_source's vais-jit::osr::OsrDecision.
type OsrDecision int

const (
	OsrContinue OsrDecision = iota
	OsrCompile
	OsrJump
)

// OsrPoint is one loop header's tier-up state: an iteration counter,
// a threshold, and whether it has already transitioned to compiled
// code. Ported field-for-field from original_source's OsrPoint, with
// Rust's Arc<AtomicU64>/Arc<AtomicBool> replaced by plain atomics
// (Go's GC makes the Arc layer unnecessary).
type OsrPoint struct {
	ID              uint64
	FuncName        string
	BytecodeOffset  int
	Threshold       uint64
	iterationCount  uint64
	transitioned    uint32 // 0/1, accessed via atomic
	compiledPresent uint32 // 0/1: whether a compiled entry has been set
}

func newOsrPoint(id uint64, funcName string, bytecodeOffset int, threshold uint64) *OsrPoint {
	return &OsrPoint{ID: id, FuncName: funcName, BytecodeOffset: bytecodeOffset, Threshold: threshold}
}

// RecordIteration records one loop-header visit and returns the
// resulting decision, mirroring OsrPoint::record_iteration.
func (p *OsrPoint) RecordIteration() OsrDecision {
	if atomic.LoadUint32(&p.transitioned) == 1 {
		if atomic.LoadUint32(&p.compiledPresent) == 1 {
			return OsrJump
		}
		return OsrContinue
	}
	count := atomic.AddUint64(&p.iterationCount, 1)
	if count >= p.Threshold {
		return OsrCompile
	}
	return OsrContinue
}

// MarkTransitioned records that compilation has completed and future
// RecordIteration calls should report OsrJump.
func (p *OsrPoint) MarkTransitioned() {
	atomic.StoreUint32(&p.compiledPresent, 1)
	atomic.StoreUint32(&p.transitioned, 1)
}

func (p *OsrPoint) iterations() uint64 { return atomic.LoadUint64(&p.iterationCount) }

func (p *OsrPoint) statsString() string {
	return fmt.Sprintf("OSR[%d] %s@%d - iterations: %d, threshold: %d, transitioned: %t",
		p.ID, p.FuncName, p.BytecodeOffset, p.iterations(), p.Threshold, atomic.LoadUint32(&p.transitioned) == 1)
}

// OsrValue mirrors the source port's tagged OSR value enum — a
// second, narrower value representation than ir.Value because the
// OSR buffer's wire shape (fixed arrays,
// 1-byte type tags) is a fixed, versioned contract, not
// something to collapse into ir.Value.
type OsrValue struct {
	Kind  OsrValueKind
	Int   int64
	Float float64
	Bool  bool
}

type OsrValueKind uint8

const (
	OsrValInt OsrValueKind = iota
	OsrValFloat
	OsrValBool
	OsrValUnknown
)

func osrValueFromIR(v ir.Value) OsrValue {
	switch v.Kind {
	case ir.KindInt:
		return OsrValue{Kind: OsrValInt, Int: v.Int}
	case ir.KindFloat:
		return OsrValue{Kind: OsrValFloat, Float: v.Float}
	case ir.KindBool:
		return OsrValue{Kind: OsrValBool, Bool: v.Bool}
	default:
		return OsrValue{Kind: OsrValUnknown}
	}
}

// OsrBuffer is the fixed-layout handoff buffer the interpreter
// populates and the compiled entry reads, ported from
// original_source's #[repr(C)] OsrBuffer: 64 local slots and 32 stack
// slots, each carrying a 1-byte type tag alongside its i64 payload
// (floats are bit-reinterpreted into the same 8 bytes, matching
// v.to_bits() in the Rust source). Go's closure-based "compiled" code
// does not actually decode this buffer byte-for-byte — it reads the
// typed locals/stack it was already given — but the buffer is built
// and kept in this shape so a real native backend could be dropped in
// later without changing this type.
type OsrBuffer struct {
	Locals     [64]int64
	LocalTypes [64]uint8
	LocalCount int
	Stack      [32]int64
	StackTypes [32]uint8
	StackDepth int
}

// osrFrame is the interpreter-state snapshot taken at a loop header,
// ported from original_source's OsrFrame: named locals plus an
// operand stack, each already reduced to the narrow OsrValue shape.
type osrFrame struct {
	locals map[string]OsrValue
	stack  []OsrValue
}

func captureOsrFrame(locals map[string]ir.Value, stack []ir.Value) *osrFrame {
	f := &osrFrame{locals: make(map[string]OsrValue, len(locals)), stack: make([]OsrValue, len(stack))}
	for name, v := range locals {
		f.locals[name] = osrValueFromIR(v)
	}
	for i, v := range stack {
		f.stack[i] = osrValueFromIR(v)
	}
	return f
}

func newOsrBufferFromFrame(frame *osrFrame, varNames []string) *OsrBuffer {
	buf := &OsrBuffer{}
	for i, name := range varNames {
		if i >= len(buf.Locals) {
			break
		}
		v, ok := frame.locals[name]
		if !ok {
			continue
		}
		if !encodeOsrValue(v, &buf.Locals[i], &buf.LocalTypes[i]) {
			continue
		}
		buf.LocalCount = i + 1
	}
	for i, v := range frame.stack {
		if i >= len(buf.Stack) {
			break
		}
		if !encodeOsrValue(v, &buf.Stack[i], &buf.StackTypes[i]) {
			continue
		}
		buf.StackDepth = i + 1
	}
	return buf
}

// encodeOsrValue writes v's payload/type tag into slot/tag, mirroring
// the field encoding original_source's OsrBuffer::from_frame uses
// (floats bit-reinterpreted into the i64 slot). Returns false for a
// value kind the buffer has no slot for — it only
// carries the numeric/bool kinds the JIT's tiers operate on.
func encodeOsrValue(v OsrValue, slot *int64, tag *uint8) bool {
	switch v.Kind {
	case OsrValInt:
		*slot = v.Int
		*tag = 0
	case OsrValFloat:
		*slot = int64(floatBits(v.Float))
		*tag = 1
	case OsrValBool:
		if v.Bool {
			*slot = 1
		}
		*tag = 2
	default:
		return false
	}
	return true
}

// OsrManager owns every loop header's OsrPoint across all functions,
// ported from original_source's OsrManager (HashMap<id,OsrPoint> plus
// a func_name -> [id] index).
type OsrManager struct {
	mu               sync.RWMutex
	points           map[uint64]*OsrPoint
	funcPoints       map[string][]uint64
	byFuncOffset     map[string]uint64 // (funcName+offset) -> point id, for idempotent lookup
	nextID           uint64
	threshold        uint64
	totalTransitions uint64
}

// NewOsrManager builds a manager with a default
// threshold of 100 loop iterations before an OSR-entry is compiled
// (DefaultOSRThreshold, used when threshold is 0); the original
// source's own default of 1000 is not kept.
const DefaultOSRThreshold = 100

func NewOsrManager(threshold uint64) *OsrManager {
	if threshold == 0 {
		threshold = DefaultOSRThreshold
	}
	return &OsrManager{
		points:       make(map[uint64]*OsrPoint),
		funcPoints:   make(map[string][]uint64),
		byFuncOffset: make(map[string]uint64),
		nextID:       1,
		threshold:    threshold,
	}
}

func osrPointKey(funcName string, offset int) string {
	return fmt.Sprintf("%s@%d", funcName, offset)
}

// PointFor returns the OsrPoint for (funcName, offset), creating it on
// first use. This is the entry point internal/vm's back-edge tracking
// calls through (rather than CreatePoint directly) since the VM does
// not know loop header identities ahead of time.
func (m *OsrManager) PointFor(funcName string, offset int) *OsrPoint {
	key := osrPointKey(funcName, offset)

	m.mu.RLock()
	if id, ok := m.byFuncOffset[key]; ok {
		p := m.points[id]
		m.mu.RUnlock()
		return p
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.byFuncOffset[key]; ok {
		return m.points[id]
	}
	id := m.nextID
	m.nextID++
	p := newOsrPoint(id, funcName, offset, m.threshold)
	m.points[id] = p
	m.byFuncOffset[key] = id
	m.funcPoints[funcName] = append(m.funcPoints[funcName], id)
	return p
}

// FuncPoints returns every OsrPoint registered for funcName, sorted by
// bytecode offset for deterministic reporting.
func (m *OsrManager) FuncPoints(funcName string) []*OsrPoint {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := m.funcPoints[funcName]
	out := make([]*OsrPoint, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.points[id])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BytecodeOffset < out[j].BytecodeOffset })
	return out
}

// CompleteTransition marks point as transitioned and bumps the
// manager's total transition count, mirroring
// OsrManager::complete_transition.
func (m *OsrManager) CompleteTransition(point *OsrPoint) {
	point.MarkTransitioned()
	m.mu.Lock()
	m.totalTransitions++
	m.mu.Unlock()
	metrics.OSRTransitions.Inc()
}

func (m *OsrManager) TotalTransitions() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.totalTransitions
}

// Stats renders one line per registered OsrPoint, sorted by function
// name then offset, mirroring OsrManager::print_stats's per-point
// reporting (minus the direct stdout write — callers route this
// through internal/log instead).
func (m *OsrManager) Stats() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.funcPoints))
	for name := range m.funcPoints {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []string
	for _, name := range names {
		ids := append([]uint64(nil), m.funcPoints[name]...)
		sort.Slice(ids, func(i, j int) bool {
			return m.points[ids[i]].BytecodeOffset < m.points[ids[j]].BytecodeOffset
		})
		for _, id := range ids {
			out = append(out, m.points[id].statsString())
		}
	}
	return out
}

// Clear drops every registered point, mirroring OsrManager::clear.
func (m *OsrManager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.points = make(map[uint64]*OsrPoint)
	m.funcPoints = make(map[string][]uint64)
	m.byFuncOffset = make(map[string]uint64)
}
