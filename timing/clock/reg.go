// Package clock provides the synchronous primitives of the timing model:
// clocked registers and the commit domain that ticks them.
//
// Every stateful component follows a two-phase discipline. During a cycle,
// readers call Get and observe the value committed at the previous clock
// edge; writers call Set, which only stages a pending value. Tick is the
// clock edge that makes pending values current.
package clock

// Tickable is a stateful component that commits on the clock edge.
type Tickable interface {
	Tick()
}

// Reg is a clocked register holding a value of type T.
//
// The zero value is a write-enabled register holding T's zero value.
type Reg[T any] struct {
	current  T
	pending  T
	disabled bool
}

// NewReg creates a register whose current value is init.
func NewReg[T any](init T) *Reg[T] {
	return &Reg[T]{current: init, pending: init}
}

// Get returns the value committed at the last clock edge.
func (r *Reg[T]) Get() T {
	return r.current
}

// Set stages v to become current at the next Tick.
func (r *Reg[T]) Set(v T) {
	r.pending = v
}

// Enable allows the next Tick to commit the pending value.
func (r *Reg[T]) Enable() {
	r.disabled = false
}

// Disable makes Tick leave the current value unchanged.
func (r *Reg[T]) Disable() {
	r.disabled = true
}

// Enabled reports whether the register will commit on Tick.
func (r *Reg[T]) Enabled() bool {
	return !r.disabled
}

// Tick commits the pending value if the register is enabled.
func (r *Reg[T]) Tick() {
	if r.disabled {
		return
	}
	r.current = r.pending
}
