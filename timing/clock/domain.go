package clock

import "fmt"

// Domain is the set of stateful components driven by one clock.
//
// Components are committed in registration order. Registration order does
// not affect results because every component only reads values committed
// at the previous edge.
type Domain struct {
	members []Tickable
	seen    map[Tickable]struct{}
	cycle   uint64
}

// NewDomain creates an empty clock domain.
func NewDomain() *Domain {
	return &Domain{seen: make(map[Tickable]struct{})}
}

// Register adds components to the domain. The zero Domain is ready to use.
// It panics if a component is registered twice, since it would then be
// committed twice per cycle.
func (d *Domain) Register(components ...Tickable) {
	if d.seen == nil {
		d.seen = make(map[Tickable]struct{})
	}
	for _, c := range components {
		if _, dup := d.seen[c]; dup {
			panic(fmt.Sprintf("clock: component %T registered twice", c))
		}
		d.seen[c] = struct{}{}
		d.members = append(d.members, c)
	}
}

// Tick commits every registered component exactly once.
func (d *Domain) Tick() {
	for _, c := range d.members {
		c.Tick()
	}
	d.cycle++
}

// Cycle returns the number of clock edges so far.
func (d *Domain) Cycle() uint64 {
	return d.cycle
}

// Len returns the number of registered components.
func (d *Domain) Len() int {
	return len(d.members)
}
