package nodegraph

// Slot addresses a synth parameter either by pre-resolved index or by
// name, mirroring the original implementation's pair of set() overloads
// (set(slot_index_t, ...) vs set(const char*, ...)) rather than forcing
// every caller through name lookup.
type Slot struct {
	name  string
	index int
	named bool
}

// SlotIndex addresses a parameter by its fixed integer position.
func SlotIndex(i int) Slot { return Slot{index: i} }

// SlotName addresses a parameter by name.
func SlotName(name string) Slot { return Slot{name: name, named: true} }

func (s Slot) key() any {
	if s.named {
		return s.name
	}
	return s.index
}

// paramStore holds named/indexed float and float-array parameter values
// for a Synth. It is a plain map rather than an RT-pool allocation because
// mutation only happens from the control-intake path between blocks, never
// from a worker mid-block.
type paramStore struct {
	scalars map[any]float64
	arrays  map[any][]float64
}

func newParamStore() *paramStore {
	return &paramStore{
		scalars: make(map[any]float64),
		arrays:  make(map[any][]float64),
	}
}

func (p *paramStore) setScalar(s Slot, v float64) {
	delete(p.arrays, s.key())
	p.scalars[s.key()] = v
}

func (p *paramStore) setArray(s Slot, v []float64) {
	delete(p.scalars, s.key())
	cp := make([]float64, len(v))
	copy(cp, v)
	p.arrays[s.key()] = cp
}

// Scalar returns the scalar value stored at slot, if any.
func (p *paramStore) Scalar(s Slot) (float64, bool) {
	v, ok := p.scalars[s.key()]
	return v, ok
}

// Array returns the array value stored at slot, if any.
func (p *paramStore) Array(s Slot) ([]float64, bool) {
	v, ok := p.arrays[s.key()]
	return v, ok
}
