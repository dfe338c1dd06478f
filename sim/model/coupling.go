package model

// Boundary stands for the edge of the current scope in a coupling: the
// enclosing coupled model, or the kernel at the top level.
const Boundary = ""

// An Endpoint is a port of a model, named by model name.
type Endpoint struct {
	Model string `json:"model"`
	Port  string `json:"port"`
}

// IsBoundary tells if the endpoint is on the edge of the scope.
func (e Endpoint) IsBoundary() bool {
	return e.Model == Boundary
}

func (e Endpoint) String() string {
	if e.IsBoundary() {
		return "<boundary>." + e.Port
	}

	return e.Model + "." + e.Port
}

// A Coupling wires one port to another.
type Coupling struct {
	Src Endpoint `json:"src"`
	Dst Endpoint `json:"dst"`
}

// A CouplingTable maps a source port to its destinations. Iteration follows
// insertion order so that message delivery is deterministic. The zero value
// is an empty table.
type CouplingTable struct {
	sources []Endpoint
	dests   map[Endpoint][]Endpoint
}

// NewCouplingTable creates an empty table.
func NewCouplingTable() *CouplingTable {
	return &CouplingTable{}
}

// Add wires src to dst. It returns false if the coupling already exists.
func (t *CouplingTable) Add(src, dst Endpoint) bool {
	if t.dests == nil {
		t.dests = make(map[Endpoint][]Endpoint)
	}

	list, found := t.dests[src]
	for _, d := range list {
		if d == dst {
			return false
		}
	}

	if !found {
		t.sources = append(t.sources, src)
	}

	t.dests[src] = append(list, dst)

	return true
}

// Remove unwires src from dst. It returns false if there was no such
// coupling.
func (t *CouplingTable) Remove(src, dst Endpoint) bool {
	list := t.dests[src]
	for i, d := range list {
		if d != dst {
			continue
		}

		list = append(list[:i:i], list[i+1:]...)
		if len(list) == 0 {
			t.dropSource(src)
		} else {
			t.dests[src] = list
		}

		return true
	}

	return false
}

// Destinations returns where messages leaving src go.
func (t *CouplingTable) Destinations(src Endpoint) []Endpoint {
	list := t.dests[src]
	out := make([]Endpoint, len(list))
	copy(out, list)

	return out
}

// HasSource tells if any coupling starts at src.
func (t *CouplingTable) HasSource(src Endpoint) bool {
	_, found := t.dests[src]
	return found
}

// PurgeModel removes every coupling that starts or ends at the named model.
// It returns the number of couplings removed.
func (t *CouplingTable) PurgeModel(name string) int {
	removed := 0

	for _, src := range append([]Endpoint(nil), t.sources...) {
		list := t.dests[src]

		if src.Model == name {
			removed += len(list)
			t.dropSource(src)

			continue
		}

		kept := list[:0:0]
		for _, d := range list {
			if d.Model == name {
				removed++
				continue
			}

			kept = append(kept, d)
		}

		if len(kept) == 0 {
			t.dropSource(src)
		} else {
			t.dests[src] = kept
		}
	}

	return removed
}

// Entries lists all couplings in insertion order.
func (t *CouplingTable) Entries() []Coupling {
	var out []Coupling

	for _, src := range t.sources {
		for _, dst := range t.dests[src] {
			out = append(out, Coupling{Src: src, Dst: dst})
		}
	}

	return out
}

// Len returns the number of couplings.
func (t *CouplingTable) Len() int {
	n := 0
	for _, list := range t.dests {
		n += len(list)
	}

	return n
}

// Reset removes all couplings.
func (t *CouplingTable) Reset() {
	t.sources = nil
	t.dests = nil
}

func (t *CouplingTable) dropSource(src Endpoint) {
	delete(t.dests, src)

	for i, s := range t.sources {
		if s == src {
			t.sources = append(t.sources[:i], t.sources[i+1:]...)
			break
		}
	}
}
