package model

import "fmt"

// PortSet is an ordered set of port names.
type PortSet struct {
	names []string
	index map[string]int
}

// Add declares a port. Declaring the same port twice panics.
func (s *PortSet) Add(name string) {
	if s.index == nil {
		s.index = make(map[string]int)
	}

	if _, found := s.index[name]; found {
		panic(fmt.Sprintf("port %s already exist", name))
	}

	s.index[name] = len(s.names)
	s.names = append(s.names, name)
}

// Has tells if the port is declared.
func (s *PortSet) Has(name string) bool {
	_, found := s.index[name]
	return found
}

// Names returns a copy of the declared names in declaration order.
func (s *PortSet) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)

	return out
}

// Len returns the number of declared ports.
func (s *PortSet) Len() int {
	return len(s.names)
}
