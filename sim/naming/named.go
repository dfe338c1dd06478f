// Package naming defines how simulation objects are named.
package naming

import (
	"fmt"
	"strings"
)

// Separator is reserved for composing keys out of names, for example in
// per-model snapshot keys.
const Separator = "/"

// Named describes an object that has a name.
type Named interface {
	// Name returns the name of the object.
	Name() string
}

// NamedBase is a base implementation of Named.
type NamedBase struct {
	name string
}

// Name returns the name of the object.
func (b *NamedBase) Name() string {
	return b.name
}

// SetName renames the object. It is used when a model is restored from a
// snapshot under a different name.
func (b *NamedBase) SetName(name string) {
	NameMustBeValid(name)
	b.name = name
}

// MakeNamedBase creates a new NamedBase
func MakeNamedBase(name string) NamedBase {
	NameMustBeValid(name)
	return NamedBase{name: name}
}

// NameMustBeValid panics if the name cannot be used to identify a model.
func NameMustBeValid(name string) {
	if err := ValidateName(name); err != nil {
		panic(err)
	}
}

// ValidateName reports why a name cannot be used to identify a model.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("name must not be empty")
	}

	if strings.Contains(name, Separator) {
		return fmt.Errorf("name %q must not contain %q", name, Separator)
	}

	return nil
}
