// Package model defines what a simulation model is: an atomic model with
// explicit states and transition functions, or a coupled model composed of
// other models wired by port couplings.
package model

import (
	"errors"
	"fmt"

	"github.com/sarchlab/devskit/sim/id"
	"github.com/sarchlab/devskit/sim/naming"
	"github.com/sarchlab/devskit/sim/serialization"
)

var (
	// ErrUndeclaredState is returned when a model is in a state that it never
	// declared.
	ErrUndeclaredState = errors.New("undeclared state")

	// ErrNegativeTimeAdvance is returned when a state has a negative time
	// advance.
	ErrNegativeTimeAdvance = errors.New("negative time advance")

	// ErrUnknownModel is returned when a coupling names a model that does
	// not exist in its scope.
	ErrUnknownModel = errors.New("unknown model")

	// ErrUnknownPort is returned when a coupling names a port that the model
	// does not declare.
	ErrUnknownPort = errors.New("unknown port")

	// ErrDuplicateChild is returned when two children of a coupled model
	// share a name.
	ErrDuplicateChild = errors.New("duplicate child")
)

// Kind tells the two variants of models apart.
type Kind int

// The variants of models.
const (
	KindAtomic Kind = iota
	KindCoupled
)

func (k Kind) String() string {
	switch k {
	case KindAtomic:
		return "atomic"
	case KindCoupled:
		return "coupled"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// A Model is anything that can be placed in a simulation.
type Model interface {
	naming.Named
	serialization.Serializable

	// ID is the identity used to break ties between models that want to
	// act at the same time. It carries no other meaning.
	ID() uint64
	Kind() Kind

	InputPorts() []string
	OutputPorts() []string
	HasInputPort(port string) bool
	HasOutputPort(port string) bool
}

// ModelBase holds the identity and ports shared by both kinds of models.
type ModelBase struct {
	naming.NamedBase

	id          uint64
	inputPorts  PortSet
	outputPorts PortSet
}

// MakeModelBase creates a ModelBase with a fresh identity.
func MakeModelBase(name string) ModelBase {
	naming.NameMustBeValid(name)

	return ModelBase{
		NamedBase: naming.MakeNamedBase(name),
		id:        id.Next(),
	}
}

// ID returns the tie-breaking identity of the model.
func (b *ModelBase) ID() uint64 {
	return b.id
}

// InsertInputPort declares an input port.
func (b *ModelBase) InsertInputPort(port string) {
	b.inputPorts.Add(port)
}

// InsertOutputPort declares an output port.
func (b *ModelBase) InsertOutputPort(port string) {
	b.outputPorts.Add(port)
}

// InputPorts returns the declared input ports in declaration order.
func (b *ModelBase) InputPorts() []string {
	return b.inputPorts.Names()
}

// OutputPorts returns the declared output ports in declaration order.
func (b *ModelBase) OutputPorts() []string {
	return b.outputPorts.Names()
}

// HasInputPort tells if the port is a declared input port.
func (b *ModelBase) HasInputPort(port string) bool {
	return b.inputPorts.Has(port)
}

// HasOutputPort tells if the port is a declared output port.
func (b *ModelBase) HasOutputPort(port string) bool {
	return b.outputPorts.Has(port)
}

// NewMessage creates a message that leaves this model through the given
// output port.
func (b *ModelBase) NewMessage(port string, payload ...any) *Message {
	msg := NewMessage(b.Name(), port)
	msg.Extend(payload...)

	return msg
}

// baseStateKey is the key under which every model record keeps its name
// and ports.
const baseStateKey = "model"

type baseState struct {
	Name        string   `json:"name"`
	InputPorts  []string `json:"input_ports"`
	OutputPorts []string `json:"output_ports"`
}

func (b *ModelBase) saveBase() baseState {
	return baseState{
		Name:        b.Name(),
		InputPorts:  b.InputPorts(),
		OutputPorts: b.OutputPorts(),
	}
}

// loadBase restores the name and ports. A restored model always gets a new
// identity, allocated in the order models are restored.
func (b *ModelBase) loadBase(s baseState) {
	naming.NameMustBeValid(s.Name)

	b.NamedBase = naming.MakeNamedBase(s.Name)
	b.id = id.Next()
	b.inputPorts = PortSet{}
	b.outputPorts = PortSet{}

	for _, p := range s.InputPorts {
		b.inputPorts.Add(p)
	}

	for _, p := range s.OutputPorts {
		b.outputPorts.Add(p)
	}
}
