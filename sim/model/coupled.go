package model

import (
	"fmt"

	"github.com/sarchlab/devskit/sim/naming"
	"github.com/sarchlab/devskit/sim/serialization"
)

// A Coupled model is composed of child models wired by couplings. In its
// coupling table, Boundary stands for the coupled model itself: as a source
// it is one of its input ports, as a destination one of its output ports.
type Coupled interface {
	Model

	// Children returns the child models in the order they were added.
	Children() []Model
	Child(name string) (Model, bool)
	Couplings() *CouplingTable
}

// CoupledBase implements the child registry and coupling table of a coupled
// model.
type CoupledBase struct {
	ModelBase

	children  []Model
	byName    map[string]Model
	couplings CouplingTable
}

// MakeCoupledBase creates a CoupledBase without children.
func MakeCoupledBase(name string) CoupledBase {
	return CoupledBase{
		ModelBase: MakeModelBase(name),
	}
}

// Kind returns KindCoupled.
func (b *CoupledBase) Kind() Kind {
	return KindCoupled
}

// AddChild registers a child model.
func (b *CoupledBase) AddChild(m Model) error {
	if b.byName == nil {
		b.byName = make(map[string]Model)
	}

	if _, found := b.byName[m.Name()]; found || m.Name() == b.Name() {
		return fmt.Errorf("%w: %s in %s", ErrDuplicateChild, m.Name(), b.Name())
	}

	b.children = append(b.children, m)
	b.byName[m.Name()] = m

	return nil
}

// RemoveChild unregisters a child and every coupling naming it.
func (b *CoupledBase) RemoveChild(name string) bool {
	if _, found := b.byName[name]; !found {
		return false
	}

	delete(b.byName, name)

	for i, c := range b.children {
		if c.Name() == name {
			b.children = append(b.children[:i], b.children[i+1:]...)
			break
		}
	}

	b.couplings.PurgeModel(name)

	return true
}

// Children returns the child models in the order they were added.
func (b *CoupledBase) Children() []Model {
	out := make([]Model, len(b.children))
	copy(out, b.children)

	return out
}

// Child finds a child by name.
func (b *CoupledBase) Child(name string) (Model, bool) {
	m, found := b.byName[name]
	return m, found
}

// Couplings returns the coupling table.
func (b *CoupledBase) Couplings() *CouplingTable {
	return &b.couplings
}

// Couple wires the output port of src to the input port of dst. Either side
// may be this model, by its own name or by Boundary, to reach the boundary
// ports.
func (b *CoupledBase) Couple(src, srcPort, dst, dstPort string) error {
	srcEnd, err := b.resolveSource(src, srcPort)
	if err != nil {
		return err
	}

	dstEnd, err := b.resolveDestination(dst, dstPort)
	if err != nil {
		return err
	}

	b.couplings.Add(srcEnd, dstEnd)

	return nil
}

// Decouple removes a coupling created by Couple.
func (b *CoupledBase) Decouple(src, srcPort, dst, dstPort string) bool {
	return b.couplings.Remove(
		Endpoint{Model: b.scopeName(src), Port: srcPort},
		Endpoint{Model: b.scopeName(dst), Port: dstPort},
	)
}

func (b *CoupledBase) scopeName(name string) string {
	if name == b.Name() {
		return Boundary
	}

	return name
}

func (b *CoupledBase) resolveSource(name, port string) (Endpoint, error) {
	name = b.scopeName(name)

	if name == Boundary {
		if !b.HasInputPort(port) {
			return Endpoint{}, fmt.Errorf("%w: %s has no input port %s",
				ErrUnknownPort, b.Name(), port)
		}

		return Endpoint{Model: Boundary, Port: port}, nil
	}

	child, found := b.byName[name]
	if !found {
		return Endpoint{}, fmt.Errorf("%w: %s in %s",
			ErrUnknownModel, name, b.Name())
	}

	if !child.HasOutputPort(port) {
		return Endpoint{}, fmt.Errorf("%w: %s has no output port %s",
			ErrUnknownPort, name, port)
	}

	return Endpoint{Model: name, Port: port}, nil
}

func (b *CoupledBase) resolveDestination(name, port string) (Endpoint, error) {
	name = b.scopeName(name)

	if name == Boundary {
		if !b.HasOutputPort(port) {
			return Endpoint{}, fmt.Errorf("%w: %s has no output port %s",
				ErrUnknownPort, b.Name(), port)
		}

		return Endpoint{Model: Boundary, Port: port}, nil
	}

	child, found := b.byName[name]
	if !found {
		return Endpoint{}, fmt.Errorf("%w: %s in %s",
			ErrUnknownModel, name, b.Name())
	}

	if !child.HasInputPort(port) {
		return Endpoint{}, fmt.Errorf("%w: %s has no input port %s",
			ErrUnknownPort, name, port)
	}

	return Endpoint{Model: name, Port: port}, nil
}

type coupledState struct {
	Model     baseState               `json:"model"`
	Children  []*serialization.Record `json:"children"`
	Couplings []Coupling              `json:"couplings"`
}

// SaveState serializes the children, the couplings and, if given, the
// model's own state struct.
func (b *CoupledBase) SaveState(custom any) (map[string]any, error) {
	s := coupledState{
		Model:     b.saveBase(),
		Couplings: b.couplings.Entries(),
	}

	for _, child := range b.children {
		rec, err := ToRecord(child)
		if err != nil {
			return nil, fmt.Errorf("child %s: %w", child.Name(), err)
		}

		s.Children = append(s.Children, rec)
	}

	return saveWithCustom(s, custom)
}

// LoadState rebuilds the children from their records and rewires the
// couplings. Custom may be nil.
func (b *CoupledBase) LoadState(data map[string]any, custom any) error {
	s := coupledState{}

	err := serialization.Decode(data, &s)
	if err != nil {
		return err
	}

	b.loadBase(s.Model)
	b.children = nil
	b.byName = nil
	b.couplings.Reset()

	for _, rec := range s.Children {
		child, err := instantiateModel(rec)
		if err != nil {
			return fmt.Errorf("child %s of %s: %w", rec.Name, b.Name(), err)
		}

		err = b.AddChild(child)
		if err != nil {
			return err
		}
	}

	for _, c := range s.Couplings {
		err = b.Couple(c.Src.Model, c.Src.Port, c.Dst.Model, c.Dst.Port)
		if err != nil {
			return err
		}
	}

	return loadCustom(data, custom)
}

// Serialize persists the base, the children, and the couplings.
func (b *CoupledBase) Serialize() (map[string]any, error) {
	return b.SaveState(nil)
}

// Deserialize restores what Serialize wrote.
func (b *CoupledBase) Deserialize(data map[string]any) error {
	return b.LoadState(data, nil)
}

func instantiateModel(rec *serialization.Record) (Model, error) {
	v, err := rec.Instantiate()
	if err != nil {
		return nil, err
	}

	m, ok := v.(Model)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a model",
			serialization.ErrKindMismatch, rec.Type)
	}

	if rec.Class != "" && rec.Class != m.Kind().String() {
		return nil, fmt.Errorf("%w: %s is %s, record says %s",
			serialization.ErrKindMismatch, rec.Name, m.Kind(), rec.Class)
	}

	return m, nil
}

// FromRecord instantiates the model a record describes.
func FromRecord(rec *serialization.Record) (Model, error) {
	return instantiateModel(rec)
}

// ToRecord serializes a model into a record tagged with its kind and name.
func ToRecord(m Model) (*serialization.Record, error) {
	rec, err := serialization.NewRecord(m)
	if err != nil {
		return nil, err
	}

	rec.Class = m.Kind().String()
	rec.Name = m.Name()

	return rec, nil
}

// RenameRecord changes the name a model record restores under.
func RenameRecord(rec *serialization.Record, name string) error {
	if err := naming.ValidateName(name); err != nil {
		return err
	}

	base, ok := rec.State[baseStateKey].(map[string]any)
	if !ok {
		return fmt.Errorf("%w: %s record has no model section",
			serialization.ErrKindMismatch, rec.Type)
	}

	base["name"] = name
	rec.Name = name

	return nil
}
