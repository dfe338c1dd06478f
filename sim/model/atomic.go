package model

import (
	"fmt"

	"github.com/sarchlab/devskit/sim/serialization"
	"github.com/sarchlab/devskit/sim/timing"
)

// Reschedule tells the executor how to derive the next request time after an
// external transition.
type Reschedule int

const (
	// Recompute sets the request time to now plus the time advance of the
	// new state.
	Recompute Reschedule = iota

	// KeepEarlier sets the request time to the earlier of the pending
	// request time and now plus the time advance of the new state.
	KeepEarlier

	// NoChange keeps the pending request time.
	NoChange
)

func (r Reschedule) String() string {
	switch r {
	case Recompute:
		return "Recompute"
	case KeepEarlier:
		return "KeepEarlier"
	case NoChange:
		return "NoChange"
	default:
		return fmt.Sprintf("Reschedule(%d)", int(r))
	}
}

// An Atomic model is a leaf model with explicit states.
type Atomic interface {
	Model

	// TimeAdvance returns how long the model stays in its current state
	// before an internal transition, or timing.Infinity.
	TimeAdvance() (timing.VTimeInSec, error)

	// ExternalTransition reacts to a message arriving at an input port.
	ExternalTransition(port string, msg *Message) Reschedule

	// InternalTransition is called when the time advance expires.
	InternalTransition()

	// Output is called right before InternalTransition at the same instant.
	Output() []*Message
}

type transitionKey struct {
	from  string
	event string
}

// AtomicBase implements the bookkeeping of an atomic model: declared states
// with their time advances, the current state, and optional transition
// tables. Concrete models embed it and implement the transition functions.
type AtomicBase struct {
	ModelBase

	states     map[string]timing.VTimeInSec
	stateOrder []string
	current    string

	external      map[transitionKey]string
	externalOrder []transitionKey
	internal      map[string]string
	internalOrder []string
}

// MakeAtomicBase creates an AtomicBase without any state.
func MakeAtomicBase(name string) AtomicBase {
	return AtomicBase{
		ModelBase: MakeModelBase(name),
	}
}

// Kind returns KindAtomic.
func (b *AtomicBase) Kind() Kind {
	return KindAtomic
}

// InsertState declares a state with its time advance.
func (b *AtomicBase) InsertState(name string, deadline timing.VTimeInSec) {
	if b.states == nil {
		b.states = make(map[string]timing.VTimeInSec)
	}

	if _, found := b.states[name]; !found {
		b.stateOrder = append(b.stateOrder, name)
	}

	b.states[name] = deadline
}

// UpdateState changes the time advance of a declared state.
func (b *AtomicBase) UpdateState(name string, deadline timing.VTimeInSec) {
	if _, found := b.states[name]; !found {
		panic(fmt.Sprintf("state %s is not declared", name))
	}

	b.states[name] = deadline
}

// FindState returns the time advance of a state.
func (b *AtomicBase) FindState(name string) (timing.VTimeInSec, bool) {
	deadline, found := b.states[name]
	return deadline, found
}

// States returns the declared states in declaration order.
func (b *AtomicBase) States() []string {
	out := make([]string, len(b.stateOrder))
	copy(out, b.stateOrder)

	return out
}

// SetState moves the model into a state. The state is checked when the time
// advance is next computed.
func (b *AtomicBase) SetState(name string) {
	b.current = name
}

// State returns the current state.
func (b *AtomicBase) State() string {
	return b.current
}

// TimeAdvance returns the time advance of the current state.
func (b *AtomicBase) TimeAdvance() (timing.VTimeInSec, error) {
	deadline, found := b.states[b.current]
	if !found {
		return 0, fmt.Errorf("%w: model %s is in state %q",
			ErrUndeclaredState, b.Name(), b.current)
	}

	if deadline < 0 {
		return 0, fmt.Errorf("%w: model %s state %q has %v",
			ErrNegativeTimeAdvance, b.Name(), b.current, deadline)
	}

	return deadline, nil
}

// InsertExternalTransition declares that event moves the model from one
// state to another.
func (b *AtomicBase) InsertExternalTransition(from, event, to string) {
	if b.external == nil {
		b.external = make(map[transitionKey]string)
	}

	key := transitionKey{from: from, event: event}
	if _, found := b.external[key]; !found {
		b.externalOrder = append(b.externalOrder, key)
	}

	b.external[key] = to
}

// NextExternalState looks up the external transition table.
func (b *AtomicBase) NextExternalState(from, event string) (string, bool) {
	to, found := b.external[transitionKey{from: from, event: event}]
	return to, found
}

// InsertInternalTransition declares the state that follows another when its
// time advance expires.
func (b *AtomicBase) InsertInternalTransition(from, to string) {
	if b.internal == nil {
		b.internal = make(map[string]string)
	}

	if _, found := b.internal[from]; !found {
		b.internalOrder = append(b.internalOrder, from)
	}

	b.internal[from] = to
}

// NextInternalState looks up the internal transition table.
func (b *AtomicBase) NextInternalState(from string) (string, bool) {
	to, found := b.internal[from]
	return to, found
}

// ApplyExternalTransition moves the model along the external transition
// table. It returns false if no transition is declared.
func (b *AtomicBase) ApplyExternalTransition(event string) bool {
	to, found := b.NextExternalState(b.current, event)
	if found {
		b.current = to
	}

	return found
}

// ApplyInternalTransition moves the model along the internal transition
// table. It returns false if no transition is declared.
func (b *AtomicBase) ApplyInternalTransition() bool {
	to, found := b.NextInternalState(b.current)
	if found {
		b.current = to
	}

	return found
}

type stateDecl struct {
	Name     string `json:"name"`
	Deadline string `json:"deadline"`
}

type externalDecl struct {
	From  string `json:"from"`
	Event string `json:"event"`
	To    string `json:"to"`
}

type internalDecl struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type atomicState struct {
	Model    baseState      `json:"model"`
	States   []stateDecl    `json:"states"`
	Current  string         `json:"current"`
	External []externalDecl `json:"external_transitions"`
	Internal []internalDecl `json:"internal_transitions"`
}

const customStateKey = "state"

// SaveState serializes the base and, if given, the model's own state struct.
// Concrete models call it from their Serialize method.
func (b *AtomicBase) SaveState(custom any) (map[string]any, error) {
	s := atomicState{
		Model:   b.saveBase(),
		Current: b.current,
	}

	for _, name := range b.stateOrder {
		s.States = append(s.States, stateDecl{
			Name:     name,
			Deadline: timing.FormatTime(b.states[name]),
		})
	}

	for _, key := range b.externalOrder {
		s.External = append(s.External, externalDecl{
			From:  key.from,
			Event: key.event,
			To:    b.external[key],
		})
	}

	for _, from := range b.internalOrder {
		s.Internal = append(s.Internal, internalDecl{
			From: from,
			To:   b.internal[from],
		})
	}

	return saveWithCustom(s, custom)
}

// LoadState restores what SaveState wrote. Custom may be nil.
func (b *AtomicBase) LoadState(data map[string]any, custom any) error {
	s := atomicState{}

	err := serialization.Decode(data, &s)
	if err != nil {
		return err
	}

	b.loadBase(s.Model)

	b.states = nil
	b.stateOrder = nil
	b.external = nil
	b.externalOrder = nil
	b.internal = nil
	b.internalOrder = nil

	for _, decl := range s.States {
		deadline, err := timing.ParseTime(decl.Deadline)
		if err != nil {
			return fmt.Errorf("state %s: %w", decl.Name, err)
		}

		b.InsertState(decl.Name, deadline)
	}

	for _, decl := range s.External {
		b.InsertExternalTransition(decl.From, decl.Event, decl.To)
	}

	for _, decl := range s.Internal {
		b.InsertInternalTransition(decl.From, decl.To)
	}

	b.current = s.Current

	return loadCustom(data, custom)
}

// Serialize persists the base only. Models with their own fields override
// it and call SaveState.
func (b *AtomicBase) Serialize() (map[string]any, error) {
	return b.SaveState(nil)
}

// Deserialize restores the base only.
func (b *AtomicBase) Deserialize(data map[string]any) error {
	return b.LoadState(data, nil)
}

func saveWithCustom(base any, custom any) (map[string]any, error) {
	out, err := serialization.Encode(base)
	if err != nil {
		return nil, err
	}

	if custom == nil {
		return out, nil
	}

	c, err := serialization.Encode(custom)
	if err != nil {
		return nil, err
	}

	out[customStateKey] = c

	return out, nil
}

func loadCustom(data map[string]any, custom any) error {
	if custom == nil {
		return nil
	}

	raw, found := data[customStateKey]
	if !found {
		return fmt.Errorf("missing %q section", customStateKey)
	}

	return serialization.Decode(raw, custom)
}
