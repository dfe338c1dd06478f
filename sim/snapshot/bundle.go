// Package snapshot persists models and whole simulations and brings them
// back as live, resumable kernels.
package snapshot

import (
	"errors"
	"fmt"
	"sort"

	"github.com/sarchlab/devskit/sim/model"
	"github.com/sarchlab/devskit/sim/timing"
)

// ErrNotFound is returned when a store has no snapshot under a key.
var ErrNotFound = errors.New("snapshot not found")

// A Relation lists every destination of one source port.
type Relation struct {
	Src  model.Endpoint   `json:"src"`
	Dsts []model.Endpoint `json:"dsts"`
}

// RelationsOf groups couplings by source, keeping the order in which each
// source first appears.
func RelationsOf(couplings []model.Coupling) []Relation {
	var relations []Relation

	index := make(map[model.Endpoint]int)
	for _, c := range couplings {
		i, found := index[c.Src]
		if !found {
			i = len(relations)
			index[c.Src] = i
			relations = append(relations, Relation{Src: c.Src})
		}

		relations[i].Dsts = append(relations[i].Dsts, c.Dst)
	}

	return relations
}

// Couplings flattens relations back into couplings.
func Couplings(relations []Relation) []model.Coupling {
	var couplings []model.Coupling

	for _, r := range relations {
		for _, dst := range r.Dsts {
			couplings = append(couplings, model.Coupling{Src: r.Src, Dst: dst})
		}
	}

	return couplings
}

// A Bundle is the persisted form of a whole simulation: the kernel ports,
// the included models, the couplings among them, and one blob per model.
type Bundle struct {
	Name        string            `json:"name"`
	Kernel      string            `json:"kernel"`
	Time        timing.VTimeInSec `json:"time"`
	InputPorts  []string          `json:"input_ports"`
	OutputPorts []string          `json:"output_ports"`
	Models      []string          `json:"-"`
	Relations   []Relation        `json:"-"`
	Blobs       map[string][]byte `json:"-"`
}

// Validate checks that the relations only name listed models or the
// boundary, and that every listed model has a blob.
func (b *Bundle) Validate() error {
	listed := make(map[string]bool, len(b.Models))
	for _, name := range b.Models {
		if listed[name] {
			return fmt.Errorf("snapshot %s lists model %s twice", b.Name, name)
		}

		listed[name] = true

		if _, found := b.Blobs[name]; !found {
			return fmt.Errorf("snapshot %s has no blob for model %s",
				b.Name, name)
		}
	}

	for _, r := range b.Relations {
		endpoints := append([]model.Endpoint{r.Src}, r.Dsts...)
		for _, e := range endpoints {
			if !e.IsBoundary() && !listed[e.Model] {
				return fmt.Errorf("%w: relation %s of snapshot %s names %s",
					model.ErrUnknownModel, r.Src, b.Name, e.Model)
			}
		}
	}

	return nil
}

// A ModelKey identifies a per-model snapshot: the model name and the hook
// point that triggered the save.
type ModelKey struct {
	Point Point  `json:"point"`
	Model string `json:"model"`
}

func (k ModelKey) String() string {
	return "[" + string(k.Point) + "]" + k.Model
}

// ParseModelKey reads a key written by ModelKey.String.
func ParseModelKey(s string) (ModelKey, error) {
	if len(s) < 2 || s[0] != '[' {
		return ModelKey{}, fmt.Errorf("malformed model key %q", s)
	}

	for i := 1; i < len(s); i++ {
		if s[i] == ']' {
			if i == len(s)-1 {
				return ModelKey{}, fmt.Errorf("model key %q has no model", s)
			}

			return ModelKey{Point: Point(s[1:i]), Model: s[i+1:]}, nil
		}
	}

	return ModelKey{}, fmt.Errorf("malformed model key %q", s)
}

func sortKeys(keys []ModelKey) {
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].String() < keys[j].String()
	})
}
