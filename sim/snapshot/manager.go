package snapshot

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/devskit/sim/executor"
	"github.com/sarchlab/devskit/sim/id"
	"github.com/sarchlab/devskit/sim/kernel"
	"github.com/sarchlab/devskit/sim/model"
	"github.com/sarchlab/devskit/sim/serialization"
	"github.com/sarchlab/devskit/sim/timing"
)

// A Manager takes whole-simulation snapshots and restores them into fresh
// kernels.
type Manager struct {
	store  Store
	logger logrus.FieldLogger
}

// NewManager creates a manager backed by store.
func NewManager(store Store, logger logrus.FieldLogger) *Manager {
	return &Manager{store: store, logger: logger}
}

// Store returns the store the manager writes into.
func (m *Manager) Store() Store {
	return m.store
}

// SnapshotSimulation saves the active models of k, the couplings among them,
// and the kernel ports. Models still waiting for their creation time are
// left out. An empty name is replaced by a fresh run id.
func (m *Manager) SnapshotSimulation(
	ctx context.Context,
	k *kernel.Kernel,
	name string,
) (*Bundle, error) {
	if name == "" {
		name = id.NewRunID()
	}

	b, err := Capture(k, name)
	if err != nil {
		return nil, err
	}

	for _, w := range k.Models() {
		if _, included := b.Blobs[w.Name()]; !included {
			m.logger.WithFields(logrus.Fields{
				"snapshot": name,
				"model":    w.Name(),
			}).Warn("waiting model left out of snapshot")
		}
	}

	err = m.store.SaveBundle(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("saving snapshot %s: %w", name, err)
	}

	m.logger.WithFields(logrus.Fields{
		"snapshot": name,
		"time":     b.Time,
		"models":   len(b.Models),
	}).Info("simulation snapshot saved")

	return b, nil
}

// Capture builds the bundle of a kernel without saving it.
func Capture(k *kernel.Kernel, name string) (*Bundle, error) {
	inputs, outputs := k.BoundaryPorts()

	b := &Bundle{
		Name:        name,
		Kernel:      k.Name(),
		Time:        k.Now(),
		InputPorts:  inputs,
		OutputPorts: outputs,
		Blobs:       make(map[string][]byte),
	}

	for _, mdl := range k.ActiveModels() {
		rec, err := model.ToRecord(mdl)
		if err != nil {
			return nil, err
		}

		if e, found := k.GetEntity(mdl.Name()); found {
			annotateSchedule(rec, e)
		}

		blob, err := serialization.MarshalRecord(rec)
		if err != nil {
			return nil, err
		}

		b.Models = append(b.Models, mdl.Name())
		b.Blobs[mdl.Name()] = blob
	}

	var kept []model.Coupling

	for _, c := range k.Relations() {
		if included(b, c.Src) && included(b, c.Dst) {
			kept = append(kept, c)
		}
	}

	b.Relations = RelationsOf(kept)

	return b, nil
}

const (
	destructionNote = "destruction"
	requestNote     = "request:"
)

// annotateSchedule records when the executors of a model next act and when
// the model is destroyed, so that a restored model continues its current
// state instead of starting it over.
func annotateSchedule(rec *serialization.Record, e executor.Executor) {
	rec.Annotate(destructionNote, timing.FormatTime(e.DestructionTime()))

	for path, t := range executor.RequestTimes(e) {
		rec.Annotate(requestNote+path, timing.FormatTime(t))
	}
}

func scheduleOf(
	rec *serialization.Record,
) (timing.VTimeInSec, map[string]timing.VTimeInSec, error) {
	destruction := timing.Infinity
	times := make(map[string]timing.VTimeInSec)

	for key, value := range rec.Annotations {
		t, err := timing.ParseTime(value)
		if err != nil {
			return 0, nil, fmt.Errorf("annotation %s: %w", key, err)
		}

		switch {
		case key == destructionNote:
			destruction = t
		case strings.HasPrefix(key, requestNote):
			times[strings.TrimPrefix(key, requestNote)] = t
		}
	}

	return destruction, times, nil
}

func included(b *Bundle, e model.Endpoint) bool {
	if e.IsBoundary() {
		return true
	}

	_, found := b.Blobs[e.Model]

	return found
}

// Restore loads a snapshot into a new kernel built by builder. The clock
// starts at the snapshot time and every model becomes active at once. Each
// executor keeps the request time it had when the snapshot was taken, and
// each model keeps its destruction time.
func (m *Manager) Restore(
	ctx context.Context,
	name string,
	builder kernel.Builder,
) (*kernel.Kernel, error) {
	b, err := m.store.LoadBundle(ctx, name)
	if err != nil {
		return nil, err
	}

	k, err := Rebuild(b, builder)
	if err != nil {
		return nil, err
	}

	m.logger.WithFields(logrus.Fields{
		"snapshot": name,
		"time":     b.Time,
		"models":   len(b.Models),
	}).Info("simulation restored")

	return k, nil
}

// Rebuild turns a bundle into a new kernel.
func Rebuild(b *Bundle, builder kernel.Builder) (*kernel.Kernel, error) {
	err := b.Validate()
	if err != nil {
		return nil, err
	}

	if b.Kernel != "" {
		builder = builder.WithName(b.Kernel)
	}

	k := builder.WithStartTime(b.Time).Build()

	for _, p := range b.InputPorts {
		k.InsertInputPort(p)
	}

	for _, p := range b.OutputPorts {
		k.InsertOutputPort(p)
	}

	for _, name := range b.Models {
		err = restoreModel(k, b, name)
		if err != nil {
			return nil, err
		}
	}

	for _, c := range Couplings(b.Relations) {
		err = k.CouplingRelation(c.Src.Model, c.Src.Port, c.Dst.Model, c.Dst.Port)
		if err != nil {
			return nil, err
		}
	}

	return k, nil
}

func restoreModel(k *kernel.Kernel, b *Bundle, name string) error {
	rec, err := serialization.UnmarshalRecord(b.Blobs[name])
	if err != nil {
		return fmt.Errorf("model %s of snapshot %s: %w", name, b.Name, err)
	}

	mdl, err := model.FromRecord(rec)
	if err != nil {
		return fmt.Errorf("model %s of snapshot %s: %w", name, b.Name, err)
	}

	if mdl.Name() != name {
		return fmt.Errorf("%w: blob %s holds model %s",
			serialization.ErrKindMismatch, name, mdl.Name())
	}

	destruction, times, err := scheduleOf(rec)
	if err != nil {
		return fmt.Errorf("model %s of snapshot %s: %w", name, b.Name, err)
	}

	return k.ResumeEntity(mdl, b.Time, destruction, times)
}

// LoadModel reads a per-model snapshot. A non-empty rename gives the model a
// new name, so it can join a kernel that still holds the original.
func (m *Manager) LoadModel(
	ctx context.Context,
	key ModelKey,
	rename string,
) (model.Model, error) {
	blob, err := m.store.LoadModel(ctx, key)
	if err != nil {
		return nil, err
	}

	rec, err := serialization.UnmarshalRecord(blob)
	if err != nil {
		return nil, err
	}

	if rename != "" {
		err = model.RenameRecord(rec, rename)
		if err != nil {
			return nil, err
		}
	}

	return model.FromRecord(rec)
}

// LoadModelInto reads a per-model snapshot into an existing model of the same
// type.
func (m *Manager) LoadModelInto(
	ctx context.Context,
	key ModelKey,
	target model.Model,
) error {
	blob, err := m.store.LoadModel(ctx, key)
	if err != nil {
		return err
	}

	return serialization.UnmarshalInto(blob, target)
}
