package doe

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/devskit/sim/id"
	"github.com/sarchlab/devskit/sim/kernel"
)

// Data is what one replication reports.
type Data map[string]any

// Results collects the outcome of an experiment.
type Results struct {
	Replications int            `json:"replications"`
	Data         []Data         `json:"data"`
	Aggregate    map[string]any `json:"aggregate,omitempty"`
}

// An Experiment runs the same simulation several times. Every replication
// gets a fresh kernel, and identities restart from zero so that runs with
// the same setup replay exactly.
type Experiment struct {
	Replications int
	Condition    Condition
	Builder      kernel.Builder

	// Setup registers and couples the models of replication rep.
	Setup func(k *kernel.Kernel, rep int) error

	// Collect extracts data from a finished replication.
	Collect func(k *kernel.Kernel, rep int) (Data, error)

	// Aggregate combines the data of all replications. When nil, the
	// results carry only the raw data.
	Aggregate func(data []Data) (map[string]any, error)

	Logger logrus.FieldLogger
}

// NewExperiment creates an experiment with a default kernel builder. The
// signal handler is left out since the experiment owns the kernels.
func NewExperiment(replications int, cond Condition) *Experiment {
	return &Experiment{
		Replications: replications,
		Condition:    cond,
		Builder:      kernel.MakeBuilder().WithoutSignalHandler(),
		Logger:       logrus.StandardLogger(),
	}
}

func (e *Experiment) validate() error {
	if e.Replications < 1 {
		return fmt.Errorf("replications must be at least 1, got %d",
			e.Replications)
	}

	if e.Condition == nil {
		return errors.New("experiment has no termination condition")
	}

	if e.Setup == nil {
		return errors.New("experiment has no setup")
	}

	if e.Collect == nil {
		return errors.New("experiment has no data collection")
	}

	return nil
}

// Run runs every replication and aggregates the results.
func (e *Experiment) Run() (*Results, error) {
	return e.RunContext(context.Background())
}

// RunContext is Run with cancellation checked between steps.
func (e *Experiment) RunContext(ctx context.Context) (*Results, error) {
	err := e.validate()
	if err != nil {
		return nil, err
	}

	logger := e.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	logger.WithField("replications", e.Replications).Info("experiment started")

	results := &Results{Replications: e.Replications}

	for rep := 0; rep < e.Replications; rep++ {
		data, err := e.runOne(ctx, rep)
		if err != nil {
			return nil, fmt.Errorf("replication %d: %w", rep, err)
		}

		results.Data = append(results.Data, data)

		logger.WithField("replication", rep).Info("replication complete")
	}

	if e.Aggregate != nil {
		results.Aggregate, err = e.Aggregate(results.Data)
		if err != nil {
			return nil, fmt.Errorf("aggregate: %w", err)
		}
	}

	return results, nil
}

func (e *Experiment) runOne(ctx context.Context, rep int) (Data, error) {
	id.Reset()

	k := e.Builder.WithName(fmt.Sprintf("doe_run_%d", rep)).Build()
	defer k.Stop()

	err := e.Setup(k, rep)
	if err != nil {
		return nil, err
	}

	err = RunUntilContext(ctx, k, e.Condition)
	if err != nil {
		return nil, err
	}

	return e.Collect(k, rep)
}
