package cli

import (
	"context"
	"fmt"

	"github.com/sarchlab/devskit/examples/banksim"
	"github.com/sarchlab/devskit/sim/timing"
)

// RunOptions configures a fresh run of the bank scenario.
type RunOptions struct {
	Scenario   banksim.Config
	StartDelay timing.VTimeInSec
	Until      timing.VTimeInSec

	// SnapshotAt, when not negative, saves a snapshot once the clock
	// reaches it.
	SnapshotAt   timing.VTimeInSec
	SnapshotName string
}

// Run builds the bank scenario, simulates it and reports the outcome.
func (s *Session) Run(ctx context.Context, opts RunOptions) (*Report, error) {
	if opts.Until < 0 {
		return nil, fmt.Errorf("simulation length %v is negative", opts.Until)
	}

	k := s.builder().Build()

	sc, err := banksim.Build(k, opts.Scenario)
	if err != nil {
		return nil, err
	}

	err = banksim.Start(k, opts.StartDelay)
	if err != nil {
		return nil, err
	}

	err = s.attach(k, opts.Until)
	if err != nil {
		return nil, err
	}

	snapshotName := ""
	end := k.Now() + opts.Until

	if opts.SnapshotAt >= 0 && opts.SnapshotAt <= opts.Until {
		err = k.SimulateContext(ctx, opts.SnapshotAt)
		if err != nil {
			return nil, err
		}

		manager, closer, err := s.manager()
		if err != nil {
			return nil, err
		}
		defer closer.Close()

		b, err := manager.SnapshotSimulation(ctx, k, opts.SnapshotName)
		if err != nil {
			return nil, err
		}

		snapshotName = b.Name
	}

	err = k.SimulateContext(ctx, end-k.Now())
	if err != nil {
		return nil, err
	}

	r := report(k, sc)
	r.Snapshot = snapshotName

	return r, nil
}
