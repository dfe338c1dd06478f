package cli

import (
	"context"
	"fmt"

	"github.com/sarchlab/devskit/examples/banksim"
	"github.com/sarchlab/devskit/sim/timing"
)

// RestoreOptions configures a run that branches from a snapshot.
type RestoreOptions struct {
	Name  string
	Until timing.VTimeInSec

	// Restart sends a new start signal to the generator after StartDelay.
	Restart    bool
	StartDelay timing.VTimeInSec
}

// Restore rebuilds the kernel saved under a snapshot name and simulates it
// further.
func (s *Session) Restore(
	ctx context.Context,
	opts RestoreOptions,
) (*Report, error) {
	if opts.Name == "" {
		return nil, fmt.Errorf("snapshot name is required")
	}

	manager, closer, err := s.manager()
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	k, err := manager.Restore(ctx, opts.Name, s.builder())
	if err != nil {
		return nil, err
	}

	sc, err := banksim.Attach(k)
	if err != nil {
		return nil, err
	}

	if opts.Restart {
		err = banksim.Start(k, opts.StartDelay)
		if err != nil {
			return nil, err
		}
	}

	err = s.attach(k, opts.Until)
	if err != nil {
		return nil, err
	}

	err = k.SimulateContext(ctx, opts.Until)
	if err != nil {
		return nil, err
	}

	r := report(k, sc)
	r.Snapshot = opts.Name

	return r, nil
}

// Snapshots lists the names of the saved snapshots.
func (s *Session) Snapshots(ctx context.Context) ([]string, error) {
	manager, closer, err := s.manager()
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	return manager.Store().ListBundles(ctx)
}
