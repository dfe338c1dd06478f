package doe

import (
	"context"

	"github.com/sarchlab/devskit/sim/kernel"
)

// RunUntil steps k until cond holds or nothing is left to simulate, then
// calls cond.OnTerminate.
func RunUntil(k *kernel.Kernel, cond Condition) error {
	return RunUntilContext(context.Background(), k, cond)
}

// RunUntilContext is RunUntil with cancellation checked between steps.
func RunUntilContext(
	ctx context.Context,
	k *kernel.Kernel,
	cond Condition,
) error {
	err := k.RunWhile(ctx, func() bool {
		return !cond.ShouldTerminate(k)
	})
	if err != nil {
		return err
	}

	cond.OnTerminate(k)

	return nil
}
