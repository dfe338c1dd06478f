package kernel

import "github.com/sarchlab/devskit/sim/hooking"

// Hook positions triggered by the kernel.
var (
	// HookPosBeforeInternal triggers before the output and internal
	// transition of a due executor. The item is the executor.
	HookPosBeforeInternal = &hooking.HookPos{Name: "BeforeInternal"}

	// HookPosAfterInternal triggers after a due executor was rescheduled.
	HookPosAfterInternal = &hooking.HookPos{Name: "AfterInternal"}

	// HookPosBeforeExternal triggers before a message is delivered to an
	// executor. The item is an executor.RouteEvent.
	HookPosBeforeExternal = &hooking.HookPos{Name: "BeforeExternal"}

	// HookPosMsgRouted triggers for every routing decision, in any scope.
	// The item is an executor.RouteEvent.
	HookPosMsgRouted = &hooking.HookPos{Name: "MsgRouted"}

	// HookPosUncaught triggers when the catch-all sink absorbs a message.
	// The item is the message.
	HookPosUncaught = &hooking.HookPos{Name: "Uncaught"}

	// HookPosBoundaryOutput triggers when a message leaves the simulation
	// through a kernel output port. The item is an OutputEvent.
	HookPosBoundaryOutput = &hooking.HookPos{Name: "BoundaryOutput"}

	// HookPosAfterStep triggers at the end of every quantum. The item is
	// the new time.
	HookPosAfterStep = &hooking.HookPos{Name: "AfterStep"}
)
