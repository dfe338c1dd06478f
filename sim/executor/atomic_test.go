package executor

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/devskit/sim/model"
	"github.com/sarchlab/devskit/sim/timing"
)

var _ = Describe("AtomicExecutor", func() {
	var (
		r *relay
		e *AtomicExecutor
	)

	BeforeEach(func() {
		r = newRelay("r", 5, nil)
		e = NewAtomicExecutor(r, 0, timing.Infinity)
	})

	It("should expose the model", func() {
		Expect(e.ID()).To(Equal(r.ID()))
		Expect(e.Name()).To(Equal("r"))
		Expect(e.Model()).To(BeIdenticalTo(r))
		Expect(timing.IsInfinite(e.DestructionTime())).To(BeTrue())
	})

	It("should request infinity in a passive state", func() {
		Expect(e.Init(0)).To(Succeed())
		Expect(timing.IsInfinite(e.RequestTime())).To(BeTrue())
	})

	It("should recompute from now", func() {
		Expect(e.Init(0)).To(Succeed())

		rs, err := e.ExternalTransition("in", model.NewMessage("x", "out"))
		Expect(err).NotTo(HaveOccurred())
		Expect(e.UpdateRequestTime(3, rs)).To(Succeed())

		Expect(e.RequestTime()).To(Equal(8.0))
	})

	It("should keep the earlier of pending and fresh", func() {
		r.onExternal = model.KeepEarlier
		r.SetState("BUSY")
		Expect(e.Init(0)).To(Succeed())
		Expect(e.RequestTime()).To(Equal(5.0))

		rs, _ := e.ExternalTransition("in", model.NewMessage("x", "out"))
		Expect(e.UpdateRequestTime(2, rs)).To(Succeed())
		Expect(e.RequestTime()).To(Equal(5.0))

		r.UpdateState("BUSY", 1)
		rs, _ = e.ExternalTransition("in", model.NewMessage("x", "out"))
		Expect(e.UpdateRequestTime(3, rs)).To(Succeed())
		Expect(e.RequestTime()).To(Equal(4.0))
	})

	It("should keep the pending time on NoChange", func() {
		r.onExternal = model.NoChange
		r.SetState("BUSY")
		Expect(e.Init(1)).To(Succeed())

		rs, _ := e.ExternalTransition("in", model.NewMessage("x", "out"))
		Expect(e.UpdateRequestTime(4, rs)).To(Succeed())

		Expect(e.RequestTime()).To(Equal(6.0))
	})

	It("should fail on negative time advance", func() {
		r.UpdateState("IDLE", -2)

		Expect(e.Init(0)).To(MatchError(model.ErrNegativeTimeAdvance))
	})

	It("should fail on undeclared state", func() {
		r.SetState("LOST")

		Expect(e.Init(0)).To(MatchError(model.ErrUndeclaredState))
	})

	It("should run output then internal transition", func() {
		r.SetState("BUSY")
		r.held = []any{"job"}

		msgs, err := e.Output()
		Expect(err).NotTo(HaveOccurred())
		Expect(msgs).To(HaveLen(1))
		Expect(msgs[0].Retrieve()).To(Equal([]any{"job"}))

		Expect(e.InternalTransition()).To(Succeed())
		Expect(r.State()).To(Equal("IDLE"))
	})
})

var _ = Describe("DefaultFactory", func() {
	It("should dispatch on kind", func() {
		s := newRootScope()
		f := DefaultFactory{}

		a, err := f.CreateExecutor(newRelay("a", 1, nil), 0, timing.Infinity, s)
		Expect(err).NotTo(HaveOccurred())
		Expect(a).To(BeAssignableToTypeOf(&AtomicExecutor{}))

		p, _, _ := newPipe("p", nil)
		c, err := f.CreateExecutor(p, 0, timing.Infinity, s)
		Expect(err).NotTo(HaveOccurred())
		Expect(c).To(BeAssignableToTypeOf(&CoupledExecutor{}))
		Expect(c.(*CoupledExecutor).Children()).To(HaveLen(2))
	})
})
