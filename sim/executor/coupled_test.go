package executor

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/devskit/sim/model"
	"github.com/sarchlab/devskit/sim/timing"
)

var _ = Describe("CoupledExecutor", func() {
	var (
		s             *rootScope
		p             *pipe
		first, second *relay
		e             *CoupledExecutor
		fired         []string
	)

	BeforeEach(func() {
		fired = nil
		s = newRootScope()
		p, first, second = newPipe("pipe", &fired)

		var err error
		e, err = NewCoupledExecutor(p, 0, timing.Infinity, s)
		Expect(err).NotTo(HaveOccurred())
		s.members["pipe"] = e

		Expect(e.Init(0)).To(Succeed())
	})

	It("should be passive when every child is passive", func() {
		Expect(timing.IsInfinite(e.RequestTime())).To(BeTrue())

		ta, err := e.TimeAdvance()
		Expect(err).NotTo(HaveOccurred())
		Expect(timing.IsInfinite(ta)).To(BeTrue())
	})

	It("should route input inward and take the earliest child time", func() {
		s.now = 2

		_, err := e.ExternalTransition("in", model.NewMessage("x", "y").Insert("job"))
		Expect(err).NotTo(HaveOccurred())

		Expect(first.State()).To(Equal("BUSY"))
		Expect(e.RequestTime()).To(Equal(3.0))

		ta, _ := e.TimeAdvance()
		Expect(ta).To(Equal(1.0))
	})

	It("should pass messages between children and out of the boundary", func() {
		_, err := e.ExternalTransition("in", model.NewMessage("x", "y").Insert("job"))
		Expect(err).NotTo(HaveOccurred())

		s.now = 1
		out, err := e.Output()
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(BeEmpty())
		Expect(second.State()).To(Equal("BUSY"))
		Expect(e.InternalTransition()).To(Succeed())
		Expect(first.State()).To(Equal("IDLE"))
		Expect(e.RequestTime()).To(Equal(3.0))

		s.now = 3
		out, err = e.Output()
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(HaveLen(1))
		Expect(out[0].Src).To(Equal("pipe"))
		Expect(out[0].Port).To(Equal("out"))
		Expect(out[0].Retrieve()).To(Equal([]any{"job"}))
		Expect(e.InternalTransition()).To(Succeed())

		Expect(fired).To(Equal([]string{"first", "second"}))
		Expect(timing.IsInfinite(e.RequestTime())).To(BeTrue())
	})

	It("should pass through input coupled straight to output", func() {
		Expect(p.Couple("pipe", "in", "pipe", "out")).To(Succeed())
		s.couplings.Add(
			model.Endpoint{Model: "pipe", Port: "out"},
			model.Endpoint{Model: model.Boundary, Port: "sink"},
		)

		_, err := e.ExternalTransition("in", model.NewMessage("x", "y").Insert(7))
		Expect(err).NotTo(HaveOccurred())

		Expect(s.boundary).To(HaveLen(1))
		Expect(s.boundary[0].Src).To(Equal("root"))
		Expect(s.boundary[0].Port).To(Equal("sink"))
	})

	It("should qualify uncaught messages with its name", func() {
		Expect(p.Decouple("second", "out", "pipe", "out")).To(BeTrue())
		second.SetState("BUSY")
		child := e.children["second"]
		Expect(child.UpdateRequestTime(0, model.Recompute)).To(Succeed())
		e.Reschedule(child)

		s.now = 2
		_, err := e.Output()
		Expect(err).NotTo(HaveOccurred())

		Expect(s.uncaught).To(HaveLen(1))
		Expect(s.uncaught[0].Src).To(Equal("pipe/second"))
	})

	It("should forward quantum notifications", func() {
		Expect(func() { e.CheckTime(1) }).NotTo(Panic())
	})
})
