package executor

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/devskit/sim/model"
	"github.com/sarchlab/devskit/sim/timing"
)

type decorated struct {
	Executor
}

func (d *decorated) Inner() Executor {
	return d.Executor
}

var _ = Describe("Request times", func() {
	var (
		s *rootScope
		e *CoupledExecutor
	)

	BeforeEach(func() {
		s = newRootScope()

		p, _, _ := newPipe("pipe", nil)

		var err error
		e, err = NewCoupledExecutor(p, 0, timing.Infinity, s)
		Expect(err).NotTo(HaveOccurred())
		Expect(e.Init(0)).To(Succeed())

		s.now = 2
		_, err = e.ExternalTransition("in", model.NewMessage("x", "y").Insert("job"))
		Expect(err).NotTo(HaveOccurred())
	})

	It("should list the request time of every nested executor", func() {
		times := RequestTimes(&decorated{Executor: e})

		Expect(times).To(HaveLen(2))
		Expect(times["pipe/first"]).To(Equal(3.0))
		Expect(timing.IsInfinite(times["pipe/second"])).To(BeTrue())
	})

	It("should resume from recorded times instead of the state", func() {
		times := RequestTimes(e)

		p, _, _ := newPipe("pipe", nil)
		resumed, err := NewCoupledExecutor(p, 0, timing.Infinity, s)
		Expect(err).NotTo(HaveOccurred())

		busy := resumed.Children()[0].Model().(*relay)
		busy.SetState("BUSY")

		s.now = 2.5
		Expect(Resume(resumed, s.now, times)).To(Succeed())

		Expect(resumed.RequestTime()).To(Equal(3.0))
		Expect(resumed.Children()[0].RequestTime()).To(Equal(3.0))
	})

	It("should keep computed times for executors without a record", func() {
		p, _, _ := newPipe("pipe", nil)
		resumed, err := NewCoupledExecutor(p, 0, timing.Infinity, s)
		Expect(err).NotTo(HaveOccurred())

		resumed.Children()[0].Model().(*relay).SetState("BUSY")

		Expect(Resume(resumed, 5, nil)).To(Succeed())
		Expect(resumed.RequestTime()).To(Equal(6.0))
	})
})
