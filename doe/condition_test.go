package doe_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/sarchlab/devskit/doe"
	"github.com/sarchlab/devskit/examples/banksim"
	"github.com/sarchlab/devskit/sim/kernel"
	"github.com/sarchlab/devskit/sim/model"
)

type flag struct {
	hit        bool
	terminated int
}

func (f *flag) ShouldTerminate(*kernel.Kernel) bool { return f.hit }
func (f *flag) OnTerminate(*kernel.Kernel)          { f.terminated++ }

func quietBuilder() kernel.Builder {
	logger, _ := test.NewNullLogger()

	return kernel.MakeBuilder().
		WithLogger(logger).
		WithoutSignalHandler()
}

var _ = Describe("Conditions", func() {
	var k *kernel.Kernel

	BeforeEach(func() {
		k = quietBuilder().Build()
	})

	It("should reject a negative time limit", func() {
		_, err := doe.NewTimeBased(-1)
		Expect(err).To(HaveOccurred())
	})

	It("should stop at the time limit", func() {
		_, err := banksim.Build(k, banksim.DefaultConfig)
		Expect(err).NotTo(HaveOccurred())
		Expect(banksim.Start(k, 0)).To(Succeed())

		cond, err := doe.NewTimeBased(7)
		Expect(err).NotTo(HaveOccurred())

		Expect(doe.RunUntil(k, cond)).To(Succeed())
		Expect(k.Now()).To(Equal(7.0))
		Expect(k.IsTerminated()).To(BeFalse())
	})

	It("should stop when a model satisfies the predicate", func() {
		s, err := banksim.Build(k, banksim.DefaultConfig)
		Expect(err).NotTo(HaveOccurred())
		Expect(banksim.Start(k, 0)).To(Succeed())

		var seen []int
		cond, err := doe.NewModelPredicate(banksim.SinkName,
			func(m model.Model) bool {
				return len(m.(*banksim.Sink).Received()) >= 2
			})
		Expect(err).NotTo(HaveOccurred())
		cond.Then = func(m model.Model) {
			seen = m.(*banksim.Sink).Received()
		}

		Expect(doe.RunUntil(k, cond)).To(Succeed())
		Expect(k.Now()).To(Equal(5.0))
		Expect(seen).To(Equal([]int{0, 1}))
		Expect(s.Sink.Received()).To(Equal([]int{0, 1}))
	})

	It("should ignore predicates on unknown models", func() {
		cond, err := doe.NewModelPredicate("nobody",
			func(model.Model) bool { return true })
		Expect(err).NotTo(HaveOccurred())

		Expect(cond.ShouldTerminate(k)).To(BeFalse())
	})

	It("should stop when the simulation runs dry", func() {
		_, err := banksim.Build(k, banksim.Config{Period: 1, ServiceTime: 1, Limit: 2})
		Expect(err).NotTo(HaveOccurred())
		Expect(banksim.Start(k, 0)).To(Succeed())

		f := &flag{}
		Expect(doe.RunUntil(k, f)).To(Succeed())
		Expect(k.IsTerminated()).To(BeTrue())
		Expect(f.terminated).To(Equal(1))
	})

	It("should reject empty composites", func() {
		_, err := doe.NewOr()
		Expect(err).To(MatchError(doe.ErrNoConditions))

		_, err = doe.NewAnd(&flag{}, nil)
		Expect(err).To(HaveOccurred())
	})

	It("should combine conditions", func() {
		a, b := &flag{hit: true}, &flag{}

		or, err := doe.NewOr(a, b)
		Expect(err).NotTo(HaveOccurred())
		and, err := doe.NewAnd(a, b)
		Expect(err).NotTo(HaveOccurred())

		Expect(or.ShouldTerminate(k)).To(BeTrue())
		Expect(and.ShouldTerminate(k)).To(BeFalse())

		b.hit = true
		Expect(and.ShouldTerminate(k)).To(BeTrue())
		Expect(and.Mode.String()).To(Equal("AND"))
	})

	It("should only notify the conditions that hold", func() {
		a, b := &flag{hit: true}, &flag{}

		or, err := doe.NewOr(a, b)
		Expect(err).NotTo(HaveOccurred())

		or.OnTerminate(k)

		Expect(a.terminated).To(Equal(1))
		Expect(b.terminated).To(Equal(0))
	})
})
