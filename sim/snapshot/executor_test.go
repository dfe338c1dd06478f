package snapshot

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/devskit/sim/executor"
	"github.com/sarchlab/devskit/sim/model"
	"github.com/sarchlab/devskit/sim/serialization"
	"github.com/sarchlab/devskit/sim/timing"
)

var _ = Describe("Executor", func() {
	var (
		mockCtrl *gomock.Controller
		store    *MockStore
		c        *counter
		inner    *executor.AtomicExecutor
	)

	decorate := func(cond Condition) *Executor {
		return NewExecutor(context.Background(), inner, cond, store, quietLogger())
	}

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		store = NewMockStore(mockCtrl)
		c = newCounter("c")
		inner = executor.NewAtomicExecutor(c, 0, timing.Infinity)
		Expect(inner.Init(0)).To(Succeed())
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should not save when the condition never asks", func() {
		e := decorate(ConditionBase{})

		_, err := e.ExternalTransition("in", model.NewMessage("x", "out"))
		Expect(err).NotTo(HaveOccurred())
		_, err = e.Output()
		Expect(err).NotTo(HaveOccurred())
		Expect(e.InternalTransition()).To(Succeed())
		e.CheckTime(1)

		Expect(e.Saves()).To(Equal(0))
	})

	It("should save the model after an external transition", func() {
		e := decorate(ConditionFuncs{
			AfterExternalFunc: func(model.Model, string, *model.Message) bool {
				return true
			},
		})

		store.EXPECT().
			SaveModel(gomock.Any(),
				ModelKey{Point: PointAfterExternal, Model: "c"},
				gomock.Any()).
			DoAndReturn(func(_ context.Context, _ ModelKey, blob []byte) error {
				saved := newCounter("other")
				Expect(serialization.UnmarshalInto(blob, saved)).To(Succeed())
				Expect(saved.Name()).To(Equal("c"))
				Expect(saved.state.Received).To(Equal(1))
				Expect(saved.State()).To(Equal("BUSY"))

				return nil
			})

		r, err := e.ExternalTransition("in", model.NewMessage("x", "out"))
		Expect(err).NotTo(HaveOccurred())
		Expect(r).To(Equal(model.Recompute))
		Expect(e.Saves()).To(Equal(1))
	})

	It("should save before the internal transition", func() {
		e := decorate(ConditionFuncs{
			BeforeInternalFunc: func(m model.Model) bool {
				return m.(*counter).State() == "BUSY"
			},
		})
		c.SetState("BUSY")

		store.EXPECT().
			SaveModel(gomock.Any(),
				ModelKey{Point: PointBeforeInternal, Model: "c"},
				gomock.Any()).
			Return(nil)

		Expect(e.InternalTransition()).To(Succeed())
		Expect(c.State()).To(Equal("IDLE"))
	})

	It("should fail the transition when the save fails", func() {
		e := decorate(ConditionFuncs{
			BeforeOutputFunc: func(model.Model) bool { return true },
		})

		store.EXPECT().
			SaveModel(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(errors.New("disk full"))

		_, err := e.Output()
		Expect(err).To(MatchError(ContainSubstring("disk full")))
	})

	It("should save once at a point in time", func() {
		e := decorate(AtTime(3))

		store.EXPECT().
			SaveModel(gomock.Any(),
				ModelKey{Point: PointTimeCheck, Model: "c"},
				gomock.Any()).
			Return(nil).
			Times(1)

		for now := timing.VTimeInSec(0); now < 6; now++ {
			e.CheckTime(now)
		}

		Expect(e.Saves()).To(Equal(1))
	})

	It("should keep the identity of the decorated executor", func() {
		e := decorate(ConditionBase{})

		Expect(e.ID()).To(Equal(inner.ID()))
		Expect(e.Inner()).To(BeIdenticalTo(inner))
		Expect(e.RequestTime()).To(Equal(inner.RequestTime()))
	})
})

var _ = Describe("Factory", func() {
	It("should decorate watched models at any depth", func() {
		ctx := context.Background()
		store, err := NewDirStore(GinkgoT().TempDir())
		Expect(err).NotTo(HaveOccurred())

		f := NewFactory(ctx, nil, store, quietLogger())
		f.Watch("c", ConditionFuncs{
			AfterOutputFunc: func(model.Model, []*model.Message) bool {
				return true
			},
		})

		k := quietBuilder().WithFactory(f).Build()
		wire(k)
		Expect(k.InsertExternalEvent("in", "x", 0)).To(Succeed())
		Expect(k.Simulate(10)).To(Succeed())

		keys, err := store.ListModels(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(keys).To(Equal([]ModelKey{{Point: PointAfterOutput, Model: "c"}}))

		manager := NewManager(store, quietLogger())

		m, err := manager.LoadModel(ctx, keys[0], "c2")
		Expect(err).NotTo(HaveOccurred())
		Expect(m.Name()).To(Equal("c2"))
		Expect(m.(*counter).state.Received).To(Equal(1))

		target := newCounter("c")
		Expect(manager.LoadModelInto(ctx, keys[0], target)).To(Succeed())
		Expect(target.State()).To(Equal("BUSY"))
	})
})
