package model_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/devskit/sim/model"
)

var _ = Describe("CouplingTable", func() {
	var (
		t    *model.CouplingTable
		a, b model.Endpoint
		c, d model.Endpoint
	)

	BeforeEach(func() {
		t = model.NewCouplingTable()
		a = model.Endpoint{Model: "a", Port: "out"}
		b = model.Endpoint{Model: "b", Port: "in"}
		c = model.Endpoint{Model: "c", Port: "in"}
		d = model.Endpoint{Model: model.Boundary, Port: "out"}
	})

	It("should keep destinations in insertion order", func() {
		Expect(t.Add(a, c)).To(BeTrue())
		Expect(t.Add(a, b)).To(BeTrue())
		Expect(t.Add(a, b)).To(BeFalse())

		Expect(t.Destinations(a)).To(Equal([]model.Endpoint{c, b}))
		Expect(t.Len()).To(Equal(2))
	})

	It("should remove a single coupling", func() {
		t.Add(a, b)
		t.Add(a, c)

		Expect(t.Remove(a, b)).To(BeTrue())
		Expect(t.Remove(a, b)).To(BeFalse())
		Expect(t.Destinations(a)).To(Equal([]model.Endpoint{c}))

		Expect(t.Remove(a, c)).To(BeTrue())
		Expect(t.HasSource(a)).To(BeFalse())
	})

	It("should purge every coupling naming a model", func() {
		t.Add(a, b)
		t.Add(a, c)
		t.Add(b, d)
		t.Add(c, b)

		Expect(t.PurgeModel("b")).To(Equal(3))
		Expect(t.Entries()).To(Equal([]model.Coupling{{Src: a, Dst: c}}))
	})

	It("should list entries in insertion order", func() {
		t.Add(b, d)
		t.Add(a, c)

		Expect(t.Entries()).To(Equal([]model.Coupling{
			{Src: b, Dst: d},
			{Src: a, Dst: c},
		}))
		Expect(d.IsBoundary()).To(BeTrue())
	})

	It("should reset", func() {
		t.Add(a, b)
		t.Reset()

		Expect(t.Len()).To(Equal(0))
		Expect(t.Entries()).To(BeEmpty())
	})
})
