package snapshot

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/devskit/sim/model"
)

var _ = Describe("Bundle", func() {
	ep := func(m, p string) model.Endpoint {
		return model.Endpoint{Model: m, Port: p}
	}

	It("should group couplings by source", func() {
		couplings := []model.Coupling{
			{Src: ep("a", "out"), Dst: ep("b", "in")},
			{Src: ep("", "in"), Dst: ep("a", "in")},
			{Src: ep("a", "out"), Dst: ep("c", "in")},
		}

		relations := RelationsOf(couplings)

		Expect(relations).To(Equal([]Relation{
			{Src: ep("a", "out"), Dsts: []model.Endpoint{ep("b", "in"), ep("c", "in")}},
			{Src: ep("", "in"), Dsts: []model.Endpoint{ep("a", "in")}},
		}))
		Expect(Couplings(relations)).To(ConsistOf(couplings))
	})

	It("should accept relations among listed models and the boundary", func() {
		b := &Bundle{
			Name:   "s",
			Models: []string{"a", "b"},
			Blobs:  map[string][]byte{"a": {}, "b": {}},
			Relations: []Relation{
				{Src: ep("", "in"), Dsts: []model.Endpoint{ep("a", "in")}},
				{Src: ep("a", "out"), Dsts: []model.Endpoint{ep("b", "in")}},
			},
		}

		Expect(b.Validate()).To(Succeed())
	})

	It("should reject relations naming unlisted models", func() {
		b := &Bundle{
			Name:   "s",
			Models: []string{"a"},
			Blobs:  map[string][]byte{"a": {}},
			Relations: []Relation{
				{Src: ep("a", "out"), Dsts: []model.Endpoint{ep("ghost", "in")}},
			},
		}

		err := b.Validate()
		Expect(errors.Is(err, model.ErrUnknownModel)).To(BeTrue())
	})

	It("should reject models without a blob", func() {
		b := &Bundle{Name: "s", Models: []string{"a"}}

		Expect(b.Validate()).NotTo(Succeed())
	})

	It("should reject models listed twice", func() {
		b := &Bundle{
			Name:   "s",
			Models: []string{"a", "a"},
			Blobs:  map[string][]byte{"a": {}},
		}

		Expect(b.Validate()).NotTo(Succeed())
	})
})

var _ = Describe("ModelKey", func() {
	It("should print and parse", func() {
		key := ModelKey{Point: PointAfterOutput, Model: "server"}

		Expect(key.String()).To(Equal("[after_output]server"))

		parsed, err := ParseModelKey(key.String())
		Expect(err).NotTo(HaveOccurred())
		Expect(parsed).To(Equal(key))
	})

	It("should reject malformed keys", func() {
		for _, s := range []string{"", "server", "[after_output", "[after_output]"} {
			_, err := ParseModelKey(s)
			Expect(err).To(HaveOccurred(), s)
		}
	})
})
