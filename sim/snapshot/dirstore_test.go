package snapshot

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/devskit/sim/model"
)

var _ = Describe("DirStore", func() {
	var (
		ctx   context.Context
		store *DirStore
	)

	bundle := func(name string) *Bundle {
		return &Bundle{
			Name:        name,
			Kernel:      "kernel",
			Time:        12.5,
			InputPorts:  []string{"in"},
			OutputPorts: []string{"out"},
			Models:      []string{"a", "b"},
			Relations: []Relation{{
				Src:  model.Endpoint{Model: "a", Port: "out"},
				Dsts: []model.Endpoint{{Model: "b", Port: "in"}},
			}},
			Blobs: map[string][]byte{
				"a": []byte(`{"type":"a"}`),
				"b": []byte(`{"type":"b"}`),
			},
		}
	}

	BeforeEach(func() {
		ctx = context.Background()

		var err error
		store, err = NewDirStore(GinkgoT().TempDir())
		Expect(err).NotTo(HaveOccurred())
	})

	It("should save a bundle in the snapshot layout", func() {
		Expect(store.SaveBundle(ctx, bundle("branch"))).To(Succeed())

		dir := filepath.Join(store.Root(), "branch")
		for _, f := range []string{
			"kernel.json", "relation_map.json", "model_map.json",
			"a.simx", "b.simx",
		} {
			Expect(filepath.Join(dir, f)).To(BeARegularFile())
		}
	})

	It("should load what it saved", func() {
		Expect(store.SaveBundle(ctx, bundle("branch"))).To(Succeed())

		b, err := store.LoadBundle(ctx, "branch")
		Expect(err).NotTo(HaveOccurred())
		Expect(b).To(Equal(bundle("branch")))
	})

	It("should replace a bundle with the same name", func() {
		Expect(store.SaveBundle(ctx, bundle("branch"))).To(Succeed())

		smaller := bundle("branch")
		smaller.Models = []string{"a"}
		smaller.Relations = nil
		delete(smaller.Blobs, "b")
		Expect(store.SaveBundle(ctx, smaller)).To(Succeed())

		b, err := store.LoadBundle(ctx, "branch")
		Expect(err).NotTo(HaveOccurred())
		Expect(b.Models).To(Equal([]string{"a"}))

		_, err = os.Stat(filepath.Join(store.Root(), "branch", "b.simx"))
		Expect(os.IsNotExist(err)).To(BeTrue())
	})

	It("should list bundles", func() {
		Expect(store.SaveBundle(ctx, bundle("t20"))).To(Succeed())
		Expect(store.SaveBundle(ctx, bundle("t10"))).To(Succeed())

		names, err := store.ListBundles(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(names).To(Equal([]string{"t10", "t20"}))
	})

	It("should report missing bundles", func() {
		_, err := store.LoadBundle(ctx, "nothing")
		Expect(errors.Is(err, ErrNotFound)).To(BeTrue())
	})

	It("should reject names that escape the root", func() {
		Expect(store.SaveBundle(ctx, bundle("../evil"))).NotTo(Succeed())
		Expect(store.SaveBundle(ctx, bundle("models"))).NotTo(Succeed())
	})

	It("should save and list per-model snapshots", func() {
		k1 := ModelKey{Point: PointAfterInternal, Model: "server"}
		k2 := ModelKey{Point: PointTimeCheck, Model: "queue"}

		Expect(store.SaveModel(ctx, k1, []byte("one"))).To(Succeed())
		Expect(store.SaveModel(ctx, k2, []byte("two"))).To(Succeed())
		Expect(store.SaveModel(ctx, k1, []byte("three"))).To(Succeed())

		blob, err := store.LoadModel(ctx, k1)
		Expect(err).NotTo(HaveOccurred())
		Expect(blob).To(Equal([]byte("three")))

		Expect(filepath.Join(store.Root(), "models", "[after_internal]server.simx")).
			To(BeARegularFile())

		keys, err := store.ListModels(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(keys).To(Equal([]ModelKey{k1, k2}))
	})

	It("should report missing per-model snapshots", func() {
		_, err := store.LoadModel(ctx, ModelKey{Point: PointTimeCheck, Model: "x"})
		Expect(errors.Is(err, ErrNotFound)).To(BeTrue())
	})
})
