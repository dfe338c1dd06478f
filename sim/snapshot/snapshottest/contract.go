// Package snapshottest checks that snapshot stores behave alike.
package snapshottest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sarchlab/devskit/sim/model"
	"github.com/sarchlab/devskit/sim/snapshot"
)

// SampleBundle returns a small bundle with two models.
func SampleBundle(name string) *snapshot.Bundle {
	return &snapshot.Bundle{
		Name:        name,
		Kernel:      "kernel",
		Time:        42,
		InputPorts:  []string{"in"},
		OutputPorts: []string{"out"},
		Models:      []string{"gen", "sink"},
		Relations: []snapshot.Relation{
			{
				Src:  model.Endpoint{Model: model.Boundary, Port: "in"},
				Dsts: []model.Endpoint{{Model: "gen", Port: "in"}},
			},
			{
				Src:  model.Endpoint{Model: "gen", Port: "out"},
				Dsts: []model.Endpoint{{Model: "sink", Port: "in"}},
			},
		},
		Blobs: map[string][]byte{
			"gen":  []byte(`{"type":"gen","state":{}}`),
			"sink": []byte(`{"type":"sink","state":{}}`),
		},
	}
}

// RunStoreContract runs the behaviors every snapshot.Store must share.
func RunStoreContract(t *testing.T, store snapshot.Store) {
	ctx := context.Background()

	t.Run("Save and Load Bundle", func(t *testing.T) {
		want := SampleBundle("contract-a")

		err := store.SaveBundle(ctx, want)
		require.NoError(t, err)

		got, err := store.LoadBundle(ctx, "contract-a")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("Replace Bundle", func(t *testing.T) {
		first := SampleBundle("contract-b")
		require.NoError(t, store.SaveBundle(ctx, first))

		second := SampleBundle("contract-b")
		second.Time = 50
		second.Models = []string{"gen"}
		second.Relations = second.Relations[:1]
		delete(second.Blobs, "sink")
		require.NoError(t, store.SaveBundle(ctx, second))

		got, err := store.LoadBundle(ctx, "contract-b")
		require.NoError(t, err)
		assert.Equal(t, 50.0, got.Time)
		assert.Equal(t, []string{"gen"}, got.Models)
		assert.NotContains(t, got.Blobs, "sink")
	})

	t.Run("List Bundles", func(t *testing.T) {
		require.NoError(t, store.SaveBundle(ctx, SampleBundle("contract-c")))

		names, err := store.ListBundles(ctx)
		require.NoError(t, err)
		assert.Contains(t, names, "contract-a")
		assert.Contains(t, names, "contract-c")
		assert.IsIncreasing(t, names)
	})

	t.Run("Load Missing Bundle", func(t *testing.T) {
		_, err := store.LoadBundle(ctx, "contract-missing")
		assert.ErrorIs(t, err, snapshot.ErrNotFound)
	})

	t.Run("Save and Load Model", func(t *testing.T) {
		key := snapshot.ModelKey{Point: snapshot.PointAfterInternal, Model: "gen"}

		require.NoError(t, store.SaveModel(ctx, key, []byte("v1")))
		require.NoError(t, store.SaveModel(ctx, key, []byte("v2")))

		blob, err := store.LoadModel(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, []byte("v2"), blob)

		keys, err := store.ListModels(ctx)
		require.NoError(t, err)
		assert.Contains(t, keys, key)
	})

	t.Run("Load Missing Model", func(t *testing.T) {
		_, err := store.LoadModel(ctx, snapshot.ModelKey{
			Point: snapshot.PointTimeCheck,
			Model: "missing",
		})
		assert.ErrorIs(t, err, snapshot.ErrNotFound)
	})
}
