package snapshot

import "context"

// A Store keeps bundles and per-model snapshots.
type Store interface {
	SaveBundle(ctx context.Context, b *Bundle) error

	// LoadBundle returns ErrNotFound if no bundle has the name.
	LoadBundle(ctx context.Context, name string) (*Bundle, error)
	ListBundles(ctx context.Context) ([]string, error)

	SaveModel(ctx context.Context, key ModelKey, blob []byte) error

	// LoadModel returns ErrNotFound if nothing was saved under the key.
	LoadModel(ctx context.Context, key ModelKey) ([]byte, error)
	ListModels(ctx context.Context) ([]ModelKey, error)
}
