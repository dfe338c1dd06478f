package snapshot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sarchlab/devskit/sim/serialization"
)

const (
	kernelFile    = "kernel.json"
	relationFile  = "relation_map.json"
	modelMapFile  = "model_map.json"
	blobExtension = ".simx"
	modelsDir     = "models"
)

// A DirStore keeps every bundle in its own directory under a root, and
// per-model snapshots in a shared models directory.
type DirStore struct {
	root  string
	codec serialization.Codec
}

// NewDirStore creates a store rooted at dir, creating it if needed.
func NewDirStore(dir string) (*DirStore, error) {
	err := os.MkdirAll(filepath.Join(dir, modelsDir), 0o755)
	if err != nil {
		return nil, err
	}

	return &DirStore{root: dir, codec: serialization.JSONCodec{}}, nil
}

// Root returns the directory the store writes into.
func (s *DirStore) Root() string {
	return s.root
}

func validateFileName(kind, name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid %s name %q", kind, name)
	}

	return nil
}

// SaveBundle writes the bundle into a fresh directory and then swaps it in
// place of any previous bundle with the same name.
func (s *DirStore) SaveBundle(ctx context.Context, b *Bundle) error {
	if err := validateFileName("snapshot", b.Name); err != nil {
		return err
	}

	if b.Name == modelsDir {
		return fmt.Errorf("snapshot name %q is reserved", b.Name)
	}

	tmp, err := os.MkdirTemp(s.root, "."+b.Name+"-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tmp)

	err = s.writeBundle(ctx, tmp, b)
	if err != nil {
		return err
	}

	final := filepath.Join(s.root, b.Name)

	err = os.RemoveAll(final)
	if err != nil {
		return err
	}

	return os.Rename(tmp, final)
}

func (s *DirStore) writeBundle(ctx context.Context, dir string, b *Bundle) error {
	files := map[string]any{
		kernelFile:   b,
		relationFile: b.Relations,
		modelMapFile: b.Models,
	}

	for name, v := range files {
		err := s.writeJSON(filepath.Join(dir, name), v)
		if err != nil {
			return err
		}
	}

	for _, name := range b.Models {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := validateFileName("model", name); err != nil {
			return err
		}

		err := os.WriteFile(filepath.Join(dir, name+blobExtension),
			b.Blobs[name], 0o644)
		if err != nil {
			return err
		}
	}

	return nil
}

func (s *DirStore) writeJSON(path string, v any) error {
	buf := &bytes.Buffer{}

	err := s.codec.Encode(buf, v)
	if err != nil {
		return err
	}

	return os.WriteFile(path, buf.Bytes(), 0o644)
}

func (s *DirStore) readJSON(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return s.codec.Decode(f, v)
}

// LoadBundle reads a bundle written by SaveBundle.
func (s *DirStore) LoadBundle(ctx context.Context, name string) (*Bundle, error) {
	if err := validateFileName("snapshot", name); err != nil {
		return nil, err
	}

	dir := filepath.Join(s.root, name)
	b := &Bundle{}

	err := s.readJSON(filepath.Join(dir, kernelFile), b)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	if err != nil {
		return nil, err
	}

	err = s.readJSON(filepath.Join(dir, relationFile), &b.Relations)
	if err != nil {
		return nil, err
	}

	err = s.readJSON(filepath.Join(dir, modelMapFile), &b.Models)
	if err != nil {
		return nil, err
	}

	b.Blobs = make(map[string][]byte, len(b.Models))
	for _, m := range b.Models {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if err := validateFileName("model", m); err != nil {
			return nil, err
		}

		blob, err := os.ReadFile(filepath.Join(dir, m+blobExtension))
		if err != nil {
			return nil, fmt.Errorf("snapshot %s: %w", name, err)
		}

		b.Blobs[m] = blob
	}

	return b, nil
}

// ListBundles returns the names of the stored bundles in lexical order.
func (s *DirStore) ListBundles(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, err
	}

	var names []string

	for _, e := range entries {
		if !e.IsDir() || e.Name() == modelsDir ||
			strings.HasPrefix(e.Name(), ".") {
			continue
		}

		_, err := os.Stat(filepath.Join(s.root, e.Name(), kernelFile))
		if err != nil {
			continue
		}

		names = append(names, e.Name())
	}

	sort.Strings(names)

	return names, nil
}

func (s *DirStore) modelPath(key ModelKey) (string, error) {
	if err := validateFileName("model", key.Model); err != nil {
		return "", err
	}

	return filepath.Join(s.root, modelsDir, key.String()+blobExtension), nil
}

// SaveModel writes a per-model snapshot, replacing any earlier one under
// the same key.
func (s *DirStore) SaveModel(_ context.Context, key ModelKey, blob []byte) error {
	path, err := s.modelPath(key)
	if err != nil {
		return err
	}

	return os.WriteFile(path, blob, 0o644)
}

// LoadModel reads a per-model snapshot.
func (s *DirStore) LoadModel(_ context.Context, key ModelKey) ([]byte, error) {
	path, err := s.modelPath(key)
	if err != nil {
		return nil, err
	}

	blob, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	return blob, err
}

// ListModels returns the keys of the stored per-model snapshots.
func (s *DirStore) ListModels(_ context.Context) ([]ModelKey, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, modelsDir))
	if err != nil {
		return nil, err
	}

	var keys []ModelKey

	for _, e := range entries {
		name, found := strings.CutSuffix(e.Name(), blobExtension)
		if e.IsDir() || !found {
			continue
		}

		key, err := ParseModelKey(name)
		if err != nil {
			continue
		}

		keys = append(keys, key)
	}

	sortKeys(keys)

	return keys, nil
}
