// Copyright 2019 Dolthub, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package reader implements read-only access to a sealed CXP
// container: opening it, eagerly parsing its Manifest, File Map and
// extension manifests, and reconstructing files on demand.
package reader

import (
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/endgegnerbert-tech/cxp/chunk"
	"github.com/endgegnerbert-tech/cxp/compress"
	"github.com/endgegnerbert-tech/cxp/config"
	"github.com/endgegnerbert-tech/cxp/container"
	"github.com/endgegnerbert-tech/cxp/cxperr"
	"github.com/endgegnerbert-tech/cxp/extension"
	"github.com/endgegnerbert-tech/cxp/filemap"
	"github.com/endgegnerbert-tech/cxp/hash"
	"github.com/endgegnerbert-tech/cxp/manifest"
)

// Reader gives random access to one sealed archive. It is safe for
// concurrent use: container handle access is serialized with a mutex,
// since the underlying ZIP reader requires serialized seek-and-read
// against one file handle.
type Reader struct {
	mu  sync.Mutex
	f   *os.File
	c   *container.Reader
	log logrus.FieldLogger

	manifest     *manifest.Manifest
	fileMap      *filemap.FileMap
	extManifests map[string]*extension.Manifest

	verified map[string]bool
}

// Open opens the archive at path and eagerly parses its Manifest, File
// Map and every extension namespace's manifest, rejecting it with a
// FormatVersion error if its major version is incompatible, or a
// Corrupt error if any declared namespace's manifest is missing or
// unparseable.
func Open(path string, cfg *config.Config) (*Reader, error) {
	cfg = config.WithDefaults(cfg)

	f, err := os.Open(path)
	if err != nil {
		return nil, cxperr.New(cxperr.IO, path, err)
	}
	abort := true
	defer func() {
		if abort {
			f.Close()
		}
	}()

	fi, err := f.Stat()
	if err != nil {
		return nil, cxperr.New(cxperr.IO, path, err)
	}

	cr, err := container.NewReader(f, fi.Size())
	if err != nil {
		return nil, err
	}

	mBytes, err := cr.Manifest()
	if err != nil {
		return nil, err
	}
	m, err := manifest.Unmarshal(mBytes)
	if err != nil {
		return nil, err
	}

	fmBytes, err := cr.FileMap()
	if err != nil {
		return nil, err
	}
	fm, err := filemap.Unmarshal(fmBytes)
	if err != nil {
		return nil, err
	}

	extManifests := make(map[string]*extension.Manifest, len(m.Namespaces))
	for _, ns := range m.Namespaces {
		emBytes, err := cr.ExtensionManifest(ns)
		if err != nil {
			return nil, cxperr.New(cxperr.Corrupt, container.ExtensionManifestMemberName(ns), err)
		}
		em, err := extension.Unmarshal(emBytes)
		if err != nil {
			return nil, err
		}
		extManifests[ns] = em
	}

	r := &Reader{
		f:            f,
		c:            cr,
		log:          cfg.Logger,
		manifest:     m,
		fileMap:      fm,
		extManifests: extManifests,
		verified:     make(map[string]bool),
	}
	r.log.WithField("path", path).Info("reader: opened")
	abort = false
	return r, nil
}

// Close releases the underlying file handle.
func (r *Reader) Close() error {
	if err := r.f.Close(); err != nil {
		return cxperr.New(cxperr.IO, "", err)
	}
	return nil
}

// Manifest returns the archive's parsed Manifest.
func (r *Reader) Manifest() *manifest.Manifest {
	return r.manifest
}

// ListFiles returns every file entry, in insertion order.
func (r *Reader) ListFiles() []filemap.FileEntry {
	return r.fileMap.List()
}

// ReadFile reconstructs and returns path's full bytes.
func (r *Reader) ReadFile(path string) ([]byte, error) {
	entry, ok := r.fileMap.Get(path)
	if !ok {
		return nil, cxperr.New(cxperr.NotFound, path, nil)
	}

	out := make([]byte, 0, entry.Size)
	for _, ref := range entry.Refs {
		data, err := r.readChunk(ref)
		if err != nil {
			return nil, err
		}
		out = append(out, data...)
	}
	if uint64(len(out)) != entry.Size {
		return nil, cxperr.New(cxperr.Corrupt, path, nil)
	}
	return out, nil
}

// StreamFile returns a io.ReadCloser that lazily decompresses path's
// chunks in order as the caller reads. The caller may abandon it
// mid-stream by calling Close.
func (r *Reader) StreamFile(path string) (io.ReadCloser, error) {
	entry, ok := r.fileMap.Get(path)
	if !ok {
		return nil, cxperr.New(cxperr.NotFound, path, nil)
	}
	return &fileStream{r: r, refs: entry.Refs}, nil
}

// readChunk fetches, decompresses and (on first read) integrity-checks
// one chunk referenced by ref.
func (r *Reader) readChunk(ref chunk.Ref) ([]byte, error) {
	idx, ok := r.manifest.ChunkIndex[ref.ID.String()]
	if !ok {
		return nil, cxperr.New(cxperr.Corrupt, ref.ID.String(), nil)
	}

	r.mu.Lock()
	frame, err := r.c.Chunk(idx)
	if err != nil {
		r.mu.Unlock()
		return nil, err
	}
	needsVerify := !r.verified[ref.ID.String()]
	r.mu.Unlock()

	data, err := compress.Decompress(frame, int(ref.Length))
	if err != nil {
		return nil, err
	}

	if needsVerify {
		if ref.ID != hash.Of(data) {
			return nil, cxperr.New(cxperr.Corrupt, ref.ID.String(), nil)
		}
		r.mu.Lock()
		r.verified[ref.ID.String()] = true
		r.mu.Unlock()
	}
	return data, nil
}

// ListExtensions returns the archive's extension namespaces, in the
// order they were added at build time.
func (r *Reader) ListExtensions() []string {
	out := make([]string, len(r.manifest.Namespaces))
	copy(out, r.manifest.Namespaces)
	return out
}

// ListExtensionKeys returns the blob keys present under namespace, in
// the order they were put at build time.
func (r *Reader) ListExtensionKeys(namespace string) []string {
	em, ok := r.extManifests[namespace]
	if !ok {
		return nil
	}
	out := make([]string, len(em.Keys))
	copy(out, em.Keys)
	return out
}

// ReadExtension returns the raw bytes stored under (namespace, key).
func (r *Reader) ReadExtension(namespace, key string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.c.ExtensionBlob(namespace, key)
}
