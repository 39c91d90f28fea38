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

package build

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/endgegnerbert-tech/cxp/compress"
	"github.com/endgegnerbert-tech/cxp/config"
	"github.com/endgegnerbert-tech/cxp/container"
	"github.com/endgegnerbert-tech/cxp/cxperr"
	"github.com/endgegnerbert-tech/cxp/extension"
	"github.com/endgegnerbert-tech/cxp/filemap"
	"github.com/endgegnerbert-tech/cxp/manifest"
)

func opener(data []byte) Opener {
	return func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}
}

// cancelingReader cancels a build's context on its first Read call, then
// continues serving bytes from the wrapped reader as normal, so a Build
// cancels partway through scanning rather than before it starts.
type cancelingReader struct {
	r      io.Reader
	cancel context.CancelFunc
	once   sync.Once
}

func (c *cancelingReader) Read(p []byte) (int, error) {
	c.once.Do(c.cancel)
	return c.r.Read(p)
}

func (c *cancelingReader) Close() error { return nil }

// reassemble reconstructs a file's full bytes by walking its Refs
// through the container's chunk members.
func reassemble(t *testing.T, r *container.Reader, entry filemap.FileEntry) []byte {
	t.Helper()
	m, err := r.Manifest()
	require.NoError(t, err)
	mm, err := manifest.Unmarshal(m)
	require.NoError(t, err)

	var out []byte
	for _, ref := range entry.Refs {
		idx, ok := mm.ChunkIndex[ref.ID.String()]
		require.True(t, ok)
		frame, err := r.Chunk(idx)
		require.NoError(t, err)
		data, err := compress.Decompress(frame, int(ref.Length))
		require.NoError(t, err)
		out = append(out, data...)
	}
	return out
}

func TestBuildSimpleRoundTrip(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	b := New(&config.Config{Workers: 2})
	require.NoError(b.AddFile("hello.txt", opener([]byte("hello, world"))))
	require.NoError(b.AddFile("README.md", opener([]byte("# title\n\nsome docs"))))

	dir := t.TempDir()
	out := filepath.Join(dir, "archive.cxp")

	report, err := b.Build(context.Background(), out)
	require.NoError(err)
	assert.Equal(Sealed, b.State())
	assert.Equal(2, report.Manifest.Stats.FileCount)

	f, err := os.Open(out)
	require.NoError(err)
	defer f.Close()
	fi, err := f.Stat()
	require.NoError(err)

	cr, err := container.NewReader(f, fi.Size())
	require.NoError(err)

	fmBytes, err := cr.FileMap()
	require.NoError(err)
	fm, err := filemap.Unmarshal(fmBytes)
	require.NoError(err)

	list := fm.List()
	require.Len(list, 2)
	assert.Equal("hello.txt", list[0].Path)
	assert.Equal([]byte("hello, world"), reassemble(t, cr, list[0]))
	assert.Equal("README.md", list[1].Path)
	assert.Equal([]byte("# title\n\nsome docs"), reassemble(t, cr, list[1]))
}

func TestBuildDeduplicatesSharedContent(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	shared := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog. "), 600)

	b := New(nil)
	require.NoError(b.AddFile("a.txt", opener(shared)))
	require.NoError(b.AddFile("b.txt", opener(shared)))

	out := filepath.Join(t.TempDir(), "archive.cxp")
	report, err := b.Build(context.Background(), out)
	require.NoError(err)

	// Two identical files must not double the unique chunk count: the
	// second file's chunks are all already-seen duplicates.
	assert.Greater(report.Manifest.Stats.UniqueChunkCount, 0)
	assert.Greater(report.Manifest.Stats.DedupSavingsPercent, float64(40))
}

func TestBuildExtensionIsolation(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	b := New(nil)
	require.NoError(b.AddFile("a.txt", opener([]byte("content"))))

	ns, err := extension.NewNamespace("embeddings", "1.0.0")
	require.NoError(err)
	require.NoError(ns.Put("model.bin", []byte{1, 2, 3}))
	require.NoError(b.AddExtension(ns))

	out := filepath.Join(t.TempDir(), "archive.cxp")
	_, err = b.Build(context.Background(), out)
	require.NoError(err)

	f, err := os.Open(out)
	require.NoError(err)
	defer f.Close()
	fi, err := f.Stat()
	require.NoError(err)

	cr, err := container.NewReader(f, fi.Size())
	require.NoError(err)

	assert.Equal([]string{"embeddings"}, cr.Namespaces())
	assert.Equal([]string{"model.bin"}, cr.ExtensionKeys("embeddings"))

	blob, err := cr.ExtensionBlob("embeddings", "model.bin")
	require.NoError(err)
	assert.Equal([]byte{1, 2, 3}, blob)
}

func TestBuildRejectsAddAfterBuild(t *testing.T) {
	b := New(nil)
	require.NoError(t, b.AddFile("a.txt", opener([]byte("x"))))

	out := filepath.Join(t.TempDir(), "archive.cxp")
	_, err := b.Build(context.Background(), out)
	require.NoError(t, err)

	err = b.AddFile("b.txt", opener([]byte("y")))
	assert.Error(t, err)

	_, err = b.Build(context.Background(), out)
	assert.Error(t, err)
}

func TestBuildCancellationMidScanReturnsCancelled(t *testing.T) {
	b := New(&config.Config{Workers: 2})
	ctx, cancel := context.WithCancel(context.Background())

	first := bytes.Repeat([]byte("alpha bytes "), 4000)
	require.NoError(t, b.AddFile("a.txt", func() (io.ReadCloser, error) {
		return &cancelingReader{r: bytes.NewReader(first), cancel: cancel}, nil
	}))
	require.NoError(t, b.AddFile("b.txt", opener(bytes.Repeat([]byte("beta bytes "), 4000))))

	out := filepath.Join(t.TempDir(), "archive.cxp")
	_, err := b.Build(ctx, out)
	require.Error(t, err)
	assert.True(t, cxperr.Is(err, cxperr.Cancelled))

	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr))
	_, statErr = os.Stat(out + ".tmp")
	assert.True(t, os.IsNotExist(statErr))
}

func TestBuildNeverLeavesPartialOutputOnFailure(t *testing.T) {
	b := New(nil)
	require.NoError(t, b.AddFile("bad.txt", func() (io.ReadCloser, error) {
		return nil, os.ErrNotExist
	}))

	out := filepath.Join(t.TempDir(), "archive.cxp")
	_, err := b.Build(context.Background(), out)
	require.Error(t, err)

	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr))
	_, statErr = os.Stat(out + ".tmp")
	assert.True(t, os.IsNotExist(statErr))
}
