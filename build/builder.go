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

// Package build implements the Builder pipeline: Initialized -> Scanned
// -> Processed -> Sealed. A Builder consumes logical (path, byte
// source) entries and an optional set of extension namespaces, and
// produces one sealed CXP container.
package build

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/endgegnerbert-tech/cxp/chunk"
	"github.com/endgegnerbert-tech/cxp/compress"
	"github.com/endgegnerbert-tech/cxp/config"
	"github.com/endgegnerbert-tech/cxp/container"
	"github.com/endgegnerbert-tech/cxp/cxperr"
	"github.com/endgegnerbert-tech/cxp/dedup"
	"github.com/endgegnerbert-tech/cxp/extension"
	"github.com/endgegnerbert-tech/cxp/filemap"
	"github.com/endgegnerbert-tech/cxp/manifest"
)

// State is one of the Builder pipeline's observable states.
type State int

const (
	Initialized State = iota
	Scanned
	Processed
	Sealed
)

func (s State) String() string {
	switch s {
	case Initialized:
		return "Initialized"
	case Scanned:
		return "Scanned"
	case Processed:
		return "Processed"
	case Sealed:
		return "Sealed"
	default:
		return "Unknown"
	}
}

// Opener produces a fresh, independently closeable reader over one
// source file's bytes. The Builder calls it exactly once per file,
// during the Scanned -> Processed transition.
type Opener func() (io.ReadCloser, error)

type source struct {
	path string
	open Opener
}

// Builder accumulates file and extension entries, then packs them into
// one sealed container on Build.
type Builder struct {
	cfg   *config.Config
	log   logrus.FieldLogger
	state State

	sources    []source
	extensions *extension.Registry
}

// New returns an empty Builder in the Initialized state. A nil cfg
// means production defaults.
func New(cfg *config.Config) *Builder {
	cfg = config.WithDefaults(cfg)
	return &Builder{
		cfg:        cfg,
		log:        cfg.Logger,
		state:      Initialized,
		extensions: extension.NewRegistry(),
	}
}

// State reports the Builder's current pipeline state.
func (b *Builder) State() State {
	return b.state
}

// AddFile registers one logical file to be packed, in the order files
// should appear in the File Map. It is only valid while the Builder is
// Initialized.
func (b *Builder) AddFile(path string, open Opener) error {
	if b.state != Initialized {
		return cxperr.New(cxperr.InvalidInput, path, nil)
	}
	b.sources = append(b.sources, source{path: path, open: open})
	return nil
}

// AddExtension registers one extension namespace to be packed. It is
// only valid while the Builder is Initialized.
func (b *Builder) AddExtension(ns *extension.Namespace) error {
	if b.state != Initialized {
		return cxperr.New(cxperr.InvalidInput, ns.Name, nil)
	}
	return b.extensions.Add(ns)
}

// chunkJob is one unique chunk awaiting compression.
type chunkJob struct {
	index uint32
	data  []byte
}

// Build drives the Builder through Scanned -> Processed -> Sealed,
// writing the finished container to outPath. It is only valid from
// Initialized, and a Builder is single-use: call it once.
func (b *Builder) Build(ctx context.Context, outPath string) (*Report, error) {
	if b.state != Initialized {
		return nil, cxperr.New(cxperr.InvalidInput, outPath, nil)
	}
	start := time.Now()

	b.state = Scanned
	b.log.WithField("files", len(b.sources)).Info("build: scanned")

	table := dedup.New()
	fm := filemap.New()

	var (
		mu         sync.Mutex
		frames     = make(map[uint32][]byte)
		totalOrig  uint64
	)

	g, gctx := errgroup.WithContext(ctx)
	jobs := make(chan chunkJob, b.cfg.Workers*2)

	for i := 0; i < b.cfg.Workers; i++ {
		g.Go(func() error {
			for job := range jobs {
				select {
				case <-gctx.Done():
					return cxperr.New(cxperr.Cancelled, "", gctx.Err())
				default:
				}
				frame := compress.Compress(job.data, b.cfg.CompressionLevel)
				mu.Lock()
				frames[job.index] = frame
				mu.Unlock()
			}
			return nil
		})
	}

	producerErr := func() error {
		defer close(jobs)
		for _, src := range b.sources {
			select {
			case <-gctx.Done():
				return cxperr.New(cxperr.Cancelled, src.path, gctx.Err())
			default:
			}

			entry, n, err := b.scanFile(gctx, src, table, jobs)
			if err != nil {
				return err
			}
			totalOrig += n
			if err := fm.Add(entry); err != nil {
				return err
			}
		}
		return nil
	}()

	waitErr := g.Wait()
	if producerErr != nil {
		return nil, producerErr
	}
	if waitErr != nil {
		return nil, waitErr
	}

	b.state = Processed
	b.log.WithField("unique_chunks", table.Stats().UniqueChunks).Info("build: processed")

	m, err := b.seal(ctx, outPath, table, fm, frames, totalOrig)
	if err != nil {
		return nil, err
	}
	b.state = Sealed

	report := &Report{Duration: time.Since(start), Manifest: m}
	b.log.WithField("summary", report.String()).Info("build: sealed")
	return report, nil
}

// scanFile streams one source through the Chunker, hashing and
// deduping each chunk and queuing newly-seen chunks for compression.
func (b *Builder) scanFile(ctx context.Context, src source, table *dedup.Table, jobs chan<- chunkJob) (filemap.FileEntry, uint64, error) {
	rc, err := src.open()
	if err != nil {
		return filemap.FileEntry{}, 0, cxperr.New(cxperr.IO, src.path, err)
	}
	defer rc.Close()

	c := chunk.NewWithSizes(rc, b.cfg.ChunkSizes())
	var (
		refs  []chunk.Ref
		total uint64
	)
	for {
		select {
		case <-ctx.Done():
			return filemap.FileEntry{}, 0, cxperr.New(cxperr.Cancelled, src.path, ctx.Err())
		default:
		}

		data, err := c.Next()
		if err != nil {
			if err == io.EOF {
				break
			}
			return filemap.FileEntry{}, 0, cxperr.New(cxperr.IO, src.path, err)
		}

		chk := chunk.New(data)
		idx, isNew := table.Insert(chk.Hash(), uint64(chk.Len()))
		b.log.WithFields(logrus.Fields{"path": src.path, "chunk_index": idx, "new": isNew}).Debug("build: chunk")
		if isNew {
			select {
			case jobs <- chunkJob{index: idx, data: data}:
			case <-ctx.Done():
				return filemap.FileEntry{}, 0, cxperr.New(cxperr.Cancelled, src.path, ctx.Err())
			}
		}
		refs = append(refs, chunk.Ref{ID: chk.Hash(), Length: uint64(chk.Len())})
		total += uint64(chk.Len())
	}

	entry := filemap.FileEntry{
		Path:     src.path,
		Size:     total,
		Category: categorize(src.path),
		Refs:     refs,
	}
	b.log.WithFields(logrus.Fields{"path": src.path, "chunks": len(refs), "bytes": total}).Info("build: file processed")
	return entry, total, nil
}

// buildExtensionStats derives the Manifest's extension -> (count,
// category) breakdown from the finished File Map.
func buildExtensionStats(fm *filemap.FileMap) map[string]manifest.ExtensionInfo {
	out := make(map[string]manifest.ExtensionInfo)
	for _, e := range fm.List() {
		key := extensionKey(e.Path)
		if key == "" {
			continue
		}
		info := out[key]
		info.Count++
		info.Category = string(e.Category)
		out[key] = info
	}
	return out
}

// seal opens the container writer at a temp path, emits every member
// in the order the format requires, closes it to flush the central
// directory, then renames it into place. No partial archive is ever
// left under outPath.
func (b *Builder) seal(ctx context.Context, outPath string, table *dedup.Table, fm *filemap.FileMap, frames map[uint32][]byte, totalOrig uint64) (*manifest.Manifest, error) {
	tmpPath := outPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return nil, cxperr.New(cxperr.IO, tmpPath, err)
	}
	abort := true
	closed := false
	defer func() {
		if !closed {
			f.Close()
		}
		if abort {
			os.Remove(tmpPath)
		}
	}()

	w := container.NewWriter(f)

	stats := table.Stats()
	var totalPacked uint64
	for i := uint32(0); i < uint32(stats.UniqueChunks); i++ {
		select {
		case <-ctx.Done():
			return nil, cxperr.New(cxperr.Cancelled, outPath, ctx.Err())
		default:
		}
		frame, ok := frames[i]
		if !ok {
			return nil, cxperr.New(cxperr.Corrupt, outPath, nil)
		}
		if err := w.WriteChunk(i, frame); err != nil {
			return nil, err
		}
		totalPacked += uint64(len(frame))
	}

	fmBytes, err := fm.Marshal()
	if err != nil {
		return nil, err
	}
	if err := w.WriteFileMap(fmBytes); err != nil {
		return nil, err
	}

	namespaces := make([]string, 0, b.extensions.Len())
	for _, ns := range b.extensions.Namespaces() {
		nsManifestBytes, err := ns.Manifest().Marshal()
		if err != nil {
			return nil, err
		}
		if err := w.WriteExtensionManifest(ns.Name, nsManifestBytes); err != nil {
			return nil, err
		}
		for _, key := range ns.Keys() {
			blob, _ := ns.Get(key)
			if err := w.WriteExtensionBlob(ns.Name, key, blob); err != nil {
				return nil, err
			}
		}
		namespaces = append(namespaces, ns.Name)
	}

	m := manifest.New()
	m.BuildID = uuid.NewString()
	m.CompressionLevel = b.cfg.CompressionLevel
	m.Extensions = buildExtensionStats(fm)
	m.Namespaces = namespaces
	m.ChunkIndex = table.Index()
	m.Stats = manifest.Stats{
		FileCount:          fm.Len(),
		TotalOriginalBytes: totalOrig,
		TotalPackedBytes:   totalPacked,
		UniqueChunkCount:   int(stats.UniqueChunks),
	}
	if totalPacked > 0 {
		m.Stats.CompressionRatio = float64(totalOrig) / float64(totalPacked)
	}
	if stats.TotalChunks > 0 {
		m.Stats.DedupSavingsPercent = float64(stats.DuplicateBytes) / float64(totalOrig) * 100
	}

	mBytes, err := m.Marshal()
	if err != nil {
		return nil, err
	}
	if err := w.WriteManifest(mBytes); err != nil {
		return nil, err
	}

	if err := w.Close(); err != nil {
		return nil, err
	}
	closed = true
	if err := f.Close(); err != nil {
		return nil, cxperr.New(cxperr.IO, tmpPath, err)
	}
	if err := os.Rename(tmpPath, outPath); err != nil {
		return nil, cxperr.New(cxperr.IO, outPath, err)
	}
	abort = false
	return m, nil
}
