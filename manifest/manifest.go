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

// Package manifest holds CXP's archive-level metadata record: aggregate
// stats, the file-extension breakdown, the set of extension namespaces
// present, and (in this implementation's resolution of an Open Question)
// the chunk-id -> chunk-index mapping the Reader needs to address chunks
// without walking the container's central directory.
package manifest

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/endgegnerbert-tech/cxp/cxperr"
)

// Version is the format version this package writes. Unmarshal accepts
// any archive whose major version matches; minor and patch are not checked.
const Version = "1.0.0"

// ExtensionInfo summarizes how many files of a given extension were
// packed and what category they were detected as.
type ExtensionInfo struct {
	Count    int    `msgpack:"count"`
	Category string `msgpack:"category"`
}

// EmbeddingMeta is reserved for a downstream vector-index extension; the
// core never populates or interprets it.
type EmbeddingMeta struct {
	Model     string `msgpack:"model"`
	Dimension int    `msgpack:"dimension"`
}

// Stats are the aggregate, archive-wide numbers computed at finalize time.
type Stats struct {
	FileCount           int     `msgpack:"file_count"`
	TotalOriginalBytes   uint64  `msgpack:"total_original_bytes"`
	TotalPackedBytes     uint64  `msgpack:"total_packed_bytes"`
	CompressionRatio     float64 `msgpack:"compression_ratio"`
	UniqueChunkCount     int     `msgpack:"unique_chunk_count"`
	DedupSavingsPercent  float64 `msgpack:"dedup_savings_percent"`
}

// Manifest is the single serialized record written once at build
// finalization and parsed once at reader open.
type Manifest struct {
	Version          string                   `msgpack:"version"`
	CreatedAt        time.Time                `msgpack:"created_at"`
	BuildID          string                   `msgpack:"build_id"`
	CompressionLevel int                      `msgpack:"compression_level"`
	Stats            Stats                    `msgpack:"stats"`
	Extensions       map[string]ExtensionInfo `msgpack:"extensions"`
	Namespaces       []string                 `msgpack:"namespaces"`
	Embedding        *EmbeddingMeta           `msgpack:"embedding,omitempty"`
	// ChunkIndex maps a chunk's hex content id to its assigned decimal
	// index (and thus to its chunks/NNNNNNNN.zst container member).
	ChunkIndex map[string]uint32 `msgpack:"chunk_index"`
}

// New returns a Manifest with Version and CreatedAt populated, ready for
// the Builder to fill in at finalize time.
func New() *Manifest {
	return &Manifest{
		Version:    Version,
		CreatedAt:  time.Now().UTC(),
		Extensions: make(map[string]ExtensionInfo),
		ChunkIndex: make(map[string]uint32),
	}
}

// Marshal encodes the Manifest as MessagePack.
func (m *Manifest) Marshal() ([]byte, error) {
	b, err := msgpack.Marshal(m)
	if err != nil {
		return nil, cxperr.New(cxperr.Serialization, "manifest.msgpack", err)
	}
	return b, nil
}

// Unmarshal decodes a Manifest and checks its format version against
// Version, refusing a major-version mismatch.
func Unmarshal(b []byte) (*Manifest, error) {
	var m Manifest
	if err := msgpack.Unmarshal(b, &m); err != nil {
		return nil, cxperr.New(cxperr.Corrupt, "manifest.msgpack", err)
	}
	if err := checkCompatible(m.Version); err != nil {
		return nil, err
	}
	return &m, nil
}

func checkCompatible(archiveVersion string) error {
	archiveMajor, err := majorOf(archiveVersion)
	if err != nil {
		return cxperr.New(cxperr.Corrupt, "manifest.msgpack", err)
	}
	readerMajor, err := majorOf(Version)
	if err != nil {
		return cxperr.New(cxperr.Corrupt, "manifest.msgpack", err)
	}
	if archiveMajor != readerMajor {
		return cxperr.New(cxperr.FormatVersion, "", fmt.Errorf("archive version %s incompatible with reader version %s", archiveVersion, Version))
	}
	return nil
}

func majorOf(version string) (int, error) {
	parts := strings.SplitN(version, ".", 2)
	if len(parts) == 0 {
		return 0, fmt.Errorf("malformed version %q", version)
	}
	return strconv.Atoi(parts[0])
}
