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

// Package filemap holds the per-file ordered list of chunk references
// that make up an archive. It is kept separate from the Manifest so that
// list-files/read-file stay independent of archive-level stats.
package filemap

import (
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/endgegnerbert-tech/cxp/chunk"
	"github.com/endgegnerbert-tech/cxp/cxperr"
)

// Category is the detected file-type tag recorded on a FileEntry.
type Category string

const (
	CategorySource  Category = "source"
	CategoryConfig  Category = "config"
	CategoryDocs    Category = "docs"
	CategoryData    Category = "data"
	CategoryUnknown Category = "unknown"
)

// FileEntry is the metadata for one input file inside the archive.
// The sum of its Refs' lengths always equals Size.
type FileEntry struct {
	Path     string      `msgpack:"path"`
	Size     uint64      `msgpack:"size"`
	Category Category    `msgpack:"category"`
	ModTime  *time.Time  `msgpack:"mod_time,omitempty"`
	Refs     []chunk.Ref `msgpack:"refs"`
}

// FileMap is the path -> FileEntry mapping, preserving insertion order for
// deterministic enumeration.
type FileMap struct {
	order   []string
	entries map[string]FileEntry
}

// New returns an empty FileMap.
func New() *FileMap {
	return &FileMap{entries: make(map[string]FileEntry)}
}

// Add inserts a new FileEntry. It returns an InvalidInput error if the
// path was already present — paths are unique within a FileMap.
func (m *FileMap) Add(e FileEntry) error {
	if _, exists := m.entries[e.Path]; exists {
		return cxperr.New(cxperr.InvalidInput, e.Path, nil)
	}
	m.entries[e.Path] = e
	m.order = append(m.order, e.Path)
	return nil
}

// Get looks up a FileEntry by logical path.
func (m *FileMap) Get(path string) (FileEntry, bool) {
	e, ok := m.entries[path]
	return e, ok
}

// List returns every FileEntry in insertion order.
func (m *FileMap) List() []FileEntry {
	out := make([]FileEntry, 0, len(m.order))
	for _, p := range m.order {
		out = append(out, m.entries[p])
	}
	return out
}

// Len reports the number of files in the map.
func (m *FileMap) Len() int {
	return len(m.order)
}

// wireFileMap is the serialized shape: an ordered array preserves
// insertion order, which a bare map[string]FileEntry cannot guarantee.
type wireFileMap struct {
	Entries []FileEntry `msgpack:"entries"`
}

// Marshal encodes the FileMap as MessagePack.
func (m *FileMap) Marshal() ([]byte, error) {
	b, err := msgpack.Marshal(wireFileMap{Entries: m.List()})
	if err != nil {
		return nil, cxperr.New(cxperr.Serialization, "file_map.msgpack", err)
	}
	return b, nil
}

// Unmarshal decodes a FileMap previously produced by Marshal.
func Unmarshal(b []byte) (*FileMap, error) {
	var wire wireFileMap
	if err := msgpack.Unmarshal(b, &wire); err != nil {
		return nil, cxperr.New(cxperr.Corrupt, "file_map.msgpack", err)
	}
	m := New()
	for _, e := range wire.Entries {
		if err := m.Add(e); err != nil {
			return nil, cxperr.New(cxperr.Corrupt, "file_map.msgpack", err)
		}
	}
	return m, nil
}
