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

// Package dedup implements the build-time dedup table: a map from a
// chunk's content id to the monotonically assigned index of the first
// occurrence of that content. It is a build-local structure with no
// concurrent-writer support; collisions are treated as content equality.
package dedup

import "github.com/endgegnerbert-tech/cxp/hash"

// Stats are the dedup statistics accumulated incrementally as chunks are
// inserted. They feed the Manifest's aggregate stats at build finalization.
type Stats struct {
	TotalChunks    uint64
	UniqueChunks   uint64
	DuplicateBytes uint64
}

// Table assigns each unique content id the next small integer index,
// in first-seen order.
type Table struct {
	index map[hash.Hash]uint32
	next  uint32
	stats Stats
}

// New returns an empty Table.
func New() *Table {
	return &Table{index: make(map[hash.Hash]uint32)}
}

// Insert records a chunk of the given id and length. If id has not been
// seen before, it is assigned the next index and isNew is true. Otherwise
// the existing index is returned, isNew is false, and length is added to
// the duplicate-bytes statistic.
func (t *Table) Insert(id hash.Hash, length uint64) (index uint32, isNew bool) {
	t.stats.TotalChunks++

	if idx, ok := t.index[id]; ok {
		t.stats.DuplicateBytes += length
		return idx, false
	}

	idx := t.next
	t.index[id] = idx
	t.next++
	t.stats.UniqueChunks++
	return idx, true
}

// Lookup reports the assigned index for id, if any.
func (t *Table) Lookup(id hash.Hash) (index uint32, ok bool) {
	index, ok = t.index[id]
	return
}

// Stats returns a snapshot of the dedup statistics gathered so far.
func (t *Table) Stats() Stats {
	return t.stats
}

// Index returns the id -> assigned-index mapping built so far, keyed by
// hex content id, ready to be copied into Manifest.ChunkIndex.
func (t *Table) Index() map[string]uint32 {
	out := make(map[string]uint32, len(t.index))
	for id, idx := range t.index {
		out[id.String()] = idx
	}
	return out
}
