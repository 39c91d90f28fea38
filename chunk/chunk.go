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

// Package chunk implements content-defined chunking: splitting a byte
// stream into variable-size, content-addressed chunks whose boundaries
// depend only on local content, so that local edits to the source shift
// at most a couple of surrounding boundaries.
package chunk

import "github.com/endgegnerbert-tech/cxp/hash"

// Chunk is a contiguous byte range of some original file, identified by
// the SHA-256 of its bytes. A Chunk carries no file-provenance metadata;
// that lives in the Ref stored alongside it in a file's chunk list.
type Chunk struct {
	data []byte
	id   hash.Hash
}

// New wraps data as a Chunk, computing its content id.
func New(data []byte) Chunk {
	return Chunk{data: data, id: hash.Of(data)}
}

// Hash returns the chunk's content id.
func (c Chunk) Hash() hash.Hash {
	return c.id
}

// Data returns the chunk's uncompressed bytes. Callers must not mutate it.
func (c Chunk) Data() []byte {
	return c.data
}

// Len returns the number of uncompressed bytes in the chunk.
func (c Chunk) Len() int {
	return len(c.data)
}

// Ref is a reference to a Chunk stored inside a FileEntry: the chunk's
// content id and its uncompressed length. The length is duplicated here
// so a reader can validate reconstruction without decompressing.
type Ref struct {
	ID     hash.Hash
	Length uint64
}
