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

package chunk

import (
	"bufio"
	"io"

	"github.com/kch42/buzhash"
)

const (
	// MinSize is the smallest chunk the Chunker will cut voluntarily.
	MinSize = 2 * 1024
	// AvgSize is the chunk size the cut mask is tuned to hit on average.
	AvgSize = 4 * 1024
	// MaxSize is the largest chunk the Chunker will ever produce; a cut
	// is forced here regardless of the rolling hash.
	MaxSize = 8 * 1024

	// windowSize is the width of the rolling hash's sliding window.
	windowSize = 64
)

// Sizes describes the min/avg/max boundaries a Chunker enforces. Avg
// controls the density of the cut-mask test, not a hard limit. The zero
// value is not valid; use DefaultSizes or a value derived from it.
type Sizes struct {
	Min, Avg, Max int
}

// DefaultSizes is the spec-mandated 2 KiB / 4 KiB / 8 KiB boundary set.
var DefaultSizes = Sizes{Min: MinSize, Avg: AvgSize, Max: MaxSize}

// Chunker splits a byte stream into content-defined chunks. It is
// deterministic: the same byte stream always produces the same sequence
// of chunk boundaries.
type Chunker struct {
	r       *bufio.Reader
	roll    *buzhash.BuzHash
	sizes   Sizes
	cutMask uint32
	done    bool
}

// New returns a Chunker reading from r, using the spec-default size
// boundaries.
func New(r io.Reader) *Chunker {
	return NewWithSizes(r, DefaultSizes)
}

// NewWithSizes returns a Chunker reading from r with caller-supplied size
// boundaries. Production callers should leave this at DefaultSizes; the
// override exists so tests can exercise boundary behavior deterministically.
func NewWithSizes(r io.Reader, sizes Sizes) *Chunker {
	return &Chunker{
		r:       bufio.NewReaderSize(r, 64*1024),
		roll:    buzhash.NewBuzHash(windowSize),
		sizes:   sizes,
		cutMask: maskForAvg(sizes.Avg),
	}
}

// maskForAvg picks the smallest all-ones low-bit mask whose density makes
// a cut land on average every avg bytes: 2^bits >= avg.
func maskForAvg(avg int) uint32 {
	bits := uint32(0)
	for (1 << bits) < avg {
		bits++
	}
	return (1 << bits) - 1
}

// Next returns the next chunk's bytes, or io.EOF once the stream is
// exhausted. An empty input stream yields io.EOF on the first call and no
// chunks at all — never one empty chunk.
func (c *Chunker) Next() ([]byte, error) {
	if c.done {
		return nil, io.EOF
	}

	c.roll.Reset()
	buf := make([]byte, 0, c.sizes.Avg)

	for {
		b, err := c.r.ReadByte()
		if err != nil {
			if err == io.EOF {
				c.done = true
				if len(buf) == 0 {
					return nil, io.EOF
				}
				return buf, nil
			}
			return nil, err
		}

		buf = append(buf, b)

		if len(buf) < c.sizes.Min {
			continue
		}
		if len(buf) >= c.sizes.Max {
			return buf, nil
		}

		if c.roll.HashByte(b)&c.cutMask == 0 {
			return buf, nil
		}
	}
}

// All drains a Chunker built with the spec-default sizes, returning every
// chunk of r in order. It exists for callers (and tests) that don't need
// to stream chunk-by-chunk.
func All(r io.Reader) ([][]byte, error) {
	return AllWithSizes(r, DefaultSizes)
}

// AllWithSizes is All with caller-supplied size boundaries.
func AllWithSizes(r io.Reader, sizes Sizes) ([][]byte, error) {
	c := NewWithSizes(r, sizes)
	var chunks [][]byte
	for {
		chunk, err := c.Next()
		if err == io.EOF {
			return chunks, nil
		}
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk)
	}
}
