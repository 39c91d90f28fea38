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

// Package config holds the tunable knobs Builder and Reader accept. A
// nil *Config (or a zero-value Config with zero-value fields) always
// means "use the production defaults".
package config

import (
	"runtime"

	"github.com/sirupsen/logrus"

	"github.com/endgegnerbert-tech/cxp/chunk"
	"github.com/endgegnerbert-tech/cxp/compress"
)

// Config overrides default knobs. ChunkMinSize/AvgSize/MaxSize exist
// for deterministic testing; production callers should leave them zero
// so the Chunker's own spec-mandated defaults apply.
type Config struct {
	ChunkMinSize int
	ChunkAvgSize int
	ChunkMaxSize int

	CompressionLevel int

	// Workers bounds the compression worker pool size. Zero means
	// runtime.NumCPU().
	Workers int

	Logger logrus.FieldLogger
}

// WithDefaults returns a copy of c (or a fresh zero Config, if c is
// nil) with every zero field replaced by its production default.
func WithDefaults(c *Config) *Config {
	out := Config{}
	if c != nil {
		out = *c
	}
	if out.ChunkMinSize == 0 {
		out.ChunkMinSize = chunk.MinSize
	}
	if out.ChunkAvgSize == 0 {
		out.ChunkAvgSize = chunk.AvgSize
	}
	if out.ChunkMaxSize == 0 {
		out.ChunkMaxSize = chunk.MaxSize
	}
	if out.CompressionLevel == 0 {
		out.CompressionLevel = compress.DefaultLevel
	}
	if out.Workers <= 0 {
		out.Workers = runtime.NumCPU()
	}
	if out.Logger == nil {
		out.Logger = logrus.StandardLogger()
	}
	return &out
}

// ChunkSizes projects the chunk-size knobs as a chunk.Sizes value.
func (c *Config) ChunkSizes() chunk.Sizes {
	return chunk.Sizes{Min: c.ChunkMinSize, Avg: c.ChunkAvgSize, Max: c.ChunkMaxSize}
}
