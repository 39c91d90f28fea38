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

// Package compress wraps Zstandard single-shot encode/decode of a single
// chunk payload.
package compress

import (
	"github.com/dolthub/gozstd"
	"github.com/pkg/errors"

	"github.com/endgegnerbert-tech/cxp/cxperr"
)

// DefaultLevel is used when a Config doesn't specify one.
const DefaultLevel = 3

// Compress encodes data as a single Zstandard frame at level. Empty input
// still produces a small, non-empty frame.
func Compress(data []byte, level int) []byte {
	return gozstd.CompressLevel(nil, data, level)
}

// Decompress decodes a single Zstandard frame, verifying the decoded
// length matches wantLen. It returns a cxperr.Corrupt (mismatched length)
// or cxperr.Decompression (bad/truncated frame) error on failure.
func Decompress(frame []byte, wantLen int) ([]byte, error) {
	out, err := gozstd.Decompress(nil, frame)
	if err != nil {
		return nil, cxperr.New(cxperr.Decompression, "", errors.Wrap(err, "zstd decode"))
	}
	if len(out) != wantLen {
		return nil, cxperr.New(cxperr.Corrupt, "", errors.Errorf("decompressed length %d, want %d", len(out), wantLen))
	}
	return out, nil
}
