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

package reader

import (
	"io"

	"github.com/endgegnerbert-tech/cxp/chunk"
)

// fileStream yields a file's chunks as decompressed bytes, one chunk at
// a time, without holding the whole file in memory at once.
type fileStream struct {
	r       *Reader
	refs    []chunk.Ref
	pos     int
	current []byte
	off     int
}

func (s *fileStream) Read(p []byte) (int, error) {
	for s.off >= len(s.current) {
		if s.pos >= len(s.refs) {
			return 0, io.EOF
		}
		data, err := s.r.readChunk(s.refs[s.pos])
		if err != nil {
			return 0, err
		}
		s.current = data
		s.off = 0
		s.pos++
	}
	n := copy(p, s.current[s.off:])
	s.off += n
	return n, nil
}

func (s *fileStream) Close() error {
	return nil
}
