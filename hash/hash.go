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

// Package hash implements CXP's content id: the SHA-256 digest used both
// to name a chunk and as the key in the build-time dedup table.
package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ByteLen is the width of a content id in bytes.
const ByteLen = sha256.Size

// Hash is a 32-byte SHA-256 digest, used as a chunk's content id.
type Hash [ByteLen]byte

var emptyHash = Hash{}

// Of returns the content id of data.
func Of(data []byte) Hash {
	return Hash(sha256.Sum256(data))
}

// New wraps a digest that has already been computed elsewhere.
func New(digest [ByteLen]byte) Hash {
	return Hash(digest)
}

// Parse decodes a 64-character hex string into a Hash, panicking if s is
// not a well-formed digest. Callers that receive untrusted input should use
// MaybeParse instead.
func Parse(s string) Hash {
	h, ok := MaybeParse(s)
	if !ok {
		panic("invalid hash: " + s)
	}
	return h
}

// MaybeParse decodes a 64-character hex string into a Hash.
func MaybeParse(s string) (Hash, bool) {
	if len(s) != ByteLen*2 {
		return emptyHash, false
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return emptyHash, false
	}
	var h Hash
	copy(h[:], b)
	return h, true
}

// IsEmpty reports whether h is the zero value.
func (h Hash) IsEmpty() bool {
	return h == emptyHash
}

// String renders h as lowercase hex.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// Less reports whether h sorts before other, treating a Hash as a big-endian
// unsigned integer.
func (h Hash) Less(other Hash) bool {
	return h.Compare(other) < 0
}

// Compare orders hashes the same way bytes.Compare orders byte slices.
func (h Hash) Compare(other Hash) int {
	for i := range h {
		if h[i] != other[i] {
			if h[i] < other[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// MarshalMsgpack renders h as its raw 32 bytes, so a Hash round-trips
// through MessagePack as a compact bin value rather than an array of
// integers.
func (h Hash) MarshalMsgpack() ([]byte, error) {
	return h[:], nil
}

// UnmarshalMsgpack reads back the raw bytes written by MarshalMsgpack.
func (h *Hash) UnmarshalMsgpack(b []byte) error {
	if len(b) != ByteLen {
		return fmt.Errorf("hash: invalid encoded length %d", len(b))
	}
	copy(h[:], b)
	return nil
}

// Slice is a sortable list of Hashes.
type Slice []Hash

func (s Slice) Len() int           { return len(s) }
func (s Slice) Less(i, j int) bool { return s[i].Less(s[j]) }
func (s Slice) Swap(i, j int)      { s[i], s[j] = s[j], s[i] }

// Equals reports whether two slices contain the same hashes in the same order.
func (s Slice) Equals(other Slice) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}
