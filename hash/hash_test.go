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

package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseError(t *testing.T) {
	assert := assert.New(t)

	assertParseError := func(s string) {
		assert.Panics(func() {
			Parse(s)
		})
	}

	assertParseError("foo")
	// too few hex digits
	assertParseError("0000000000000000000000000000000000000000000000000000000000000000"[:63])
	// too many hex digits
	assertParseError("0000000000000000000000000000000000000000000000000000000000000000aa")
	// 'z' is not valid hex
	assertParseError("000000000000000000000000000000000000000000000000000000000000zz")

	zero := "0000000000000000000000000000000000000000000000000000000000000000"[:64]
	r := Parse(zero)
	assert.True(r.IsEmpty())
}

func TestMaybeParse(t *testing.T) {
	assert := assert.New(t)

	parse := func(s string, success bool) {
		r, ok := MaybeParse(s)
		assert.Equal(success, ok, "Expected success=%t for %s", success, s)
		if ok {
			assert.Equal(s, r.String())
		} else {
			assert.Equal(emptyHash, r)
		}
	}

	zero := "0000000000000000000000000000000000000000000000000000000000000000"[:64]
	parse(zero, true)
	parse("", false)
	parse("not-hex-at-all-just-some-garbage-text-of-the-wrong-length-here", false)
	parse(zero+"a", false)
}

func TestEquals(t *testing.T) {
	assert := assert.New(t)

	h0 := Of([]byte("abc"))
	h0Again := Of([]byte("abc"))
	h1 := Of([]byte("abd"))

	assert.Equal(h0, h0Again)
	assert.Equal(h0Again, h0)
	assert.NotEqual(h0, h1)
	assert.NotEqual(h1, h0)
}

func TestString(t *testing.T) {
	h := Of([]byte("abc"))
	assert.Equal(t, 64, len(h.String()))
	assert.Equal(t, h, Parse(h.String()))
}

func TestOf(t *testing.T) {
	h := Of([]byte("abc"))
	// See http://www.di-mgt.com.au/sha_testvectors.html
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", h.String())
}

func TestIsEmpty(t *testing.T) {
	r1 := Hash{}
	assert.True(t, r1.IsEmpty())

	r2 := Of([]byte("abc"))
	assert.False(t, r2.IsEmpty())
}

func TestLess(t *testing.T) {
	assert := assert.New(t)

	r1 := Hash{}
	r1[0] = 1
	r2 := Hash{}
	r2[0] = 2

	assert.False(r1.Less(r1))
	assert.True(r1.Less(r2))
	assert.False(r2.Less(r1))
	assert.False(r2.Less(r2))
}

func TestCompare(t *testing.T) {
	assert := assert.New(t)

	r1 := Hash{}
	r1[0] = 1
	r2 := Hash{}
	r2[0] = 2

	assert.True(r1.Compare(r1) == 0)
	assert.True(r1.Compare(r2) < 0)
	assert.True(r2.Compare(r1) > 0)
}
