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

package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/endgegnerbert-tech/cxp/cxperr"
)

func TestNewPopulatesVersion(t *testing.T) {
	m := New()
	assert.Equal(t, Version, m.Version)
	assert.False(t, m.CreatedAt.IsZero())
}

func TestMarshalRoundTrip(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	m := New()
	m.BuildID = "11111111-1111-1111-1111-111111111111"
	m.CompressionLevel = 3
	m.Stats = Stats{
		FileCount:           2,
		TotalOriginalBytes:  100,
		TotalPackedBytes:    40,
		CompressionRatio:    2.5,
		UniqueChunkCount:    3,
		DedupSavingsPercent: 60,
	}
	m.Extensions["rs"] = ExtensionInfo{Count: 2, Category: "source"}
	m.Namespaces = []string{"embeddings"}
	m.ChunkIndex["deadbeef"] = 0

	b, err := m.Marshal()
	require.NoError(err)

	back, err := Unmarshal(b)
	require.NoError(err)

	assert.Equal(m.BuildID, back.BuildID)
	assert.Equal(m.CompressionLevel, back.CompressionLevel)
	assert.Equal(m.Stats, back.Stats)
	assert.Equal(m.Extensions["rs"], back.Extensions["rs"])
	assert.Equal(m.Namespaces, back.Namespaces)
	assert.Equal(uint32(0), back.ChunkIndex["deadbeef"])
}

func TestUnmarshalRejectsMajorVersionMismatch(t *testing.T) {
	m := New()
	m.Version = "2.0.0"

	b, err := m.Marshal()
	require.NoError(t, err)

	_, err = Unmarshal(b)
	require.Error(t, err)
	assert.True(t, cxperr.Is(err, cxperr.FormatVersion))
}

func TestUnmarshalAcceptsMinorVersionDrift(t *testing.T) {
	m := New()
	m.Version = "1.7.0"

	b, err := m.Marshal()
	require.NoError(t, err)

	back, err := Unmarshal(b)
	require.NoError(t, err)
	assert.Equal(t, "1.7.0", back.Version)
}

func TestUnmarshalRejectsGarbage(t *testing.T) {
	_, err := Unmarshal([]byte("not msgpack"))
	require.Error(t, err)
	assert.True(t, cxperr.Is(err, cxperr.Corrupt))
}
