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

package query

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/endgegnerbert-tech/cxp/build"
	"github.com/endgegnerbert-tech/cxp/reader"
)

func buildAndOpen(t *testing.T, files map[string][]byte) *reader.Reader {
	t.Helper()

	b := build.New(nil)
	for path, data := range files {
		data := data
		require.NoError(t, b.AddFile(path, func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		}))
	}

	out := filepath.Join(t.TempDir(), "archive.cxp")
	_, err := b.Build(context.Background(), out)
	require.NoError(t, err)

	r, err := reader.Open(out, nil)
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func TestScanFindsCaseInsensitiveMatch(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	r := buildAndOpen(t, map[string][]byte{
		"a.txt": []byte("line one\nFOOBAR is here\nline three\n"),
		"b.txt": []byte("nothing to see\n"),
	})

	var got []FileMatches
	emitted, err := Scan(context.Background(), r, "foobar", DefaultOptions(), func(fm FileMatches) {
		got = append(got, fm)
	})
	require.NoError(err)
	assert.Equal(1, emitted)
	require.Len(got, 1)
	assert.Equal("a.txt", got[0].Path)
	require.Len(got[0].Matches, 1)
	assert.Equal(2, got[0].Matches[0].LineNumber)
	assert.Equal("FOOBAR is here", got[0].Matches[0].Line)
	assert.Equal([]string{"line one"}, got[0].Matches[0].Before)
	assert.Equal([]string{"line three"}, got[0].Matches[0].After)
}

func TestScanSkipsBinaryFiles(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	r := buildAndOpen(t, map[string][]byte{
		"binary.bin": {0x00, 0xff, 0xfe, 0x00, 'n', 'e', 'e', 'd', 'l', 'e'},
		"text.txt":   []byte("needle here\n"),
	})

	var got []FileMatches
	emitted, err := Scan(context.Background(), r, "needle", DefaultOptions(), func(fm FileMatches) {
		got = append(got, fm)
	})
	require.NoError(err)
	assert.Equal(1, emitted)
	require.Len(got, 1)
	assert.Equal("text.txt", got[0].Path)
}

func TestScanRespectsLimit(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	r := buildAndOpen(t, map[string][]byte{
		"a.txt": []byte("needle\n"),
		"b.txt": []byte("needle\n"),
		"c.txt": []byte("needle\n"),
	})

	emitted, err := Scan(context.Background(), r, "needle", Options{Limit: 2, Context: 0}, func(FileMatches) {})
	require.NoError(err)
	assert.Equal(2, emitted)
}

func TestScanContextClampedAtBoundaries(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	r := buildAndOpen(t, map[string][]byte{
		"a.txt": []byte("needle\nsecond line"),
	})

	var got []FileMatches
	_, err := Scan(context.Background(), r, "needle", Options{Limit: 10, Context: 2}, func(fm FileMatches) {
		got = append(got, fm)
	})
	require.NoError(err)
	require.Len(got, 1)
	require.Len(got[0].Matches, 1)
	assert.Empty(got[0].Matches[0].Before)
	assert.Equal([]string{"second line"}, got[0].Matches[0].After)
}

func TestScanRejectsInvalidOptions(t *testing.T) {
	r := buildAndOpen(t, map[string][]byte{"a.txt": []byte("x")})

	_, err := Scan(context.Background(), r, "x", Options{Limit: 0, Context: 2}, func(FileMatches) {})
	assert.Error(t, err)

	_, err = Scan(context.Background(), r, "x", Options{Limit: 1, Context: -1}, func(FileMatches) {})
	assert.Error(t, err)
}

func TestScanCancellation(t *testing.T) {
	r := buildAndOpen(t, map[string][]byte{
		"a.txt": []byte("needle\n"),
		"b.txt": []byte("needle\n"),
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Scan(ctx, r, "needle", DefaultOptions(), func(FileMatches) {})
	assert.Error(t, err)
}
