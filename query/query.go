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

// Package query implements a literal-substring scan over an opened
// archive: sorted-path order, binary files skipped silently, matching
// lines reported with surrounding context.
package query

import (
	"context"
	"io"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/endgegnerbert-tech/cxp/cxperr"
	"github.com/endgegnerbert-tech/cxp/reader"
)

// Options controls a Scan.
type Options struct {
	// Limit is the number of files with at least one hit after which
	// scanning stops. Must be positive.
	Limit int
	// Context is the number of lines of context collected before and
	// after a matching line. Must be non-negative.
	Context int
}

// DefaultOptions returns the spec-default (Limit: 10, Context: 2).
func DefaultOptions() Options {
	return Options{Limit: 10, Context: 2}
}

func (o Options) validate() error {
	if o.Limit <= 0 {
		return cxperr.New(cxperr.InvalidInput, "limit", nil)
	}
	if o.Context < 0 {
		return cxperr.New(cxperr.InvalidInput, "context", nil)
	}
	return nil
}

// Match is one matching line within a file, with its surrounding
// context clamped at the file's boundaries.
type Match struct {
	LineNumber int
	Line       string
	Before     []string
	After      []string
}

// FileMatches bundles every Match found in one file.
type FileMatches struct {
	Path    string
	Matches []Match
}

// Sink receives one FileMatches per file that had at least one hit, in
// sorted-path order.
type Sink func(FileMatches)

// Scan iterates r's files in sorted-path order, searching each for a
// case-insensitive occurrence of needle. Files whose bytes are not
// valid UTF-8 are treated as binary and skipped silently. Scanning
// stops once opts.Limit files with a hit have been emitted to sink, or
// ctx is cancelled. It returns the number of files emitted.
func Scan(ctx context.Context, r *reader.Reader, needle string, opts Options, sink Sink) (int, error) {
	if err := opts.validate(); err != nil {
		return 0, err
	}

	files := r.ListFiles()
	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.Path
	}
	sort.Strings(paths)

	needleLower := strings.ToLower(needle)
	emitted := 0

	for _, path := range paths {
		if emitted >= opts.Limit {
			break
		}
		select {
		case <-ctx.Done():
			return emitted, cxperr.New(cxperr.Cancelled, path, ctx.Err())
		default:
		}

		data, err := readAll(r, path)
		if err != nil {
			return emitted, err
		}
		if !utf8.Valid(data) {
			continue
		}

		matches := scanLines(string(data), needleLower, opts.Context)
		if len(matches) == 0 {
			continue
		}
		sink(FileMatches{Path: path, Matches: matches})
		emitted++
	}
	return emitted, nil
}

func readAll(r *reader.Reader, path string) ([]byte, error) {
	s, err := r.StreamFile(path)
	if err != nil {
		return nil, err
	}
	defer s.Close()
	return io.ReadAll(s)
}

func scanLines(content, needleLower string, contextLines int) []Match {
	lines := strings.Split(content, "\n")
	// A trailing "\n" produces one trailing empty element that is not a
	// line of the file; a missing trailing newline leaves a genuine
	// partial final line, which is kept.
	if strings.HasSuffix(content, "\n") && len(lines) > 0 {
		lines = lines[:len(lines)-1]
	}

	var matches []Match
	for i, line := range lines {
		if !strings.Contains(strings.ToLower(line), needleLower) {
			continue
		}
		before := lines[max(0, i-contextLines):i]
		after := lines[i+1 : min(len(lines), i+1+contextLines)]
		matches = append(matches, Match{
			LineNumber: i + 1,
			Line:       line,
			Before:     append([]string(nil), before...),
			After:      append([]string(nil), after...),
		})
	}
	return matches
}
