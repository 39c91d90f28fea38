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

package build

import (
	"path/filepath"
	"strings"

	"github.com/endgegnerbert-tech/cxp/filemap"
)

var sourceExtensions = map[string]bool{
	".go": true, ".rs": true, ".py": true, ".js": true, ".ts": true,
	".tsx": true, ".jsx": true, ".java": true, ".c": true, ".h": true,
	".cpp": true, ".hpp": true, ".rb": true, ".php": true, ".cs": true,
	".swift": true, ".kt": true, ".scala": true, ".sh": true,
}

var configExtensions = map[string]bool{
	".json": true, ".yaml": true, ".yml": true, ".toml": true,
	".ini": true, ".cfg": true, ".conf": true, ".env": true,
}

var docsExtensions = map[string]bool{
	".md": true, ".rst": true, ".txt": true, ".adoc": true,
}

var dataExtensions = map[string]bool{
	".csv": true, ".tsv": true, ".parquet": true, ".db": true,
	".sqlite": true, ".json5": true, ".ndjson": true,
}

// categorize assigns a Category from a logical path's extension. It is
// a heuristic, not a content sniff — unrecognized extensions fall back
// to CategoryUnknown.
func categorize(path string) filemap.Category {
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case sourceExtensions[ext]:
		return filemap.CategorySource
	case configExtensions[ext]:
		return filemap.CategoryConfig
	case docsExtensions[ext]:
		return filemap.CategoryDocs
	case dataExtensions[ext]:
		return filemap.CategoryData
	default:
		return filemap.CategoryUnknown
	}
}

// extensionKey strips the leading dot so it can key Manifest.Extensions
// the way the format's "extension -> category" field expects.
func extensionKey(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	return strings.TrimPrefix(ext, ".")
}
