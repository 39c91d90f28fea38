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

// Package container implements CXP's on-disk envelope: a ZIP file whose
// members are stored uncompressed (compression already happened at the
// chunk level) and whose names follow the fixed layout in the format
// spec — manifest.msgpack, file_map.msgpack, chunks/NNNNNNNN.zst,
// extensions/<ns>/manifest.msgpack, extensions/<ns>/<key>.
package container

import (
	"archive/zip"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/endgegnerbert-tech/cxp/cxperr"
)

const (
	manifestMember = "manifest.msgpack"
	fileMapMember  = "file_map.msgpack"
	chunkDir       = "chunks/"
	extensionDir   = "extensions/"
	extManifest    = "manifest.msgpack"

	// chunkDigits is the zero-padded width of a chunk member's decimal
	// index, giving stable lexicographic == numeric member ordering up
	// to 10^8 unique chunks.
	chunkDigits = 8
)

// ChunkMemberName returns the container member name for the chunk
// assigned decimal index.
func ChunkMemberName(index uint32) string {
	return fmt.Sprintf("%s%0*d.zst", chunkDir, chunkDigits, index)
}

// ExtensionManifestMemberName returns the member name for a namespace's
// own manifest.
func ExtensionManifestMemberName(namespace string) string {
	return extensionDir + namespace + "/" + extManifest
}

// ExtensionBlobMemberName returns the member name for one (namespace,
// key) blob.
func ExtensionBlobMemberName(namespace, key string) string {
	return extensionDir + namespace + "/" + key
}

// Writer emits a CXP container's members in the order the Builder
// pipeline's Sealed transition requires: unique chunks, the file map,
// each extension namespace, the manifest last. Every member is stored
// (no inner ZIP compression) since chunk bytes are already Zstandard
// frames and the metadata members are small.
type Writer struct {
	zw *zip.Writer
}

// NewWriter wraps w as a container writer. w is typically a temp file
// the caller renames into place on success.
func NewWriter(w io.Writer) *Writer {
	return &Writer{zw: zip.NewWriter(w)}
}

func (w *Writer) writeMember(name string, data []byte) error {
	hdr := &zip.FileHeader{Name: name, Method: zip.Store}
	fw, err := w.zw.CreateHeader(hdr)
	if err != nil {
		return cxperr.New(cxperr.IO, name, err)
	}
	if _, err := fw.Write(data); err != nil {
		return cxperr.New(cxperr.IO, name, err)
	}
	return nil
}

// WriteChunk stores one compressed chunk frame under its assigned index.
func (w *Writer) WriteChunk(index uint32, frame []byte) error {
	return w.writeMember(ChunkMemberName(index), frame)
}

// WriteFileMap stores the serialized FileMap.
func (w *Writer) WriteFileMap(data []byte) error {
	return w.writeMember(fileMapMember, data)
}

// WriteExtensionManifest stores one namespace's own manifest.
func (w *Writer) WriteExtensionManifest(namespace string, data []byte) error {
	return w.writeMember(ExtensionManifestMemberName(namespace), data)
}

// WriteExtensionBlob stores one (namespace, key) opaque blob.
func (w *Writer) WriteExtensionBlob(namespace, key string, data []byte) error {
	return w.writeMember(ExtensionBlobMemberName(namespace, key), data)
}

// WriteManifest stores the serialized Manifest. It must be the last
// member written before Close, per the Sealed transition.
func (w *Writer) WriteManifest(data []byte) error {
	return w.writeMember(manifestMember, data)
}

// Close flushes the ZIP central directory. After Close returns nil the
// underlying writer holds a complete, randomly-readable container.
func (w *Writer) Close() error {
	if err := w.zw.Close(); err != nil {
		return cxperr.New(cxperr.IO, "", err)
	}
	return nil
}

// Reader gives random access to an already-sealed container's members.
type Reader struct {
	zr      *zip.Reader
	byName  map[string]*zip.File
	nsKeys  map[string][]string
	nsOrder []string
}

// NewReader indexes ra's ZIP central directory by member name and
// groups extension members by namespace.
func NewReader(ra io.ReaderAt, size int64) (*Reader, error) {
	zr, err := zip.NewReader(ra, size)
	if err != nil {
		return nil, cxperr.New(cxperr.Corrupt, "", err)
	}

	r := &Reader{
		zr:     zr,
		byName: make(map[string]*zip.File, len(zr.File)),
		nsKeys: make(map[string][]string),
	}
	seenNS := make(map[string]bool)
	for _, f := range zr.File {
		r.byName[f.Name] = f
		if ns, key, ok := splitExtensionMember(f.Name); ok {
			if !seenNS[ns] {
				seenNS[ns] = true
				r.nsOrder = append(r.nsOrder, ns)
			}
			if key != extManifest {
				r.nsKeys[ns] = append(r.nsKeys[ns], key)
			}
		}
	}
	return r, nil
}

func splitExtensionMember(name string) (namespace, key string, ok bool) {
	rest, found := strings.CutPrefix(name, extensionDir)
	if !found {
		return "", "", false
	}
	idx := strings.IndexByte(rest, '/')
	if idx < 0 {
		return "", "", false
	}
	return rest[:idx], rest[idx+1:], true
}

func (r *Reader) read(name string) ([]byte, error) {
	f, ok := r.byName[name]
	if !ok {
		return nil, cxperr.New(cxperr.NotFound, name, nil)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, cxperr.New(cxperr.IO, name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, cxperr.New(cxperr.IO, name, err)
	}
	return data, nil
}

// Manifest returns the raw bytes of manifest.msgpack.
func (r *Reader) Manifest() ([]byte, error) {
	return r.read(manifestMember)
}

// FileMap returns the raw bytes of file_map.msgpack.
func (r *Reader) FileMap() ([]byte, error) {
	return r.read(fileMapMember)
}

// Chunk returns the raw compressed frame for the chunk at index.
func (r *Reader) Chunk(index uint32) ([]byte, error) {
	return r.read(ChunkMemberName(index))
}

// HasChunk reports whether a chunk member exists at index, without
// reading it.
func (r *Reader) HasChunk(index uint32) bool {
	_, ok := r.byName[ChunkMemberName(index)]
	return ok
}

// ChunkCount returns one past the highest assigned chunk index present,
// derived from the central directory rather than the Manifest — used
// as a cross-check, not as the primary addressing path (see
// Manifest.ChunkIndex).
func (r *Reader) ChunkCount() int {
	max := -1
	prefix := chunkDir
	for name := range r.byName {
		rest, ok := strings.CutPrefix(name, prefix)
		if !ok {
			continue
		}
		rest = strings.TrimSuffix(rest, ".zst")
		n, err := strconv.Atoi(rest)
		if err != nil {
			continue
		}
		if n > max {
			max = n
		}
	}
	return max + 1
}

// Namespaces returns the extension namespaces present, in the order
// their members first appear in the ZIP central directory — which, for
// a container this package wrote, is write (insertion) order.
func (r *Reader) Namespaces() []string {
	out := make([]string, len(r.nsOrder))
	copy(out, r.nsOrder)
	return out
}

// ExtensionKeys returns the blob keys present for namespace, in the
// order their members first appear in the ZIP central directory —
// which, for a container this package wrote, is write (insertion) order.
func (r *Reader) ExtensionKeys(namespace string) []string {
	keys := r.nsKeys[namespace]
	out := make([]string, len(keys))
	copy(out, keys)
	return out
}

// ExtensionManifest returns the raw bytes of a namespace's own manifest.
func (r *Reader) ExtensionManifest(namespace string) ([]byte, error) {
	return r.read(ExtensionManifestMemberName(namespace))
}

// ExtensionBlob returns the raw bytes of one (namespace, key) blob.
func (r *Reader) ExtensionBlob(namespace, key string) ([]byte, error) {
	return r.read(ExtensionBlobMemberName(namespace, key))
}
