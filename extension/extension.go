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

// Package extension implements CXP's namespaced side-channel: host
// applications attach opaque, versioned blobs to an archive under a
// namespace the core never interprets.
package extension

import (
	"regexp"
	"strings"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/endgegnerbert-tech/cxp/cxperr"
)

var namespacePattern = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)

// ValidNamespace reports whether ns is file-safe per the registry's
// namespace rule.
func ValidNamespace(ns string) bool {
	return namespacePattern.MatchString(ns)
}

// ValidKey reports whether key is file-safe: non-empty and free of path
// separators.
func ValidKey(key string) bool {
	if key == "" {
		return false
	}
	return !strings.ContainsAny(key, "/\\")
}

// Manifest is the small per-namespace record stored alongside a
// namespace's blobs; it carries a caller-supplied version string the
// core never parses.
type Manifest struct {
	Namespace string   `msgpack:"namespace"`
	Version   string   `msgpack:"version"`
	Keys      []string `msgpack:"keys"`
}

// Marshal encodes a namespace Manifest as MessagePack.
func (m *Manifest) Marshal() ([]byte, error) {
	b, err := msgpack.Marshal(m)
	if err != nil {
		return nil, cxperr.New(cxperr.Serialization, m.Namespace, err)
	}
	return b, nil
}

// Unmarshal decodes a namespace Manifest previously produced by Marshal.
func Unmarshal(b []byte) (*Manifest, error) {
	var m Manifest
	if err := msgpack.Unmarshal(b, &m); err != nil {
		return nil, cxperr.New(cxperr.Corrupt, "", err)
	}
	return &m, nil
}

// Namespace is one host-supplied namespace under construction: a
// version tag plus its key -> blob map, in insertion order.
type Namespace struct {
	Name    string
	Version string
	order   []string
	blobs   map[string][]byte
}

// NewNamespace validates name and returns an empty Namespace ready to
// accept blobs.
func NewNamespace(name, version string) (*Namespace, error) {
	if !ValidNamespace(name) {
		return nil, cxperr.New(cxperr.InvalidInput, name, nil)
	}
	return &Namespace{
		Name:    name,
		Version: version,
		blobs:   make(map[string][]byte),
	}, nil
}

// Put attaches a blob under key, validating key safety and uniqueness
// within this namespace.
func (n *Namespace) Put(key string, data []byte) error {
	if !ValidKey(key) {
		return cxperr.New(cxperr.InvalidInput, n.Name+"/"+key, nil)
	}
	if _, exists := n.blobs[key]; exists {
		return cxperr.New(cxperr.InvalidInput, n.Name+"/"+key, nil)
	}
	n.blobs[key] = data
	n.order = append(n.order, key)
	return nil
}

// Keys returns every key in this namespace, in insertion order.
func (n *Namespace) Keys() []string {
	out := make([]string, len(n.order))
	copy(out, n.order)
	return out
}

// Get returns the blob stored under key.
func (n *Namespace) Get(key string) ([]byte, bool) {
	b, ok := n.blobs[key]
	return b, ok
}

// Manifest builds the serializable Manifest for this namespace.
func (n *Namespace) Manifest() *Manifest {
	return &Manifest{Namespace: n.Name, Version: n.Version, Keys: n.Keys()}
}

// Registry tracks the set of namespaces attached to a single build,
// rejecting duplicate namespace names.
type Registry struct {
	order      []string
	namespaces map[string]*Namespace
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{namespaces: make(map[string]*Namespace)}
}

// Add registers ns, failing if its name collides with one already
// present in this build.
func (r *Registry) Add(ns *Namespace) error {
	if _, exists := r.namespaces[ns.Name]; exists {
		return cxperr.New(cxperr.InvalidInput, ns.Name, nil)
	}
	r.namespaces[ns.Name] = ns
	r.order = append(r.order, ns.Name)
	return nil
}

// Namespaces returns the registered namespaces in insertion order.
func (r *Registry) Namespaces() []*Namespace {
	out := make([]*Namespace, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.namespaces[name])
	}
	return out
}

// Names returns the registered namespace names in insertion order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len reports how many namespaces are registered.
func (r *Registry) Len() int {
	return len(r.order)
}
