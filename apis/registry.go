/*
   Copyright 2025 The DIRPX Authors.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

package apis

import "reflect"

// Registry maps service identities to handler identities.
//
// Two layers compose it: explicit entries (Map) and discovered entries
// (SetDiscovered). Explicit entries always mask discovered ones for the same
// key. Readers must never observe a partially applied write.
type Registry interface {
	// Map merges m into the explicit layer. Later calls overwrite earlier
	// ones per key.
	Map(m Mapping) error
	// SetDiscovered replaces the whole discovered layer.
	SetDiscovered(m Mapping) error
	// Resolve returns the explicit entry for id if present, else the
	// discovered one.
	Resolve(id Identity) (Identity, bool)
	// HasHandler reports whether Resolve would succeed.
	HasHandler(id Identity) bool
	// Explicit returns a copy of the explicit layer.
	Explicit() Mapping
	// Discovered returns a copy of the discovered layer.
	Discovered() Mapping
	// Entries returns the effective mapping (explicit over discovered).
	Entries() Mapping
	// Count returns the number of effective entries.
	Count() int
	// Reset clears both layers.
	Reset()
}

// TypeRegistry provides a reflection-free lookup of identities for known
// Go types.
type TypeRegistry interface {
	// Register associates the (pointer-unwrapped) type t with id.
	// Re-registering the same pair is a no-op; a different id is an error.
	Register(t reflect.Type, id Identity) error
	// Lookup returns the identity registered for t.
	Lookup(t reflect.Type) (Identity, bool)
	// Entries returns a snapshot for diagnostics (order is unspecified).
	Entries() []TypeEntry
	// Count returns the number of registered entries.
	Count() int
}

// TypeEntry is a single (type, identity) association.
type TypeEntry struct {
	Type     reflect.Type
	Identity Identity
}
