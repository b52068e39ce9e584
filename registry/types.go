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

package registry

import (
	"errors"
	"reflect"
	"sync"

	"dirpx.dev/svx/apis"
	"dirpx.dev/svx/config"
	uref "dirpx.dev/svx/utils/reflect"
)

var (
	// ErrNilType is returned when a nil reflect.Type is provided.
	ErrNilType = errors.New("svx(registry): nil reflect.Type provided")
	// ErrConflictingRegistration indicates an attempt to re-register
	// a type with a different identity.
	ErrConflictingRegistration = errors.New("svx(registry): conflicting type registration")
)

// NewTypes constructs a TypeRegistry that unwraps pointers up to
// maxUnwrap levels before registering or looking up a type.
func NewTypes(maxUnwrap int) apis.TypeRegistry {
	if maxUnwrap <= 0 {
		maxUnwrap = config.DefaultMaxUnwrap
	}
	return &types{maxUnwrap: maxUnwrap}
}

// types is a TypeRegistry backed by sync.Map.
type types struct {
	maxUnwrap int
	// mu guards write-side consistency and counter
	mu sync.Mutex
	// m maps reflect.Type to apis.Identity.
	m sync.Map
	// count tracks the number of registered entries.
	count int
}

// Register associates the named type behind t with id.
// It is idempotent for the same (type, identity) pair.
func (r *types) Register(t reflect.Type, id apis.Identity) error {
	if t == nil {
		return ErrNilType
	}
	if id.IsZero() {
		return apis.ErrEmptyIdentity
	}
	if !id.Valid() {
		return apis.ErrMalformedIdentity
	}

	b, err := uref.Normalize(t, r.maxUnwrap)
	if err != nil {
		return err
	}

	// Fast read path: idempotency / conflict check without locking.
	if old, ok := r.m.Load(b); ok {
		if old.(apis.Identity) == id {
			return nil
		}
		return ErrConflictingRegistration
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Re-check under lock in case another goroutine stored meanwhile.
	if old, ok := r.m.Load(b); ok {
		if old.(apis.Identity) == id {
			return nil
		}
		return ErrConflictingRegistration
	}

	r.m.Store(b, id)
	r.count++
	return nil
}

// Lookup returns the identity registered for t.
func (r *types) Lookup(t reflect.Type) (apis.Identity, bool) {
	if t == nil {
		return "", false
	}
	nt, err := uref.Normalize(t, r.maxUnwrap)
	if err != nil {
		return "", false
	}
	if v, ok := r.m.Load(nt); ok {
		return v.(apis.Identity), true
	}
	return "", false
}

// Entries returns a snapshot for diagnostics (order is unspecified).
func (r *types) Entries() []apis.TypeEntry {
	entries := make([]apis.TypeEntry, 0, r.Count())
	r.m.Range(func(key, value any) bool {
		entries = append(entries, apis.TypeEntry{
			Type:     key.(reflect.Type),
			Identity: value.(apis.Identity),
		})
		return true
	})
	return entries
}

// Count returns the number of registered entries.
func (r *types) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}
