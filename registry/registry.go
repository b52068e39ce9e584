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
	"fmt"
	"sync"
	"sync/atomic"

	"dirpx.dev/svx/apis"
)

// New constructs an empty handler Registry.
func New() apis.Registry {
	r := &registry{}
	r.snap.Store(&snapshot{})
	return r
}

// registry keeps its layers in an immutable snapshot. Readers load the
// current snapshot without locking; writers serialize on mu, build a new
// snapshot and publish it with a single atomic store, so a reader sees
// either the previous or the next mapping in full.
type registry struct {
	// mu serializes writers.
	mu sync.Mutex
	// snap is the published snapshot. Never mutate a published snapshot.
	snap atomic.Pointer[snapshot]
}

// snapshot is one published state of the registry.
type snapshot struct {
	explicit   apis.Mapping
	discovered apis.Mapping
	// effective is explicit over discovered, precomputed for lookups.
	effective apis.Mapping
}

// Ensure registry implements apis.Registry.
var _ apis.Registry = (*registry)(nil)

// Map merges m into the explicit layer; later calls overwrite earlier ones
// per key. Nothing is published if any pair is invalid.
func (r *registry) Map(m apis.Mapping) error {
	if err := validate(m); err != nil {
		return err
	}
	if len(m) == 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	old := r.snap.Load()
	explicit := old.explicit.Clone()
	for k, v := range m {
		explicit[k] = v
	}
	r.snap.Store(compose(explicit, old.discovered))
	return nil
}

// SetDiscovered replaces the discovered layer with m.
func (r *registry) SetDiscovered(m apis.Mapping) error {
	if err := validate(m); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	old := r.snap.Load()
	r.snap.Store(compose(old.explicit, m.Clone()))
	return nil
}

// Resolve returns the explicit entry for id if present, else the discovered one.
func (r *registry) Resolve(id apis.Identity) (apis.Identity, bool) {
	if id == "" {
		return "", false
	}
	h, ok := r.snap.Load().effective[id]
	return h, ok
}

// HasHandler reports whether id resolves to a handler.
func (r *registry) HasHandler(id apis.Identity) bool {
	_, ok := r.Resolve(id)
	return ok
}

// Explicit returns a copy of the explicit layer.
func (r *registry) Explicit() apis.Mapping {
	return r.snap.Load().explicit.Clone()
}

// Discovered returns a copy of the discovered layer.
func (r *registry) Discovered() apis.Mapping {
	return r.snap.Load().discovered.Clone()
}

// Entries returns a copy of the effective mapping.
func (r *registry) Entries() apis.Mapping {
	return r.snap.Load().effective.Clone()
}

// Count returns the number of effective entries.
func (r *registry) Count() int {
	return len(r.snap.Load().effective)
}

// Reset clears both layers.
func (r *registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snap.Store(&snapshot{})
}

// compose builds a snapshot owning explicit and discovered.
func compose(explicit, discovered apis.Mapping) *snapshot {
	effective := make(apis.Mapping, len(explicit)+len(discovered))
	for k, v := range discovered {
		effective[k] = v
	}
	for k, v := range explicit {
		effective[k] = v
	}
	return &snapshot{explicit: explicit, discovered: discovered, effective: effective}
}

// validate rejects mappings with empty or malformed identities.
func validate(m apis.Mapping) error {
	for k, v := range m {
		for _, id := range [2]apis.Identity{k, v} {
			if id.IsZero() {
				return fmt.Errorf("svx(registry): %w in pair %q -> %q", apis.ErrEmptyIdentity, k, v)
			}
			if !id.Valid() {
				return fmt.Errorf("svx(registry): %w in pair %q -> %q", apis.ErrMalformedIdentity, k, v)
			}
		}
	}
	return nil
}
