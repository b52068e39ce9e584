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

package resolver

import (
	"reflect"

	"dirpx.dev/svx/apis"
)

// New returns the resolver that derives ServiceIdentities for the
// dispatcher. Strategies are consulted in order, nil ones dropped. The first
// well-formed identity wins: a strategy answering with a malformed one, such
// as an Identifier returning "App..CreatePost", is passed over so the
// registry is never queried with an identity it would refuse to store.
func New(strategies ...apis.Strategy) apis.Resolver {
	steps := make([]apis.Strategy, 0, len(strategies))
	for _, s := range strategies {
		if s != nil {
			steps = append(steps, s)
		}
	}
	return chain(steps)
}

// chain is the immutable strategy order of one resolver.
type chain []apis.Strategy

// Resolve returns the identity of the service value v.
func (c chain) Resolve(v any, cfg apis.Config) apis.Identity {
	return c.first(func(s apis.Strategy) (apis.Identity, bool) { return s.TryResolve(v, cfg) })
}

// ResolveType returns the identity of the service type t.
func (c chain) ResolveType(t reflect.Type, cfg apis.Config) apis.Identity {
	return c.first(func(s apis.Strategy) (apis.Identity, bool) { return s.TryResolveType(t, cfg) })
}

func (c chain) first(try func(apis.Strategy) (apis.Identity, bool)) apis.Identity {
	for _, s := range c {
		if id, ok := try(s); ok && id.Valid() {
			return id
		}
	}
	return ""
}
