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

// Resolver derives the ServiceIdentity of a runtime value.
// Typical chain: IdentifierStrategy -> RegistryStrategy -> ReflectStrategy.
type Resolver interface {
	// Resolve returns the identity of v, or "" if none can be determined.
	Resolve(v any, cfg Config) Identity
	// ResolveType returns the identity of t, or "" if none can be determined.
	ResolveType(t reflect.Type, cfg Config) Identity
}

// Strategy is a pluggable resolution step. A Resolver chains strategies in
// order until one handles the input.
type Strategy interface {
	// TryResolve attempts to resolve the identity of v.
	// It returns (id, true) if handled; otherwise ("", false) to fall through.
	TryResolve(v any, cfg Config) (id Identity, handled bool)
	// TryResolveType attempts to resolve the identity of t.
	TryResolveType(t reflect.Type, cfg Config) (id Identity, handled bool)
}

// Translator turns a definition identity into the identity of its handler.
type Translator interface {
	Translate(definition Identity) (Identity, error)
}
