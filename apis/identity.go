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

import "strings"

// Separator joins namespace segments of an Identity.
const Separator = "."

// Identity is the fully-qualified type name of a service definition or of a
// handler, e.g. "App.Services.Definitions.CreatePostService".
//
// Identities are plain values. They are derived per call (from a runtime
// value) or per scan (from a file path) and never mutated.
type Identity string

// String implements fmt.Stringer.
func (id Identity) String() string { return string(id) }

// IsZero reports whether id is empty.
func (id Identity) IsZero() bool { return id == "" }

// Valid reports whether id is non-empty and has no empty segment.
func (id Identity) Valid() bool {
	if id == "" {
		return false
	}
	for _, s := range id.Segments() {
		if s == "" {
			return false
		}
	}
	return true
}

// Segments splits id on Separator.
func (id Identity) Segments() []string {
	if id == "" {
		return nil
	}
	return strings.Split(string(id), Separator)
}

// Base returns the last segment of id (the type name).
func (id Identity) Base() string {
	s := string(id)
	if i := strings.LastIndex(s, Separator); i >= 0 {
		return s[i+len(Separator):]
	}
	return s
}

// Namespace returns everything before the last segment, or "" if id has a
// single segment.
func (id Identity) Namespace() Identity {
	s := string(id)
	if i := strings.LastIndex(s, Separator); i >= 0 {
		return Identity(s[:i])
	}
	return ""
}

// Join builds an Identity from segments, skipping empty ones.
func Join(segments ...string) Identity {
	out := make([]string, 0, len(segments))
	for _, s := range segments {
		if s != "" {
			out = append(out, s)
		}
	}
	return Identity(strings.Join(out, Separator))
}

// Mapping associates a service identity with its handler identity.
type Mapping map[Identity]Identity

// Clone returns a shallow copy of m. A nil m yields an empty, non-nil Mapping.
func (m Mapping) Clone() Mapping {
	out := make(Mapping, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Identifier is the zero-reflection fast path for resolving the identity of
// a service value. Implementations must return a constant per type.
type Identifier interface {
	Identity() Identity
}
