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

package translator

import (
	"strings"

	"dirpx.dev/svx/apis"
)

// Translator maps definition identities to handler identities according to
// the naming conventions of a Config. It holds no mutable state and is safe
// for concurrent use.
type Translator struct {
	cfg apis.Config
	// from is the segment run locating definitions inside a namespace:
	// ServiceRoot[.DefinitionsSegment].
	from []string
	// to replaces from in handler namespaces: ServiceRoot[.HandlersSegment].
	to []string
}

// Ensure Translator implements apis.Translator.
var _ apis.Translator = (*Translator)(nil)

// New constructs a Translator for cfg.
func New(cfg apis.Config) *Translator {
	return &Translator{
		cfg:  cfg,
		from: apis.Join(cfg.ServiceRoot, cfg.DefinitionsSegment).Segments(),
		to:   apis.Join(cfg.ServiceRoot, cfg.HandlersSegment).Segments(),
	}
}

// Translate returns the handler identity for definition.
//
// The base name loses a duplicated definition suffix (when collapsing is
// enabled) and gains the handler suffix. The namespace keeps its prefix and
// nested segments; only the ServiceRoot[.DefinitionsSegment] run is swapped
// for ServiceRoot[.HandlersSegment]. A definition outside that run keeps
// its namespace.
func (t *Translator) Translate(definition apis.Identity) (apis.Identity, error) {
	if err := check(definition); err != nil {
		return "", err
	}

	base := t.stem(definition.Base()) + t.cfg.HandlerSuffix
	ns := definition.Namespace().Segments()
	if i := index(ns, t.from); i >= 0 {
		swapped := make([]string, 0, len(ns)-len(t.from)+len(t.to))
		swapped = append(swapped, ns[:i]...)
		swapped = append(swapped, t.to...)
		swapped = append(swapped, ns[i+len(t.from):]...)
		ns = swapped
	}

	handler := apis.Join(append(ns, base)...)
	if handler == definition {
		return "", &apis.ConfigurationError{
			Option: "HandlerSuffix",
			Reason: "handler identity " + handler.String() + " aliases its definition",
		}
	}
	return handler, nil
}

// DefinitionIdentity normalizes a requested definition name, relative to the
// definitions namespace, into a full identity. Both "/" and "." separate
// nested segments, so "Posts/CreatePost" and "Posts.CreatePostService"
// yield the same identity when collapsing is enabled.
func (t *Translator) DefinitionIdentity(name string) (apis.Identity, error) {
	name = strings.Trim(strings.ReplaceAll(name, "/", apis.Separator), apis.Separator)
	rel := apis.Identity(name)
	if err := check(rel); err != nil {
		return "", err
	}

	segs := []string{t.cfg.RootNamespace}
	segs = append(segs, t.from...)
	segs = append(segs, rel.Namespace().Segments()...)
	segs = append(segs, t.stem(rel.Base())+t.cfg.DefinitionSuffix)
	return apis.Join(segs...), nil
}

// stem strips the definition suffix from base when collapsing is enabled.
// A base that is nothing but the suffix is kept as is.
func (t *Translator) stem(base string) string {
	s := t.cfg.DefinitionSuffix
	if t.cfg.CollapseDuplicateSuffix && s != "" && len(base) > len(s) && strings.HasSuffix(base, s) {
		return strings.TrimSuffix(base, s)
	}
	return base
}

// check rejects empty and malformed identities.
func check(id apis.Identity) error {
	if id.IsZero() {
		return apis.ErrEmptyIdentity
	}
	if !id.Valid() {
		return apis.ErrMalformedIdentity
	}
	return nil
}

// index returns the position of the first run of sub inside segs, or -1.
func index(segs, sub []string) int {
	if len(sub) == 0 || len(sub) > len(segs) {
		return -1
	}
outer:
	for i := 0; i+len(sub) <= len(segs); i++ {
		for j := range sub {
			if segs[i+j] != sub[j] {
				continue outer
			}
		}
		return i
	}
	return -1
}
