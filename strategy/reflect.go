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

package strategy

import (
	"reflect"
	"strings"
	"sync"

	"dirpx.dev/svx/apis"
	uref "dirpx.dev/svx/utils/reflect"
)

// NewReflectStrategy creates an apis.Strategy that derives identities from
// a type's import path and name, with memoization.
func NewReflectStrategy() apis.Strategy {
	return reflectStrategy{}
}

// reflectStrategy is the universal fallback. The import path below
// Config.ModulePath becomes namespace segments under Config.RootNamespace:
// with ModulePath "example.com/app", the type CreatePostService in
// "example.com/app/Services/Definitions" resolves to
// "App.Services.Definitions.CreatePostService". Types outside ModulePath
// keep their full import path as namespace.
type reflectStrategy struct{}

// Ensure reflectStrategy implements apis.Strategy.
var _ apis.Strategy = (*reflectStrategy)(nil)

// cacheKey ensures memoization respects all config knobs that affect resolution.
type cacheKey struct {
	t         reflect.Type
	root      string
	module    string
	maxUnwrap int
}

// identityCache caches resolved identities by (type, config knobs).
var identityCache sync.Map // key: cacheKey, val: apis.Identity

// TryResolve derives the identity of v's type.
func (reflectStrategy) TryResolve(v any, cfg apis.Config) (apis.Identity, bool) {
	if v == nil {
		return "", false
	}
	return byType(reflect.TypeOf(v), cfg)
}

// TryResolveType derives the identity of t.
func (reflectStrategy) TryResolveType(t reflect.Type, cfg apis.Config) (apis.Identity, bool) {
	if t == nil {
		return "", false
	}
	return byType(t, cfg)
}

// byType resolves the identity for t with memoization. Builtin and
// anonymous types are not services and fall through.
func byType(t reflect.Type, cfg apis.Config) (apis.Identity, bool) {
	key := cacheKey{t: t, root: cfg.RootNamespace, module: cfg.ModulePath, maxUnwrap: cfg.MaxUnwrap}
	if v, ok := identityCache.Load(key); ok {
		id := v.(apis.Identity)
		return id, id != ""
	}

	var id apis.Identity
	if base, err := uref.Normalize(t, cfg.MaxUnwrap); err == nil && base.PkgPath() != "" {
		segs := namespace(base.PkgPath(), cfg)
		id = apis.Join(append(segs, uref.StripTypeParams(base.Name()))...)
	}

	identityCache.Store(key, id)
	return id, id != ""
}

// namespace maps an import path onto namespace segments.
func namespace(pkg string, cfg apis.Config) []string {
	mod := cfg.ModulePath
	if mod != "" && (pkg == mod || strings.HasPrefix(pkg, mod+"/")) {
		rel := strings.TrimPrefix(strings.TrimPrefix(pkg, mod), "/")
		segs := []string{cfg.RootNamespace}
		if rel != "" {
			segs = append(segs, strings.Split(rel, "/")...)
		}
		return segs
	}
	return strings.Split(pkg, "/")
}
