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

	"dirpx.dev/svx/apis"
)

// NewRegistryStrategy returns the strategy for service types registered
// up front with Engine.RegisterType, typically definitions whose Go package
// path does not mirror their identity. Pointer and value forms of a
// definition share one entry.
func NewRegistryStrategy(reg apis.TypeRegistry) apis.Strategy {
	return &registered{types: reg}
}

type registered struct {
	types apis.TypeRegistry
}

var _ apis.Strategy = (*registered)(nil)

// TryResolve reports the identity registered for the dynamic type of svc.
func (s *registered) TryResolve(svc any, cfg apis.Config) (apis.Identity, bool) {
	if svc == nil {
		return "", false
	}
	return s.TryResolveType(reflect.TypeOf(svc), cfg)
}

// TryResolveType reports the identity registered for t.
func (s *registered) TryResolveType(t reflect.Type, _ apis.Config) (apis.Identity, bool) {
	if t == nil || s.types == nil {
		return "", false
	}
	return s.types.Lookup(t)
}
