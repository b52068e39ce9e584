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

package builder

import (
	"fmt"

	"dirpx.dev/svx/apis"
	"dirpx.dev/svx/registry"
	"dirpx.dev/svx/resolver"
	"dirpx.dev/svx/strategy"
)

// New creates and returns a new instance of an apis.Builder.
func New() apis.Builder {
	return &builder{}
}

// builder is an empty struct to be used as a receiver for builder methods.
type builder struct{}

// BuildRegistry builds a Registry whose explicit layer holds cfg.Handlers.
// Explicit entries of prev are migrated first, so cfg.Handlers wins on a
// shared key. Discovered entries are not migrated: they belong to the
// discovery run that produced them.
func (b *builder) BuildRegistry(cfg apis.Config, prev apis.Registry) (apis.Registry, error) {
	nreg := registry.New()
	if prev != nil {
		if err := nreg.Map(prev.Explicit()); err != nil {
			return nil, fmt.Errorf("svx(builder): migrate explicit mappings: %w", err)
		}
	}
	if err := nreg.Map(cfg.Handlers); err != nil {
		return nil, fmt.Errorf("svx(builder): config handlers: %w", err)
	}
	return nreg, nil
}

// BuildResolver builds the identity Resolver: Identifier first, then the
// type registry, then reflection over the import path.
func (b *builder) BuildResolver(_ apis.Config, types apis.TypeRegistry) apis.Resolver {
	var reg apis.Strategy
	if types != nil {
		reg = strategy.NewRegistryStrategy(types)
	}
	return resolver.New(
		strategy.NewIdentifierStrategy(),
		reg,
		strategy.NewReflectStrategy(),
	)
}
