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

import "dirpx.dev/svx/cache/driver"

// Config carries the naming conventions and engine switches.
// It is passed by value and should be treated as immutable once built;
// config.NewConfig copies reference fields so callers cannot alias them.
type Config struct {
	// RootNamespace is the application root every identity starts with (e.g. "App").
	RootNamespace string
	// ModulePath is the Go import path that maps onto RootNamespace when
	// identities are derived by reflection (e.g. "example.com/app").
	ModulePath string

	// ServiceRoot is the namespace segment under the root where services live.
	ServiceRoot string
	// DefinitionsSegment is appended to ServiceRoot for definitions. Empty
	// means definitions live directly under ServiceRoot.
	DefinitionsSegment string
	// HandlersSegment is appended to ServiceRoot for handlers. Empty means
	// handlers live directly under ServiceRoot.
	HandlersSegment string

	// DefinitionSuffix is appended to definition base names. Empty means none.
	DefinitionSuffix string
	// HandlerSuffix is appended to handler base names. Empty means none.
	HandlerSuffix string
	// CollapseDuplicateSuffix strips an existing DefinitionSuffix from a base
	// name before suffixes are applied, so it is never duplicated.
	CollapseDuplicateSuffix bool

	// DispatchMethod names the contract invoked on a resolved target.
	DispatchMethod string

	// Handlers are explicit service -> handler mappings. They take precedence
	// over discovered mappings.
	Handlers Mapping
	// SelfHandling lists definitions flagged as self-handling; discovery never
	// maps them.
	SelfHandling []Identity

	// Autoload enables the Discovery Scanner.
	Autoload bool
	// DefinitionsDir is the directory scanned for definitions. Empty derives
	// it from ServiceRoot and DefinitionsSegment.
	DefinitionsDir string
	// FileExtension is the extension of definition source files.
	FileExtension string

	// Cache persists discovery results under CacheKey.
	Cache bool
	// CacheKey is the process-wide key discovery results are stored under.
	CacheKey string
	// CacheDriver selects the store used when none is injected.
	CacheDriver driver.Driver
	// RedisAddr is the host:port of the Redis server for driver.Redis.
	RedisAddr string

	// MaxUnwrap limits pointer unwrapping when deriving identities by reflection.
	MaxUnwrap int

	// LogLevel is used when the engine builds its own logger.
	LogLevel string
}
