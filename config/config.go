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

package config

import (
	"path/filepath"
	"strings"

	"dirpx.dev/svx/apis"
	"dirpx.dev/svx/cache/driver"
)

const (
	// DefaultRootNamespace represents the default for RootNamespace.
	DefaultRootNamespace = "App"
	// DefaultServiceRoot represents the default for ServiceRoot.
	DefaultServiceRoot = "Services"
	// DefaultDefinitionsSegment represents the default for DefinitionsSegment.
	DefaultDefinitionsSegment = "Definitions"
	// DefaultHandlersSegment represents the default for HandlersSegment.
	DefaultHandlersSegment = "Handlers"
	// DefaultDefinitionSuffix represents the default for DefinitionSuffix.
	DefaultDefinitionSuffix = "Service"
	// DefaultHandlerSuffix represents the default for HandlerSuffix.
	DefaultHandlerSuffix = "Handler"
	// DefaultCollapseDuplicateSuffix represents the default for CollapseDuplicateSuffix.
	DefaultCollapseDuplicateSuffix = true
	// DefaultAutoload represents the default for Autoload.
	DefaultAutoload = true
	// DefaultFileExtension represents the default for FileExtension.
	DefaultFileExtension = ".go"
	// DefaultCacheKey represents the default for CacheKey.
	DefaultCacheKey = "svx.handlers"
	// DefaultMaxUnwrap represents the default for MaxUnwrap.
	// Services are values or pointers to values; 4 levels is plenty.
	DefaultMaxUnwrap = 4
	// DefaultLogLevel represents the default for LogLevel.
	DefaultLogLevel = "info"
)

// NewConfig constructs an apis.Config from the given options.
// Reference fields are copied so the result shares nothing with the options.
func NewConfig(opts ...Option) apis.Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.MaxUnwrap <= 0 {
		cfg.MaxUnwrap = DefaultMaxUnwrap
	}
	return Clone(cfg)
}

// DefaultConfig is the default configuration used when none is provided.
func DefaultConfig() apis.Config {
	return apis.Config{
		RootNamespace:           DefaultRootNamespace,
		ServiceRoot:             DefaultServiceRoot,
		DefinitionsSegment:      DefaultDefinitionsSegment,
		HandlersSegment:         DefaultHandlersSegment,
		DefinitionSuffix:        DefaultDefinitionSuffix,
		HandlerSuffix:           DefaultHandlerSuffix,
		CollapseDuplicateSuffix: DefaultCollapseDuplicateSuffix,
		DispatchMethod:          apis.DefaultDispatchMethod,
		Autoload:                DefaultAutoload,
		FileExtension:           DefaultFileExtension,
		CacheKey:                DefaultCacheKey,
		MaxUnwrap:               DefaultMaxUnwrap,
		LogLevel:                DefaultLogLevel,
	}
}

// Clone returns a deep copy of cfg.
func Clone(cfg apis.Config) apis.Config {
	if cfg.Handlers != nil {
		cfg.Handlers = cfg.Handlers.Clone()
	}
	if cfg.SelfHandling != nil {
		cfg.SelfHandling = append([]apis.Identity(nil), cfg.SelfHandling...)
	}
	return cfg
}

// DefinitionsDir returns cfg.DefinitionsDir, or the directory derived from
// ServiceRoot and DefinitionsSegment when unset.
func DefinitionsDir(cfg apis.Config) string {
	if cfg.DefinitionsDir != "" {
		return cfg.DefinitionsDir
	}
	return filepath.Join(cfg.ServiceRoot, cfg.DefinitionsSegment)
}

// Validate reports the first problem found in cfg as *apis.ConfigurationError.
func Validate(cfg apis.Config) error {
	switch {
	case strings.TrimSpace(cfg.ServiceRoot) == "":
		return &apis.ConfigurationError{Option: "ServiceRoot", Reason: "a service root namespace must be defined"}
	case cfg.Autoload && cfg.DefinitionSuffix == "":
		return &apis.ConfigurationError{Option: "DefinitionSuffix", Reason: "a definition suffix is required when autoload is enabled"}
	case cfg.DispatchMethod == "":
		return &apis.ConfigurationError{Option: "DispatchMethod", Reason: "a dispatch method must be defined"}
	case cfg.Cache && cfg.CacheKey == "":
		return &apis.ConfigurationError{Option: "CacheKey", Reason: "a cache key is required when caching is enabled"}
	case cfg.Cache && cfg.CacheDriver == driver.Redis && cfg.RedisAddr == "":
		return &apis.ConfigurationError{Option: "RedisAddr", Reason: "a redis address is required by the redis cache driver"}
	}
	for _, part := range []struct{ name, value string }{
		{"RootNamespace", cfg.RootNamespace},
		{"ServiceRoot", cfg.ServiceRoot},
		{"DefinitionsSegment", cfg.DefinitionsSegment},
		{"HandlersSegment", cfg.HandlersSegment},
	} {
		if strings.HasPrefix(part.value, apis.Separator) || strings.HasSuffix(part.value, apis.Separator) ||
			strings.Contains(part.value, apis.Separator+apis.Separator) {
			return &apis.ConfigurationError{Option: part.name, Reason: "must not contain empty namespace segments"}
		}
	}
	if Aliases(cfg) {
		return &apis.ConfigurationError{
			Option: "HandlerSuffix",
			Reason: "definitions and handlers share a namespace and the handler suffix can reproduce the definition name",
		}
	}
	return nil
}

// Aliases reports whether cfg can translate a definition to itself: both
// live in one namespace and the handler name can equal the definition name.
func Aliases(cfg apis.Config) bool {
	if cfg.DefinitionsSegment != cfg.HandlersSegment {
		return false
	}
	if cfg.HandlerSuffix == "" {
		return true
	}
	return cfg.CollapseDuplicateSuffix && cfg.HandlerSuffix == cfg.DefinitionSuffix
}

// Option is a functional option that mutates an apis.Config during construction.
type Option func(*apis.Config)

// WithRootNamespace sets the RootNamespace option.
func WithRootNamespace(ns string) Option {
	return func(c *apis.Config) { c.RootNamespace = ns }
}

// WithModulePath sets the ModulePath option.
func WithModulePath(p string) Option {
	return func(c *apis.Config) { c.ModulePath = strings.TrimSuffix(p, "/") }
}

// WithServiceRoot sets the ServiceRoot option.
func WithServiceRoot(root string) Option {
	return func(c *apis.Config) { c.ServiceRoot = root }
}

// WithSegments sets the DefinitionsSegment and HandlersSegment options.
// Empty strings make definitions and handlers share the service root.
func WithSegments(definitions, handlers string) Option {
	return func(c *apis.Config) {
		c.DefinitionsSegment = definitions
		c.HandlersSegment = handlers
	}
}

// WithSuffixes sets the DefinitionSuffix and HandlerSuffix options.
func WithSuffixes(definition, handler string) Option {
	return func(c *apis.Config) {
		c.DefinitionSuffix = definition
		c.HandlerSuffix = handler
	}
}

// WithCollapseDuplicateSuffix sets the CollapseDuplicateSuffix option.
func WithCollapseDuplicateSuffix(collapse bool) Option {
	return func(c *apis.Config) { c.CollapseDuplicateSuffix = collapse }
}

// WithDispatchMethod sets the DispatchMethod option.
func WithDispatchMethod(name string) Option {
	return func(c *apis.Config) { c.DispatchMethod = name }
}

// WithHandlers merges m into the explicit Handlers mapping.
func WithHandlers(m apis.Mapping) Option {
	return func(c *apis.Config) {
		if c.Handlers == nil {
			c.Handlers = make(apis.Mapping, len(m))
		}
		for k, v := range m {
			c.Handlers[k] = v
		}
	}
}

// WithSelfHandling flags definitions as self-handling.
func WithSelfHandling(ids ...apis.Identity) Option {
	return func(c *apis.Config) { c.SelfHandling = append(c.SelfHandling, ids...) }
}

// WithAutoload sets the Autoload option.
func WithAutoload(enabled bool) Option {
	return func(c *apis.Config) { c.Autoload = enabled }
}

// WithDefinitionsDir sets the DefinitionsDir option.
func WithDefinitionsDir(dir string) Option {
	return func(c *apis.Config) { c.DefinitionsDir = dir }
}

// WithFileExtension sets the FileExtension option.
func WithFileExtension(ext string) Option {
	return func(c *apis.Config) {
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		c.FileExtension = ext
	}
}

// WithCache enables discovery caching under key. An empty key keeps the
// current one.
func WithCache(enabled bool, key string) Option {
	return func(c *apis.Config) {
		c.Cache = enabled
		if key != "" {
			c.CacheKey = key
		}
	}
}

// WithCacheDriver selects the cache store. addr is the Redis address and
// is ignored by other drivers.
func WithCacheDriver(d driver.Driver, addr string) Option {
	return func(c *apis.Config) {
		c.CacheDriver = d
		c.RedisAddr = addr
	}
}

// WithMaxUnwrap sets the MaxUnwrap option.
// A non-positive value resets to the default.
func WithMaxUnwrap(max int) Option {
	return func(c *apis.Config) {
		if max <= 0 {
			c.MaxUnwrap = DefaultMaxUnwrap
			return
		}
		c.MaxUnwrap = max
	}
}

// WithLogLevel sets the LogLevel option.
func WithLogLevel(level string) Option {
	return func(c *apis.Config) { c.LogLevel = level }
}
