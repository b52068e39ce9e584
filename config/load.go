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
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"dirpx.dev/svx/apis"
	"dirpx.dev/svx/cache/driver"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SVX_"

// File is the on-disk shape of a configuration file. Pointer fields
// distinguish "unset" from zero values so defaults survive partial files.
type File struct {
	Namespaces struct {
		Root        *string `yaml:"root"`
		Module      *string `yaml:"module"`
		Services    *string `yaml:"services"`
		Definitions *string `yaml:"definitions"`
		Handlers    *string `yaml:"handlers"`
	} `yaml:"namespaces"`
	Suffixes struct {
		Definition *string `yaml:"definition"`
		Handler    *string `yaml:"handler"`
	} `yaml:"suffixes"`
	OverrideDuplicateSuffix *bool             `yaml:"override_duplicate_suffix"`
	Method                  *string           `yaml:"method"`
	Handlers                map[string]string `yaml:"handlers"`
	SelfHandling            []string          `yaml:"self_handling"`
	Autoload                *bool             `yaml:"autoload"`
	DefinitionsDir          *string           `yaml:"definitions_dir"`
	FileExtension           *string           `yaml:"file_extension"`
	Cache                   *bool             `yaml:"cache"`
	CacheKey                *string           `yaml:"cache_key"`
	CacheDriver             *driver.Driver    `yaml:"cache_driver"`
	RedisAddr               *string           `yaml:"redis_addr"`
	LogLevel                *string           `yaml:"log_level"`
}

// Load reads the YAML file at path over DefaultConfig, applies environment
// overrides and validates the result.
func Load(path string) (apis.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return apis.Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse is Load without the file read.
func Parse(data []byte) (apis.Config, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return apis.Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg := DefaultConfig()
	Merge(&cfg, f)
	if err := ApplyEnvOverrides(&cfg); err != nil {
		return apis.Config{}, err
	}
	cfg = NewConfig(func(c *apis.Config) { *c = cfg })
	if err := Validate(cfg); err != nil {
		return apis.Config{}, err
	}
	return cfg, nil
}

// Merge copies every field set in src onto dst.
func Merge(dst *apis.Config, src File) {
	setString(&dst.RootNamespace, src.Namespaces.Root)
	setString(&dst.ModulePath, src.Namespaces.Module)
	setString(&dst.ServiceRoot, src.Namespaces.Services)
	setString(&dst.DefinitionsSegment, src.Namespaces.Definitions)
	setString(&dst.HandlersSegment, src.Namespaces.Handlers)
	setString(&dst.DefinitionSuffix, src.Suffixes.Definition)
	setString(&dst.HandlerSuffix, src.Suffixes.Handler)
	setBool(&dst.CollapseDuplicateSuffix, src.OverrideDuplicateSuffix)
	setString(&dst.DispatchMethod, src.Method)
	setBool(&dst.Autoload, src.Autoload)
	setString(&dst.DefinitionsDir, src.DefinitionsDir)
	setString(&dst.FileExtension, src.FileExtension)
	setBool(&dst.Cache, src.Cache)
	setString(&dst.CacheKey, src.CacheKey)
	if src.CacheDriver != nil {
		dst.CacheDriver = *src.CacheDriver
	}
	setString(&dst.RedisAddr, src.RedisAddr)
	setString(&dst.LogLevel, src.LogLevel)

	if len(src.Handlers) > 0 {
		m := make(apis.Mapping, len(src.Handlers))
		for k, v := range src.Handlers {
			m[apis.Identity(k)] = apis.Identity(v)
		}
		WithHandlers(m)(dst)
	}
	for _, id := range src.SelfHandling {
		dst.SelfHandling = append(dst.SelfHandling, apis.Identity(id))
	}
}

// ApplyEnvOverrides applies SVX_* variables to cfg. Only scalar options
// can be overridden; the explicit handler map stays file-only.
func ApplyEnvOverrides(cfg *apis.Config) error {
	strs := map[string]*string{
		"ROOT_NAMESPACE":      &cfg.RootNamespace,
		"MODULE_PATH":         &cfg.ModulePath,
		"SERVICE_ROOT":        &cfg.ServiceRoot,
		"DEFINITIONS_SEGMENT": &cfg.DefinitionsSegment,
		"HANDLERS_SEGMENT":    &cfg.HandlersSegment,
		"DEFINITION_SUFFIX":   &cfg.DefinitionSuffix,
		"HANDLER_SUFFIX":      &cfg.HandlerSuffix,
		"DISPATCH_METHOD":     &cfg.DispatchMethod,
		"DEFINITIONS_DIR":     &cfg.DefinitionsDir,
		"CACHE_KEY":           &cfg.CacheKey,
		"REDIS_ADDR":          &cfg.RedisAddr,
		"LOG_LEVEL":           &cfg.LogLevel,
	}
	for name, dst := range strs {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			*dst = strings.TrimSpace(v)
		}
	}

	bools := map[string]*bool{
		"COLLAPSE_DUPLICATE_SUFFIX": &cfg.CollapseDuplicateSuffix,
		"AUTOLOAD":                  &cfg.Autoload,
		"CACHE":                     &cfg.Cache,
	}
	for name, dst := range bools {
		raw := strings.TrimSpace(os.Getenv(EnvPrefix + name))
		if raw == "" {
			continue
		}
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return &apis.ConfigurationError{Option: EnvPrefix + name, Reason: fmt.Sprintf("not a boolean: %q", raw)}
		}
		*dst = v
	}

	if raw, ok := os.LookupEnv(EnvPrefix + "CACHE_DRIVER"); ok {
		if err := cfg.CacheDriver.UnmarshalText([]byte(raw)); err != nil {
			return &apis.ConfigurationError{Option: EnvPrefix + "CACHE_DRIVER", Reason: err.Error()}
		}
	}
	return nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}
