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

// Package discovery builds the service -> handler mapping from a directory
// of definition sources, by path and name alone.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"go.uber.org/zap"

	"dirpx.dev/svx/apis"
	"dirpx.dev/svx/translator"
)

// Scanner walks a definitions directory and maps every definition that is
// not self-handling to its translated handler identity.
type Scanner struct {
	cfg        apis.Config
	enum       apis.Enumerator
	probe      apis.Probe
	cache      apis.Cache
	translator apis.Translator
	logger     *zap.Logger
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithEnumerator sets the filesystem enumerator. Defaults to Dir.
func WithEnumerator(e apis.Enumerator) Option {
	return func(s *Scanner) {
		if e != nil {
			s.enum = e
		}
	}
}

// WithProbe sets the self-handling probe. Defaults to a SourceProbe over the
// scanner's enumerator combined with a ListProbe.
func WithProbe(p apis.Probe) Option {
	return func(s *Scanner) { s.probe = p }
}

// WithCache persists results in c when caching is enabled in the config.
func WithCache(c apis.Cache) Option {
	return func(s *Scanner) { s.cache = c }
}

// WithTranslator overrides the naming translator.
func WithTranslator(t apis.Translator) Option {
	return func(s *Scanner) {
		if t != nil {
			s.translator = t
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Scanner) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Scanner for cfg.
func New(cfg apis.Config, opts ...Option) *Scanner {
	s := &Scanner{
		cfg:    cfg,
		enum:   Dir{},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.translator == nil {
		s.translator = translator.New(cfg)
	}
	if s.probe == nil {
		s.probe = Probes{ListProbe{}, SourceProbe{Enumerator: s.enum}}
	}
	s.logger = s.logger.Named("discovery")
	return s
}

// Discover returns the mapping for the definitions under dir. A missing
// directory yields an empty mapping. With caching enabled, a stored result
// is returned as is until Invalidate is called.
func (s *Scanner) Discover(ctx context.Context, dir string) (apis.Mapping, error) {
	if !s.cfg.Cache || s.cache == nil {
		return s.scan(ctx, dir)
	}
	computed := false
	m, err := s.cache.GetOrCompute(ctx, s.cfg.CacheKey, func(ctx context.Context) (apis.Mapping, error) {
		computed = true
		return s.scan(ctx, dir)
	})
	if err != nil {
		return nil, err
	}
	if !computed {
		s.logger.Debug("discovery cache hit", zap.String("key", s.cfg.CacheKey), zap.Int("mappings", len(m)))
	}
	return m, nil
}

// Invalidate drops the cached result, if any.
func (s *Scanner) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Invalidate(ctx, s.cfg.CacheKey)
}

func (s *Scanner) scan(ctx context.Context, dir string) (apis.Mapping, error) {
	out := make(apis.Mapping)
	files, err := s.enum.Enumerate(dir)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Debug("definitions directory missing", zap.String("dir", dir))
		return out, nil
	}
	if err != nil {
		return nil, fmt.Errorf("svx(discovery): enumerate %s: %w", dir, err)
	}

	probe := s.probe
	if sp, ok := probe.(apis.ScanProbe); ok {
		probe = sp.ForScan(dir, files)
	}

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		id, ok := s.identity(f)
		if !ok {
			continue
		}

		self, err := probe.SelfHandling(dir, f, id, s.cfg)
		if err != nil {
			s.logger.Warn("self-handling probe failed, mapping definition",
				zap.String("file", f.Path), zap.Error(err))
		}
		if self {
			s.logger.Debug("skipping self-handling definition", zap.Stringer("service", id))
			continue
		}

		h, err := s.translator.Translate(id)
		if err != nil {
			return nil, fmt.Errorf("svx(discovery): %s: %w", f.Path, err)
		}
		out[id] = h
	}

	s.logger.Debug("discovered definitions", zap.String("dir", dir), zap.Int("mappings", len(out)))
	return out, nil
}

// identity derives the definition identity of f:
// Root.ServiceRoot[.DefinitionsSegment].<dirs>.<stem>. Files that are not
// definitions report false.
func (s *Scanner) identity(f apis.File) (apis.Identity, bool) {
	ext := s.cfg.FileExtension
	if ext != "" && !strings.HasSuffix(f.Name, ext) {
		return "", false
	}
	if ext == ".go" && strings.HasSuffix(f.Name, "_test.go") {
		return "", false
	}
	stem := strings.TrimSuffix(f.Name, ext)
	if stem == "" {
		return "", false
	}
	if suf := s.cfg.DefinitionSuffix; suf != "" && !strings.HasSuffix(stem, suf) {
		s.logger.Debug("skipping non-definition file", zap.String("file", f.Path))
		return "", false
	}

	segs := []string{s.cfg.RootNamespace, s.cfg.ServiceRoot, s.cfg.DefinitionsSegment}
	if d := path.Dir(f.Path); d != "." {
		segs = append(segs, strings.Split(d, "/")...)
	}
	id := apis.Join(append(segs, stem)...)
	if !id.Valid() {
		s.logger.Debug("skipping file with malformed identity", zap.String("file", f.Path))
		return "", false
	}
	return id, true
}
