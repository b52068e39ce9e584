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

package discovery

import (
	"go/ast"
	"go/parser"
	"go/token"
	"path"
	"strings"
	"sync"

	"dirpx.dev/svx/apis"
)

// SourceProbe reports a definition as self-handling when any source file of
// its package declares the dispatch method on the definition type. A package
// is the set of non-test .go files in one directory. Files are parsed, never
// compiled or loaded.
type SourceProbe struct {
	Enumerator apis.Enumerator
}

var (
	_ apis.Probe     = SourceProbe{}
	_ apis.ScanProbe = SourceProbe{}
)

// SelfHandling implements apis.Probe. The definition type is the last
// segment of id. Called outside a scan, it enumerates dir itself.
func (p SourceProbe) SelfHandling(dir string, f apis.File, id apis.Identity, cfg apis.Config) (bool, error) {
	files, err := p.enumerator().Enumerate(dir)
	if err != nil {
		return false, err
	}
	return p.ForScan(dir, files).SelfHandling(dir, f, id, cfg)
}

// ForScan implements apis.ScanProbe. Each package is parsed at most once
// for the returned probe.
func (p SourceProbe) ForScan(dir string, files []apis.File) apis.Probe {
	pkgs := make(map[string][]apis.File)
	for _, f := range files {
		if isSource(f.Name) {
			d := path.Dir(f.Path)
			pkgs[d] = append(pkgs[d], f)
		}
	}
	return &scanProbe{
		enum:   p.enumerator(),
		dir:    dir,
		pkgs:   pkgs,
		parsed: make(map[string]*parsedPackage),
	}
}

func (p SourceProbe) enumerator() apis.Enumerator {
	if p.Enumerator == nil {
		return Dir{}
	}
	return p.Enumerator
}

func isSource(name string) bool {
	return strings.HasSuffix(name, ".go") && !strings.HasSuffix(name, "_test.go")
}

type parsedPackage struct {
	files []*ast.File
	err   error
}

// scanProbe is a SourceProbe bound to one scan.
type scanProbe struct {
	enum apis.Enumerator
	dir  string
	pkgs map[string][]apis.File

	mu     sync.Mutex
	parsed map[string]*parsedPackage
}

// SelfHandling implements apis.Probe. A parse error is returned only when
// no file of the package declares the method.
func (s *scanProbe) SelfHandling(dir string, f apis.File, id apis.Identity, cfg apis.Config) (bool, error) {
	pkg := s.parse(dir, f)
	for _, file := range pkg.files {
		if declaresMethod(file, id.Base(), cfg.DispatchMethod) {
			return true, nil
		}
	}
	return false, pkg.err
}

// parse returns the parsed package of f. Files outside the scanned
// package list, such as a definition with a non-.go extension, are parsed
// on their own.
func (s *scanProbe) parse(dir string, f apis.File) *parsedPackage {
	d := path.Dir(f.Path)
	members := s.pkgs[d]
	if dir != s.dir || !contains(members, f) {
		return parseFiles(s.enum, dir, []apis.File{f})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	pkg, ok := s.parsed[d]
	if !ok {
		pkg = parseFiles(s.enum, dir, members)
		s.parsed[d] = pkg
	}
	return pkg
}

func parseFiles(enum apis.Enumerator, dir string, files []apis.File) *parsedPackage {
	pkg := &parsedPackage{}
	fset := token.NewFileSet()
	for _, f := range files {
		src, err := enum.ReadFile(dir, f)
		if err == nil {
			var file *ast.File
			if file, err = parser.ParseFile(fset, f.Path, src, parser.SkipObjectResolution); err == nil {
				pkg.files = append(pkg.files, file)
			}
		}
		if err != nil && pkg.err == nil {
			pkg.err = err
		}
	}
	return pkg
}

func contains(files []apis.File, f apis.File) bool {
	for _, m := range files {
		if m.Path == f.Path {
			return true
		}
	}
	return false
}

// declaresMethod reports whether file declares method on typ or *typ.
func declaresMethod(file *ast.File, typ, method string) bool {
	for _, decl := range file.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || fn.Recv == nil || len(fn.Recv.List) == 0 || fn.Name.Name != method {
			continue
		}
		if receiver(fn.Recv.List[0].Type) == typ {
			return true
		}
	}
	return false
}

// receiver returns the base type name of a receiver expression:
// T, *T, T[P] and *T[P] all yield "T".
func receiver(expr ast.Expr) string {
	for {
		switch e := expr.(type) {
		case *ast.StarExpr:
			expr = e.X
		case *ast.ParenExpr:
			expr = e.X
		case *ast.IndexExpr:
			expr = e.X
		case *ast.IndexListExpr:
			expr = e.X
		case *ast.Ident:
			return e.Name
		default:
			return ""
		}
	}
}

// ListProbe reports the identities in Config.SelfHandling as self-handling.
type ListProbe struct{}

// Ensure ListProbe implements apis.Probe.
var _ apis.Probe = ListProbe{}

// SelfHandling implements apis.Probe.
func (ListProbe) SelfHandling(_ string, _ apis.File, id apis.Identity, cfg apis.Config) (bool, error) {
	for _, s := range cfg.SelfHandling {
		if s == id {
			return true, nil
		}
	}
	return false, nil
}

// Probes combines probes: a definition is self-handling if any probe says
// so. An error is returned only when no probe gave a positive answer.
type Probes []apis.Probe

// Ensure Probes implements apis.Probe.
var (
	_ apis.Probe     = Probes(nil)
	_ apis.ScanProbe = Probes(nil)
)

// ForScan implements apis.ScanProbe by binding every member that supports it.
func (ps Probes) ForScan(dir string, files []apis.File) apis.Probe {
	out := make(Probes, 0, len(ps))
	for _, p := range ps {
		if sp, ok := p.(apis.ScanProbe); ok {
			p = sp.ForScan(dir, files)
		}
		out = append(out, p)
	}
	return out
}

// SelfHandling implements apis.Probe.
func (ps Probes) SelfHandling(dir string, f apis.File, id apis.Identity, cfg apis.Config) (bool, error) {
	var first error
	for _, p := range ps {
		if p == nil {
			continue
		}
		ok, err := p.SelfHandling(dir, f, id, cfg)
		if ok {
			return true, nil
		}
		if err != nil && first == nil {
			first = err
		}
	}
	return false, first
}
