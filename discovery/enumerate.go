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
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"dirpx.dev/svx/apis"
)

// Dir enumerates the operating system filesystem.
type Dir struct{}

// Ensure Dir implements apis.Enumerator.
var _ apis.Enumerator = Dir{}

// Enumerate recursively lists the regular files under dir.
func (Dir) Enumerate(dir string) ([]apis.File, error) {
	var files []apis.File
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		files = append(files, apis.File{Path: filepath.ToSlash(rel), Name: d.Name()})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// ReadFile reads f from under dir.
func (Dir) ReadFile(dir string, f apis.File) ([]byte, error) {
	return os.ReadFile(filepath.Join(dir, filepath.FromSlash(f.Path)))
}

// FS enumerates an fs.FS, such as an embedded source tree.
type FS struct {
	FS fs.FS
}

// Ensure FS implements apis.Enumerator.
var _ apis.Enumerator = FS{}

// Enumerate recursively lists the regular files under dir, a slash-separated
// path inside the filesystem.
func (e FS) Enumerate(dir string) ([]apis.File, error) {
	root := clean(dir)
	var files []apis.File
	err := fs.WalkDir(e.FS, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel := p
		if root != "." {
			rel = strings.TrimPrefix(p, root+"/")
		}
		files = append(files, apis.File{Path: rel, Name: d.Name()})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// ReadFile reads f from under dir.
func (e FS) ReadFile(dir string, f apis.File) ([]byte, error) {
	return fs.ReadFile(e.FS, path.Join(clean(dir), f.Path))
}

func clean(dir string) string {
	dir = path.Clean(filepath.ToSlash(dir))
	if dir == "/" || dir == "" {
		return "."
	}
	return strings.TrimPrefix(dir, "/")
}
