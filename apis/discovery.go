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

import "context"

// File is a regular file found under a scanned directory.
type File struct {
	// Path is slash-separated and relative to the scanned directory.
	Path string
	// Name is the base name of the file, extension included.
	Name string
}

// Enumerator lists files under a directory, recursively.
type Enumerator interface {
	// Enumerate returns every regular file under dir. A missing dir must be
	// reported with an error satisfying errors.Is(err, fs.ErrNotExist).
	Enumerate(dir string) ([]File, error)
	// ReadFile returns the content of f found under dir.
	ReadFile(dir string, f File) ([]byte, error)
}

// Probe decides, without loading code, whether a discovered definition
// already satisfies the dispatch contract itself.
type Probe interface {
	SelfHandling(dir string, f File, id Identity, cfg Config) (bool, error)
}

// ScanProbe is a Probe that can be bound to the file list of one scan, so
// work shared by several definitions is done once per scan.
type ScanProbe interface {
	Probe
	// ForScan returns a Probe valid for the given scan of dir only.
	ForScan(dir string, files []File) Probe
}

// Cache is the process-wide keyed store discovery results persist in.
type Cache interface {
	// GetOrCompute returns the mapping stored under key, calling compute and
	// storing its result on a miss. Concurrent callers for the same key must
	// not run compute more than once at a time.
	GetOrCompute(ctx context.Context, key string, compute func(ctx context.Context) (Mapping, error)) (Mapping, error)
	// Invalidate drops the entry stored under key.
	Invalidate(ctx context.Context, key string) error
}
