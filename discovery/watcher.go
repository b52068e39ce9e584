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
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is how long a Watcher waits for a burst of filesystem
// events to settle before reporting a change.
const DefaultDebounce = 100 * time.Millisecond

// Watcher reports changes under a definitions directory, so a generator
// adding a definition invalidates the discovered mapping.
type Watcher struct {
	debounce time.Duration
	logger   *zap.Logger
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets the settle delay. Non-positive values keep the default.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithWatcherLogger sets the logger.
func WithWatcherLogger(l *zap.Logger) WatcherOption {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// NewWatcher constructs a Watcher.
func NewWatcher(opts ...WatcherOption) *Watcher {
	w := &Watcher{debounce: DefaultDebounce, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named("watcher")
	return w
}

// Watch blocks until ctx is done, calling onChange once per settled burst
// of create, write, remove or rename events anywhere under dir.
// Directories created later are watched too. While dir does not exist, its
// nearest existing parent is watched instead, and the appearance of dir
// counts as a change.
func (w *Watcher) Watch(ctx context.Context, dir string, onChange func(ctx context.Context)) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	t := &tree{fw: fw, dir: filepath.Clean(dir), logger: w.logger}
	if err := t.arm(); err != nil {
		return err
	}
	w.logger.Debug("watching definitions", zap.String("dir", dir))

	var settle <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if ev.Op == fsnotify.Chmod {
				continue
			}
			if t.pending() {
				if !onPath(ev.Name, t.dir) {
					continue
				}
				if err := t.arm(); err != nil {
					w.logger.Warn("cannot watch definitions", zap.String("dir", t.dir), zap.Error(err))
					continue
				}
				if t.pending() {
					continue
				}
			} else if ev.Name == t.dir && ev.Has(fsnotify.Remove|fsnotify.Rename) {
				if err := t.arm(); err != nil {
					w.logger.Warn("cannot watch definitions", zap.String("dir", t.dir), zap.Error(err))
				}
			} else if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := addTree(fw, ev.Name); err != nil {
						w.logger.Warn("cannot watch new directory", zap.String("dir", ev.Name), zap.Error(err))
					}
				}
			}
			// Restart the settle delay; only the latest timer is selected.
			settle = time.After(w.debounce)

		case <-settle:
			settle = nil
			onChange(ctx)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", zap.Error(err))
		}
	}
}

// tree tracks what is watched for one definitions directory.
type tree struct {
	fw     *fsnotify.Watcher
	dir    string
	logger *zap.Logger
	// anchor is the watched parent while dir is missing.
	anchor string
}

func (t *tree) pending() bool { return t.anchor != "" }

// arm watches dir recursively when it exists, or its nearest existing
// parent otherwise. A path segment created while the parent is being added
// is picked up by looking again.
func (t *tree) arm() error {
	for {
		p, err := nearest(t.dir)
		if err != nil {
			return err
		}
		if p == t.dir {
			if t.anchor != "" {
				_ = t.fw.Remove(t.anchor)
				t.anchor = ""
			}
			return addTree(t.fw, t.dir)
		}
		if p == t.anchor {
			return nil
		}
		if t.anchor != "" {
			_ = t.fw.Remove(t.anchor)
		}
		if err := t.fw.Add(p); err != nil {
			return err
		}
		t.anchor = p
		t.logger.Debug("waiting for definitions directory", zap.String("dir", t.dir), zap.String("parent", p))
	}
}

// nearest returns dir when it exists, otherwise its closest existing parent.
func nearest(dir string) (string, error) {
	p := dir
	for {
		_, err := os.Stat(p)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(p)
		if parent == p {
			return "", err
		}
		p = parent
	}
}

// onPath reports whether name is dir or one of its parents.
func onPath(name, dir string) bool {
	name = filepath.Clean(name)
	return name == dir || strings.HasPrefix(dir, name+string(filepath.Separator))
}

// addTree adds root and every directory below it.
func addTree(fw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return fw.Add(p)
		}
		return nil
	})
}
