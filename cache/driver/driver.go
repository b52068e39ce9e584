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

package driver

import (
	"fmt"
	"strings"
)

// Driver selects the store discovery results persist in when caching is
// enabled and no store is injected.
//
// # Values
//
//   - Memory: in-process store. Results live until invalidated or until
//     the process exits.
//   - Redis: Redis server at Config.RedisAddr. Results survive restarts
//     and are shared by every process using the same cache key.
//
// Driver values are plain integers and safe to share across goroutines.
// They round-trip through text, so they can appear in YAML files and
// environment variables.
type Driver int

const (
	// Memory selects the in-process store. It is the zero value.
	Memory Driver = iota
	// Redis selects the Redis store.
	Redis
)

// String returns the canonical name of d.
func (d Driver) String() string {
	switch d {
	case Memory:
		return "memory"
	case Redis:
		return "redis"
	default:
		return fmt.Sprintf("unknown(%d)", int(d))
	}
}

// Parse converts a textual name into a Driver. Matching is
// case-insensitive and ignores surrounding whitespace.
func Parse(s string) (Driver, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return Memory, fmt.Errorf("svx(cache): empty driver")
	}

	switch strings.ToLower(trimmed) {
	case "memory":
		return Memory, nil
	case "redis":
		return Redis, nil
	default:
		return Memory, fmt.Errorf("svx(cache): unknown driver %q", s)
	}
}

// MustParse is like Parse but panics on error.
// Intended for constants and tests.
func MustParse(s string) Driver {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

// MarshalText implements encoding.TextMarshaler.
func (d Driver) MarshalText() ([]byte, error) {
	switch d {
	case Memory, Redis:
		return []byte(d.String()), nil
	default:
		return nil, fmt.Errorf("svx(cache): cannot marshal unknown driver %d", int(d))
	}
}

// UnmarshalText implements encoding.TextUnmarshaler. On error d is left
// unchanged.
func (d *Driver) UnmarshalText(text []byte) error {
	v, err := Parse(string(text))
	if err != nil {
		return err
	}
	*d = v
	return nil
}
