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

package driver_test

import (
	"testing"

	"gopkg.in/yaml.v3"

	"dirpx.dev/svx/cache/driver"
)

func TestDriverString(t *testing.T) {
	tests := []struct {
		name   string
		driver driver.Driver
		want   string
	}{
		{name: "Memory", driver: driver.Memory, want: "memory"},
		{name: "Redis", driver: driver.Redis, want: "redis"},
		{name: "Unknown", driver: driver.Driver(42), want: "unknown(42)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.driver.String(); got != tt.want {
				t.Fatalf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    driver.Driver
		wantErr bool
	}{
		{name: "memory", input: "memory", want: driver.Memory},
		{name: "upper redis", input: "REDIS", want: driver.Redis},
		{name: "padded", input: "  Redis\t", want: driver.Redis},
		{name: "empty", input: "   ", wantErr: true},
		{name: "unknown", input: "memcached", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := driver.Parse(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Parse(%q) expected error, got nil", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Fatalf("Parse(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestMustParsePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("MustParse did not panic on an unknown driver")
		}
	}()
	_ = driver.MustParse("disk")
}

func TestText(t *testing.T) {
	if _, err := driver.Driver(7).MarshalText(); err == nil {
		t.Fatal("MarshalText of unknown driver: expected error")
	}

	d := driver.Redis
	if err := d.UnmarshalText([]byte("bogus")); err == nil {
		t.Fatal("UnmarshalText(bogus): expected error")
	}
	if d != driver.Redis {
		t.Fatalf("failed UnmarshalText changed the value to %v", d)
	}
}

func TestYAML(t *testing.T) {
	var doc struct {
		Driver driver.Driver `yaml:"driver"`
	}
	if err := yaml.Unmarshal([]byte("driver: redis\n"), &doc); err != nil {
		t.Fatalf("yaml.Unmarshal: %v", err)
	}
	if doc.Driver != driver.Redis {
		t.Fatalf("Driver = %v, want redis", doc.Driver)
	}

	out, err := yaml.Marshal(doc)
	if err != nil {
		t.Fatalf("yaml.Marshal: %v", err)
	}
	if string(out) != "driver: redis\n" {
		t.Fatalf("yaml.Marshal = %q", out)
	}
}
