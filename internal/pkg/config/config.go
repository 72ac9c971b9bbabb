// Copyright 2020 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config holds the user-declared, explicit Configuration value
// (sources, sinks, sanitizers, field tags, exclusions, custom category
// names) that the rest of the checker
// consults instead of ever hardcoding a project's sinks. It is the
// same matcher-registry idiom as google/go-flow-levee's
// internal/pkg/config, re-keyed so every matcher names the taint
// category it applies to rather than only a boolean yes/no.
package config

import (
	"flag"
	"os"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/wikimedia/phan-taint-check-plugin/internal/pkg/config/regexp"
	"github.com/wikimedia/phan-taint-check-plugin/internal/pkg/docblock"
	taintflag "github.com/wikimedia/phan-taint-check-plugin/internal/pkg/flag"
	"sigs.k8s.io/yaml"
)

// FlagSet is shared across every analyzer that needs to know where the
// configuration file lives, the same sharing idiom the teacher uses so
// -config only needs to be registered once.
var FlagSet flag.FlagSet
var configFile string

// Debug gates internal/pkg/debug's per-instruction triple dump, mirroring
// the teacher's own "-debug" test flag in internal/pkg/levee/levee_test.go
// that conditionally appends debug.Analyzer to Requires.
var Debug bool

func init() {
	FlagSet.StringVar(&configFile, "config", "taint-check.yaml", "path to analysis configuration file")
	FlagSet.BoolVar(&Debug, "debug", false, "dump computed (taintedness, links) triples for every instruction")
}

// CallMatcher selects calls by package path, receiver type name
// (empty matches free functions), and function/method name, and
// names which category the match applies to.
type CallMatcher struct {
	Package  regexp.Regexp
	Receiver regexp.Regexp
	Function regexp.Regexp
	Category string
}

func (m CallMatcher) matches(path, recv, name string) bool {
	return matchOrWildcard(m.Package, path) && matchOrWildcard(m.Receiver, recv) && matchOrWildcard(m.Function, name)
}

func (m CallMatcher) flags() taintflag.Flags {
	return docblock.CategoryFlag(m.Category)
}

// FieldMatcher selects a struct field by the field's declaring type's
// package/name and the field's own name.
type FieldMatcher struct {
	Package  regexp.Regexp
	Type     regexp.Regexp
	Field    regexp.Regexp
	Category string
}

func (m FieldMatcher) matches(path, typeName, fieldName string) bool {
	return matchOrWildcard(m.Package, path) && matchOrWildcard(m.Type, typeName) && matchOrWildcard(m.Field, fieldName)
}

// matchOrWildcard treats an omitted pattern (the zero Regexp) as
// matching anything, the same "unset field is a wildcard" convention
// YAML-authored matcher configs rely on - a sink declared only by
// package and function shouldn't have to spell out a "match any
// receiver" pattern.
func matchOrWildcard(re regexp.Regexp, s string) bool {
	if re.String() == "" {
		return true
	}
	return re.MatchString(s)
}

func (m FieldMatcher) flags() taintflag.Flags {
	return docblock.CategoryFlag(m.Category)
}

// FieldTagMatcher reports a source category for any struct field
// carrying a given struct-tag key/value pair, e.g. `taint:"password"`.
type FieldTagMatcher struct {
	Key      string
	Val      string
	Category string
}

func (m FieldTagMatcher) flags() taintflag.Flags {
	return docblock.CategoryFlag(m.Category)
}

// Configuration is the full set of project-specific declarations the
// checker consults. It is always an explicit value threaded through by
// the caller (spec.md §9's "configuration is an explicit value, never a
// package-level singleton"); ReadConfig/LoadYAML only exist to build
// one from a file on disk.
type Configuration struct {
	Sources    []FieldMatcher    `json:"sources,omitempty"`
	Sinks      []CallMatcher     `json:"sinks,omitempty"`
	Sanitizers []CallMatcher     `json:"sanitizers,omitempty"`
	FieldTags  []FieldTagMatcher `json:"fieldTags,omitempty"`
	Exclude    []CallMatcher     `json:"exclude,omitempty"`
	// CustomCategories names what Custom1/Custom2 mean for this
	// project, e.g. {"custom1": "password"}, purely for diagnostics -
	// the bit positions are fixed by internal/pkg/flag.
	CustomCategories map[string]string `json:"customCategories,omitempty"`
	// AllowPanicOnTaintedValues suppresses the "would panic on tainted
	// input" diagnostic some hosts emit for a tainted value reaching a
	// panic/index-out-of-range-prone position; off by default.
	AllowPanicOnTaintedValues bool `json:"allowPanicOnTaintedValues,omitempty"`
}

// SinkFlags returns the union of every sink category matching the
// given call, converted to EXEC bits (a sink *accepts* a category, so
// matching a tainted value there is what triggers a diagnostic). A
// category already spelled in its exec form (e.g. "exec_sql") is kept
// as that EXEC bit.
func (c *Configuration) SinkFlags(path, recv, name string) taintflag.Flags {
	var out taintflag.Flags
	for _, m := range c.Sinks {
		if m.matches(path, recv, name) {
			f := m.flags()
			out |= taintflag.YesToExec(f) | f&taintflag.ExecMask
		}
	}
	return out
}

// SanitizerFlags returns the union of every category a call to the
// given function removes, empty category meaning "removes everything"
// (flag.YesMask).
func (c *Configuration) SanitizerFlags(path, recv, name string) (taintflag.Flags, bool) {
	var out taintflag.Flags
	matched := false
	for _, m := range c.Sanitizers {
		if m.matches(path, recv, name) {
			matched = true
			if m.Category == "" {
				out |= taintflag.YesMask
			} else {
				out |= m.flags()
			}
		}
	}
	return out, matched
}

// IsExcluded reports whether a function matches one of the exclusion
// patterns and should never be analyzed or reported on.
func (c *Configuration) IsExcluded(path, recv, name string) bool {
	for _, m := range c.Exclude {
		if m.matches(path, recv, name) {
			return true
		}
	}
	return false
}

// SourceFieldFlags returns the taint a read of typePath.typeName.fieldName
// should carry, if any matcher or field-tag names it as a source.
func (c *Configuration) SourceFieldFlags(typePath, typeName, fieldName string) taintflag.Flags {
	var out taintflag.Flags
	for _, m := range c.Sources {
		if m.matches(typePath, typeName, fieldName) {
			out |= m.flags()
		}
	}
	return out
}

// IsSourceType reports whether every field of typePath.typeName should
// be treated as a source, which a matcher declares by naming the type
// but leaving its field pattern a wildcard.
func (c *Configuration) IsSourceType(typePath, typeName string) bool {
	for _, m := range c.Sources {
		if m.Field.String() == "" && matchOrWildcard(m.Package, typePath) && matchOrWildcard(m.Type, typeName) {
			return true
		}
	}
	return false
}

// IsSourceFieldTag reports the category a struct field tag declares as
// a source, consulting the built-in `taint:"source"` tag (equivalent to
// the teacher's `levee:"source"`) before user-declared tag matchers.
func (c *Configuration) IsSourceFieldTag(tag string) taintflag.Flags {
	if unq, err := strconv.Unquote(tag); err == nil {
		tag = unq
	}
	st := reflect.StructTag(tag)
	if st.Get("taint") == "source" {
		return taintflag.YesMask
	}
	for _, ftm := range c.FieldTags {
		val := st.Get(ftm.Key)
		for _, v := range strings.Split(val, ",") {
			if v == ftm.Val {
				return ftm.flags()
			}
		}
	}
	return 0
}

var readFileOnce sync.Once
var readConfigCached *Configuration
var readConfigCachedErr error

// ReadConfig loads and caches the Configuration named by the -config
// flag, parsing it with sigs.k8s.io/yaml (which also accepts a file
// written as JSON). A missing file yields an empty Configuration rather
// than an error.
func ReadConfig() (*Configuration, error) {
	readFileOnce.Do(func() {
		bytes, err := os.ReadFile(configFile)
		if err != nil {
			if os.IsNotExist(err) {
				readConfigCached = &Configuration{}
				return
			}
			readConfigCachedErr = err
			return
		}
		c, err := parse(bytes)
		if err != nil {
			readConfigCachedErr = err
			return
		}
		readConfigCached = c
	})
	return readConfigCached, readConfigCachedErr
}

// LoadYAML parses raw YAML bytes into a Configuration without touching
// the cached, flag-driven ReadConfig path - used by callers (tests,
// tooling) that already have the bytes in hand.
func LoadYAML(data []byte) (*Configuration, error) {
	return parse(data)
}

func parse(data []byte) (*Configuration, error) {
	c := &Configuration{}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, err
	}
	return c, nil
}

// SetBytes installs raw configuration bytes directly, bypassing the
// file system - used by callers embedding the checker as a library
// with an in-memory configuration. Marks the lazy file read as already
// done so a later ReadConfig call returns this value instead of trying
// to open configFile.
func SetBytes(data []byte) error {
	c, err := parse(data)
	if err != nil {
		return err
	}
	readFileOnce.Do(func() {})
	readConfigCached = c
	readConfigCachedErr = nil
	return nil
}
