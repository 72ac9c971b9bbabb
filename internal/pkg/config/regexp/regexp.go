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

// Package regexp wraps regexp.Regexp so that it can be unmarshalled
// directly from a JSON or YAML configuration value.
package regexp

import (
	"encoding/json"
	"regexp"
)

// Regexp is a *regexp.Regexp that can be unmarshalled from a JSON string.
type Regexp struct {
	r *regexp.Regexp
}

// MatchString reports whether the underlying regexp matches s.
// A Regexp with no underlying pattern matches anything.
func (re *Regexp) MatchString(s string) bool {
	if re == nil || re.r == nil {
		return true
	}
	return re.r.MatchString(s)
}

// UnmarshalJSON compiles the JSON string value as a regular expression.
func (re *Regexp) UnmarshalJSON(data []byte) error {
	var pattern string
	if err := json.Unmarshal(data, &pattern); err != nil {
		return err
	}
	compiled, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	re.r = compiled
	return nil
}

// String returns the source pattern, or the empty string if unset.
func (re *Regexp) String() string {
	if re == nil || re.r == nil {
		return ""
	}
	return re.r.String()
}
