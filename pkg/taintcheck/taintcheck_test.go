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

package taintcheck

import (
	"path/filepath"
	"testing"

	"github.com/wikimedia/phan-taint-check-plugin/internal/pkg/config"
	"golang.org/x/tools/go/analysis/analysistest"
)

// TestTaintCheckAnalysis runs the whole analyzer end to end over one
// fixture package per scenario: direct echo of untrusted input,
// escaper laundering and double-escape, by-reference write ordering,
// shape-preserving assignment, the SQL-numkey special case, and
// cross-function propagation through a contract.
func TestTaintCheckAnalysis(t *testing.T) {
	testdata := analysistest.TestData()
	if err := config.FlagSet.Set("config", filepath.Join(testdata, "test-config.yaml")); err != nil {
		t.Fatal(err)
	}
	analysistest.Run(t, testdata, Analyzer,
		"example.com/tests/echo",
		"example.com/tests/escape",
		"example.com/tests/byref",
		"example.com/tests/shape",
		"example.com/tests/numkey",
		"example.com/tests/crossfunc",
	)
}
