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

package config

import (
	"sync"
	"testing"

	"github.com/wikimedia/phan-taint-check-plugin/internal/pkg/flag"
)

const sampleYAML = `
sinks:
  - package: database/sql
    receiver: "DB"
    function: Exec
    category: exec_sql
sanitizers:
  - package: html
    function: EscapeString
    category: html
sources:
  - package: net/http
    type: Request
    field: Header
    category: tainted
fieldTags:
  - key: taint
    val: password
    category: custom1
exclude:
  - package: myproject/internal/testhelpers
    function: ".*"
customCategories:
  custom1: password
allowPanicOnTaintedValues: true
`

func loadSample(t *testing.T) *Configuration {
	t.Helper()
	c, err := LoadYAML([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("LoadYAML returned an unexpected error: %v", err)
	}
	return c
}

func TestSinkFlagsMatchesCategory(t *testing.T) {
	c := loadSample(t)
	got := c.SinkFlags("database/sql", "DB", "Exec")
	if got != flag.SQLExec {
		t.Fatalf("SinkFlags = %s, want %s", got, flag.SQLExec)
	}
}

func TestSinkFlagsNoMatch(t *testing.T) {
	c := loadSample(t)
	if got := c.SinkFlags("fmt", "", "Println"); got != 0 {
		t.Fatalf("expected no sink flags for fmt.Println, got %s", got)
	}
}

func TestSanitizerFlagsNamedCategory(t *testing.T) {
	c := loadSample(t)
	got, matched := c.SanitizerFlags("html", "", "EscapeString")
	if !matched {
		t.Fatalf("expected html.EscapeString to match a sanitizer")
	}
	if got != flag.HTML {
		t.Fatalf("SanitizerFlags = %s, want %s", got, flag.HTML)
	}
}

func TestSourceFieldFlagsTaintedAlias(t *testing.T) {
	c := loadSample(t)
	got := c.SourceFieldFlags("net/http", "Request", "Header")
	if got != flag.YesMask {
		t.Fatalf("SourceFieldFlags = %s, want %s", got, flag.YesMask)
	}
}

func TestIsExcluded(t *testing.T) {
	c := loadSample(t)
	if !c.IsExcluded("myproject/internal/testhelpers", "", "Setup") {
		t.Fatalf("expected testhelpers.Setup to be excluded")
	}
	if c.IsExcluded("myproject/handlers", "", "Setup") {
		t.Fatalf("did not expect myproject/handlers.Setup to be excluded")
	}
}

func TestIsSourceFieldTagBuiltin(t *testing.T) {
	c := loadSample(t)
	if got := c.IsSourceFieldTag(`taint:"source"`); got != flag.YesMask {
		t.Fatalf("built-in taint:\"source\" tag should be fully tainted, got %s", got)
	}
}

func TestIsSourceFieldTagCustom(t *testing.T) {
	c := loadSample(t)
	got := c.IsSourceFieldTag(`taint:"password"`)
	if got != flag.Custom1 {
		t.Fatalf("taint:\"password\" should map to custom1, got %s", got)
	}
}

func TestIsSourceFieldTagNoMatch(t *testing.T) {
	c := loadSample(t)
	if got := c.IsSourceFieldTag(`json:"name"`); got != 0 {
		t.Fatalf("unrelated tag should carry no taint, got %s", got)
	}
}

func TestAllowPanicOnTaintedValues(t *testing.T) {
	c := loadSample(t)
	if !c.AllowPanicOnTaintedValues {
		t.Fatalf("expected allowPanicOnTaintedValues to be true")
	}
}

func TestSetBytesThenReadConfig(t *testing.T) {
	readFileOnce = sync.Once{}
	if err := SetBytes([]byte(`sinks:
  - package: os/exec
    function: Command
    category: exec_shell
`)); err != nil {
		t.Fatalf("SetBytes returned an unexpected error: %v", err)
	}
	c, err := ReadConfig()
	if err != nil {
		t.Fatalf("ReadConfig returned an unexpected error: %v", err)
	}
	if got := c.SinkFlags("os/exec", "", "Command"); got != flag.ShellExec {
		t.Fatalf("SinkFlags after SetBytes = %s, want %s", got, flag.ShellExec)
	}
}
