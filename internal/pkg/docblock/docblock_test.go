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

package docblock

import (
	"testing"

	"github.com/wikimedia/phan-taint-check-plugin/internal/pkg/flag"
)

func TestParseTokensPlainCategory(t *testing.T) {
	ann := ParseTokens("html")
	want := flag.HTML | flag.NoOverride
	if ann.Flags != want {
		t.Fatalf("Flags = %s, want %s", ann.Flags, want)
	}
}

func TestParseTokensExecCategory(t *testing.T) {
	ann := ParseTokens("exec_sql")
	if !ann.Flags.Has(flag.SQLExec) {
		t.Fatalf("exec_sql should set SQLExec, got %s", ann.Flags)
	}
	if ann.Flags.Has(flag.SQL) {
		t.Fatalf("exec_sql should not set the plain SQL bit, got %s", ann.Flags)
	}
}

func TestParseTokensEscapesAddsEscapedExec(t *testing.T) {
	ann := ParseTokens("escapes_html")
	if !ann.Flags.Has(flag.HTMLExec) || !ann.Flags.Has(flag.EscapedExec) {
		t.Fatalf("escapes_html should set HTMLExec and EscapedExec, got %s", ann.Flags)
	}
}

func TestParseTokensOnlySafeForAddsEscaped(t *testing.T) {
	ann := ParseTokens("onlysafefor_sql")
	if !ann.Flags.Has(flag.SQLExec) || !ann.Flags.Has(flag.Escaped) {
		t.Fatalf("onlysafefor_sql should set SQLExec and Escaped, got %s", ann.Flags)
	}
}

func TestParseTokensAllowOverrideUnlocksDefault(t *testing.T) {
	locked := ParseTokens("html")
	if !locked.Flags.Has(flag.NoOverride) {
		t.Fatalf("default should lock with NoOverride")
	}
	unlocked := ParseTokens("html, allow_override")
	if unlocked.Flags.Has(flag.NoOverride) {
		t.Fatalf("allow_override should suppress NoOverride, got %s", unlocked.Flags)
	}
	if !unlocked.AllowOverride {
		t.Fatalf("AllowOverride should be true")
	}
}

func TestParseTokensModifiers(t *testing.T) {
	ann := ParseTokens("sql array_ok raw_param")
	if !ann.ArrayOK || !ann.Flags.Has(flag.ArrayOK) {
		t.Fatalf("array_ok should set ArrayOK field and flag bit")
	}
	if !ann.RawParam || !ann.Flags.Has(flag.RawParam) {
		t.Fatalf("raw_param should set RawParam field and flag bit")
	}
}

func TestParseTokensAliases(t *testing.T) {
	if got := ParseTokens("tainted").Flags.Categories(); got != flag.YesMask {
		t.Fatalf("tainted alias should set every yes bit, got %s", got)
	}
	if got := ParseTokens("htmlnoent").Flags.Categories(); got != flag.HTML {
		t.Fatalf("htmlnoent alias should map to HTML, got %s", got)
	}
}

func TestParseDocExtractsParamsAndReturn(t *testing.T) {
	doc := "// @param-taint $query exec_sql\n" +
		"// @param-taint $opts array_ok\n" +
		"// @return-taint html\n"
	params, ret := ParseDoc(doc)
	if len(params) != 2 {
		t.Fatalf("expected 2 param-taint lines, got %d", len(params))
	}
	if params[0].Param != "query" || !params[0].Annotation.Flags.Has(flag.SQLExec) {
		t.Fatalf("unexpected first param annotation: %+v", params[0])
	}
	if params[1].Param != "opts" || !params[1].Annotation.ArrayOK {
		t.Fatalf("unexpected second param annotation: %+v", params[1])
	}
	if !ret.Flags.Has(flag.HTML) {
		t.Fatalf("expected return annotation to carry HTML, got %s", ret.Flags)
	}
}

func TestParseDocIgnoresUnrelatedComments(t *testing.T) {
	params, ret := ParseDoc("// just a regular comment\n// nothing special here\n")
	if len(params) != 0 {
		t.Fatalf("expected no param annotations, got %d", len(params))
	}
	if ret.Flags != 0 {
		t.Fatalf("expected no return annotation, got %s", ret.Flags)
	}
}
