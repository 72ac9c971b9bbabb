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

package taint

import (
	"testing"

	"github.com/wikimedia/phan-taint-check-plugin/internal/pkg/flag"
	"golang.org/x/tools/go/ssa"
)

func fp(name string, idx int) FuncParam {
	return FuncParam{Func: &ssa.Function{}, Param: idx}
}

func TestMergeLinksCommutative(t *testing.T) {
	a := SingleLink(fp("f", 0))
	b := SingleLink(fp("g", 1))
	ab, ba := MergeLinks(a, b).Collapse(), MergeLinks(b, a).Collapse()
	if len(ab) != len(ba) {
		t.Fatalf("MergeLinks not commutative: %v vs %v", ab, ba)
	}
	for k, v := range ab {
		if ba[k] != v {
			t.Fatalf("MergeLinks not commutative at %v: %v vs %v", k, v, ba[k])
		}
	}
}

func TestPreservedTaintForParamFiltersByLink(t *testing.T) {
	target := fp("wrap", 0)
	other := fp("other", 0)
	ml := MethodLinks{
		Links: LinksSet{target: flag.HTML, other: flag.SQL},
		Known: map[Key]MethodLinks{
			IntKey(0): {Links: LinksSet{target: flag.Shell}},
		},
	}
	preserved := PreservedTaintForParam(ml, target)
	if preserved.Flags != flag.HTML {
		t.Fatalf("top-level preserved = %s, want %s", preserved.Flags, flag.HTML)
	}
	if preserved.Known[IntKey(0)].Flags != flag.Shell {
		t.Fatalf("nested preserved = %s, want %s", preserved.Known[IntKey(0)].Flags, flag.Shell)
	}
}

func TestCollapseLinksUnionsAllDepths(t *testing.T) {
	a := fp("a", 0)
	b := fp("b", 0)
	ml := MethodLinks{
		Links: LinksSet{a: flag.AllCategories},
		Known: map[Key]MethodLinks{
			StringKey("x"): {Links: LinksSet{b: flag.AllCategories}},
		},
	}
	collapsed := ml.Collapse()
	if _, ok := collapsed[a]; !ok {
		t.Fatalf("collapse missing top-level link")
	}
	if _, ok := collapsed[b]; !ok {
		t.Fatalf("collapse missing nested link")
	}
}
