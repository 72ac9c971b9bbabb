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

package contract

import (
	"go/token"
	"go/types"
	"testing"

	"github.com/wikimedia/phan-taint-check-plugin/internal/pkg/flag"
	"github.com/wikimedia/phan-taint-check-plugin/internal/pkg/taint"
	"golang.org/x/tools/go/ssa"
)

func oneParamFunc() *ssa.Function {
	sig := types.NewSignatureType(nil, nil, nil,
		types.NewTuple(types.NewVar(token.NoPos, nil, "s", types.Typ[types.String])),
		nil, false)
	return &ssa.Function{Signature: sig, Params: []*ssa.Parameter{new(ssa.Parameter)}}
}

func TestContractMonotoneAcrossReanalysis(t *testing.T) {
	fn := oneParamFunc()
	store := NewStore()

	first := New(fn)
	first.Overall = taint.FromFlags(flag.HTML)
	store.Merge(fn, first)

	second := New(fn)
	second.Overall = taint.FromFlags(flag.SQL)
	store.Merge(fn, second)

	got, _ := store.Lookup(fn)
	want := flag.HTML | flag.SQL
	if got.Overall.Collapse() != want {
		t.Fatalf("Overall = %s, want %s", got.Overall.Collapse(), want)
	}
}

func TestMergeReportsChanged(t *testing.T) {
	fn := oneParamFunc()
	store := NewStore()

	first := New(fn)
	first.Overall = taint.FromFlags(flag.HTML)
	store.Merge(fn, first)
	if !store.Changed() {
		t.Fatalf("expected Changed() after first merge introducing new bits")
	}

	store.ResetChanged()
	same := New(fn)
	same.Overall = taint.FromFlags(flag.HTML)
	store.Merge(fn, same)
	if store.Changed() {
		t.Fatalf("expected no change re-merging identical contract")
	}
}

func TestGetOrCreateInstallsSafeDefault(t *testing.T) {
	fn := oneParamFunc()
	store := NewStore()
	ft := store.GetOrCreate(fn)
	if !ft.Overall.IsSafe() {
		t.Fatalf("default contract should be Safe, got %s", ft.Overall.Collapse())
	}
	if len(ft.Params) != 1 {
		t.Fatalf("expected 1 param slot, got %d", len(ft.Params))
	}
}

func TestParamSinkFallsBackToVariadic(t *testing.T) {
	fn := oneParamFunc()
	ft := New(fn)
	v := taint.FromFlags(flag.ShellExec)
	ft.VariadicParam = &v
	if got := ft.ParamSink(5); got.Collapse() != flag.ShellExec {
		t.Fatalf("ParamSink(5) = %s, want %s", got.Collapse(), flag.ShellExec)
	}
}
