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
	"github.com/wikimedia/phan-taint-check-plugin/internal/pkg/taint"
	"golang.org/x/tools/go/ssa"
)

// Store holds every function's inferred contract across a single run of
// the analyzer, the way google/go-flow-levee's cfa.Analyzer stores one
// cfa.Function per *ssa.Function in its ResultType map. It owns the
// "has anything changed this pass" bookkeeping that lets the host
// decide whether another pass over mutually recursive functions is
// warranted (spec.md §9).
type Store struct {
	contracts map[*ssa.Function]*FunctionTaintedness
	causes    map[*ssa.Function]*FunctionCausedByLines
	changed   bool
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{
		contracts: map[*ssa.Function]*FunctionTaintedness{},
		causes:    map[*ssa.Function]*FunctionCausedByLines{},
	}
}

// GetOrCreate returns fn's contract, lazily installing an all-Safe one
// (spec.md §7 "Contract absent after analysis": "install a safe default
// contract") if this is the first time fn has been seen - this is what
// lets mutual recursion terminate instead of looping forever.
func (s *Store) GetOrCreate(fn *ssa.Function) *FunctionTaintedness {
	if ft, ok := s.contracts[fn]; ok {
		return ft
	}
	ft := New(fn)
	s.contracts[fn] = ft
	s.causes[fn] = &FunctionCausedByLines{Params: make([]taint.CausedByLines, len(ft.Params))}
	return ft
}

// Lookup returns fn's contract and whether one has been recorded yet,
// without creating a default.
func (s *Store) Lookup(fn *ssa.Function) (*FunctionTaintedness, bool) {
	ft, ok := s.contracts[fn]
	return ft, ok
}

// CausedBy returns fn's cause-trail record, creating an empty one if
// absent.
func (s *Store) CausedBy(fn *ssa.Function) *FunctionCausedByLines {
	cbl, ok := s.causes[fn]
	if !ok {
		cbl = &FunctionCausedByLines{}
		s.causes[fn] = cbl
	}
	return cbl
}

// Merge folds incoming into fn's stored contract, recording whether
// anything changed so Changed() reflects it.
func (s *Store) Merge(fn *ssa.Function, incoming *FunctionTaintedness) {
	cur := s.GetOrCreate(fn)
	if cur.Merge(incoming) {
		s.changed = true
	}
}

// MergeCausedBy folds incoming's per-parameter cause-trails into fn's
// stored record, unioning entries position-wise.
func (s *Store) MergeCausedBy(fn *ssa.Function, incoming *FunctionCausedByLines) {
	cur := s.CausedBy(fn)
	if len(cur.Params) < len(incoming.Params) {
		grown := make([]taint.CausedByLines, len(incoming.Params))
		copy(grown, cur.Params)
		cur.Params = grown
	}
	for i, lines := range incoming.Params {
		cur.Params[i] = taint.MergeCausedBy(cur.Params[i], lines)
	}
	cur.VariadicParam = taint.MergeCausedBy(cur.VariadicParam, incoming.VariadicParam)
}

// Changed reports whether any contract in the store has grown since the
// last call to ResetChanged. The host uses this to decide whether
// another analysis pass over a strongly-connected set of functions is
// warranted.
func (s *Store) Changed() bool {
	return s.changed
}

// ResetChanged clears the changed flag, typically called at the start
// of each additional pass.
func (s *Store) ResetChanged() {
	s.changed = false
}
