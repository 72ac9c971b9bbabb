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

// Package annotations implements the side-table that attaches a
// (Taintedness, CausedByLines, MethodLinks) triple to every variable,
// property, or parameter symbol the analyzer has seen.
//
// spec.md §9 explicitly rejects attaching mutable fields to host-owned
// symbol objects in favor of "a map keyed by stable symbol identity...
// the analyzer owns the map". Since this implementation's host is
// golang.org/x/tools/go/ssa, an *ssa.Value already is a stable,
// immutable-once-defined identity (SSA registers are never reassigned -
// a new value is born for every definition), so the side-table keys
// directly on ssa.Value for locals/temporaries, and on a string key
// (package path + name) for globals and struct fields that have no
// single defining ssa.Value.
package annotations

import (
	"github.com/wikimedia/phan-taint-check-plugin/internal/pkg/taint"
	"golang.org/x/tools/go/ssa"
)

// Triple is the published (cloned) taint state for one symbol.
type Triple struct {
	Taint taint.Taintedness
	Links taint.MethodLinks
	Cause taint.CausedByLines
}

// Clone returns a deep, independent copy of t, suitable for publishing
// into a new symbol's entry without risking aliasing (spec.md §2
// "Ownership: always cloned on write").
func (t Triple) Clone() Triple {
	return Triple{
		Taint: t.Taint.Clone(),
		Links: t.Links.Clone(),
		Cause: append(taint.CausedByLines(nil), t.Cause...),
	}
}

// Table is the side-table itself.
type Table struct {
	byValue  map[ssa.Value]Triple
	byGlobal map[string]Triple
}

// New returns an empty Table.
func New() *Table {
	return &Table{
		byValue:  map[ssa.Value]Triple{},
		byGlobal: map[string]Triple{},
	}
}

// Get returns v's stored triple, or the Safe zero value if v has never
// been written.
func (tb *Table) Get(v ssa.Value) Triple {
	return tb.byValue[v]
}

// GetKnown mirrors Get, additionally reporting whether v has ever been
// written - used to tell "never seeded" apart from "seeded with the
// Safe zero value" when a caller needs to decide whether to seed a
// default at all.
func (tb *Table) GetKnown(v ssa.Value) (Triple, bool) {
	t, ok := tb.byValue[v]
	return t, ok
}

// Set publishes a clone of t as v's triple, overwriting any prior entry.
// Assignment of a fresh clone - never the caller's own t - is what keeps
// two symbols from ever sharing mutable structure (spec.md §5 "Memory
// discipline").
func (tb *Table) Set(v ssa.Value, t Triple) {
	tb.byValue[v] = t.Clone()
}

// GetGlobal and SetGlobal mirror Get/Set for symbols without a single
// defining ssa.Value (package-level globals, struct fields accessed by
// name across functions).
func (tb *Table) GetGlobal(key string) Triple {
	return tb.byGlobal[key]
}

// GetGlobalKnown mirrors GetKnown for the global table.
func (tb *Table) GetGlobalKnown(key string) (Triple, bool) {
	t, ok := tb.byGlobal[key]
	return t, ok
}

func (tb *Table) SetGlobal(key string, t Triple) {
	tb.byGlobal[key] = t.Clone()
}
