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

// Package debug dumps, per instruction, the (taintedness, links) triple
// the propagation visitor computed for it - the concrete form of
// spec.md's "for developers diagnosing why a diagnostic did or didn't
// fire".
//
// The teacher's internal/pkg/debug wrote a function's SSA and DOT form
// to files on disk via internal/pkg/debug/render (graphviz source). That
// rendering concern has no taint-specific content and is dropped here
// (see DESIGN.md); what survives is the teacher's per-node naming
// (node.CanonicalName) and the "one line per instruction" dump shape,
// now printing a taint.Taintedness/taint.MethodLinks pair instead of an
// SSA operand list.
package debug

import (
	"fmt"
	"go/types"
	"io"

	"github.com/wikimedia/phan-taint-check-plugin/internal/pkg/annotations"
	"github.com/wikimedia/phan-taint-check-plugin/internal/pkg/debug/node"
	"golang.org/x/tools/go/ssa"
)

// Dump writes one line per instruction in fn's body, showing the
// CanonicalName the teacher's node package derives plus the triple
// currently published for that instruction's value, if any.
func Dump(w io.Writer, fn *ssa.Function, table *annotations.Table) {
	var pkg *types.Package
	if fn.Pkg != nil {
		pkg = fn.Pkg.Pkg
	}
	fmt.Fprintf(w, "=== %s ===\n", fn.RelString(pkg))
	for _, b := range fn.Blocks {
		fmt.Fprintf(w, "%d:\n", b.Index)
		for _, instr := range b.Instrs {
			name := node.CanonicalName(instr)
			kind := node.TrimmedType(instr)
			v, isValue := instr.(ssa.Value)
			if !isValue {
				fmt.Fprintf(w, "\t[%s] %s\n", kind, name)
				continue
			}
			trip := table.Get(v)
			fmt.Fprintf(w, "\t[%s] %s\ttaint=%s\tlinks=%s\n", kind, name, trip.Taint, trip.Links)
		}
	}
}

// DumpParams writes the seeded triple for every formal parameter of fn,
// useful for checking that source.IsGlobalSource / a struct-tag source /
// a docblock annotation took effect before the body is visited at all.
func DumpParams(w io.Writer, fn *ssa.Function, table *annotations.Table) {
	for i, p := range fn.Params {
		trip := table.Get(p)
		fmt.Fprintf(w, "\tparam[%d] %s\ttaint=%s\tlinks=%s\n", i, p.Name(), trip.Taint, trip.Links)
	}
}
