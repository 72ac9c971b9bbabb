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

// This file is the assignment visitor (spec.md C8): the shape-aware
// write path for every SSA instruction that targets an address-like
// value rather than producing a plain result - *ssa.Store,
// *ssa.MapUpdate, *ssa.Send. Go's compiler has already desugared every
// augmented assignment (+=, etc.) into a load, a BinOp, and a plain
// Store by the time SSA form exists, so every Store and MapUpdate seen
// here is an override - the override/merge distinction C8 draws for
// the host's `=` vs `+=` collapses into "always override" on this host.
// The one merge is a channel Send, which joins into the channel's
// unknown position (see visitSend).
package propagation

import (
	"go/types"

	"github.com/wikimedia/phan-taint-check-plugin/internal/pkg/flag"
	"github.com/wikimedia/phan-taint-check-plugin/internal/pkg/taint"
	"golang.org/x/tools/go/ssa"
)

// visitStore writes t.Val's triple into the symbol the address t.Addr
// resolves to, at the path resolveBase walked to get there.
func (v *Visitor) visitStore(t *ssa.Store) {
	val := v.triple(t.Val)
	root, path, linkPath := resolveBase(t.Addr)
	if root == nil {
		return
	}
	rootTriple := v.triple(root)

	rootTriple.Taint = rootTriple.Taint.SetAtPath(path, val.Taint, true)
	rootTriple.Links = rootTriple.Links.SetLinksAtOffsetList(linkPath, val.Links, true)
	rootTriple.Cause = taint.MergeCausedBy(rootTriple.Cause, val.Cause)
	if val.Taint.Collapse() != 0 {
		rootTriple.Cause = rootTriple.Cause.Append(taint.CausedByLine{Line: t.Pos(), Taint: val.Taint, Links: val.Links})
	}

	applyNumkeyRule(&rootTriple.Taint, path, val.Taint, t.Val.Type())

	v.Table.Set(root, rootTriple)
}

// visitMapUpdate writes t.Value's triple into t.Map at the scalar or
// unknown key t.Key resolves to.
func (v *Visitor) visitMapUpdate(t *ssa.MapUpdate) {
	val := v.triple(t.Value)
	keyTrip := v.triple(t.Key)
	root, path, linkPath := resolveBase(t.Map)
	if root == nil {
		return
	}
	rootTriple := v.triple(root)

	key, scalar := constKey(t.Key)
	fullPath := append(append([]taint.PathStep{}, path...), taint.PathStep{
		Key: key, Scalar: scalar, KeyTaint: keyTrip.Taint.Collapse(),
	})
	fullLinkPath := append(append([]taint.LinkPathStep{}, linkPath...), taint.LinkPathStep{Key: key, Scalar: scalar})

	rootTriple.Taint = rootTriple.Taint.SetAtPath(fullPath, val.Taint, true)
	rootTriple.Links = rootTriple.Links.SetLinksAtOffsetList(fullLinkPath, val.Links, true)
	rootTriple.Cause = taint.MergeCausedBy(rootTriple.Cause, val.Cause)
	if val.Taint.Collapse() != 0 {
		rootTriple.Cause = rootTriple.Cause.Append(taint.CausedByLine{Line: t.Pos(), Taint: val.Taint, Links: val.Links})
	}

	v.Table.Set(root, rootTriple)
}

// visitSend writes t.X's triple into t.Chan's unknown (any-message)
// position - a channel has no scalar keys, every send lands in the same
// unresolved bucket a receive reads back from.
func (v *Visitor) visitSend(t *ssa.Send) {
	val := v.triple(t.X)
	root, path, linkPath := resolveBase(t.Chan)
	if root == nil {
		return
	}
	rootTriple := v.triple(root)

	fullPath := append(append([]taint.PathStep{}, path...), taint.PathStep{Scalar: false})
	fullLinkPath := append(append([]taint.LinkPathStep{}, linkPath...), taint.LinkPathStep{Scalar: false})

	rootTriple.Taint = rootTriple.Taint.SetAtPath(fullPath, val.Taint, false)
	rootTriple.Links = rootTriple.Links.SetLinksAtOffsetList(fullLinkPath, val.Links, false)
	rootTriple.Cause = taint.MergeCausedBy(rootTriple.Cause, val.Cause)

	v.Table.Set(root, rootTriple)
}

// applyNumkeyRule is the Go-idiomatic form of spec.md §4.7's numkey
// special case: a SQL-tainted string written at an integer key (a slice
// or array index, as opposed to a map's string key or a struct field)
// marks the containing value SQLNumkey, the signal a later string
// concatenation of that element into a query string should be treated
// as a SQL sink violation even though the concatenation itself only
// sees a plain string.
func applyNumkeyRule(parent *taint.Taintedness, path []taint.PathStep, child taint.Taintedness, elemType types.Type) {
	if len(path) == 0 {
		return
	}
	last := path[len(path)-1]
	if last.Key.Kind != taint.KeyInt || !last.Scalar {
		return
	}
	if !child.Collapse().Has(flag.SQL) {
		return
	}
	if basic, ok := elemType.Underlying().(*types.Basic); !ok || basic.Info()&types.IsString == 0 {
		return
	}
	*parent = parent.SetAtPath(path[:len(path)-1], taint.FromFlags(flag.SQLNumkey), false)
}
