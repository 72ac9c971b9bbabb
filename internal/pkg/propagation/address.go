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

package propagation

import (
	"go/constant"
	"go/token"
	"go/types"

	"github.com/wikimedia/phan-taint-check-plugin/internal/pkg/annotations"
	"github.com/wikimedia/phan-taint-check-plugin/internal/pkg/flag"
	"github.com/wikimedia/phan-taint-check-plugin/internal/pkg/source"
	"github.com/wikimedia/phan-taint-check-plugin/internal/pkg/taint"
	"github.com/wikimedia/phan-taint-check-plugin/internal/pkg/utils"
	"golang.org/x/tools/go/ssa"
)

// resolveBase walks back through a chain of *ssa.FieldAddr/*ssa.IndexAddr
// address computations and *ssa.UnOp pointer dereferences to find the
// ssa.Value the analyzer tracks taint for directly (an *ssa.Alloc,
// *ssa.Global, *ssa.FreeVar, *ssa.Parameter, or - for anything else, a
// value whose own Triple was stored when it was computed), plus the key
// path from that base to v. This is the SSA-form counterpart of
// spec.md C8's "walk the LHS" and C7's "subscript read" rules: because
// SSA already gives every intermediate a distinct value identity, both
// reads and writes resolve through the exact same walk.
func resolveBase(v ssa.Value) (base ssa.Value, path []taint.PathStep, linkPath []taint.LinkPathStep) {
	switch t := v.(type) {
	case *ssa.FieldAddr:
		b, p, lp := resolveBase(t.X)
		name := utils.FieldName(t)
		return b, append(p, taint.PathStep{Key: taint.FieldKey(name), Scalar: true}),
			append(lp, taint.LinkPathStep{Key: taint.FieldKey(name), Scalar: true})

	case *ssa.IndexAddr:
		b, p, lp := resolveBase(t.X)
		key, scalar := constKey(t.Index)
		return b, append(p, taint.PathStep{Key: key, Scalar: scalar}),
			append(lp, taint.LinkPathStep{Key: key, Scalar: scalar})

	case *ssa.UnOp:
		if t.Op == token.MUL {
			return resolveBase(t.X)
		}
		return v, nil, nil

	default:
		return v, nil, nil
	}
}

// constKey resolves an index/key expression to a scalar taint.Key when
// it is a compile-time constant, matching spec.md's "resolve k if
// scalar-constant" subscript-read rule. A non-constant key still
// indexes into the shape, just at the Unknown position (scalar=false).
func constKey(v ssa.Value) (taint.Key, bool) {
	c, ok := v.(*ssa.Const)
	if !ok || c.Value == nil {
		return taint.Key{}, false
	}
	switch c.Value.Kind() {
	case constant.Int:
		if i, exact := constant.Int64Val(c.Value); exact {
			return taint.IntKey(i), true
		}
	case constant.String:
		return taint.StringKey(constant.StringVal(c.Value)), true
	}
	return taint.Key{}, false
}

// globalSourceTaint reports the hardcoded Taintedness a read of the
// package-qualified global variable name should carry, per
// internal/pkg/source's superglobal-equivalent table.
func globalSourceTaint(qualifiedName string) (taint.Taintedness, bool) {
	return source.IsGlobalSource(qualifiedName)
}

// fieldSourceFlags reports additional taint a field read should carry
// due to Configuration-declared sources, struct tags, or the fieldtags
// analyzer - used when a *ssa.FieldAddr is first read so a field never
// silently reports Safe just because nothing was ever explicitly
// assigned to it in the function under analysis.
func fieldSourceFlags(v *Visitor, fa *ssa.FieldAddr) flag.Flags {
	typePath, typeName, fieldName := utils.DecomposeField(fa.X.Type(), fa.Field)

	var out flag.Flags
	if ft, shaped := source.FieldTaintedness(typePath, typeName, fieldName); shaped {
		out |= ft.Flags
	}
	out |= v.Conf.SourceFieldFlags(typePath, typeName, fieldName)
	if v.FieldTags != nil && v.FieldTags.IsSource(fa) {
		out |= flag.YesMask
	}

	deref := utils.Dereference(fa.X.Type())
	if st, ok := deref.Underlying().(*types.Struct); ok && fa.Field < st.NumFields() {
		if tag := st.Tag(fa.Field); tag != "" {
			out |= v.Conf.IsSourceFieldTag(tag)
		}
	}
	return out
}

// visitFieldAddr gives a field address a zero triple of its own (it has
// no taint directly - a read happens through the UnOp load that
// dereferences it) and, if the field is a declared source, merges that
// source taint into the base symbol's shape at this field's path so
// every subsequent read of the field - through this FieldAddr or a
// different one computed later in the function - observes it.
func (v *Visitor) visitFieldAddr(fa *ssa.FieldAddr) {
	v.Table.Set(fa, annotations.Triple{})

	flags := fieldSourceFlags(v, fa)
	if flags == 0 {
		return
	}
	root, path, _ := resolveBase(fa)
	if root == nil {
		return
	}
	rootTriple := v.triple(root)
	rootTriple.Taint = rootTriple.Taint.SetAtPath(path, taint.FromFlags(flags), false)
	v.Table.Set(root, rootTriple)
}
