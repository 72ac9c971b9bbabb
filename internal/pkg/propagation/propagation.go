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

// Package propagation is the propagation visitor: given a function's
// SSA form, it computes a (taintedness, cause-trail, links) triple for
// every instruction, writes shape-aware assignments back into the
// symbol table (internal/pkg/annotations), runs the sink protocol on
// call arguments, and refines each function's contract
// (internal/pkg/contract) as it goes.
//
// go/ssa already gives every value a stable identity and puts the
// program in single-assignment form, which collapses most of what a
// source-level propagation visitor has to do by hand: a "symbol" is
// just an *ssa.Value, and "assignment" is always one of *ssa.Store,
// *ssa.MapUpdate, or *ssa.Send targeting an address-like value
// (*ssa.Alloc, *ssa.FieldAddr, *ssa.IndexAddr, *ssa.Global). The
// propagation visitor here is organized the same way google/go-flow-levee's
// propagation.go dispatches on ssa.Node kind, but every case computes a
// taint.Taintedness/taint.MethodLinks pair instead of a boolean mark.
package propagation

import (
	"go/ast"
	"go/token"
	"go/types"

	"github.com/wikimedia/phan-taint-check-plugin/internal/pkg/annotations"
	"github.com/wikimedia/phan-taint-check-plugin/internal/pkg/builtin"
	"github.com/wikimedia/phan-taint-check-plugin/internal/pkg/config"
	"github.com/wikimedia/phan-taint-check-plugin/internal/pkg/contract"
	"github.com/wikimedia/phan-taint-check-plugin/internal/pkg/docblock"
	"github.com/wikimedia/phan-taint-check-plugin/internal/pkg/fieldpropagator"
	"github.com/wikimedia/phan-taint-check-plugin/internal/pkg/fieldtags"
	"github.com/wikimedia/phan-taint-check-plugin/internal/pkg/flag"
	infer "github.com/wikimedia/phan-taint-check-plugin/internal/pkg/sourceinfer"
	"github.com/wikimedia/phan-taint-check-plugin/internal/pkg/suppression"
	"github.com/wikimedia/phan-taint-check-plugin/internal/pkg/taint"
	"github.com/wikimedia/phan-taint-check-plugin/internal/pkg/utils"
	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/ssa"
)

// Visitor holds everything the propagation visitor needs that outlives
// any single function: the shared symbol table, the function contract
// store, and the other analyzers' results it consults to decide what is
// a source, a sink, or a sanitizer.
type Visitor struct {
	Pass      *analysis.Pass
	Conf      *config.Configuration
	Table     *annotations.Table
	Contracts *contract.Store
	FieldTags fieldtags.ResultType
	FieldProp fieldpropagator.ResultType
	Infer     infer.ResultType
	Suppress  suppression.ResultType

	fn *ssa.Function

	// storedParams memoizes, per callee, which formal parameter indices
	// are ever the resolved root of a *ssa.Store in that callee's own
	// body - see call.go's isStoredDirectly.
	storedParams map[*ssa.Function]map[int]bool
	// reported de-duplicates sink diagnostics across this Run's multiple
	// passes and the host's fixpoint passes over the whole program: a
	// position, once reported, never needs reporting again since
	// contracts only grow (see sink.go's reportSink).
	reported map[token.Pos]bool
}

// New builds a Visitor sharing the given state across every function it
// will be asked to Run.
func New(pass *analysis.Pass, conf *config.Configuration, table *annotations.Table, contracts *contract.Store, ft fieldtags.ResultType, fp fieldpropagator.ResultType, si infer.ResultType, sup suppression.ResultType) *Visitor {
	return &Visitor{
		Pass:      pass,
		Conf:      conf,
		Table:     table,
		Contracts: contracts,
		FieldTags: ft,
		FieldProp: fp,
		Infer:     si,
		Suppress:  sup,
	}
}

// SeedDocblock parses fn's doc comment for @param-taint/@return-taint
// annotations and merges them into fn's contract before the body is
// ever visited, so a forward reference to fn through a call sees the
// user's declared sink/return behavior immediately (spec.md §6 "Docblock
// annotation syntax").
func (v *Visitor) SeedDocblock(fn *ssa.Function) {
	decl, ok := fn.Syntax().(*ast.FuncDecl)
	if !ok || decl.Doc == nil {
		return
	}
	params, ret := docblock.ParseDoc(decl.Doc.Text())

	ft := contract.New(fn)
	ft.Overall = taint.FromFlags(ret.Flags)
	for _, pt := range params {
		i := paramIndex(fn, pt.Param)
		if i < 0 {
			continue
		}
		slot := ft.Params
		if i < len(slot) {
			slot[i] = taint.Merge(slot[i], taint.FromFlags(pt.Annotation.Flags))
		} else if ft.VariadicParam != nil {
			*ft.VariadicParam = taint.Merge(*ft.VariadicParam, taint.FromFlags(pt.Annotation.Flags))
		}
	}
	v.Contracts.Merge(fn, ft)
}

// paramIndex returns the positional index of the parameter named name
// in fn.Params (which includes the receiver, at index 0, for a
// method), or -1 if not found.
func paramIndex(fn *ssa.Function, name string) int {
	for i, p := range fn.Params {
		if p.Name() == name {
			return i
		}
	}
	return -1
}

// Run visits every instruction of fn's SSA body in block order and
// records a triple for it. A second pass re-processes every block so
// that loop-carried Phi nodes see their back-edge predecessor's
// steady-state value (spec.md C10's one-shot widening) without this
// package needing a general dataflow fixpoint: two passes are enough
// because this package's lattice only grows (Merge is monotone), so a
// second pass can only add bits, and a third would add none.
func (v *Visitor) Run(fn *ssa.Function) {
	v.fn = fn
	v.seedParams(fn)
	v.seedFreeVars(fn)

	for pass := 0; pass < 2; pass++ {
		for _, b := range fn.Blocks {
			for _, instr := range b.Instrs {
				v.visitInstr(instr)
			}
		}
	}

	v.finishReturns(fn)
}

// seedParams gives every formal parameter a links entry pointing back
// at (fn, i), which is what lets a call site's sink check or
// preserved-taint computation eventually reach this parameter's slot in
// fn's contract. A parameter whose type is itself declared a source
// (directly, or via internal/pkg/sourceinfer) also gets that taint as
// its own flags.
func (v *Visitor) seedParams(fn *ssa.Function) {
	for i, p := range fn.Params {
		whole := v.typeSourceTaint(p.Type())
		v.Table.Set(p, annotations.Triple{
			Taint: whole,
			Links: taint.SingleLink(taint.FuncParam{Func: fn, Param: i}),
		})
	}
}

// seedFreeVars seeds a closure's captured free variables as Safe with
// no links, but only those that have no entry yet: the enclosing
// function's visitMakeClosure merges each bound value's triple into the
// matching FreeVar, and that entry is kept as is.
func (v *Visitor) seedFreeVars(fn *ssa.Function) {
	for _, fv := range fn.FreeVars {
		if _, ok := v.Table.GetKnown(fv); !ok {
			v.Table.Set(fv, annotations.Triple{})
		}
	}
}

// typeSourceTaint reports the Taintedness a value of type t should
// carry purely because of its type, consulting explicit Configuration
// sources and internal/pkg/sourceinfer's type-graph inference.
func (v *Visitor) typeSourceTaint(t types.Type) taint.Taintedness {
	deref := utils.Dereference(t)
	path, name := utils.DecomposeType(deref)
	if v.Conf.IsSourceType(path, name) {
		return taint.Taintedness{Flags: flag.YesMask, Unknown: &taint.Taintedness{Flags: flag.YesMask}}
	}
	if named, ok := deref.(*types.Named); ok && v.Infer != nil && v.Infer[named.Obj()] {
		return taint.Taintedness{Flags: flag.YesMask, Unknown: &taint.Taintedness{Flags: flag.YesMask}}
	}
	return taint.Safe()
}

// visitInstr dispatches one SSA instruction. Every case that produces a
// value records a Triple for that value's identity in v.Table; cases
// that are address writes (Store, MapUpdate, Send) instead delegate to
// the assignment visitor (assign.go).
func (v *Visitor) visitInstr(instr ssa.Instruction) {
	switch t := instr.(type) {
	case *ssa.Alloc:
		if _, ok := v.Table.GetKnown(t); !ok {
			v.Table.Set(t, annotations.Triple{})
		}

	case *ssa.Store:
		v.visitStore(t)

	case *ssa.MapUpdate:
		v.visitMapUpdate(t)

	case *ssa.Send:
		v.visitSend(t)

	case *ssa.Call:
		v.visitCall(t)

	case *ssa.Go:
		v.visitCallCommon(t.Common(), t)

	case *ssa.Defer:
		v.visitCallCommon(t.Common(), t)

	case *ssa.Return:
		v.visitReturn(t)

	case *ssa.Phi:
		v.visitPhi(t)

	case *ssa.UnOp:
		v.visitUnOp(t)

	case *ssa.FieldAddr:
		v.visitFieldAddr(t)

	case *ssa.IndexAddr:
		// Address computations have no taint of their own; a read
		// through them happens via the UnOp load above, which walks
		// back through resolveBase. Give them a zero triple so a
		// lookup never panics on a nil map entry.
		v.Table.Set(t, annotations.Triple{})

	case *ssa.BinOp:
		v.visitBinOp(t)

	case *ssa.Convert, *ssa.ChangeType, *ssa.ChangeInterface:
		v.visitCollapsingUnary(t.(ssa.Value), soleOperand(t))

	case *ssa.MakeInterface:
		v.visitCollapsingUnary(t, t.X)

	case *ssa.TypeAssert:
		v.visitTypeAssert(t)

	case *ssa.Extract:
		v.visitExtract(t)

	case *ssa.Slice:
		v.Table.Set(t, v.triple(t.X))

	case *ssa.Index:
		v.Table.Set(t, v.projectIndex(t.X, t.Index))

	case *ssa.Lookup:
		v.visitLookup(t)

	case *ssa.MakeClosure:
		v.visitMakeClosure(t)

	case *ssa.MakeMap, *ssa.MakeChan, *ssa.MakeSlice:
		v.Table.Set(t.(ssa.Value), annotations.Triple{})

	case *ssa.Range:
		v.Table.Set(t, v.triple(t.X))

	case *ssa.Next:
		// Next's (ok, k, v) tuple is handled through Extract; give the
		// tuple itself the taint of the thing being ranged over.
		v.Table.Set(t, v.triple(t.Iter))

	case *ssa.Panic:
		if !v.Conf.AllowPanicOnTaintedValues {
			v.runSinkOnValue(t.X, flag.MiscExec, t)
		}

	case *ssa.If, *ssa.Jump, *ssa.RunDefers, *ssa.Builtin, *ssa.Function, *ssa.DebugRef:
		// Inapplicable: these are not value-producing positions, or (for
		// *ssa.Function/*ssa.Builtin) are handled directly at their use
		// site (Call/MakeClosure) instead.
	}
}

// soleOperand returns the single operand of a unary value instruction.
func soleOperand(instr ssa.Instruction) ssa.Value {
	ops := instr.Operands(nil)
	if len(ops) == 0 || ops[0] == nil {
		return nil
	}
	return *ops[0]
}

// visitCollapsingUnary handles instructions whose result carries
// exactly their operand's collapsed taint with no further shape (casts,
// interface conversions): shape is necessarily lost because the static
// type changes out from under any key structure.
func (v *Visitor) visitCollapsingUnary(result ssa.Value, operand ssa.Value) {
	if operand == nil {
		v.Table.Set(result, annotations.Triple{})
		return
	}
	in := v.triple(operand)
	v.Table.Set(result, annotations.Triple{
		Taint: taint.FromFlags(in.Taint.Collapse()),
		Links: in.Links,
		Cause: in.Cause,
	})
}

func (v *Visitor) visitTypeAssert(t *ssa.TypeAssert) {
	in := v.triple(t.X)
	if !t.CommaOk {
		v.Table.Set(t, in)
		return
	}
	// The comma-ok form produces a (value, ok) tuple; Extract picks the
	// value back out at index 0 below.
	v.Table.Set(t, in)
}

func (v *Visitor) visitExtract(t *ssa.Extract) {
	if t.Index == 0 {
		v.Table.Set(t, v.triple(t.Tuple))
		return
	}
	// Secondary tuple components (the "ok" of a comma-ok form, a
	// multi-value return's later results) are treated as Safe: almost
	// always a bool or error, neither of which carries the original
	// value's shape.
	v.Table.Set(t, annotations.Triple{})
}

func (v *Visitor) visitLookup(t *ssa.Lookup) {
	if !t.CommaOk {
		v.Table.Set(t, v.projectIndex(t.X, t.Index))
		return
	}
	v.Table.Set(t, v.projectIndex(t.X, t.Index))
}

// projectIndex computes the triple visible when reading base[index],
// whether base is a map (Lookup), a slice/array (Index), or an address
// chain resolving back to a symbol with known shape.
func (v *Visitor) projectIndex(base, index ssa.Value) annotations.Triple {
	root, path, linkPath := resolveBase(base)
	baseTriple := v.triple(root)
	for _, step := range path {
		baseTriple.Taint = baseTriple.Taint.Project(step.Key, step.Scalar)
	}
	_ = linkPath

	key, scalar := constKey(index)
	return annotations.Triple{
		Taint: baseTriple.Taint.Project(key, scalar),
		Links: baseTriple.Links.Project(key, scalar),
		Cause: baseTriple.Cause,
	}
}

func (v *Visitor) visitMakeClosure(t *ssa.MakeClosure) {
	// Bindings carry captured-variable taint into the closure's free
	// variables; since free variables are keyed by a distinct *ssa.FreeVar
	// identity per call to MakeClosure, we merge captured taint so a
	// closure invoked once still sees the binding, accepting that two
	// different instantiations of the same closure share one seed (an
	// over-approximation, not an under-approximation, so it never hides
	// a real finding).
	if fn, ok := t.Fn.(*ssa.Function); ok {
		for i, bound := range t.Bindings {
			if i >= len(fn.FreeVars) {
				break
			}
			fv := fn.FreeVars[i]
			existing := v.Table.Get(fv)
			merged := annotations.Triple{
				Taint: taint.Merge(existing.Taint, v.triple(bound).Taint),
				Links: taint.MergeLinks(existing.Links, v.triple(bound).Links),
				Cause: taint.MergeCausedBy(existing.Cause, v.triple(bound).Cause),
			}
			v.Table.Set(fv, merged)
		}
	}
	v.Table.Set(t, annotations.Triple{})
}

func (v *Visitor) visitUnOp(t *ssa.UnOp) {
	if t.Op == token.MUL {
		// Pointer dereference: read through the address chain.
		root, path, _ := resolveBase(t.X)
		base := v.triple(root)
		tt := base.Taint
		for _, step := range path {
			tt = tt.Project(step.Key, step.Scalar)
		}
		lk := base.Links
		for _, step := range path {
			lk = lk.Project(step.Key, step.Scalar)
		}
		v.Table.Set(t, annotations.Triple{Taint: tt, Links: lk, Cause: base.Cause})
		return
	}
	// Arithmetic/bitwise/boolean NOT and channel receive (<-ch): receive
	// keeps the channel's unknown-position taint; everything else
	// preserves its operand's taint verbatim (spec.md §4.3 "Unary op").
	if t.Op == token.ARROW {
		root, path, _ := resolveBase(t.X)
		base := v.triple(root)
		tt := base.Taint.Project(taint.Key{}, false)
		for _, step := range path {
			tt = tt.Project(step.Key, step.Scalar)
		}
		v.Table.Set(t, annotations.Triple{Taint: tt, Links: base.Links, Cause: base.Cause})
		return
	}
	v.Table.Set(t, v.triple(t.X))
}

func (v *Visitor) visitBinOp(t *ssa.BinOp) {
	lhs := v.triple(t.X)
	rhs := v.triple(t.Y)
	merged := taint.FromFlags(lhs.Taint.Collapse() | rhs.Taint.Collapse())
	v.Table.Set(t, annotations.Triple{
		Taint: merged,
		Links: taint.MergeLinks(lhs.Links, rhs.Links),
		Cause: taint.MergeCausedBy(lhs.Cause, rhs.Cause),
	})
}

func (v *Visitor) visitPhi(t *ssa.Phi) {
	var triples []annotations.Triple
	for _, e := range t.Edges {
		triples = append(triples, v.triple(e))
	}
	out := annotations.Triple{}
	for _, tr := range triples {
		out.Taint = taint.Merge(out.Taint, tr.Taint)
		out.Links = taint.MergeLinks(out.Links, tr.Links)
		out.Cause = taint.MergeCausedBy(out.Cause, tr.Cause)
	}
	v.Table.Set(t, out)
}

// triple returns val's current triple, computing it on first sight for
// value kinds that don't get a dedicated visitInstr case (constants are
// always Safe; globals are seeded from internal/pkg/source's superglobal
// table on first access).
func (v *Visitor) triple(val ssa.Value) annotations.Triple {
	switch t := val.(type) {
	case nil:
		return annotations.Triple{}
	case *ssa.Const:
		return annotations.Triple{}
	case *ssa.Global:
		return v.globalTriple(t)
	case *ssa.Function, *ssa.Builtin:
		return annotations.Triple{}
	default:
		if trip, ok := v.Table.GetKnown(t); ok {
			return trip
		}
		// Not yet seen (e.g. an instruction from a block not visited
		// in program order on the first pass); Unknown rather than
		// Safe, matching spec.md §7's "symbol resolution failure"
		// policy.
		return annotations.Triple{Taint: taint.Taintedness{Flags: flag.Unknown}}
	}
}

func (v *Visitor) globalTriple(g *ssa.Global) annotations.Triple {
	key := g.Pkg.Pkg.Path() + "." + g.Name()
	if existing, ok := v.Table.GetGlobalKnown(key); ok {
		return existing
	}
	if t, ok := globalSourceTaint(key); ok {
		trip := annotations.Triple{Taint: t}
		v.Table.SetGlobal(key, trip)
		return trip
	}
	return annotations.Triple{}
}
