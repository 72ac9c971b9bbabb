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

// This file is the call handler (spec.md C9) and the return-flow half of
// the per-function contract (spec.md §4.5): for every call-shaped
// instruction it resolves the callee, runs the sink protocol and
// preserved-taint projection for each argument against the callee's
// contract (lazily creating a Safe one if this is the first sighting,
// which is what lets mutual recursion terminate), and approximates
// by-reference write-back for pointer parameters the callee stores
// through directly. For every return statement it folds the returned
// expressions' taint back into the function's own contract.
package propagation

import (
	"go/types"

	"github.com/wikimedia/phan-taint-check-plugin/internal/pkg/annotations"
	"github.com/wikimedia/phan-taint-check-plugin/internal/pkg/builtin"
	"github.com/wikimedia/phan-taint-check-plugin/internal/pkg/contract"
	"github.com/wikimedia/phan-taint-check-plugin/internal/pkg/flag"
	"github.com/wikimedia/phan-taint-check-plugin/internal/pkg/source"
	"github.com/wikimedia/phan-taint-check-plugin/internal/pkg/taint"
	"github.com/wikimedia/phan-taint-check-plugin/internal/pkg/utils"
	"golang.org/x/tools/go/ssa"
)

func (v *Visitor) visitCall(t *ssa.Call) {
	trip := v.visitCallCommon(t.Common(), t)
	if v.FieldProp != nil && v.FieldProp.IsFieldPropagator(t) {
		// A field propagator is a getter that merely returns an
		// already-declared source field; treat its result the same way a
		// direct read of that field would be treated, shaped so a
		// caller that only reads one offset of a compound result isn't
		// falsely flagged for the whole value (fieldpropagator mirrors
		// internal/pkg/fieldtags' own "source" notion at the call-result
		// level instead of the field-read level).
		trip.Taint = taint.Merge(trip.Taint, taint.Taintedness{Flags: flag.YesMask, Unknown: &taint.Taintedness{Flags: flag.YesMask}})
	}
	v.Table.Set(t, trip)
}

// visitCallCommon computes the triple for any call-shaped instruction -
// *ssa.Call, *ssa.Go, and *ssa.Defer all embed a *ssa.CallCommon. Go and
// Defer have no result identity to publish, but still need the
// argument-flow and sink side effects run, which is why they share this
// path with Call instead of being treated as Inapplicable.
func (v *Visitor) visitCallCommon(common *ssa.CallCommon, instr ssa.Instruction) annotations.Triple {
	if common.IsInvoke() {
		return v.visitInvoke(common, instr)
	}

	if b, ok := common.Value.(*ssa.Builtin); ok {
		return v.visitGoBuiltin(b, common)
	}

	if callee := common.StaticCallee(); callee != nil {
		if len(callee.Blocks) > 0 {
			return v.visitUserCall(callee, common, instr)
		}
		return v.visitExternalCall(callee, common, instr)
	}

	// A call through a value never statically resolved (a closure
	// parameter, a function-typed field or interface value handled
	// dynamically rather than via Invoke). spec.md §7's "symbol
	// resolution failure" policy applies: assume the worst.
	return annotations.Triple{Taint: taint.Taintedness{Flags: flag.Unknown}}
}

// visitGoBuiltin handles the handful of Go builtins whose result taint is
// a simple function of their argument taint: append and copy move
// elements between slices without interpreting them, so taint passes
// straight through. Everything else (len, cap, close, delete, panic,
// recover, print, println) never hands attacker data anywhere new, so it
// returns Safe.
func (v *Visitor) visitGoBuiltin(b *ssa.Builtin, common *ssa.CallCommon) annotations.Triple {
	switch b.Name() {
	case "append", "copy":
		var out annotations.Triple
		for _, a := range common.Args {
			at := v.triple(a)
			out.Taint = taint.Merge(out.Taint, at.Taint)
			out.Links = taint.MergeLinks(out.Links, at.Links)
			out.Cause = taint.MergeCausedBy(out.Cause, at.Cause)
		}
		return out
	default:
		return annotations.Triple{}
	}
}

// qualifiedName builds the same "pkg.Func" / "pkg.(Recv).Method" key used
// throughout internal/pkg/builtin and internal/pkg/source to name a
// function independent of which *ssa.Function instance resolved it.
func qualifiedName(path, recv, name string) string {
	switch {
	case recv != "":
		return path + ".(" + recv + ")." + name
	case path != "":
		return path + "." + name
	default:
		return name
	}
}

// visitExternalCall handles a call whose callee has no SSA body in this
// program - standard library or any other package compiled without
// source.
func (v *Visitor) visitExternalCall(callee *ssa.Function, common *ssa.CallCommon, instr ssa.Instruction) annotations.Triple {
	path, recv, name := utils.DecomposeFunction(callee)
	args := common.Args
	if recv != "" && len(args) > 0 {
		// A statically-dispatched method call carries the receiver as
		// Args[0] (google/go-flow-levee's own
		// internal/pkg/interp/interpreter.go reads it the same way:
		// "recv := c.Call.Args[0]"). Strip it so internal/pkg/builtin's
		// per-argument Sinks/Passthrough/Escapes indices mean "argument
		// 0 after the receiver" here exactly like they already do for
		// visitInvoke, whose Args never include a receiver to begin
		// with.
		args = args[1:]
	}
	return v.runNamedCall(path, recv, name, args, instr)
}

// visitInvoke handles a call dispatched through an interface method
// (spec.md §4.6 step 1). This host has no callgraph-based
// devirtualization, consistent with spec.md's Non-goal excluding full
// alias/points-to analysis, so the concrete implementation actually
// invoked is never known - but the *interface method's* static name
// (e.g. net/http.(ResponseWriter).Write) is known without devirtualizing
// anything, and is exactly the qualified name internal/pkg/builtin and a
// project's Configuration sinks are keyed on (the idiomatic-Go "echo"
// analog: writing straight to an http.ResponseWriter is a sink the same
// way spec.md's `echo` is, even though Write is always called through
// the interface rather than a concrete type). Running the same named-call
// logic here, on the abstract method name, catches that case; what it
// cannot do is resolve return-value taint to a real function body, so the
// result also always carries Unknown.
func (v *Visitor) visitInvoke(common *ssa.CallCommon, instr ssa.Instruction) annotations.Triple {
	path, recv, name := decomposeMethod(common)
	trip := v.runNamedCall(path, recv, name, common.Args, instr)
	trip.Taint = taint.Merge(trip.Taint, taint.Taintedness{Flags: flag.Unknown})
	return trip
}

// decomposeMethod extracts the qualified name of an interface method
// dispatched via *ssa.CallCommon.Method, mirroring
// utils.DecomposeFunction's (path, recv, name) shape for the invoke case
// that has no *ssa.Function to decompose.
func decomposeMethod(common *ssa.CallCommon) (path, recv, name string) {
	m := common.Method
	name = m.Name()
	if sig, ok := m.Type().(*types.Signature); ok {
		if rv := sig.Recv(); rv != nil {
			deref := utils.Dereference(rv.Type())
			path, recv = utils.DecomposeType(deref)
		}
	}
	return
}

// runNamedCall is the sink/passthrough/source logic shared by a direct
// call to an external function (visitExternalCall) and an interface
// method invocation (visitInvoke): it layers three sources of behavior,
// static table first: the internal/pkg/builtin table's per-function
// contract, internal/pkg/source for functions that are themselves an
// input source, and the user's Configuration for project-declared
// sinks/sanitizers on functions the static table doesn't know about.
func (v *Visitor) runNamedCall(path, recv, name string, args []ssa.Value, instr ssa.Instruction) annotations.Triple {
	qualified := qualifiedName(path, recv, name)

	entry, hasEntry := builtin.Lookup(qualified)
	confSink := v.Conf.SinkFlags(path, recv, name)

	argTriples := make([]annotations.Triple, len(args))
	for i, a := range args {
		at := v.triple(a)
		argTriples[i] = at

		var sinkExec flag.Flags
		if hasEntry {
			sinkExec |= entry.SinkFlags(i)
		}
		sinkExec |= confSink
		if sinkExec != 0 {
			v.runSinkOnValue(a, sinkExec, instr)
		}
	}

	var result annotations.Triple
	if srcTaint, ok := source.IsSourceFunc(path, recv, name); ok {
		result.Taint = taint.Merge(result.Taint, srcTaint)
	}

	if hasEntry {
		result.Taint = taint.Merge(result.Taint, taint.FromFlags(entry.Result))
		for i, at := range argTriples {
			if !entry.Passes(i) {
				continue
			}
			passed := taint.FromFlags(at.Taint.Collapse() &^ entry.EscapeFlags(i))
			if passed.Collapse() == 0 {
				continue
			}
			result.Taint = taint.Merge(result.Taint, passed)
			result.Links = taint.MergeLinks(result.Links, at.Links)
			result.Cause = taint.MergeCausedBy(result.Cause, at.Cause)
		}
	}

	if sanitized, matched := v.Conf.SanitizerFlags(path, recv, name); matched {
		result.Taint = taint.FromFlags(result.Taint.Collapse() &^ sanitized)
	}

	return result
}

// visitUserCall handles a call to a function this program's SSA build
// has a body for: the callee's contract - lazily created Safe if this is
// the first call site to reach it, the mechanism that lets mutually
// recursive functions terminate rather than loop forever (spec.md §4.3
// "Closure/function/method declaration") - drives both the sink check and
// the preserved-taint projection for each argument.
func (v *Visitor) visitUserCall(callee *ssa.Function, common *ssa.CallCommon, instr ssa.Instruction) annotations.Triple {
	ft := v.Contracts.GetOrCreate(callee)

	result := annotations.Triple{Taint: ft.Overall.Clone()}

	// A project's own function can be declared a sink/sanitizer in
	// Configuration exactly like any external function; runNamedCall
	// consults v.Conf for the external/invoke path, and a call here
	// needs the same treatment, since this is the only path a call to a
	// function with an SSA body in this program ever takes.
	path, recv, name := utils.DecomposeFunction(callee)
	confSink := v.Conf.SinkFlags(path, recv, name)
	sanitized, sanitizerMatched := v.Conf.SanitizerFlags(path, recv, name)

	for i, a := range common.Args {
		at := v.triple(a)

		sinkExec := ft.ParamSink(i).Collapse() | confSink
		if sinkExec != 0 {
			v.runSinkOnValue(a, sinkExec, instr)
		}

		if preservedMask := ft.ParamPreserved(i).Collapse(); preservedMask != 0 {
			passed := taint.FromFlags(preservedMask & at.Taint.Collapse())
			if passed.Collapse() != 0 {
				result.Taint = taint.Merge(result.Taint, passed)
				result.Links = taint.MergeLinks(result.Links, at.Links)
				result.Cause = taint.MergeCausedBy(result.Cause, at.Cause)
			}
		}

		v.writeBackByRef(callee, i, a)
	}

	if sanitizerMatched {
		result.Taint = taint.FromFlags(result.Taint.Collapse() &^ sanitized)
	}

	return result
}

// writeBackByRef approximates spec.md's by-reference argument semantics
// (scenario: a callee writes through a `&v`-shaped parameter, and the
// caller must observe that write after the call returns). Go has no
// by-ref parameters; the idiomatic equivalent is a pointer argument the
// callee stores through directly, which produces the same aliasing
// effect as long as this is gated to parameters the callee is actually
// known to *ssa.Store through - a read-only pointer parameter must never
// have the caller's argument taint clobbered back to whatever the
// parameter's table entry happens to hold.
func (v *Visitor) writeBackByRef(callee *ssa.Function, argIndex int, argVal ssa.Value) {
	if argIndex >= len(callee.Params) || !v.isStoredDirectly(callee, argIndex) {
		return
	}
	final := v.triple(callee.Params[argIndex])

	root, path, linkPath := resolveBase(argVal)
	if root == nil {
		return
	}
	rootTriple := v.triple(root)
	rootTriple.Taint = rootTriple.Taint.SetAtPath(path, final.Taint, true)
	rootTriple.Links = rootTriple.Links.SetLinksAtOffsetList(linkPath, final.Links, true)
	rootTriple.Cause = taint.MergeCausedBy(rootTriple.Cause, final.Cause)
	v.Table.Set(root, rootTriple)
}

// isStoredDirectly reports whether callee's parameter at argIndex is ever
// the resolved root of a *ssa.Store within callee's own body - i.e. the
// callee assigns through that parameter's pointer value itself, as
// opposed to merely reading through it. The result is memoized per
// callee since a function's body doesn't change across the many call
// sites and fixpoint passes that ask this question.
func (v *Visitor) isStoredDirectly(callee *ssa.Function, argIndex int) bool {
	if v.storedParams == nil {
		v.storedParams = map[*ssa.Function]map[int]bool{}
	}
	set, ok := v.storedParams[callee]
	if !ok {
		set = map[int]bool{}
		paramSlot := make(map[ssa.Value]int, len(callee.Params))
		for i, p := range callee.Params {
			paramSlot[p] = i
		}
		for _, b := range callee.Blocks {
			for _, instr := range b.Instrs {
				store, ok := instr.(*ssa.Store)
				if !ok {
					continue
				}
				root, _, _ := resolveBase(store.Addr)
				if i, ok := paramSlot[root]; ok {
					set[i] = true
				}
			}
		}
		v.storedParams[callee] = set
	}
	return set[argIndex]
}

func (v *Visitor) visitReturn(t *ssa.Return) {
	// *ssa.Return has no value identity to publish a Triple for; the
	// actual return-flow accumulation happens once per Run, in
	// finishReturns, after both in-body passes have let every result
	// expression reach its steady-state triple.
}

// finishReturns folds every return statement's result taint into fn's
// stored contract (spec.md §4.5's per-function return-flow summary): the
// overall return taint, plus, for every parameter, the preserved-taint
// projection (which categories of that parameter's taint would surface
// in the return value) and the cause-trail that explains it, read off
// each return expression's link snapshot via
// taint.PreservedTaintForParam/CausedByLines.FilterForParam.
func (v *Visitor) finishReturns(fn *ssa.Function) {
	ft := contract.New(fn)
	cbl := &contract.FunctionCausedByLines{Params: make([]taint.CausedByLines, len(ft.Params))}

	for _, b := range fn.Blocks {
		for _, instr := range b.Instrs {
			ret, ok := instr.(*ssa.Return)
			if !ok {
				continue
			}
			for _, r := range ret.Results {
				rt := v.triple(r)
				ft.Overall = taint.Merge(ft.Overall, rt.Taint)

				for i := range ft.Params {
					fp := taint.FuncParam{Func: fn, Param: i}
					preserved := taint.PreservedTaintForParam(rt.Links, fp)
					ft.Preserved[i] = taint.Merge(ft.Preserved[i], preserved)
					if preserved.Collapse() != 0 {
						cbl.Params[i] = taint.MergeCausedBy(cbl.Params[i], rt.Cause.FilterForParam(fp))
					}
				}
			}
		}
	}
	v.Contracts.Merge(fn, ft)
	v.Contracts.MergeCausedBy(fn, cbl)
}
