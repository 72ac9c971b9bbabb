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

// Package contract stores, per analyzed function, the inferred taint
// contract the rest of the checker needs to handle call sites without
// re-analyzing the callee's body every time: the overall return taint,
// a per-parameter sink-behavior vector, and a per-parameter
// preserved-taint projection used to transfer argument taint to a
// caller lazily.
//
// This is a generalization of google/go-flow-levee's internal/pkg/cfa
// package from a boolean "does this arg reach a sink" / "which returns
// does this arg taint" abstraction to the full taint-category lattice
// in internal/pkg/taint.
package contract

import (
	"fmt"
	"strings"

	"github.com/wikimedia/phan-taint-check-plugin/internal/pkg/taint"
	"golang.org/x/tools/go/ssa"
)

// FunctionTaintedness is the inferred contract for one function.
type FunctionTaintedness struct {
	// Overall is the taintedness of values returned by this function,
	// independent of any particular call's arguments (e.g. taint the
	// function reads from a source every time it's called).
	Overall taint.Taintedness
	// Params holds, for each positional parameter, the sink-shaped
	// taintedness describing what EXEC bits that parameter position
	// triggers (i.e. what sinks a call can reach by passing a tainted
	// value there).
	Params []taint.Taintedness
	// VariadicParam covers every argument past the end of Params, for a
	// variadic function; nil if the function is not variadic.
	VariadicParam *taint.Taintedness
	// Preserved holds, for each positional parameter, which categories
	// of that parameter's own taint show up in Overall if the parameter
	// is tainted.
	Preserved []taint.PreservedTaintedness
	// PreservedVariadic is Preserved's variadic-parameter counterpart.
	PreservedVariadic *taint.PreservedTaintedness
}

// FunctionCausedByLines holds, per parameter, the cause-trail that
// explains why Preserved[i] is what it is - used to render a complete
// chain when a caller's argument ends up flagged through this
// parameter's preserved taint.
type FunctionCausedByLines struct {
	Params        []taint.CausedByLines
	VariadicParam taint.CausedByLines
}

// New builds an all-Safe contract sized for fn's signature. Installing
// this before a function's body has been analyzed lets mutually
// recursive calls terminate (spec.md §4.3 "Closure/function/method
// declaration").
//
// Sized off len(fn.Params) rather than fn.Signature.Params().Len() so a
// method's receiver - fn.Params[0] for any function with a receiver -
// gets its own contract slot like any other parameter, matching how
// call sites see it as Common().Args[0].
func New(fn *ssa.Function) *FunctionTaintedness {
	n := len(fn.Params)
	ft := &FunctionTaintedness{
		Params:    make([]taint.Taintedness, n),
		Preserved: make([]taint.PreservedTaintedness, n),
	}
	if fn.Signature.Variadic() {
		v := taint.Safe()
		ft.VariadicParam = &v
		pv := taint.Safe()
		ft.PreservedVariadic = &pv
	}
	return ft
}

// paramSlot returns the Params slot for a call argument at
// position i, falling back to the variadic slot once i runs past the
// declared parameter count.
func (ft *FunctionTaintedness) paramSlot(i int) *taint.Taintedness {
	if i < len(ft.Params) {
		return &ft.Params[i]
	}
	return ft.VariadicParam
}

func (ft *FunctionTaintedness) preservedSlot(i int) *taint.PreservedTaintedness {
	if i < len(ft.Preserved) {
		return &ft.Preserved[i]
	}
	return ft.PreservedVariadic
}

// ParamSink returns the sink-shaped taintedness for argument position i
// (nil-safe: an out-of-range non-variadic position is Safe).
func (ft *FunctionTaintedness) ParamSink(i int) taint.Taintedness {
	if s := ft.paramSlot(i); s != nil {
		return *s
	}
	return taint.Safe()
}

// ParamPreserved returns the preserved-taint projection for argument
// position i.
func (ft *FunctionTaintedness) ParamPreserved(i int) taint.PreservedTaintedness {
	if s := ft.preservedSlot(i); s != nil {
		return *s
	}
	return taint.Safe()
}

// Merge combines incoming into ft in place, OR-ing in new bits at every
// position - contracts are monotone: re-analyzing a function body can
// only add taint categories, never remove them (spec.md §3.5 invariant).
// Merge does not consult NoOverride, and neither do its callers: bits
// from a locked docblock annotation and inferred bits are OR'd together
// the same way. Reports whether anything
// actually changed, the concrete form of spec.md §9's "did anything
// change this pass?" predicate.
func (ft *FunctionTaintedness) Merge(incoming *FunctionTaintedness) (changed bool) {
	before := ft.Overall.Collapse()
	ft.Overall = taint.Merge(ft.Overall, incoming.Overall)
	changed = changed || ft.Overall.Collapse() != before

	changed = mergeSlice(ft.Params, incoming.Params, taint.Merge) || changed
	changed = mergeSlice(ft.Preserved, incoming.Preserved, taint.Merge) || changed

	if incoming.VariadicParam != nil {
		if ft.VariadicParam == nil {
			v := *incoming.VariadicParam
			ft.VariadicParam = &v
			changed = true
		} else {
			before := ft.VariadicParam.Collapse()
			*ft.VariadicParam = taint.Merge(*ft.VariadicParam, *incoming.VariadicParam)
			changed = changed || ft.VariadicParam.Collapse() != before
		}
	}
	if incoming.PreservedVariadic != nil {
		if ft.PreservedVariadic == nil {
			v := *incoming.PreservedVariadic
			ft.PreservedVariadic = &v
			changed = true
		} else {
			before := ft.PreservedVariadic.Collapse()
			*ft.PreservedVariadic = taint.Merge(*ft.PreservedVariadic, *incoming.PreservedVariadic)
			changed = changed || ft.PreservedVariadic.Collapse() != before
		}
	}

	return changed
}

func mergeSlice(dst, src []taint.Taintedness, combine func(a, b taint.Taintedness) taint.Taintedness) (changed bool) {
	for i := range dst {
		if i >= len(src) {
			break
		}
		before := dst[i].Collapse()
		dst[i] = combine(dst[i], src[i])
		if dst[i].Collapse() != before {
			changed = true
		}
	}
	return changed
}

func (ft *FunctionTaintedness) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "overall=%s", ft.Overall.Collapse())
	for i, p := range ft.Params {
		fmt.Fprintf(&b, " param[%d].sink=%s", i, p.Collapse())
	}
	return b.String()
}
