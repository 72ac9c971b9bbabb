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
	"go/token"

	"github.com/wikimedia/phan-taint-check-plugin/internal/pkg/annotations"
	"github.com/wikimedia/phan-taint-check-plugin/internal/pkg/contract"
	"github.com/wikimedia/phan-taint-check-plugin/internal/pkg/flag"
	"github.com/wikimedia/phan-taint-check-plugin/internal/pkg/taint"
	"golang.org/x/tools/go/ssa"
)

// runSinkOnValue is the sink protocol: compute val's triple, report a
// diagnostic if any of sinkExec's categories occur anywhere in it, and
// back-propagate sinkExec into the contract of every function parameter
// val's links reach, so a later call site passing a tainted argument
// into that parameter is caught even without re-analyzing this body.
func (v *Visitor) runSinkOnValue(val ssa.Value, sinkExec flag.Flags, instr ssa.Instruction) {
	if sinkExec == 0 || val == nil {
		return
	}
	trip := v.triple(val)
	v.reportSink(trip, sinkExec, instr)
	v.backPropagateSink(trip.Links, sinkExec)
}

// reportSink emits a diagnostic when trip carries any category sinkExec
// accepts, unless a taint-check-suppress comment covers this position.
func (v *Visitor) reportSink(trip annotations.Triple, sinkExec flag.Flags, instr ssa.Instruction) {
	// taint.IntersectForSink is spec.md §4.1's designated "does this
	// argument violate this sink" operator: it descends sink's shape
	// rather than trip.Taint's, so a caller that later gives the sink
	// leaf per-key structure (instead of today's flat EXEC mask) keeps
	// working without reportSink changing at all.
	sink := taint.Taintedness{Flags: flag.ExecToYes(sinkExec)}
	dangerous := taint.IntersectForSink(sink, trip.Taint).Collapse()
	if dangerous == 0 {
		return
	}
	if v.Suppress != nil && v.Suppress.IsSuppressedPos(instr.Pos(), dangerous) {
		return
	}
	if v.reported == nil {
		v.reported = map[token.Pos]bool{}
	}
	if v.reported[instr.Pos()] {
		return
	}
	v.reported[instr.Pos()] = true
	msg := "possibly unsafe value (" + dangerous.String() + ") reaches a sink"
	if trail := trip.Cause.Render(v.Pass.Fset); trail != "" {
		msg += " via " + trail
	}
	v.Pass.Reportf(instr.Pos(), "%s", msg)
}

// backPropagateSink ORs sinkExec into the contract parameter slot for
// every (func, param) links records, masked by that link's own category
// filter - spec.md §4.4 step 3's "walk the link graph and teach every
// reachable parameter that it ends up in this sink".
func (v *Visitor) backPropagateSink(links taint.MethodLinks, sinkExec flag.Flags) {
	for fp, catFilter := range links.Collapse() {
		if fp.Func == nil {
			continue
		}
		masked := sinkExec & catFilter
		if masked == 0 {
			continue
		}
		ft := contract.New(fp.Func)
		if fp.Param < len(ft.Params) {
			ft.Params[fp.Param] = taint.Merge(ft.Params[fp.Param], taint.FromFlags(masked))
		} else if ft.VariadicParam != nil {
			*ft.VariadicParam = taint.Merge(*ft.VariadicParam, taint.FromFlags(masked))
		}
		v.Contracts.Merge(fp.Func, ft)
	}
}
