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

// Package taintcheck exports the top-level Analyzer: it wires every
// supporting analyzer together, builds the shared symbol table and
// contract store, seeds docblock annotations, and drives the
// propagation visitor to a fixpoint across the whole program.
package taintcheck

import (
	"os"

	"github.com/wikimedia/phan-taint-check-plugin/internal/pkg/annotations"
	"github.com/wikimedia/phan-taint-check-plugin/internal/pkg/config"
	"github.com/wikimedia/phan-taint-check-plugin/internal/pkg/contract"
	"github.com/wikimedia/phan-taint-check-plugin/internal/pkg/debug"
	"github.com/wikimedia/phan-taint-check-plugin/internal/pkg/fieldpropagator"
	"github.com/wikimedia/phan-taint-check-plugin/internal/pkg/fieldtags"
	"github.com/wikimedia/phan-taint-check-plugin/internal/pkg/propagation"
	"github.com/wikimedia/phan-taint-check-plugin/internal/pkg/sourceinfer"
	"github.com/wikimedia/phan-taint-check-plugin/internal/pkg/suppression"
	"github.com/wikimedia/phan-taint-check-plugin/internal/pkg/utils"
	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/buildssa"
	"golang.org/x/tools/go/ssa"
)

// maxExtraPasses bounds the number of additional whole-program passes
// run after the first once every function's contract has been seeded:
// a strongly-connected set of mutually recursive functions can need more
// than one extra pass to reach its fixpoint, but since every pass is
// monotone (contracts only grow) and the lattice has finite height, this
// is a safety bound rather than something real programs are expected to
// hit.
const maxExtraPasses = 3

// Analyzer reports taint flowing from a source to a sink anywhere in the
// analyzed program.
var Analyzer = &analysis.Analyzer{
	Name:  "taintcheck",
	Doc:   "reports values that may carry attacker-controlled data reaching a dangerous sink",
	Flags: config.FlagSet,
	Run:   run,
	Requires: []*analysis.Analyzer{
		buildssa.Analyzer,
		fieldtags.Analyzer,
		fieldpropagator.Analyzer,
		sourceinfer.Analyzer,
		suppression.Analyzer,
	},
}

func run(pass *analysis.Pass) (interface{}, error) {
	conf, err := config.ReadConfig()
	if err != nil {
		return nil, err
	}

	ssaInput := pass.ResultOf[buildssa.Analyzer].(*buildssa.SSA)
	fieldTags := pass.ResultOf[fieldtags.Analyzer].(fieldtags.ResultType)
	fieldProp := pass.ResultOf[fieldpropagator.Analyzer].(fieldpropagator.ResultType)
	infer := pass.ResultOf[sourceinfer.Analyzer].(sourceinfer.ResultType)
	suppress := pass.ResultOf[suppression.Analyzer].(suppression.ResultType)

	table := annotations.New()
	contracts := contract.NewStore()
	vis := propagation.New(pass, conf, table, contracts, fieldTags, fieldProp, infer, suppress)

	funcs := make([]*ssa.Function, 0, len(ssaInput.SrcFuncs))
	for _, fn := range ssaInput.SrcFuncs {
		path, recv, name := utils.DecomposeFunction(fn)
		if conf.IsExcluded(path, recv, name) {
			continue
		}
		funcs = append(funcs, fn)
	}

	for _, fn := range funcs {
		vis.SeedDocblock(fn)
	}

	for _, fn := range funcs {
		vis.Run(fn)
	}

	for pass := 0; pass < maxExtraPasses && contracts.Changed(); pass++ {
		contracts.ResetChanged()
		for _, fn := range funcs {
			vis.Run(fn)
		}
	}

	if config.Debug {
		for _, fn := range funcs {
			debug.Dump(os.Stderr, fn, table)
		}
	}

	return nil, nil
}
