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

// Package suppression defines an analyzer that identifies ast nodes
// suppressed by a `taint-check-suppress` comment. The comment may name
// the categories it suppresses:
//
//	// taint-check-suppress sql, shell
//
// or suppress every category by naming none:
//
//	// taint-check-suppress
package suppression

import (
	"go/ast"
	"go/token"
	"reflect"
	"strings"

	"github.com/wikimedia/phan-taint-check-plugin/internal/pkg/docblock"
	"github.com/wikimedia/phan-taint-check-plugin/internal/pkg/flag"
	"golang.org/x/tools/go/analysis"
)

// Suppression records which categories a `taint-check-suppress` comment
// silences for the node it is attached to. All being true means every
// category is silenced, regardless of Categories' bits.
type Suppression struct {
	Categories flag.Flags
	All        bool
}

// ResultType maps suppressed nodes to the Suppression they carry.
type ResultType map[ast.Node]Suppression

// IsSuppressed reports whether n carries a suppression comment covering
// category. A bare `taint-check-suppress` with no category tokens
// suppresses every category.
func (rt ResultType) IsSuppressed(n ast.Node, category flag.Flags) bool {
	s, ok := rt[n]
	if !ok {
		return false
	}
	if s.All {
		return true
	}
	return s.Categories&category != 0
}

// IsSuppressedPos reports whether pos falls within the source range of
// any suppressed node. SSA instructions only carry a token.Pos, not the
// ast.Node the suppression comment attached to, so the sink protocol
// consults suppressions by position rather than by node identity.
func (rt ResultType) IsSuppressedPos(pos token.Pos, category flag.Flags) bool {
	for n, s := range rt {
		if pos < n.Pos() || pos >= n.End() {
			continue
		}
		if s.All || s.Categories&category != 0 {
			return true
		}
	}
	return false
}

var Analyzer = &analysis.Analyzer{
	Name:       "suppression",
	Doc:        "This analyzer identifies ast nodes suppressed by a taint-check-suppress comment.",
	Run:        run,
	ResultType: reflect.TypeOf(new(ResultType)).Elem(),
}

func run(pass *analysis.Pass) (interface{}, error) {
	result := ResultType{}

	for _, f := range pass.Files {
		for node, commentGroups := range ast.NewCommentMap(pass.Fset, f, f.Comments) {
			for _, cg := range commentGroups {
				s, ok := suppressingComment(cg)
				if !ok {
					continue
				}
				result[node] = mergeSuppression(result[node], s)
				// for testing
				pass.Reportf(node.Pos(), "suppressed")
			}
		}
	}

	return result, nil
}

func mergeSuppression(a, b Suppression) Suppression {
	return Suppression{
		Categories: a.Categories | b.Categories,
		All:        a.All || b.All,
	}
}

const suppressPrefix = "taint-check-suppress"

// suppressingComment reports whether commentGroup carries a
// taint-check-suppress line, and if so the Suppression it describes.
func suppressingComment(commentGroup *ast.CommentGroup) (Suppression, bool) {
	for _, line := range strings.Split(commentGroup.Text(), "\n") {
		trimmed := strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(line, "//"), "/*"))
		if !strings.HasPrefix(trimmed, suppressPrefix) {
			continue
		}
		rest := strings.TrimSpace(strings.TrimPrefix(trimmed, suppressPrefix))
		if rest == "" {
			return Suppression{All: true}, true
		}

		var categories flag.Flags
		for _, tok := range strings.FieldsFunc(rest, func(r rune) bool {
			return r == ',' || r == ' ' || r == '\t'
		}) {
			categories |= docblock.CategoryFlag(strings.ToLower(strings.TrimSpace(tok)))
		}
		if categories == 0 {
			return Suppression{All: true}, true
		}
		return Suppression{Categories: categories}, true
	}
	return Suppression{}, false
}
