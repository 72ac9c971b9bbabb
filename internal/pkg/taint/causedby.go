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

package taint

import (
	"fmt"
	"go/token"
)

// CausedByLine is one entry of a cause-trail: the source line at which
// taint was introduced or passed through, the taintedness observed
// there, and the links observed there (so later filtering by
// (function, param) can pick out only the entries relevant to a
// specific preserved-taint projection).
type CausedByLine struct {
	Line  token.Pos
	Taint Taintedness
	Links MethodLinks
}

// CausedByLines is an ordered, de-duplicated cause-trail: the
// reconstructed sequence of source locations through which taint flowed
// from origin to sink.
type CausedByLines []CausedByLine

// Append adds line to the trail unless an entry at the same position is
// already present (first occurrence wins, matching the append-only,
// de-duplicated semantics of spec.md §3.4).
func (cbl CausedByLines) Append(line CausedByLine) CausedByLines {
	for _, existing := range cbl {
		if existing.Line == line.Line {
			return cbl
		}
	}
	out := make(CausedByLines, len(cbl), len(cbl)+1)
	copy(out, cbl)
	return append(out, line)
}

// MergeCausedBy unions a and b, preserving a's entries first, then any
// of b's entries not already present by position.
func MergeCausedBy(a, b CausedByLines) CausedByLines {
	out := make(CausedByLines, 0, len(a)+len(b))
	seen := make(map[token.Pos]bool, len(a)+len(b))
	for _, l := range a {
		if seen[l.Line] {
			continue
		}
		seen[l.Line] = true
		out = append(out, l)
	}
	for _, l := range b {
		if seen[l.Line] {
			continue
		}
		seen[l.Line] = true
		out = append(out, l)
	}
	return out
}

// FilterForParam keeps only entries whose link snapshot mentions fp,
// used to build the errorLines recorded for a single function parameter
// (spec.md §4.5 step 4).
func (cbl CausedByLines) FilterForParam(fp FuncParam) CausedByLines {
	var out CausedByLines
	for _, l := range cbl {
		if _, ok := l.Links.Collapse()[fp]; ok {
			out = append(out, l)
		}
	}
	return out
}

// Render writes the trail as "(file:line) via ..." the way spec.md §6
// describes diagnostics being templated, given a token.FileSet to
// resolve positions.
func (cbl CausedByLines) Render(fset *token.FileSet) string {
	if len(cbl) == 0 {
		return ""
	}
	s := ""
	for i, l := range cbl {
		if i > 0 {
			s += " via "
		}
		s += fmt.Sprintf("(%s)", fset.Position(l.Line))
	}
	return s
}
