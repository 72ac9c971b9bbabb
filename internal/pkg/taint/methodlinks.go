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
	"sort"
	"strings"

	"github.com/wikimedia/phan-taint-check-plugin/internal/pkg/flag"
	"golang.org/x/tools/go/ssa"
)

// FuncParam identifies one formal parameter of one function - the unit
// a MethodLinks leaf records reachability to.
type FuncParam struct {
	Func  *ssa.Function
	Param int
}

func (fp FuncParam) String() string {
	name := "<nil>"
	if fp.Func != nil {
		name = fp.Func.String()
	}
	return fmt.Sprintf("%s#%d", name, fp.Param)
}

// LinksSet maps a FuncParam to the subset of taint categories that are
// known to flow through this value by way of that parameter. A category
// bit set here means "if that parameter carries this category, so does
// this value"; flag.AllCategories is used when a link was recorded
// without per-category filtering (the common case - most propagation
// doesn't distinguish which category used a given link).
type LinksSet map[FuncParam]flag.Flags

// Clone deep-copies the set.
func (ls LinksSet) Clone() LinksSet {
	if len(ls) == 0 {
		return nil
	}
	out := make(LinksSet, len(ls))
	for k, v := range ls {
		out[k] = v
	}
	return out
}

// mergeLinksSets unions two LinksSets, OR-ing the category filter where
// both sides record the same FuncParam.
func mergeLinksSets(a, b LinksSet) LinksSet {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	out := make(LinksSet, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] |= v
	}
	return out
}

// MethodLinks mirrors Taintedness's shape exactly, except each leaf is a
// LinksSet rather than a flag set: for every value, it records which
// formal parameters of which functions that value (or a sub-offset of
// it) derives from.
type MethodLinks struct {
	Links   LinksSet
	Known   map[Key]MethodLinks
	Unknown *MethodLinks
}

// NoLinks is the empty MethodLinks.
func NoLinks() MethodLinks { return MethodLinks{} }

// SingleLink builds a MethodLinks whose own level links to exactly fp,
// unfiltered (all categories).
func SingleLink(fp FuncParam) MethodLinks {
	return MethodLinks{Links: LinksSet{fp: flag.AllCategories}}
}

// Clone deep-copies ml.
func (ml MethodLinks) Clone() MethodLinks {
	out := MethodLinks{Links: ml.Links.Clone()}
	if len(ml.Known) > 0 {
		out.Known = make(map[Key]MethodLinks, len(ml.Known))
		for k, v := range ml.Known {
			out.Known[k] = v.Clone()
		}
	}
	if ml.Unknown != nil {
		u := ml.Unknown.Clone()
		out.Unknown = &u
	}
	return out
}

func (ml MethodLinks) unknownOrEmpty() MethodLinks {
	if ml.Unknown == nil {
		return NoLinks()
	}
	return *ml.Unknown
}

// Collapse flattens every depth's links into a single LinksSet.
func (ml MethodLinks) Collapse() LinksSet {
	out := ml.Links.Clone()
	for _, v := range ml.Known {
		out = mergeLinksSets(out, v.Collapse())
	}
	if ml.Unknown != nil {
		out = mergeLinksSets(out, ml.Unknown.Collapse())
	}
	return out
}

// MergeLinks joins a and b pointwise, exactly like Merge for Taintedness.
func MergeLinks(a, b MethodLinks) MethodLinks {
	out := MethodLinks{Links: mergeLinksSets(a.Links, b.Links)}

	if len(a.Known) > 0 || len(b.Known) > 0 {
		out.Known = make(map[Key]MethodLinks, maxInt(len(a.Known), len(b.Known)))
		for k := range a.Known {
			out.Known[k] = MergeLinks(a.Known[k], b.Known[k])
		}
		for k := range b.Known {
			if _, done := out.Known[k]; done {
				continue
			}
			out.Known[k] = MergeLinks(a.Known[k], b.Known[k])
		}
	}

	if a.Unknown != nil || b.Unknown != nil {
		u := MergeLinks(a.unknownOrEmpty(), b.unknownOrEmpty())
		out.Unknown = &u
	}

	return out
}

// MergeAllLinks folds MergeLinks across mls.
func MergeAllLinks(mls ...MethodLinks) MethodLinks {
	out := NoLinks()
	for _, ml := range mls {
		out = MergeLinks(out, ml)
	}
	return out
}

// Project mirrors Taintedness.Project at the structural level.
func (ml MethodLinks) Project(key Key, scalar bool) MethodLinks {
	own := MethodLinks{Links: ml.Links.Clone()}
	if !scalar {
		all := ml.unknownOrEmpty()
		for _, v := range ml.Known {
			all = MergeLinks(all, v)
		}
		return MergeLinks(own, all)
	}
	if child, ok := ml.Known[key]; ok {
		return MergeLinks(own, MergeLinks(child, ml.unknownOrEmpty()))
	}
	return MergeLinks(own, ml.unknownOrEmpty())
}

// SetAt mirrors Taintedness.SetAt.
func (ml MethodLinks) SetAt(key Key, scalar bool, child MethodLinks, override bool) MethodLinks {
	out := ml.Clone()
	if !scalar {
		u := MergeLinks(out.unknownOrEmpty(), child)
		out.Unknown = &u
		return out
	}
	if out.Known == nil {
		out.Known = map[Key]MethodLinks{}
	}
	if override {
		out.Known[key] = child.Clone()
	} else {
		out.Known[key] = MergeLinks(out.Known[key], child)
	}
	return out
}

// LinkPathStep is SetLinksAtOffsetList's per-level descent instruction.
type LinkPathStep struct {
	Key    Key
	Scalar bool
}

// SetLinksAtOffsetList mirrors Taintedness.SetAtPath: it descends
// through path, autovivifying safe intermediates, and writes child at
// the terminal position.
func (ml MethodLinks) SetLinksAtOffsetList(path []LinkPathStep, child MethodLinks, override bool) MethodLinks {
	if len(path) == 0 {
		if override {
			return child.Clone()
		}
		return MergeLinks(ml, child)
	}

	step := path[0]
	out := ml.Clone()

	if !step.Scalar {
		sub := out.unknownOrEmpty().SetLinksAtOffsetList(path[1:], child, override)
		out.Unknown = &sub
		return out
	}

	if out.Known == nil {
		out.Known = map[Key]MethodLinks{}
	}
	existing := out.Known[step.Key]
	out.Known[step.Key] = existing.SetLinksAtOffsetList(path[1:], child, override)
	return out
}

// PreservedTaintedness is a Taintedness-shaped value whose flags at each
// depth record which categories of a parameter's taint would show up at
// the corresponding depth of a function's return value, were that
// parameter tainted. It reuses Taintedness's shape and algebra directly
// (merge, collapse, project all apply unchanged) since "preserved
// categories per depth" is exactly a taint shape.
type PreservedTaintedness = Taintedness

// PreservedTaintForParam walks ml's shape and, at every node, checks
// whether fp is recorded there (with which category filter); the result
// is a PreservedTaintedness whose flags at each depth are fp's category
// filter wherever fp appears, Safe elsewhere.
func PreservedTaintForParam(ml MethodLinks, fp FuncParam) PreservedTaintedness {
	out := Taintedness{Flags: ml.Links[fp]}
	if len(ml.Known) > 0 {
		out.Known = make(map[Key]Taintedness, len(ml.Known))
		for k, v := range ml.Known {
			out.Known[k] = PreservedTaintForParam(v, fp)
		}
	}
	if ml.Unknown != nil {
		u := PreservedTaintForParam(*ml.Unknown, fp)
		out.Unknown = &u
	}
	return out
}

// String renders ml for debug output.
func (ml MethodLinks) String() string {
	var b strings.Builder
	ml.render(&b, 0)
	return b.String()
}

func (ml MethodLinks) render(b *strings.Builder, depth int) {
	indent := strings.Repeat("  ", depth)
	fps := make([]FuncParam, 0, len(ml.Links))
	for fp := range ml.Links {
		fps = append(fps, fp)
	}
	sort.Slice(fps, func(i, j int) bool { return fps[i].String() < fps[j].String() })
	for _, fp := range fps {
		fmt.Fprintf(b, "%slink=%s (%s)\n", indent, fp, ml.Links[fp])
	}
	keys := make([]Key, 0, len(ml.Known))
	for k := range ml.Known {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	for _, k := range keys {
		fmt.Fprintf(b, "%s[%s]:\n", indent, k)
		ml.Known[k].render(b, depth+1)
	}
	if ml.Unknown != nil {
		fmt.Fprintf(b, "%s[unknown]:\n", indent)
		ml.Unknown.render(b, depth+1)
	}
}
