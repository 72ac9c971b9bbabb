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

// Package taint implements the shape-preserving taintedness lattice (own
// flags, per-known-key child taintedness, unknown-key taintedness, and
// key-flags) and the parallel method-parameter link graph, plus the
// cause-trail used to reconstruct source-to-sink chains.
//
// Every exported operation is pure: it never mutates its receiver or
// arguments, and always returns a freshly built value. This is the clone
// discipline spec.md's design notes require — sharing a mutable child
// between two symbol table entries is the one bug class this package
// exists to prevent.
package taint

import (
	"fmt"
	"sort"
	"strings"

	"github.com/wikimedia/phan-taint-check-plugin/internal/pkg/flag"
)

// Taintedness is a recursive, shape-preserving taint record. The zero
// value is Safe: no flags, no known children, no unknown child.
type Taintedness struct {
	// Flags is the taint attributed to this value at its current depth.
	Flags flag.Flags
	// KeyFlags is taint carried by the keys themselves at this level.
	KeyFlags flag.Flags
	// Known maps a literal offset to the taintedness of the element
	// stored there.
	Known map[Key]Taintedness
	// Unknown is the taintedness of any element whose key could not be
	// resolved, or nil if nothing has ever been written at an unknown
	// offset.
	Unknown *Taintedness
}

// Safe returns the zero Taintedness explicitly, for readability at call
// sites.
func Safe() Taintedness { return Taintedness{} }

// FromFlags builds a depth-0 Taintedness carrying exactly f.
func FromFlags(f flag.Flags) Taintedness { return Taintedness{Flags: f} }

// Clone deep-copies t. Because Known and Unknown are never shared after
// Clone, two symbol table entries can each hold a Clone of the same
// Taintedness without one's later writes leaking into the other.
func (t Taintedness) Clone() Taintedness {
	out := Taintedness{Flags: t.Flags, KeyFlags: t.KeyFlags}
	if len(t.Known) > 0 {
		out.Known = make(map[Key]Taintedness, len(t.Known))
		for k, v := range t.Known {
			out.Known[k] = v.Clone()
		}
	}
	if t.Unknown != nil {
		u := t.Unknown.Clone()
		out.Unknown = &u
	}
	return out
}

// IsSafe reports whether t carries no taint anywhere in its shape.
func (t Taintedness) IsSafe() bool {
	return t.Collapse() == 0
}

// Collapse flattens every depth into a single flag set: own flags, key
// flags, every known child's collapse, and the unknown child's collapse.
// Used whenever a sink or cast erases shape (e.g. echoing an array,
// string-casting a struct).
func (t Taintedness) Collapse() flag.Flags {
	f := t.Flags | t.KeyFlags
	for _, v := range t.Known {
		f |= v.Collapse()
	}
	if t.Unknown != nil {
		f |= t.Unknown.Collapse()
	}
	return f
}

// unknownOrSafe returns *t.Unknown, or Safe() if there is none, without
// mutating t.
func (t Taintedness) unknownOrSafe() Taintedness {
	if t.Unknown == nil {
		return Safe()
	}
	return *t.Unknown
}

// Merge joins a and b pointwise: flags and key-flags are OR'd, every key
// present in either side is recursively merged (the absent side treated
// as Safe), and unknown children are merged together. Merge is
// commutative, associative, and idempotent: it is the join operation of
// the taintedness semilattice.
func Merge(a, b Taintedness) Taintedness {
	out := Taintedness{Flags: a.Flags | b.Flags, KeyFlags: a.KeyFlags | b.KeyFlags}

	if len(a.Known) > 0 || len(b.Known) > 0 {
		out.Known = make(map[Key]Taintedness, maxInt(len(a.Known), len(b.Known)))
		for k := range a.Known {
			out.Known[k] = Merge(a.Known[k], b.Known[k])
		}
		for k := range b.Known {
			if _, done := out.Known[k]; done {
				continue
			}
			out.Known[k] = Merge(a.Known[k], b.Known[k])
		}
	}

	if a.Unknown != nil || b.Unknown != nil {
		u := Merge(a.unknownOrSafe(), b.unknownOrSafe())
		out.Unknown = &u
	}

	return out
}

// MergeAll folds Merge across ts, returning Safe for an empty slice.
func MergeAll(ts ...Taintedness) Taintedness {
	out := Safe()
	for _, t := range ts {
		out = Merge(out, t)
	}
	return out
}

// Project returns the taintedness visible when reading element key from
// t.
//
//   - If key.scalar is false (a non-scalar or unresolved subscript), the
//     result is the "value-first-level view": t's own flags, its unknown
//     child, and the merge of every known child (since any of them could
//     be the one read).
//   - If key.scalar is true and present in t.Known, the result is that
//     child merged with t.Unknown and t's own flags.
//   - If key.scalar is true and absent, the result is t.Unknown merged
//     with t's own flags: "we don't know this element was ever written,
//     but something at an unresolved offset might alias it".
func (t Taintedness) Project(key Key, scalar bool) Taintedness {
	own := FromFlags(t.Flags)
	if !scalar {
		all := t.unknownOrSafe()
		for _, v := range t.Known {
			all = Merge(all, v)
		}
		return Merge(own, all)
	}
	if child, ok := t.Known[key]; ok {
		return Merge(own, Merge(child, t.unknownOrSafe()))
	}
	return Merge(own, t.unknownOrSafe())
}

// SetAt returns a copy of t with the element at key replaced or merged
// with child. A scalar key replaces (override) or merges (!override)
// only t.Known[key]; siblings are untouched. A non-scalar key always
// merges into t.Unknown, since we cannot tell which sibling it aliases.
func (t Taintedness) SetAt(key Key, scalar bool, child Taintedness, override bool) Taintedness {
	out := t.Clone()
	if !scalar {
		u := Merge(out.unknownOrSafe(), child)
		out.Unknown = &u
		return out
	}
	if out.Known == nil {
		out.Known = map[Key]Taintedness{}
	}
	if override {
		out.Known[key] = child.Clone()
	} else {
		out.Known[key] = Merge(out.Known[key], child)
	}
	return out
}

// PathStep is one step of a key path passed to SetAtPath: the key
// itself, whether it resolved to a scalar constant, and the taint
// carried by the key expression (for the keyFlags autovivification
// rule).
type PathStep struct {
	Key      Key
	Scalar   bool
	KeyTaint flag.Flags
}

// SetAtPath descends through path, autovivifying safe intermediates,
// and writes child at the terminal position. For every step, scalar or
// not and including the terminal one, that step's KeyTaint is OR'd into
// the keyFlags of the Taintedness at that depth - this is how "the key itself is
// tainted" (e.g. indexing with a tainted variable) surfaces even when
// the final value being written is safe.
func (t Taintedness) SetAtPath(path []PathStep, child Taintedness, override bool) Taintedness {
	if len(path) == 0 {
		if override {
			return child.Clone()
		}
		return Merge(t, child)
	}

	step := path[0]
	out := t.Clone()
	out.KeyFlags |= step.KeyTaint

	if !step.Scalar {
		sub := out.unknownOrSafe().SetAtPath(path[1:], child, override)
		out.Unknown = &sub
		return out
	}

	if out.Known == nil {
		out.Known = map[Key]Taintedness{}
	}
	existing := out.Known[step.Key]
	out.Known[step.Key] = existing.SetAtPath(path[1:], child, override)
	return out
}

// ArrayPlus models the host language's array-union `+` operator: left
// wins. Flags, key-flags, and unknown children are merged (a union
// operator still has to account for taint that could show up via either
// side's unknown offsets), but for known keys present on both sides, a's
// child is kept verbatim - it is NOT recursively merged with b's, since
// `+` never combines two values at the same key, it just picks a's.
// ArrayPlus is associative, and degenerates to Merge on disjoint key
// sets (there's nothing to "keep instead of merge" when keys don't
// collide).
func ArrayPlus(a, b Taintedness) Taintedness {
	out := Taintedness{Flags: a.Flags | b.Flags, KeyFlags: a.KeyFlags | b.KeyFlags}

	if len(a.Known) > 0 || len(b.Known) > 0 {
		out.Known = make(map[Key]Taintedness, maxInt(len(a.Known), len(b.Known)))
		for k, v := range b.Known {
			out.Known[k] = v.Clone()
		}
		for k, v := range a.Known {
			out.Known[k] = v.Clone()
		}
	}

	if a.Unknown != nil || b.Unknown != nil {
		u := Merge(a.unknownOrSafe(), b.unknownOrSafe())
		out.Unknown = &u
	}

	return out
}

// IntersectForSink answers "does value violate sink": the result takes
// sink's shape. At every level where sink has structure, result.Flags is
// sink.Flags intersected with value's fully-collapsed taint (a sink
// category present at this level catches the category occurring
// anywhere in value, since the host language has no further structure
// at a sink call). Descent only follows sink's shape, using Project on
// value so that value's own shape doesn't leak positions sink never
// asked about.
func IntersectForSink(sink, value Taintedness) Taintedness {
	valueFlags := value.Collapse()
	out := Taintedness{Flags: sink.Flags & valueFlags, KeyFlags: sink.KeyFlags & valueFlags}

	if len(sink.Known) > 0 {
		out.Known = make(map[Key]Taintedness, len(sink.Known))
		for k, sinkChild := range sink.Known {
			valueChild := value.Project(k, true)
			out.Known[k] = IntersectForSink(sinkChild, valueChild)
		}
	}

	if sink.Unknown != nil {
		valueChild := value.Project(Key{}, false)
		u := IntersectForSink(*sink.Unknown, valueChild)
		out.Unknown = &u
	}

	return out
}

// ShapeSubtract removes b.Flags from a.Flags at every level where both
// sides have structure, modeling an escaper function removing a taint
// category. a.Unknown is left untouched: we cannot prove the escaper
// reached an offset we never resolved, so it is not safe to claim the
// category was removed there.
func ShapeSubtract(a, b Taintedness) Taintedness {
	out := Taintedness{Flags: a.Flags &^ b.Flags, KeyFlags: a.KeyFlags &^ b.KeyFlags}

	if len(a.Known) > 0 {
		out.Known = make(map[Key]Taintedness, len(a.Known))
		for k, av := range a.Known {
			if bv, ok := b.Known[k]; ok {
				out.Known[k] = ShapeSubtract(av, bv)
			} else {
				out.Known[k] = av.Clone()
			}
		}
	}

	if a.Unknown != nil {
		u := a.Unknown.Clone()
		out.Unknown = &u
	}

	return out
}

// mapFlags applies f to every flag set in the tree (own flags, key
// flags, every known child, the unknown child), returning a new tree.
func (t Taintedness) mapFlags(f func(flag.Flags) flag.Flags) Taintedness {
	out := Taintedness{Flags: f(t.Flags), KeyFlags: f(t.KeyFlags)}
	if len(t.Known) > 0 {
		out.Known = make(map[Key]Taintedness, len(t.Known))
		for k, v := range t.Known {
			out.Known[k] = v.mapFlags(f)
		}
	}
	if t.Unknown != nil {
		u := t.Unknown.mapFlags(f)
		out.Unknown = &u
	}
	return out
}

// ExecToYes converts every EXEC bit in the tree into the matching YES
// bit: "this sink accepts category X" becomes "a value of category X".
// Nilpotent: applying it twice yields an all-Safe tree, since the first
// application already removed every EXEC bit there was to shift.
func ExecToYes(t Taintedness) Taintedness {
	return t.mapFlags(flag.ExecToYes)
}

// YesToExec converts every YES bit in the tree into the matching EXEC
// bit, the back-propagation direction: "this argument must never carry
// category X" from "this sink position forbids category X".
func YesToExec(t Taintedness) Taintedness {
	return t.mapFlags(flag.YesToExec)
}

// String renders t for debug output, in depth-first order with keys
// sorted for determinism.
func (t Taintedness) String() string {
	var b strings.Builder
	t.render(&b, 0)
	return b.String()
}

func (t Taintedness) render(b *strings.Builder, depth int) {
	indent := strings.Repeat("  ", depth)
	fmt.Fprintf(b, "%sflags=%s keyFlags=%s\n", indent, t.Flags, t.KeyFlags)
	keys := make([]Key, 0, len(t.Known))
	for k := range t.Known {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	for _, k := range keys {
		fmt.Fprintf(b, "%s[%s]:\n", indent, k)
		t.Known[k].render(b, depth+1)
	}
	if t.Unknown != nil {
		fmt.Fprintf(b, "%s[unknown]:\n", indent)
		t.Unknown.render(b, depth+1)
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
