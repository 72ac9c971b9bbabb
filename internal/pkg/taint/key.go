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

import "fmt"

// KeyKind distinguishes the different scalar offsets a Taintedness or
// MethodLinks shape can be indexed by: integer slice/array indices,
// string map keys, and struct field names (a FieldAddr in SSA form is
// effectively a constant-key subscript on the struct).
type KeyKind uint8

const (
	// KeyInt is an integer-constant index, e.g. a[2].
	KeyInt KeyKind = iota
	// KeyString is a string-constant index, e.g. a["foo"].
	KeyString
	// KeyField is a struct field name, e.g. s.Foo.
	KeyField
)

// Key identifies one scalar offset into a shaped value. The zero Key is
// the integer key 0, which is what an implicit array-literal position
// auto-increments from.
type Key struct {
	Kind KeyKind
	Str  string
	Int  int64
}

// IntKey builds an integer-offset Key.
func IntKey(i int64) Key { return Key{Kind: KeyInt, Int: i} }

// StringKey builds a string-offset Key.
func StringKey(s string) Key { return Key{Kind: KeyString, Str: s} }

// FieldKey builds a struct-field Key.
func FieldKey(name string) Key { return Key{Kind: KeyField, Str: name} }

func (k Key) String() string {
	switch k.Kind {
	case KeyInt:
		return fmt.Sprintf("%d", k.Int)
	case KeyString:
		return fmt.Sprintf("%q", k.Str)
	case KeyField:
		return k.Str
	default:
		return "?"
	}
}
