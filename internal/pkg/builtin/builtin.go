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

// Package builtin is the static taint table for functions the analyzer
// never gets to see the body of - the standard library and anything
// else compiled without source. It is the flag-lattice re-keying of
// google/go-flow-levee's propagation/summaries.go and
// propagation/stdlib.go: where the teacher's summary says "argument 0
// becomes tainted if argument 1 was", this package's Entry says exactly
// which categories flow, plus which argument positions are sinks and
// which are escapers.
package builtin

import "github.com/wikimedia/phan-taint-check-plugin/internal/pkg/flag"

// Entry is one function's static contract: which argument positions are
// sinks (and for what categories), which argument an escaper removes
// categories from (and which), and how taint passes from arguments to
// the return value.
type Entry struct {
	// Sinks maps an argument index to the categories a call with a
	// tainted value at that position should report. Every bit here is
	// implicitly NoOverride - it came from this table, not inference.
	Sinks map[int]flag.Flags
	// Escapes maps an argument index to the categories the function
	// removes from that argument's taint before it can reach the
	// return value (e.g. html.EscapeString escapes HTML, not SQL).
	// A function entirely absent from Escapes propagates everything.
	Escapes map[int]flag.Flags
	// PassthroughArgs lists the argument indices - counted after the
	// receiver for a method, so index 0 is always the first declared
	// parameter, never the receiver itself - whose taint (after Escapes
	// is applied) reaches the return value.
	// A nil/empty slice with a non-nil Entry means the return value
	// does not depend on any argument's taint - only on Result.
	PassthroughArgs []int
	// Result is unconditional taint the return value carries
	// regardless of arguments, e.g. a function that always returns
	// attacker-shaped data.
	Result flag.Flags
}

// Table maps a package-qualified function or method name (the same
// "pkg.Func" / "pkg.(Type).Method" naming IsSourceFunc and the
// Configuration matchers use, receiver name always bare - see
// utils.DecomposeFunction/UnqualifiedName, which strips a pointer
// receiver's leading "*" the same way it strips the package
// qualifier) to its static contract.
var Table = map[string]Entry{
	// fmt: formatting verbs don't interpret HTML/SQL/Shell specially,
	// so every formatter is a plain passthrough from its operands
	// (and, for the *f variants, the format string itself) to its
	// string result.
	"fmt.Sprint":   {PassthroughArgs: []int{0}},
	"fmt.Sprintln": {PassthroughArgs: []int{0}},
	"fmt.Sprintf":  {PassthroughArgs: []int{0, 1}},
	"fmt.Errorf":   {PassthroughArgs: []int{0, 1}},
	"fmt.Fprint":   {PassthroughArgs: []int{1}, Sinks: nil},
	"fmt.Fprintf":  {PassthroughArgs: []int{1, 2}},
	"fmt.Fprintln": {PassthroughArgs: []int{1}},

	// strings: pure structural transforms, taint flows straight
	// through from the string argument(s) to the result.
	"strings.Join":       {PassthroughArgs: []int{0}},
	"strings.Split":      {PassthroughArgs: []int{0}},
	"strings.SplitN":     {PassthroughArgs: []int{0}},
	"strings.Replace":    {PassthroughArgs: []int{0, 1, 2}},
	"strings.ReplaceAll": {PassthroughArgs: []int{0, 1, 2}},
	"strings.ToUpper":    {PassthroughArgs: []int{0}},
	"strings.ToLower":    {PassthroughArgs: []int{0}},
	"strings.TrimSpace":  {PassthroughArgs: []int{0}},
	"strings.Trim":       {PassthroughArgs: []int{0}},
	"strings.TrimPrefix": {PassthroughArgs: []int{0}},
	"strings.TrimSuffix":  {PassthroughArgs: []int{0}},
	"strings.Repeat":     {PassthroughArgs: []int{0}},
	"strings.NewReader":  {PassthroughArgs: []int{0}},

	"bytes.NewBufferString": {PassthroughArgs: []int{0}},

	"strconv.Itoa":     {PassthroughArgs: []int{0}},
	"strconv.Quote":    {PassthroughArgs: []int{0}},
	"strconv.FormatInt": {PassthroughArgs: []int{0}},

	// html/template.HTMLEscapeString and html.EscapeString remove HTML
	// taint specifically - they do nothing for SQL or shell metachars,
	// so Escapes names only the HTML bit. Their result always carries the
	// Escaped category (spec.md §3.1's "ESCAPED denotes already escaped,
	// escaping again is a double-escape bug"), and argument 0 is itself an
	// EscapedExec sink: calling the escaper on a value that already
	// carries Escaped taint is exactly the double-escape condition spec.md
	// §8 scenario 2 requires a diagnostic for.
	"html.EscapeString": {
		PassthroughArgs: []int{0},
		Escapes:         map[int]flag.Flags{0: flag.HTML},
		Sinks:           map[int]flag.Flags{0: flag.EscapedExec},
		Result:          flag.Escaped,
	},
	"html/template.HTMLEscapeString": {
		PassthroughArgs: []int{0},
		Escapes:         map[int]flag.Flags{0: flag.HTML},
		Sinks:           map[int]flag.Flags{0: flag.EscapedExec},
		Result:          flag.Escaped,
	},
	"html/template.JSEscapeString": {PassthroughArgs: []int{0}, Escapes: map[int]flag.Flags{0: flag.HTML}},

	// net/url escaping removes taint that would otherwise break out of
	// a URL component, which this table treats as HTML-adjacent markup
	// escaping (the category a URL is embedded into, e.g. an href).
	"net/url.QueryEscape":  {PassthroughArgs: []int{0}, Escapes: map[int]flag.Flags{0: flag.HTML}},
	"net/url.PathEscape":   {PassthroughArgs: []int{0}, Escapes: map[int]flag.Flags{0: flag.HTML}},

	// encoding/json.Marshal re-shapes data but a string field's
	// contents survive verbatim inside the quoted JSON string, so HTML
	// and Shell taint both still apply to the output; only structural
	// breakout (the Serialize category, e.g. a crafted key) is
	// escaped by the encoder's own quoting.
	"encoding/json.Marshal": {PassthroughArgs: []int{0}, Escapes: map[int]flag.Flags{0: flag.Serialize}},

	// regexp.QuoteMeta exists specifically to neutralize a string
	// before splicing it into a regex, i.e. it escapes Shell-adjacent
	// metacharacter taint.
	"regexp.QuoteMeta": {PassthroughArgs: []int{0}, Escapes: map[int]flag.Flags{0: flag.Shell}},

	// os/exec.Command: argument 0 (the command name) and argument 1
	// (the variadic args, flattened to index 1 by the caller) both flow
	// into the eventual process's argv, hence Sinks on both 0 and 1.
	// Both are shell-exec sinks whether or not the command runs through
	// a shell; nothing distinguishes the two cases.
	"os/exec.Command": {Sinks: map[int]flag.Flags{0: flag.ShellExec, 1: flag.ShellExec}},

	// database/sql.(DB).Query and Exec: the query string (argument 0,
	// after the receiver) is the classic SQL sink. Parameterized args
	// that follow it are not sinks - they are bound, not concatenated.
	"database/sql.(DB).Query":    {Sinks: map[int]flag.Flags{0: flag.SQLExec}},
	"database/sql.(DB).QueryRow": {Sinks: map[int]flag.Flags{0: flag.SQLExec}},
	"database/sql.(DB).Exec":     {Sinks: map[int]flag.Flags{0: flag.SQLExec}},

	// text/template and html/template's Execute sink the written
	// output into whatever io.Writer backs the response - modeled here
	// as an HTML-exec sink on the data argument, since unescaped
	// template actions are the classic reflected-HTML vulnerability.
	"html/template.(Template).Execute":     {Sinks: map[int]flag.Flags{1: flag.HTMLExec}},
	"html/template.(Template).ExecuteTemplate": {Sinks: map[int]flag.Flags{2: flag.HTMLExec}},

	// net/http.(ResponseWriter).Write is the idiomatic-Go counterpart of
	// spec.md's `echo`: writing bytes straight to the client is reflected
	// HTML output unless they were escaped first. This entry is only
	// reachable through internal/pkg/propagation's interface-invoke path
	// (visitInvoke), since ResponseWriter is always called through the
	// interface, never a concrete type, in ordinary handler code.
	"net/http.(ResponseWriter).Write": {Sinks: map[int]flag.Flags{0: flag.HTMLExec}},
}

// Lookup returns the static contract for the package-qualified function
// or method name, and whether one is registered.
func Lookup(name string) (Entry, bool) {
	e, ok := Table[name]
	return e, ok
}

// SinkFlags returns the categories the entry's sink at argument index i
// would report, or Safe (no bits) if i is not a sink position.
func (e Entry) SinkFlags(i int) flag.Flags {
	return e.Sinks[i]
}

// EscapeFlags returns the categories the entry's escaper removes from
// argument index i, or Safe if the entry doesn't escape that argument.
func (e Entry) EscapeFlags(i int) flag.Flags {
	return e.Escapes[i]
}

// Passes reports whether argument index i is one of the positions whose
// taint reaches the return value.
func (e Entry) Passes(i int) bool {
	for _, p := range e.PassthroughArgs {
		if p == i {
			return true
		}
	}
	return false
}
