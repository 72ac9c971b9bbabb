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

// Package docblock parses the `@param-taint` / `@return-taint` doc
// comment annotations a user writes on a function to override what the
// analyzer would otherwise infer for it, e.g.:
//
//	// @param-taint $query exec_sql
//	// @return-taint html, allow_override
//
// Tokens name a category, optionally prefixed with exec_, escapes_, or
// onlysafefor_, plus the free-standing modifiers array_ok,
// allow_override, and raw_param.
package docblock

import (
	"strings"

	"github.com/wikimedia/phan-taint-check-plugin/internal/pkg/flag"
)

// Annotation is the parsed result of one @param-taint or @return-taint
// line: the flags it sets, plus the modifiers that control how those
// flags apply.
type Annotation struct {
	Flags flag.Flags
	// ArrayOK, RawParam, and AllowOverride mirror the like-named
	// flag.Flags meta-bits; AllowOverride being true means the caller
	// should NOT OR in flag.NoOverride (the default lock).
	ArrayOK       bool
	RawParam      bool
	AllowOverride bool
}

// categoryAliases maps docblock category spellings that don't match a
// flag.Flags name 1:1 onto the flag they mean.
var categoryAliases = map[string]flag.Flags{
	"htmlnoent": flag.HTML,
	"none":      0,
	"tainted":   flag.YesMask,
}

// ParseTokens parses a comma/whitespace separated token list (the part
// of an @param-taint/@return-taint line after the optional `$name`)
// into an Annotation. Unrecognized tokens are ignored, matching the
// teacher's general policy of being lenient about comment contents
// (docblocks are free text; a typo should not crash analysis).
func ParseTokens(tokens string) Annotation {
	ann := Annotation{}
	for _, raw := range splitTokens(tokens) {
		tok := strings.ToLower(strings.TrimSpace(raw))
		if tok == "" {
			continue
		}
		switch tok {
		case "array_ok":
			ann.ArrayOK = true
			continue
		case "allow_override":
			ann.AllowOverride = true
			continue
		case "raw_param":
			ann.RawParam = true
			continue
		}

		switch {
		case strings.HasPrefix(tok, "exec_"):
			ann.Flags |= flag.YesToExec(CategoryFlag(strings.TrimPrefix(tok, "exec_")))
		case strings.HasPrefix(tok, "escapes_"):
			cat := CategoryFlag(strings.TrimPrefix(tok, "escapes_"))
			ann.Flags |= flag.YesToExec(cat) | flag.EscapedExec
		case strings.HasPrefix(tok, "onlysafefor_"):
			cat := CategoryFlag(strings.TrimPrefix(tok, "onlysafefor_"))
			ann.Flags |= flag.YesToExec(cat) | flag.Escaped
		default:
			ann.Flags |= CategoryFlag(tok)
		}
	}
	if !ann.AllowOverride {
		ann.Flags |= flag.NoOverride
	}
	if ann.ArrayOK {
		ann.Flags |= flag.ArrayOK
	}
	if ann.RawParam {
		ann.Flags |= flag.RawParam
	}
	return ann
}

// CategoryFlag resolves a bare category token ("html", "sql_numkey",
// "tainted", ...) to its flag, checking the alias table before falling
// back to flag.ByName. Shared with internal/pkg/config so a YAML
// matcher's `category:` field understands the same spellings a
// docblock annotation does.
func CategoryFlag(name string) flag.Flags {
	if f, ok := categoryAliases[name]; ok {
		return f
	}
	if f, ok := flag.ByName(name); ok {
		return f
	}
	return 0
}

func splitTokens(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
}

// ParamTaint is one parsed @param-taint line: the parameter name it
// names and the Annotation it carries.
type ParamTaint struct {
	Param      string
	Annotation Annotation
}

// ParseDoc scans a function's doc comment text for @param-taint and
// @return-taint lines, returning every parameter annotation found and
// the merged return annotation (later @return-taint lines OR their
// flags together, matching how multiple docblock tags accumulate).
func ParseDoc(doc string) (params []ParamTaint, ret Annotation) {
	for _, line := range strings.Split(doc, "\n") {
		line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "//"))
		switch {
		case strings.HasPrefix(line, "@param-taint"):
			rest := strings.TrimSpace(strings.TrimPrefix(line, "@param-taint"))
			name, tokens, ok := cutParamName(rest)
			if !ok {
				continue
			}
			params = append(params, ParamTaint{Param: name, Annotation: ParseTokens(tokens)})
		case strings.HasPrefix(line, "@return-taint"):
			rest := strings.TrimSpace(strings.TrimPrefix(line, "@return-taint"))
			ann := ParseTokens(rest)
			ret.Flags |= ann.Flags
			ret.ArrayOK = ret.ArrayOK || ann.ArrayOK
			ret.RawParam = ret.RawParam || ann.RawParam
			ret.AllowOverride = ret.AllowOverride || ann.AllowOverride
		}
	}
	return params, ret
}

// cutParamName splits "$name token, token" into ("name", "token, token").
func cutParamName(rest string) (name, tokens string, ok bool) {
	if !strings.HasPrefix(rest, "$") {
		return "", "", false
	}
	fields := strings.SplitN(rest, " ", 2)
	name = strings.TrimPrefix(fields[0], "$")
	if len(fields) == 2 {
		tokens = fields[1]
	}
	return name, tokens, name != ""
}
