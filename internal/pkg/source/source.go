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

// Package source identifies user-controlled input in Go programs - the
// idiomatic-Go counterpart of spec.md §3.6's superglobal table. PHP's
// fixed superglobal identifiers (_GET, _POST, _SERVER, ...) have no
// direct analog in Go; the equivalent "always tainted, hardcoded" input
// surface is: process arguments and environment (os.Args, os.Getenv,
// os.Environ, os.LookupEnv) and the parts of an incoming *http.Request
// that carry client-controlled data (URL, Header, Form, PostForm,
// MultipartForm, Body, RemoteAddr, Cookies).
//
// Just as spec.md calls out the file-upload superglobal as "shaped" -
// its name/type sub-keys tainted, tmp_name/error/size safe - this
// package gives mime/multipart.FileHeader the same per-field shape,
// since it is Go's closest structural analog to a PHP file upload entry.
package source

import (
	"github.com/wikimedia/phan-taint-check-plugin/internal/pkg/flag"
	"github.com/wikimedia/phan-taint-check-plugin/internal/pkg/taint"
)

// userInput is the flag set every hardcoded input source carries: every
// vulnerability category a raw string could plausibly be used as, since
// we have no static way to know what an attacker-controlled value will
// be used for. Escaped and SQLNumkey are excluded: both are derived
// status bits recording something the propagation visitor concluded
// about how a value was produced (escaped by a call, stored at an
// integer key alongside SQL taint) rather than a kind of danger raw
// input carries by itself - see internal/pkg/builtin's escaper Result
// entries and internal/pkg/propagation/assign.go's applyNumkeyRule.
const userInput = flag.YesMask &^ (flag.Escaped | flag.SQLNumkey)

// GlobalSources maps a package-qualified variable name to the
// taintedness an access to it should produce, the equivalent of
// spec.md's fixed superglobal table.
var GlobalSources = map[string]taint.Taintedness{
	"os.Args": {Flags: userInput, Unknown: &taint.Taintedness{Flags: userInput}},
}

// FuncSources maps a package-qualified function or method name to the
// taintedness its return value should carry when called, for functions
// that are themselves an input source (rather than merely propagating
// taint already present in their arguments - those live in
// internal/pkg/builtin instead).
var FuncSources = map[string]taint.Taintedness{
	"os.Getenv":     taint.FromFlags(userInput),
	"os.LookupEnv":  taint.FromFlags(userInput),
	"os.Environ":    {Flags: userInput, Unknown: &taint.Taintedness{Flags: userInput}},
	"os.Hostname":   taint.FromFlags(userInput),
	"os.ReadFile":   taint.FromFlags(userInput),
	"io/ioutil.ReadFile": taint.FromFlags(userInput),
	"net/http.(Request).Cookie":  taint.FromFlags(userInput),
	"net/http.(Request).Cookies": {Flags: userInput, Unknown: &taint.Taintedness{Flags: userInput}},
}

// fieldSpec is one field of a shaped struct source: whether the field
// itself is tainted, and whether its keys (for map-shaped fields like
// http.Header) are tainted.
type fieldSpec struct {
	value, keys flag.Flags
}

// StructFieldSources maps "pkgPath.TypeName" to a per-field shape. A
// field absent from the inner map is safe. This is the struct-shaped
// generalization of spec.md §3.6's "file-upload superglobal is shaped"
// special case.
var StructFieldSources = map[string]map[string]fieldSpec{
	"net/http.Request": {
		"URL":            {value: userInput, keys: userInput},
		"Header":         {value: userInput, keys: userInput},
		"Form":           {value: userInput, keys: userInput},
		"PostForm":       {value: userInput, keys: userInput},
		"MultipartForm":  {value: userInput},
		"Body":           {value: userInput},
		"RemoteAddr":     {value: userInput},
		"RequestURI":     {value: userInput},
		"Host":           {value: userInput},
		"TLS":            {},
	},
	"mime/multipart.FileHeader": {
		"Filename": {value: userInput},
		"Header":   {value: userInput, keys: userInput},
		"Size":     {},
	},
}

// FieldTaintedness returns the Taintedness an access to field fieldName
// of pkgPath.typeName should produce, and whether that type/field pair
// is a known shaped source at all.
func FieldTaintedness(pkgPath, typeName, fieldName string) (taint.Taintedness, bool) {
	fields, ok := StructFieldSources[pkgPath+"."+typeName]
	if !ok {
		return taint.Safe(), false
	}
	spec, ok := fields[fieldName]
	if !ok {
		return taint.Safe(), true
	}
	return Taintedness(spec), true
}

// Taintedness converts a fieldSpec into the Taintedness it describes.
func Taintedness(spec fieldSpec) taint.Taintedness {
	return taint.Taintedness{Flags: spec.value, KeyFlags: spec.keys}
}

// IsSourceFunc reports whether calling the function identified by
// pkgPath.name (pkgPath.(recv).name for a method) is itself an input
// source, returning the taintedness its result should carry.
func IsSourceFunc(pkgPath, recv, name string) (taint.Taintedness, bool) {
	key := name
	if pkgPath != "" {
		key = pkgPath + "." + name
	}
	if recv != "" {
		key = pkgPath + ".(" + recv + ")." + name
	}
	t, ok := FuncSources[key]
	return t, ok
}

// IsGlobalSource reports whether the package-qualified variable name
// (e.g. "os.Args") is a hardcoded input source.
func IsGlobalSource(qualifiedName string) (taint.Taintedness, bool) {
	t, ok := GlobalSources[qualifiedName]
	return t, ok
}
