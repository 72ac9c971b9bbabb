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

package escape

import (
	"html"
	"net/http"
)

// Safe escapes the tainted value once before writing it out; the HTML
// category is cleared by html.EscapeString so no diagnostic fires here.
func Safe(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte(html.EscapeString(r.RemoteAddr)))
}

// DoubleEscaped escapes the same value twice. The first call is fine;
// the second sees an already-Escaped argument, which is the
// double-escape bug.
func DoubleEscaped(r *http.Request) string {
	return html.EscapeString(html.EscapeString(r.RemoteAddr)) // want `possibly unsafe value \(escaped\) reaches a sink`
}
