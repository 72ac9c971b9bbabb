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

// Package shape exercises the per-key shape the taint lattice keeps for
// a map: writing a tainted value at one key must not taint a read of a
// different key.
package shape

import "net/http"

func Handler(w http.ResponseWriter, r *http.Request) {
	m := map[string]string{"safe": "constant"}
	m["danger"] = r.RemoteAddr

	w.Write([]byte(m["safe"]))
	w.Write([]byte(m["danger"])) // want `possibly unsafe value \(html\) reaches a sink`
}
