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

// Package crossfunc exercises the per-function contract: Identity's
// parameter reaches its return value unchanged, so a caller passing
// tainted data through it and into a sink is still caught without
// re-analyzing Identity's body at the call site.
package crossfunc

import "net/http"

func Identity(s string) string {
	return s
}

func Handler(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte(Identity(r.RemoteAddr))) // want `possibly unsafe value \(html\) reaches a sink`
}
