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

package echo

import "net/http"

// Handler writes a client-controlled request field straight to the
// response body - the idiomatic-Go shape of reflected HTML output.
func Handler(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte(r.RemoteAddr)) // want `possibly unsafe value \(html\) reaches a sink`
}
