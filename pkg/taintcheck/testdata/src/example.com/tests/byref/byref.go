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

// Package byref exercises write-back through a pointer parameter: the
// caller must observe whichever of setSafe/setUnsafe stored through v
// last, in call order, not in declaration order.
package byref

import "net/http"

func setSafe(v *string) {
	*v = "static"
}

func setUnsafe(v *string, r *http.Request) {
	*v = r.RemoteAddr
}

// Ordered writes the unsafe value last, so it is what w.Write sees.
func Ordered(w http.ResponseWriter, r *http.Request) {
	v := "start"
	setSafe(&v)
	setUnsafe(&v, r)
	w.Write([]byte(v)) // want `possibly unsafe value \(html\) reaches a sink`
}

// Reversed writes the safe value last, overwriting the unsafe one
// before w.Write ever sees it.
func Reversed(w http.ResponseWriter, r *http.Request) {
	v := "start"
	setUnsafe(&v, r)
	setSafe(&v)
	w.Write([]byte(v))
}
