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

// Package numkey exercises the SQL-numkey special case: a SQL-tainted
// string stored at an integer slice index marks the containing value
// SQLNumkey, distinct from the same taint stored at a string map key.
// sink is declared here and named as a sql_numkey sink by this package's
// test-config.yaml.
package numkey

import (
	"database/sql"
	"net/http"
	"strings"
)

func sink(s string) {}

func ArrayKey(r *http.Request) {
	rows := []string{"a", "b"}
	rows[0] = r.RemoteAddr
	sink(strings.Join(rows, ",")) // want "sql_numkey"
}

// MapKey stores the same tainted value at a string map key instead of
// an integer slice index: the ordinary SQL sink still fires, but never
// carrying the sql_numkey marker ArrayKey's sink sees, since
// applyNumkeyRule only ever looks at *ssa.Store (slice/array element
// assignment), never *ssa.MapUpdate.
func MapKey(db *sql.DB, r *http.Request) {
	rows := map[string]string{"a": "x"}
	rows["a"] = r.RemoteAddr
	db.Query(rows["a"]) // want `possibly unsafe value \(sql\) reaches a sink`
}
