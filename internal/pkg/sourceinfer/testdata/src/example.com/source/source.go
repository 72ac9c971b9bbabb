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

package source

// Source is declared a source type by testdata's test-config.yaml.
type Source struct {
	Data string
}

// NotSource is an ordinary, untainted type.
type NotSource struct {
	Data string
}

// Tagged carries no config declaration of its own; it is inferred a
// source purely because one of its fields carries the built-in
// `taint:"source"` tag.
type Tagged struct {
	Secret string `taint:"source"`
}
