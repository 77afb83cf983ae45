// Copyright 2026 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package credential

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
)

type sourceKind int

const (
	noSource sourceKind = iota
	fileSource
	jsonSource
	valueSource
)

// Source is where the secret material of a credential comes from: a JSON
// file on disk, raw JSON bytes, or a Go value that marshals to the expected
// JSON object (a struct such as [ServiceAccountInfo] or a map).
type Source struct {
	kind  sourceKind
	path  string
	data  []byte
	value interface{}
}

// FromFile returns a Source that reads the JSON file at path.
func FromFile(path string) Source {
	return Source{kind: fileSource, path: path}
}

// FromJSON returns a Source backed by the provided JSON document.
func FromJSON(b []byte) Source {
	data := make([]byte, len(b))
	copy(data, b)
	return Source{kind: jsonSource, data: data}
}

// FromValue returns a Source backed by v, which is marshaled to JSON.
func FromValue(v interface{}) Source {
	return Source{kind: valueSource, value: v}
}

// Key returns the serialized identity of s. Two sources with the same key
// produce equivalent credentials.
func (s Source) Key() (string, error) {
	switch s.kind {
	case fileSource:
		return "file:" + s.path, nil
	case jsonSource:
		var buf bytes.Buffer
		if err := json.Compact(&buf, s.data); err != nil {
			return "", err
		}
		return "json:" + buf.String(), nil
	case valueSource:
		b, err := json.Marshal(s.value)
		if err != nil {
			return "", err
		}
		return "json:" + string(b), nil
	default:
		return "", errors.New("credential source must be provided")
	}
}

// read returns the JSON document described by s.
func (s Source) read() ([]byte, error) {
	switch s.kind {
	case fileSource:
		return os.ReadFile(s.path)
	case jsonSource:
		return s.data, nil
	case valueSource:
		return json.Marshal(s.value)
	default:
		return nil, errors.New("credential source must be provided")
	}
}
