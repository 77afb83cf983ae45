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

package admin

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"reflect"
	"strings"

	"firebase.google.com/admin/credential"
	"firebase.google.com/admin/errorutils"
	"github.com/mitchellh/copystructure"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// firebaseConfigEnvVar names either a JSON file or, when its value starts
// with "{", an inline JSON object with default app options.
const firebaseConfigEnvVar = "FIREBASE_CONFIG"

// Options configures an [App].
type Options struct {
	// Credential mints the app's access tokens. If nil, a credential is
	// resolved from the environment with [credential.ResolveDefault]. Apps
	// of one registry that resolve the same source share the credential
	// unless they set HTTPClient.
	Credential credential.Credential
	// ProjectID is the Google Cloud project of the app. Optional.
	ProjectID string
	// DatabaseURL is the Realtime Database URL. Optional.
	DatabaseURL string
	// StorageBucket is the default Cloud Storage bucket. Optional.
	StorageBucket string
	// ServiceAccountID is the service account used to sign custom tokens.
	// Optional.
	ServiceAccountID string
	// DatabaseAuthVariableOverride is the auth variable used by Realtime
	// Database rules. It is deep copied on initialization. Optional.
	DatabaseAuthVariableOverride map[string]interface{}
	// HTTPClient is the base client for authorized requests. Optional.
	HTTPClient *http.Client
	// Logger is used by the app and its token manager. If not provided the
	// registry logger is used. Optional.
	Logger *slog.Logger
	// TracerProvider creates the spans of token refreshes. Optional.
	TracerProvider oteltrace.TracerProvider
	// ProactiveRefresh refreshes the access token in the background before it
	// expires. Optional.
	ProactiveRefresh bool
}

// fileConfig is the content of FIREBASE_CONFIG.
type fileConfig struct {
	ProjectID                    string                 `json:"projectId"`
	DatabaseURL                  string                 `json:"databaseURL"`
	StorageBucket                string                 `json:"storageBucket"`
	ServiceAccountID             string                 `json:"serviceAccountId"`
	DatabaseAuthVariableOverride map[string]interface{} `json:"databaseAuthVariableOverride"`
}

// optionsFromEnv loads the options used when InitializeApp receives nil.
func optionsFromEnv() (*Options, error) {
	v := os.Getenv(firebaseConfigEnvVar)
	if v == "" {
		return &Options{}, nil
	}
	var b []byte
	if strings.HasPrefix(v, "{") {
		b = []byte(v)
	} else {
		var err error
		if b, err = os.ReadFile(v); err != nil {
			return nil, errorutils.Wrap(errorutils.InvalidAppOptions, err, "Failed to parse app options file: %v", err)
		}
	}
	var fc fileConfig
	if err := json.Unmarshal(b, &fc); err != nil {
		return nil, errorutils.Wrap(errorutils.InvalidAppOptions, err, "Failed to parse app options file: %v", err)
	}
	return &Options{
		ProjectID:                    fc.ProjectID,
		DatabaseURL:                  fc.DatabaseURL,
		StorageBucket:                fc.StorageBucket,
		ServiceAccountID:             fc.ServiceAccountID,
		DatabaseAuthVariableOverride: fc.DatabaseAuthVariableOverride,
	}, nil
}

// clone returns a copy of o that shares no mutable state with it.
func (o *Options) clone() (*Options, error) {
	c := *o
	if o.DatabaseAuthVariableOverride != nil {
		cp, err := copystructure.Copy(o.DatabaseAuthVariableOverride)
		if err != nil {
			return nil, err
		}
		c.DatabaseAuthVariableOverride = cp.(map[string]interface{})
	}
	return &c, nil
}

// isNilCredential reports whether c is nil or an interface holding a nil
// pointer.
func isNilCredential(c credential.Credential) bool {
	if c == nil {
		return true
	}
	v := reflect.ValueOf(c)
	switch v.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Func, reflect.Slice, reflect.Chan, reflect.Interface:
		return v.IsNil()
	}
	return false
}
