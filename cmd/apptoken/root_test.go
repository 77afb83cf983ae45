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

package main

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeServiceAccount(t *testing.T, tokenURI string) string {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatal(err)
	}
	b, err := json.Marshal(map[string]string{
		"type":         "service_account",
		"project_id":   "cli-project",
		"private_key":  string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})),
		"client_email": "cli@cli-project.iam.gserviceaccount.com",
		"token_uri":    tokenURI,
	})
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "sa.json")
	if err := os.WriteFile(path, b, 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func newTokenServer(t *testing.T) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token": "cli-token", "expires_in": 3600}`))
	}))
	t.Cleanup(ts.Close)
	return ts
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestApptoken_CredentialsFlag(t *testing.T) {
	path := writeServiceAccount(t, newTokenServer(t).URL)

	out, err := execute(t, "--credentials", path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "token:   cli-token") {
		t.Errorf("output = %q, want token line", out)
	}
	if !strings.Contains(out, "project: cli-project") {
		t.Errorf("output = %q, want project line", out)
	}
}

func TestApptoken_EnvironmentAndJSON(t *testing.T) {
	t.Setenv("FIREBASE_ADMIN_CREDENTIALS", writeServiceAccount(t, newTokenServer(t).URL))
	t.Setenv("FIREBASE_ADMIN_PROJECT", "override")

	out, err := execute(t, "--json")
	if err != nil {
		t.Fatal(err)
	}
	var got struct {
		AccessToken string `json:"access_token"`
		ProjectID   string `json:"project_id"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("output %q is not JSON: %v", out, err)
	}
	if got.AccessToken != "cli-token" || got.ProjectID != "override" {
		t.Errorf("output = %+v", got)
	}
}

func TestApptoken_Errors(t *testing.T) {
	dir := t.TempDir()
	unknown := filepath.Join(dir, "unknown.json")
	if err := os.WriteFile(unknown, []byte(`{"type": "external_account"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	for name, args := range map[string][]string{
		"missing file": {"--credentials", filepath.Join(dir, "missing.json")},
		"unknown type": {"--credentials", unknown},
		"empty name":   {"--credentials", writeServiceAccount(t, newTokenServer(t).URL), "--name", ""},
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := execute(t, args...); err == nil {
				t.Error("Execute() = nil, want error")
			}
		})
	}
}
