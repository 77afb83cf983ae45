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
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"firebase.google.com/admin/errorutils"
	"firebase.google.com/admin/internal/jwt"
	"github.com/google/go-cmp/cmp"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func setTimeNow(t *testing.T, now time.Time) {
	t.Helper()
	old := timeNow
	timeNow = func() time.Time { return now }
	t.Cleanup(func() { timeNow = old })
}

func newTestKey(t *testing.T) (*rsa.PrivateKey, string) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatal(err)
	}
	return key, string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}))
}

func serviceAccountJSON(t *testing.T, pemKey string, extra map[string]interface{}) []byte {
	t.Helper()
	m := map[string]interface{}{
		"type":           "service_account",
		"project_id":     "mock-project-id",
		"private_key_id": "key-id-1",
		"private_key":    pemKey,
		"client_email":   "mock-email@mock-project-id.iam.gserviceaccount.com",
	}
	for k, v := range extra {
		if v == nil {
			delete(m, k)
			continue
		}
		m[k] = v
	}
	b, err := json.Marshal(m)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

// verifyAssertion checks the RS256 signature of a JWS and returns its
// claims.
func verifyAssertion(assertion string, pub *rsa.PublicKey) (*jwt.Claims, error) {
	parts := strings.Split(assertion, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("assertion has %d segments, want 3", len(parts))
	}
	sig, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256([]byte(parts[0] + "." + parts[1]))
	if err := rsa.VerifyPKCS1v15(pub, crypto.SHA256, sum[:], sig); err != nil {
		return nil, err
	}
	b, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, err
	}
	c := &jwt.Claims{}
	if err := json.Unmarshal(b, c); err != nil {
		return nil, err
	}
	return c, nil
}

func refreshTokenJSON(t *testing.T) []byte {
	t.Helper()
	b, err := json.Marshal(map[string]string{
		"type":          "authorized_user",
		"client_id":     "mock-client-id",
		"client_secret": "mock-client-secret",
		"refresh_token": "mock-refresh-token",
	})
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func writeFile(t *testing.T, dir, name string, b []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func tokenServer(t *testing.T, check func(r *http.Request), status int, body string) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			check(r)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestServiceAccount_AccessToken(t *testing.T) {
	setTimeNow(t, testNow)
	key, pemKey := newTestKey(t)
	var gotClaims *jwt.Claims
	ts := tokenServer(t, func(r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %q, want POST", r.Method)
		}
		if got := r.Header.Get("Content-Type"); got != formContentType {
			t.Errorf("Content-Type = %q, want %q", got, formContentType)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatal(err)
		}
		if got := r.PostForm.Get("grant_type"); got != jwtGrantType {
			t.Errorf("grant_type = %q, want %q", got, jwtGrantType)
		}
		c, err := verifyAssertion(r.PostForm.Get("assertion"), &key.PublicKey)
		if err != nil {
			t.Errorf("verifyAssertion() = %v", err)
		}
		gotClaims = c
	}, http.StatusOK, `{"access_token": "tok1", "expires_in": 3600, "token_type": "Bearer"}`)

	cred, err := NewServiceAccount(FromJSON(serviceAccountJSON(t, pemKey, nil)), &Options{TokenURL: ts.URL})
	if err != nil {
		t.Fatal(err)
	}
	tok, err := cred.AccessToken(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(&OAuthToken{AccessToken: "tok1", ExpiresIn: 3600}, tok); diff != "" {
		t.Errorf("AccessToken() mismatch (-want +got):\n%s", diff)
	}

	email := "mock-email@mock-project-id.iam.gserviceaccount.com"
	want := &jwt.Claims{
		Iss:   email,
		Sub:   email,
		Scope: strings.Join(defaultScopes, " "),
		Aud:   ts.URL,
		Iat:   testNow.Unix(),
		Exp:   testNow.Unix() + 3600,
	}
	if diff := cmp.Diff(want, gotClaims); diff != "" {
		t.Errorf("assertion claims mismatch (-want +got):\n%s", diff)
	}
	if cred.ProjectID() != "mock-project-id" {
		t.Errorf("ProjectID() = %q", cred.ProjectID())
	}
	if cred.Implicit() {
		t.Error("Implicit() = true, want false")
	}
	if IsApplicationDefault(cred) {
		t.Error("IsApplicationDefault() = true, want false")
	}
}

func TestServiceAccount_TokenURIFromFile(t *testing.T) {
	_, pemKey := newTestKey(t)
	var called bool
	ts := tokenServer(t, func(r *http.Request) { called = true }, http.StatusOK, `{"access_token": "tok1", "expires_in": 3600}`)

	cred, err := NewServiceAccount(FromJSON(serviceAccountJSON(t, pemKey, map[string]interface{}{"token_uri": ts.URL})), nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := cred.AccessToken(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !called {
		t.Error("token_uri from the key file was not used")
	}
}

func TestServiceAccount_CamelCase(t *testing.T) {
	_, pemKey := newTestKey(t)
	snake, err := NewServiceAccount(FromJSON(serviceAccountJSON(t, pemKey, nil)), nil)
	if err != nil {
		t.Fatal(err)
	}
	camel, err := NewServiceAccount(FromValue(map[string]string{
		"projectId":   "mock-project-id",
		"clientEmail": "mock-email@mock-project-id.iam.gserviceaccount.com",
		"privateKey":  pemKey,
	}), nil)
	if err != nil {
		t.Fatal(err)
	}
	if snake.ProjectID() != camel.ProjectID() || snake.ClientEmail() != camel.ClientEmail() {
		t.Errorf("camelCase credential = (%q, %q), want (%q, %q)",
			camel.ProjectID(), camel.ClientEmail(), snake.ProjectID(), snake.ClientEmail())
	}
}

func TestServiceAccount_FromFileAndValue(t *testing.T) {
	_, pemKey := newTestKey(t)
	path := writeFile(t, t.TempDir(), "sa.json", serviceAccountJSON(t, pemKey, nil))
	if _, err := NewServiceAccount(FromFile(path), nil); err != nil {
		t.Errorf("FromFile: %v", err)
	}
	info := ServiceAccountInfo{
		ProjectID:   "mock-project-id",
		ClientEmail: "mock-email@mock-project-id.iam.gserviceaccount.com",
		PrivateKey:  pemKey,
	}
	if _, err := NewServiceAccount(FromValue(info), nil); err != nil {
		t.Errorf("FromValue: %v", err)
	}
}

func TestServiceAccount_Validation(t *testing.T) {
	_, pemKey := newTestKey(t)
	tests := []struct {
		name  string
		extra map[string]interface{}
		want  string
	}{
		{
			name:  "missing project_id",
			extra: map[string]interface{}{"project_id": nil},
			want:  `Service account object must contain a string "project_id" property.`,
		},
		{
			name:  "missing private_key",
			extra: map[string]interface{}{"private_key": nil},
			want:  `Service account object must contain a string "private_key" property.`,
		},
		{
			name:  "missing client_email",
			extra: map[string]interface{}{"client_email": nil},
			want:  `Service account object must contain a string "client_email" property.`,
		},
		{
			name:  "bad private key",
			extra: map[string]interface{}{"private_key": "not a key"},
			want:  "Failed to parse private key: ",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewServiceAccount(FromJSON(serviceAccountJSON(t, pemKey, tt.extra)), nil)
			if !errorutils.IsInvalidCredential(err) {
				t.Fatalf("NewServiceAccount() = %v, want InvalidCredential", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("NewServiceAccount() = %q, want message containing %q", err, tt.want)
			}
		})
	}
}

func TestServiceAccount_UnreadableSource(t *testing.T) {
	tests := []struct {
		name string
		src  Source
	}{
		{"missing file", FromFile(filepath.Join(t.TempDir(), "missing.json"))},
		{"not json", FromJSON([]byte("not json"))},
		{"json null", FromJSON([]byte("null"))},
		{"zero source", Source{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewServiceAccount(tt.src, nil)
			if !errorutils.IsInvalidCredential(err) {
				t.Errorf("NewServiceAccount() = %v, want InvalidCredential", err)
			}
		})
	}
}

func TestRefreshToken_AccessToken(t *testing.T) {
	ts := tokenServer(t, func(r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatal(err)
		}
		want := map[string]string{
			"grant_type":    "refresh_token",
			"client_id":     "mock-client-id",
			"client_secret": "mock-client-secret",
			"refresh_token": "mock-refresh-token",
		}
		got := map[string]string{}
		for k := range r.PostForm {
			got[k] = r.PostForm.Get(k)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("form mismatch (-want +got):\n%s", diff)
		}
	}, http.StatusOK, `{"access_token": "rt-token", "expires_in": 1800}`)

	cred, err := NewRefreshToken(FromJSON(refreshTokenJSON(t)), &Options{RefreshTokenURL: ts.URL})
	if err != nil {
		t.Fatal(err)
	}
	tok, err := cred.AccessToken(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(&OAuthToken{AccessToken: "rt-token", ExpiresIn: 1800}, tok); diff != "" {
		t.Errorf("AccessToken() mismatch (-want +got):\n%s", diff)
	}
	if cred.ClientID() != "mock-client-id" {
		t.Errorf("ClientID() = %q", cred.ClientID())
	}
	if KindOf(cred) != RefreshToken {
		t.Errorf("KindOf() = %v, want %v", KindOf(cred), RefreshToken)
	}
}

func TestRefreshToken_Validation(t *testing.T) {
	for _, field := range []string{"client_id", "client_secret", "refresh_token", "type"} {
		t.Run(field, func(t *testing.T) {
			var m map[string]interface{}
			if err := json.Unmarshal(refreshTokenJSON(t), &m); err != nil {
				t.Fatal(err)
			}
			delete(m, field)
			_, err := NewRefreshToken(FromValue(m), nil)
			if !errorutils.IsInvalidCredential(err) {
				t.Fatalf("NewRefreshToken() = %v, want InvalidCredential", err)
			}
			want := `Refresh token must contain a "` + field + `" property.`
			if !strings.Contains(err.Error(), want) {
				t.Errorf("NewRefreshToken() = %q, want message containing %q", err, want)
			}
		})
	}
}

func TestAccessToken_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{
			name:   "oauth error",
			status: http.StatusBadRequest,
			body:   `{"error": "invalid_grant", "error_description": "Invalid JWT Signature."}`,
			want:   "Error fetching access token: invalid_grant (Invalid JWT Signature.)",
		},
		{
			name:   "oauth error without description",
			status: http.StatusUnauthorized,
			body:   `{"error": "unauthorized_client"}`,
			want:   "Error fetching access token: unauthorized_client",
		},
		{
			name:   "plain text",
			status: http.StatusInternalServerError,
			body:   "backend failure",
			want:   "Error fetching access token: backend failure",
		},
		{
			name:   "empty body",
			status: http.StatusServiceUnavailable,
			body:   "",
			want:   "Error fetching access token: Missing error payload",
		},
		{
			name:   "missing expires_in",
			status: http.StatusOK,
			body:   `{"access_token": "tok1"}`,
			want:   `Unexpected response while fetching access token: {"access_token": "tok1"}`,
		},
		{
			name:   "missing access_token",
			status: http.StatusOK,
			body:   `{"expires_in": 3600}`,
			want:   "Unexpected response while fetching access token",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := tokenServer(t, nil, tt.status, tt.body)
			cred, err := NewRefreshToken(FromJSON(refreshTokenJSON(t)), &Options{RefreshTokenURL: ts.URL})
			if err != nil {
				t.Fatal(err)
			}
			_, err = cred.AccessToken(context.Background())
			if !errorutils.IsInvalidCredential(err) {
				t.Fatalf("AccessToken() = %v, want InvalidCredential", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("AccessToken() = %q, want message containing %q", err, tt.want)
			}
		})
	}
}

func TestResponseError_Temporary(t *testing.T) {
	for _, tt := range []struct {
		status int
		want   bool
	}{
		{http.StatusBadRequest, false},
		{http.StatusRequestTimeout, true},
		{http.StatusTooManyRequests, true},
		{http.StatusInternalServerError, true},
		{http.StatusServiceUnavailable, true},
	} {
		e := &ResponseError{Response: &http.Response{StatusCode: tt.status}}
		if got := e.Temporary(); got != tt.want {
			t.Errorf("Temporary() for %d = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestSource_Key(t *testing.T) {
	a, err := FromJSON([]byte(`{"a": 1,  "b": "x"}`)).Key()
	if err != nil {
		t.Fatal(err)
	}
	b, err := FromValue(map[string]interface{}{"a": 1, "b": "x"}).Key()
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Errorf("Key() = %q and %q, want equal keys", a, b)
	}
	f, err := FromFile("/tmp/creds.json").Key()
	if err != nil {
		t.Fatal(err)
	}
	if f != "file:/tmp/creds.json" {
		t.Errorf("Key() = %q", f)
	}
	if _, err := (Source{}).Key(); err == nil {
		t.Error("Key() on zero Source succeeded, want error")
	}
}
