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

// Package internal holds helpers shared by the credential, token and
// transport packages.
package internal

import (
	"crypto"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

const (
	// TokenTypeBearer is the auth header prefix for bearer tokens.
	TokenTypeBearer = "Bearer"

	// QuotaProjectEnvVar is the environment variable for setting the quota
	// project.
	QuotaProjectEnvVar = "GOOGLE_CLOUD_QUOTA_PROJECT"

	maxBodySize = 1 << 20
)

var projectEnvVars = []string{"GOOGLE_CLOUD_PROJECT", "GCLOUD_PROJECT"}

// DefaultClient returns an [http.Client] with some defaults set and
// [DefaultTransport] as its transport.
func DefaultClient() *http.Client {
	return &http.Client{
		Transport: DefaultTransport(),
		Timeout:   30 * time.Second,
	}
}

// DefaultTransport returns a clone of [http.DefaultTransport] if it is a
// [clonableTransport], as is the case for an [*http.Transport]. Otherwise
// the [http.DefaultTransport] is returned as is.
func DefaultTransport() http.RoundTripper {
	if transport, ok := http.DefaultTransport.(clonableTransport); ok {
		return transport.Clone()
	}
	return http.DefaultTransport
}

type clonableTransport interface {
	Clone() *http.Transport
}

// ParseKey converts the binary contents of a private key file to an
// [crypto.Signer]. It detects whether the private key is in a PEM container or
// not. If so, it extracts the private key from PEM container before
// conversion. It only supports PEM containers with no passphrase.
func ParseKey(key []byte) (crypto.Signer, error) {
	block, _ := pem.Decode(key)
	if block != nil {
		key = block.Bytes
	}
	var parsedKey interface{}
	var err error
	parsedKey, err = x509.ParsePKCS8PrivateKey(key)
	if err != nil {
		parsedKey, err = x509.ParsePKCS1PrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("private key should be a PEM or plain PKCS1 or PKCS8: %w", err)
		}
	}
	parsed, ok := parsedKey.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New("private key is invalid")
	}
	return parsed, nil
}

// ReadAll consumes the whole reader and safely reads the content of its body
// with some overflow protection.
func ReadAll(r io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, maxBodySize))
}

// ProjectIDFromEnv returns the first project id found in the well-known
// project environment variables.
func ProjectIDFromEnv() string {
	for _, name := range projectEnvVars {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}
