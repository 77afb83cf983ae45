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
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"firebase.google.com/admin/errorutils"
	"firebase.google.com/admin/internal"
	"firebase.google.com/admin/internal/credsfile"
	"firebase.google.com/admin/internal/jwt"
)

// ServiceAccountInfo is the subset of a service account key file needed to
// mint tokens. It can be passed to [FromValue].
type ServiceAccountInfo struct {
	ProjectID   string `json:"project_id"`
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
}

// ServiceAccountCredential mints tokens by exchanging an RS256 signed JWT
// assertion at the OAuth2 token endpoint.
type ServiceAccountCredential struct {
	projectID    string
	clientEmail  string
	privateKeyID string
	signer       crypto.Signer

	tokenURL string
	scopes   []string
	client   *http.Client
	logger   *slog.Logger
	implicit bool
}

// NewServiceAccount parses and validates the service account key described
// by src. Validation failures are returned as InvalidCredential errors.
func NewServiceAccount(src Source, opts *Options) (*ServiceAccountCredential, error) {
	return newServiceAccount(src, opts, false)
}

func newServiceAccount(src Source, opts *Options, implicit bool) (*ServiceAccountCredential, error) {
	b, err := src.read()
	if err != nil {
		return nil, errorutils.Wrap(errorutils.InvalidCredential, err, "Failed to parse service account json file: %v", err)
	}
	f, err := credsfile.ParseServiceAccount(b)
	if err != nil {
		return nil, errorutils.Wrap(errorutils.InvalidCredential, err, "Failed to parse service account json file: %v", err)
	}
	return serviceAccountFromFile(f, opts, implicit)
}

func serviceAccountFromFile(f *credsfile.ServiceAccountFile, opts *Options, implicit bool) (*ServiceAccountCredential, error) {
	switch {
	case f.ProjectID == "":
		return nil, errorutils.New(errorutils.InvalidCredential, `Service account object must contain a string "project_id" property.`)
	case f.PrivateKey == "":
		return nil, errorutils.New(errorutils.InvalidCredential, `Service account object must contain a string "private_key" property.`)
	case f.ClientEmail == "":
		return nil, errorutils.New(errorutils.InvalidCredential, `Service account object must contain a string "client_email" property.`)
	}
	signer, err := internal.ParseKey([]byte(f.PrivateKey))
	if err != nil {
		return nil, errorutils.Wrap(errorutils.InvalidCredential, err, "Failed to parse private key: %v", err)
	}
	tokenURL := googleTokenAudience
	if opts != nil && opts.TokenURL != "" {
		tokenURL = opts.TokenURL
	} else if f.TokenURL != "" {
		tokenURL = f.TokenURL
	}
	return &ServiceAccountCredential{
		projectID:    f.ProjectID,
		clientEmail:  f.ClientEmail,
		privateKeyID: f.PrivateKeyID,
		signer:       signer,
		tokenURL:     tokenURL,
		scopes:       opts.scopes(),
		client:       opts.client(),
		logger:       opts.logger(),
		implicit:     implicit,
	}, nil
}

// ProjectID returns the project the service account belongs to.
func (c *ServiceAccountCredential) ProjectID() string { return c.projectID }

// ClientEmail returns the service account email.
func (c *ServiceAccountCredential) ClientEmail() string { return c.clientEmail }

// Kind implements [Classified].
func (c *ServiceAccountCredential) Kind() Kind { return ServiceAccount }

// Implicit implements [Classified].
func (c *ServiceAccountCredential) Implicit() bool { return c.implicit }

// AccessToken implements [Credential].
func (c *ServiceAccountCredential) AccessToken(ctx context.Context) (*OAuthToken, error) {
	assertion, err := c.assertion()
	if err != nil {
		return nil, errorutils.Wrap(errorutils.InvalidCredential, err, invalidCredMessage, err.Error())
	}
	v := url.Values{}
	v.Set("grant_type", jwtGrantType)
	v.Set("assertion", assertion)
	req, err := http.NewRequest(http.MethodPost, c.tokenURL, strings.NewReader(v.Encode()))
	if err != nil {
		return nil, errorutils.Wrap(errorutils.InvalidCredential, err, invalidCredMessage, err.Error())
	}
	req.Header.Set("Content-Type", formContentType)
	return requestAccessToken(ctx, c.client, req, c.logger)
}

func (c *ServiceAccountCredential) assertion() (string, error) {
	iat := timeNow()
	claims := &jwt.Claims{
		Iss:   c.clientEmail,
		Sub:   c.clientEmail,
		Scope: strings.Join(c.scopes, " "),
		Aud:   c.tokenURL,
		Iat:   iat.Unix(),
		Exp:   iat.Add(oneHourInSeconds * time.Second).Unix(),
	}
	h := &jwt.Header{
		Algorithm: jwt.HeaderAlgRSA256,
		Type:      jwt.HeaderType,
		KeyID:     c.privateKeyID,
	}
	return jwt.EncodeJWS(h, claims, c.signer)
}
