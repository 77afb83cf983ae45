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
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"firebase.google.com/admin/errorutils"
	"firebase.google.com/admin/internal"
	"firebase.google.com/admin/internal/credsfile"
	"github.com/googleapis/gax-go/v2/internallog"
)

// ImpersonatedServiceAccountCredential mints tokens for a service account on
// behalf of the refresh token principal held in "source_credentials".
type ImpersonatedServiceAccountCredential struct {
	source *RefreshTokenCredential

	impersonationURL string
	delegates        []string
	scopes           []string
	client           *http.Client
	logger           *slog.Logger
	implicit         bool
}

// NewImpersonatedServiceAccount parses and validates the
// impersonated_service_account file described by src. The nested
// "source_credentials" must carry client_id, client_secret, refresh_token and
// type.
func NewImpersonatedServiceAccount(src Source, opts *Options) (*ImpersonatedServiceAccountCredential, error) {
	return newImpersonated(src, opts, false)
}

func newImpersonated(src Source, opts *Options, implicit bool) (*ImpersonatedServiceAccountCredential, error) {
	b, err := src.read()
	if err != nil {
		return nil, errorutils.Wrap(errorutils.InvalidCredential, err, "Failed to parse impersonated service account file: %v", err)
	}
	f, err := credsfile.ParseImpersonatedServiceAccount(b)
	if err != nil {
		return nil, errorutils.Wrap(errorutils.InvalidCredential, err, "Failed to parse impersonated service account file: %v", err)
	}
	if len(f.CredSource) == 0 || string(f.CredSource) == "null" {
		return nil, errorutils.New(errorutils.InvalidCredential, `Impersonated Service Account must contain a "source_credentials" property.`)
	}
	sf, err := credsfile.ParseUserCredentials(f.CredSource)
	if err != nil {
		return nil, errorutils.Wrap(errorutils.InvalidCredential, err, "Failed to parse impersonated service account file: %v", err)
	}
	info, err := refreshTokenInfo(sf, `Impersonated Service Account must contain a "source_credentials.%s" property.`)
	if err != nil {
		return nil, err
	}
	c := &ImpersonatedServiceAccountCredential{
		source:           newRefreshTokenFromInfo(info, opts, implicit),
		impersonationURL: f.ServiceAccountImpersonationURL,
		scopes:           opts.scopes(),
		client:           opts.client(),
		logger:           opts.logger(),
		implicit:         implicit,
	}
	for _, v := range f.Delegates {
		c.delegates = append(c.delegates, formatIAMServiceAccountName(v))
	}
	return c, nil
}

// Kind implements [Classified].
func (c *ImpersonatedServiceAccountCredential) Kind() Kind { return Impersonated }

// Implicit implements [Classified].
func (c *ImpersonatedServiceAccountCredential) Implicit() bool { return c.implicit }

// AccessToken implements [Credential]. Without an impersonation URL the token
// of the source principal is returned as is.
func (c *ImpersonatedServiceAccountCredential) AccessToken(ctx context.Context) (*OAuthToken, error) {
	src, err := c.source.AccessToken(ctx)
	if err != nil {
		return nil, err
	}
	if c.impersonationURL == "" {
		return src, nil
	}
	tok, err := c.generateAccessToken(ctx, src.AccessToken)
	if err != nil {
		return nil, errorutils.Wrap(errorutils.InvalidCredential, err, invalidCredMessage, err.Error())
	}
	return tok, nil
}

func formatIAMServiceAccountName(name string) string {
	return fmt.Sprintf("projects/-/serviceAccounts/%s", name)
}

type generateAccessTokenRequest struct {
	Delegates []string `json:"delegates,omitempty"`
	Lifetime  string   `json:"lifetime,omitempty"`
	Scope     []string `json:"scope,omitempty"`
}

type generateAccessTokenResponse struct {
	AccessToken string `json:"accessToken"`
	ExpireTime  string `json:"expireTime"`
}

func (c *ImpersonatedServiceAccountCredential) generateAccessToken(ctx context.Context, sourceToken string) (*OAuthToken, error) {
	b, err := json.Marshal(generateAccessTokenRequest{
		Delegates: c.delegates,
		Lifetime:  fmt.Sprintf("%ds", oneHourInSeconds),
		Scope:     c.scopes,
	})
	if err != nil {
		return nil, fmt.Errorf("impersonate: unable to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.impersonationURL, bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("impersonate: unable to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", internal.TokenTypeBearer+" "+sourceToken)
	c.logger.DebugContext(ctx, "impersonated token request", "request", internallog.HTTPRequest(req, b))

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("impersonate: unable to generate access token: %w", err)
	}
	defer resp.Body.Close()
	body, err := internal.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("impersonate: unable to read body: %w", err)
	}
	c.logger.DebugContext(ctx, "impersonated token response", "response", internallog.HTTPResponse(resp, body))
	if sc := resp.StatusCode; sc < 200 || sc > 299 {
		return nil, fmt.Errorf("impersonate: status code %d: %s", sc, body)
	}

	var res generateAccessTokenResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("impersonate: unable to parse response: %w", err)
	}
	if res.AccessToken == "" {
		return nil, fmt.Errorf("impersonate: unexpected response: %s", body)
	}
	expiry, err := time.Parse(time.RFC3339, res.ExpireTime)
	if err != nil {
		return nil, fmt.Errorf("impersonate: unable to parse expiry: %w", err)
	}
	return &OAuthToken{
		AccessToken: res.AccessToken,
		ExpiresIn:   int64(expiry.Sub(timeNow()) / time.Second),
	}, nil
}
