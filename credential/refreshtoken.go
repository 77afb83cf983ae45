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
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"firebase.google.com/admin/errorutils"
	"firebase.google.com/admin/internal/credsfile"
)

// RefreshTokenInfo is the content of an authorized_user credentials file. It
// can be passed to [FromValue].
type RefreshTokenInfo struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	RefreshToken string `json:"refresh_token"`
	Type         string `json:"type"`
}

// RefreshTokenCredential mints tokens by exchanging an OAuth2 refresh token.
type RefreshTokenCredential struct {
	info     RefreshTokenInfo
	tokenURL string
	client   *http.Client
	logger   *slog.Logger
	implicit bool
}

// NewRefreshToken parses and validates the refresh token described by src.
// Validation failures are returned as InvalidCredential errors.
func NewRefreshToken(src Source, opts *Options) (*RefreshTokenCredential, error) {
	return newRefreshToken(src, opts, false)
}

func newRefreshToken(src Source, opts *Options, implicit bool) (*RefreshTokenCredential, error) {
	b, err := src.read()
	if err != nil {
		return nil, errorutils.Wrap(errorutils.InvalidCredential, err, "Failed to parse refresh token file: %v", err)
	}
	f, err := credsfile.ParseUserCredentials(b)
	if err != nil {
		return nil, errorutils.Wrap(errorutils.InvalidCredential, err, "Failed to parse refresh token file: %v", err)
	}
	info, err := refreshTokenInfo(f, "Refresh token must contain a %q property.")
	if err != nil {
		return nil, err
	}
	return newRefreshTokenFromInfo(info, opts, implicit), nil
}

func newRefreshTokenFromInfo(info RefreshTokenInfo, opts *Options, implicit bool) *RefreshTokenCredential {
	return &RefreshTokenCredential{
		info:     info,
		tokenURL: opts.refreshTokenURL(),
		client:   opts.client(),
		logger:   opts.logger(),
		implicit: implicit,
	}
}

// refreshTokenInfo checks that every field is present; msg receives the
// missing property name.
func refreshTokenInfo(f *credsfile.UserCredentialsFile, msg string) (RefreshTokenInfo, error) {
	info := RefreshTokenInfo{
		ClientID:     f.ClientID,
		ClientSecret: f.ClientSecret,
		RefreshToken: f.RefreshToken,
		Type:         f.Type,
	}
	for _, field := range []struct{ name, value string }{
		{"client_id", info.ClientID},
		{"client_secret", info.ClientSecret},
		{"refresh_token", info.RefreshToken},
		{"type", info.Type},
	} {
		if field.value == "" {
			return RefreshTokenInfo{}, errorutils.New(errorutils.InvalidCredential, msg, field.name)
		}
	}
	return info, nil
}

// ClientID returns the OAuth2 client the refresh token was issued to.
func (c *RefreshTokenCredential) ClientID() string { return c.info.ClientID }

// Kind implements [Classified].
func (c *RefreshTokenCredential) Kind() Kind { return RefreshToken }

// Implicit implements [Classified].
func (c *RefreshTokenCredential) Implicit() bool { return c.implicit }

// AccessToken implements [Credential].
func (c *RefreshTokenCredential) AccessToken(ctx context.Context) (*OAuthToken, error) {
	v := url.Values{}
	v.Set("client_id", c.info.ClientID)
	v.Set("client_secret", c.info.ClientSecret)
	v.Set("refresh_token", c.info.RefreshToken)
	v.Set("grant_type", "refresh_token")
	req, err := http.NewRequest(http.MethodPost, c.tokenURL, strings.NewReader(v.Encode()))
	if err != nil {
		return nil, errorutils.Wrap(errorutils.InvalidCredential, err, invalidCredMessage, err.Error())
	}
	req.Header.Set("Content-Type", formContentType)
	return requestAccessToken(ctx, c.client, req, c.logger)
}
