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
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"firebase.google.com/admin/errorutils"
	"firebase.google.com/admin/internal"
	"github.com/googleapis/gax-go/v2/internallog"
)

const (
	// googleTokenAudience is both the "aud" of service account assertions and
	// the endpoint they are exchanged at.
	googleTokenAudience = "https://accounts.google.com/o/oauth2/token"
	// googleRefreshTokenURL is the endpoint refresh tokens are exchanged at.
	googleRefreshTokenURL = "https://www.googleapis.com/oauth2/v4/token"

	jwtGrantType       = "urn:ietf:params:oauth:grant-type:jwt-bearer"
	oneHourInSeconds   = 3600
	formContentType    = "application/x-www-form-urlencoded"
	invalidCredMessage = "Error fetching access token: %s"
)

var (
	// defaultScopes are requested by every credential that mints tokens from
	// secret material.
	defaultScopes = []string{
		"https://www.googleapis.com/auth/cloud-platform",
		"https://www.googleapis.com/auth/firebase.database",
		"https://www.googleapis.com/auth/firebase.messaging",
		"https://www.googleapis.com/auth/identitytoolkit",
		"https://www.googleapis.com/auth/userinfo.email",
	}

	// for testing
	timeNow = time.Now
)

// Credential is anything that can mint a short-lived OAuth2 access token.
// Implementations must be safe for concurrent use and must pass ctx along to
// any requests they make.
type Credential interface {
	AccessToken(ctx context.Context) (*OAuthToken, error)
}

// OAuthToken is the result of a token exchange. ExpiresIn is the remaining
// lifetime of AccessToken in seconds.
type OAuthToken struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Kind identifies which trust source a [Credential] uses.
type Kind int

const (
	// UnknownKind is reported for credentials implemented outside of this
	// package.
	UnknownKind Kind = iota
	// ServiceAccount exchanges a signed JWT for a token.
	ServiceAccount
	// RefreshToken exchanges an OAuth2 refresh token for a token.
	RefreshToken
	// Compute fetches tokens from the instance metadata service.
	Compute
	// Impersonated exchanges source credentials on behalf of another
	// principal.
	Impersonated
	// ApplicationDefault delegates to the client library's own discovery.
	ApplicationDefault
)

func (k Kind) String() string {
	switch k {
	case ServiceAccount:
		return "service_account"
	case RefreshToken:
		return "authorized_user"
	case Compute:
		return "compute_engine"
	case Impersonated:
		return "impersonated_service_account"
	case ApplicationDefault:
		return "application_default"
	default:
		return "unknown"
	}
}

// Classified is implemented by the credentials of this package. Implicit
// reports whether the credential was discovered from the environment rather
// than supplied by the caller.
type Classified interface {
	Kind() Kind
	Implicit() bool
}

// KindOf returns the [Kind] of c, or UnknownKind if c does not implement
// [Classified].
func KindOf(c Credential) Kind {
	if cl, ok := c.(Classified); ok {
		return cl.Kind()
	}
	return UnknownKind
}

// IsApplicationDefault reports whether c came from application default
// credential discovery.
func IsApplicationDefault(c Credential) bool {
	cl, ok := c.(Classified)
	if !ok {
		return false
	}
	switch cl.Kind() {
	case Compute, ApplicationDefault:
		return true
	default:
		return cl.Implicit()
	}
}

// Options configures how credentials reach their token endpoints. A nil
// *Options is valid and yields the defaults.
type Options struct {
	// Client is used for token exchanges. Optional.
	Client *http.Client
	// TokenURL overrides the endpoint service account assertions are sent
	// to. Optional.
	TokenURL string
	// RefreshTokenURL overrides the endpoint refresh tokens are exchanged at.
	// Optional.
	RefreshTokenURL string
	// Scopes overrides the scopes requested for minted tokens. Optional.
	Scopes []string
	// Logger is used for debug logging of token exchanges. If not provided
	// the logger is configured from the environment. Optional.
	Logger *slog.Logger
}

func (o *Options) client() *http.Client {
	if o != nil && o.Client != nil {
		return o.Client
	}
	return internal.DefaultClient()
}

func (o *Options) scopes() []string {
	src := defaultScopes
	if o != nil && len(o.Scopes) > 0 {
		src = o.Scopes
	}
	scopes := make([]string, len(src))
	copy(scopes, src)
	return scopes
}

func (o *Options) refreshTokenURL() string {
	if o != nil && o.RefreshTokenURL != "" {
		return o.RefreshTokenURL
	}
	return googleRefreshTokenURL
}

func (o *Options) logger() *slog.Logger {
	if o == nil {
		return internallog.New(nil)
	}
	return internallog.New(o.Logger)
}

// ResponseError is a non-2xx answer from a token endpoint. The body has
// already been consumed.
type ResponseError struct {
	Response *http.Response
	Body     []byte
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("credential: cannot fetch token: %v\nResponse: %s", e.Response.StatusCode, e.Body)
}

// Temporary returns true if the error is considered temporary and may be able
// to be retried.
func (e *ResponseError) Temporary() bool {
	if e.Response == nil {
		return false
	}
	sc := e.Response.StatusCode
	return sc == 500 || sc == 503 || sc == 408 || sc == 429
}

// detail renders the OAuth2 error body as "error (error_description)",
// falling back to the raw text.
func (e *ResponseError) detail() string {
	var res struct {
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	if err := json.Unmarshal(e.Body, &res); err == nil && res.Error != "" {
		d := res.Error
		if res.ErrorDescription != "" {
			d += " (" + res.ErrorDescription + ")"
		}
		return d
	}
	if len(e.Body) > 0 {
		return string(e.Body)
	}
	return "Missing error payload"
}

// requestAccessToken sends req and decodes the token endpoint response. All
// failures are reported as InvalidCredential errors.
func requestAccessToken(ctx context.Context, client *http.Client, req *http.Request, logger *slog.Logger) (*OAuthToken, error) {
	req = req.WithContext(ctx)
	logger.DebugContext(ctx, "access token request", "request", internallog.HTTPRequest(req, nil))
	resp, err := client.Do(req)
	if err != nil {
		return nil, errorutils.Wrap(errorutils.InvalidCredential, err, invalidCredMessage, err.Error())
	}
	defer resp.Body.Close()
	body, err := internal.ReadAll(resp.Body)
	if err != nil {
		return nil, errorutils.Wrap(errorutils.InvalidCredential, err, invalidCredMessage, err.Error())
	}
	logger.DebugContext(ctx, "access token response", "response", internallog.HTTPResponse(resp, body))
	if c := resp.StatusCode; c < 200 || c > 299 {
		re := &ResponseError{Response: resp, Body: body}
		return nil, errorutils.Wrap(errorutils.InvalidCredential, re, invalidCredMessage, re.detail())
	}
	return parseAccessToken(body)
}

// parseAccessToken decodes a {"access_token", "expires_in"} document. Both
// fields must be present and non-zero.
func parseAccessToken(body []byte) (*OAuthToken, error) {
	var res struct {
		AccessToken *string      `json:"access_token"`
		ExpiresIn   *json.Number `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, errorutils.Wrap(errorutils.InvalidCredential, err, invalidCredMessage, "invalid JSON response: "+err.Error())
	}
	if res.AccessToken == nil || *res.AccessToken == "" || res.ExpiresIn == nil {
		return nil, errorutils.New(errorutils.InvalidCredential,
			"Unexpected response while fetching access token: %s", strings.TrimSpace(string(body)))
	}
	secs, err := res.ExpiresIn.Int64()
	if err != nil {
		f, ferr := res.ExpiresIn.Float64()
		if ferr != nil {
			return nil, errorutils.Wrap(errorutils.InvalidCredential, ferr,
				"Unexpected response while fetching access token: %s", strings.TrimSpace(string(body)))
		}
		secs = int64(f)
	}
	if secs == 0 {
		return nil, errorutils.New(errorutils.InvalidCredential,
			"Unexpected response while fetching access token: %s", strings.TrimSpace(string(body)))
	}
	return &OAuthToken{AccessToken: *res.AccessToken, ExpiresIn: secs}, nil
}
