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

// Package transport adapts a [token.Manager] to the authorization hooks of
// net/http, golang.org/x/oauth2, gRPC and the Google API client options.
package transport

import (
	"context"
	"errors"
	"net/http"

	"firebase.google.com/admin/internal"
	"firebase.google.com/admin/token"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"
	"google.golang.org/grpc/credentials"
)

// NewHTTPClient returns a client whose requests carry a bearer token from m.
// The transport of base is used to send requests; a nil base uses
// [internal.DefaultTransport]. base itself is not modified.
func NewHTTPClient(base *http.Client, m *token.Manager) (*http.Client, error) {
	if m == nil {
		return nil, errors.New("transport: token manager must not be nil")
	}
	c := &http.Client{}
	var rt http.RoundTripper
	if base != nil {
		*c = *base
		rt = base.Transport
	}
	if rt == nil {
		rt = internal.DefaultTransport()
	}
	c.Transport = &authTransport{manager: m, base: &internal.UserAgentTransport{Base: rt}}
	return c, nil
}

type authTransport struct {
	manager *token.Manager
	base    http.RoundTripper
}

// RoundTrip authorizes the request with the current access token. Per the
// RoundTripper contract the initial request is not modified and its body is
// closed on any error before it is handed to the base transport.
func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	reqBodyClosed := false
	if req.Body != nil {
		defer func() {
			if !reqBodyClosed {
				req.Body.Close()
			}
		}()
	}
	tok, err := t.manager.Token(req.Context(), false)
	if err != nil {
		return nil, err
	}
	req2 := req.Clone(req.Context())
	req2.Header.Set("Authorization", internal.TokenTypeBearer+" "+tok.Value)
	reqBodyClosed = true
	return t.base.RoundTrip(req2)
}

// TokenSource returns an [oauth2.TokenSource] backed by m. Token calls share
// m's cache.
func TokenSource(m *token.Manager) oauth2.TokenSource {
	return tokenSource{manager: m}
}

type tokenSource struct {
	manager *token.Manager
}

func (ts tokenSource) Token() (*oauth2.Token, error) {
	tok, err := ts.manager.Token(context.Background(), false)
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{
		AccessToken: tok.Value,
		TokenType:   internal.TokenTypeBearer,
		Expiry:      tok.ExpirationTime,
	}, nil
}

// PerRPCCredentials returns gRPC call credentials that attach a bearer token
// from m to every RPC. They require a secure transport.
func PerRPCCredentials(m *token.Manager) credentials.PerRPCCredentials {
	return perRPCCredentials{manager: m}
}

type perRPCCredentials struct {
	manager *token.Manager
}

func (c perRPCCredentials) GetRequestMetadata(ctx context.Context, uri ...string) (map[string]string, error) {
	tok, err := c.manager.Token(ctx, false)
	if err != nil {
		return nil, err
	}
	return map[string]string{"authorization": internal.TokenTypeBearer + " " + tok.Value}, nil
}

func (c perRPCCredentials) RequireTransportSecurity() bool {
	return true
}

// ClientOptions returns the options that make a Google API client
// authenticate with tokens from m.
func ClientOptions(m *token.Manager) []option.ClientOption {
	return []option.ClientOption{
		option.WithTokenSource(TokenSource(m)),
		option.WithUserAgent(internal.UserAgent),
	}
}
