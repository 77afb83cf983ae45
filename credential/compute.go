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
	"net/url"
	"strings"
	"sync"

	"cloud.google.com/go/compute/metadata"
	"firebase.google.com/admin/errorutils"
)

const (
	computeTokenURI     = "instance/service-accounts/default/token"
	computeIdentityURI  = "instance/service-accounts/default/identity"
	computeProjectIDURI = "project/project-id"
)

// ComputeCredential fetches tokens for the default service account of the
// instance from the metadata service. Whether a metadata service is reachable
// is only known on the first request.
type ComputeCredential struct {
	client   *metadata.Client
	logger   *slog.Logger
	implicit bool

	mu        sync.Mutex
	projectID string
}

// NewCompute returns a credential backed by the instance metadata service.
// The metadata host can be overridden with the GCE_METADATA_HOST environment
// variable.
func NewCompute(opts *Options) *ComputeCredential {
	return newCompute(opts, false)
}

func newCompute(opts *Options, implicit bool) *ComputeCredential {
	var c *metadata.Client
	if opts != nil && opts.Client != nil {
		c = metadata.NewClient(opts.Client)
	} else {
		c = metadata.NewClient(nil)
	}
	return &ComputeCredential{
		client:   c,
		logger:   opts.logger(),
		implicit: implicit,
	}
}

// Kind implements [Classified].
func (c *ComputeCredential) Kind() Kind { return Compute }

// Implicit implements [Classified].
func (c *ComputeCredential) Implicit() bool { return c.implicit }

// AccessToken implements [Credential].
func (c *ComputeCredential) AccessToken(ctx context.Context) (*OAuthToken, error) {
	tokenJSON, err := c.client.GetWithContext(ctx, computeTokenURI)
	if err != nil {
		c.logger.DebugContext(ctx, "metadata token request failed", "error", err)
		return nil, errorutils.Wrap(errorutils.InvalidCredential, err, invalidCredMessage, err.Error())
	}
	return parseAccessToken([]byte(tokenJSON))
}

// ProjectID returns the project of the instance. The first successful lookup
// is memoized.
func (c *ComputeCredential) ProjectID(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.projectID != "" {
		return c.projectID, nil
	}
	id, err := c.client.GetWithContext(ctx, computeProjectIDURI)
	if err != nil {
		return "", errorutils.Wrap(errorutils.InvalidCredential, err, "Failed to determine project ID: %v", err)
	}
	c.projectID = strings.TrimSpace(id)
	return c.projectID, nil
}

// IDToken returns an identity token for the default service account with the
// given audience.
func (c *ComputeCredential) IDToken(ctx context.Context, audience string) (string, error) {
	v := url.Values{}
	v.Set("audience", audience)
	tok, err := c.client.GetWithContext(ctx, computeIdentityURI+"?"+v.Encode())
	if err != nil {
		return "", errorutils.Wrap(errorutils.InvalidCredential, err, "Failed to determine ID token: %v", err)
	}
	return tok, nil
}
