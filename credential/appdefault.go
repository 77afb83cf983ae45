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
	"sync"
	"time"

	"cloud.google.com/go/auth"
	"cloud.google.com/go/auth/credentials"
	"firebase.google.com/admin/errorutils"
)

// ApplicationDefaultCredential wraps the application default credentials
// discovered by [credentials.DetectDefault].
type ApplicationDefaultCredential struct {
	creds *auth.Credentials
	// compute is set when discovery fell through to the metadata server.
	compute *ComputeCredential

	mu        sync.Mutex
	projectID string
}

// NewApplicationDefault runs application default credential discovery.
// Failing discovery is reported as an InvalidCredential error.
func NewApplicationDefault(opts *Options) (*ApplicationDefaultCredential, error) {
	do := &credentials.DetectOptions{
		Scopes: opts.scopes(),
	}
	if opts != nil {
		do.Client = opts.Client
		do.Logger = opts.Logger
	}
	creds, err := credentials.DetectDefault(do)
	if err != nil {
		return nil, errorutils.Wrap(errorutils.InvalidCredential, err,
			"Failed to determine application default credentials: %v", err)
	}
	return newApplicationDefault(creds, opts), nil
}

func newApplicationDefault(creds *auth.Credentials, opts *Options) *ApplicationDefaultCredential {
	c := &ApplicationDefaultCredential{creds: creds}
	// Only metadata server credentials are detected without a JSON file.
	if creds.JSON() == nil {
		c.compute = newCompute(opts, true)
	}
	return c
}

// Kind implements [Classified].
func (c *ApplicationDefaultCredential) Kind() Kind { return ApplicationDefault }

// Implicit implements [Classified].
func (c *ApplicationDefaultCredential) Implicit() bool { return true }

// AccessToken implements [Credential]. Tokens without an expiry are reported
// with a one hour lifetime.
func (c *ApplicationDefaultCredential) AccessToken(ctx context.Context) (*OAuthToken, error) {
	tok, err := c.creds.Token(ctx)
	if err != nil {
		return nil, errorutils.Wrap(errorutils.InvalidCredential, err, invalidCredMessage, err.Error())
	}
	expiresIn := int64(oneHourInSeconds)
	if !tok.Expiry.IsZero() {
		expiresIn = int64(tok.Expiry.Sub(timeNow()) / time.Second)
	}
	return &OAuthToken{AccessToken: tok.Value, ExpiresIn: expiresIn}, nil
}

// ProjectID returns the project associated with the discovered credentials.
// The first successful lookup is memoized.
func (c *ApplicationDefaultCredential) ProjectID(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.projectID != "" {
		return c.projectID, nil
	}
	id, err := c.creds.ProjectID(ctx)
	if err != nil {
		return "", errorutils.Wrap(errorutils.InvalidCredential, err, "Failed to determine project ID: %v", err)
	}
	if id == "" {
		return "", errorutils.New(errorutils.InvalidCredential, "Failed to determine project ID: no project ID found in the application default credentials")
	}
	c.projectID = id
	return id, nil
}

// QuotaProjectID returns the quota project of the discovered credentials, if
// any.
func (c *ApplicationDefaultCredential) QuotaProjectID(ctx context.Context) (string, error) {
	id, err := c.creds.QuotaProjectID(ctx)
	if err != nil {
		return "", errorutils.Wrap(errorutils.InvalidCredential, err, "Failed to determine quota project ID: %v", err)
	}
	return id, nil
}

// IsComputeEngineCredential reports whether the discovered credentials come
// from the metadata server.
func (c *ApplicationDefaultCredential) IsComputeEngineCredential() bool {
	return c.compute != nil
}

// IDToken returns an identity token for audience. It is only available for
// metadata server credentials.
func (c *ApplicationDefaultCredential) IDToken(ctx context.Context, audience string) (string, error) {
	if c.compute == nil {
		return "", errorutils.New(errorutils.InvalidCredential, "Credential type should be Compute Engine Credential.")
	}
	return c.compute.IDToken(ctx, audience)
}
