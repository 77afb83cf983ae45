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
	"sync"

	"firebase.google.com/admin/errorutils"
	"golang.org/x/sync/singleflight"
)

const applicationDefaultKey = "adc:"

// Cache hands out one credential instance per distinct source so that apps
// built from the same key material share a credential. Failed constructions
// are not cached. The zero value is not usable; call [NewCache].
type Cache struct {
	opts *Options

	mu    sync.Mutex
	creds map[string]Credential
	group singleflight.Group
}

// NewCache returns an empty cache whose credentials are built with opts.
func NewCache(opts *Options) *Cache {
	return &Cache{
		opts:  opts,
		creds: make(map[string]Credential),
	}
}

// Cert returns the service account credential for src, constructing it on
// first use.
func (c *Cache) Cert(src Source) (*ServiceAccountCredential, error) {
	cred, err := c.load("cert:", src, func() (Credential, error) {
		sa, err := NewServiceAccount(src, c.opts)
		if err != nil {
			return nil, err
		}
		return sa, nil
	})
	if err != nil {
		return nil, err
	}
	return cred.(*ServiceAccountCredential), nil
}

// RefreshToken returns the refresh token credential for src, constructing it
// on first use.
func (c *Cache) RefreshToken(src Source) (*RefreshTokenCredential, error) {
	cred, err := c.load("refresh:", src, func() (Credential, error) {
		rt, err := NewRefreshToken(src, c.opts)
		if err != nil {
			return nil, err
		}
		return rt, nil
	})
	if err != nil {
		return nil, err
	}
	return cred.(*RefreshTokenCredential), nil
}

// ApplicationDefault returns the process-wide application default
// credential, running discovery on first use.
func (c *Cache) ApplicationDefault() (*ApplicationDefaultCredential, error) {
	cred, err := c.get(applicationDefaultKey, func() (Credential, error) {
		adc, err := NewApplicationDefault(c.opts)
		if err != nil {
			return nil, err
		}
		return adc, nil
	})
	if err != nil {
		return nil, err
	}
	return cred.(*ApplicationDefaultCredential), nil
}

// ResolveDefault returns the credential [ResolveDefault] would pick from the
// environment. Credentials are shared per resolved source: the same
// GOOGLE_APPLICATION_CREDENTIALS path, the same gcloud file or the metadata
// server.
func (c *Cache) ResolveDefault() (Credential, error) {
	src, err := findDefault(c.opts)
	if err != nil {
		return nil, err
	}
	return c.get(src.key, src.build)
}

// Reset forgets every cached credential.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.creds = make(map[string]Credential)
}

// Len reports the number of cached credentials.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.creds)
}

func (c *Cache) load(prefix string, src Source, build func() (Credential, error)) (Credential, error) {
	key, err := src.Key()
	if err != nil {
		return nil, errorutils.Wrap(errorutils.InvalidCredential, err, "Failed to read credential source: %v", err)
	}
	return c.get(prefix+key, build)
}

func (c *Cache) get(key string, build func() (Credential, error)) (Credential, error) {
	c.mu.Lock()
	if cred, ok := c.creds[key]; ok {
		c.mu.Unlock()
		return cred, nil
	}
	c.mu.Unlock()

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		c.mu.Lock()
		if cred, ok := c.creds[key]; ok {
			c.mu.Unlock()
			return cred, nil
		}
		c.mu.Unlock()

		cred, err := build()
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.creds[key] = cred
		c.mu.Unlock()
		return cred, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Credential), nil
}
