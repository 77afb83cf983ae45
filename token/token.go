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

// Package token caches the access token of an app's credential, refreshes
// it when it is close to expiring and notifies listeners of new tokens.
package token

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"firebase.google.com/admin/credential"
	"firebase.google.com/admin/errorutils"
	"firebase.google.com/admin/internal"
	"firebase.google.com/admin/internal/trace"
	gax "github.com/googleapis/gax-go/v2"
	"github.com/googleapis/gax-go/v2/internallog"
	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

// ExpiryThreshold is how long before its expiration a cached token is
// treated as expired.
const ExpiryThreshold = 5 * time.Minute

const (
	refreshKey      = "refresh"
	refreshSpanName = "token.refresh"

	// proactiveRetries is the number of retries after a failed scheduled
	// refresh of a token that lives longer than ExpiryThreshold.
	proactiveRetries = 4
	retryInterval    = time.Minute

	invalidGrantHint = "There are two likely causes: (1) your server time is not properly synced or (2) your " +
		"certificate key file has been revoked. To solve (1), re-sync the time on your server. To solve (2), " +
		"make sure the key ID for your key file is still present at " +
		"https://console.firebase.google.com/iam-admin/serviceaccounts/project. If not, generate a new key file " +
		"at https://console.firebase.google.com/project/_/settings/serviceaccounts/adminsdk."
)

var (
	// for testing
	timeNow                    = time.Now
	sleep   internal.SleepFunc = gax.Sleep
)

// AccessToken is a cached OAuth2 access token.
type AccessToken struct {
	Value          string
	ExpirationTime time.Time
}

// ListenerID identifies a registered token listener.
type ListenerID uint64

// Options configures a [Manager]. A nil *Options is valid.
type Options struct {
	// Logger receives refresh failures and debug events. If not provided the
	// logger is configured from the environment. Optional.
	Logger *slog.Logger
	// TracerProvider creates the spans of token refreshes. If not provided
	// the global provider is used. Optional.
	TracerProvider oteltrace.TracerProvider
	// ProactiveRefresh refreshes the token in the background shortly before
	// it expires. Optional.
	ProactiveRefresh bool
}

type listener struct {
	id ListenerID
	fn func(string)
}

// Manager caches the token of one credential. It is safe for concurrent
// use. Concurrent refreshes share a single call to the credential.
type Manager struct {
	cred      credential.Credential
	logger    *slog.Logger
	tracer    oteltrace.Tracer
	proactive bool

	group singleflight.Group

	mu        sync.Mutex
	cached    *AccessToken
	listeners []listener
	nextID    ListenerID
	cancel    context.CancelFunc
	closed    bool
}

// NewManager returns a Manager that fetches tokens from cred.
func NewManager(cred credential.Credential, opts *Options) *Manager {
	if opts == nil {
		opts = &Options{}
	}
	return &Manager{
		cred:      cred,
		logger:    internallog.New(opts.Logger),
		tracer:    trace.Tracer(opts.TracerProvider),
		proactive: opts.ProactiveRefresh,
	}
}

// Token returns the cached token, refreshing it first if force is set, no
// token is cached or the cached token expires within [ExpiryThreshold].
// Failures are returned as InvalidCredential errors and leave the cached
// token untouched.
func (m *Manager) Token(ctx context.Context, force bool) (*AccessToken, error) {
	if !force {
		if tok := m.validToken(); tok != nil {
			return tok, nil
		}
	}
	ch := m.group.DoChan(refreshKey, func() (interface{}, error) {
		// A flight that finished just before this one may have stored a
		// fresh token already.
		if !force {
			if tok := m.validToken(); tok != nil {
				return &refreshed{tok: tok}, nil
			}
		}
		return m.refresh(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		// Listeners still hear about a token this flight stores.
		go func() {
			if res := <-ch; res.Err == nil {
				res.Val.(*refreshed).notifyListeners()
			}
		}()
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		r := res.Val.(*refreshed)
		r.notifyListeners()
		tok := *r.tok
		return &tok, nil
	}
}

// CachedToken returns the last token fetched, or nil. It may be expired.
func (m *Manager) CachedToken() *AccessToken {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cached == nil {
		return nil
	}
	tok := *m.cached
	return &tok
}

// AddAuthTokenListener registers fn to be called with every new token. If a
// token is cached fn is called with it before AddAuthTokenListener returns.
func (m *Manager) AddAuthTokenListener(fn func(string)) ListenerID {
	m.mu.Lock()
	m.nextID++
	id := m.nextID
	m.listeners = append(m.listeners, listener{id: id, fn: fn})
	var value string
	if m.cached != nil {
		value = m.cached.Value
	}
	m.mu.Unlock()

	if value != "" {
		fn(value)
	}
	return id
}

// RemoveAuthTokenListener unregisters the listener with the given id.
// Unknown ids are ignored.
func (m *Manager) RemoveAuthTokenListener(id ListenerID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, l := range m.listeners {
		if l.id == id {
			m.listeners = append(m.listeners[:i:i], m.listeners[i+1:]...)
			return
		}
	}
}

// Close stops proactive refreshes and drops every listener. Tokens can
// still be requested afterwards.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.listeners = nil
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
}

func (m *Manager) validToken() *AccessToken {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cached == nil || m.cached.ExpirationTime.Sub(timeNow()) <= ExpiryThreshold {
		return nil
	}
	tok := *m.cached
	return &tok
}

// refreshed is the outcome of a refresh flight. It is shared by every
// caller that joined the flight.
type refreshed struct {
	tok *AccessToken
	// notify is the listener snapshot to call if the token changed.
	notify  []listener
	claimed atomic.Bool
}

// notifyListeners calls the listeners of r once, on the first caller. It
// must run outside the singleflight group so listeners can call back into
// the manager.
func (r *refreshed) notifyListeners() {
	if len(r.notify) == 0 || !r.claimed.CompareAndSwap(false, true) {
		return
	}
	for _, l := range r.notify {
		l.fn(r.tok.Value)
	}
}

// refresh fetches a token and stores it. It must only run inside the
// singleflight group; listeners are notified by the caller.
func (m *Manager) refresh(ctx context.Context) (_ *refreshed, err error) {
	kind := credential.KindOf(m.cred)
	ctx = trace.StartSpan(ctx, m.tracer, refreshSpanName, attribute.String("credential.kind", kind.String()))
	defer func() { trace.EndSpan(ctx, err) }()

	res, err := m.cred.AccessToken(ctx)
	if err == nil {
		err = validate(res)
	}
	if err != nil {
		err = fetchError(err)
		m.logger.WarnContext(ctx, "access token refresh failed", "credential", kind.String(), "error", err)
		return nil, err
	}

	expiresIn := time.Duration(res.ExpiresIn) * time.Second
	tok := &AccessToken{
		Value:          res.AccessToken,
		ExpirationTime: timeNow().Add(expiresIn),
	}

	m.mu.Lock()
	changed := m.cached == nil || m.cached.Value != tok.Value || !m.cached.ExpirationTime.Equal(tok.ExpirationTime)
	m.cached = tok
	var notify []listener
	if changed {
		notify = make([]listener, len(m.listeners))
		copy(notify, m.listeners)
	}
	m.scheduleLocked(expiresIn)
	m.mu.Unlock()

	m.logger.DebugContext(ctx, "access token refreshed", "credential", kind.String(), "expiration", tok.ExpirationTime)
	return &refreshed{tok: tok, notify: notify}, nil
}

// validate rejects results that do not carry a usable token.
func validate(res *credential.OAuthToken) error {
	if res != nil && res.AccessToken != "" && res.ExpiresIn >= 0 {
		return nil
	}
	b, _ := json.Marshal(res)
	return errorutils.New(errorutils.InvalidCredential,
		"Invalid access token generated: \"%s\". Valid access tokens must be an object with the \"expires_in\" (number) and \"access_token\" (string) properties.",
		string(b))
}

func fetchError(err error) error {
	msg := err.Error()
	var fe *errorutils.Error
	if errors.As(err, &fe) {
		msg = fe.Message
	}
	detail := fmt.Sprintf("Credential implementation provided to InitializeApp() via the \"credential\" property "+
		"failed to fetch a valid Google OAuth2 access token with the following error: \"%s\".", msg)
	if strings.Contains(detail, "invalid_grant") {
		detail += " " + invalidGrantHint
	}
	return errorutils.Wrap(errorutils.InvalidCredential, err, "%s", detail)
}
