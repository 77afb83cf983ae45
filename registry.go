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

package admin

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"firebase.google.com/admin/credential"
	"firebase.google.com/admin/errorutils"
	"firebase.google.com/admin/token"
	"github.com/googleapis/gax-go/v2/internallog"
	"github.com/hashicorp/go-multierror"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// DefaultAppName is the name of the app initialized without a name.
const DefaultAppName = "[DEFAULT]"

// RegistryOptions configures a [Registry]. A nil *RegistryOptions is valid.
type RegistryOptions struct {
	// Logger receives lifecycle events. If not provided the logger is
	// configured from the environment. Optional.
	Logger *slog.Logger
	// Credentials configures credentials resolved from the environment and
	// those handed out by [Registry.Credentials]. Optional.
	Credentials *credential.Options
	// TracerProvider is used by apps that do not set their own. Optional.
	TracerProvider oteltrace.TracerProvider
}

// Registry owns a set of uniquely named apps. It is safe for concurrent
// use.
type Registry struct {
	logger   *slog.Logger
	credOpts *credential.Options
	tp       oteltrace.TracerProvider
	creds    *credential.Cache

	mu   sync.Mutex
	apps map[string]*App
}

// NewRegistry returns an empty registry.
func NewRegistry(opts *RegistryOptions) *Registry {
	if opts == nil {
		opts = &RegistryOptions{}
	}
	return &Registry{
		logger:   internallog.New(opts.Logger),
		credOpts: opts.Credentials,
		tp:       opts.TracerProvider,
		creds:    credential.NewCache(opts.Credentials),
		apps:     make(map[string]*App),
	}
}

// InitializeApp creates the default app. If opts is nil the options are
// read from the FIREBASE_CONFIG environment variable and the credential is
// resolved from the environment.
func (r *Registry) InitializeApp(ctx context.Context, opts *Options) (*App, error) {
	return r.InitializeNamedApp(ctx, opts, DefaultAppName)
}

// InitializeNamedApp creates an app with the given name. It fails with a
// DuplicateApp error if an app with that name exists.
func (r *Registry) InitializeNamedApp(ctx context.Context, opts *Options, name string) (*App, error) {
	if name == "" {
		return nil, invalidAppName(name)
	}
	if err := r.checkAvailable(name); err != nil {
		return nil, err
	}

	var (
		o   *Options
		err error
	)
	if opts == nil {
		if o, err = optionsFromEnv(); err != nil {
			return nil, err
		}
	} else if o, err = opts.clone(); err != nil {
		return nil, errorutils.Wrap(errorutils.InvalidAppOptions, err,
			"Invalid Firebase app options passed as the first argument to InitializeApp() for the app named %q: %v", name, err)
	}

	switch {
	case o.Credential == nil:
		if o.Credential, err = r.resolveDefault(o); err != nil {
			return nil, err
		}
	case isNilCredential(o.Credential):
		return nil, errorutils.New(errorutils.InvalidAppOptions,
			"Invalid Firebase app options passed as the first argument to InitializeApp() for the app named %q. "+
				"The \"credential\" property must be an object which implements the Credential interface.", name)
	}

	app := r.newApp(name, o)

	r.mu.Lock()
	defer r.mu.Unlock()
	// Another InitializeNamedApp may have registered the name since
	// checkAvailable. The loser discards its options, credential and manager.
	if _, ok := r.apps[name]; ok {
		app.tokens.Close()
		return nil, duplicateApp(name)
	}
	r.apps[name] = app
	app.logger.DebugContext(ctx, "app initialized", "app", name, "credential", credential.KindOf(o.Credential).String())
	return app, nil
}

// App returns the live app with the given name.
func (r *Registry) App(name string) (*App, error) {
	if name == "" {
		return nil, invalidAppName(name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	app, ok := r.apps[name]
	if !ok {
		return nil, appNotFound(name)
	}
	return app, nil
}

// DefaultApp returns the app named [DefaultAppName].
func (r *Registry) DefaultApp() (*App, error) {
	return r.App(DefaultAppName)
}

// Apps returns the live apps ordered by name. The slice belongs to the
// caller.
func (r *Registry) Apps() []*App {
	r.mu.Lock()
	defer r.mu.Unlock()
	apps := make([]*App, 0, len(r.apps))
	for _, app := range r.apps {
		apps = append(apps, app)
	}
	sort.Slice(apps, func(i, j int) bool { return apps[i].name < apps[j].name })
	return apps
}

// DeleteApp deletes the app registered under the name of app.
func (r *Registry) DeleteApp(ctx context.Context, app *App) error {
	if app == nil {
		return errorutils.New(errorutils.InvalidArgument, "Invalid app argument.")
	}
	existing, err := r.App(app.name)
	if err != nil {
		return err
	}
	return existing.Delete(ctx)
}

// Credentials returns the cache that shares credentials across apps of
// this registry.
func (r *Registry) Credentials() *credential.Cache {
	return r.creds
}

// Reset deletes every app and forgets every cached credential. Failures to
// tear down services are aggregated.
func (r *Registry) Reset(ctx context.Context) error {
	var result *multierror.Error
	for _, app := range r.Apps() {
		if err := app.Delete(ctx); err != nil && !errorutils.IsAppDeleted(err) {
			result = multierror.Append(result, fmt.Errorf("deleting app %q: %w", app.name, err))
		}
	}
	r.creds.Reset()
	return result.ErrorOrNil()
}

func (r *Registry) checkAvailable(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.apps[name]; ok {
		return duplicateApp(name)
	}
	return nil
}

// remove drops app from the registry if it is still registered.
func (r *Registry) remove(app *App) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.apps[app.name] == app {
		delete(r.apps, app.name)
	}
}

// resolveDefault shares default credentials through the registry cache.
// Apps with their own HTTP client get a credential of their own that uses
// it.
func (r *Registry) resolveDefault(o *Options) (credential.Credential, error) {
	if o.HTTPClient == nil {
		return r.creds.ResolveDefault()
	}
	return credential.ResolveDefault(r.credentialOptions(o))
}

func (r *Registry) credentialOptions(o *Options) *credential.Options {
	co := &credential.Options{}
	if r.credOpts != nil {
		*co = *r.credOpts
	}
	if co.Client == nil {
		co.Client = o.HTTPClient
	}
	if co.Logger == nil {
		co.Logger = o.Logger
	}
	return co
}

func (r *Registry) newApp(name string, o *Options) *App {
	logger := r.logger
	if o.Logger != nil {
		logger = o.Logger
	}
	tp := o.TracerProvider
	if tp == nil {
		tp = r.tp
	}
	return &App{
		name:     name,
		opts:     o,
		registry: r,
		logger:   logger,
		tokens: token.NewManager(o.Credential, &token.Options{
			Logger:           logger,
			TracerProvider:   tp,
			ProactiveRefresh: o.ProactiveRefresh,
		}),
		services: make(map[string]interface{}),
	}
}

func invalidAppName(name string) error {
	return errorutils.New(errorutils.InvalidArgument,
		"Invalid Firebase app name %q provided. App name must be a non-empty string.", name)
}

func duplicateApp(name string) error {
	if name == DefaultAppName {
		return errorutils.New(errorutils.DuplicateApp,
			"The default Firebase app already exists. This means you called InitializeApp() more than once "+
				"without providing an app name as the second argument. In most cases you only need to call "+
				"InitializeApp() once. But if you do want to initialize multiple apps, pass a second argument to "+
				"InitializeApp() to give each app a unique name.")
	}
	return errorutils.New(errorutils.DuplicateApp,
		"Firebase app named %q already exists. This means you called InitializeApp() more than once with the "+
			"same app name as the second argument. Make sure you provide a unique name every time you call "+
			"InitializeApp().", name)
}

func appNotFound(name string) error {
	msg := fmt.Sprintf("Firebase app named %q does not exist. ", name)
	if name == DefaultAppName {
		msg = "The default Firebase app does not exist. "
	}
	return errorutils.New(errorutils.AppNotFound,
		"%sMake sure you call InitializeApp() before using any of the Firebase services.", msg)
}
