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
	"io"
	"log/slog"
	"net/http"
	"sort"
	"sync"

	"cloud.google.com/go/storage"
	"firebase.google.com/admin/credential"
	"firebase.google.com/admin/errorutils"
	"firebase.google.com/admin/internal"
	"firebase.google.com/admin/token"
	"firebase.google.com/admin/transport"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/singleflight"
	"google.golang.org/api/option"
)

const storageService = "storage"

// ServiceFactory builds the service handle stored under a name. Handles
// that implement Delete(context.Context) error or io.Closer are torn down
// when the app is deleted.
type ServiceFactory func(ctx context.Context, app *App) (interface{}, error)

// An App holds the configuration, credential and token cache shared by the
// services built for it. Every method fails with an AppDeleted error once
// the app has been deleted.
type App struct {
	name     string
	opts     *Options
	registry *Registry
	logger   *slog.Logger
	tokens   *token.Manager

	// svcMu guards services, which is nil once the app is deleted. It is
	// never held while a factory or teardown hook runs.
	svcMu    sync.Mutex
	services map[string]interface{}
	svcGroup singleflight.Group

	mu         sync.Mutex
	deleted    bool
	httpClient *http.Client
}

// Name returns the name the app was initialized with.
func (a *App) Name() (string, error) {
	if err := a.checkLive(); err != nil {
		return "", err
	}
	return a.name, nil
}

// Options returns a copy of the options the app was initialized with.
func (a *App) Options() (*Options, error) {
	if err := a.checkLive(); err != nil {
		return nil, err
	}
	return a.opts.clone()
}

// TokenManager returns the token cache of the app.
func (a *App) TokenManager() (*token.Manager, error) {
	if err := a.checkLive(); err != nil {
		return nil, err
	}
	return a.tokens, nil
}

// Service returns the handle stored under name, calling factory to build it
// on first use. Concurrent first calls share one factory call. Factories may
// request other services of the app. Failed constructions are not stored.
func (a *App) Service(ctx context.Context, name string, factory ServiceFactory) (interface{}, error) {
	if svc, ok, err := a.lookupService(name); err != nil || ok {
		return svc, err
	}
	svc, err, _ := a.svcGroup.Do(name, func() (interface{}, error) {
		if svc, ok, err := a.lookupService(name); err != nil || ok {
			return svc, err
		}
		svc, err := factory(ctx, a)
		if err != nil {
			return nil, err
		}

		a.svcMu.Lock()
		if a.services == nil {
			// Deleted while the factory ran.
			a.svcMu.Unlock()
			if err := deleteService(ctx, svc); err != nil {
				a.logger.WarnContext(ctx, "service failed to shut down", "app", a.name, "service", name, "error", err)
			}
			return nil, appDeleted(a.name)
		}
		a.services[name] = svc
		a.svcMu.Unlock()
		return svc, nil
	})
	return svc, err
}

func (a *App) lookupService(name string) (svc interface{}, ok bool, err error) {
	a.svcMu.Lock()
	defer a.svcMu.Unlock()
	if err := a.checkLive(); err != nil {
		return nil, false, err
	}
	svc, ok = a.services[name]
	return svc, ok, nil
}

// HTTPClient returns a client that authorizes requests with the app's
// access token.
func (a *App) HTTPClient() (*http.Client, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.deleted {
		return nil, appDeleted(a.name)
	}
	if a.httpClient == nil {
		c, err := transport.NewHTTPClient(a.opts.HTTPClient, a.tokens)
		if err != nil {
			return nil, err
		}
		a.httpClient = c
	}
	return a.httpClient, nil
}

// ClientOptions returns the options that authenticate Google API clients
// as this app.
func (a *App) ClientOptions() ([]option.ClientOption, error) {
	if err := a.checkLive(); err != nil {
		return nil, err
	}
	return transport.ClientOptions(a.tokens), nil
}

// Storage returns the Cloud Storage client of the app. The client is closed
// when the app is deleted.
func (a *App) Storage(ctx context.Context) (*storage.Client, error) {
	svc, err := a.Service(ctx, storageService, func(ctx context.Context, app *App) (interface{}, error) {
		opts, err := app.ClientOptions()
		if err != nil {
			return nil, err
		}
		return storage.NewClient(ctx, opts...)
	})
	if err != nil {
		return nil, err
	}
	return svc.(*storage.Client), nil
}

// projectIDer is implemented by credentials that discover their project.
type projectIDer interface {
	ProjectID(ctx context.Context) (string, error)
}

// ProjectID returns the project of the app. It is taken from the options,
// the service account key, the GOOGLE_CLOUD_PROJECT or GCLOUD_PROJECT
// environment variables, or the credential, in that order. An empty string
// means no project could be determined.
func (a *App) ProjectID(ctx context.Context) (string, error) {
	if err := a.checkLive(); err != nil {
		return "", err
	}
	if a.opts.ProjectID != "" {
		return a.opts.ProjectID, nil
	}
	if sa, ok := a.opts.Credential.(*credential.ServiceAccountCredential); ok {
		return sa.ProjectID(), nil
	}
	if id := internal.ProjectIDFromEnv(); id != "" {
		return id, nil
	}
	if p, ok := a.opts.Credential.(projectIDer); ok {
		return p.ProjectID(ctx)
	}
	return "", nil
}

// Delete removes the app from its registry and tears down its services.
// The app is unusable afterwards even if some services fail to shut down;
// their errors are aggregated. Teardown hooks run without any app lock held.
func (a *App) Delete(ctx context.Context) error {
	a.svcMu.Lock()
	a.mu.Lock()
	if a.deleted {
		a.mu.Unlock()
		a.svcMu.Unlock()
		return appDeleted(a.name)
	}
	a.deleted = true
	a.mu.Unlock()
	services := a.services
	a.services = nil
	a.svcMu.Unlock()

	a.registry.remove(a)
	a.tokens.Close()

	names := make([]string, 0, len(services))
	for name := range services {
		names = append(names, name)
	}
	sort.Strings(names)

	var result *multierror.Error
	for _, name := range names {
		if err := deleteService(ctx, services[name]); err != nil {
			result = multierror.Append(result, fmt.Errorf("deleting service %q: %w", name, err))
		}
	}
	a.logger.DebugContext(ctx, "app deleted", "app", a.name, "services", len(names))
	if err := result.ErrorOrNil(); err != nil {
		a.logger.WarnContext(ctx, "app services failed to shut down", "app", a.name, "error", err)
		return err
	}
	return nil
}

func deleteService(ctx context.Context, svc interface{}) error {
	switch s := svc.(type) {
	case interface{ Delete(context.Context) error }:
		return s.Delete(ctx)
	case io.Closer:
		return s.Close()
	}
	return nil
}

func (a *App) checkLive() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.deleted {
		return appDeleted(a.name)
	}
	return nil
}

func appDeleted(name string) error {
	return errorutils.New(errorutils.AppDeleted, "Firebase app named %q has already been deleted.", name)
}
