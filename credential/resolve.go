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
	"errors"
	"io/fs"
	"os"

	"firebase.google.com/admin/errorutils"
	"firebase.google.com/admin/internal/credsfile"
)

// ResolveDefault picks a credential from the environment when the caller
// did not supply one. The first match wins:
//
//  1. The file named by the GOOGLE_APPLICATION_CREDENTIALS environment
//     variable, dispatched on its "type" field.
//  2. The gcloud application_default_credentials.json file in the user's
//     configuration directory, read as a refresh token.
//  3. The instance metadata service.
//
// A credentials file that exists but cannot be used is a fatal
// InvalidCredential error. The metadata service is never probed here; an
// unreachable server surfaces on the first token request.
//
// Every credential returned by ResolveDefault reports Implicit() == true.
func ResolveDefault(opts *Options) (Credential, error) {
	src, err := findDefault(opts)
	if err != nil {
		return nil, err
	}
	return src.build()
}

// defaultSource is the credential source picked by the resolver. key
// identifies it in a [Cache].
type defaultSource struct {
	key   string
	build func() (Credential, error)
}

func findDefault(opts *Options) (*defaultSource, error) {
	logger := opts.logger()
	if filename := credsfile.GetFileNameFromEnv(""); filename != "" {
		logger.Debug("resolving credential from environment", "file", filename)
		return &defaultSource{
			key:   "default:env:" + filename,
			build: func() (Credential, error) { return credentialFromFile(filename, opts) },
		}, nil
	}

	if filename := credsfile.GetWellKnownFileName(); filename != "" {
		b, err := os.ReadFile(filename)
		switch {
		case err == nil:
			logger.Debug("resolving credential from gcloud configuration", "file", filename)
			return &defaultSource{
				key: "default:well-known:" + filename,
				build: func() (Credential, error) {
					c, err := newRefreshToken(FromJSON(b), opts, true)
					if err != nil {
						return nil, err
					}
					return c, nil
				},
			}, nil
		case !errors.Is(err, fs.ErrNotExist):
			return nil, errorutils.Wrap(errorutils.InvalidCredential, err,
				"Failed to read credentials from file %s: %v", filename, err)
		}
	}

	logger.Debug("resolving credential from the metadata service")
	return &defaultSource{
		key:   "default:compute:",
		build: func() (Credential, error) { return newCompute(opts, true), nil },
	}, nil
}
