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
	"os"

	"firebase.google.com/admin/errorutils"
	"firebase.google.com/admin/internal/credsfile"
)

// credentialFromFile reads filename and builds the implicit credential that
// matches its "type" field.
func credentialFromFile(filename string, opts *Options) (Credential, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, errorutils.Wrap(errorutils.InvalidCredential, err,
			"Failed to read credentials from file %s: %v", filename, err)
	}
	return credentialFromJSON(b, opts)
}

func credentialFromJSON(b []byte, opts *Options) (Credential, error) {
	fileType, err := credsfile.ParseFileType(b)
	if err != nil {
		return nil, errorutils.Wrap(errorutils.InvalidCredential, err,
			"Failed to parse contents of the credentials file as an object: %v", err)
	}
	src := FromJSON(b)
	var (
		cred Credential
		cerr error
	)
	switch fileType {
	case credsfile.ServiceAccountKey:
		cred, cerr = newServiceAccount(src, opts, true)
	case credsfile.UserCredentialsKey:
		cred, cerr = newRefreshToken(src, opts, true)
	case credsfile.ImpersonatedServiceAccountKey:
		cred, cerr = newImpersonated(src, opts, true)
	default:
		return nil, errorutils.New(errorutils.InvalidCredential, "Invalid contents in the credentials file")
	}
	if cerr != nil {
		// Keep the interface nil rather than wrapping a nil pointer.
		return nil, cerr
	}
	return cred, nil
}
