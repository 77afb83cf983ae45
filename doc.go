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

/*
Package admin manages the lifecycle of Firebase apps: named bundles of
configuration, a credential and a cached access token that Firebase and
Google Cloud services are built from.

Apps live in a [Registry]:

	reg := admin.NewRegistry(nil)
	app, err := reg.InitializeApp(ctx, &admin.Options{
		Credential: cred,
		ProjectID:  "my-project",
	})
	if err != nil {
		// TODO: Handle error.
	}
	defer reg.DeleteApp(ctx, app)

When the options do not name a credential, one is resolved from the
environment:

  - the file named by GOOGLE_APPLICATION_CREDENTIALS,
  - the gcloud application default credentials file,
  - the instance metadata service.

Passing nil options additionally reads the app options from the
FIREBASE_CONFIG environment variable.

Errors returned by this module are *[errorutils.Error] values and can be
classified with the helpers of package errorutils.
*/
package admin // import "firebase.google.com/admin"
