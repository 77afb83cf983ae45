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

package internal

import "net/http"

// Version is the version of the admin module.
const Version = "0.1.0"

// UserAgent identifies requests sent on behalf of an app.
const UserAgent = "firebase-admin-go/" + Version

// UserAgentTransport is an http.RoundTripper that appends [UserAgent] to
// the User-Agent header of each request.
type UserAgentTransport struct {
	// Base is the transport requests are delegated to.
	Base http.RoundTripper
}

// RoundTrip implements [http.RoundTripper]. The initial request is not
// modified.
func (t *UserAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req2 := req.Clone(req.Context())
	ua := req2.Header.Get("User-Agent")
	if ua == "" {
		ua = UserAgent
	} else {
		ua = ua + " " + UserAgent
	}
	req2.Header.Set("User-Agent", ua)
	return t.Base.RoundTrip(req2)
}
