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

// Package credential mints Google OAuth2 access tokens for Firebase apps.
//
// Four credential types are supported:
//
//   - [ServiceAccountCredential] signs an RS256 assertion with a service
//     account key and exchanges it for a token.
//   - [RefreshTokenCredential] exchanges an OAuth2 refresh token, such as
//     the one written by `gcloud auth application-default login`.
//   - [ImpersonatedServiceAccountCredential] exchanges a refresh token and
//     then asks IAM for a token of another service account.
//   - [ComputeCredential] reads tokens from the instance metadata server.
//
// # Resolving from the environment
//
// [ResolveDefault] picks a credential without any configuration. It reads
// the file named by GOOGLE_APPLICATION_CREDENTIALS if that variable is set.
// Otherwise it reads the gcloud well-known file
// ($HOME/.config/gcloud/application_default_credentials.json, or
// %APPDATA%\gcloud\application_default_credentials.json on Windows). If
// that file does not exist it falls back to the metadata server. Failures
// to read or parse an existing file are reported rather than skipped.
//
// [NewApplicationDefault] instead delegates discovery to
// cloud.google.com/go/auth/credentials.
//
// # Sharing credentials
//
// A [Cache] hands out one credential per distinct source, so apps
// configured from the same key share the credential instance.
package credential
