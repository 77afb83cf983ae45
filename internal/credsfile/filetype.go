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

package credsfile

import (
	"encoding/json"
)

// CredentialType represents different credential filetypes Google credentials
// can be.
type CredentialType int

const (
	// UnknownCredType is an unidentified file type.
	UnknownCredType CredentialType = iota
	// UserCredentialsKey represents a user creds file type.
	UserCredentialsKey
	// ServiceAccountKey represents a service account file type.
	ServiceAccountKey
	// ImpersonatedServiceAccountKey represents a impersonated service account
	// file type.
	ImpersonatedServiceAccountKey
)

// ServiceAccountFile representation. Both snake_case and camelCase keys are
// accepted; camelCase wins when both are present.
type ServiceAccountFile struct {
	Type           string `json:"type"`
	ProjectID      string `json:"project_id"`
	PrivateKeyID   string `json:"private_key_id"`
	PrivateKey     string `json:"private_key"`
	ClientEmail    string `json:"client_email"`
	ClientID       string `json:"client_id"`
	TokenURL       string `json:"token_uri"`
	UniverseDomain string `json:"universe_domain"`
}

// UnmarshalJSON implements [json.Unmarshaler].
func (f *ServiceAccountFile) UnmarshalJSON(b []byte) error {
	type plain ServiceAccountFile
	var aux struct {
		plain
		ProjectIDCamel    string `json:"projectId"`
		PrivateKeyIDCamel string `json:"privateKeyId"`
		PrivateKeyCamel   string `json:"privateKey"`
		ClientEmailCamel  string `json:"clientEmail"`
		ClientIDCamel     string `json:"clientId"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*f = ServiceAccountFile(aux.plain)
	f.ProjectID = prefer(aux.ProjectIDCamel, f.ProjectID)
	f.PrivateKeyID = prefer(aux.PrivateKeyIDCamel, f.PrivateKeyID)
	f.PrivateKey = prefer(aux.PrivateKeyCamel, f.PrivateKey)
	f.ClientEmail = prefer(aux.ClientEmailCamel, f.ClientEmail)
	f.ClientID = prefer(aux.ClientIDCamel, f.ClientID)
	return nil
}

// UserCredentialsFile representation. Both snake_case and camelCase keys are
// accepted; camelCase wins when both are present.
type UserCredentialsFile struct {
	Type           string `json:"type"`
	ClientID       string `json:"client_id"`
	ClientSecret   string `json:"client_secret"`
	QuotaProjectID string `json:"quota_project_id"`
	RefreshToken   string `json:"refresh_token"`
}

// UnmarshalJSON implements [json.Unmarshaler].
func (f *UserCredentialsFile) UnmarshalJSON(b []byte) error {
	type plain UserCredentialsFile
	var aux struct {
		plain
		ClientIDCamel     string `json:"clientId"`
		ClientSecretCamel string `json:"clientSecret"`
		RefreshTokenCamel string `json:"refreshToken"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*f = UserCredentialsFile(aux.plain)
	f.ClientID = prefer(aux.ClientIDCamel, f.ClientID)
	f.ClientSecret = prefer(aux.ClientSecretCamel, f.ClientSecret)
	f.RefreshToken = prefer(aux.RefreshTokenCamel, f.RefreshToken)
	return nil
}

// ImpersonatedServiceAccountFile representation.
type ImpersonatedServiceAccountFile struct {
	Type                           string          `json:"type"`
	ServiceAccountImpersonationURL string          `json:"service_account_impersonation_url"`
	Delegates                      []string        `json:"delegates"`
	CredSource                     json.RawMessage `json:"source_credentials"`
	UniverseDomain                 string          `json:"universe_domain"`
}

func prefer(first, second string) string {
	if first != "" {
		return first
	}
	return second
}
