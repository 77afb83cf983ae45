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

// Package credsfile is meant to hide implementation details from the pubic
// surface of the credential package. It contains the credential file shapes
// and the well-known locations they are discovered from.
package credsfile

import (
	"os"
	"os/user"
	"path/filepath"
	"runtime"
)

const (
	// GoogleAppCredsEnvVar is the environment variable for setting the
	// application default credentials.
	GoogleAppCredsEnvVar = "GOOGLE_APPLICATION_CREDENTIALS"
	userCredsFilename    = "application_default_credentials.json"
)

// GetFileNameFromEnv returns the override if provided or detects a filename
// from the environment.
func GetFileNameFromEnv(override string) string {
	if override != "" {
		return override
	}
	return os.Getenv(GoogleAppCredsEnvVar)
}

// GetWellKnownFileName tries to locate the filepath for the user credential
// file based on the environment. It returns an empty string when no config
// directory can be determined.
func GetWellKnownFileName() string {
	if runtime.GOOS == "windows" {
		dir := os.Getenv("APPDATA")
		if dir == "" {
			return ""
		}
		return filepath.Join(dir, "gcloud", userCredsFilename)
	}
	home := guessUnixHomeDir()
	if home == "" {
		return ""
	}
	return filepath.Join(home, ".config", "gcloud", userCredsFilename)
}

// guessUnixHomeDir default to checking for HOME, but not all unix systems have
// this set, do have a fallback.
func guessUnixHomeDir() string {
	if v := os.Getenv("HOME"); v != "" {
		return v
	}
	if u, err := user.Current(); err == nil {
		return u.HomeDir
	}
	return ""
}
