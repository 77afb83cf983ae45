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

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	admin "firebase.google.com/admin"
	"firebase.google.com/admin/credential"
	"firebase.google.com/admin/internal/credsfile"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const envPrefix = "FIREBASE_ADMIN"

type config struct {
	Credentials string
	ADC         bool
	Project     string
	Name        string
	Force       bool
	JSON        bool
	Verbose     bool
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	cmd := &cobra.Command{
		Use:   "apptoken",
		Short: "Print an OAuth2 access token for a Firebase app",
		Long: `apptoken initializes a Firebase app and prints the access token its
services would use. Without --credentials the credential is resolved from
GOOGLE_APPLICATION_CREDENTIALS, the gcloud well-known file or the metadata
server, in that order.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config{
				Credentials: v.GetString("credentials"),
				ADC:         v.GetBool("adc"),
				Project:     v.GetString("project"),
				Name:        v.GetString("name"),
				Force:       v.GetBool("force"),
				JSON:        v.GetBool("json"),
				Verbose:     v.GetBool("verbose"),
			}
			return run(cmd.Context(), cfg, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	flags := cmd.Flags()
	flags.StringP("credentials", "c", "", "Path to a service account, authorized user or impersonated service account JSON file")
	flags.Bool("adc", false, "Use application default credentials discovery instead of the built-in resolver")
	flags.StringP("project", "p", "", "Project ID of the app")
	flags.String("name", admin.DefaultAppName, "Name of the app")
	flags.BoolP("force", "f", false, "Fetch a new token even if the cached one is valid")
	flags.Bool("json", false, "Print the token as JSON")
	flags.BoolP("verbose", "v", false, "Enable debug logging")

	if err := v.BindPFlags(flags); err != nil {
		panic(err)
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return cmd
}

func run(ctx context.Context, cfg config, out, errOut io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	level := slog.LevelWarn
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(errOut, &slog.HandlerOptions{Level: level}))

	reg := admin.NewRegistry(&admin.RegistryOptions{
		Logger:      logger,
		Credentials: &credential.Options{Logger: logger},
	})
	defer reg.Reset(ctx)

	cred, err := loadCredential(reg, cfg)
	if err != nil {
		return err
	}
	app, err := reg.InitializeNamedApp(ctx, &admin.Options{
		Credential: cred,
		ProjectID:  cfg.Project,
		Logger:     logger,
	}, cfg.Name)
	if err != nil {
		return err
	}
	tokens, err := app.TokenManager()
	if err != nil {
		return err
	}
	tok, err := tokens.Token(ctx, cfg.Force)
	if err != nil {
		return err
	}
	project, err := app.ProjectID(ctx)
	if err != nil {
		logger.WarnContext(ctx, "project lookup failed", "error", err)
	}
	return printToken(out, cfg.JSON, tok.Value, tok.ExpirationTime, project)
}

// loadCredential returns nil when the app should resolve its own credential.
func loadCredential(reg *admin.Registry, cfg config) (credential.Credential, error) {
	if cfg.ADC {
		adc, err := reg.Credentials().ApplicationDefault()
		if err != nil {
			return nil, err
		}
		return adc, nil
	}
	if cfg.Credentials == "" {
		return nil, nil
	}
	b, err := os.ReadFile(cfg.Credentials)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", cfg.Credentials, err)
	}
	ft, err := credsfile.ParseFileType(b)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", cfg.Credentials, err)
	}
	src := credential.FromFile(cfg.Credentials)
	var cred credential.Credential
	switch ft {
	case credsfile.ServiceAccountKey:
		cred, err = reg.Credentials().Cert(src)
	case credsfile.UserCredentialsKey:
		cred, err = reg.Credentials().RefreshToken(src)
	case credsfile.ImpersonatedServiceAccountKey:
		cred, err = credential.NewImpersonatedServiceAccount(src, nil)
	default:
		return nil, fmt.Errorf("unsupported credential type %q in %s", ft, cfg.Credentials)
	}
	if err != nil {
		return nil, err
	}
	return cred, nil
}

func printToken(w io.Writer, asJSON bool, value string, expiry time.Time, project string) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			AccessToken string    `json:"access_token"`
			Expiry      time.Time `json:"expiry"`
			ProjectID   string    `json:"project_id,omitempty"`
		}{value, expiry, project})
	}
	fmt.Fprintf(w, "token:   %s\n", value)
	fmt.Fprintf(w, "expires: %s\n", expiry.Format(time.RFC3339))
	if project != "" {
		fmt.Fprintf(w, "project: %s\n", project)
	}
	return nil
}
