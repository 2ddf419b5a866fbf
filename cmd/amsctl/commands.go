package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"amsplayer/internal/host"
	"amsplayer/internal/mediaservices"
	"amsplayer/pkg/config"
	"amsplayer/pkg/logger"
	"amsplayer/pkg/tenants"
)

type envFunc func() (config.Config, logger.Sugared)

var errNoCredentials = errors.New("no Azure Media Services credentials for this organization")

// withApp builds the same stores the service uses and resolves the org's credentials.
func withApp(ctx context.Context, env envFunc, org string, fn func(*host.App, tenants.Credentials, config.Config, logger.Sugared) error) error {
	cfg, log := env()
	app, err := host.Build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer app.Close()
	creds, ok := tenants.ResolveCredentials(ctx, log, app.Settings, org, app.Platform)
	if !ok {
		return fmt.Errorf("%s: %w", org, errNoCredentials)
	}
	return fn(app, creds, cfg, log)
}

func locatorsCmd(env envFunc) *cobra.Command {
	var org string
	cmd := &cobra.Command{
		Use:   "locators",
		Short: "List every locator of the organization's Media Services account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), env, org, func(_ *host.App, creds tenants.Credentials, cfg config.Config, log logger.Sugared) error {
				c, err := mediaservices.New(creds, host.MediaOptions(cfg, log))
				if err != nil {
					return err
				}
				locs, err := c.GetListLocators(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), locs)
			})
		},
	}
	cmd.Flags().StringVar(&org, "org", "", "course organization")
	_ = cmd.MarkFlagRequired("org")
	return cmd
}

func videoInfoCmd(env envFunc) *cobra.Command {
	var org, video string
	cmd := &cobra.Command{
		Use:   "video-info",
		Short: "Resolve streaming, download and caption URLs for a catalog video",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log := env()
			app, err := host.Build(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer app.Close()
			info, err := app.Block.VideoInfo(cmd.Context(), org, video)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), info)
		},
	}
	cmd.Flags().StringVar(&org, "org", "", "course organization")
	cmd.Flags().StringVar(&video, "video", "", "catalog video id")
	_ = cmd.MarkFlagRequired("org")
	_ = cmd.MarkFlagRequired("video")
	return cmd
}

func credentialsCmd(env envFunc) *cobra.Command {
	var org string
	cmd := &cobra.Command{
		Use:   "credentials",
		Short: "Show which credentials the organization resolves to, with the secret masked",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), env, org, func(_ *host.App, creds tenants.Credentials, _ config.Config, _ logger.Sugared) error {
				return printJSON(cmd.OutOrStdout(), map[string]string{
					"client_id":         creds.ClientID,
					"client_secret":     mask(creds.ClientSecret),
					"tenant":            creds.Tenant,
					"rest_api_endpoint": creds.RESTAPIEndpoint,
				})
			})
		},
	}
	cmd.Flags().StringVar(&org, "org", "", "course organization")
	_ = cmd.MarkFlagRequired("org")
	return cmd
}

func mask(s string) string {
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
