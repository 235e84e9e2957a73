package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"productstudio/internal/app"
	"productstudio/internal/domain"
	"productstudio/internal/infra/credentials"
)

var errNoCredentialStore = errors.New("api keys can only be stored with a sqlite or postgres STORE_BACKEND")

func keyCmd() *cobra.Command {
	k := &cobra.Command{Use: "key", Short: "Manage the stored Gemini API key"}
	k.AddCommand(&cobra.Command{
		Use:   "set <api-key>",
		Short: "Store the Gemini API key used when GEMINI_API_KEY is unset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCredentials(cmd, func(ctx context.Context, store *credentials.Store) error {
				if err := store.SetGeminiAPIKey(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "gemini api key stored")
				return nil
			})
		},
	})
	k.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show which Gemini API key is in effect",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd, func(ctx context.Context, c *app.Container) error {
				info := c.Provider.Info()
				source := "environment"
				if c.Config.GeminiAPIKey == "" {
					source = "database"
				}
				if !info.APIKeyConfigured {
					source = "none, synthetic mode"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "key: %s\nsource: %s\n", info.APIKeyPrefix, source)
				if c.Credentials != nil {
					cred, err := c.Credentials.Get(ctx, credentials.ProviderGemini)
					if err == nil {
						fmt.Fprintf(cmd.OutOrStdout(), "stored at: %s\n", cred.UpdatedAt.Local().Format(time.DateTime))
					} else if !errors.Is(err, domain.ErrNotFound) {
						return err
					}
				}
				return nil
			})
		},
	})
	k.AddCommand(&cobra.Command{
		Use:   "delete",
		Short: "Remove the stored Gemini API key",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCredentials(cmd, func(ctx context.Context, store *credentials.Store) error {
				if err := store.Delete(ctx, credentials.ProviderGemini); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "gemini api key removed")
				return nil
			})
		},
	})
	return k
}

func withCredentials(cmd *cobra.Command, fn func(context.Context, *credentials.Store) error) error {
	return withContainer(cmd, func(ctx context.Context, c *app.Container) error {
		if c.Credentials == nil {
			return errNoCredentialStore
		}
		return fn(ctx, c.Credentials)
	})
}
