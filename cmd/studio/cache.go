package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"productstudio/internal/app"
)

func cacheCmd() *cobra.Command {
	c := &cobra.Command{Use: "cache", Short: "Inspect or clear the analysis cache"}
	c.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Show how many analyses are cached",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd, func(ctx context.Context, c *app.Container) error {
				fmt.Fprintf(cmd.OutOrStdout(), "%d cached analysis result(s) in %s backend\n", c.Cache.Len(), c.Config.CacheBackend)
				return nil
			})
		},
	})
	c.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove every cached analysis",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd, func(ctx context.Context, c *app.Container) error {
				if err := c.Cache.Clear(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "analysis cache cleared")
				return nil
			})
		},
	})
	return c
}
