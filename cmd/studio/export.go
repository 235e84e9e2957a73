package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"productstudio/internal/app"
	"productstudio/internal/storage"
	"productstudio/pkg/zip"
)

func exportCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export <task-id>",
		Short: "Write a task's images and analysis to a zip archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd, func(ctx context.Context, c *app.Container) error {
				task, err := c.Store.GetTask(ctx, args[0])
				if err != nil {
					return err
				}
				entries, err := storage.ArchiveEntries(task)
				if err != nil {
					return err
				}
				path := out
				if path == "" {
					path = task.ID + ".zip"
				}
				if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
					return err
				}
				f, err := os.Create(path)
				if err != nil {
					return err
				}
				if err := zip.Write(f, entries); err != nil {
					f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d images)\n", path, len(task.GeneratedImages))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "archive path (default <task-id>.zip)")
	return cmd
}
