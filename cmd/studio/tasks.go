package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"productstudio/internal/app"
	"productstudio/internal/domain"
	"productstudio/internal/generation"
	"productstudio/internal/storage"
)

func generateCmd() *cobra.Command {
	var (
		name, description, vibe, model, outDir string
		images                                 []string
		count                                  int
		parallel, noCache                      bool
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Analyse a product and generate marketing photos",
		RunE: func(cmd *cobra.Command, args []string) error {
			refs, err := readImages(images)
			if err != nil {
				return err
			}
			return withContainer(cmd, func(ctx context.Context, c *app.Container) error {
				tier := c.DefaultModel
				if model != "" {
					tier = domain.ParseModelTier(model)
				}
				if count == 0 {
					count = c.Config.DefaultImageCount
				}
				if !cmd.Flags().Changed("parallel") {
					parallel = c.Config.ParallelGeneration
				}
				res, err := c.Orchestrator.Run(ctx, generation.Request{
					UserID:      viper.GetString("user"),
					ProductName: name,
					Description: description,
					Vibe:        vibe,
					Images:      refs,
					ImageCount:  count,
					Parallel:    parallel,
					UseCache:    !noCache,
					Model:       tier,
					Hooks: generation.Hooks{
						OnStage: func(s generation.Stage) {
							if !viper.GetBool("json") {
								fmt.Fprintf(cmd.ErrOrStderr(), "stage: %s\n", s)
							}
						},
						OnProgress: func(current, total int) {
							if !viper.GetBool("json") {
								fmt.Fprintf(cmd.ErrOrStderr(), "images: %d/%d\n", current, total)
							}
						},
					},
				})
				if err != nil {
					return err
				}
				if outDir != "" {
					if err := writeImages(outDir, res.Task); err != nil {
						return err
					}
				}
				if viper.GetBool("json") {
					return printJSON(cmd.OutOrStdout(), res)
				}
				renderResult(cmd.OutOrStdout(), res)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "product name")
	cmd.Flags().StringVar(&description, "description", "", "product description")
	cmd.Flags().StringVar(&vibe, "vibe", "", "mood of the shots (default professional)")
	cmd.Flags().StringSliceVar(&images, "image", nil, "reference image path, repeat up to 3 times")
	cmd.Flags().IntVar(&count, "count", 0, "number of images to generate (1-6)")
	cmd.Flags().BoolVar(&parallel, "parallel", false, "generate images concurrently")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "skip the analysis cache")
	cmd.Flags().StringVar(&model, "model", "", "analysis model tier: auto, flash or pro")
	cmd.Flags().StringVar(&outDir, "out", "", "directory to write generated images to")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("description")
	_ = cmd.MarkFlagRequired("image")
	return cmd
}

func listCmd() *cobra.Command {
	var (
		page, pageSize int
		search, sort   string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd, func(ctx context.Context, c *app.Container) error {
				result, err := c.Store.ListTasks(ctx, storage.ListQuery{
					UserID:   viper.GetString("user"),
					Search:   search,
					Sort:     domain.TaskSort(sort),
					Page:     page,
					PageSize: pageSize,
				})
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(cmd.OutOrStdout(), result)
				}
				renderTaskTable(cmd.OutOrStdout(), result)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&page, "page", 0, "zero-based page index")
	cmd.Flags().IntVar(&pageSize, "page-size", storage.DefaultPageSize, "tasks per page")
	cmd.Flags().StringVar(&search, "search", "", "filter by name, description or vibe")
	cmd.Flags().StringVar(&sort, "sort", string(domain.SortNewest), "newest, oldest, name-asc or name-desc")
	return cmd
}

func showCmd() *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   "show <task-id>",
		Short: "Show one task with its analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd, func(ctx context.Context, c *app.Container) error {
				task, err := c.Store.GetTask(ctx, args[0])
				if err != nil {
					return err
				}
				if outDir != "" {
					if err := writeImages(outDir, task); err != nil {
						return err
					}
				}
				if viper.GetBool("json") {
					return printJSON(cmd.OutOrStdout(), task)
				}
				renderTask(cmd.OutOrStdout(), task)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&outDir, "out", "", "directory to write generated images to")
	return cmd
}

func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <task-id>",
		Short: "Delete a task and its images",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd, func(ctx context.Context, c *app.Container) error {
				if err := c.Store.DeleteTask(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
				return nil
			})
		},
	}
}

func regenerateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "regenerate <task-id> <index>",
		Short: "Replace one generated image using its original plan entry",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("index must be an integer: %w", err)
			}
			return withContainer(cmd, func(ctx context.Context, c *app.Container) error {
				task, err := c.Orchestrator.Regenerate(ctx, args[0], index)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(cmd.OutOrStdout(), task)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "regenerated image %d of %s\n", index, task.ID)
				return nil
			})
		},
	}
}

func cleanupCmd() *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete tasks older than the retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd, func(ctx context.Context, c *app.Container) error {
				retention := c.Config.TaskRetention
				if days > 0 {
					retention = time.Duration(days) * 24 * time.Hour
				}
				removed, err := c.Store.CleanupOldTasks(ctx, retention)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed %d task(s)\n", removed)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "retention in days (default from TASK_RETENTION_DAYS)")
	return cmd
}

// readImages loads reference files and sniffs their content type.
func readImages(paths []string) ([]domain.Image, error) {
	out := make([]domain.Image, 0, len(paths))
	for _, p := range paths {
		raw, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read image %s: %w", p, err)
		}
		out = append(out, domain.NewImage(http.DetectContentType(raw), raw))
	}
	return out, nil
}

// writeImages saves every generated image as <task>-<index>.<ext>.
func writeImages(dir string, task *domain.Task) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	for i, img := range task.GeneratedImages {
		raw, err := img.Bytes()
		if err != nil {
			return fmt.Errorf("image %d: %w", i, err)
		}
		path := filepath.Join(dir, fmt.Sprintf("%s-%d%s", task.ID, i, img.Extension()))
		if err := os.WriteFile(path, raw, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	return nil
}
