package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"productstudio/internal/app"
	"productstudio/internal/infra"
)

var rootCmd = &cobra.Command{
	Use:   "studio",
	Short: "Product photo studio CLI",
	Long: `studio analyses a product from reference photos, generates marketing shots
from a fixed plan of angles and backgrounds, and manages the saved tasks.
Configuration comes from the same environment variables as the API server.`,
	SilenceUsage: true,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	_ = godotenv.Load(".env.local", ".env")
	viper.SetEnvPrefix("STUDIO")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().String("user", "user-1", "user id owning the tasks")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().Bool("verbose", false, "log at debug level")
	_ = viper.BindPFlag("user", rootCmd.PersistentFlags().Lookup("user"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

func registerCommands() {
	rootCmd.AddCommand(generateCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(showCmd())
	rootCmd.AddCommand(deleteCmd())
	rootCmd.AddCommand(regenerateCmd())
	rootCmd.AddCommand(cleanupCmd())
	rootCmd.AddCommand(cacheCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(keyCmd())
	rootCmd.AddCommand(exportCmd())
}

// cliLogger writes to stderr so command output stays machine readable.
func cliLogger() infra.Logger {
	level := zerolog.WarnLevel
	if viper.GetBool("verbose") {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
}

// withContainer runs fn with fully wired services and closes them afterwards.
func withContainer(cmd *cobra.Command, fn func(ctx context.Context, c *app.Container) error) error {
	cfg, err := infra.LoadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	c, err := app.New(ctx, cfg, cliLogger())
	if err != nil {
		return err
	}
	defer c.Close()
	return fn(ctx, c)
}
