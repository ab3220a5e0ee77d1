package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fivetwenty-io/logo-objects/cmd/logo/commands"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "logo",
	Short: "Logo Objects REST API CLI",
	Long: `A command-line interface for the Logo Objects REST service.

It lists, searches and edits ERP records (items, customers and suppliers,
units, countries and more), invokes vendor actions and runs batches of
operations concurrently.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.logo/config.yml)")
	rootCmd.PersistentFlags().String("env-file", "", "load environment variables from this file (default is ./.env)")
	rootCmd.PersistentFlags().StringP("api", "a", "", "API name or endpoint URL")
	rootCmd.PersistentFlags().StringP("token", "t", "", "bearer token, bypasses stored credentials")
	rootCmd.PersistentFlags().StringP("output", "o", "table", "output format (table, json, yaml, xlsx)")
	rootCmd.PersistentFlags().String("output-file", "", "file written by --output xlsx")
	rootCmd.PersistentFlags().String("catalog", "", "YAML file replacing the built-in entity catalog")
	rootCmd.PersistentFlags().Int("retries", 0, "retries for 5xx, 429 and connection errors")
	rootCmd.PersistentFlags().Duration("timeout", 0, "timeout of each HTTP request")
	rootCmd.PersistentFlags().String("nats-url", "", "NATS server for change events")
	rootCmd.PersistentFlags().Bool("publish-events", false, "publish change events for writes made by this command")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")

	// Bind flags to viper
	bindFlag("config", "config")
	bindFlag("env_file", "env-file")
	bindFlag("api", "api")
	bindFlag("token", "token")
	bindFlag("output", "output")
	bindFlag("output_file", "output-file")
	bindFlag("catalog", "catalog")
	bindFlag("retries", "retries")
	bindFlag("timeout", "timeout")
	bindFlag("nats_url", "nats-url")
	bindFlag("publish_events", "publish-events")
	bindFlag("verbose", "verbose")

	// Add commands
	rootCmd.AddCommand(commands.NewVersionCommand(version, commit, date))
	rootCmd.AddCommand(commands.NewLoginCommand())
	rootCmd.AddCommand(commands.NewLogoutCommand())
	rootCmd.AddCommand(commands.NewConfigCommand())
	rootCmd.AddCommand(commands.NewEntitiesCommand())
	rootCmd.AddCommand(commands.NewListCommand())
	rootCmd.AddCommand(commands.NewGetCommand())
	rootCmd.AddCommand(commands.NewCreateCommand())
	rootCmd.AddCommand(commands.NewUpdateCommand())
	rootCmd.AddCommand(commands.NewPatchCommand())
	rootCmd.AddCommand(commands.NewDeleteCommand())
	rootCmd.AddCommand(commands.NewSearchCommand())
	rootCmd.AddCommand(commands.NewActionCommand())
	rootCmd.AddCommand(commands.NewBatchCommand())
	rootCmd.AddCommand(commands.NewEventsCommand())
}

func bindFlag(key, flag string) {
	err := viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag))
	if err != nil {
		panic(fmt.Sprintf("binding flag %s: %v", flag, err))
	}
}

func initConfig() {
	loadEnvFile()

	cfgFile := viper.GetString("config")

	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		// Search config in ~/.logo/config.yml
		viper.AddConfigPath(filepath.Join(home, ".logo"))
		viper.SetConfigType("yml")
		viper.SetConfigName("config")
	}

	// Read in environment variables that match, e.g. LOGO_API or LOGO_OUTPUT_FILE
	viper.SetEnvPrefix("LOGO")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("verbose") {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}

// loadEnvFile loads --env-file, or ./.env when present. Variables already
// set in the environment win.
func loadEnvFile() {
	envFile := viper.GetString("env_file")
	if envFile == "" {
		envFile = os.Getenv("LOGO_ENV_FILE")
	}

	if envFile == "" {
		err := godotenv.Load()
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "Error loading .env: %v\n", err)
		}

		return
	}

	err := godotenv.Load(envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading %s: %v\n", envFile, err)
		os.Exit(1)
	}
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
