// Package commands implements the cfgapi command line interface.
package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/markolofsen/django-cfg-sub001/internal/types"
)

// EnvPrefix is prepended to every configuration key read from the environment
const EnvPrefix = "CFGAPI"

// app carries the configuration shared by every command of one root
type app struct {
	v *viper.Viper
}

// NewRootCommand creates the cfgapi root command
func NewRootCommand(version, commit, date string) *cobra.Command {
	a := &app{v: viper.New()}
	a.setDefaults()

	rootCmd := &cobra.Command{
		Use:   "cfgapi",
		Short: "Command-line client for django-cfg APIs",
		Long: `A command-line client for django-cfg based REST APIs.

It keeps the session tokens in a credential store, retries transient failures
and can refresh the access token automatically.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initConfig(cmd)
		},
	}

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.StringP("config", "c", "", "config file (default is $HOME/.cfgapi/config.yml)")
	flags.String("env-file", "", "dotenv file to load before reading the environment (default .env)")
	flags.StringP("api", "a", "", "API base URL")
	flags.StringP("output", "o", "table", "output format (table, json, yaml)")
	flags.BoolP("verbose", "v", false, "verbose output")
	flags.Duration("timeout", types.DefaultTimeout, "per-attempt timeout")
	flags.String("storage", "file", "credential store (memory, file, redis, sqlite)")
	flags.String("credentials-file", "", "credentials file for the file store (default is $HOME/.cfgapi/credentials.json)")
	flags.Bool("auto-refresh", true, "refresh the access token automatically")
	flags.Bool("log-requests", false, "log every request and response")

	// Bind flags to viper
	_ = a.v.BindPFlag("api", flags.Lookup("api"))
	_ = a.v.BindPFlag("output", flags.Lookup("output"))
	_ = a.v.BindPFlag("verbose", flags.Lookup("verbose"))
	_ = a.v.BindPFlag("timeout", flags.Lookup("timeout"))
	_ = a.v.BindPFlag("storage.driver", flags.Lookup("storage"))
	_ = a.v.BindPFlag("storage.path", flags.Lookup("credentials-file"))
	_ = a.v.BindPFlag("auto_refresh", flags.Lookup("auto-refresh"))
	_ = a.v.BindPFlag("log.enabled", flags.Lookup("log-requests"))

	// Add commands
	rootCmd.AddCommand(NewVersionCommand(version, commit, date))
	rootCmd.AddCommand(a.newConfigCommand())
	rootCmd.AddCommand(a.newRequestCommand())
	rootCmd.AddCommand(a.newTokenCommand())
	rootCmd.AddCommand(a.newRefreshCommand())
	rootCmd.AddCommand(a.newProfileCommand())
	rootCmd.AddCommand(a.newOTPCommand())

	return rootCmd
}

func (a *app) setDefaults() {
	a.v.SetDefault("api", "")
	a.v.SetDefault("output", "table")
	a.v.SetDefault("verbose", false)
	a.v.SetDefault("timeout", types.DefaultTimeout)
	a.v.SetDefault("auto_refresh", true)
	a.v.SetDefault("refresh_path", types.DefaultRefreshPath)
	a.v.SetDefault("sentry_dsn", "")

	a.v.SetDefault("storage.driver", "file")
	a.v.SetDefault("storage.path", "")
	a.v.SetDefault("storage.redis_addr", "localhost:6379")
	a.v.SetDefault("storage.redis_password", "")
	a.v.SetDefault("storage.redis_db", 0)
	a.v.SetDefault("storage.redis_prefix", "")
	a.v.SetDefault("storage.redis_ttl", time.Duration(0))
	a.v.SetDefault("storage.sqlite_dsn", "")

	a.v.SetDefault("retry.max_attempts", types.DefaultMaxAttempts)
	a.v.SetDefault("retry.base_delay", types.DefaultBaseDelay)
	a.v.SetDefault("retry.max_delay", types.DefaultMaxDelay)
	a.v.SetDefault("retry.multiplier", types.DefaultBackoffMultiplier)

	a.v.SetDefault("log.enabled", false)
	a.v.SetDefault("log.level", "info")
}

func (a *app) initConfig(cmd *cobra.Command) error {
	envFile, _ := cmd.Flags().GetString("env-file")
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	} else {
		// A missing .env is normal
		_ = godotenv.Load()
	}

	cfgFile, _ := cmd.Flags().GetString("config")
	if cfgFile != "" {
		// Use config file from the flag
		a.v.SetConfigFile(cfgFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		// Search config in ~/.cfgapi/config.yml
		a.v.AddConfigPath(filepath.Join(home, ".cfgapi"))
		a.v.SetConfigType("yml")
		a.v.SetConfigName("config")
	}

	// Read in environment variables that match
	a.v.SetEnvPrefix(EnvPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	a.v.AutomaticEnv()

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	} else if a.v.GetBool("verbose") {
		fmt.Fprintln(cmd.ErrOrStderr(), "Using config file:", a.v.ConfigFileUsed())
	}
	return nil
}
