package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func (a *app) newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the CLI configuration",
		Long:  "Inspect the configuration resolved from flags, environment and the config file",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.settings()
			if err != nil {
				return err
			}

			shown := *s
			if shown.Storage.RedisPassword != "" {
				shown.Storage.RedisPassword = Masked
			}
			if shown.SentryDSN != "" {
				shown.SentryDSN = Masked
			}

			api := shown.API
			if api == "" {
				api = NotAvailable
			}
			rows := []property{
				{"API", api},
				{"Config File", a.configFile()},
				{"Timeout", shown.Timeout.String()},
				{"Auto Refresh", strconv.FormatBool(shown.AutoRefresh)},
				{"Refresh Path", shown.RefreshPath},
				{"Storage", shown.Storage.Driver},
				{"Retry Attempts", strconv.Itoa(shown.Retry.MaxAttempts)},
				{"Retry Delay", fmt.Sprintf("%s (x%g, max %s)", shown.Retry.BaseDelay, shown.Retry.Multiplier, shown.Retry.MaxDelay)},
				{"Request Logging", strconv.FormatBool(shown.Log.Enabled)},
			}
			if shown.Storage.Path != "" {
				rows = append(rows, property{"Credentials File", shown.Storage.Path})
			}

			return render(cmd.OutOrStdout(), shown.Output, shown, rows)
		},
	})

	return cmd
}

func (a *app) configFile() string {
	if f := a.v.ConfigFileUsed(); f != "" {
		return f
	}
	return NotAvailable
}
