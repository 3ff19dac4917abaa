package commands

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/markolofsen/django-cfg-sub001/internal/auth"
)

func (a *app) newTokenCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "token",
		Aliases: []string{"tokens"},
		Short:   "Manage stored credentials",
		Long:    "Store, inspect and clear the access and refresh tokens used by the CLI",
	}

	cmd.AddCommand(a.newTokenSetCommand())
	cmd.AddCommand(a.newTokenShowCommand())
	cmd.AddCommand(a.newTokenClearCommand())

	return cmd
}

func (a *app) newTokenSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set ACCESS [REFRESH]",
		Short: "Store an access token and optionally a refresh token",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if args[0] == "" {
				return ErrAccessTokenMissing
			}
			var refresh string
			if len(args) == 2 {
				refresh = args[1]
			}

			client, _, err := a.newClient(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			if err := client.SetToken(commandContext(cmd), args[0], refresh); err != nil {
				return fmt.Errorf("failed to store tokens: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Tokens stored")
			return nil
		},
	}
}

func (a *app) newTokenShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the stored credentials with secrets masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, s, err := a.newClient(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			type TokenInfo struct {
				Authenticated bool       `json:"authenticated" yaml:"authenticated"`
				AccessToken   string     `json:"access_token" yaml:"access_token"`
				RefreshToken  string     `json:"refresh_token" yaml:"refresh_token"`
				ExpiresAt     *time.Time `json:"expires_at,omitempty" yaml:"expires_at,omitempty"`
				Storage       string     `json:"storage" yaml:"storage"`
			}

			creds := client.Credentials()
			info := TokenInfo{
				Authenticated: creds.Authenticated(),
				AccessToken:   mask(creds.AccessToken),
				RefreshToken:  mask(creds.RefreshToken),
				Storage:       s.Storage.Driver,
			}
			expires := NotAvailable
			if exp, ok := auth.TokenExpiry(creds.AccessToken); ok {
				info.ExpiresAt = &exp
				expires = exp.Format(time.RFC3339)
				if !exp.After(time.Now()) {
					expires += " (expired)"
				}
			}

			return render(cmd.OutOrStdout(), s.Output, info, []property{
				{"Authenticated", strconv.FormatBool(info.Authenticated)},
				{"Access Token", info.AccessToken},
				{"Refresh Token", info.RefreshToken},
				{"Expires", expires},
				{"Storage", info.Storage},
			})
		},
	}
}

func (a *app) newTokenClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "clear",
		Aliases: []string{"logout"},
		Short:   "Remove the stored credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := a.newClient(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			if err := client.ClearTokens(commandContext(cmd)); err != nil {
				return fmt.Errorf("failed to clear tokens: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Tokens cleared")
			return nil
		},
	}
}

func (a *app) newRefreshCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Exchange the refresh token for a new access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := a.newClient(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			if err := client.RefreshSession(commandContext(cmd)); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Session refreshed")
			return nil
		},
	}
}
