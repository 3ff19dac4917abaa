package commands

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/markolofsen/django-cfg-sub001/pkg/cfgapi"
)

func (a *app) newProfileCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "profile",
		Aliases: []string{"me", "whoami"},
		Short:   "Show the authenticated user's profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, s, err := a.newClient(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			profile, err := client.Accounts.Profile(commandContext(cmd))
			if err != nil {
				return err
			}

			joined := NotAvailable
			if profile.DateJoined != nil {
				joined = profile.DateJoined.Format(time.RFC3339)
			}
			return render(cmd.OutOrStdout(), s.Output, profile, []property{
				{"ID", strconv.Itoa(profile.ID)},
				{"Email", profile.Email},
				{"Name", profile.FullName},
				{"Company", profile.Company},
				{"Phone", profile.Phone},
				{"Joined", joined},
			})
		},
	}
}

func (a *app) newOTPCommand() *cobra.Command {
	var channel string

	cmd := &cobra.Command{
		Use:   "otp",
		Short: "Sign in with a one-time password",
		Long:  "Request a one-time password and exchange it for session tokens",
	}
	cmd.PersistentFlags().StringVar(&channel, "channel", "", "delivery channel (email or phone); detected from the identifier when empty")

	cmd.AddCommand(&cobra.Command{
		Use:   "request IDENTIFIER",
		Short: "Send a one-time password to an email or phone number",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := a.newClient(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			result, err := client.Accounts.RequestOTP(commandContext(cmd), &cfgapi.OTPRequestParams{
				Identifier: args[0],
				Channel:    channel,
			})
			if err != nil {
				return err
			}
			msg := result.Message
			if msg == "" {
				msg = "One-time password sent"
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "verify IDENTIFIER CODE",
		Short: "Exchange a one-time password for session tokens",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := a.newClient(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			result, err := client.Accounts.VerifyOTP(commandContext(cmd), &cfgapi.OTPVerifyParams{
				Identifier: args[0],
				OTP:        args[1],
				Channel:    channel,
			})
			if err != nil {
				return err
			}
			if result.User != nil && result.User.Email != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", result.User.Email)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed in")
			return nil
		},
	})

	return cmd
}
