package commands

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/markolofsen/django-cfg-sub001/pkg/cfgapi"
)

func (a *app) newRequestCommand() *cobra.Command {
	var (
		data       string
		queries    []string
		headers    []string
		noAuth     bool
		idempotent bool
	)

	cmd := &cobra.Command{
		Use:     "request METHOD PATH",
		Aliases: []string{"req", "call"},
		Short:   "Send a request to the API",
		Long: `Send a request to the API using the stored credentials.

The body given with --data is sent as JSON when it parses as JSON. Prefix the
value with @ to read it from a file.`,
		Example: `  cfgapi request GET /cfg/accounts/profile/
  cfgapi request POST /api/items/ --data '{"name":"pen"}'
  cfgapi request GET /api/items/ --query page=2 -o json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			method := strings.ToUpper(args[0])
			path := args[1]

			opts := &cfgapi.RequestOptions{
				NoAuth:     noAuth,
				Idempotent: idempotent,
			}

			if len(queries) > 0 {
				opts.Query = url.Values{}
				for _, q := range queries {
					key, value, err := splitPair(q, "=", ErrInvalidQuery)
					if err != nil {
						return err
					}
					opts.Query.Add(key, value)
				}
			}
			if len(headers) > 0 {
				opts.Headers = http.Header{}
				for _, h := range headers {
					key, value, err := splitPair(h, ":", ErrInvalidHeader)
					if err != nil {
						return err
					}
					opts.Headers.Add(key, value)
				}
			}

			if data != "" {
				body, err := readData(data)
				if err != nil {
					return err
				}
				if json.Valid(body) {
					opts.Body = json.RawMessage(body)
				} else {
					opts.Body = body
				}
			}

			client, s, err := a.newClient(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			resp, err := client.Request(commandContext(cmd), method, path, opts)
			if err != nil {
				return fmt.Errorf("%s %s failed: %w", method, path, err)
			}

			if s.Verbose {
				fmt.Fprintf(cmd.ErrOrStderr(), "HTTP %d %s\n", resp.StatusCode, http.StatusText(resp.StatusCode))
			}
			return renderBody(cmd.OutOrStdout(), s.Output, resp.Body)
		},
	}

	cmd.Flags().StringVarP(&data, "data", "d", "", "request body, or @file to read it from a file")
	cmd.Flags().StringArrayVarP(&queries, "query", "q", nil, "query parameter as key=value (repeatable)")
	cmd.Flags().StringArrayVarP(&headers, "header", "H", nil, "header as Name:Value (repeatable)")
	cmd.Flags().BoolVar(&noAuth, "no-auth", false, "send the request without the access token")
	cmd.Flags().BoolVar(&idempotent, "idempotent", false, "allow retrying a mutating request")

	return cmd
}

func readData(data string) ([]byte, error) {
	if !strings.HasPrefix(data, "@") {
		return []byte(data), nil
	}
	body, err := os.ReadFile(strings.TrimPrefix(data, "@"))
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	return body, nil
}
