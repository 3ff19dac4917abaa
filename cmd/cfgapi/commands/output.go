package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"
)

// Output formats.
const (
	OutputFormatTable = "table"
	OutputFormatJSON  = "json"
	OutputFormatYAML  = "yaml"

	NotAvailable = "N/A"
	Masked       = "***"
)

// Common static errors used throughout the commands package.
var (
	ErrAPIRequired        = errors.New("API base URL is required (use --api, CFGAPI_API or the config file)")
	ErrUnsupportedFormat  = errors.New("unsupported output format")
	ErrInvalidHeader      = errors.New("header must be in Name:Value form")
	ErrInvalidQuery       = errors.New("query parameter must be in key=value form")
	ErrAccessTokenMissing = errors.New("access token is required")
)

// property is one row of a Property/Value table
type property struct {
	Name  string
	Value string
}

// render writes v as json or yaml, or rows as a table
func render(w io.Writer, format string, v interface{}, rows []property) error {
	switch format {
	case OutputFormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(v)
	case OutputFormatYAML:
		encoder := yaml.NewEncoder(w)
		defer encoder.Close()
		return encoder.Encode(v)
	case OutputFormatTable, "":
		table := tablewriter.NewWriter(w)
		table.Header("Property", "Value")
		for _, row := range rows {
			_ = table.Append(row.Name, row.Value)
		}
		if err := table.Render(); err != nil {
			return fmt.Errorf("failed to render table: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// renderBody prints a response body. JSON bodies are re-encoded in the
// requested format; anything else is written verbatim.
func renderBody(w io.Writer, format string, body []byte) error {
	var decoded interface{}
	if len(body) == 0 || json.Unmarshal(body, &decoded) != nil {
		_, err := w.Write(body)
		if err == nil && len(body) > 0 && body[len(body)-1] != '\n' {
			_, err = io.WriteString(w, "\n")
		}
		return err
	}

	var rows []property
	switch val := decoded.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			rows = append(rows, property{Name: k, Value: cell(val[k])})
		}
	case []interface{}:
		for i, item := range val {
			rows = append(rows, property{Name: fmt.Sprintf("[%d]", i), Value: cell(item)})
		}
	default:
		rows = append(rows, property{Name: "value", Value: cell(val)})
	}
	return render(w, format, decoded, rows)
}

func cell(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return NotAvailable
	case string:
		return val
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(data)
	}
}

// mask hides all but the first four characters of a secret
func mask(secret string) string {
	if secret == "" {
		return NotAvailable
	}
	if len(secret) <= 8 {
		return Masked
	}
	return secret[:4] + Masked
}

func splitPair(s, sep string, errInvalid error) (string, string, error) {
	key, value, ok := strings.Cut(s, sep)
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return "", "", fmt.Errorf("%w: %q", errInvalid, s)
	}
	return key, strings.TrimSpace(value), nil
}
