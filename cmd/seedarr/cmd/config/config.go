// Package config provides the config command, which prints the effective
// configuration after files, .env, environment and flags are merged.
package config

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/spf13/cobra"

	"github.com/seedarr/seedarr/cmd/application"
	"github.com/seedarr/seedarr/internal/cmd/output"
	appconfig "github.com/seedarr/seedarr/internal/config"
)

// NewCommand creates the config command.
func NewCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:     "config",
		GroupID: "management",
		Short:   "Show the effective configuration",
		Long: `Print the configuration seedarr will use. Values come from, in order of
precedence: flags, SEEDARR_* environment variables, .env.local and .env,
the config file and built-in defaults. The API key is never printed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := app.Config()
			format := output.DetectFormat(app.OutputFormat())
			table := configData(cfg)
			return output.Write(cmd.OutOrStdout(), format, cfg, &table)
		},
	}
}

// configData lists every serialized setting by its yaml key, which is
// also its SEEDARR_ environment variable suffix.
func configData(cfg *appconfig.Config) output.Data {
	v := reflect.ValueOf(*cfg)
	t := v.Type()

	rows := make([][]string, 0, t.NumField()+1)
	for i := range t.NumField() {
		key, _, _ := strings.Cut(t.Field(i).Tag.Get("yaml"), ",")
		if key == "" || key == "-" {
			continue
		}
		value := fmt.Sprint(v.Field(i).Interface())
		if value == "" {
			value = "-"
		}
		rows = append(rows, []string{key, output.Title(key), value})
	}

	apiKey := "(not set)"
	if cfg.APIKey != "" {
		apiKey = "(set)"
	}
	rows = append(rows, []string{"api_key", output.Title("api_key"), apiKey})

	return output.Data{
		Headers: []string{"Key", "Setting", "Value"},
		Rows:    rows,
	}
}
