// Package status provides the status command, which reports daemon
// statistics.
package status

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/seedarr/seedarr/cmd/application"
	"github.com/seedarr/seedarr/internal/cmd/output"
)

// NewCommand creates the status command.
func NewCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:     "status",
		Aliases: []string{"stats"},
		GroupID: "management",
		Short:   "Show daemon statistics",
		Long: `Show whether the daemon is running along with its pipeline counters,
runtime figures and connection counts.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := app.Client()
			if err != nil {
				return err
			}
			stats, err := c.Stats(cmd.Context())
			if err != nil {
				return err
			}

			format := output.DetectFormat(app.OutputFormat())
			table := statsData(stats)
			return output.Write(cmd.OutOrStdout(), format, stats, &table)
		},
	}
}

// statsData flattens nested stats into sorted key/value rows.
func statsData(stats map[string]any) output.Data {
	flat := map[string]string{}
	flatten("", stats, flat)

	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, []string{k, flat[k]})
	}
	return output.Data{
		Headers:         []string{"Stat", "Value"},
		Rows:            rows,
		ColumnAlignment: []output.Align{output.AlignLeft, output.AlignRight},
	}
}

func flatten(prefix string, v any, into map[string]string) {
	switch val := v.(type) {
	case map[string]any:
		for k, child := range val {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			flatten(key, child, into)
		}
	case float64:
		// JSON numbers; most stats are counters.
		if val == float64(int64(val)) {
			into[prefix] = fmt.Sprintf("%d", int64(val))
		} else {
			into[prefix] = fmt.Sprintf("%.2f", val)
		}
	case nil:
		into[prefix] = "-"
	default:
		into[prefix] = fmt.Sprint(val)
	}
}
