// Package resolve provides the resolve command, which shows the value a
// cell will display and where it comes from.
package resolve

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/fillmap/cmd/application"
	"github.com/agentstation/fillmap/internal/cmd/output"
	"github.com/agentstation/fillmap/internal/cmd/table"
	"github.com/agentstation/fillmap/pkg/fillrun"
	"github.com/agentstation/fillmap/pkg/reconcile"
)

// result is the JSON and YAML shape of a resolved cell.
type result struct {
	Cell       fillrun.CellRef      `json:"cell" yaml:"cell"`
	Resolution reconcile.Resolution `json:"resolution" yaml:"resolution"`
}

// NewCommand creates the resolve command.
func NewCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:     "resolve <run-id> <Sheet!A1>",
		Aliases: []string{"cell"},
		GroupID: "core",
		Short:   "Show the display value of one cell",
		Long: `Resolve shows the value a cell will display once the run is filled.

Formula cells always show their cached result. Otherwise a mapped field's
extracted value wins, then a manual edit, then the template's own value.`,
		Example: `  fillmap resolve run-42 'Balance Sheet!B4'
  fillmap resolve run-42 Sheet1!E9 -o json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := fillrun.ParseCellRef(args[1])
			if err != nil {
				return err
			}

			svc, err := app.Runs(cmd.Context())
			if err != nil {
				return err
			}
			res, err := svc.Resolve(cmd.Context(), args[0], ref)
			if err != nil {
				return err
			}

			format := output.DetectFormat(app.OutputFormat())
			return output.Print(cmd.OutOrStdout(), format,
				result{Cell: ref, Resolution: res},
				table.ResolutionToTableData(ref, res))
		},
	}
}
