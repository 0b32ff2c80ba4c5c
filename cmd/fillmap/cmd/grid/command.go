// Package grid provides the grid command, which renders a block of a
// run's sheet the way the review window shows it.
package grid

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentstation/fillmap/cmd/application"
	"github.com/agentstation/fillmap/internal/cmd/emoji"
	"github.com/agentstation/fillmap/internal/cmd/output"
	"github.com/agentstation/fillmap/internal/cmd/table"
	"github.com/agentstation/fillmap/pkg/errors"
	"github.com/agentstation/fillmap/pkg/grid"
)

type options struct {
	sheet string
	rng   string
	rows  string
	cols  string
	cells bool
}

// NewCommand creates the grid command.
func NewCommand(app application.Application) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:     "grid <run-id>",
		GroupID: "core",
		Short:   "Render a block of a run's sheet",
		Long: `Grid renders cells with their display values. Mapped cells are marked
with ` + emoji.Mapped + `, formula cells with ` + emoji.Formula + ` and edited cells with ` + emoji.Edited + `.

Without a range the initial review window is shown.`,
		Example: `  fillmap grid run-42
  fillmap grid run-42 --sheet 'Balance Sheet' --range A1:F20
  fillmap grid run-42 --rows 1-50 --cols A-J --cells`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := opts.parseRange()
			if err != nil {
				return err
			}

			svc, err := app.Runs(cmd.Context())
			if err != nil {
				return err
			}
			res, err := svc.Grid(cmd.Context(), args[0], opts.sheet, r)
			if err != nil {
				return err
			}

			format := output.DetectFormat(app.OutputFormat())
			if format != output.FormatJSON && format != output.FormatYAML {
				for _, w := range res.Warnings {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", emoji.Warning, w.Error())
				}
			}

			data := table.GridToTableData(res.Projection)
			if opts.cells {
				data = table.CellsToTableData(res.Projection)
			}
			return output.Print(cmd.OutOrStdout(), format, res, data)
		},
	}

	cmd.Flags().StringVar(&opts.sheet, "sheet", "", "sheet name (default is the first sheet)")
	cmd.Flags().StringVar(&opts.rng, "range", "", "A1 range such as A1:J50")
	cmd.Flags().StringVar(&opts.rows, "rows", "", "row span such as 1-50")
	cmd.Flags().StringVar(&opts.cols, "cols", "", "column span such as A-J or 1-10")
	cmd.Flags().BoolVar(&opts.cells, "cells", false, "list non-empty cells instead of the sheet layout")
	cmd.MarkFlagsMutuallyExclusive("range", "rows")
	cmd.MarkFlagsMutuallyExclusive("range", "cols")

	return cmd
}

// parseRange returns the zero range when no range flags are set.
func (o *options) parseRange() (grid.Range, error) {
	switch {
	case o.rng != "":
		return grid.ParseRange(o.rng)
	case o.rows == "" && o.cols == "":
		return grid.Range{}, nil
	case o.rows == "" || o.cols == "":
		return grid.Range{}, errors.NewValidationError("range", o.rows+o.cols, "--rows and --cols must be given together")
	default:
		return grid.ParseSpans(o.rows, o.cols)
	}
}
