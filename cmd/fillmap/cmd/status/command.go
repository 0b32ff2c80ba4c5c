// Package status provides the status command, which shows a run's status
// or records one reported by the extraction pipeline.
package status

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentstation/fillmap/cmd/application"
	"github.com/agentstation/fillmap/internal/cmd/emoji"
	"github.com/agentstation/fillmap/internal/cmd/output"
	"github.com/agentstation/fillmap/internal/cmd/runfile"
	"github.com/agentstation/fillmap/internal/cmd/table"
	"github.com/agentstation/fillmap/pkg/fillrun"
)

// NewCommand creates the status command.
func NewCommand(app application.Application) *cobra.Command {
	var (
		artifact string
		save     bool
	)

	cmd := &cobra.Command{
		Use:     "status <run-id> [status]",
		GroupID: "management",
		Short:   "Show or record a run's status",
		Long: `Status shows a run's status. Given a new status it records the
transition the way the extraction pipeline reports it. Statuses move forward
through queued, detecting_fields, fields_detected, mapping, mapped,
awaiting_review, filling and completed; any status may move to failed.`,
		Example: `  fillmap status run-42
  fillmap status run-42 filling
  fillmap status run-42 completed --artifact out/run-42.xlsx --save`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			runID := args[0]
			svc, err := app.Runs(cmd.Context())
			if err != nil {
				return err
			}

			run, err := svc.Get(cmd.Context(), runID)
			if err != nil {
				return err
			}

			switch {
			case len(args) == 2 && artifact != "":
				run, err = svc.ObserveStatusWithArtifact(cmd.Context(), runID, fillrun.Status(args[1]), artifact)
			case len(args) == 2:
				run, err = svc.ObserveStatus(cmd.Context(), runID, fillrun.Status(args[1]))
			case artifact != "":
				run, err = svc.AttachArtifact(cmd.Context(), runID, artifact)
			}
			if err != nil {
				return err
			}

			if save && (len(args) == 2 || artifact != "") {
				path, err := runfile.Save(app.RunsDir(), run)
				if err != nil {
					return err
				}
				app.Logger().Info().Str("run_id", runID).Str("path", path).Msg("Saved run")
				fmt.Fprintf(cmd.ErrOrStderr(), "%s Saved %s to %s\n", emoji.Success, runID, path)
			}

			format := output.DetectFormat(app.OutputFormat())
			return output.Print(cmd.OutOrStdout(), format, run, table.RunsToTableData([]*fillrun.FillRun{run}))
		},
	}

	cmd.Flags().StringVar(&artifact, "artifact", "", "path of the generated spreadsheet to attach")
	cmd.Flags().BoolVar(&save, "save", false, "write the changed run back to the runs directory")

	return cmd
}
