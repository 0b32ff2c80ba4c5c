// Package runs provides the runs command for listing and inspecting fill runs.
package runs

import (
	"sort"

	"github.com/spf13/cobra"

	"github.com/agentstation/fillmap/cmd/application"
	"github.com/agentstation/fillmap/internal/cmd/output"
	"github.com/agentstation/fillmap/internal/cmd/table"
	"github.com/agentstation/fillmap/pkg/fillrun"
)

// NewCommand creates the runs command with its list and show subcommands.
func NewCommand(app application.Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "runs",
		Aliases: []string{"run"},
		GroupID: "core",
		Short:   "List and inspect fill runs",
		Example: `  fillmap runs list
  fillmap runs list --status awaiting_review
  fillmap runs show run-42
  fillmap runs show run-42 --fields`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newListCommand(app))
	cmd.AddCommand(newShowCommand(app))

	return cmd
}

func newListCommand(app application.Application) *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List stored runs",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := app.Runs(cmd.Context())
			if err != nil {
				return err
			}
			all, err := svc.List(cmd.Context())
			if err != nil {
				return err
			}

			list := make([]*fillrun.FillRun, 0, len(all))
			for _, r := range all {
				if status == "" || string(r.Status) == status {
					list = append(list, r)
				}
			}
			sort.Slice(list, func(i, j int) bool {
				return list[i].UpdatedAt.Time.After(list[j].UpdatedAt.Time)
			})

			app.Logger().Debug().Int("runs", len(list)).Msg("Listing runs")
			format := output.DetectFormat(app.OutputFormat())
			return output.Print(cmd.OutOrStdout(), format, list, table.RunsToTableData(list))
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "only list runs in this status")

	return cmd
}

func newShowCommand(app application.Application) *cobra.Command {
	var fields bool

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show a run's mappings, or its detected fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := app.Runs(cmd.Context())
			if err != nil {
				return err
			}
			run, err := svc.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			data := table.MappingsToTableData(run)
			if fields {
				data = table.FieldsToTableData(run)
			}
			format := output.DetectFormat(app.OutputFormat())
			return output.Print(cmd.OutOrStdout(), format, run, data)
		},
	}

	cmd.Flags().BoolVar(&fields, "fields", false, "list detected fields instead of mappings")

	return cmd
}
