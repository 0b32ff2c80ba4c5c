// Package mapping provides the map command for adding, editing and
// removing cell mappings.
package mapping

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentstation/fillmap/cmd/application"
	"github.com/agentstation/fillmap/internal/cmd/emoji"
	"github.com/agentstation/fillmap/internal/cmd/output"
	"github.com/agentstation/fillmap/internal/cmd/runfile"
	"github.com/agentstation/fillmap/internal/cmd/table"
	"github.com/agentstation/fillmap/internal/runs"
	"github.com/agentstation/fillmap/pkg/fillrun"
	"github.com/agentstation/fillmap/pkg/provenance"
	"github.com/agentstation/fillmap/pkg/reconcile"
)

// result is the JSON and YAML shape of a mutation.
type result struct {
	RunID      string                `json:"run_id"`
	Status     fillrun.Status        `json:"status"`
	Cell       fillrun.CellRef       `json:"cell"`
	Resolution reconcile.Resolution  `json:"resolution"`
	Provenance provenance.Provenance `json:"provenance"`
	SavedTo    string                `json:"saved_to,omitempty"`
}

// mutationFlags are shared by add and edit.
type mutationFlags struct {
	field      string
	value      string
	confidence float64
	reasoning  string
	label      string
	save       bool
}

func (f *mutationFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.field, "field", "", "detected field id to link, e.g. F7")
	cmd.Flags().StringVar(&f.value, "value", "", "value to show in the cell")
	cmd.Flags().Float64Var(&f.confidence, "confidence", 1, "confidence of the value, 0 to 1")
	cmd.Flags().StringVar(&f.reasoning, "reasoning", "", "why the cell holds this value")
	cmd.Flags().StringVar(&f.label, "label", "", "spreadsheet label of the cell")
	cmd.Flags().BoolVar(&f.save, "save", false, "write the changed run back to the runs directory")
}

// options turns the flags the user set into mutation options.
func (f *mutationFlags) options(cmd *cobra.Command) []reconcile.MutationOption {
	var opts []reconcile.MutationOption
	if cmd.Flags().Changed("value") {
		opts = append(opts, reconcile.WithValue(f.value))
	}
	if cmd.Flags().Changed("confidence") {
		opts = append(opts, reconcile.WithConfidence(f.confidence))
	}
	if cmd.Flags().Changed("reasoning") {
		opts = append(opts, reconcile.WithReasoning(f.reasoning))
	}
	if cmd.Flags().Changed("label") {
		opts = append(opts, reconcile.WithLabel(f.label))
	}
	return opts
}

// NewCommand creates the map command with its add, edit and remove subcommands.
func NewCommand(app application.Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "map",
		Aliases: []string{"mapping", "mappings"},
		GroupID: "core",
		Short:   "Add, edit or remove cell mappings",
		Long: `Map changes which value a spreadsheet cell will receive.

A mapping either links a cell to a detected PDF field, whose extracted value
the cell then shows, or holds a manual value typed by a reviewer. Formula
cells cannot be mapped. Editing a completed run moves it back to review.`,
		Example: `  fillmap map add run-42 Sheet1!B4 --field F7
  fillmap map add run-42 Sheet1!D2 --value Q3
  fillmap map edit run-42 Sheet1!B4 --value 1,250,000 --reasoning "restated"
  fillmap map remove run-42 Sheet1!C4 --save`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newAddCommand(app))
	cmd.AddCommand(newEditCommand(app))
	cmd.AddCommand(newRemoveCommand(app))

	return cmd
}

func newAddCommand(app application.Application) *cobra.Command {
	flags := &mutationFlags{}
	cmd := &cobra.Command{
		Use:   "add <run-id> <Sheet!A1>",
		Short: "Map a cell to a field or a manual value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutate(cmd, app, args, flags.save, func(svc *runs.Service, ref fillrun.CellRef) (*fillrun.FillRun, error) {
				return svc.AddMapping(cmd.Context(), args[0], ref, flags.field, flags.options(cmd)...)
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func newEditCommand(app application.Application) *cobra.Command {
	flags := &mutationFlags{}
	cmd := &cobra.Command{
		Use:   "edit <run-id> <Sheet!A1>",
		Short: "Change a cell's mapping or manual value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := flags.options(cmd)
			if cmd.Flags().Changed("field") {
				opts = append(opts, reconcile.WithField(flags.field))
			}
			return mutate(cmd, app, args, flags.save, func(svc *runs.Service, ref fillrun.CellRef) (*fillrun.FillRun, error) {
				return svc.EditMapping(cmd.Context(), args[0], ref, opts...)
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func newRemoveCommand(app application.Application) *cobra.Command {
	var save bool
	cmd := &cobra.Command{
		Use:     "remove <run-id> <Sheet!A1>",
		Aliases: []string{"rm"},
		Short:   "Remove a cell's mapping so it shows the template value again",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutate(cmd, app, args, save, func(svc *runs.Service, ref fillrun.CellRef) (*fillrun.FillRun, error) {
				return svc.RemoveMapping(cmd.Context(), args[0], ref)
			})
		},
	}
	cmd.Flags().BoolVar(&save, "save", false, "write the changed run back to the runs directory")
	return cmd
}

// mutate parses the cell argument, applies fn and prints the recorded write.
func mutate(
	cmd *cobra.Command,
	app application.Application,
	args []string,
	save bool,
	fn func(svc *runs.Service, ref fillrun.CellRef) (*fillrun.FillRun, error),
) error {
	runID := args[0]
	ref, err := fillrun.ParseCellRef(args[1])
	if err != nil {
		return err
	}

	svc, err := app.Runs(cmd.Context())
	if err != nil {
		return err
	}
	run, err := fn(svc, ref)
	if err != nil {
		return err
	}

	res, err := svc.Resolve(cmd.Context(), runID, ref)
	if err != nil {
		return err
	}
	out := result{RunID: runID, Status: run.Status, Cell: ref, Resolution: res}
	if p, ok := svc.Provenance(runID)[ref.Key()]; ok {
		out.Provenance = p
	}

	if save {
		path, err := runfile.Save(app.RunsDir(), run)
		if err != nil {
			return err
		}
		out.SavedTo = path
		app.Logger().Info().Str("run_id", runID).Str("path", path).Msg("Saved run")
		fmt.Fprintf(cmd.ErrOrStderr(), "%s Saved %s to %s\n", emoji.Success, runID, path)
	}

	format := output.DetectFormat(app.OutputFormat())
	return output.Print(cmd.OutOrStdout(), format, out, table.ProvenanceToTableData(provenance.Map{ref.Key(): out.Provenance}))
}
