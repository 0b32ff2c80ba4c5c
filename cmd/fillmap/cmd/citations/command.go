// Package citations provides the citations command, which resolves
// citation tokens in extraction reasoning to documents and pages.
package citations

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/agentstation/fillmap/cmd/application"
	"github.com/agentstation/fillmap/internal/cmd/output"
	"github.com/agentstation/fillmap/internal/cmd/table"
	"github.com/agentstation/fillmap/pkg/citation"
)

type result struct {
	Segments   []citation.Segment  `json:"segments"`
	Citations  []citation.Citation `json:"citations"`
	Unresolved []string            `json:"unresolved"`
}

// NewCommand creates the citations command.
func NewCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:     "citations <run-id> <text>...",
		Aliases: []string{"cite"},
		GroupID: "core",
		Short:   "Resolve citation tokens against a run's documents",
		Long: `Citations finds tokens such as [D1:p3] or [D2:p5] in text and resolves
each one to a run document and page. Tokens naming a document the run does
not have are listed as unresolved and stay plain text.`,
		Example: `  fillmap citations run-42 'Revenue grew [D1:p3] while costs fell [D2:p5]'`,
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := app.Runs(cmd.Context())
			if err != nil {
				return err
			}
			res, err := svc.Citations(cmd.Context(), args[0], strings.Join(args[1:], " "))
			if err != nil {
				return err
			}

			raw := result{Segments: res.Segments, Citations: res.Citations(), Unresolved: []string{}}
			for _, u := range res.Unresolved {
				raw.Unresolved = append(raw.Unresolved, u.Token)
			}

			format := output.DetectFormat(app.OutputFormat())
			return output.Print(cmd.OutOrStdout(), format, raw, table.CitationsToTableData(res))
		},
	}
}
