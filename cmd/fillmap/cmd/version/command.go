// Package version provides the version command.
package version

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/agentstation/fillmap/cmd/application"
	"github.com/agentstation/fillmap/internal/cmd/output"
)

type info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	BuiltBy   string `json:"built_by"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// NewCommand creates the version command.
func NewCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b := app.Build()
			v := info{
				Version:   b.Version,
				Commit:    b.Commit,
				Date:      b.Date,
				BuiltBy:   b.BuiltBy,
				GoVersion: runtime.Version(),
				Platform:  runtime.GOOS + "/" + runtime.GOARCH,
			}

			switch format := output.Format(app.OutputFormat()); format {
			case output.FormatJSON, output.FormatYAML:
				return output.Print(cmd.OutOrStdout(), format, v, output.Data{})
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "fillmap version %s\n", v.Version)
			fmt.Fprintf(w, "commit: %s\n", v.Commit)
			fmt.Fprintf(w, "built: %s\n", v.Date)
			fmt.Fprintf(w, "built by: %s\n", v.BuiltBy)
			fmt.Fprintf(w, "go version: %s\n", v.GoVersion)
			fmt.Fprintf(w, "platform: %s\n", v.Platform)
			return nil
		},
	}
}
