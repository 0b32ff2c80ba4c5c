// Package overlay provides the overlay command, which converts a citation
// bounding box to a highlight rectangle in page percentages.
package overlay

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/agentstation/fillmap/cmd/application"
	"github.com/agentstation/fillmap/internal/cmd/output"
	"github.com/agentstation/fillmap/internal/cmd/table"
	"github.com/agentstation/fillmap/pkg/errors"
	"github.com/agentstation/fillmap/pkg/overlay"
)

type result struct {
	BBox     overlay.BBox     `json:"bbox"`
	PageSize overlay.PageSize `json:"page_size"`
	Rect     overlay.Rect     `json:"rect"`
}

// NewCommand creates the overlay command.
func NewCommand(app application.Application) *cobra.Command {
	size := overlay.Letter

	cmd := &cobra.Command{
		Use:     "overlay <page> <x0> <y0> <x1> <y1>",
		Aliases: []string{"bbox"},
		GroupID: "core",
		Short:   "Convert an inch bounding box to a highlight rectangle",
		Long: `Overlay converts a bounding box given in inches from the top-left corner
of a page into left, top, width and height percentages of the rendered page,
so the highlight stays aligned at any zoom level.`,
		Example: `  fillmap overlay 1 1.0 1.0 2.0 1.5
  fillmap overlay 3 0.5 2 4 2.25 --width 595 --height 842`,
		Args: cobra.ExactArgs(5),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := parseBBox(args)
			if err != nil {
				return err
			}
			rect, err := overlay.Normalize(b, size)
			if err != nil {
				return err
			}

			format := output.DetectFormat(app.OutputFormat())
			return output.Print(cmd.OutOrStdout(), format,
				result{BBox: b, PageSize: size, Rect: rect},
				table.RectToTableData(b, size, rect))
		},
	}

	cmd.Flags().Float64Var(&size.WidthPts, "width", size.WidthPts, "rendered page width in points")
	cmd.Flags().Float64Var(&size.HeightPts, "height", size.HeightPts, "rendered page height in points")

	return cmd
}

func parseBBox(args []string) (overlay.BBox, error) {
	page, err := strconv.Atoi(args[0])
	if err != nil {
		return overlay.BBox{}, errors.NewValidationError("page", args[0], "must be a page number")
	}

	names := []string{"x0", "y0", "x1", "y1"}
	coords := make([]float64, len(names))
	for i, name := range names {
		coords[i], err = strconv.ParseFloat(args[i+1], 64)
		if err != nil {
			return overlay.BBox{}, errors.NewValidationError(name, args[i+1], "must be a number of inches")
		}
	}

	b := overlay.BBox{Page: page, X0: coords[0], Y0: coords[1], X1: coords[2], Y1: coords[3]}
	return b, b.Validate()
}
