// Package overlay turns citation bounding boxes into zoom-independent
// highlight rectangles and drives page loading in a document viewer.
package overlay

import (
	"math"

	"github.com/agentstation/fillmap/pkg/constants"
	"github.com/agentstation/fillmap/pkg/errors"
)

// BBox is a region of a page in inches, origin at the top-left corner.
type BBox struct {
	Page int     `json:"page" yaml:"page"`
	X0   float64 `json:"x0" yaml:"x0"`
	Y0   float64 `json:"y0" yaml:"y0"`
	X1   float64 `json:"x1" yaml:"x1"`
	Y1   float64 `json:"y1" yaml:"y1"`
}

var coordNames = [4]string{"x0", "y0", "x1", "y1"}

// Validate checks page, finite coordinates and corner ordering.
func (b BBox) Validate() error {
	for i, v := range [4]float64{b.X0, b.Y0, b.X1, b.Y1} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.NewValidationError(coordNames[i], v, "must be a finite number")
		}
	}
	switch {
	case b.Page < 1:
		return errors.NewValidationError("page", b.Page, "must be at least 1")
	case b.X0 < 0 || b.Y0 < 0:
		return errors.NewValidationError("x0", b.X0, "coordinates cannot be negative")
	case b.X1 < b.X0:
		return errors.NewValidationError("x1", b.X1, "must not be left of x0")
	case b.Y1 < b.Y0:
		return errors.NewValidationError("y1", b.Y1, "must not be above y0")
	}
	return nil
}

// PageSize is the rendered size of a page in points.
type PageSize struct {
	WidthPts  float64 `json:"width_pts" yaml:"width_pts"`
	HeightPts float64 `json:"height_pts" yaml:"height_pts"`
}

// Letter is an 8.5x11 inch page.
var Letter = PageSize{WidthPts: constants.LetterWidthPoints, HeightPts: constants.LetterHeightPoints}

// Rect is a highlight region in percent of the rendered page.
type Rect struct {
	Left   float64 `json:"left" yaml:"left"`
	Top    float64 `json:"top" yaml:"top"`
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// Normalize converts an inch bounding box to percentages of the page:
// each coordinate is scaled to points, then divided by the page extent.
func Normalize(b BBox, size PageSize) (Rect, error) {
	if err := b.Validate(); err != nil {
		return Rect{}, err
	}
	if size.WidthPts <= 0 || size.HeightPts <= 0 {
		return Rect{}, errors.NewValidationError("page_size", size, "width and height must be positive")
	}

	pct := func(inches, extent float64) float64 {
		return inches * constants.PointsPerInch / extent * 100
	}
	return Rect{
		Left:   pct(b.X0, size.WidthPts),
		Top:    pct(b.Y0, size.HeightPts),
		Width:  pct(b.X1-b.X0, size.WidthPts),
		Height: pct(b.Y1-b.Y0, size.HeightPts),
	}, nil
}
