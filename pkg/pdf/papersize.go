package pdf

import (
	"errors"
	"math"
)

// PointsPerCentimeter is the number of PDF user-space units in one centimeter (1" = 72pt = 2.54cm).
const PointsPerCentimeter = 72 / 2.54

// MaxPagePoints is the largest page side viewers and RIPs accept (200 inches).
const MaxPagePoints = 14400

// MaxPageCentimeters is MaxPagePoints expressed in centimeters (508 cm).
const MaxPageCentimeters = MaxPagePoints / PointsPerCentimeter

// ErrInvalidPageSize is returned when a page dimension is not a positive finite
// number of at most MaxPagePoints.
var ErrInvalidPageSize = errors.New("pdf: page dimensions must be positive, finite and at most 14400pt")

type PageSize struct {
	Width  float64 // in `pt`
	Height float64 // in `pt`
}

// Centimeters converts a physical size in centimeters to a PageSize in points.
func Centimeters(width, height float64) PageSize {
	return PageSize{Width: width * PointsPerCentimeter, Height: height * PointsPerCentimeter}
}

// Validate reports ErrInvalidPageSize unless both sides are in (0, MaxPagePoints].
func (s PageSize) Validate() error {
	for _, v := range []float64{s.Width, s.Height} {
		if !(v > 0) || math.IsInf(v, 0) || v > MaxPagePoints+1e-9 {
			return ErrInvalidPageSize
		}
	}
	return nil
}
