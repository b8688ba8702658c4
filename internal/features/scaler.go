package features

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"tabclean/domain/core"
)

// StandardScaler centers each column to zero mean and scales it to unit
// population variance. Constant columns are centered only.
type StandardScaler struct {
	Mean  []float64
	Scale []float64
}

// NewStandardScaler creates an unfitted scaler
func NewStandardScaler() *StandardScaler {
	return &StandardScaler{}
}

// Fit learns per-column means and standard deviations
func (s *StandardScaler) Fit(x mat.Matrix) error {
	r, c := x.Dims()
	if r == 0 {
		return fmt.Errorf("scaler fit: %w", core.ErrEmptySource)
	}
	s.Mean = make([]float64, c)
	s.Scale = make([]float64, c)
	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, x)
		mean, std := stat.PopMeanStdDev(col, nil)
		if std == 0 {
			std = 1
		}
		s.Mean[j] = mean
		s.Scale[j] = std
	}
	return nil
}

// Transform returns the scaled copy of x
func (s *StandardScaler) Transform(x mat.Matrix) (*mat.Dense, error) {
	if err := s.check(x); err != nil {
		return nil, err
	}
	var out mat.Dense
	out.Apply(func(_, j int, v float64) float64 {
		return (v - s.Mean[j]) / s.Scale[j]
	}, x)
	return &out, nil
}

// FitTransform fits on x and returns it scaled
func (s *StandardScaler) FitTransform(x mat.Matrix) (*mat.Dense, error) {
	if err := s.Fit(x); err != nil {
		return nil, err
	}
	return s.Transform(x)
}

// InverseTransform maps scaled values back to the original units
func (s *StandardScaler) InverseTransform(x mat.Matrix) (*mat.Dense, error) {
	if err := s.check(x); err != nil {
		return nil, err
	}
	var out mat.Dense
	out.Apply(func(_, j int, v float64) float64 {
		return v*s.Scale[j] + s.Mean[j]
	}, x)
	return &out, nil
}

func (s *StandardScaler) check(x mat.Matrix) error {
	if s.Mean == nil {
		return core.ErrNotFitted
	}
	if _, c := x.Dims(); c != len(s.Mean) {
		return fmt.Errorf("scaler fitted on %d columns, got %d", len(s.Mean), c)
	}
	return nil
}
