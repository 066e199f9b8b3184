package models

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/wonny/finsight/internal/dataset"
)

// LinearRegression regresses the target on every other value column with an intercept.
// The output is positional: it carries no date index.
type LinearRegression struct{}

// NewLinearRegression creates the adapter
func NewLinearRegression() *LinearRegression {
	return &LinearRegression{}
}

// Forecast returns in-sample predictions
func (l *LinearRegression) Forecast(_ context.Context, f *dataset.Frame, target string) (*dataset.Series, error) {
	y, err := definedColumn(f, target)
	if err != nil {
		return nil, err
	}

	var features [][]float64
	for _, c := range f.Columns() {
		if c == target {
			continue
		}
		col, err := definedColumn(f, c)
		if err != nil {
			return nil, err
		}
		features = append(features, col)
	}
	if len(features) == 0 {
		return nil, fmt.Errorf("%w: linear regression needs a column besides %s", ErrNoFeatures, target)
	}
	if len(y) == 0 {
		return nil, fmt.Errorf("%w: linear regression got no rows", ErrInsufficientData)
	}

	x := mat.NewDense(len(y), len(features)+1, nil)
	for i := range y {
		x.Set(i, 0, 1)
		for j, col := range features {
			x.Set(i, j+1, col[i])
		}
	}

	beta, err := leastSquares(x, y, nil)
	if err != nil {
		return nil, fmt.Errorf("linear regression: %w", err)
	}

	return dataset.NewSeries(target, nil, predict(x, beta)), nil
}
