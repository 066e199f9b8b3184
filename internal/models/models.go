// Package models holds the forecasting adapters behind one interface.
//
// Every adapter receives an already cleaned frame and the target column name and returns
// a series. Moving average is a trailing smoother; every other adapter returns in-sample
// fitted or predicted values for the rows it was given, not values for unseen future
// periods. Evaluation code that scores these against a hold-out slice is therefore
// comparing shapes, not genuine out-of-sample forecasts.
package models

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/wonny/finsight/internal/dataset"
)

var (
	// ErrInsufficientData is returned when a model has too few rows to fit
	ErrInsufficientData = errors.New("insufficient data")
	// ErrNoDates is returned by adapters that need a date index
	ErrNoDates = errors.New("date column required")
	// ErrNoFeatures is returned when a regression has nothing to regress on
	ErrNoFeatures = errors.New("no feature columns")
	// ErrUndefinedValues is returned when an input column still holds NaN (constant column)
	ErrUndefinedValues = errors.New("undefined values in input")
)

// Adapter produces a forecast series for the target column of a cleaned frame
type Adapter interface {
	Forecast(ctx context.Context, f *dataset.Frame, target string) (*dataset.Series, error)
}

// Func adapts a plain function to Adapter
type Func func(ctx context.Context, f *dataset.Frame, target string) (*dataset.Series, error)

// Forecast calls fn
func (fn Func) Forecast(ctx context.Context, f *dataset.Frame, target string) (*dataset.Series, error) {
	return fn(ctx, f, target)
}

// definedColumn returns a column that must not contain NaN
func definedColumn(f *dataset.Frame, name string) ([]float64, error) {
	vals, err := f.Column(name)
	if err != nil {
		return nil, err
	}
	for _, v := range vals {
		if math.IsNaN(v) {
			return nil, fmt.Errorf("%w: column %s", ErrUndefinedValues, name)
		}
	}
	return vals, nil
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// leastSquares returns the minimum-norm solution of x·beta ≈ y.
// penalty, when non-nil, adds a ridge term penalty[j]·beta[j]² per coefficient
// by augmenting the system with sqrt(penalty[j]) rows.
func leastSquares(x *mat.Dense, y []float64, penalty []float64) ([]float64, error) {
	rows, cols := x.Dims()
	a, b := x, y

	if penalty != nil {
		if len(penalty) != cols {
			return nil, fmt.Errorf("penalty has %d entries, want %d", len(penalty), cols)
		}
		aug := mat.NewDense(rows+cols, cols, nil)
		aug.Slice(0, rows, 0, cols).(*mat.Dense).Copy(x)
		for j, p := range penalty {
			aug.Set(rows+j, j, math.Sqrt(p))
		}
		a = aug
		b = append(append([]float64(nil), y...), make([]float64, cols)...)
	}

	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDThin); !ok {
		return nil, errors.New("least squares: SVD factorization failed")
	}
	rank := svd.Rank(1e-12)
	if rank == 0 {
		return nil, errors.New("least squares: design matrix has rank zero")
	}

	beta := mat.NewVecDense(cols, nil)
	svd.SolveVecTo(beta, mat.NewVecDense(len(b), b), rank)
	return beta.RawVector().Data, nil
}

// predict returns x·beta
func predict(x *mat.Dense, beta []float64) []float64 {
	rows, _ := x.Dims()
	out := mat.NewVecDense(rows, nil)
	out.MulVec(x, mat.NewVecDense(len(beta), beta))
	return out.RawVector().Data
}
