// Package criteria проверяет и перераспределяет веса критериев оценки тендера.
//
// Один и тот же код используется сервером при сохранении тендера и
// клиентом при редактировании черновика, поэтому перераспределение
// всегда дает веса, проходящие Validate.
package criteria

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Step - шаг, с которым раздаются веса при перераспределении.
const Step = 5

var (
	Total     = decimal.NewFromInt(100)
	Tolerance = decimal.RequireFromString("0.01")
)

var (
	ErrNoCriteria   = errors.New("tender must have at least one criterion")
	ErrWeightBounds = errors.New("criterion weight must be greater than 0 and at most 100")
	ErrWeightSum    = errors.New("criteria weights must sum to 100")
	ErrWeightScale  = errors.New("criterion weight must have at most 2 decimal places")
)

// Scale - число знаков после запятой, с которым хранится вес.
const Scale = 2

// WeightError указывает на критерий с недопустимым весом.
type WeightError struct {
	Index  int
	Weight decimal.Decimal
}

func (e *WeightError) Error() string {
	return fmt.Sprintf("criterion #%d: weight %s: %v", e.Index+1, e.Weight.String(), ErrWeightBounds)
}

func (e *WeightError) Unwrap() error { return ErrWeightBounds }

// ScaleError указывает на вес с лишними знаками после запятой.
type ScaleError struct {
	Index  int
	Weight decimal.Decimal
}

func (e *ScaleError) Error() string {
	return fmt.Sprintf("criterion #%d: weight %s: %v", e.Index+1, e.Weight.String(), ErrWeightScale)
}

func (e *ScaleError) Unwrap() error { return ErrWeightScale }

// SumError указывает на сумму весов, отличную от 100.
type SumError struct {
	Sum decimal.Decimal
}

func (e *SumError) Error() string {
	return fmt.Sprintf("%v, got %s", ErrWeightSum, e.Sum.String())
}

func (e *SumError) Unwrap() error { return ErrWeightSum }

// Validate проверяет веса: список не пуст, каждый вес в (0, 100]
// и не точнее сотых, сумма отличается от 100 не более чем на Tolerance.
func Validate(weights []decimal.Decimal) error {
	if len(weights) == 0 {
		return ErrNoCriteria
	}
	sum := decimal.Zero
	for i, w := range weights {
		if !w.IsPositive() || w.GreaterThan(Total) {
			return &WeightError{Index: i, Weight: w}
		}
		if !w.Equal(w.Round(Scale)) {
			return &ScaleError{Index: i, Weight: w}
		}
		sum = sum.Add(w)
	}
	if sum.Sub(Total).Abs().GreaterThan(Tolerance) {
		return &SumError{Sum: sum}
	}
	return nil
}

// Redistribute раздает 100 между n критериями кратно Step.
// Первые remainder/Step критериев получают на Step больше остальных.
func Redistribute(n int) []decimal.Decimal {
	if n <= 0 {
		return []decimal.Decimal{}
	}
	base := 100 / n / Step * Step
	remainder := 100 - base*n
	bumped := remainder / Step

	weights := make([]decimal.Decimal, n)
	for i := range weights {
		w := base
		if i < bumped {
			w += Step
		}
		weights[i] = decimal.NewFromInt(int64(w))
	}
	return weights
}

// Sum возвращает сумму весов.
func Sum(weights []decimal.Decimal) decimal.Decimal {
	sum := decimal.Zero
	for _, w := range weights {
		sum = sum.Add(w)
	}
	return sum
}
