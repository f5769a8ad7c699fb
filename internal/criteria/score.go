package criteria

import (
	"errors"
	"fmt"

	"github.com/senyabanana/licitaciones-service/internal/models"

	"github.com/shopspring/decimal"
)

var ErrScoreBounds = errors.New("score must be between 0 and 100")

// WeightedScore считает итоговую оценку предложения: сумму score*weight/100.
// Для критерия с HigherIsBetter=false учитывается 100-score.
// Оценка должна быть задана для каждого критерия.
func WeightedScore(criteria []models.Criterion, scores map[string]decimal.Decimal) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, c := range criteria {
		score, ok := scores[c.ID]
		if !ok {
			return decimal.Zero, fmt.Errorf("criterion %q has no score", c.Name)
		}
		if score.IsNegative() || score.GreaterThan(Total) {
			return decimal.Zero, fmt.Errorf("criterion %q: %w", c.Name, ErrScoreBounds)
		}
		if !c.HigherIsBetter {
			score = Total.Sub(score)
		}
		total = total.Add(score.Mul(c.Weight).Div(Total))
	}
	return total.Round(2), nil
}
