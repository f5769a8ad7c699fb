package criteria

import (
	"github.com/senyabanana/licitaciones-service/internal/models"

	"github.com/shopspring/decimal"
)

// Rebalance перераспределяет веса черновика после добавления или удаления
// критерия. Порядок критериев сохраняется, исходный срез не меняется.
func Rebalance(draft []models.CriterionRequest) []models.CriterionRequest {
	weights := Redistribute(len(draft))
	out := make([]models.CriterionRequest, len(draft))
	for i, c := range draft {
		c.Weight = weights[i]
		out[i] = c
	}
	return out
}

// Add добавляет критерий в черновик и перераспределяет веса.
func Add(draft []models.CriterionRequest, c models.CriterionRequest) []models.CriterionRequest {
	next := make([]models.CriterionRequest, 0, len(draft)+1)
	next = append(next, draft...)
	next = append(next, c)
	return Rebalance(next)
}

// Remove удаляет критерий по индексу и перераспределяет веса.
// Индекс вне диапазона оставляет черновик без изменений.
func Remove(draft []models.CriterionRequest, index int) []models.CriterionRequest {
	if index < 0 || index >= len(draft) {
		return Rebalance(draft)
	}
	next := make([]models.CriterionRequest, 0, len(draft)-1)
	next = append(next, draft[:index]...)
	next = append(next, draft[index+1:]...)
	return Rebalance(next)
}

// RequestWeights возвращает веса критериев из запроса.
func RequestWeights(reqs []models.CriterionRequest) []decimal.Decimal {
	weights := make([]decimal.Decimal, 0, len(reqs))
	for _, c := range reqs {
		weights = append(weights, c.Weight)
	}
	return weights
}
