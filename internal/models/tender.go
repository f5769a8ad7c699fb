package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type (
	TenderStatus string // Статус тендера
	ScoringMode  string // Способ оценки критерия
)

const (
	PublishedTender    TenderStatus = "Published"    // Тендер опубликован, принимает предложения
	EvaluationTender   TenderStatus = "EnEvaluation" // Прием закрыт, идет оценка
	AwardedTender      TenderStatus = "Awarded"      // Победитель выбран
	ClosedTender       TenderStatus = "Closed"       // Тендер завершен
	CancelledTender    TenderStatus = "Cancelled"    // Зарезервирован, переходов нет
	NumericScoring     ScoringMode  = "numeric"
	DescriptiveScoring ScoringMode  = "descriptive"
)

// Valid проверяет, что статус входит в перечисление.
func (s TenderStatus) Valid() bool {
	switch s {
	case PublishedTender, EvaluationTender, AwardedTender, ClosedTender, CancelledTender:
		return true
	default:
		return false
	}
}

// Valid проверяет, что способ оценки известен.
func (m ScoringMode) Valid() bool {
	return m == NumericScoring || m == DescriptiveScoring
}

// Tender представляет модель тендера (licitación).
type Tender struct {
	ID              string           `json:"id"`
	Title           string           `json:"title"`
	Description     string           `json:"description"`
	StartAt         time.Time        `json:"startAt"`
	CloseAt         time.Time        `json:"closeAt"`
	EstimatedBudget *decimal.Decimal `json:"estimatedBudget,omitempty"`
	CompanyID       string           `json:"companyId"`
	ProjectID       *string          `json:"projectId,omitempty"`
	CategoryID      string           `json:"categoryId"`
	CurrencyID      string           `json:"currencyId"`
	Status          TenderStatus     `json:"status"`
	IsDeleted       bool             `json:"-"`
	CreatedAt       time.Time        `json:"createdAt"`
	Criteria        []Criterion      `json:"criteria"`
}

// Criterion представляет критерий оценки тендера.
type Criterion struct {
	ID             string          `json:"id"`
	TenderID       string          `json:"tenderId"`
	Name           string          `json:"name"`
	Description    *string         `json:"description,omitempty"`
	Weight         decimal.Decimal `json:"weight"`
	HigherIsBetter bool            `json:"higherIsBetter"`
	Mode           ScoringMode     `json:"scoringMode"`
	Position       int             `json:"position"`
}

// CriterionByID возвращает критерий тендера по идентификатору.
func (t *Tender) CriterionByID(id string) (*Criterion, bool) {
	for i := range t.Criteria {
		if t.Criteria[i].ID == id {
			return &t.Criteria[i], true
		}
	}
	return nil, false
}

// Weights возвращает веса критериев в порядке их следования.
func (t *Tender) Weights() []decimal.Decimal {
	weights := make([]decimal.Decimal, 0, len(t.Criteria))
	for _, c := range t.Criteria {
		weights = append(weights, c.Weight)
	}
	return weights
}

// TenderRequest представляет структуру запроса для создания или обновления тендера.
// Поле Status игнорируется: новый тендер всегда публикуется.
type TenderRequest struct {
	Title           string             `json:"title" validate:"required,max=200"`
	Description     string             `json:"description" validate:"required"`
	StartAt         time.Time          `json:"startAt" validate:"required"`
	CloseAt         time.Time          `json:"closeAt" validate:"required"`
	EstimatedBudget *decimal.Decimal   `json:"estimatedBudget,omitempty"`
	CompanyID       string             `json:"companyId" validate:"required,uuid"`
	ProjectID       *string            `json:"projectId,omitempty" validate:"omitempty,uuid"`
	CategoryID      string             `json:"categoryId" validate:"required,uuid"`
	CurrencyID      string             `json:"currencyId" validate:"required,uuid"`
	Status          TenderStatus       `json:"status,omitempty"`
	Criteria        []CriterionRequest `json:"criteria" validate:"required,min=1,dive"`
}

// CriterionRequest описывает критерий в запросе на создание или замену.
// ID указывает существующий критерий тендера, который нужно сохранить.
type CriterionRequest struct {
	ID             *string         `json:"id,omitempty" validate:"omitempty,uuid"`
	Name           string          `json:"name" validate:"required,max=200"`
	Description    *string         `json:"description,omitempty"`
	Weight         decimal.Decimal `json:"weight"`
	HigherIsBetter bool            `json:"higherIsBetter"`
	Mode           ScoringMode     `json:"scoringMode" validate:"omitempty,oneof=numeric descriptive"`
}

// TenderFilter задает параметры выборки тендеров.
type TenderFilter struct {
	CompanyID string
	Statuses  []string
	Limit     int
	Offset    int
}
