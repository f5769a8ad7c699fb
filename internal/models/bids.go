package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type BidStatus string // Статус предложения

const (
	SubmittedBid   BidStatus = "Submitted"   // Предложение подано
	UnderReviewBid BidStatus = "UnderReview" // Предложение на рассмотрении
	SelectedBid    BidStatus = "Selected"    // Предложение выбрано
	RejectedBid    BidStatus = "Rejected"    // Предложение отклонено

	// awardedBidAlias - синоним Selected, встречается в части выборок.
	awardedBidAlias = "Awarded"
)

// ParseBidStatus приводит строку к статусу предложения, "Awarded" считается Selected.
func ParseBidStatus(s string) (BidStatus, bool) {
	switch BidStatus(s) {
	case SubmittedBid, UnderReviewBid, SelectedBid, RejectedBid:
		return BidStatus(s), true
	}
	if s == awardedBidAlias {
		return SelectedBid, true
	}
	return "", false
}

// Editable сообщает, может ли поставщик еще менять предложение.
func (s BidStatus) Editable() bool {
	return s == SubmittedBid || s == UnderReviewBid
}

// Bid представляет модель предложения (propuesta).
type Bid struct {
	ID            string           `json:"id"`
	TenderID      string           `json:"tenderId"`
	SupplierID    string           `json:"supplierId"`
	SubmittedAt   time.Time        `json:"submittedAt"`
	Status        BidStatus        `json:"status"`
	OfferedBudget decimal.Decimal  `json:"offeredBudget"`
	DeliveryDate  *time.Time       `json:"deliveryDate,omitempty"`
	Description   string           `json:"description"`
	Responses     []BidResponse    `json:"responses"`
	FinalScore    *decimal.Decimal `json:"finalScore,omitempty"`
	IsDeleted     bool             `json:"-"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}

// BidResponse - ответ поставщика по одному критерию тендера.
type BidResponse struct {
	CriterionID string `json:"criterionId" validate:"required,uuid"`
	Value       string `json:"value" validate:"required,max=2000"`
}

// BidRequest представляет структуру запроса для подачи предложения.
type BidRequest struct {
	TenderID      string          `json:"tenderId" validate:"required,uuid"`
	SupplierID    string          `json:"supplierId" validate:"required,uuid"`
	OfferedBudget decimal.Decimal `json:"offeredBudget"`
	DeliveryDate  *time.Time      `json:"deliveryDate,omitempty"`
	Description   string          `json:"description" validate:"required"`
	Responses     []BidResponse   `json:"responses" validate:"dive"`
}

// BidUpdateRequest представляет изменение предложения его автором.
// Тендер и поставщик не меняются.
type BidUpdateRequest struct {
	OfferedBudget decimal.Decimal `json:"offeredBudget"`
	DeliveryDate  *time.Time      `json:"deliveryDate,omitempty"`
	Description   string          `json:"description" validate:"required"`
	Responses     []BidResponse   `json:"responses" validate:"dive"`
}

// CriterionScore - оценка предложения по одному критерию, от 0 до 100.
type CriterionScore struct {
	CriterionID string          `json:"criterionId" validate:"required,uuid"`
	Score       decimal.Decimal `json:"score"`
}

// BidScoreRequest представляет запрос на оценку предложения.
type BidScoreRequest struct {
	Scores []CriterionScore `json:"scores" validate:"required,min=1,dive"`
}

// BidFilter задает параметры выборки предложений.
type BidFilter struct {
	TenderID   string
	SupplierID string
	Limit      int
	Offset     int
}
