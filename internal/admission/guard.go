// Package admission проверяет предложения поставщиков перед записью.
package admission

import (
	"fmt"
	"time"

	"github.com/senyabanana/licitaciones-service/internal/lifecycle"
	"github.com/senyabanana/licitaciones-service/internal/models"

	"github.com/shopspring/decimal"
)

// Policy - настраиваемые правила приема предложений.
type Policy struct {
	// AllowDuringEvaluation разрешает подачу предложений в статусе EnEvaluation.
	AllowDuringEvaluation bool
}

// Guard проверяет подачу и изменение предложений.
type Guard struct {
	policy Policy
}

// NewGuard создает новый экземпляр Guard.
func NewGuard(policy Policy) *Guard {
	return &Guard{policy: policy}
}

// Candidate - состояние хранилища, прочитанное в транзакции подачи.
type Candidate struct {
	TenderID    string
	SupplierID  string
	Tender      *models.Tender   // nil, если тендер не найден или удален
	Supplier    *models.Supplier // nil, если поставщик не найден
	ActiveBidID string           // действующее предложение этой пары, если есть
}

// Admit решает, можно ли создать предложение.
func (g *Guard) Admit(c Candidate, req models.BidRequest) error {
	if c.Tender == nil || c.Tender.IsDeleted {
		return models.NewNotFoundError("tender", c.TenderID)
	}
	if !lifecycle.AcceptsBids(c.Tender.Status, g.policy.AllowDuringEvaluation) {
		return models.NewConflictError("tender %s does not accept bids in status %s", c.Tender.ID, c.Tender.Status)
	}
	if c.Supplier == nil {
		return models.NewNotFoundError("supplier", c.SupplierID)
	}
	if c.ActiveBidID != "" {
		return models.NewConflictError("supplier %s already has an active bid %s for tender %s; edit or withdraw it instead",
			c.Supplier.ID, c.ActiveBidID, c.Tender.ID)
	}
	if err := checkTerms(req.OfferedBudget, req.DeliveryDate, c.Tender); err != nil {
		return err
	}
	return CheckResponses(c.Tender, req.Responses)
}

// CheckUpdate решает, может ли автор изменить предложение.
func (g *Guard) CheckUpdate(bid *models.Bid, tender *models.Tender, req models.BidUpdateRequest) error {
	if tender == nil || tender.IsDeleted {
		return models.NewNotFoundError("tender", bid.TenderID)
	}
	if !bid.Status.Editable() {
		return models.NewStateConflictError(&StatusError{From: bid.Status, Action: "edit"})
	}
	if err := lifecycle.CanEdit(tender.Status); err != nil {
		return models.NewStateConflictError(err)
	}
	if err := checkTerms(req.OfferedBudget, req.DeliveryDate, tender); err != nil {
		return err
	}
	return CheckResponses(tender, req.Responses)
}

func checkTerms(budget decimal.Decimal, delivery *time.Time, tender *models.Tender) error {
	if !budget.IsPositive() {
		return models.NewValidationError("offered budget must be positive")
	}
	if delivery != nil && delivery.Before(tender.StartAt) {
		return models.NewValidationError("delivery date must not precede tender start")
	}
	return nil
}

// CheckResponses требует ровно один ответ на каждый критерий тендера.
// Ответы на чужие критерии отклоняются.
func CheckResponses(tender *models.Tender, responses []models.BidResponse) error {
	seen := make(map[string]bool, len(responses))
	for _, r := range responses {
		c, ok := tender.CriterionByID(r.CriterionID)
		if !ok {
			return models.NewValidationError("criterion %s does not belong to tender %s", r.CriterionID, tender.ID)
		}
		if seen[r.CriterionID] {
			return models.NewValidationError("duplicate response for criterion %s", r.CriterionID)
		}
		seen[r.CriterionID] = true
		if c.Mode == models.NumericScoring {
			if _, err := decimal.NewFromString(r.Value); err != nil {
				return models.NewValidationError("criterion %q expects a numeric value, got %q", c.Name, r.Value)
			}
		}
	}
	for _, c := range tender.Criteria {
		if !seen[c.ID] {
			return models.NewValidationError("missing response for criterion %q", c.Name)
		}
	}
	return nil
}

// StatusError - недопустимое действие или переход для статуса предложения.
type StatusError struct {
	From   models.BidStatus
	To     models.BidStatus
	Action string
}

func (e *StatusError) Error() string {
	if e.To != "" {
		return fmt.Sprintf("cannot move bid from %s to %s", e.From, e.To)
	}
	return fmt.Sprintf("cannot %s bid in status %s", e.Action, e.From)
}

var allowedStatusTransition = map[models.BidStatus][]models.BidStatus{
	models.SubmittedBid:   {models.UnderReviewBid, models.RejectedBid},
	models.UnderReviewBid: {models.SelectedBid, models.RejectedBid},
	models.SelectedBid:    {},
	models.RejectedBid:    {},
}

// CheckStatusChange проверяет перевод предложения компанией при оценке.
// Менять статусы можно, пока тендер в оценке или уже присужден.
func CheckStatusChange(bid *models.Bid, tender *models.Tender, to models.BidStatus) error {
	if tender.Status != models.EvaluationTender && tender.Status != models.AwardedTender {
		return models.NewConflictError("bids of tender %s cannot be reviewed in status %s", tender.ID, tender.Status)
	}
	if !contains(allowedStatusTransition[bid.Status], to) {
		return models.NewStateConflictError(&StatusError{From: bid.Status, To: to})
	}
	return nil
}

func contains(statuses []models.BidStatus, s models.BidStatus) bool {
	for _, v := range statuses {
		if v == s {
			return true
		}
	}
	return false
}
