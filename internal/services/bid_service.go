package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/senyabanana/licitaciones-service/internal/admission"
	"github.com/senyabanana/licitaciones-service/internal/criteria"
	"github.com/senyabanana/licitaciones-service/internal/models"
	"github.com/senyabanana/licitaciones-service/internal/notify"
	"github.com/senyabanana/licitaciones-service/internal/repository"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type BidService struct {
	Repo     repository.BidRepository
	Tenders  repository.TenderRepository
	Refs     repository.ReferenceRepository
	Guard    *admission.Guard
	Notifier notify.Notifier
	Logger   *zap.Logger
	validate *validator.Validate
	now      func() time.Time
}

// NewBidService создаёт новый экземпляр BidService.
func NewBidService(repo repository.BidRepository, tenders repository.TenderRepository, refs repository.ReferenceRepository,
	guard *admission.Guard, notifier notify.Notifier, logger *zap.Logger) *BidService {
	return &BidService{
		Repo:     repo,
		Tenders:  tenders,
		Refs:     refs,
		Guard:    guard,
		Notifier: notifier,
		Logger:   logger,
		validate: newValidator(),
		now:      time.Now,
	}
}

// SubmitBid создает предложение поставщика по тендеру.
// Проверка допуска и запись выполняются атомарно.
func (s *BidService) SubmitBid(ctx context.Context, bidReq models.BidRequest) (*models.Bid, error) {
	if err := validateRequest(s.validate, bidReq); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	bid := &models.Bid{
		ID:            uuid.New().String(),
		TenderID:      bidReq.TenderID,
		SupplierID:    bidReq.SupplierID,
		SubmittedAt:   now,
		Status:        models.SubmittedBid,
		OfferedBudget: bidReq.OfferedBudget,
		DeliveryDate:  utcPtr(bidReq.DeliveryDate),
		Description:   bidReq.Description,
		UpdatedAt:     now,
	}

	var admitted admission.Candidate
	err := s.Repo.CreateBid(ctx, bid, func(c admission.Candidate) error {
		if err := s.Guard.Admit(c, bidReq); err != nil {
			return err
		}
		admitted = c
		bid.Responses = orderResponses(c.Tender, bidReq.Responses)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.Logger.Info("bid submitted",
		zap.String("bid_id", bid.ID),
		zap.String("tender_id", bid.TenderID),
		zap.String("supplier_id", bid.SupplierID))

	tender, supplier := admitted.Tender, admitted.Supplier
	deliver(ctx, s.Logger, notify.BidReceived, tender.ID, func(ctx context.Context) error {
		return s.Notifier.NotifyNewBidReceived(ctx, tender.CompanyID, tender.Title, tender.ID, supplier.Name, supplier.ID)
	})
	return bid, nil
}

// UpdateBid изменяет условия и ответы предложения его автором.
func (s *BidService) UpdateBid(ctx context.Context, bidId string, bidReq models.BidUpdateRequest) (*models.Bid, error) {
	if err := validateRequest(s.validate, bidReq); err != nil {
		return nil, err
	}

	return s.Repo.UpdateBid(ctx, bidId, func(b *models.Bid, t *models.Tender) error {
		if err := s.Guard.CheckUpdate(b, t, bidReq); err != nil {
			return err
		}
		b.OfferedBudget = bidReq.OfferedBudget
		b.DeliveryDate = utcPtr(bidReq.DeliveryDate)
		b.Description = bidReq.Description
		b.Responses = orderResponses(t, bidReq.Responses)
		b.UpdatedAt = s.now().UTC()
		return nil
	})
}

// UpdateBidStatus переводит предложение в новый статус при оценке тендера.
func (s *BidService) UpdateBidStatus(ctx context.Context, bidId, status string) (*models.Bid, error) {
	to, ok := models.ParseBidStatus(status)
	if !ok {
		return nil, models.NewValidationError("unsupported bid status: %s", status)
	}

	var from models.BidStatus
	bid, err := s.Repo.UpdateBid(ctx, bidId, func(b *models.Bid, t *models.Tender) error {
		if err := admission.CheckStatusChange(b, t, to); err != nil {
			return err
		}
		from = b.Status
		b.Status = to
		b.UpdatedAt = s.now().UTC()
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.Logger.Info("bid status changed",
		zap.String("bid_id", bid.ID),
		zap.String("from", string(from)),
		zap.String("to", string(bid.Status)))
	return bid, nil
}

// ScoreBid оценивает предложение по критериям тендера и сохраняет итоговый балл.
// Поданное предложение переходит на рассмотрение.
func (s *BidService) ScoreBid(ctx context.Context, bidId string, scoreReq models.BidScoreRequest) (*models.Bid, error) {
	if err := validateRequest(s.validate, scoreReq); err != nil {
		return nil, err
	}
	scores := make(map[string]decimal.Decimal, len(scoreReq.Scores))
	for _, sc := range scoreReq.Scores {
		if _, dup := scores[sc.CriterionID]; dup {
			return nil, models.NewValidationError("duplicate score for criterion %s", sc.CriterionID)
		}
		scores[sc.CriterionID] = sc.Score
	}

	return s.Repo.UpdateBid(ctx, bidId, func(b *models.Bid, t *models.Tender) error {
		if t.Status != models.EvaluationTender {
			return models.NewConflictError("bids of tender %s can be scored only in status %s, current status %s",
				t.ID, models.EvaluationTender, t.Status)
		}
		if !b.Status.Editable() {
			return models.NewStateConflictError(&admission.StatusError{From: b.Status, Action: "score"})
		}
		for id := range scores {
			if _, ok := t.CriterionByID(id); !ok {
				return models.NewValidationError("criterion %s does not belong to tender %s", id, t.ID)
			}
		}
		total, err := criteria.WeightedScore(t.Criteria, scores)
		if err != nil {
			return models.NewValidationError("%s", err.Error())
		}
		b.FinalScore = &total
		b.Status = models.UnderReviewBid
		b.UpdatedAt = s.now().UTC()
		return nil
	})
}

// DeleteBid отзывает предложение. После отзыва поставщик может подать новое.
func (s *BidService) DeleteBid(ctx context.Context, bidId string) error {
	if err := s.Repo.DeleteBid(ctx, bidId); err != nil {
		return err
	}
	s.Logger.Info("bid withdrawn", zap.String("bid_id", bidId))
	return nil
}

// GetBid получает предложение по ID.
func (s *BidService) GetBid(ctx context.Context, bidId string) (*models.Bid, error) {
	return s.Repo.GetBid(ctx, bidId)
}

// GetTenderBids получает предложения по тендеру в порядке подачи.
func (s *BidService) GetTenderBids(ctx context.Context, tenderId string, limit, offset int) ([]models.Bid, error) {
	if _, err := s.Tenders.GetTender(ctx, tenderId); err != nil {
		return nil, err
	}
	return s.Repo.GetBids(ctx, models.BidFilter{TenderID: tenderId, Limit: limit, Offset: offset})
}

// GetSupplierBids получает предложения поставщика.
func (s *BidService) GetSupplierBids(ctx context.Context, supplierId string, limit, offset int) ([]models.Bid, error) {
	if supplierId == "" {
		return nil, models.NewValidationError("missing required query parameter: supplierId")
	}
	supplier, err := s.Refs.GetSupplier(ctx, supplierId)
	if err != nil {
		return nil, fmt.Errorf("failed to get supplier: %w", err)
	}
	if supplier == nil {
		return nil, models.NewNotFoundError("supplier", supplierId)
	}
	return s.Repo.GetBids(ctx, models.BidFilter{SupplierID: supplierId, Limit: limit, Offset: offset})
}

// orderResponses располагает ответы в порядке критериев тендера.
func orderResponses(tender *models.Tender, responses []models.BidResponse) []models.BidResponse {
	position := make(map[string]int, len(tender.Criteria))
	for _, c := range tender.Criteria {
		position[c.ID] = c.Position
	}
	out := append([]models.BidResponse(nil), responses...)
	sort.SliceStable(out, func(i, j int) bool {
		return position[out[i].CriterionID] < position[out[j].CriterionID]
	})
	return out
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
