package services

import (
	"context"
	"fmt"
	"time"

	"github.com/senyabanana/licitaciones-service/internal/criteria"
	"github.com/senyabanana/licitaciones-service/internal/lifecycle"
	"github.com/senyabanana/licitaciones-service/internal/models"
	"github.com/senyabanana/licitaciones-service/internal/notify"
	"github.com/senyabanana/licitaciones-service/internal/repository"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type TenderService struct {
	Repo     repository.TenderRepository
	Refs     repository.ReferenceRepository
	Notifier notify.Notifier
	Logger   *zap.Logger
	validate *validator.Validate
	now      func() time.Time
}

// NewTenderService создаёт новый экземпляр TenderService.
func NewTenderService(repo repository.TenderRepository, refs repository.ReferenceRepository, notifier notify.Notifier, logger *zap.Logger) *TenderService {
	return &TenderService{
		Repo:     repo,
		Refs:     refs,
		Notifier: notifier,
		Logger:   logger,
		validate: newValidator(),
		now:      time.Now,
	}
}

// FetchTenders получает список тендеров.
func (s *TenderService) FetchTenders(ctx context.Context, limit, offset int, statuses []string) ([]models.Tender, error) {
	for _, status := range statuses {
		if !models.TenderStatus(status).Valid() {
			return nil, models.NewValidationError("unsupported tender status: %s", status)
		}
	}
	return s.Repo.GetTenders(ctx, models.TenderFilter{Statuses: statuses, Limit: limit, Offset: offset})
}

// GetCompanyTenders получает список тендеров компании.
func (s *TenderService) GetCompanyTenders(ctx context.Context, companyId string, limit, offset int) ([]models.Tender, error) {
	if companyId == "" {
		return nil, models.NewValidationError("missing required query parameter: companyId")
	}
	exists, err := s.Refs.CompanyExists(ctx, companyId)
	if err != nil {
		return nil, fmt.Errorf("failed to check company existence: %w", err)
	}
	if !exists {
		return nil, models.NewNotFoundError("company", companyId)
	}
	return s.Repo.GetTenders(ctx, models.TenderFilter{CompanyID: companyId, Limit: limit, Offset: offset})
}

// GetTender получает тендер по ID.
func (s *TenderService) GetTender(ctx context.Context, tenderId string) (*models.Tender, error) {
	return s.Repo.GetTender(ctx, tenderId)
}

// GetTenderStatus получает статус тендера.
func (s *TenderService) GetTenderStatus(ctx context.Context, tenderId string) (models.TenderStatus, error) {
	tender, err := s.Repo.GetTender(ctx, tenderId)
	if err != nil {
		return "", err
	}
	return tender.Status, nil
}

// CreateTender создает новый тендер в статусе Published.
func (s *TenderService) CreateTender(ctx context.Context, tenderReq models.TenderRequest) (*models.Tender, error) {
	if err := s.checkRequest(tenderReq); err != nil {
		return nil, err
	}
	exists, err := s.Refs.CompanyExists(ctx, tenderReq.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("failed to check company existence: %w", err)
	}
	if !exists {
		return nil, models.NewNotFoundError("company", tenderReq.CompanyID)
	}
	if err := s.checkReferences(ctx, tenderReq); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	tender := &models.Tender{
		ID:              uuid.New().String(),
		Title:           tenderReq.Title,
		Description:     tenderReq.Description,
		StartAt:         tenderReq.StartAt.UTC(),
		CloseAt:         tenderReq.CloseAt.UTC(),
		EstimatedBudget: tenderReq.EstimatedBudget,
		CompanyID:       tenderReq.CompanyID,
		ProjectID:       tenderReq.ProjectID,
		CategoryID:      tenderReq.CategoryID,
		CurrencyID:      tenderReq.CurrencyID,
		Status:          lifecycle.Create(),
		CreatedAt:       now,
	}
	tender.Criteria, err = buildCriteria(tender.ID, tenderReq.Criteria, nil)
	if err != nil {
		return nil, err
	}

	if err := s.Repo.CreateTender(ctx, tender); err != nil {
		return nil, err
	}
	s.Logger.Info("tender created", zap.String("tender_id", tender.ID), zap.String("company_id", tender.CompanyID))

	deliver(ctx, s.Logger, notify.TenderPublished, tender.ID, func(ctx context.Context) error {
		return s.Notifier.NotifyTenderPublished(ctx, tender.CompanyID, tender.Title, tender.ID)
	})
	return tender, nil
}

// UpdateTender заменяет поля и критерии тендера, пока он Published или EnEvaluation.
// Компания-владелец не меняется.
func (s *TenderService) UpdateTender(ctx context.Context, tenderId string, tenderReq models.TenderRequest) (*models.Tender, error) {
	if err := s.checkRequest(tenderReq); err != nil {
		return nil, err
	}
	if err := s.checkReferences(ctx, tenderReq); err != nil {
		return nil, err
	}

	return s.Repo.UpdateTender(ctx, tenderId, func(t *models.Tender) error {
		if err := lifecycle.CanEdit(t.Status); err != nil {
			return models.NewStateConflictError(err)
		}
		if tenderReq.CompanyID != t.CompanyID {
			return models.NewValidationError("tender company cannot be changed")
		}
		t.Title = tenderReq.Title
		t.Description = tenderReq.Description
		t.StartAt = tenderReq.StartAt.UTC()
		t.CloseAt = tenderReq.CloseAt.UTC()
		t.EstimatedBudget = tenderReq.EstimatedBudget
		t.ProjectID = tenderReq.ProjectID
		t.CategoryID = tenderReq.CategoryID
		t.CurrencyID = tenderReq.CurrencyID
		next, err := buildCriteria(t.ID, tenderReq.Criteria, t.Criteria)
		if err != nil {
			return err
		}
		t.Criteria = next
		return nil
	})
}

// CloseTenderForEvaluation закрывает прием предложений.
func (s *TenderService) CloseTenderForEvaluation(ctx context.Context, tenderId string) (*models.Tender, error) {
	tender, err := s.transition(ctx, tenderId, lifecycle.Close, false)
	if err != nil {
		return nil, err
	}
	deliver(ctx, s.Logger, notify.TenderClosedForEvaluation, tender.ID, func(ctx context.Context) error {
		return s.Notifier.NotifyTenderClosedForEvaluation(ctx, tender.CompanyID, tender.Title, tender.ID)
	})
	return tender, nil
}

// AwardTender фиксирует присуждение тендера.
func (s *TenderService) AwardTender(ctx context.Context, tenderId string) (*models.Tender, error) {
	tender, err := s.transition(ctx, tenderId, lifecycle.Award, false)
	if err != nil {
		return nil, err
	}
	deliver(ctx, s.Logger, notify.TenderAwarded, tender.ID, func(ctx context.Context) error {
		return s.Notifier.NotifyTenderAwarded(ctx, tender.CompanyID, tender.Title, tender.ID)
	})
	return tender, nil
}

// FinalizeTender завершает тендер и ставит дату закрытия в текущий момент.
func (s *TenderService) FinalizeTender(ctx context.Context, tenderId string) (*models.Tender, error) {
	return s.transition(ctx, tenderId, lifecycle.Finalize, true)
}

// DeleteTender помечает тендер удаленным.
func (s *TenderService) DeleteTender(ctx context.Context, tenderId string) error {
	if err := s.Repo.DeleteTender(ctx, tenderId); err != nil {
		return err
	}
	s.Logger.Info("tender deleted", zap.String("tender_id", tenderId))
	return nil
}

func (s *TenderService) transition(ctx context.Context, tenderId string, apply func(models.TenderStatus) (models.TenderStatus, error), stampClose bool) (*models.Tender, error) {
	var from models.TenderStatus
	tender, err := s.Repo.UpdateTender(ctx, tenderId, func(t *models.Tender) error {
		next, err := apply(t.Status)
		if err != nil {
			return models.NewStateConflictError(err)
		}
		from = t.Status
		t.Status = next
		if stampClose {
			t.CloseAt = s.now().UTC()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.Logger.Info("tender status changed",
		zap.String("tender_id", tender.ID),
		zap.String("from", string(from)),
		zap.String("to", string(tender.Status)))
	return tender, nil
}

// checkRequest проверяет запрос до обращения к хранилищу.
func (s *TenderService) checkRequest(tenderReq models.TenderRequest) error {
	if err := validateRequest(s.validate, tenderReq); err != nil {
		return err
	}
	if !tenderReq.CloseAt.After(tenderReq.StartAt) {
		return models.NewValidationError("close date must be after start date")
	}
	if tenderReq.EstimatedBudget != nil && tenderReq.EstimatedBudget.IsNegative() {
		return models.NewValidationError("estimated budget must not be negative")
	}
	if err := criteria.Validate(criteria.RequestWeights(tenderReq.Criteria)); err != nil {
		return models.NewValidationError("%s", err.Error())
	}
	return nil
}

func (s *TenderService) checkReferences(ctx context.Context, tenderReq models.TenderRequest) error {
	exists, err := s.Refs.CategoryExists(ctx, tenderReq.CategoryID)
	if err != nil {
		return fmt.Errorf("failed to check category existence: %w", err)
	}
	if !exists {
		return models.NewNotFoundError("category", tenderReq.CategoryID)
	}

	exists, err = s.Refs.CurrencyExists(ctx, tenderReq.CurrencyID)
	if err != nil {
		return fmt.Errorf("failed to check currency existence: %w", err)
	}
	if !exists {
		return models.NewNotFoundError("currency", tenderReq.CurrencyID)
	}

	if tenderReq.ProjectID != nil {
		ok, err := s.Refs.ProjectBelongsToCompany(ctx, *tenderReq.ProjectID, tenderReq.CompanyID)
		if err != nil {
			return fmt.Errorf("failed to check project: %w", err)
		}
		if !ok {
			return models.NewNotFoundError("project", *tenderReq.ProjectID)
		}
	}
	return nil
}

// buildCriteria собирает критерии тендера из запроса, сохраняя идентификаторы
// существующих критериев. Критерий сопоставляется по явному id, а без него
// по совпадающему имени. Остальные получают новый id.
func buildCriteria(tenderId string, reqs []models.CriterionRequest, existing []models.Criterion) ([]models.Criterion, error) {
	known := make(map[string]bool, len(existing))
	for _, c := range existing {
		known[c.ID] = true
	}

	ids := make([]string, len(reqs))
	claimed := make(map[string]bool, len(reqs))
	for i, c := range reqs {
		if c.ID == nil {
			continue
		}
		if !known[*c.ID] {
			return nil, models.NewValidationError("criterion %s does not belong to tender %s", *c.ID, tenderId)
		}
		if claimed[*c.ID] {
			return nil, models.NewValidationError("criterion %s is listed more than once", *c.ID)
		}
		claimed[*c.ID] = true
		ids[i] = *c.ID
	}
	for i, c := range reqs {
		if ids[i] != "" {
			continue
		}
		for _, e := range existing {
			if !claimed[e.ID] && e.Name == c.Name {
				claimed[e.ID] = true
				ids[i] = e.ID
				break
			}
		}
		if ids[i] == "" {
			ids[i] = uuid.New().String()
		}
	}

	out := make([]models.Criterion, 0, len(reqs))
	for i, c := range reqs {
		mode := c.Mode
		if mode == "" {
			mode = models.NumericScoring
		}
		out = append(out, models.Criterion{
			ID:             ids[i],
			TenderID:       tenderId,
			Name:           c.Name,
			Description:    c.Description,
			Weight:         c.Weight,
			HigherIsBetter: c.HigherIsBetter,
			Mode:           mode,
			Position:       i,
		})
	}
	return out, nil
}
