package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/senyabanana/licitaciones-service/internal/admission"
	"github.com/senyabanana/licitaciones-service/internal/lifecycle"
	"github.com/senyabanana/licitaciones-service/internal/models"
	"github.com/senyabanana/licitaciones-service/internal/notify"
	"github.com/senyabanana/licitaciones-service/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type sentEvent struct {
	Kind       notify.EventKind
	CompanyID  string
	TenderID   string
	SupplierID string
}

// recordingNotifier запоминает уведомления и при необходимости возвращает ошибку.
type recordingNotifier struct {
	mu     sync.Mutex
	events []sentEvent
	err    error
}

func (n *recordingNotifier) record(e sentEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
	return n.err
}

func (n *recordingNotifier) NotifyTenderPublished(_ context.Context, companyID, _, tenderID string) error {
	return n.record(sentEvent{Kind: notify.TenderPublished, CompanyID: companyID, TenderID: tenderID})
}

func (n *recordingNotifier) NotifyTenderClosedForEvaluation(_ context.Context, companyID, _, tenderID string) error {
	return n.record(sentEvent{Kind: notify.TenderClosedForEvaluation, CompanyID: companyID, TenderID: tenderID})
}

func (n *recordingNotifier) NotifyTenderAwarded(_ context.Context, companyID, _, tenderID string) error {
	return n.record(sentEvent{Kind: notify.TenderAwarded, CompanyID: companyID, TenderID: tenderID})
}

func (n *recordingNotifier) NotifyNewBidReceived(_ context.Context, companyID, _, tenderID, _, supplierID string) error {
	return n.record(sentEvent{Kind: notify.BidReceived, CompanyID: companyID, TenderID: tenderID, SupplierID: supplierID})
}

func (n *recordingNotifier) count(kind notify.EventKind) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, e := range n.events {
		if e.Kind == kind {
			c++
		}
	}
	return c
}

type fixture struct {
	store     *repository.MemoryStore
	tenders   *TenderService
	bids      *BidService
	notifier  *recordingNotifier
	company   string
	category  string
	currency  string
	supplierA string
	supplierB string
}

func newFixture(t *testing.T, policy admission.Policy) *fixture {
	t.Helper()
	f := &fixture{
		store:     repository.NewMemoryStore(),
		notifier:  &recordingNotifier{},
		company:   uuid.NewString(),
		category:  uuid.NewString(),
		currency:  uuid.NewString(),
		supplierA: uuid.NewString(),
		supplierB: uuid.NewString(),
	}
	f.store.AddCompany(models.Company{ID: f.company, Name: "Minera Norte"})
	f.store.AddCategory(f.category)
	f.store.AddCurrency(f.currency)
	f.store.AddSupplier(models.Supplier{ID: f.supplierA, Name: "Proveedor A"})
	f.store.AddSupplier(models.Supplier{ID: f.supplierB, Name: "Proveedor B"})

	logger := zap.NewNop()
	f.tenders = NewTenderService(f.store, f.store, f.notifier, logger)
	f.bids = NewBidService(f.store, f.store, f.store, admission.NewGuard(policy), f.notifier, logger)
	return f
}

func (f *fixture) tenderRequest(weights ...int64) models.TenderRequest {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	req := models.TenderRequest{
		Title:       "Mantenimiento de chancadores",
		Description: "Servicio anual",
		StartAt:     start,
		CloseAt:     start.Add(30 * 24 * time.Hour),
		CompanyID:   f.company,
		CategoryID:  f.category,
		CurrencyID:  f.currency,
	}
	names := []string{"precio", "plazo", "experiencia", "garantia"}
	for i, w := range weights {
		req.Criteria = append(req.Criteria, models.CriterionRequest{
			Name:           names[i%len(names)],
			Weight:         decimal.NewFromInt(w),
			HigherIsBetter: i != 0,
		})
	}
	return req
}

func (f *fixture) createTender(t *testing.T) *models.Tender {
	t.Helper()
	tender, err := f.tenders.CreateTender(context.Background(), f.tenderRequest(60, 40))
	require.NoError(t, err)
	return tender
}

func bidRequest(tender *models.Tender, supplierID string) models.BidRequest {
	req := models.BidRequest{
		TenderID:      tender.ID,
		SupplierID:    supplierID,
		OfferedBudget: decimal.NewFromInt(150000),
		Description:   "Oferta tecnica",
	}
	// Ответы в обратном порядке, сервис упорядочивает их по критериям.
	for i := len(tender.Criteria) - 1; i >= 0; i-- {
		req.Responses = append(req.Responses, models.BidResponse{CriterionID: tender.Criteria[i].ID, Value: "80"})
	}
	return req
}

func TestTenderLifecycleScenario(t *testing.T) {
	f := newFixture(t, admission.Policy{})
	ctx := context.Background()

	tender, err := f.tenders.CreateTender(ctx, f.tenderRequest(60, 40))
	require.NoError(t, err)
	assert.Equal(t, models.PublishedTender, tender.Status)
	require.Len(t, tender.Criteria, 2)
	assert.Equal(t, models.NumericScoring, tender.Criteria[0].Mode)
	assert.Equal(t, 1, f.notifier.count(notify.TenderPublished))

	_, err = f.tenders.CreateTender(ctx, f.tenderRequest(60, 30))
	assert.ErrorIs(t, err, models.ErrValidation)

	closed, err := f.tenders.CloseTenderForEvaluation(ctx, tender.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EvaluationTender, closed.Status)
	assert.Equal(t, 1, f.notifier.count(notify.TenderClosedForEvaluation))

	awarded, err := f.tenders.AwardTender(ctx, tender.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AwardedTender, awarded.Status)
	assert.Equal(t, 1, f.notifier.count(notify.TenderAwarded))

	_, err = f.tenders.AwardTender(ctx, tender.ID)
	assert.ErrorIs(t, err, models.ErrStateConflict)
	assert.Equal(t, 1, f.notifier.count(notify.TenderAwarded))

	finalized, err := f.tenders.FinalizeTender(ctx, tender.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ClosedTender, finalized.Status)
	assert.WithinDuration(t, time.Now(), finalized.CloseAt, time.Minute)

	status, err := f.tenders.GetTenderStatus(ctx, tender.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ClosedTender, status)
}

func TestAwardRequiresEvaluation(t *testing.T) {
	f := newFixture(t, admission.Policy{})
	ctx := context.Background()
	tender := f.createTender(t)

	_, err := f.tenders.AwardTender(ctx, tender.ID)
	require.ErrorIs(t, err, models.ErrStateConflict)
	var te *lifecycle.TransitionError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, models.PublishedTender, te.From)

	_, err = f.tenders.FinalizeTender(ctx, tender.ID)
	assert.ErrorIs(t, err, models.ErrStateConflict)

	_, err = f.tenders.CloseTenderForEvaluation(ctx, uuid.NewString())
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestCreateTenderReferences(t *testing.T) {
	f := newFixture(t, admission.Policy{})
	ctx := context.Background()

	req := f.tenderRequest(50, 50)
	req.CompanyID = uuid.NewString()
	_, err := f.tenders.CreateTender(ctx, req)
	assert.ErrorIs(t, err, models.ErrNotFound)

	req = f.tenderRequest(50, 50)
	project := uuid.NewString()
	req.ProjectID = &project
	_, err = f.tenders.CreateTender(ctx, req)
	assert.ErrorIs(t, err, models.ErrNotFound)

	f.store.AddProject(project, f.company)
	tender, err := f.tenders.CreateTender(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, project, *tender.ProjectID)

	req = f.tenderRequest(100)
	req.CloseAt = req.StartAt
	_, err = f.tenders.CreateTender(ctx, req)
	assert.ErrorIs(t, err, models.ErrValidation)

	req = f.tenderRequest()
	_, err = f.tenders.CreateTender(ctx, req)
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestUpdateTender(t *testing.T) {
	f := newFixture(t, admission.Policy{})
	ctx := context.Background()
	tender := f.createTender(t)

	req := f.tenderRequest(30, 30, 40)
	req.Title = "Mantenimiento mayor"
	updated, err := f.tenders.UpdateTender(ctx, tender.ID, req)
	require.NoError(t, err)
	assert.Equal(t, "Mantenimiento mayor", updated.Title)
	assert.Len(t, updated.Criteria, 3)
	assert.Equal(t, models.PublishedTender, updated.Status)

	req.CompanyID = uuid.NewString()
	f.store.AddCompany(models.Company{ID: req.CompanyID})
	_, err = f.tenders.UpdateTender(ctx, tender.ID, req)
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = f.tenders.CloseTenderForEvaluation(ctx, tender.ID)
	require.NoError(t, err)
	_, err = f.tenders.AwardTender(ctx, tender.ID)
	require.NoError(t, err)
	_, err = f.tenders.UpdateTender(ctx, tender.ID, f.tenderRequest(100))
	assert.ErrorIs(t, err, models.ErrStateConflict)
}

func TestSoftDeletedTenderIsInvisible(t *testing.T) {
	f := newFixture(t, admission.Policy{})
	ctx := context.Background()
	kept := f.createTender(t)
	gone := f.createTender(t)

	require.NoError(t, f.tenders.DeleteTender(ctx, gone.ID))

	_, err := f.tenders.GetTender(ctx, gone.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.ErrorIs(t, f.tenders.DeleteTender(ctx, gone.ID), models.ErrNotFound)

	list, err := f.tenders.GetCompanyTenders(ctx, f.company, 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, kept.ID, list[0].ID)

	list, err = f.tenders.FetchTenders(ctx, 10, 0, []string{string(models.PublishedTender)})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = f.tenders.FetchTenders(ctx, 10, 0, []string{"Abierta"})
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = f.bids.SubmitBid(ctx, bidRequest(gone, f.supplierA))
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestSubmitBidScenario(t *testing.T) {
	f := newFixture(t, admission.Policy{})
	ctx := context.Background()
	tender := f.createTender(t)

	bid, err := f.bids.SubmitBid(ctx, bidRequest(tender, f.supplierA))
	require.NoError(t, err)
	assert.Equal(t, models.SubmittedBid, bid.Status)
	require.Len(t, bid.Responses, 2)
	assert.Equal(t, tender.Criteria[0].ID, bid.Responses[0].CriterionID)
	assert.Equal(t, 1, f.notifier.count(notify.BidReceived))

	_, err = f.bids.SubmitBid(ctx, bidRequest(tender, f.supplierA))
	assert.ErrorIs(t, err, models.ErrConflict)

	_, err = f.bids.SubmitBid(ctx, bidRequest(tender, f.supplierB))
	require.NoError(t, err)
	assert.Equal(t, 2, f.notifier.count(notify.BidReceived))

	bids, err := f.bids.GetTenderBids(ctx, tender.ID, 10, 0)
	require.NoError(t, err)
	assert.Len(t, bids, 2)

	_, err = f.bids.SubmitBid(ctx, bidRequest(tender, uuid.NewString()))
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestResubmitAfterWithdrawal(t *testing.T) {
	f := newFixture(t, admission.Policy{})
	ctx := context.Background()
	tender := f.createTender(t)

	first, err := f.bids.SubmitBid(ctx, bidRequest(tender, f.supplierA))
	require.NoError(t, err)
	require.NoError(t, f.bids.DeleteBid(ctx, first.ID))

	_, err = f.bids.GetBid(ctx, first.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	second, err := f.bids.SubmitBid(ctx, bidRequest(tender, f.supplierA))
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	bids, err := f.bids.GetSupplierBids(ctx, f.supplierA, 10, 0)
	require.NoError(t, err)
	require.Len(t, bids, 1)
	assert.Equal(t, second.ID, bids[0].ID)
}

func TestConcurrentSubmitAdmitsOne(t *testing.T) {
	f := newFixture(t, admission.Policy{})
	tender := f.createTender(t)

	const workers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		ok        int
		conflicts int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.bids.SubmitBid(context.Background(), bidRequest(tender, f.supplierA))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, models.ErrConflict):
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, workers-1, conflicts)
}

func TestSubmitBidDuringEvaluationPolicy(t *testing.T) {
	ctx := context.Background()

	strict := newFixture(t, admission.Policy{})
	tender := strict.createTender(t)
	_, err := strict.tenders.CloseTenderForEvaluation(ctx, tender.ID)
	require.NoError(t, err)
	_, err = strict.bids.SubmitBid(ctx, bidRequest(tender, strict.supplierA))
	assert.ErrorIs(t, err, models.ErrConflict)

	lenient := newFixture(t, admission.Policy{AllowDuringEvaluation: true})
	tender = lenient.createTender(t)
	_, err = lenient.tenders.CloseTenderForEvaluation(ctx, tender.ID)
	require.NoError(t, err)
	_, err = lenient.bids.SubmitBid(ctx, bidRequest(tender, lenient.supplierA))
	assert.NoError(t, err)
}

func TestUpdateBid(t *testing.T) {
	f := newFixture(t, admission.Policy{})
	ctx := context.Background()
	tender := f.createTender(t)
	bid, err := f.bids.SubmitBid(ctx, bidRequest(tender, f.supplierA))
	require.NoError(t, err)

	req := models.BidUpdateRequest{
		OfferedBudget: decimal.NewFromInt(120000),
		Description:   "Oferta revisada",
		Responses:     bidRequest(tender, f.supplierA).Responses,
	}
	updated, err := f.bids.UpdateBid(ctx, bid.ID, req)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(120000).Equal(updated.OfferedBudget))
	assert.Equal(t, "Oferta revisada", updated.Description)

	req.Responses = req.Responses[:1]
	_, err = f.bids.UpdateBid(ctx, bid.ID, req)
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = f.bids.UpdateBidStatus(ctx, bid.ID, string(models.RejectedBid))
	assert.ErrorIs(t, err, models.ErrConflict)

	_, err = f.tenders.CloseTenderForEvaluation(ctx, tender.ID)
	require.NoError(t, err)
	rejected, err := f.bids.UpdateBidStatus(ctx, bid.ID, string(models.RejectedBid))
	require.NoError(t, err)
	assert.Equal(t, models.RejectedBid, rejected.Status)

	req.Responses = bidRequest(tender, f.supplierA).Responses
	_, err = f.bids.UpdateBid(ctx, bid.ID, req)
	assert.ErrorIs(t, err, models.ErrStateConflict)
}

func TestScoreBidAndSelect(t *testing.T) {
	f := newFixture(t, admission.Policy{})
	ctx := context.Background()
	tender := f.createTender(t)
	bid, err := f.bids.SubmitBid(ctx, bidRequest(tender, f.supplierA))
	require.NoError(t, err)

	scoreReq := models.BidScoreRequest{Scores: []models.CriterionScore{
		{CriterionID: tender.Criteria[0].ID, Score: decimal.NewFromInt(20)},
		{CriterionID: tender.Criteria[1].ID, Score: decimal.NewFromInt(90)},
	}}

	_, err = f.bids.ScoreBid(ctx, bid.ID, scoreReq)
	assert.ErrorIs(t, err, models.ErrConflict)

	_, err = f.tenders.CloseTenderForEvaluation(ctx, tender.ID)
	require.NoError(t, err)

	scored, err := f.bids.ScoreBid(ctx, bid.ID, scoreReq)
	require.NoError(t, err)
	assert.Equal(t, models.UnderReviewBid, scored.Status)
	require.NotNil(t, scored.FinalScore)
	// (100-20)*60/100 + 90*40/100
	assert.Equal(t, "84", scored.FinalScore.String())

	scoreReq.Scores = append(scoreReq.Scores, scoreReq.Scores[0])
	_, err = f.bids.ScoreBid(ctx, bid.ID, scoreReq)
	assert.ErrorIs(t, err, models.ErrValidation)

	selected, err := f.bids.UpdateBidStatus(ctx, bid.ID, "Awarded")
	require.NoError(t, err)
	assert.Equal(t, models.SelectedBid, selected.Status)

	_, err = f.bids.UpdateBidStatus(ctx, bid.ID, string(models.RejectedBid))
	assert.ErrorIs(t, err, models.ErrStateConflict)

	_, err = f.bids.UpdateBidStatus(ctx, bid.ID, "Ganadora")
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestNotificationFailureIsNotPropagated(t *testing.T) {
	f := newFixture(t, admission.Policy{})
	f.notifier.err = &notify.DeliveryError{Kind: notify.TenderPublished, Err: errors.New("broker unavailable")}
	ctx := context.Background()

	tender, err := f.tenders.CreateTender(ctx, f.tenderRequest(60, 40))
	require.NoError(t, err)
	_, err = f.bids.SubmitBid(ctx, bidRequest(tender, f.supplierA))
	require.NoError(t, err)
	closed, err := f.tenders.CloseTenderForEvaluation(ctx, tender.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EvaluationTender, closed.Status)

	stored, err := f.tenders.GetTender(ctx, tender.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EvaluationTender, stored.Status)
	assert.Equal(t, 1, f.notifier.count(notify.TenderClosedForEvaluation))
}

func TestUpdateTenderKeepsCriterionIdentity(t *testing.T) {
	f := newFixture(t, admission.Policy{})
	ctx := context.Background()
	tender := f.createTender(t)
	bid, err := f.bids.SubmitBid(ctx, bidRequest(tender, f.supplierA))
	require.NoError(t, err)

	req := f.tenderRequest(60, 40)
	req.Title = "Mantenimiento de chancadores primarios"
	updated, err := f.tenders.UpdateTender(ctx, tender.ID, req)
	require.NoError(t, err)
	assert.Equal(t, tender.Criteria[0].ID, updated.Criteria[0].ID)
	assert.Equal(t, tender.Criteria[1].ID, updated.Criteria[1].ID)

	stored, err := f.bids.GetBid(ctx, bid.ID)
	require.NoError(t, err)
	require.Len(t, stored.Responses, 2)
	for _, r := range stored.Responses {
		_, ok := updated.CriterionByID(r.CriterionID)
		assert.True(t, ok, "response to %s lost its criterion", r.CriterionID)
	}

	// Переименование по id сохраняет критерий, пропущенный критерий удаляется с ответами.
	renamed := tender.Criteria[0].ID
	req = f.tenderRequest(50, 50)
	req.Criteria[0].ID = &renamed
	req.Criteria[0].Name = "precio total"
	req.Criteria[1].Name = "seguridad"
	updated, err = f.tenders.UpdateTender(ctx, tender.ID, req)
	require.NoError(t, err)
	assert.Equal(t, renamed, updated.Criteria[0].ID)
	assert.NotEqual(t, tender.Criteria[1].ID, updated.Criteria[1].ID)

	stored, err = f.bids.GetBid(ctx, bid.ID)
	require.NoError(t, err)
	require.Len(t, stored.Responses, 1)
	assert.Equal(t, renamed, stored.Responses[0].CriterionID)

	foreign := uuid.NewString()
	req.Criteria[1].ID = &foreign
	_, err = f.tenders.UpdateTender(ctx, tender.ID, req)
	assert.ErrorIs(t, err, models.ErrValidation)

	req.Criteria[1].ID = &renamed
	_, err = f.tenders.UpdateTender(ctx, tender.ID, req)
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestCreateTenderRejectsWeightBelowStorageScale(t *testing.T) {
	f := newFixture(t, admission.Policy{})
	req := f.tenderRequest(0, 100)
	req.Criteria[0].Weight = decimal.RequireFromString("0.004")
	req.Criteria[1].Weight = decimal.RequireFromString("99.996")

	_, err := f.tenders.CreateTender(context.Background(), req)
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestTransitionsOnDeletedTender(t *testing.T) {
	f := newFixture(t, admission.Policy{})
	ctx := context.Background()
	tender := f.createTender(t)
	require.NoError(t, f.tenders.DeleteTender(ctx, tender.ID))

	_, err := f.tenders.CloseTenderForEvaluation(ctx, tender.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
	_, err = f.tenders.UpdateTender(ctx, tender.ID, f.tenderRequest(60, 40))
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.Equal(t, 0, f.notifier.count(notify.TenderClosedForEvaluation))
}
