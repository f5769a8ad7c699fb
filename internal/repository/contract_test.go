package repository

import (
	"context"
	"testing"
	"time"

	"github.com/senyabanana/licitaciones-service/internal/admission"
	"github.com/senyabanana/licitaciones-service/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storeUnderTest - хранилище, на котором проверяется общее поведение драйверов.
type storeUnderTest struct {
	tenders    TenderRepository
	bids       BidRepository
	newTender  func() *models.Tender
	supplierID string
}

func sampleTender(companyID, categoryID, currencyID string) *models.Tender {
	id := uuid.NewString()
	start := time.Now().UTC().Truncate(time.Second)
	return &models.Tender{
		ID:          id,
		Title:       "Perforacion",
		Description: "Campana de sondajes",
		StartAt:     start,
		CloseAt:     start.Add(72 * time.Hour),
		CompanyID:   companyID,
		CategoryID:  categoryID,
		CurrencyID:  currencyID,
		Status:      models.PublishedTender,
		CreatedAt:   start,
		Criteria: []models.Criterion{
			{ID: uuid.NewString(), TenderID: id, Name: "precio", Weight: decimal.NewFromInt(70), Mode: models.NumericScoring, Position: 0},
			{ID: uuid.NewString(), TenderID: id, Name: "plazo", Weight: decimal.NewFromInt(30), HigherIsBetter: true, Mode: models.NumericScoring, Position: 1},
		},
	}
}

func (st storeUnderTest) submit(t *testing.T, tender *models.Tender) *models.Bid {
	t.Helper()
	now := time.Now().UTC()
	bid := &models.Bid{
		ID:            uuid.NewString(),
		TenderID:      tender.ID,
		SupplierID:    st.supplierID,
		SubmittedAt:   now,
		Status:        models.SubmittedBid,
		OfferedBudget: decimal.NewFromInt(1000),
		Description:   "Oferta",
		UpdatedAt:     now,
	}
	for _, c := range tender.Criteria {
		bid.Responses = append(bid.Responses, models.BidResponse{CriterionID: c.ID, Value: "50"})
	}
	require.NoError(t, st.bids.CreateBid(context.Background(), bid, func(admission.Candidate) error { return nil }))
	return bid
}

func checkDeletedTenderRejectsChanges(t *testing.T, st storeUnderTest) {
	ctx := context.Background()
	tender := st.newTender()
	require.NoError(t, st.tenders.CreateTender(ctx, tender))
	bid := st.submit(t, tender)
	require.NoError(t, st.tenders.DeleteTender(ctx, tender.ID))

	called := false
	_, err := st.tenders.UpdateTender(ctx, tender.ID, func(t *models.Tender) error {
		called = true
		t.Status = models.EvaluationTender
		return nil
	})
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.False(t, called)

	_, err = st.bids.UpdateBid(ctx, bid.ID, func(*models.Bid, *models.Tender) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.False(t, called)

	_, err = st.tenders.GetTender(ctx, tender.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func checkCriteriaEditKeepsResponses(t *testing.T, st storeUnderTest) {
	ctx := context.Background()
	tender := st.newTender()
	require.NoError(t, st.tenders.CreateTender(ctx, tender))
	bid := st.submit(t, tender)
	kept, dropped := tender.Criteria[0], tender.Criteria[1]

	_, err := st.tenders.UpdateTender(ctx, tender.ID, func(t *models.Tender) error {
		t.Title = "Perforacion diamantina"
		return nil
	})
	require.NoError(t, err)
	got, err := st.bids.GetBid(ctx, bid.ID)
	require.NoError(t, err)
	assert.Len(t, got.Responses, 2)

	added := models.Criterion{ID: uuid.NewString(), TenderID: tender.ID, Name: "seguridad",
		Weight: decimal.NewFromInt(50), HigherIsBetter: true, Mode: models.NumericScoring, Position: 1}
	_, err = st.tenders.UpdateTender(ctx, tender.ID, func(t *models.Tender) error {
		first := t.Criteria[0]
		first.Weight = decimal.NewFromInt(50)
		t.Criteria = []models.Criterion{first, added}
		return nil
	})
	require.NoError(t, err)

	stored, err := st.tenders.GetTender(ctx, tender.ID)
	require.NoError(t, err)
	require.Len(t, stored.Criteria, 2)
	assert.Equal(t, kept.ID, stored.Criteria[0].ID)
	assert.True(t, decimal.NewFromInt(50).Equal(stored.Criteria[0].Weight))
	assert.Equal(t, added.ID, stored.Criteria[1].ID)

	got, err = st.bids.GetBid(ctx, bid.ID)
	require.NoError(t, err)
	require.Len(t, got.Responses, 1)
	assert.Equal(t, kept.ID, got.Responses[0].CriterionID)
	assert.NotEqual(t, dropped.ID, got.Responses[0].CriterionID)
}
