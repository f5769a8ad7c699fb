package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/senyabanana/licitaciones-service/internal/admission"
	"github.com/senyabanana/licitaciones-service/internal/models"
)

// MemoryStore хранит тендеры, предложения и справочники в памяти.
// Используется при STORAGE_DRIVER=memory и в тестах. Все изменения
// выполняются под одной блокировкой, поэтому проверка и запись атомарны.
type MemoryStore struct {
	mu         sync.RWMutex
	tenders    map[string]models.Tender
	bids       map[string]models.Bid
	companies  map[string]models.Company
	suppliers  map[string]models.Supplier
	projects   map[string]string // projectID -> companyID
	categories map[string]bool
	currencies map[string]bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tenders:    map[string]models.Tender{},
		bids:       map[string]models.Bid{},
		companies:  map[string]models.Company{},
		suppliers:  map[string]models.Supplier{},
		projects:   map[string]string{},
		categories: map[string]bool{},
		currencies: map[string]bool{},
	}
}

func (s *MemoryStore) AddCompany(c models.Company) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.companies[c.ID] = c
}

func (s *MemoryStore) AddSupplier(sup models.Supplier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.suppliers[sup.ID] = sup
}

func (s *MemoryStore) AddProject(projectID, companyID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects[projectID] = companyID
}

func (s *MemoryStore) AddCategory(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories[id] = true
}

func (s *MemoryStore) AddCurrency(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currencies[id] = true
}

func (s *MemoryStore) CompanyExists(_ context.Context, companyId string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.companies[companyId]
	return ok, nil
}

func (s *MemoryStore) ProjectBelongsToCompany(_ context.Context, projectId, companyId string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	owner, ok := s.projects[projectId]
	return ok && owner == companyId, nil
}

func (s *MemoryStore) CategoryExists(_ context.Context, categoryId string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.categories[categoryId], nil
}

func (s *MemoryStore) CurrencyExists(_ context.Context, currencyId string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currencies[currencyId], nil
}

func (s *MemoryStore) GetSupplier(_ context.Context, supplierId string) (*models.Supplier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sup, ok := s.suppliers[supplierId]
	if !ok {
		return nil, nil
	}
	return &sup, nil
}

func (s *MemoryStore) CreateTender(_ context.Context, tender *models.Tender) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tenders[tender.ID] = copyTender(*tender)
	return nil
}

func (s *MemoryStore) GetTender(_ context.Context, tenderId string) (*models.Tender, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tenders[tenderId]
	if !ok || t.IsDeleted {
		return nil, models.NewNotFoundError("tender", tenderId)
	}
	out := copyTender(t)
	return &out, nil
}

func (s *MemoryStore) GetTenders(_ context.Context, filter models.TenderFilter) ([]models.Tender, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	statuses := make(map[string]bool, len(filter.Statuses))
	for _, st := range filter.Statuses {
		statuses[st] = true
	}

	all := make([]models.Tender, 0, len(s.tenders))
	for _, t := range s.tenders {
		if t.IsDeleted {
			continue
		}
		if filter.CompanyID != "" && t.CompanyID != filter.CompanyID {
			continue
		}
		if len(statuses) > 0 && !statuses[string(t.Status)] {
			continue
		}
		all = append(all, copyTender(t))
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID < all[j].ID
	})
	return page(all, filter.Limit, filter.Offset), nil
}

func (s *MemoryStore) UpdateTender(_ context.Context, tenderId string, mutate func(t *models.Tender) error) (*models.Tender, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tenders[tenderId]
	if !ok || t.IsDeleted {
		return nil, models.NewNotFoundError("tender", tenderId)
	}
	working := copyTender(t)
	if err := mutate(&working); err != nil {
		return nil, err
	}
	s.tenders[tenderId] = copyTender(working)
	s.dropResponses(tenderId, removedCriteria(t.Criteria, working.Criteria))
	return &working, nil
}

// dropResponses удаляет ответы на удаленные критерии, как каскад в базе.
func (s *MemoryStore) dropResponses(tenderId string, removed []string) {
	if len(removed) == 0 {
		return
	}
	gone := make(map[string]bool, len(removed))
	for _, id := range removed {
		gone[id] = true
	}
	for id, b := range s.bids {
		if b.TenderID != tenderId {
			continue
		}
		kept := make([]models.BidResponse, 0, len(b.Responses))
		for _, r := range b.Responses {
			if !gone[r.CriterionID] {
				kept = append(kept, r)
			}
		}
		b.Responses = kept
		s.bids[id] = b
	}
}

func (s *MemoryStore) DeleteTender(_ context.Context, tenderId string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tenders[tenderId]
	if !ok || t.IsDeleted {
		return models.NewNotFoundError("tender", tenderId)
	}
	t.IsDeleted = true
	s.tenders[tenderId] = t
	return nil
}

func (s *MemoryStore) CreateBid(_ context.Context, bid *models.Bid, admit func(c admission.Candidate) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := admission.Candidate{TenderID: bid.TenderID, SupplierID: bid.SupplierID}
	if t, ok := s.tenders[bid.TenderID]; ok {
		tc := copyTender(t)
		c.Tender = &tc
	}
	if sup, ok := s.suppliers[bid.SupplierID]; ok {
		c.Supplier = &sup
	}
	for _, b := range s.bids {
		if !b.IsDeleted && b.TenderID == bid.TenderID && b.SupplierID == bid.SupplierID {
			c.ActiveBidID = b.ID
			break
		}
	}

	if err := admit(c); err != nil {
		return err
	}
	s.bids[bid.ID] = copyBid(*bid)
	return nil
}

func (s *MemoryStore) GetBid(_ context.Context, bidId string) (*models.Bid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bids[bidId]
	if !ok || b.IsDeleted {
		return nil, models.NewNotFoundError("bid", bidId)
	}
	out := copyBid(b)
	return &out, nil
}

func (s *MemoryStore) GetBids(_ context.Context, filter models.BidFilter) ([]models.Bid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]models.Bid, 0)
	for _, b := range s.bids {
		if b.IsDeleted {
			continue
		}
		if filter.TenderID != "" && b.TenderID != filter.TenderID {
			continue
		}
		if filter.SupplierID != "" && b.SupplierID != filter.SupplierID {
			continue
		}
		all = append(all, copyBid(b))
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].SubmittedAt.Equal(all[j].SubmittedAt) {
			return all[i].SubmittedAt.Before(all[j].SubmittedAt)
		}
		return all[i].ID < all[j].ID
	})
	return page(all, filter.Limit, filter.Offset), nil
}

func (s *MemoryStore) UpdateBid(_ context.Context, bidId string, mutate func(b *models.Bid, t *models.Tender) error) (*models.Bid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bids[bidId]
	if !ok || b.IsDeleted {
		return nil, models.NewNotFoundError("bid", bidId)
	}
	t, ok := s.tenders[b.TenderID]
	if !ok || t.IsDeleted {
		return nil, models.NewNotFoundError("tender", b.TenderID)
	}
	working := copyBid(b)
	tender := copyTender(t)
	if err := mutate(&working, &tender); err != nil {
		return nil, err
	}
	s.bids[bidId] = copyBid(working)
	return &working, nil
}

func (s *MemoryStore) DeleteBid(_ context.Context, bidId string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bids[bidId]
	if !ok || b.IsDeleted {
		return models.NewNotFoundError("bid", bidId)
	}
	b.IsDeleted = true
	b.UpdatedAt = time.Now().UTC()
	s.bids[bidId] = b
	return nil
}

func page[T any](all []T, limit, offset int) []T {
	if offset >= len(all) {
		return []T{}
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return all[offset:end]
}

func copyTender(t models.Tender) models.Tender {
	if t.Criteria != nil {
		t.Criteria = append([]models.Criterion(nil), t.Criteria...)
	}
	if t.EstimatedBudget != nil {
		b := *t.EstimatedBudget
		t.EstimatedBudget = &b
	}
	if t.ProjectID != nil {
		p := *t.ProjectID
		t.ProjectID = &p
	}
	return t
}

func copyBid(b models.Bid) models.Bid {
	if b.Responses != nil {
		b.Responses = append([]models.BidResponse(nil), b.Responses...)
	}
	if b.DeliveryDate != nil {
		d := *b.DeliveryDate
		b.DeliveryDate = &d
	}
	if b.FinalScore != nil {
		s := *b.FinalScore
		b.FinalScore = &s
	}
	return b
}
