package store

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is the store used when no database is configured.
type MemoryStore struct {
	mu          sync.RWMutex
	profiles    map[string]*FinancialProfile
	assessments map[string][]*Assessment
	offers      map[string]*Offer
	now         func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		profiles:    make(map[string]*FinancialProfile),
		assessments: make(map[string][]*Assessment),
		offers:      make(map[string]*Offer),
		now:         time.Now,
	}
}

func (s *MemoryStore) GetProfile(_ context.Context, applicantID string) (*FinancialProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[applicantID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	cp.Values = maps.Clone(p.Values)
	return &cp, nil
}

func (s *MemoryStore) UpsertProfile(_ context.Context, p *FinancialProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.UpdatedAt = s.now().UTC()
	cp := *p
	cp.Values = maps.Clone(p.Values)
	s.profiles[p.ApplicantID] = &cp
	return nil
}

func (s *MemoryStore) CreateAssessment(_ context.Context, a *Assessment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = uuid.New()
	a.CreatedAt = s.now().UTC()
	cp := *a
	cp.Profile = maps.Clone(a.Profile)
	s.assessments[a.ApplicantID] = append(s.assessments[a.ApplicantID], &cp)
	return nil
}

func (s *MemoryStore) ListAssessments(_ context.Context, applicantID string, limit int) ([]*Assessment, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := s.assessments[applicantID]
	out := make([]*Assessment, 0, min(limit, len(items)))
	for i := len(items) - 1; i >= 0 && len(out) < limit; i-- {
		cp := *items[i]
		cp.Profile = maps.Clone(items[i].Profile)
		out = append(out, &cp)
	}
	return out, nil
}

func (s *MemoryStore) UpsertOffer(_ context.Context, o *Offer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o.UpdatedAt = s.now().UTC()
	cp := *o
	s.offers[o.LenderName] = &cp
	return nil
}

func (s *MemoryStore) ListOffers(_ context.Context, filter OfferFilter) ([]*Offer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Offer
	for _, o := range s.offers {
		if filter.Amount > 0 && !o.Covers(filter.Amount) {
			continue
		}
		cp := *o
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LenderName < out[j].LenderName })
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }
