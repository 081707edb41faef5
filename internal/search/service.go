package search

import (
	"context"
	"log"
)

// Service is the facade that tries Meilisearch first and falls back to the
// database's regex search.
type Service struct {
	meili    *Meili
	fallback Fallback
}

// NewService creates a search service. meili may be nil if Meilisearch is
// not configured.
func NewService(meili *Meili, fallback Fallback) *Service {
	return &Service{meili: meili, fallback: fallback}
}

// Search returns matching complaint IDs. Meilisearch results keep relevance
// order; fallback results come back newest first.
func (s *Service) Search(ctx context.Context, q Query) ([]string, error) {
	if s.meili != nil && s.meili.Healthy() {
		ids, err := s.meili.Search(q)
		if err == nil {
			return ids, nil
		}
		log.Printf("search: meilisearch error, falling back to store: %v", err)
	}
	return s.fallback.SearchIDs(ctx, q.Text, q.Limit)
}

// IndexComplaint indexes a complaint (fire-and-forget to Meilisearch).
func (s *Service) IndexComplaint(rec ComplaintRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexComplaint(rec); err != nil {
			log.Printf("search: index complaint %s: %v", rec.ID, err)
		}
	}()
}

// DeleteComplaint removes a complaint from the index (fire-and-forget).
func (s *Service) DeleteComplaint(id string) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.DeleteComplaint(id); err != nil {
			log.Printf("search: delete complaint %s: %v", id, err)
		}
	}()
}

// ReindexAll pushes a full snapshot of complaints into Meilisearch, used at
// startup to backfill the index.
func (s *Service) ReindexAll(recs []ComplaintRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	if err := s.meili.IndexComplaints(recs); err != nil {
		log.Printf("search: reindex complaints: %v", err)
	}
}
