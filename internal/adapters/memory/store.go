package memory

import (
	"InvoiceFinancing/internal/core/domain"
	"InvoiceFinancing/internal/core/ports"
	"context"
	"maps"
	"sync"

	"github.com/rs/zerolog"
)

// Store is an in-process SnapshotLoader and CommitSink. It stands in for the
// database in dev mode and tests.
type Store struct {
	mu      sync.RWMutex
	state   domain.Snapshot
	commits []domain.ChangeSet
	log     zerolog.Logger
}

var (
	_ ports.SnapshotLoader = (*Store)(nil)
	_ ports.CommitSink     = (*Store)(nil)
)

// NewStore creates a store holding a copy of seed.
func NewStore(seed domain.Snapshot, baseLogger *zerolog.Logger) *Store {
	return &Store{
		state: cloneSnapshot(seed),
		log:   baseLogger.With().Str("component", "memory_store").Logger(),
	}
}

// LoadSnapshot returns a copy of the current state.
func (s *Store) LoadSnapshot(_ context.Context) (domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneSnapshot(s.state), nil
}

// Apply writes a committed change set.
func (s *Store) Apply(_ context.Context, changes domain.ChangeSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range changes.Companies {
		s.state.Companies[c.ID] = c
	}
	for _, inv := range changes.Invoices {
		s.state.Invoices[inv.ID] = inv
	}
	for _, cl := range changes.CreditLimits {
		s.state.CreditLimits[cl.CompanyID] = cl
	}
	for _, doc := range changes.ERPDocuments {
		s.state.ERPDocuments[doc.ID] = doc
	}
	s.commits = append(s.commits, changes)
	s.log.Info().Str("saga_id", changes.SagaID).Msg("Change set applied")
	return nil
}

// Commits returns every change set applied so far.
func (s *Store) Commits() []domain.ChangeSet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.ChangeSet(nil), s.commits...)
}

func cloneSnapshot(src domain.Snapshot) domain.Snapshot {
	dst := domain.NewSnapshot()
	maps.Copy(dst.Invoices, src.Invoices)
	maps.Copy(dst.Companies, src.Companies)
	maps.Copy(dst.CreditLimits, src.CreditLimits)
	maps.Copy(dst.ERPDocuments, src.ERPDocuments)
	return dst
}

// SeedSnapshot returns the fixture data used in dev mode: one company with
// one available invoice and enough limit to finance it.
func SeedSnapshot() domain.Snapshot {
	snap := domain.NewSnapshot()
	snap.Companies["acme"] = domain.Company{ID: "acme", Name: "Acme Ltd"}
	snap.Invoices["1"] = domain.Invoice{ID: "1", CompanyID: "acme", Amount: 150_000, Status: domain.InvoiceAvailable}
	snap.Invoices["2"] = domain.Invoice{ID: "2", CompanyID: "acme", Amount: 900_000, Status: domain.InvoiceAvailable}
	snap.CreditLimits["acme"] = domain.CreditLimit{CompanyID: "acme", Limit: 1_000_000, Used: 200_000}
	return snap
}
