package postgres

import (
	"InvoiceFinancing/internal/core/domain"
	"InvoiceFinancing/internal/core/ports"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// sagaStore loads snapshots from and applies change sets to Postgres.
type sagaStore struct {
	db     *DB
	sealer ports.PayloadSealer // Seals the audit copy of each change set
	log    zerolog.Logger
}

// SagaStore is both ends of a unit of work backed by the database.
type SagaStore interface {
	ports.SnapshotLoader
	ports.CommitSink
	// CommittedChanges returns the audited change set of a saga.
	CommittedChanges(ctx context.Context, sagaID string) (*domain.ChangeSet, error)
}

var _ SagaStore = (*sagaStore)(nil) // Ensure compliance

// NewSagaStore creates a store over db.
func NewSagaStore(db *DB, sealer ports.PayloadSealer, baseLogger *zerolog.Logger) SagaStore {
	return &sagaStore{
		db:     db,
		sealer: sealer,
		log:    baseLogger.With().Str("component", "saga_store").Logger(),
	}
}

// LoadSnapshot reads every table inside one read-only transaction so the
// snapshot is consistent.
func (s *sagaStore) LoadSnapshot(ctx context.Context) (domain.Snapshot, error) {
	snap := domain.NewSnapshot()

	tx, err := s.db.pool.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly, IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return snap, fmt.Errorf("begin snapshot: %w", err)
	}
	defer tx.Rollback(ctx)

	companies, err := queryAll(ctx, tx, `SELECT id, name FROM companies`, func(row pgx.CollectableRow) (domain.Company, error) {
		var c domain.Company
		err := row.Scan(&c.ID, &c.Name)
		return c, err
	})
	if err != nil {
		return snap, fmt.Errorf("load companies: %w", err)
	}
	for _, c := range companies {
		snap.Companies[c.ID] = c
	}

	invoices, err := queryAll(ctx, tx, `SELECT id, company_id, amount, status FROM invoices`, func(row pgx.CollectableRow) (domain.Invoice, error) {
		var inv domain.Invoice
		err := row.Scan(&inv.ID, &inv.CompanyID, &inv.Amount, &inv.Status)
		return inv, err
	})
	if err != nil {
		return snap, fmt.Errorf("load invoices: %w", err)
	}
	for _, inv := range invoices {
		snap.Invoices[inv.ID] = inv
	}

	limits, err := queryAll(ctx, tx, `SELECT company_id, credit_limit, used FROM credit_limits`, func(row pgx.CollectableRow) (domain.CreditLimit, error) {
		var cl domain.CreditLimit
		err := row.Scan(&cl.CompanyID, &cl.Limit, &cl.Used)
		return cl, err
	})
	if err != nil {
		return snap, fmt.Errorf("load credit limits: %w", err)
	}
	for _, cl := range limits {
		snap.CreditLimits[cl.CompanyID] = cl
	}

	docs, err := queryAll(ctx, tx, `SELECT id, invoice_id, company_id, amount, created_at FROM erp_documents`, func(row pgx.CollectableRow) (domain.ERPDocument, error) {
		var d domain.ERPDocument
		err := row.Scan(&d.ID, &d.InvoiceID, &d.CompanyID, &d.Amount, &d.CreatedAt)
		return d, err
	})
	if err != nil {
		return snap, fmt.Errorf("load erp documents: %w", err)
	}
	for _, d := range docs {
		snap.ERPDocuments[d.ID] = d
	}

	s.log.Debug().
		Int("invoices", len(snap.Invoices)).
		Int("companies", len(snap.Companies)).
		Msg("Snapshot loaded")
	return snap, nil
}

func queryAll[T any](ctx context.Context, tx pgx.Tx, query string, scan pgx.RowToFunc[T]) ([]T, error) {
	rows, err := tx.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scan)
}

// Apply writes the change set and its sealed audit row in one transaction.
func (s *sagaStore) Apply(ctx context.Context, changes domain.ChangeSet) error {
	audit, err := s.seal(changes)
	if err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for _, c := range changes.Companies {
		batch.Queue(`INSERT INTO companies (id, name) VALUES ($1, $2)`, c.ID, c.Name)
	}
	for _, inv := range changes.Invoices {
		batch.Queue(`
			INSERT INTO invoices (id, company_id, amount, status) VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO UPDATE SET amount = EXCLUDED.amount, status = EXCLUDED.status
		`, inv.ID, inv.CompanyID, inv.Amount, inv.Status)
	}
	for _, cl := range changes.CreditLimits {
		batch.Queue(`
			INSERT INTO credit_limits (company_id, credit_limit, used) VALUES ($1, $2, $3)
			ON CONFLICT (company_id) DO UPDATE SET credit_limit = EXCLUDED.credit_limit, used = EXCLUDED.used
		`, cl.CompanyID, cl.Limit, cl.Used)
	}
	for _, d := range changes.ERPDocuments {
		batch.Queue(`
			INSERT INTO erp_documents (id, invoice_id, company_id, amount, created_at)
			VALUES ($1, $2, $3, $4, $5)
		`, d.ID, d.InvoiceID, d.CompanyID, d.Amount, d.CreatedAt)
	}
	batch.Queue(`INSERT INTO saga_commits (saga_id, committed_at, sealed_changes) VALUES ($1, $2, $3)`,
		changes.SagaID, changes.CommittedAt, audit)

	err = pgx.BeginFunc(ctx, s.db.pool, func(tx pgx.Tx) error {
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		s.log.Error().Err(err).Str("saga_id", changes.SagaID).Msg("Failed to apply change set")
		return fmt.Errorf("apply change set: %w", err)
	}

	s.log.Info().
		Str("saga_id", changes.SagaID).
		Int("companies", len(changes.Companies)).
		Int("invoices", len(changes.Invoices)).
		Int("credit_limits", len(changes.CreditLimits)).
		Int("erp_documents", len(changes.ERPDocuments)).
		Msg("Change set applied")
	return nil
}

func (s *sagaStore) seal(changes domain.ChangeSet) (string, error) {
	raw, err := json.Marshal(changes)
	if err != nil {
		return "", fmt.Errorf("encode change set: %w", err)
	}
	sealed, err := s.sealer.Seal(raw)
	if err != nil {
		s.log.Error().Err(err).Str("saga_id", changes.SagaID).Msg("Failed to seal change set")
		return "", err
	}
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// CommittedChanges reads back and opens a saga's audit row.
func (s *sagaStore) CommittedChanges(ctx context.Context, sagaID string) (*domain.ChangeSet, error) {
	var encoded string
	err := s.db.pool.QueryRow(ctx, `SELECT sealed_changes FROM saga_commits WHERE saga_id = $1`, sagaID).Scan(&encoded)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFound("saga commit", sagaID)
		}
		return nil, err
	}

	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		s.log.Error().Err(err).Str("saga_id", sagaID).Msg("Failed to base64-decode sealed changes")
		return nil, err
	}
	raw, err := s.sealer.Open(sealed)
	if err != nil {
		s.log.Error().Err(err).Str("saga_id", sagaID).Msg("Failed to open sealed changes")
		return nil, err
	}

	var changes domain.ChangeSet
	if err := json.Unmarshal(raw, &changes); err != nil {
		return nil, fmt.Errorf("decode change set: %w", err)
	}
	return &changes, nil
}
