package postgres

import (
	"InvoiceFinancing/internal/adapters/security"
	"InvoiceFinancing/internal/core/ports"
	"context"
	"crypto/rand"
	"log"
	"os"
	"testing"

	"github.com/rs/zerolog"
)

var (
	testDB     *DB
	testSealer ports.PayloadSealer
)

// TestMain connects to the database named by TEST_DATABASE_URL. Without it
// the integration tests in this package are skipped.
func TestMain(m *testing.M) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		os.Exit(m.Run())
	}

	nopLogger := zerolog.Nop()

	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		log.Fatalf("TestMain: Failed to generate key: %v", err)
	}
	var err error
	testSealer, err = security.NewAESSealer(key, &nopLogger)
	if err != nil {
		log.Fatalf("TestMain: Failed to create sealer: %v", err)
	}

	ctx := context.Background()
	testDB, err = NewDB(ctx, url, &nopLogger)
	if err != nil {
		log.Fatalf("TestMain: Failed to connect to test database: %v", err)
	}
	if err := testDB.EnsureSchema(ctx); err != nil {
		log.Fatalf("TestMain: Failed to apply schema: %v", err)
	}

	code := m.Run()

	testDB.Close()
	os.Exit(code)
}

func requireDB(t *testing.T) {
	t.Helper()
	if testDB == nil {
		t.Skip("TEST_DATABASE_URL not set")
	}
}

// seedCompany inserts a company with one invoice and a credit limit and
// removes every row it owns when the test ends.
func seedCompany(t *testing.T, companyID, invoiceID string, amount, limit int64) {
	t.Helper()
	ctx := t.Context()
	_, err := testDB.pool.Exec(ctx, `INSERT INTO companies (id, name) VALUES ($1, $2)`, companyID, "Test "+companyID)
	if err != nil {
		t.Fatalf("seed company: %v", err)
	}
	_, err = testDB.pool.Exec(ctx, `INSERT INTO invoices (id, company_id, amount, status) VALUES ($1, $2, $3, 'available')`, invoiceID, companyID, amount)
	if err != nil {
		t.Fatalf("seed invoice: %v", err)
	}
	_, err = testDB.pool.Exec(ctx, `INSERT INTO credit_limits (company_id, credit_limit, used) VALUES ($1, $2, 0)`, companyID, limit)
	if err != nil {
		t.Fatalf("seed credit limit: %v", err)
	}

	t.Cleanup(func() {
		ctx := context.Background()
		for _, q := range []string{
			`DELETE FROM erp_documents WHERE company_id = $1`,
			`DELETE FROM credit_limits WHERE company_id = $1`,
			`DELETE FROM invoices WHERE company_id = $1`,
			`DELETE FROM companies WHERE id = $1`,
		} {
			if _, err := testDB.pool.Exec(ctx, q, companyID); err != nil {
				t.Logf("Warning: cleanup failed for %s: %v", companyID, err)
			}
		}
	})
}
