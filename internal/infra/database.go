package infra

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase establishes a GORM connection backed by pgx and applies the
// idempotent schema statements below.
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := RunMigrations(db); err != nil {
		return nil, fmt.Errorf("schema: %w", err)
	}
	return db, nil
}

// RunMigrations applies the schema. GORM AutoMigrate is not used: it cannot
// express the partial unique index that enforces one active session per
// operator, and decimal precision must stay exactly as declared here.
// Every statement is IF NOT EXISTS, so re-running is a no-op.
func RunMigrations(db *gorm.DB) error {
	for _, p := range schemaPatches {
		if err := db.Exec(p.sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", p.descr, err)
		}
	}
	return nil
}

var schemaPatches = []struct{ descr, sql string }{
	{"operators", `
CREATE TABLE IF NOT EXISTS operators (
  id            UUID PRIMARY KEY DEFAULT gen_random_uuid(),
  username      TEXT NOT NULL UNIQUE,
  name          TEXT NOT NULL,
  email         TEXT,
  password_hash TEXT NOT NULL,
  role          VARCHAR(20) NOT NULL,
  active        BOOLEAN NOT NULL DEFAULT TRUE,
  created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`},
	{"cash_sessions", `
CREATE TABLE IF NOT EXISTS cash_sessions (
  id              UUID PRIMARY KEY DEFAULT gen_random_uuid(),
  user_id         UUID NOT NULL,
  opening_balance DECIMAL(14,2) NOT NULL CHECK (opening_balance >= 0),
  opening_date    TIMESTAMPTZ NOT NULL,
  closing_date    TIMESTAMPTZ,
  status          VARCHAR(20) NOT NULL DEFAULT 'active',
  notes           TEXT,
  CHECK ((status = 'active') = (closing_date IS NULL))
)`},
	{"one active session per operator", `
CREATE UNIQUE INDEX IF NOT EXISTS uq_cash_sessions_active_user
    ON cash_sessions (user_id) WHERE status = 'active'`},
	{"cash_closings", `
CREATE TABLE IF NOT EXISTS cash_closings (
  id                  UUID PRIMARY KEY DEFAULT gen_random_uuid(),
  cash_session_id     UUID NOT NULL REFERENCES cash_sessions(id),
  user_id             UUID NOT NULL,
  opening_date        TIMESTAMPTZ NOT NULL,
  closing_date        TIMESTAMPTZ NOT NULL,
  opening_balance     DECIMAL(14,2) NOT NULL,
  expected_cash       DECIMAL(18,2) NOT NULL,
  counted_cash        DECIMAL(18,2) NOT NULL,
  cash_difference     DECIMAL(18,2) NOT NULL,
  expected_card       DECIMAL(18,2) NOT NULL,
  counted_card        DECIMAL(18,2) NOT NULL,
  card_difference     DECIMAL(18,2) NOT NULL,
  expected_transfer   DECIMAL(18,2) NOT NULL,
  counted_transfer    DECIMAL(18,2) NOT NULL,
  transfer_difference DECIMAL(18,2) NOT NULL,
  expected_other      DECIMAL(18,2) NOT NULL,
  counted_other       DECIMAL(18,2) NOT NULL,
  other_difference    DECIMAL(18,2) NOT NULL,
  total_system_sales  DECIMAL(18,2) NOT NULL,
  total_counted_sales DECIMAL(18,2) NOT NULL,
  total_difference    DECIMAL(18,2) NOT NULL,
  difference_pct      NUMERIC       NOT NULL,
  classification      VARCHAR(20) NOT NULL,
  notes               TEXT,
  created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`},
	// Early databases stored the percentage as DECIMAL(7,2) and amounts as
	// DECIMAL(14,2); a large variance overflowed them and failed the close.
	{"cash_closings wide amounts", `
ALTER TABLE cash_closings
  ALTER COLUMN expected_cash       TYPE DECIMAL(18,2),
  ALTER COLUMN counted_cash        TYPE DECIMAL(18,2),
  ALTER COLUMN cash_difference     TYPE DECIMAL(18,2),
  ALTER COLUMN expected_card       TYPE DECIMAL(18,2),
  ALTER COLUMN counted_card        TYPE DECIMAL(18,2),
  ALTER COLUMN card_difference     TYPE DECIMAL(18,2),
  ALTER COLUMN expected_transfer   TYPE DECIMAL(18,2),
  ALTER COLUMN counted_transfer    TYPE DECIMAL(18,2),
  ALTER COLUMN transfer_difference TYPE DECIMAL(18,2),
  ALTER COLUMN expected_other      TYPE DECIMAL(18,2),
  ALTER COLUMN counted_other       TYPE DECIMAL(18,2),
  ALTER COLUMN other_difference    TYPE DECIMAL(18,2),
  ALTER COLUMN total_system_sales  TYPE DECIMAL(18,2),
  ALTER COLUMN total_counted_sales TYPE DECIMAL(18,2),
  ALTER COLUMN total_difference    TYPE DECIMAL(18,2),
  ALTER COLUMN difference_pct      TYPE NUMERIC`},
	{"cash_closings by session", `
CREATE INDEX IF NOT EXISTS idx_cash_closings_session
    ON cash_closings (cash_session_id, created_at)`},
	// Owned by the invoicing module; created here only so a fresh database
	// (dev, integration tests) has something to read from.
	{"invoices", `
CREATE TABLE IF NOT EXISTS invoices (
  id              UUID PRIMARY KEY DEFAULT gen_random_uuid(),
  number          VARCHAR(40),
  total           DECIMAL(14,2) NOT NULL,
  payment_method  VARCHAR(30) NOT NULL,
  status          VARCHAR(20) NOT NULL,
  cash_session_id UUID,
  issue_date      TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`},
	{"invoices by session", `
CREATE INDEX IF NOT EXISTS idx_invoices_cash_session
    ON invoices (cash_session_id) WHERE status = 'paid'`},
}
