package db

import (
	"fmt"

	"gorm.io/gorm"
)

var migrationStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'profile_type') THEN
			CREATE TYPE profile_type AS ENUM ('client', 'contractor');
		END IF;
	END
	$$;`,
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'contract_status') THEN
			CREATE TYPE contract_status AS ENUM ('new', 'in_progress', 'terminated');
		END IF;
	END
	$$;`,
	`CREATE TABLE IF NOT EXISTS profiles (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		type profile_type NOT NULL,
		first_name VARCHAR(128) NOT NULL,
		last_name VARCHAR(128) NOT NULL,
		profession VARCHAR(128) NOT NULL,
		balance NUMERIC(18,2) NOT NULL DEFAULT 0,
		CONSTRAINT chk_profiles_balance_non_negative CHECK (balance >= 0)
	);`,
	`CREATE TABLE IF NOT EXISTS contracts (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		client_id UUID NOT NULL REFERENCES profiles(id),
		contractor_id UUID NOT NULL REFERENCES profiles(id),
		terms TEXT NOT NULL DEFAULT '',
		status contract_status NOT NULL DEFAULT 'new',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE TABLE IF NOT EXISTS jobs (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		contract_id UUID NOT NULL REFERENCES contracts(id),
		description TEXT NOT NULL DEFAULT '',
		price NUMERIC(18,2) NOT NULL,
		paid BOOLEAN NOT NULL DEFAULT FALSE,
		payment_date TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT chk_jobs_price_positive CHECK (price > 0),
		CONSTRAINT chk_jobs_paid_has_date CHECK (paid = (payment_date IS NOT NULL))
	);`,
	`CREATE INDEX IF NOT EXISTS idx_contracts_client_id ON contracts (client_id);`,
	`CREATE INDEX IF NOT EXISTS idx_contracts_contractor_id ON contracts (contractor_id);`,
	`CREATE INDEX IF NOT EXISTS idx_jobs_contract_id ON jobs (contract_id);`,
	`CREATE INDEX IF NOT EXISTS idx_jobs_unpaid ON jobs (contract_id) WHERE paid = FALSE;`,
	`CREATE INDEX IF NOT EXISTS idx_jobs_payment_date ON jobs (payment_date) WHERE payment_date IS NOT NULL;`,
}

func runMigrations(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
