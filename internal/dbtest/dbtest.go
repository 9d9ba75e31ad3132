// Package dbtest provides an in-memory SQLite ledger schema for tests. The
// production repositories stick to portable SQL, so the same queries run
// against this store with real transactions.
package dbtest

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/askarbek/marketpay/internal/model"
)

var schemaStatements = []string{
	`CREATE TABLE profiles (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		profession TEXT NOT NULL,
		balance NUMERIC NOT NULL DEFAULT 0,
		CHECK (balance >= 0)
	);`,
	`CREATE TABLE contracts (
		id TEXT PRIMARY KEY,
		client_id TEXT NOT NULL REFERENCES profiles(id),
		contractor_id TEXT NOT NULL REFERENCES profiles(id),
		terms TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'new',
		created_at DATETIME NOT NULL
	);`,
	`CREATE TABLE jobs (
		id TEXT PRIMARY KEY,
		contract_id TEXT NOT NULL REFERENCES contracts(id),
		description TEXT NOT NULL DEFAULT '',
		price NUMERIC NOT NULL,
		paid BOOLEAN NOT NULL DEFAULT 0,
		payment_date DATETIME,
		created_at DATETIME NOT NULL,
		CHECK (price > 0)
	);`,
}

// Open returns an isolated in-memory ledger database.
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("access test pool: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for i, stmt := range schemaStatements {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("schema statement %d: %v", i+1, err)
		}
	}
	return db
}

func CreateProfile(t *testing.T, db *gorm.DB, profileType model.ProfileType, firstName, lastName, profession, balance string) model.Profile {
	t.Helper()

	profile := model.Profile{
		ID:         uuid.New(),
		Type:       profileType,
		FirstName:  firstName,
		LastName:   lastName,
		Profession: profession,
		Balance:    mustDecimal(t, balance),
	}
	err := db.Exec(`
		INSERT INTO profiles (id, type, first_name, last_name, profession, balance)
		VALUES (?, ?, ?, ?, ?, ?)
	`, profile.ID, profile.Type, profile.FirstName, profile.LastName, profile.Profession, profile.Balance).Error
	if err != nil {
		t.Fatalf("insert profile: %v", err)
	}
	return profile
}

func CreateContract(t *testing.T, db *gorm.DB, client, contractor model.Profile, status model.ContractStatus) model.Contract {
	t.Helper()

	contract := model.Contract{
		ID:           uuid.New(),
		ClientID:     client.ID,
		ContractorID: contractor.ID,
		Terms:        "standard terms",
		Status:       status,
		CreatedAt:    time.Now().UTC(),
	}
	err := db.Exec(`
		INSERT INTO contracts (id, client_id, contractor_id, terms, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, contract.ID, contract.ClientID, contract.ContractorID, contract.Terms, contract.Status, contract.CreatedAt).Error
	if err != nil {
		t.Fatalf("insert contract: %v", err)
	}
	return contract
}

func CreateJob(t *testing.T, db *gorm.DB, contract model.Contract, price string) model.Job {
	t.Helper()

	job := model.Job{
		ID:          uuid.New(),
		ContractID:  contract.ID,
		Description: "work",
		Price:       mustDecimal(t, price),
		CreatedAt:   time.Now().UTC(),
	}
	err := db.Exec(`
		INSERT INTO jobs (id, contract_id, description, price, paid, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, job.ID, job.ContractID, job.Description, job.Price, false, job.CreatedAt).Error
	if err != nil {
		t.Fatalf("insert job: %v", err)
	}
	return job
}

func CreatePaidJob(t *testing.T, db *gorm.DB, contract model.Contract, price string, paidAt time.Time) model.Job {
	t.Helper()

	job := CreateJob(t, db, contract, price)
	paidAt = paidAt.UTC()
	err := db.Exec(`
		UPDATE jobs SET paid = ?, payment_date = ? WHERE id = ?
	`, true, paidAt, job.ID).Error
	if err != nil {
		t.Fatalf("mark job paid: %v", err)
	}
	job.Paid = true
	job.PaymentDate = &paidAt
	return job
}

func Balance(t *testing.T, db *gorm.DB, profileID uuid.UUID) decimal.Decimal {
	t.Helper()

	var balance decimal.Decimal
	if err := db.Raw(`SELECT balance FROM profiles WHERE id = ?`, profileID).Scan(&balance).Error; err != nil {
		t.Fatalf("read balance: %v", err)
	}
	return balance
}

func JobPaid(t *testing.T, db *gorm.DB, jobID uuid.UUID) (bool, *time.Time) {
	t.Helper()

	var row struct {
		Paid        bool
		PaymentDate *time.Time
	}
	if err := db.Raw(`SELECT paid, payment_date FROM jobs WHERE id = ?`, jobID).Scan(&row).Error; err != nil {
		t.Fatalf("read job: %v", err)
	}
	return row.Paid, row.PaymentDate
}

func mustDecimal(t *testing.T, value string) decimal.Decimal {
	t.Helper()

	parsed, err := decimal.NewFromString(value)
	if err != nil {
		t.Fatalf("parse decimal %q: %v", value, err)
	}
	return parsed
}
