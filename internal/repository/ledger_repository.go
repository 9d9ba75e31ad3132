package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/askarbek/marketpay/internal/model"
)

var (
	// ErrJobAlreadyPaid reports that the paid flag was already set when the
	// payment transaction tried to flip it.
	ErrJobAlreadyPaid = errors.New("job already paid")
	// ErrInsufficientBalance reports that the conditional balance debit
	// matched no row.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrNoPendingJobs reports that a deposit found no unpaid jobs to fund.
	ErrNoPendingJobs = errors.New("no pending jobs")
	// ErrDepositTooLarge reports a deposit above the pending-based cap.
	ErrDepositTooLarge = errors.New("deposit exceeds cap")
	// ErrTxConflict wraps transient store contention; safe to retry.
	ErrTxConflict = errors.New("transaction conflict")
)

type LedgerRepository struct {
	db *gorm.DB
}

func NewLedgerRepository(db *gorm.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// ownerColumn maps a profile type to the contract column that must match the
// profile's id for the contract to be visible to it.
func ownerColumn(t model.ProfileType) (string, error) {
	switch t {
	case model.ProfileTypeClient:
		return "client_id", nil
	case model.ProfileTypeContractor:
		return "contractor_id", nil
	default:
		return "", fmt.Errorf("unknown profile type %q", t)
	}
}

func (r *LedgerRepository) GetProfile(ctx context.Context, id uuid.UUID) (*model.Profile, error) {
	var profile model.Profile
	if err := r.db.WithContext(ctx).Raw(`
		SELECT id, type, first_name, last_name, profession, balance
		FROM profiles
		WHERE id = ?
		LIMIT 1
	`, id).Scan(&profile).Error; err != nil {
		return nil, classify(err)
	}
	if profile.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &profile, nil
}

func (r *LedgerRepository) GetContractForProfile(ctx context.Context, contractID uuid.UUID, profile model.Profile) (*model.Contract, error) {
	column, err := ownerColumn(profile.Type)
	if err != nil {
		return nil, err
	}

	var contract model.Contract
	query := fmt.Sprintf(`
		SELECT id, client_id, contractor_id, terms, status, created_at
		FROM contracts
		WHERE id = ? AND %s = ?
		LIMIT 1
	`, column)
	if err := r.db.WithContext(ctx).Raw(query, contractID, profile.ID).Scan(&contract).Error; err != nil {
		return nil, err
	}
	if contract.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &contract, nil
}

func (r *LedgerRepository) ListContractsForProfile(ctx context.Context, profile model.Profile) ([]model.Contract, error) {
	column, err := ownerColumn(profile.Type)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT id, client_id, contractor_id, terms, status, created_at
		FROM contracts
		WHERE %s = ?
		ORDER BY created_at ASC
	`, column)

	var contracts []model.Contract
	if err := r.db.WithContext(ctx).Raw(query, profile.ID).Scan(&contracts).Error; err != nil {
		return nil, err
	}
	return contracts, nil
}

// ListUnpaidJobsForProfile returns unpaid jobs of the profile's in_progress
// contracts, on either side of the contract.
func (r *LedgerRepository) ListUnpaidJobsForProfile(ctx context.Context, profile model.Profile) ([]model.Job, error) {
	column, err := ownerColumn(profile.Type)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT j.id, j.contract_id, j.description, j.price, j.paid, j.payment_date, j.created_at
		FROM jobs j
		JOIN contracts c ON c.id = j.contract_id
		WHERE c.%s = ? AND c.status = ? AND j.paid = ?
		ORDER BY j.created_at ASC
	`, column)

	var jobs []model.Job
	if err := r.db.WithContext(ctx).Raw(query, profile.ID, model.ContractStatusInProgress, false).Scan(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

// GetClientJob loads a job through a contract owned by the given client,
// along with the contractor the funds would be routed to.
func (r *LedgerRepository) GetClientJob(ctx context.Context, jobID, clientID uuid.UUID) (*model.Job, uuid.UUID, error) {
	var row struct {
		ID           uuid.UUID
		ContractID   uuid.UUID
		Description  string
		Price        decimal.Decimal
		Paid         bool
		PaymentDate  *time.Time
		CreatedAt    time.Time
		ContractorID uuid.UUID
	}
	if err := r.db.WithContext(ctx).Raw(`
		SELECT
			j.id,
			j.contract_id,
			j.description,
			j.price,
			j.paid,
			j.payment_date,
			j.created_at,
			c.contractor_id
		FROM jobs j
		JOIN contracts c ON c.id = j.contract_id
		WHERE j.id = ? AND c.client_id = ?
		LIMIT 1
	`, jobID, clientID).Scan(&row).Error; err != nil {
		return nil, uuid.Nil, err
	}
	if row.ID == uuid.Nil {
		return nil, uuid.Nil, gorm.ErrRecordNotFound
	}

	job := model.Job{
		ID:          row.ID,
		ContractID:  row.ContractID,
		Description: row.Description,
		Price:       row.Price,
		Paid:        row.Paid,
		PaymentDate: row.PaymentDate,
		CreatedAt:   row.CreatedAt,
	}
	return &job, row.ContractorID, nil
}

// PayJob moves price from client to contractor and marks the job paid, as a
// single transaction. Each write carries its own condition, so concurrent
// payments serialize on the store: the second flip of the paid flag and any
// overdraining debit match zero rows and roll the whole transaction back.
func (r *LedgerRepository) PayJob(ctx context.Context, jobID, clientID, contractorID uuid.UUID, price decimal.Decimal) error {
	paymentDate := time.Now().UTC()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Exec(`
			UPDATE jobs
			SET paid = ?, payment_date = ?
			WHERE id = ? AND paid = ?
		`, true, paymentDate, jobID, false)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrJobAlreadyPaid
		}

		res = tx.Exec(`
			UPDATE profiles
			SET balance = balance - ?
			WHERE id = ? AND balance >= ?
		`, price, clientID, price)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInsufficientBalance
		}

		res = tx.Exec(`
			UPDATE profiles
			SET balance = balance + ?
			WHERE id = ?
		`, price, contractorID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	return classify(err)
}

// Deposit credits a client balance after re-reading the pending total inside
// the same transaction, so the cap decision and the credit are one unit.
// The transaction runs serializable: a concurrent payment touching the same
// client aborts one side with a serialization failure instead of letting the
// cap be checked against a stale pending total.
func (r *LedgerRepository) Deposit(ctx context.Context, clientID uuid.UUID, amount decimal.Decimal, capDivisor int64) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row struct {
			JobCount int64
			Pending  decimal.Decimal
		}
		if err := tx.Raw(`
			SELECT COUNT(j.id) AS job_count, COALESCE(SUM(j.price), 0) AS pending
			FROM jobs j
			JOIN contracts c ON c.id = j.contract_id
			WHERE c.client_id = ? AND j.paid = ?
		`, clientID, false).Scan(&row).Error; err != nil {
			return err
		}
		if row.JobCount == 0 {
			return ErrNoPendingJobs
		}
		if amount.GreaterThan(row.Pending.Div(decimal.NewFromInt(capDivisor))) {
			return ErrDepositTooLarge
		}

		res := tx.Exec(`
			UPDATE profiles
			SET balance = balance + ?
			WHERE id = ?
		`, amount, clientID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	}, &sql.TxOptions{Isolation: sql.LevelSerializable})
	return classify(err)
}

// GetPaymentReceipt loads a paid job owned by the client together with both
// contract parties.
func (r *LedgerRepository) GetPaymentReceipt(ctx context.Context, jobID, clientID uuid.UUID) (*model.PaymentReceipt, error) {
	var row struct {
		JobID                uuid.UUID
		ContractID           uuid.UUID
		Description          string
		Price                decimal.Decimal
		Paid                 bool
		PaymentDate          *time.Time
		JobCreatedAt         time.Time
		ClientID             uuid.UUID
		ContractorID         uuid.UUID
		Terms                string
		Status               model.ContractStatus
		ContractCreatedAt    time.Time
		ClientFirstName      string
		ClientLastName       string
		ClientProfession     string
		ContractorFirstName  string
		ContractorLastName   string
		ContractorProfession string
	}
	if err := r.db.WithContext(ctx).Raw(`
		SELECT
			j.id AS job_id,
			j.contract_id,
			j.description,
			j.price,
			j.paid,
			j.payment_date,
			j.created_at AS job_created_at,
			c.client_id,
			c.contractor_id,
			c.terms,
			c.status,
			c.created_at AS contract_created_at,
			client.first_name AS client_first_name,
			client.last_name AS client_last_name,
			client.profession AS client_profession,
			contractor.first_name AS contractor_first_name,
			contractor.last_name AS contractor_last_name,
			contractor.profession AS contractor_profession
		FROM jobs j
		JOIN contracts c ON c.id = j.contract_id
		JOIN profiles client ON client.id = c.client_id
		JOIN profiles contractor ON contractor.id = c.contractor_id
		WHERE j.id = ? AND c.client_id = ? AND j.paid = ?
		LIMIT 1
	`, jobID, clientID, true).Scan(&row).Error; err != nil {
		return nil, err
	}
	if row.JobID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}

	return &model.PaymentReceipt{
		Job: model.Job{
			ID:          row.JobID,
			ContractID:  row.ContractID,
			Description: row.Description,
			Price:       row.Price,
			Paid:        row.Paid,
			PaymentDate: row.PaymentDate,
			CreatedAt:   row.JobCreatedAt,
		},
		Contract: model.Contract{
			ID:           row.ContractID,
			ClientID:     row.ClientID,
			ContractorID: row.ContractorID,
			Terms:        row.Terms,
			Status:       row.Status,
			CreatedAt:    row.ContractCreatedAt,
		},
		Client: model.Profile{
			ID:         row.ClientID,
			Type:       model.ProfileTypeClient,
			FirstName:  row.ClientFirstName,
			LastName:   row.ClientLastName,
			Profession: row.ClientProfession,
		},
		Contractor: model.Profile{
			ID:         row.ContractorID,
			Type:       model.ProfileTypeContractor,
			FirstName:  row.ContractorFirstName,
			LastName:   row.ContractorLastName,
			Profession: row.ContractorProfession,
		},
	}, nil
}

// classify keeps domain sentinels as-is and wraps transient Postgres
// contention (serialization failure, deadlock, lock timeout) so callers can
// retry.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01", "55P03":
			return fmt.Errorf("%w: %s", ErrTxConflict, pgErr.Code)
		}
	}
	return err
}
