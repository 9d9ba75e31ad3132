package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/askarbek/marketpay/internal/config"
	"github.com/askarbek/marketpay/internal/model"
	"github.com/askarbek/marketpay/internal/repository"
)

type ReceiptGenerator interface {
	Generate(receipt model.PaymentReceipt) ([]byte, error)
}

type PaymentService struct {
	repo    *repository.LedgerRepository
	pdf     ReceiptGenerator
	divisor int64
}

type ReceiptResult struct {
	FileName string
	Content  []byte
}

func NewPaymentService(repo *repository.LedgerRepository, pdf ReceiptGenerator, cfg *config.Config) *PaymentService {
	return &PaymentService{
		repo:    repo,
		pdf:     pdf,
		divisor: cfg.Ledger.DepositCapDivisor,
	}
}

// PayJob pays the contractor for one of the calling client's jobs. The
// precondition ladder decides the outcome; the repository transaction
// re-checks each condition while applying the writes, so concurrent callers
// cannot double-pay a job or drive a balance negative.
func (s *PaymentService) PayJob(ctx context.Context, caller model.Profile, jobID uuid.UUID) error {
	if jobID == uuid.Nil {
		return ErrInvalidInput
	}

	job, contractorID, err := s.repo.GetClientJob(ctx, jobID, caller.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return mapStoreError(err)
	}
	if job.Paid {
		return ErrAlreadyPaid
	}
	if caller.Balance.LessThan(job.Price) {
		return ErrInsufficientFunds
	}

	err = s.repo.PayJob(ctx, job.ID, caller.ID, contractorID, job.Price)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrJobAlreadyPaid):
		return ErrAlreadyPaid
	case errors.Is(err, repository.ErrInsufficientBalance):
		return ErrInsufficientFunds
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	default:
		return mapStoreError(err)
	}
}

// Deposit credits a client's balance, capped at pending/divisor where
// pending is the sum of the client's unpaid job prices. The cap is enforced
// against a pending total read in the same transaction as the credit.
func (s *PaymentService) Deposit(ctx context.Context, clientID uuid.UUID, amount decimal.Decimal) error {
	if clientID == uuid.Nil {
		return ErrInvalidInput
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("%w: deposit amount must be positive", ErrInvalidInput)
	}

	profile, err := s.repo.GetProfile(ctx, clientID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return mapStoreError(err)
	}
	if !profile.IsClient() {
		return ErrForbidden
	}

	err = s.repo.Deposit(ctx, clientID, amount, s.divisor)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNoPendingJobs):
		return ErrNoPendingWork
	case errors.Is(err, repository.ErrDepositTooLarge):
		return ErrDepositTooLarge
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	default:
		return mapStoreError(err)
	}
}

// JobReceipt renders a PDF receipt for a paid job owned by the calling
// client. Unpaid or foreign jobs are not found.
func (s *PaymentService) JobReceipt(ctx context.Context, caller model.Profile, jobID uuid.UUID) (*ReceiptResult, error) {
	if jobID == uuid.Nil {
		return nil, ErrInvalidInput
	}

	receipt, err := s.repo.GetPaymentReceipt(ctx, jobID, caller.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, mapStoreError(err)
	}

	content, err := s.pdf.Generate(*receipt)
	if err != nil {
		return nil, err
	}
	return &ReceiptResult{
		FileName: fmt.Sprintf("receipt-%s.pdf", receipt.Job.ID),
		Content:  content,
	}, nil
}
