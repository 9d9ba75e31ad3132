package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/askarbek/marketpay/internal/model"
	"github.com/askarbek/marketpay/internal/repository"
)

type ContractService struct {
	repo *repository.LedgerRepository
}

func NewContractService(repo *repository.LedgerRepository) *ContractService {
	return &ContractService{repo: repo}
}

// GetContract returns the contract only when the caller occupies one of its
// sides; anything else is a not-found.
func (s *ContractService) GetContract(ctx context.Context, caller model.Profile, id uuid.UUID) (*model.Contract, error) {
	if id == uuid.Nil {
		return nil, ErrInvalidInput
	}

	contract, err := s.repo.GetContractForProfile(ctx, id, caller)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, mapStoreError(err)
	}
	if err := AuthorizeContractAccess(caller, *contract); err != nil {
		return nil, err
	}
	return contract, nil
}

func (s *ContractService) ListContracts(ctx context.Context, caller model.Profile) ([]model.Contract, error) {
	contracts, err := s.repo.ListContractsForProfile(ctx, caller)
	if err != nil {
		return nil, mapStoreError(err)
	}
	if len(contracts) == 0 {
		return nil, ErrNotFound
	}
	return contracts, nil
}

func (s *ContractService) ListUnpaidJobs(ctx context.Context, caller model.Profile) ([]model.Job, error) {
	jobs, err := s.repo.ListUnpaidJobsForProfile(ctx, caller)
	if err != nil {
		return nil, mapStoreError(err)
	}
	if len(jobs) == 0 {
		return nil, ErrNotFound
	}
	return jobs, nil
}

// mapStoreError turns transient store contention into the retryable
// ErrUnavailable; everything else passes through as an internal failure.
func mapStoreError(err error) error {
	if errors.Is(err, repository.ErrTxConflict) {
		return ErrUnavailable
	}
	return err
}
