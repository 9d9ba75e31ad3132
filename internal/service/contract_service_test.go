package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askarbek/marketpay/internal/dbtest"
	"github.com/askarbek/marketpay/internal/model"
	"github.com/askarbek/marketpay/internal/repository"
)

func TestGetContractVisibility(t *testing.T) {
	db := dbtest.Open(t)
	svc := NewContractService(repository.NewLedgerRepository(db))

	client := dbtest.CreateProfile(t, db, model.ProfileTypeClient, "Harry", "Potter", "wizard", "100")
	contractor := dbtest.CreateProfile(t, db, model.ProfileTypeContractor, "John", "Lenon", "musician", "0")
	contract := dbtest.CreateContract(t, db, client, contractor, model.ContractStatusInProgress)

	got, err := svc.GetContract(context.Background(), client, contract.ID)
	require.NoError(t, err)
	assert.Equal(t, contract.ID, got.ID)

	got, err = svc.GetContract(context.Background(), contractor, contract.ID)
	require.NoError(t, err)
	assert.Equal(t, contract.ID, got.ID)

	stranger := dbtest.CreateProfile(t, db, model.ProfileTypeClient, "Other", "Client", "none", "0")
	_, err = svc.GetContract(context.Background(), stranger, contract.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.GetContract(context.Background(), client, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListContractsPerRole(t *testing.T) {
	db := dbtest.Open(t)
	svc := NewContractService(repository.NewLedgerRepository(db))

	client := dbtest.CreateProfile(t, db, model.ProfileTypeClient, "Harry", "Potter", "wizard", "100")
	other := dbtest.CreateProfile(t, db, model.ProfileTypeClient, "Mr", "Robot", "hacker", "100")
	contractorA := dbtest.CreateProfile(t, db, model.ProfileTypeContractor, "John", "Lenon", "musician", "0")
	contractorB := dbtest.CreateProfile(t, db, model.ProfileTypeContractor, "Linus", "Torvalds", "programmer", "0")

	dbtest.CreateContract(t, db, client, contractorA, model.ContractStatusInProgress)
	dbtest.CreateContract(t, db, client, contractorB, model.ContractStatusNew)
	dbtest.CreateContract(t, db, client, contractorA, model.ContractStatusTerminated)
	dbtest.CreateContract(t, db, other, contractorB, model.ContractStatusInProgress)

	contracts, err := svc.ListContracts(context.Background(), client)
	require.NoError(t, err)
	assert.Len(t, contracts, 3)
	for _, contract := range contracts {
		assert.Equal(t, client.ID, contract.ClientID)
	}

	contracts, err = svc.ListContracts(context.Background(), contractorB)
	require.NoError(t, err)
	assert.Len(t, contracts, 2)
	for _, contract := range contracts {
		assert.Equal(t, contractorB.ID, contract.ContractorID)
	}

	lonely := dbtest.CreateProfile(t, db, model.ProfileTypeContractor, "No", "Work", "idle", "0")
	_, err = svc.ListContracts(context.Background(), lonely)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListUnpaidJobs(t *testing.T) {
	db := dbtest.Open(t)
	svc := NewContractService(repository.NewLedgerRepository(db))

	client := dbtest.CreateProfile(t, db, model.ProfileTypeClient, "Harry", "Potter", "wizard", "100")
	contractor := dbtest.CreateProfile(t, db, model.ProfileTypeContractor, "John", "Lenon", "musician", "0")

	active := dbtest.CreateContract(t, db, client, contractor, model.ContractStatusInProgress)
	terminated := dbtest.CreateContract(t, db, client, contractor, model.ContractStatusTerminated)

	wanted := dbtest.CreateJob(t, db, active, "200")
	dbtest.CreatePaidJob(t, db, active, "100", wanted.CreatedAt)
	dbtest.CreateJob(t, db, terminated, "300")

	jobs, err := svc.ListUnpaidJobs(context.Background(), client)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, wanted.ID, jobs[0].ID)
	assert.False(t, jobs[0].Paid)

	// Same view from the contractor side.
	jobs, err = svc.ListUnpaidJobs(context.Background(), contractor)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, wanted.ID, jobs[0].ID)

	stranger := dbtest.CreateProfile(t, db, model.ProfileTypeClient, "Other", "Client", "none", "0")
	_, err = svc.ListUnpaidJobs(context.Background(), stranger)
	assert.ErrorIs(t, err, ErrNotFound)
}
