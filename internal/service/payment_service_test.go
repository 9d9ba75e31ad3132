package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/askarbek/marketpay/internal/config"
	"github.com/askarbek/marketpay/internal/dbtest"
	"github.com/askarbek/marketpay/internal/model"
	"github.com/askarbek/marketpay/internal/pdf"
	"github.com/askarbek/marketpay/internal/repository"
)

func newPaymentService(db *gorm.DB) (*PaymentService, *repository.LedgerRepository) {
	repo := repository.NewLedgerRepository(db)
	cfg := &config.Config{Ledger: config.LedgerConfig{DepositCapDivisor: 4, BestClientsLimit: 2}}
	return NewPaymentService(repo, pdf.NewGenerator(), cfg), repo
}

func reloadProfile(t *testing.T, repo *repository.LedgerRepository, id uuid.UUID) model.Profile {
	t.Helper()
	profile, err := repo.GetProfile(context.Background(), id)
	require.NoError(t, err)
	return *profile
}

func TestPayJobSuccess(t *testing.T) {
	db := dbtest.Open(t)
	svc, _ := newPaymentService(db)

	client := dbtest.CreateProfile(t, db, model.ProfileTypeClient, "Harry", "Potter", "wizard", "250")
	contractor := dbtest.CreateProfile(t, db, model.ProfileTypeContractor, "John", "Lenon", "musician", "64")
	contract := dbtest.CreateContract(t, db, client, contractor, model.ContractStatusInProgress)
	job := dbtest.CreateJob(t, db, contract, "200")

	require.NoError(t, svc.PayJob(context.Background(), client, job.ID))

	assert.True(t, dbtest.Balance(t, db, client.ID).Equal(decimal.RequireFromString("50")))
	assert.True(t, dbtest.Balance(t, db, contractor.ID).Equal(decimal.RequireFromString("264")))

	paid, paymentDate := dbtest.JobPaid(t, db, job.ID)
	assert.True(t, paid)
	require.NotNil(t, paymentDate)
}

func TestPayJobConservesMoney(t *testing.T) {
	db := dbtest.Open(t)
	svc, _ := newPaymentService(db)

	client := dbtest.CreateProfile(t, db, model.ProfileTypeClient, "Mr", "Robot", "hacker", "1000")
	contractor := dbtest.CreateProfile(t, db, model.ProfileTypeContractor, "Alan", "Turing", "programmer", "0")
	contract := dbtest.CreateContract(t, db, client, contractor, model.ContractStatusInProgress)
	job := dbtest.CreateJob(t, db, contract, "321.45")

	before := dbtest.Balance(t, db, client.ID).Add(dbtest.Balance(t, db, contractor.ID))
	require.NoError(t, svc.PayJob(context.Background(), client, job.ID))
	after := dbtest.Balance(t, db, client.ID).Add(dbtest.Balance(t, db, contractor.ID))

	assert.True(t, before.Equal(after), "sum of balances changed: %s -> %s", before, after)
}

func TestPayJobInsufficientFunds(t *testing.T) {
	db := dbtest.Open(t)
	svc, _ := newPaymentService(db)

	client := dbtest.CreateProfile(t, db, model.ProfileTypeClient, "Harry", "Potter", "wizard", "150")
	contractor := dbtest.CreateProfile(t, db, model.ProfileTypeContractor, "John", "Lenon", "musician", "0")
	contract := dbtest.CreateContract(t, db, client, contractor, model.ContractStatusInProgress)
	job := dbtest.CreateJob(t, db, contract, "200")

	err := svc.PayJob(context.Background(), client, job.ID)
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	assert.True(t, dbtest.Balance(t, db, client.ID).Equal(decimal.RequireFromString("150")))
	assert.True(t, dbtest.Balance(t, db, contractor.ID).IsZero())
	paid, _ := dbtest.JobPaid(t, db, job.ID)
	assert.False(t, paid)
}

func TestPayJobTwice(t *testing.T) {
	db := dbtest.Open(t)
	svc, repo := newPaymentService(db)

	client := dbtest.CreateProfile(t, db, model.ProfileTypeClient, "Ash", "Kethcum", "trainer", "500")
	contractor := dbtest.CreateProfile(t, db, model.ProfileTypeContractor, "Linus", "Torvalds", "programmer", "0")
	contract := dbtest.CreateContract(t, db, client, contractor, model.ContractStatusInProgress)
	job := dbtest.CreateJob(t, db, contract, "200")

	require.NoError(t, svc.PayJob(context.Background(), client, job.ID))

	// The second attempt must see the committed paid flag even though the
	// caller snapshot still holds the old balance.
	refreshed := reloadProfile(t, repo, client.ID)
	err := svc.PayJob(context.Background(), refreshed, job.ID)
	assert.ErrorIs(t, err, ErrAlreadyPaid)

	assert.True(t, dbtest.Balance(t, db, client.ID).Equal(decimal.RequireFromString("300")))
	assert.True(t, dbtest.Balance(t, db, contractor.ID).Equal(decimal.RequireFromString("200")))
}

func TestPayJobStaleSnapshotIsRejectedAtomically(t *testing.T) {
	db := dbtest.Open(t)
	svc, _ := newPaymentService(db)

	client := dbtest.CreateProfile(t, db, model.ProfileTypeClient, "Harry", "Potter", "wizard", "250")
	contractor := dbtest.CreateProfile(t, db, model.ProfileTypeContractor, "John", "Lenon", "musician", "0")
	contract := dbtest.CreateContract(t, db, client, contractor, model.ContractStatusInProgress)
	jobA := dbtest.CreateJob(t, db, contract, "200")
	jobB := dbtest.CreateJob(t, db, contract, "200")

	require.NoError(t, svc.PayJob(context.Background(), client, jobA.ID))

	// The caller still carries balance 250 from before the first payment;
	// the transactional debit condition must reject the second job.
	err := svc.PayJob(context.Background(), client, jobB.ID)
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	assert.True(t, dbtest.Balance(t, db, client.ID).Equal(decimal.RequireFromString("50")))
	paid, _ := dbtest.JobPaid(t, db, jobB.ID)
	assert.False(t, paid)
}

func TestPayJobNotFound(t *testing.T) {
	db := dbtest.Open(t)
	svc, _ := newPaymentService(db)

	client := dbtest.CreateProfile(t, db, model.ProfileTypeClient, "Harry", "Potter", "wizard", "250")
	contractor := dbtest.CreateProfile(t, db, model.ProfileTypeContractor, "John", "Lenon", "musician", "0")
	contract := dbtest.CreateContract(t, db, client, contractor, model.ContractStatusInProgress)
	job := dbtest.CreateJob(t, db, contract, "200")

	// Unknown job id.
	err := svc.PayJob(context.Background(), client, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)

	// The contractor cannot pay its own job: the client-scoped lookup
	// misses, and existence is not revealed.
	err = svc.PayJob(context.Background(), contractor, job.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// Another client cannot reach a foreign job either.
	stranger := dbtest.CreateProfile(t, db, model.ProfileTypeClient, "Other", "Client", "none", "1000")
	err = svc.PayJob(context.Background(), stranger, job.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDepositWithinCap(t *testing.T) {
	db := dbtest.Open(t)
	svc, _ := newPaymentService(db)

	client := dbtest.CreateProfile(t, db, model.ProfileTypeClient, "Harry", "Potter", "wizard", "100")
	contractor := dbtest.CreateProfile(t, db, model.ProfileTypeContractor, "John", "Lenon", "musician", "0")
	contract := dbtest.CreateContract(t, db, client, contractor, model.ContractStatusInProgress)
	dbtest.CreateJob(t, db, contract, "300")
	dbtest.CreateJob(t, db, contract, "100")

	// pending = 400, cap = 100; the boundary amount succeeds.
	err := svc.Deposit(context.Background(), client.ID, decimal.RequireFromString("100"))
	require.NoError(t, err)
	assert.True(t, dbtest.Balance(t, db, client.ID).Equal(decimal.RequireFromString("200")))
}

func TestDepositAboveCap(t *testing.T) {
	db := dbtest.Open(t)
	svc, _ := newPaymentService(db)

	client := dbtest.CreateProfile(t, db, model.ProfileTypeClient, "Harry", "Potter", "wizard", "100")
	contractor := dbtest.CreateProfile(t, db, model.ProfileTypeContractor, "John", "Lenon", "musician", "0")
	contract := dbtest.CreateContract(t, db, client, contractor, model.ContractStatusInProgress)
	dbtest.CreateJob(t, db, contract, "400")

	err := svc.Deposit(context.Background(), client.ID, decimal.RequireFromString("100.01"))
	assert.ErrorIs(t, err, ErrDepositTooLarge)
	assert.True(t, dbtest.Balance(t, db, client.ID).Equal(decimal.RequireFromString("100")))
}

func TestDepositCountsPaidJobsOut(t *testing.T) {
	db := dbtest.Open(t)
	svc, _ := newPaymentService(db)

	client := dbtest.CreateProfile(t, db, model.ProfileTypeClient, "Harry", "Potter", "wizard", "0")
	contractor := dbtest.CreateProfile(t, db, model.ProfileTypeContractor, "John", "Lenon", "musician", "0")
	contract := dbtest.CreateContract(t, db, client, contractor, model.ContractStatusInProgress)
	dbtest.CreatePaidJob(t, db, contract, "1000", time.Now().UTC())
	dbtest.CreateJob(t, db, contract, "40")

	// Only the unpaid 40 counts: cap = 10.
	err := svc.Deposit(context.Background(), client.ID, decimal.RequireFromString("10.5"))
	assert.ErrorIs(t, err, ErrDepositTooLarge)

	require.NoError(t, svc.Deposit(context.Background(), client.ID, decimal.RequireFromString("10")))
}

func TestDepositNoPendingWork(t *testing.T) {
	db := dbtest.Open(t)
	svc, _ := newPaymentService(db)

	client := dbtest.CreateProfile(t, db, model.ProfileTypeClient, "Harry", "Potter", "wizard", "100")

	err := svc.Deposit(context.Background(), client.ID, decimal.RequireFromString("10"))
	assert.ErrorIs(t, err, ErrNoPendingWork)
}

func TestDepositToContractor(t *testing.T) {
	db := dbtest.Open(t)
	svc, _ := newPaymentService(db)

	contractor := dbtest.CreateProfile(t, db, model.ProfileTypeContractor, "John", "Lenon", "musician", "0")

	err := svc.Deposit(context.Background(), contractor.ID, decimal.RequireFromString("10"))
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestDepositInvalidInput(t *testing.T) {
	db := dbtest.Open(t)
	svc, _ := newPaymentService(db)

	client := dbtest.CreateProfile(t, db, model.ProfileTypeClient, "Harry", "Potter", "wizard", "100")

	err := svc.Deposit(context.Background(), client.ID, decimal.Zero)
	assert.ErrorIs(t, err, ErrInvalidInput)

	err = svc.Deposit(context.Background(), client.ID, decimal.RequireFromString("-5"))
	assert.ErrorIs(t, err, ErrInvalidInput)

	err = svc.Deposit(context.Background(), uuid.New(), decimal.RequireFromString("10"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestJobReceipt(t *testing.T) {
	db := dbtest.Open(t)
	svc, _ := newPaymentService(db)

	client := dbtest.CreateProfile(t, db, model.ProfileTypeClient, "Harry", "Potter", "wizard", "250")
	contractor := dbtest.CreateProfile(t, db, model.ProfileTypeContractor, "John", "Lenon", "musician", "0")
	contract := dbtest.CreateContract(t, db, client, contractor, model.ContractStatusInProgress)
	unpaid := dbtest.CreateJob(t, db, contract, "200")

	// No receipt before payment.
	_, err := svc.JobReceipt(context.Background(), client, unpaid.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, svc.PayJob(context.Background(), client, unpaid.ID))

	result, err := svc.JobReceipt(context.Background(), client, unpaid.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, result.Content)
	assert.Contains(t, result.FileName, unpaid.ID.String())
}
