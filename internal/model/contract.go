package model

import (
	"time"

	"github.com/google/uuid"
)

type ContractStatus string

const (
	ContractStatusNew        ContractStatus = "new"
	ContractStatusInProgress ContractStatus = "in_progress"
	ContractStatusTerminated ContractStatus = "terminated"
)

// Contract binds exactly one client and one contractor. It is read-only in
// this service; jobs and balances are the only mutable state.
type Contract struct {
	ID           uuid.UUID
	ClientID     uuid.UUID
	ContractorID uuid.UUID
	Terms        string
	Status       ContractStatus
	CreatedAt    time.Time
}
