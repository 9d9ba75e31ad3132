package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Job is a billable unit of work. Paid is a one-way flag: once set it never
// flips back, and PaymentDate is set iff Paid is true.
type Job struct {
	ID          uuid.UUID
	ContractID  uuid.UUID
	Description string
	Price       decimal.Decimal
	Paid        bool
	PaymentDate *time.Time
	CreatedAt   time.Time
}
