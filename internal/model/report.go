package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ProfessionEarning struct {
	Profession string
	Total      decimal.Decimal
}

type ClientPayment struct {
	ClientID   uuid.UUID
	FirstName  string
	LastName   string
	Profession string
	Paid       decimal.Decimal
}

func (c ClientPayment) FullName() string {
	return c.FirstName + " " + c.LastName
}

// EarningsReport is the input for the Excel export: both aggregations over
// the same payment-date range.
type EarningsReport struct {
	PeriodStart time.Time
	PeriodEnd   time.Time
	Professions []ProfessionEarning
	Clients     []ClientPayment
}

// PaymentReceipt is the input for the PDF receipt of a single paid job.
type PaymentReceipt struct {
	Job        Job
	Contract   Contract
	Client     Profile
	Contractor Profile
}
