package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ProfileType string

const (
	ProfileTypeClient     ProfileType = "client"
	ProfileTypeContractor ProfileType = "contractor"
)

type Profile struct {
	ID         uuid.UUID
	Type       ProfileType
	FirstName  string
	LastName   string
	Profession string
	Balance    decimal.Decimal
}

func (p Profile) IsClient() bool {
	return p.Type == ProfileTypeClient
}

func (p Profile) IsContractor() bool {
	return p.Type == ProfileTypeContractor
}

func (p Profile) FullName() string {
	return p.FirstName + " " + p.LastName
}
