package service

import (
	"fmt"

	"github.com/askarbek/marketpay/internal/model"
)

// ContractRole is the side of a contract a profile can occupy.
type ContractRole int

const (
	RoleClient ContractRole = iota
	RoleContractor
)

// ResolveRole maps a profile to its contract role. The profile type enum is
// closed; anything else is a data error.
func ResolveRole(profile model.Profile) (ContractRole, error) {
	switch profile.Type {
	case model.ProfileTypeClient:
		return RoleClient, nil
	case model.ProfileTypeContractor:
		return RoleContractor, nil
	default:
		return 0, fmt.Errorf("%w: unknown profile type %q", ErrInvalidInput, profile.Type)
	}
}

// AuthorizeContractAccess checks that the profile occupies its role's side
// of the contract. Mismatches return ErrNotFound, not a forbidden error, so
// existence is not revealed to callers outside the contract.
func AuthorizeContractAccess(profile model.Profile, contract model.Contract) error {
	role, err := ResolveRole(profile)
	if err != nil {
		return err
	}

	switch role {
	case RoleClient:
		if contract.ClientID != profile.ID {
			return ErrNotFound
		}
	case RoleContractor:
		if contract.ContractorID != profile.ID {
			return ErrNotFound
		}
	}
	return nil
}
