// Package domain holds the registry entities and the rules that create them.
package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// ErrValidation marks input rejected before any storage access.
var ErrValidation = errors.New("invalid argument")

const (
	minNameLength         = 3
	maxNameLength         = 32
	minSymbolLength       = 3
	maxSymbolLength       = 10
	minOrganizationLength = 32
)

// Asset is a registered digital asset held by an organization.
type Asset struct {
	ID               string
	Name             string
	Symbol           string
	Description      string
	Organization     string
	OwnerFingerprint string
	Listable         bool
	Tradable         bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
	UpdatedBy        string
}

// NewAsset validates the creation input and assigns identity and timestamps.
// The symbol is stored uppercased. New assets start listable and not
// tradable; tradability is granted later by an explicit update.
func NewAsset(name, symbol, ownerFingerprint, description, organization string) (Asset, error) {
	if err := validateName(name); err != nil {
		return Asset{}, err
	}
	if err := validateSymbol(symbol); err != nil {
		return Asset{}, err
	}
	if err := ValidateOrganization(organization); err != nil {
		return Asset{}, err
	}
	if strings.TrimSpace(ownerFingerprint) == "" {
		return Asset{}, fmt.Errorf("%w: owner fingerprint is required", ErrValidation)
	}

	id, err := NewKey(DomainKeySize)
	if err != nil {
		return Asset{}, fmt.Errorf("generate asset id: %w", err)
	}
	now := time.Now().UTC()
	return Asset{
		ID:               id,
		Name:             name,
		Symbol:           strings.ToUpper(symbol),
		Description:      description,
		Organization:     organization,
		OwnerFingerprint: ownerFingerprint,
		Listable:         true,
		Tradable:         false,
		CreatedAt:        now,
		UpdatedAt:        now,
		UpdatedBy:        ownerFingerprint,
	}, nil
}

func validateName(name string) error {
	if len(name) < minNameLength || len(name) > maxNameLength {
		return fmt.Errorf("%w: name should be between %d and %d characters long",
			ErrValidation, minNameLength, maxNameLength)
	}
	return nil
}

func validateSymbol(symbol string) error {
	if len(symbol) < minSymbolLength || len(symbol) > maxSymbolLength {
		return fmt.Errorf("%w: symbol should be between %d and %d characters long",
			ErrValidation, minSymbolLength, maxSymbolLength)
	}
	if strings.ContainsFunc(symbol, unicode.IsSpace) {
		return fmt.Errorf("%w: symbol must not contain whitespace", ErrValidation)
	}
	return nil
}

// ValidateOrganization checks that the value is a UUID-shaped tenant
// identifier of at least 32 characters.
func ValidateOrganization(organization string) error {
	if len(organization) < minOrganizationLength {
		return fmt.Errorf("%w: organization must be at least %d characters long",
			ErrValidation, minOrganizationLength)
	}
	if _, err := uuid.Parse(organization); err != nil {
		return fmt.Errorf("%w: organization must be a UUID", ErrValidation)
	}
	return nil
}
