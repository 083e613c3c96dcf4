package domain

import (
	"fmt"
	"strings"
	"time"
)

// Contract carries the terms under which an asset may change hands. An asset
// without a contract cannot be transferred.
type Contract struct {
	ID           string
	AssetID      string
	Content      string
	Summary      string
	Organization string
	UpdatedBy    string
	UpdateCount  int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewContract validates input and assigns identity and timestamps.
func NewContract(assetID, content, summary, userFingerprint, organization string) (Contract, error) {
	if strings.TrimSpace(assetID) == "" {
		return Contract{}, fmt.Errorf("%w: asset id is required", ErrValidation)
	}
	if strings.TrimSpace(content) == "" {
		return Contract{}, fmt.Errorf("%w: contract content is required", ErrValidation)
	}
	if err := ValidateOrganization(organization); err != nil {
		return Contract{}, err
	}
	id, err := NewKey(DomainKeySize)
	if err != nil {
		return Contract{}, fmt.Errorf("generate contract id: %w", err)
	}
	now := time.Now().UTC()
	return Contract{
		ID:           id,
		AssetID:      assetID,
		Content:      content,
		Summary:      summary,
		Organization: organization,
		UpdatedBy:    userFingerprint,
		UpdateCount:  0,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}
