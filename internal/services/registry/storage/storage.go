// Package storage defines persistence contracts for registry state.
package storage

import (
	"context"
	"errors"

	"github.com/xrfone/registry/internal/services/registry/domain"
)

// Sentinel errors form the storage half of the error taxonomy. Driver error
// codes are translated into these exactly once, at the storage boundary.
var (
	// ErrNotFound indicates no matching row for a scoped lookup.
	ErrNotFound = errors.New("record not found")
	// ErrConflict indicates a unique-constraint violation.
	ErrConflict = errors.New("record already exists")
	// ErrTransactionStep indicates an intermediate write inside a multi-step
	// transaction affected the wrong number of rows; the unit of work must
	// roll back.
	ErrTransactionStep = errors.New("transaction step failed")
	// ErrUnavailable indicates the storage handle is closed or timed out.
	// Retryable by the caller, never retried internally.
	ErrUnavailable = errors.New("storage unavailable")
	// ErrInvalidRecordState indicates persisted data violating an invariant,
	// such as an asset without a certificate. A server-side bug signal.
	ErrInvalidRecordState = errors.New("invalid record state")
)

// UpdateAssetFields holds the optional fields of a partial asset update.
// Nil fields are left untouched.
type UpdateAssetFields struct {
	Name         *string
	Symbol       *string
	Description  *string
	Organization *string
	Listable     *bool
	Tradable     *bool
}

// Empty reports whether no field is set, in which case an update is a no-op.
func (f UpdateAssetFields) Empty() bool {
	return f.Name == nil && f.Symbol == nil && f.Description == nil &&
		f.Organization == nil && f.Listable == nil && f.Tradable == nil
}

// AssetStore persists asset records. Every call is a direct storage round
// trip; there is no in-memory caching.
type AssetStore interface {
	FindAssetByID(ctx context.Context, assetID string) (domain.Asset, error)
	FindAssetByIDAndOrg(ctx context.Context, assetID, organization string) (domain.Asset, error)
	UpdateAsset(ctx context.Context, assetID, updatedBy string, fields UpdateAssetFields) (bool, error)
	DeleteAsset(ctx context.Context, assetID string) (bool, error)
}

// AssetLister is the sorted read path consumed by the query engine.
type AssetLister interface {
	ListAssets(ctx context.Context, offset int64, limit int, order Order) ([]domain.Asset, error)
	SearchAssetsByName(ctx context.Context, term string, offset int64, limit int, order Order) ([]domain.Asset, error)
	SearchAssetsBySymbol(ctx context.Context, term string, offset int64, limit int, order Order) ([]domain.Asset, error)
}

// CertificateStore reads issued certificates.
type CertificateStore interface {
	FindCertificateByID(ctx context.Context, certificateID string) (domain.Certificate, error)
	FindCertificateByAssetID(ctx context.Context, assetID string) (domain.Certificate, error)
}

// TrailStore reads the append-only ownership trail.
type TrailStore interface {
	ListTrailByCertificate(ctx context.Context, certificateID string) ([]domain.TrailEntry, error)
}

// ContractStore persists transfer contracts.
type ContractStore interface {
	InsertContract(ctx context.Context, contract domain.Contract) (bool, error)
	FindContractByAssetID(ctx context.Context, assetID string) (domain.Contract, error)
}

// TxOps are the write operations available inside one unit of work. They
// never open or commit transactions themselves.
type TxOps interface {
	// InsertAsset reports false when the insert affected zero rows.
	InsertAsset(ctx context.Context, asset domain.Asset) (bool, error)
	// InsertCertificate reports false when the insert affected zero rows.
	InsertCertificate(ctx context.Context, certificate domain.Certificate) (bool, error)
	// AppendTrail reports false when the insert affected zero rows; callers
	// treat that as a signal to abort the enclosing transaction.
	AppendTrail(ctx context.Context, entry domain.TrailEntry) (bool, error)
	// UpdateAssetOwnership mutates organization, owner fingerprint and the
	// updated_* stamps by asset id and returns the affected row count.
	UpdateAssetOwnership(ctx context.Context, assetID, newOrganization, newOwner string) (int64, error)
}

// TxRunner executes fn inside a single transaction. Any error returned by fn
// rolls back every write; commit is the only path out of a nil return.
type TxRunner interface {
	InTransaction(ctx context.Context, fn func(TxOps) error) error
}
