// Package orchestrator composes registry writes into atomic units of work.
//
// It is the only component permitted to open a transaction spanning the
// asset, certificate and trail tables. Every unit of work has a single
// rollback path: the first failing step aborts the whole transaction, and
// commit is the only way out of a nil return.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/xrfone/registry/internal/services/registry/domain"
	"github.com/xrfone/registry/internal/services/registry/storage"
)

const tracerName = "registry/orchestrator"

// Store is the storage surface the orchestrator reads and transacts against.
type Store interface {
	storage.TxRunner
	FindAssetByIDAndOrg(ctx context.Context, assetID, organization string) (domain.Asset, error)
	FindCertificateByAssetID(ctx context.Context, assetID string) (domain.Certificate, error)
}

// ContractChecker looks up the contract attached to an asset.
type ContractChecker interface {
	FindContractByAssetID(ctx context.Context, assetID string) (domain.Contract, error)
}

// Issuer mints a certificate for an asset.
type Issuer interface {
	Issue(assetID string) (domain.Certificate, error)
}

// Orchestrator executes the issuance-on-create and transfer state machines.
type Orchestrator struct {
	store     Store
	contracts ContractChecker
	issuer    Issuer
	tracer    trace.Tracer
}

// New wires an orchestrator from its collaborators.
func New(store Store, contracts ContractChecker, issuer Issuer) *Orchestrator {
	return &Orchestrator{
		store:     store,
		contracts: contracts,
		issuer:    issuer,
		tracer:    otel.Tracer(tracerName),
	}
}

// CreateAsset persists a validated asset together with its first certificate
// and the issuance trail entry, all inside one transaction. Either all three
// rows land or none do. Returns false, without error, when the asset insert
// affected zero rows; no certificate is issued in that case.
func (o *Orchestrator) CreateAsset(ctx context.Context, asset domain.Asset) (bool, error) {
	ctx, span := o.tracer.Start(ctx, "orchestrator.CreateAsset",
		trace.WithAttributes(attribute.String("asset.id", asset.ID)))
	defer span.End()

	var created bool
	err := o.store.InTransaction(ctx, func(tx storage.TxOps) error {
		inserted, err := tx.InsertAsset(ctx, asset)
		if err != nil {
			return err
		}
		if !inserted {
			return nil
		}

		certificate, err := o.issuer.Issue(asset.ID)
		if err != nil {
			// Rolls back the asset insert; an asset row must never
			// persist without its certificate.
			return fmt.Errorf("issue certificate: %w", err)
		}
		certCreated, err := tx.InsertCertificate(ctx, certificate)
		if err != nil {
			return err
		}
		if !certCreated {
			return fmt.Errorf("insert certificate affected zero rows: %w", storage.ErrTransactionStep)
		}

		entry := domain.NewTrailEntry(certificate.ID, asset.ID, asset.OwnerFingerprint)
		trailCreated, err := tx.AppendTrail(ctx, entry)
		if err != nil {
			return err
		}
		if !trailCreated {
			return fmt.Errorf("append issuance trail affected zero rows: %w", storage.ErrTransactionStep)
		}

		created = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return created, nil
}

// TransferAsset moves an asset to a new organization and owner and appends
// the trail entry documenting the change, atomically. It returns the
// unchanged certificate that now documents the new ownership.
//
// The ownership precondition is checked before the write transaction and is
// not re-validated inside it; there is no optimistic-concurrency token. Two
// concurrent transfers of the same asset race, and the affected-row-count
// check is the backstop that keeps the trail consistent with whichever
// update wins.
func (o *Orchestrator) TransferAsset(ctx context.Context, organization, assetID, newOrganization, newOwner string) (domain.Certificate, error) {
	ctx, span := o.tracer.Start(ctx, "orchestrator.TransferAsset",
		trace.WithAttributes(
			attribute.String("asset.id", assetID),
			attribute.String("asset.organization", organization),
		))
	defer span.End()

	asset, err := o.store.FindAssetByIDAndOrg(ctx, assetID, organization)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return domain.Certificate{}, fmt.Errorf("asset not found in specified org: %w", storage.ErrNotFound)
		}
		return domain.Certificate{}, err
	}

	// A transfer to the same org and same owner is invalid input, not a
	// no-op success.
	if asset.Organization == newOrganization && asset.OwnerFingerprint == newOwner {
		return domain.Certificate{}, fmt.Errorf("%w: asset already belongs to this organization and owner", domain.ErrValidation)
	}

	if _, err := o.contracts.FindContractByAssetID(ctx, assetID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return domain.Certificate{}, fmt.Errorf("asset %s has no contract: %w", assetID, storage.ErrNotFound)
		}
		return domain.Certificate{}, err
	}

	certificate, err := o.store.FindCertificateByAssetID(ctx, assetID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// Should never happen: issuance-on-create guarantees the
			// certificate, so a missing one is a server-side bug signal.
			return domain.Certificate{}, fmt.Errorf("asset %s without certificate: %w", assetID, storage.ErrInvalidRecordState)
		}
		return domain.Certificate{}, err
	}

	log.Printf("transferring asset %s to organization %s", assetID, newOrganization)
	err = o.store.InTransaction(ctx, func(tx storage.TxOps) error {
		affected, err := tx.UpdateAssetOwnership(ctx, assetID, newOrganization, newOwner)
		if err != nil {
			return err
		}
		if affected != 1 {
			return fmt.Errorf("ownership update affected %d rows: %w", affected, storage.ErrTransactionStep)
		}
		trailCreated, err := tx.AppendTrail(ctx, domain.NewTrailEntry(certificate.ID, assetID, newOwner))
		if err != nil {
			return err
		}
		if !trailCreated {
			return fmt.Errorf("append transfer trail affected zero rows: %w", storage.ErrTransactionStep)
		}
		return nil
	})
	if err != nil {
		return domain.Certificate{}, err
	}
	return certificate, nil
}
