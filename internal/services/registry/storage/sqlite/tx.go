package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/xrfone/registry/internal/services/registry/domain"
	"github.com/xrfone/registry/internal/services/registry/storage"
)

// InTransaction runs fn inside one SQLite transaction. Any error returned by
// fn rolls back every write performed through the supplied TxOps; commit
// happens only when fn returns nil.
func (s *Store) InTransaction(ctx context.Context, fn func(storage.TxOps) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return translateErr("begin transaction", err)
	}
	if err := fn(&txOps{tx: tx, clock: s.clock}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Printf("rollback registry transaction: %v", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return translateErr("commit transaction", err)
	}
	return nil
}

// txOps exposes the write operations of one open transaction.
type txOps struct {
	tx    *sql.Tx
	clock func() time.Time
}

// InsertAsset writes one asset row and reports whether it landed.
func (t *txOps) InsertAsset(ctx context.Context, asset domain.Asset) (bool, error) {
	result, err := t.tx.ExecContext(
		ctx,
		`INSERT INTO asset (id, name, symbol, description, organization, owner_fp, listable, tradable, created_at, updated_at, updated_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		asset.ID,
		asset.Name,
		asset.Symbol,
		asset.Description,
		asset.Organization,
		asset.OwnerFingerprint,
		asset.Listable,
		asset.Tradable,
		toNanos(asset.CreatedAt),
		toNanos(asset.UpdatedAt),
		asset.UpdatedBy,
	)
	if err != nil {
		return false, translateErr("insert asset", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, translateErr("insert asset", err)
	}
	return affected == 1, nil
}

// InsertCertificate writes one certificate row and reports whether it landed.
func (t *txOps) InsertCertificate(ctx context.Context, certificate domain.Certificate) (bool, error) {
	result, err := t.tx.ExecContext(
		ctx,
		`INSERT INTO nfc (id, cert, asset_id, created_at)
		 VALUES (?, ?, ?, ?)`,
		certificate.ID,
		certificate.Payload,
		certificate.AssetID,
		toNanos(certificate.CreatedAt),
	)
	if err != nil {
		return false, translateErr("insert certificate", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, translateErr("insert certificate", err)
	}
	return affected == 1, nil
}

// AppendTrail writes one ownership-trail row and reports whether it landed.
func (t *txOps) AppendTrail(ctx context.Context, entry domain.TrailEntry) (bool, error) {
	result, err := t.tx.ExecContext(
		ctx,
		`INSERT INTO nfc_asset_trail (nfc_id, asset_id, user_fp, transferred_on)
		 VALUES (?, ?, ?, ?)`,
		entry.CertificateID,
		entry.AssetID,
		entry.OwnerFingerprint,
		toNanos(entry.TransferredOn),
	)
	if err != nil {
		return false, translateErr("append trail", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, translateErr("append trail", err)
	}
	return affected == 1, nil
}

// UpdateAssetOwnership moves the asset to a new organization and owner and
// returns the affected row count for the caller's step check.
func (t *txOps) UpdateAssetOwnership(ctx context.Context, assetID, newOrganization, newOwner string) (int64, error) {
	result, err := t.tx.ExecContext(
		ctx,
		`UPDATE asset
		 SET organization = ?, owner_fp = ?, updated_by = ?, updated_at = ?
		 WHERE id = ?`,
		newOrganization,
		newOwner,
		newOwner,
		toNanos(t.clock()),
		assetID,
	)
	if err != nil {
		return 0, translateErr("update asset ownership", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, translateErr("update asset ownership", err)
	}
	return affected, nil
}

var _ storage.TxOps = (*txOps)(nil)
