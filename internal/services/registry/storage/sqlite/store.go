// Package sqlite provides a SQLite-backed registry storage implementation.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/xrfone/registry/internal/platform/storage/sqlitemigrate"
	"github.com/xrfone/registry/internal/services/registry/domain"
	"github.com/xrfone/registry/internal/services/registry/storage"
	"github.com/xrfone/registry/internal/services/registry/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

const assetColumns = "id, name, symbol, description, organization, owner_fp, listable, tradable, created_at, updated_at, updated_by"

// Store persists registry state in SQLite.
type Store struct {
	sqlDB *sql.DB
	clock func() time.Time
}

func toNanos(value time.Time) int64 {
	return value.UTC().UnixNano()
}

func fromNanos(value int64) time.Time {
	return time.Unix(0, value).UTC()
}

// Open opens a SQLite registry store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_pragma=foreign_keys(ON)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB, clock: time.Now}, nil
}

// NewWithDB wraps an existing handle without running migrations. The caller
// owns the schema and the handle lifecycle.
func NewWithDB(sqlDB *sql.DB) *Store {
	return &Store{sqlDB: sqlDB, clock: time.Now}
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// translateErr maps driver errors onto the storage taxonomy exactly once.
func translateErr(op string, err error) error {
	msg := err.Error()
	switch {
	case errors.Is(err, sql.ErrConnDone),
		strings.Contains(msg, "database is closed"),
		strings.Contains(msg, "SQLITE_BUSY"),
		strings.Contains(msg, "database is locked"):
		return fmt.Errorf("%s: %w", op, storage.ErrUnavailable)
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return fmt.Errorf("%s: %w", op, storage.ErrConflict)
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		// A dangling reference means the parent row does not exist.
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

func scanAsset(row interface{ Scan(...any) error }) (domain.Asset, error) {
	var (
		asset     domain.Asset
		createdAt int64
		updatedAt int64
	)
	err := row.Scan(
		&asset.ID,
		&asset.Name,
		&asset.Symbol,
		&asset.Description,
		&asset.Organization,
		&asset.OwnerFingerprint,
		&asset.Listable,
		&asset.Tradable,
		&createdAt,
		&updatedAt,
		&asset.UpdatedBy,
	)
	if err != nil {
		return domain.Asset{}, err
	}
	asset.CreatedAt = fromNanos(createdAt)
	asset.UpdatedAt = fromNanos(updatedAt)
	return asset, nil
}

// FindAssetByID returns one asset by its id.
func (s *Store) FindAssetByID(ctx context.Context, assetID string) (domain.Asset, error) {
	if err := ctx.Err(); err != nil {
		return domain.Asset{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.Asset{}, fmt.Errorf("storage is not configured")
	}
	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT `+assetColumns+` FROM asset WHERE id = ?`,
		assetID,
	)
	asset, err := scanAsset(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Asset{}, storage.ErrNotFound
		}
		return domain.Asset{}, translateErr("find asset", err)
	}
	return asset, nil
}

// FindAssetByIDAndOrg returns one asset scoped to its current organization.
// Used before transfer and delete so one tenant cannot act on another's
// asset.
func (s *Store) FindAssetByIDAndOrg(ctx context.Context, assetID, organization string) (domain.Asset, error) {
	if err := ctx.Err(); err != nil {
		return domain.Asset{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.Asset{}, fmt.Errorf("storage is not configured")
	}
	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT `+assetColumns+` FROM asset WHERE id = ? AND organization = ?`,
		assetID,
		organization,
	)
	asset, err := scanAsset(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Asset{}, storage.ErrNotFound
		}
		return domain.Asset{}, translateErr("find asset by org", err)
	}
	return asset, nil
}

// UpdateAsset applies a dynamic partial update. An empty field set is a
// no-op success. The updated_at and updated_by stamps are always written.
// Returns false, without error, when no row matched the id.
func (s *Store) UpdateAsset(ctx context.Context, assetID, updatedBy string, fields storage.UpdateAssetFields) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if s == nil || s.sqlDB == nil {
		return false, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(updatedBy) == "" {
		return false, fmt.Errorf("%w: updated_by is required", domain.ErrValidation)
	}
	if fields.Empty() {
		return true, nil
	}

	var (
		sets []string
		args []any
	)
	if fields.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *fields.Name)
	}
	if fields.Symbol != nil {
		sets = append(sets, "symbol = ?")
		args = append(args, strings.ToUpper(*fields.Symbol))
	}
	if fields.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *fields.Description)
	}
	if fields.Organization != nil {
		sets = append(sets, "organization = ?")
		args = append(args, *fields.Organization)
	}
	if fields.Listable != nil {
		sets = append(sets, "listable = ?")
		args = append(args, *fields.Listable)
	}
	if fields.Tradable != nil {
		sets = append(sets, "tradable = ?")
		args = append(args, *fields.Tradable)
	}
	sets = append(sets, "updated_at = ?", "updated_by = ?")
	args = append(args, toNanos(s.clock()), updatedBy, assetID)

	query := "UPDATE asset SET " + strings.Join(sets, ", ") + " WHERE id = ?"
	result, err := s.sqlDB.ExecContext(ctx, query, args...)
	if err != nil {
		return false, translateErr("update asset", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, translateErr("update asset", err)
	}
	return affected > 0, nil
}

// DeleteAsset removes one asset row. Returns false when no row matched.
func (s *Store) DeleteAsset(ctx context.Context, assetID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if s == nil || s.sqlDB == nil {
		return false, fmt.Errorf("storage is not configured")
	}
	result, err := s.sqlDB.ExecContext(ctx, `DELETE FROM asset WHERE id = ?`, assetID)
	if err != nil {
		return false, translateErr("delete asset", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, translateErr("delete asset", err)
	}
	return affected == 1, nil
}

// ListAssets returns assets sorted by name in the requested direction.
func (s *Store) ListAssets(ctx context.Context, offset int64, limit int, order storage.Order) ([]domain.Asset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be greater than zero", domain.ErrValidation)
	}
	query := `SELECT ` + assetColumns + ` FROM asset ORDER BY name ` + order.String() + ` LIMIT ? OFFSET ?`
	return s.queryAssets(ctx, "list assets", query, limit, offset)
}

// SearchAssetsByName returns assets whose name contains the term,
// case-insensitively, sorted by name.
func (s *Store) SearchAssetsByName(ctx context.Context, term string, offset int64, limit int, order storage.Order) ([]domain.Asset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be greater than zero", domain.ErrValidation)
	}
	pattern := "%" + escapeSearchTerm(term) + "%"
	query := `SELECT ` + assetColumns + ` FROM asset WHERE lower(name) LIKE lower(?) ESCAPE '\' ORDER BY name ` +
		order.String() + ` LIMIT ? OFFSET ?`
	return s.queryAssets(ctx, "search assets by name", query, pattern, limit, offset)
}

// SearchAssetsBySymbol returns assets whose symbol contains the term, sorted
// by symbol. Symbols are stored uppercase so the term is uppercased too.
func (s *Store) SearchAssetsBySymbol(ctx context.Context, term string, offset int64, limit int, order storage.Order) ([]domain.Asset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be greater than zero", domain.ErrValidation)
	}
	pattern := "%" + strings.ToUpper(escapeSearchTerm(term)) + "%"
	query := `SELECT ` + assetColumns + ` FROM asset WHERE symbol LIKE ? ESCAPE '\' ORDER BY symbol ` +
		order.String() + ` LIMIT ? OFFSET ?`
	return s.queryAssets(ctx, "search assets by symbol", query, pattern, limit, offset)
}

func (s *Store) queryAssets(ctx context.Context, op, query string, args ...any) ([]domain.Asset, error) {
	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translateErr(op, err)
	}
	defer rows.Close()

	var assets []domain.Asset
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, translateErr(op, err)
		}
		assets = append(assets, asset)
	}
	if err := rows.Err(); err != nil {
		return nil, translateErr(op, err)
	}
	return assets, nil
}

// escapeSearchTerm neutralizes LIKE wildcards in user-supplied terms.
func escapeSearchTerm(term string) string {
	term = strings.ReplaceAll(term, `\`, `\\`)
	term = strings.ReplaceAll(term, "%", `\%`)
	return strings.ReplaceAll(term, "_", `\_`)
}

// FindCertificateByID returns one certificate by its id.
func (s *Store) FindCertificateByID(ctx context.Context, certificateID string) (domain.Certificate, error) {
	return s.findCertificate(ctx, `SELECT id, cert, asset_id, created_at FROM nfc WHERE id = ?`, certificateID)
}

// FindCertificateByAssetID returns the certificate bound to an asset.
func (s *Store) FindCertificateByAssetID(ctx context.Context, assetID string) (domain.Certificate, error) {
	return s.findCertificate(ctx, `SELECT id, cert, asset_id, created_at FROM nfc WHERE asset_id = ?`, assetID)
}

func (s *Store) findCertificate(ctx context.Context, query, key string) (domain.Certificate, error) {
	if err := ctx.Err(); err != nil {
		return domain.Certificate{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.Certificate{}, fmt.Errorf("storage is not configured")
	}
	var (
		certificate domain.Certificate
		createdAt   int64
	)
	row := s.sqlDB.QueryRowContext(ctx, query, key)
	err := row.Scan(&certificate.ID, &certificate.Payload, &certificate.AssetID, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Certificate{}, storage.ErrNotFound
		}
		return domain.Certificate{}, translateErr("find certificate", err)
	}
	certificate.CreatedAt = fromNanos(createdAt)
	return certificate, nil
}

// ListTrailByCertificate returns the ownership history of a certificate
// ordered by transfer time ascending.
func (s *Store) ListTrailByCertificate(ctx context.Context, certificateID string) ([]domain.TrailEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT nfc_id, asset_id, user_fp, transferred_on
		 FROM nfc_asset_trail
		 WHERE nfc_id = ?
		 ORDER BY transferred_on ASC`,
		certificateID,
	)
	if err != nil {
		return nil, translateErr("list trail", err)
	}
	defer rows.Close()

	var entries []domain.TrailEntry
	for rows.Next() {
		var (
			entry         domain.TrailEntry
			transferredOn int64
		)
		if err := rows.Scan(&entry.CertificateID, &entry.AssetID, &entry.OwnerFingerprint, &transferredOn); err != nil {
			return nil, translateErr("list trail", err)
		}
		entry.TransferredOn = fromNanos(transferredOn)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, translateErr("list trail", err)
	}
	return entries, nil
}

// InsertContract persists one contract. A second contract for the same asset
// violates the unique constraint and surfaces as ErrConflict.
func (s *Store) InsertContract(ctx context.Context, contract domain.Contract) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if s == nil || s.sqlDB == nil {
		return false, fmt.Errorf("storage is not configured")
	}
	result, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO contract (id, asset_id, content, summary, organization, updated_by, update_count, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		contract.ID,
		contract.AssetID,
		contract.Content,
		contract.Summary,
		contract.Organization,
		contract.UpdatedBy,
		contract.UpdateCount,
		toNanos(contract.CreatedAt),
		toNanos(contract.UpdatedAt),
	)
	if err != nil {
		return false, translateErr("insert contract", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, translateErr("insert contract", err)
	}
	return affected == 1, nil
}

// FindContractByAssetID returns the contract attached to an asset.
func (s *Store) FindContractByAssetID(ctx context.Context, assetID string) (domain.Contract, error) {
	if err := ctx.Err(); err != nil {
		return domain.Contract{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.Contract{}, fmt.Errorf("storage is not configured")
	}
	var (
		contract  domain.Contract
		createdAt int64
		updatedAt int64
	)
	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, asset_id, content, summary, organization, updated_by, update_count, created_at, updated_at
		 FROM contract WHERE asset_id = ?`,
		assetID,
	)
	err := row.Scan(
		&contract.ID,
		&contract.AssetID,
		&contract.Content,
		&contract.Summary,
		&contract.Organization,
		&contract.UpdatedBy,
		&contract.UpdateCount,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Contract{}, storage.ErrNotFound
		}
		return domain.Contract{}, translateErr("find contract", err)
	}
	contract.CreatedAt = fromNanos(createdAt)
	contract.UpdatedAt = fromNanos(updatedAt)
	return contract, nil
}

var (
	_ storage.AssetStore       = (*Store)(nil)
	_ storage.AssetLister      = (*Store)(nil)
	_ storage.CertificateStore = (*Store)(nil)
	_ storage.TrailStore       = (*Store)(nil)
	_ storage.ContractStore    = (*Store)(nil)
	_ storage.TxRunner         = (*Store)(nil)
)
