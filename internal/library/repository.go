package library

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type Repository interface {
	CreateAsset(ctx context.Context, asset *Asset, contentType string) error
	GetAsset(ctx context.Context, id string) (*Asset, error)
	GetAssetBySignature(ctx context.Context, signature string) (*Asset, error)
	ListAssets(ctx context.Context) ([]*Asset, error)
	DeleteAsset(ctx context.Context, id string) error
	CountAssets(ctx context.Context) (int, error)

	GetHandle(ctx context.Context, handle string) (*Handle, error)
	ReleaseHandles(ctx context.Context) (int64, error)
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const assetColumns = `a.id, a.signature, a.title, a.path, a.size_bytes, a.mod_time_ns, a.duration_seconds,
		COALESCE(h.handle, ''), a.cover_image, a.created_at`

// CreateAsset stores the asset and its media handle in one transaction.
func (r *SQLiteRepository) CreateAsset(ctx context.Context, a *Asset, contentType string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO assets (id, signature, title, path, size_bytes, mod_time_ns, duration_seconds, cover_image, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.Signature, a.Title, a.Path, a.SizeBytes, a.ModTime.UnixNano(), a.DurationSeconds, a.CoverImage,
		a.CreatedAt.UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("insert asset: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO media_handles (handle, asset_id, path, content_type) VALUES (?, ?, ?, ?)
	`, a.Handle, a.ID, a.Path, contentType); err != nil {
		return fmt.Errorf("insert media handle: %w", err)
	}

	return tx.Commit()
}

func (r *SQLiteRepository) GetAsset(ctx context.Context, id string) (*Asset, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+assetColumns+`
		FROM assets a LEFT JOIN media_handles h ON h.asset_id = a.id
		WHERE a.id = ?
	`, id)
	return scanAsset(row)
}

func (r *SQLiteRepository) GetAssetBySignature(ctx context.Context, signature string) (*Asset, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+assetColumns+`
		FROM assets a LEFT JOIN media_handles h ON h.asset_id = a.id
		WHERE a.signature = ?
	`, signature)
	return scanAsset(row)
}

func (r *SQLiteRepository) ListAssets(ctx context.Context) ([]*Asset, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+assetColumns+`
		FROM assets a LEFT JOIN media_handles h ON h.asset_id = a.id
		ORDER BY a.created_at, a.title
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assets []*Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, a)
	}
	return assets, rows.Err()
}

func (r *SQLiteRepository) DeleteAsset(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM assets WHERE id = ?", id)
	return err
}

func (r *SQLiteRepository) CountAssets(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM assets").Scan(&count)
	return count, err
}

func (r *SQLiteRepository) GetHandle(ctx context.Context, handle string) (*Handle, error) {
	var h Handle
	err := r.db.QueryRowContext(ctx, `
		SELECT handle, asset_id, path, content_type FROM media_handles WHERE handle = ?
	`, handle).Scan(&h.Handle, &h.AssetID, &h.Path, &h.ContentType)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// ReleaseHandles drops every media handle and reports how many were live.
func (r *SQLiteRepository) ReleaseHandles(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM media_handles")
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAsset(row scanner) (*Asset, error) {
	var a Asset
	var modTimeNs int64
	var createdAt string

	err := row.Scan(&a.ID, &a.Signature, &a.Title, &a.Path, &a.SizeBytes, &modTimeNs, &a.DurationSeconds,
		&a.Handle, &a.CoverImage, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	a.ModTime = time.Unix(0, modTimeNs)
	a.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return &a, nil
}
