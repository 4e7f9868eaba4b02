package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"splat-tracker/internal/domain"

	"github.com/rs/zerolog"
)

// AssetRepository reads the static id-to-name lookup table. The table is
// seeded by migration and never written at runtime.
type AssetRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewAssetRepository(sqlDB *sql.DB, logger zerolog.Logger) *AssetRepository {
	return &AssetRepository{db: sqlDB, logger: logger}
}

// ResolveName looks up the display name and image key for an asset id.
// A missing id is domain.ErrLookupMiss, which enrichment recovers from.
func (r *AssetRepository) ResolveName(ctx context.Context, kind domain.AssetKind, id int) (*domain.Asset, error) {
	a := domain.Asset{Kind: kind, ID: id}
	err := r.db.QueryRowContext(ctx,
		"SELECT name, image_key FROM assets WHERE kind = ? AND id = ?",
		string(kind), id,
	).Scan(&a.Name, &a.ImageKey)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("asset %s/%d: %w", kind, id, domain.ErrLookupMiss)
	}
	if err != nil {
		return nil, domain.StoreError("resolve asset", err)
	}
	return &a, nil
}
