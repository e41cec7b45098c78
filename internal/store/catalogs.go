package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"auction-service/internal/models"

	"github.com/google/uuid"
)

// InsertCatalog inserts a new catalog document
func (s *Store) InsertCatalog(ctx context.Context, catalog *models.Catalog) error {
	doc, err := json.Marshal(catalog)
	if err != nil {
		return fmt.Errorf("failed to marshal catalog: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO catalogs (id, status, doc) VALUES ($1, $2, $3)",
		catalog.ID, catalog.Status, doc)
	if err != nil {
		return fmt.Errorf("failed to insert catalog: %w", err)
	}
	return nil
}

// GetCatalog retrieves a catalog document by ID
func (s *Store) GetCatalog(ctx context.Context, id uuid.UUID) (*models.Catalog, error) {
	var doc []byte
	err := s.db.GetContext(ctx, &doc, "SELECT doc FROM catalogs WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", models.ErrCatalogNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	var catalog models.Catalog
	if err := json.Unmarshal(doc, &catalog); err != nil {
		return nil, fmt.Errorf("failed to unmarshal catalog %s: %w", id, err)
	}
	return &catalog, nil
}

// ReplaceCatalog replaces the whole catalog document
func (s *Store) ReplaceCatalog(ctx context.Context, catalog *models.Catalog) (bool, error) {
	doc, err := json.Marshal(catalog)
	if err != nil {
		return false, fmt.Errorf("failed to marshal catalog: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		"UPDATE catalogs SET status = $1, doc = $2 WHERE id = $3",
		catalog.Status, doc, catalog.ID)
	if err != nil {
		return false, fmt.Errorf("failed to replace catalog: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// DeleteCatalog deletes a catalog and reports how many rows went away
func (s *Store) DeleteCatalog(ctx context.Context, id uuid.UUID) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM catalogs WHERE id = $1", id)
	if err != nil {
		return 0, fmt.Errorf("failed to delete catalog: %w", err)
	}
	return res.RowsAffected()
}

// ListCatalogs retrieves all catalogs
func (s *Store) ListCatalogs(ctx context.Context) ([]models.Catalog, error) {
	var docs [][]byte
	if err := s.db.SelectContext(ctx, &docs, "SELECT doc FROM catalogs ORDER BY id"); err != nil {
		return nil, err
	}

	catalogs := make([]models.Catalog, 0, len(docs))
	for _, doc := range docs {
		var catalog models.Catalog
		if err := json.Unmarshal(doc, &catalog); err != nil {
			return nil, fmt.Errorf("failed to unmarshal catalog: %w", err)
		}
		catalogs = append(catalogs, catalog)
	}
	return catalogs, nil
}
