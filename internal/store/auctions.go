package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"auction-service/internal/models"

	"github.com/google/uuid"
)

// Auctions and catalogs are stored as full JSON documents with a few
// indexed columns alongside. Reads and writes always move the whole
// document; there is no partial-update primitive.

// InsertAuction inserts a new auction document
func (s *Store) InsertAuction(ctx context.Context, auction *models.Auction) error {
	doc, err := json.Marshal(auction)
	if err != nil {
		return fmt.Errorf("failed to marshal auction: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO auctions (id, catalog_id, status, version, doc) VALUES ($1, $2, $3, $4, $5)",
		auction.ID, auction.CatalogID, auction.Status, auction.Version, doc)
	if err != nil {
		return fmt.Errorf("failed to insert auction: %w", err)
	}
	return nil
}

// GetAuction retrieves an auction document by ID
func (s *Store) GetAuction(ctx context.Context, id uuid.UUID) (*models.Auction, error) {
	var doc []byte
	err := s.db.GetContext(ctx, &doc, "SELECT doc FROM auctions WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", models.ErrAuctionNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	var auction models.Auction
	if err := json.Unmarshal(doc, &auction); err != nil {
		return nil, fmt.Errorf("failed to unmarshal auction %s: %w", id, err)
	}
	return &auction, nil
}

// ReplaceAuction replaces the whole auction document, conditional on the
// version read by the caller. Returns false when another writer got there
// first; the caller is expected to re-read and retry.
func (s *Store) ReplaceAuction(ctx context.Context, auction *models.Auction) (bool, error) {
	next := *auction
	next.Version = auction.Version + 1

	doc, err := json.Marshal(&next)
	if err != nil {
		return false, fmt.Errorf("failed to marshal auction: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		"UPDATE auctions SET catalog_id = $1, status = $2, version = $3, doc = $4 WHERE id = $5 AND version = $6",
		next.CatalogID, next.Status, next.Version, doc, next.ID, auction.Version)
	if err != nil {
		return false, fmt.Errorf("failed to replace auction: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected == 0 {
		return false, nil
	}

	auction.Version = next.Version
	return true, nil
}

// DeleteAuction deletes an auction and reports how many rows went away
func (s *Store) DeleteAuction(ctx context.Context, id uuid.UUID) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM auctions WHERE id = $1", id)
	if err != nil {
		return 0, fmt.Errorf("failed to delete auction: %w", err)
	}
	return res.RowsAffected()
}

// AuctionsByCatalog retrieves all auctions referencing a catalog
func (s *Store) AuctionsByCatalog(ctx context.Context, catalogID uuid.UUID) ([]models.Auction, error) {
	return s.selectAuctions(ctx,
		"SELECT doc FROM auctions WHERE catalog_id = $1 ORDER BY id", catalogID)
}

// AuctionsByCatalogStatus retrieves a catalog's auctions filtered by status
func (s *Store) AuctionsByCatalogStatus(ctx context.Context, catalogID uuid.UUID, status string) ([]models.Auction, error) {
	return s.selectAuctions(ctx,
		"SELECT doc FROM auctions WHERE catalog_id = $1 AND status = $2 ORDER BY id", catalogID, status)
}

func (s *Store) selectAuctions(ctx context.Context, query string, args ...interface{}) ([]models.Auction, error) {
	var docs [][]byte
	if err := s.db.SelectContext(ctx, &docs, query, args...); err != nil {
		return nil, err
	}

	auctions := make([]models.Auction, 0, len(docs))
	for _, doc := range docs {
		var auction models.Auction
		if err := json.Unmarshal(doc, &auction); err != nil {
			return nil, fmt.Errorf("failed to unmarshal auction: %w", err)
		}
		auctions = append(auctions, auction)
	}
	return auctions, nil
}
