package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bakehouse/storefront-api/internal/model"
)

type AddressRepository interface {
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]model.Address, error)
	Create(ctx context.Context, address *model.Address) error
	Update(ctx context.Context, address *model.Address) error
	Delete(ctx context.Context, userID, addressID uuid.UUID) error
}

type pgAddressRepo struct{ pool *pgxpool.Pool }

func NewAddressRepository(pool *pgxpool.Pool) AddressRepository {
	return &pgAddressRepo{pool: pool}
}

func (r *pgAddressRepo) ListByUserID(ctx context.Context, userID uuid.UUID) ([]model.Address, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, label, detail, latitude, longitude, created_at, updated_at
		 FROM addresses WHERE user_id = $1 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list addresses: %w", err)
	}
	defer rows.Close()

	var addresses []model.Address
	for rows.Next() {
		var a model.Address
		if err := rows.Scan(&a.ID, &a.UserID, &a.Label, &a.Detail, &a.Latitude, &a.Longitude, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan address: %w", err)
		}
		addresses = append(addresses, a)
	}
	return addresses, nil
}

func (r *pgAddressRepo) Create(ctx context.Context, address *model.Address) error {
	address.ID = uuid.New()
	query := `INSERT INTO addresses (id, user_id, label, detail, latitude, longitude, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW()) RETURNING created_at, updated_at`
	err := r.pool.QueryRow(ctx, query,
		address.ID, address.UserID, address.Label, address.Detail, address.Latitude, address.Longitude,
	).Scan(&address.CreatedAt, &address.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create address: %w", err)
	}
	return nil
}

// Update replaces every mutable field in a single statement. The row is
// addressed by its stable id, scoped to the owner.
func (r *pgAddressRepo) Update(ctx context.Context, address *model.Address) error {
	ct, err := r.pool.Exec(ctx,
		`UPDATE addresses SET label = $3, detail = $4, latitude = $5, longitude = $6, updated_at = NOW()
		 WHERE id = $1 AND user_id = $2`,
		address.ID, address.UserID, address.Label, address.Detail, address.Latitude, address.Longitude,
	)
	if err != nil {
		return fmt.Errorf("update address: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *pgAddressRepo) Delete(ctx context.Context, userID, addressID uuid.UUID) error {
	ct, err := r.pool.Exec(ctx,
		`DELETE FROM addresses WHERE id = $1 AND user_id = $2`, addressID, userID,
	)
	if err != nil {
		return fmt.Errorf("delete address: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
