package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bakehouse/storefront-api/internal/model"
)

// Fan-out reads page through results instead of trusting a single capped
// query; the hard cap bounds pathological agents.
const (
	fetchPageSize = 500
	fetchMaxRows  = 5000
)

type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	List(ctx context.Context, limit, offset int, search, sort, order string) ([]model.Product, int, error)
	ListByAgent(ctx context.Context, agentID uuid.UUID) ([]model.Product, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Product, error)
	Update(ctx context.Context, product *model.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type pgProductRepo struct{ pool *pgxpool.Pool }

func NewProductRepository(pool *pgxpool.Pool) ProductRepository {
	return &pgProductRepo{pool: pool}
}

func (r *pgProductRepo) Create(ctx context.Context, product *model.Product) error {
	product.ID = uuid.New()
	query := `INSERT INTO products (id, agent_id, name, description, price, image, gallery, status, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW()) RETURNING created_at, updated_at`
	err := r.pool.QueryRow(ctx, query,
		product.ID, product.AgentID, product.Name, product.Description,
		product.Price, product.Image, product.Gallery, product.Status,
	).Scan(&product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create product: %w", err)
	}
	return nil
}

func (r *pgProductRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	query := `SELECT id, agent_id, name, description, price, image, gallery, status, created_at, updated_at
			  FROM products WHERE id = $1`
	p := &model.Product{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.AgentID, &p.Name, &p.Description, &p.Price, &p.Image, &p.Gallery, &p.Status, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

func (r *pgProductRepo) List(ctx context.Context, limit, offset int, search, sort, order string) ([]model.Product, int, error) {
	allowedSorts := map[string]bool{"name": true, "price": true, "created_at": true}
	if !allowedSorts[sort] {
		sort = "created_at"
	}
	if order != "asc" && order != "desc" {
		order = "desc"
	}

	var total int
	countQ := `SELECT COUNT(*) FROM products
			   WHERE status = 'active'
			   AND ($1 = '' OR name ILIKE '%' || $1 || '%' OR description ILIKE '%' || $1 || '%')`
	if err := r.pool.QueryRow(ctx, countQ, search).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	query := fmt.Sprintf(`SELECT id, agent_id, name, description, price, image, gallery, status, created_at, updated_at
		FROM products
		WHERE status = 'active'
		AND ($1 = '' OR name ILIKE '%%' || $1 || '%%' OR description ILIKE '%%' || $1 || '%%')
		ORDER BY %s %s LIMIT $2 OFFSET $3`, sort, order)

	rows, err := r.pool.Query(ctx, query, search, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products, err := scanProducts(rows)
	if err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

// ListByAgent returns every product owned by the agent, paging through the
// table up to fetchMaxRows.
func (r *pgProductRepo) ListByAgent(ctx context.Context, agentID uuid.UUID) ([]model.Product, error) {
	var products []model.Product
	for offset := 0; offset < fetchMaxRows; offset += fetchPageSize {
		rows, err := r.pool.Query(ctx,
			`SELECT id, agent_id, name, description, price, image, gallery, status, created_at, updated_at
			 FROM products WHERE agent_id = $1 ORDER BY created_at LIMIT $2 OFFSET $3`,
			agentID, fetchPageSize, offset,
		)
		if err != nil {
			return nil, fmt.Errorf("list agent products: %w", err)
		}
		page, err := scanProducts(rows)
		rows.Close()
		if err != nil {
			return nil, err
		}
		products = append(products, page...)
		if len(page) < fetchPageSize {
			break
		}
	}
	return products, nil
}

func (r *pgProductRepo) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, agent_id, name, description, price, image, gallery, status, created_at, updated_at
		 FROM products WHERE id = ANY($1)`, ids,
	)
	if err != nil {
		return nil, fmt.Errorf("list products by ids: %w", err)
	}
	defer rows.Close()
	return scanProducts(rows)
}

func (r *pgProductRepo) Update(ctx context.Context, product *model.Product) error {
	query := `UPDATE products SET name=$2, description=$3, price=$4, image=$5, gallery=$6, status=$7, updated_at=NOW()
			  WHERE id=$1 RETURNING updated_at`
	err := r.pool.QueryRow(ctx, query,
		product.ID, product.Name, product.Description, product.Price,
		product.Image, product.Gallery, product.Status,
	).Scan(&product.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return fmt.Errorf("update product: %w", err)
	}
	return nil
}

func (r *pgProductRepo) Delete(ctx context.Context, id uuid.UUID) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanProducts(rows pgx.Rows) ([]model.Product, error) {
	var products []model.Product
	for rows.Next() {
		var p model.Product
		if err := rows.Scan(&p.ID, &p.AgentID, &p.Name, &p.Description, &p.Price, &p.Image, &p.Gallery, &p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, nil
}
