package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/bakehouse/storefront-api/internal/dto"
	"github.com/bakehouse/storefront-api/internal/model"
	"github.com/bakehouse/storefront-api/internal/repository"
)

var (
	ErrProductNotFound     = errors.New("product not found")
	ErrProductAccessDenied = errors.New("product belongs to another agent")
)

const productCacheTTL = 60 * time.Second

type ProductService struct {
	productRepo repository.ProductRepository
	redisClient *redis.Client
}

func NewProductService(productRepo repository.ProductRepository, redisClient *redis.Client) *ProductService {
	return &ProductService{productRepo: productRepo, redisClient: redisClient}
}

func (s *ProductService) Create(ctx context.Context, agentID uuid.UUID, req dto.CreateProductRequest) (*dto.ProductResponse, error) {
	status := model.ProductStatus(req.Status)
	if status == "" {
		status = model.ProductStatusActive
	}

	product := &model.Product{
		AgentID:     agentID,
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Image:       req.Image,
		Gallery:     req.Gallery,
		Status:      status,
	}
	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	resp := toProductResponse(product)
	return &resp, nil
}

func (s *ProductService) GetByID(ctx context.Context, id uuid.UUID) (*dto.ProductResponse, error) {
	cacheKey := "product:" + id.String()

	if s.redisClient != nil {
		if cached, err := s.redisClient.Get(ctx, cacheKey).Result(); err == nil {
			var resp dto.ProductResponse
			if json.Unmarshal([]byte(cached), &resp) == nil {
				return &resp, nil
			}
		}
	}

	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return nil, ErrProductNotFound
	}

	resp := toProductResponse(product)

	if s.redisClient != nil {
		if data, err := json.Marshal(resp); err == nil {
			s.redisClient.Set(ctx, cacheKey, data, productCacheTTL)
		}
	}

	return &resp, nil
}

func (s *ProductService) List(ctx context.Context, req dto.ListProductsRequest) (*dto.ProductListResponse, error) {
	offset := (req.Page - 1) * req.Limit
	products, total, err := s.productRepo.List(ctx, req.Limit, offset, req.Search, req.Sort, req.Order)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	var items []dto.ProductResponse
	for _, p := range products {
		items = append(items, toProductResponse(&p))
	}

	return &dto.ProductListResponse{Products: items, Total: total, Page: req.Page, Limit: req.Limit}, nil
}

func (s *ProductService) ListByAgent(ctx context.Context, agentID uuid.UUID) ([]dto.ProductResponse, error) {
	products, err := s.productRepo.ListByAgent(ctx, agentID)
	if err != nil {
		return nil, fmt.Errorf("list agent products: %w", err)
	}

	items := make([]dto.ProductResponse, 0, len(products))
	for _, p := range products {
		items = append(items, toProductResponse(&p))
	}
	return items, nil
}

func (s *ProductService) Update(ctx context.Context, agentID, id uuid.UUID, req dto.UpdateProductRequest) (*dto.ProductResponse, error) {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	if product.AgentID != agentID {
		return nil, ErrProductAccessDenied
	}

	if req.Name != nil {
		product.Name = *req.Name
	}
	if req.Description != nil {
		product.Description = *req.Description
	}
	if req.Price != nil {
		product.Price = *req.Price
	}
	if req.Image != nil {
		product.Image = *req.Image
	}
	if req.Gallery != nil {
		product.Gallery = *req.Gallery
	}
	if req.Status != nil {
		product.Status = model.ProductStatus(*req.Status)
	}

	if err := s.productRepo.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}

	s.invalidateCache(ctx, id)
	resp := toProductResponse(product)
	return &resp, nil
}

func (s *ProductService) Delete(ctx context.Context, agentID, id uuid.UUID) error {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return ErrProductNotFound
	}
	if product.AgentID != agentID {
		return ErrProductAccessDenied
	}

	if err := s.productRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	s.invalidateCache(ctx, id)
	return nil
}

func (s *ProductService) invalidateCache(ctx context.Context, id uuid.UUID) {
	if s.redisClient != nil {
		s.redisClient.Del(ctx, "product:"+id.String())
	}
}

func toProductResponse(p *model.Product) dto.ProductResponse {
	return dto.ProductResponse{
		ID:          p.ID,
		AgentID:     p.AgentID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Image:       p.Image,
		Gallery:     p.Gallery,
		Status:      p.Status,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}
