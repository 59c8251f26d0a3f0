package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/bakehouse/storefront-api/internal/model"
	"github.com/bakehouse/storefront-api/internal/repository"
)

const (
	statsCacheTTL = 60 * time.Second
	topProductCap = 5

	// Shown when an ordered product has since been deleted.
	removedProductName = "Removed Product"
)

// StatsCacheKey is shared with the worker that invalidates dashboards on
// order status changes.
func StatsCacheKey(agentID uuid.UUID) string {
	return "stats:agent:" + agentID.String()
}

type StatsService struct {
	productRepo repository.ProductRepository
	orderRepo   repository.OrderRepository
	redisClient *redis.Client
}

func NewStatsService(productRepo repository.ProductRepository, orderRepo repository.OrderRepository, redisClient *redis.Client) *StatsService {
	return &StatsService{productRepo: productRepo, orderRepo: orderRepo, redisClient: redisClient}
}

// ComputeStats builds the agent dashboard: total delivered revenue, order
// counts by status, and the five best sellers. Any fetch failure aborts the
// whole computation; partial results are never returned.
func (s *StatsService) ComputeStats(ctx context.Context, agentID uuid.UUID) (*model.SalesStats, error) {
	cacheKey := StatsCacheKey(agentID)

	if s.redisClient != nil {
		if cached, err := s.redisClient.Get(ctx, cacheKey).Result(); err == nil {
			var stats model.SalesStats
			if json.Unmarshal([]byte(cached), &stats) == nil {
				return &stats, nil
			}
		}
	}

	products, err := s.productRepo.ListByAgent(ctx, agentID)
	if err != nil {
		return nil, fmt.Errorf("load agent products: %w", err)
	}
	if len(products) == 0 {
		return s.finish(ctx, cacheKey, zeroStats(0))
	}

	productIDs := make([]uuid.UUID, len(products))
	for i, p := range products {
		productIDs[i] = p.ID
	}

	items, err := s.orderRepo.ListItemsByProductIDs(ctx, productIDs)
	if err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}
	if len(items) == 0 {
		return s.finish(ctx, cacheKey, zeroStats(len(products)))
	}

	seen := make(map[uuid.UUID]bool)
	var orderIDs []uuid.UUID
	for _, item := range items {
		if !seen[item.OrderID] {
			seen[item.OrderID] = true
			orderIDs = append(orderIDs, item.OrderID)
		}
	}

	orders, err := s.orderRepo.ListByIDs(ctx, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("load orders: %w", err)
	}

	stats := aggregateSales(products, items, orders)
	return s.finish(ctx, cacheKey, &stats)
}

func (s *StatsService) finish(ctx context.Context, cacheKey string, stats *model.SalesStats) (*model.SalesStats, error) {
	if s.redisClient != nil {
		if data, err := json.Marshal(stats); err == nil {
			s.redisClient.Set(ctx, cacheKey, data, statsCacheTTL)
		}
	}
	return stats, nil
}

func zeroStats(totalProducts int) *model.SalesStats {
	return &model.SalesStats{
		TotalSales:    decimal.Zero,
		TotalProducts: totalProducts,
		TopProducts:   []model.ProductSales{},
	}
}

// aggregateSales is the pure core of the dashboard. Only delivered orders
// contribute revenue and quantities; every other status is counted but never
// summed. Ties in the ranking keep first-seen order.
func aggregateSales(products []model.Product, items []model.OrderItem, orders []model.Order) model.SalesStats {
	names := make(map[uuid.UUID]string, len(products))
	for _, p := range products {
		names[p.ID] = p.Name
	}

	itemsByOrder := make(map[uuid.UUID][]model.OrderItem, len(orders))
	for _, item := range items {
		itemsByOrder[item.OrderID] = append(itemsByOrder[item.OrderID], item)
	}

	buckets := make(map[uuid.UUID]*model.ProductSales)
	var bucketOrder []uuid.UUID
	totalSales := decimal.Zero
	completed, pending := 0, 0

	for _, order := range orders {
		switch order.Status {
		case model.OrderStatusDelivered:
			completed++
		case model.OrderStatusPending:
			pending++
		}
		if order.Status != model.OrderStatusDelivered {
			continue
		}

		for _, item := range itemsByOrder[order.ID] {
			line := item.PriceAtPurchase.Mul(decimal.NewFromInt(int64(item.Quantity)))
			totalSales = totalSales.Add(line)

			bucket, ok := buckets[item.ProductID]
			if !ok {
				name, found := names[item.ProductID]
				if !found {
					name = removedProductName
				}
				bucket = &model.ProductSales{ProductID: item.ProductID, Name: name, Revenue: decimal.Zero}
				buckets[item.ProductID] = bucket
				bucketOrder = append(bucketOrder, item.ProductID)
			}
			bucket.TotalSold += item.Quantity
			bucket.Revenue = bucket.Revenue.Add(line)
		}
	}

	ranked := make([]model.ProductSales, 0, len(bucketOrder))
	for _, id := range bucketOrder {
		ranked = append(ranked, *buckets[id])
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].TotalSold > ranked[j].TotalSold
	})
	if len(ranked) > topProductCap {
		ranked = ranked[:topProductCap]
	}

	return model.SalesStats{
		TotalSales:      totalSales,
		TotalOrders:     len(orders),
		CompletedOrders: completed,
		PendingOrders:   pending,
		TotalProducts:   len(products),
		TopProducts:     ranked,
	}
}
