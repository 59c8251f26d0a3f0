package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/bakehouse/storefront-api/internal/model"
	"github.com/bakehouse/storefront-api/internal/repository"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrOrderAccessDenied = errors.New("access denied")
	ErrOrderNotShipped   = errors.New("order has not been shipped")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// OrderStatusQueue carries status-change events to the stats worker.
const OrderStatusQueue = "order-status"

type OrderService struct {
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	amqpCh      *amqp.Channel
}

func NewOrderService(orderRepo repository.OrderRepository, productRepo repository.ProductRepository, amqpCh *amqp.Channel) *OrderService {
	return &OrderService{orderRepo: orderRepo, productRepo: productRepo, amqpCh: amqpCh}
}

// History returns the user's orders newest first, each item carrying a
// display snapshot of its product. Deleted products resolve to a placeholder,
// never an error; the stored purchase price is untouched.
func (s *OrderService) History(ctx context.Context, userID uuid.UUID) ([]model.Order, error) {
	orders, err := s.orderRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	for i := range orders {
		items, err := s.orderRepo.ListItemsByOrderID(ctx, orders[i].ID)
		if err != nil {
			return nil, fmt.Errorf("list order items: %w", err)
		}
		orders[i].Items = items
	}

	if err := s.attachSnapshots(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// FilterByStatus is a pure predicate filter; "all" returns a copy with no
// omissions, order preserved.
func FilterByStatus(orders []model.Order, status string) []model.Order {
	filtered := make([]model.Order, 0, len(orders))
	for _, o := range orders {
		if status == "all" || string(o.Status) == status {
			filtered = append(filtered, o)
		}
	}
	return filtered
}

// ConfirmDelivery is the one customer-driven transition: shipped to
// delivered. State is never mutated optimistically; on failure the order is
// unchanged and the caller may retry.
func (s *OrderService) ConfirmDelivery(ctx context.Context, userID, orderID uuid.UUID) error {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return ErrOrderNotFound
	}
	if order.UserID != userID {
		return ErrOrderAccessDenied
	}
	if order.Status != model.OrderStatusShipped {
		return ErrOrderNotShipped
	}

	err = s.orderRepo.UpdateStatus(ctx, orderID, model.OrderStatusShipped, model.OrderStatusDelivered)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrOrderNotShipped
		}
		return fmt.Errorf("confirm delivery: %w", err)
	}

	s.publishStatusChange(ctx, orderID, model.OrderStatusDelivered)
	return nil
}

// ListAgentOrders returns orders containing the agent's products, with item
// snapshots attached.
func (s *OrderService) ListAgentOrders(ctx context.Context, agentID uuid.UUID) ([]model.Order, error) {
	orders, err := s.orderRepo.ListByAgentID(ctx, agentID)
	if err != nil {
		return nil, fmt.Errorf("list agent orders: %w", err)
	}

	for i := range orders {
		items, err := s.orderRepo.ListItemsByOrderID(ctx, orders[i].ID)
		if err != nil {
			return nil, fmt.Errorf("list order items: %w", err)
		}
		orders[i].Items = items
	}

	if err := s.attachSnapshots(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// UpdateAgentStatus lets an agent move a pending order along: ship it or
// reject it. Everything else belongs to other actors.
func (s *OrderService) UpdateAgentStatus(ctx context.Context, agentID, orderID uuid.UUID, to model.OrderStatus) error {
	if to != model.OrderStatusShipped && to != model.OrderStatusRejected {
		return ErrInvalidTransition
	}

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return ErrOrderNotFound
	}

	agentIDs, err := s.orderRepo.AgentIDsForOrder(ctx, orderID)
	if err != nil {
		return fmt.Errorf("resolve order agents: %w", err)
	}
	if !containsID(agentIDs, agentID) {
		return ErrOrderAccessDenied
	}

	err = s.orderRepo.UpdateStatus(ctx, orderID, model.OrderStatusPending, to)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrInvalidTransition
		}
		return fmt.Errorf("update order status: %w", err)
	}

	s.publishStatusChange(ctx, orderID, to)
	return nil
}

func (s *OrderService) attachSnapshots(ctx context.Context, orders []model.Order) error {
	seen := make(map[uuid.UUID]bool)
	var productIDs []uuid.UUID
	for _, o := range orders {
		for _, item := range o.Items {
			if !seen[item.ProductID] {
				seen[item.ProductID] = true
				productIDs = append(productIDs, item.ProductID)
			}
		}
	}
	if len(productIDs) == 0 {
		return nil
	}

	products, err := s.productRepo.ListByIDs(ctx, productIDs)
	if err != nil {
		return fmt.Errorf("load products: %w", err)
	}
	snapshots := make(map[uuid.UUID]*model.ProductSnapshot, len(products))
	for _, p := range products {
		snapshots[p.ID] = &model.ProductSnapshot{Name: p.Name, Image: p.Image, AgentID: p.AgentID}
	}

	for i := range orders {
		for j := range orders[i].Items {
			item := &orders[i].Items[j]
			if snap, ok := snapshots[item.ProductID]; ok {
				item.Product = snap
			} else {
				item.Product = &model.ProductSnapshot{Name: removedProductName}
			}
		}
	}
	return nil
}

func (s *OrderService) publishStatusChange(ctx context.Context, orderID uuid.UUID, status model.OrderStatus) {
	if s.amqpCh == nil {
		return
	}
	msg, _ := json.Marshal(model.OrderStatusMessage{OrderID: orderID, Status: status})
	_ = s.amqpCh.PublishWithContext(ctx, "", OrderStatusQueue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         msg,
		DeliveryMode: amqp.Persistent,
	})
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
