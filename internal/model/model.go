package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type UserRole string

const (
	RoleCustomer UserRole = "customer"
	RoleAgent    UserRole = "agent"
	RoleAdmin    UserRole = "admin"
)

type User struct {
	ID        uuid.UUID
	Email     string
	Password  string
	Name      string
	Role      UserRole
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Address is owned entirely by a single user. Identity is the
// server-assigned ID; the (label, detail) pair may repeat.
type Address struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Label     string
	Detail    string
	Latitude  float64
	Longitude float64
	CreatedAt time.Time
	UpdatedAt time.Time
}

type ProductStatus string

const (
	ProductStatusActive   ProductStatus = "active"
	ProductStatusInactive ProductStatus = "inactive"
)

type Product struct {
	ID          uuid.UUID
	AgentID     uuid.UUID
	Name        string
	Description string
	Price       decimal.Decimal
	Image       string
	Gallery     []string
	Status      ProductStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusRejected  OrderStatus = "rejected"
)

type Order struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	TotalAmount     decimal.Decimal
	Status          OrderStatus
	ShippingAddress string
	Items           []OrderItem
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ProductSnapshot is the denormalized view of a product resolved at read
// time for display; PriceAtPurchase on the item stays the purchase-time price.
type ProductSnapshot struct {
	Name    string
	Image   string
	AgentID uuid.UUID
}

type OrderItem struct {
	ID              uuid.UUID
	OrderID         uuid.UUID
	ProductID       uuid.UUID
	Quantity        int
	PriceAtPurchase decimal.Decimal
	Product         *ProductSnapshot
}

// ProductSales is one ranking bucket of the agent dashboard.
type ProductSales struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	TotalSold int             `json:"total_sold"`
	Revenue   decimal.Decimal `json:"revenue"`
}

// SalesStats is derived, never persisted; recomputed on every dashboard load.
type SalesStats struct {
	TotalSales      decimal.Decimal `json:"total_sales"`
	TotalOrders     int             `json:"total_orders"`
	CompletedOrders int             `json:"completed_orders"`
	PendingOrders   int             `json:"pending_orders"`
	TotalProducts   int             `json:"total_products"`
	TopProducts     []ProductSales  `json:"top_products"`
}

// OrderStatusMessage is published whenever an order changes status so the
// worker can drop stale cached dashboards.
type OrderStatusMessage struct {
	OrderID uuid.UUID   `json:"order_id"`
	Status  OrderStatus `json:"status"`
}
