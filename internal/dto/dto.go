package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bakehouse/storefront-api/internal/model"
)

// --- Auth ---

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Name     string `json:"name" binding:"required"`
	Role     string `json:"role" binding:"omitempty,oneof=customer agent"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

type UserResponse struct {
	ID    uuid.UUID      `json:"id"`
	Email string         `json:"email"`
	Name  string         `json:"name"`
	Role  model.UserRole `json:"role"`
}

// --- Address ---

// Coordinates are pointers so "absent" is distinguishable from zero; the
// service rejects requests without a full pair.
type SaveAddressRequest struct {
	Label     string   `json:"label"`
	Detail    string   `json:"detail"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

type AddressResponse struct {
	ID        uuid.UUID `json:"id"`
	Label     string    `json:"label"`
	Detail    string    `json:"detail"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	CreatedAt time.Time `json:"created_at"`
}

type AddressListResponse struct {
	Addresses []AddressResponse `json:"addresses"`
	Total     int               `json:"total"`
}

// --- Product ---

type CreateProductRequest struct {
	Name        string          `json:"name" binding:"required"`
	Description string          `json:"description" binding:"required"`
	Price       decimal.Decimal `json:"price" binding:"required"`
	Image       string          `json:"image"`
	Gallery     []string        `json:"gallery"`
	Status      string          `json:"status" binding:"omitempty,oneof=active inactive"`
}

type UpdateProductRequest struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Image       *string          `json:"image"`
	Gallery     *[]string        `json:"gallery"`
	Status      *string          `json:"status" binding:"omitempty,oneof=active inactive"`
}

type ListProductsRequest struct {
	Page   int    `form:"page,default=1" binding:"min=1"`
	Limit  int    `form:"limit,default=20" binding:"min=1,max=100"`
	Search string `form:"search"`
	Sort   string `form:"sort,default=created_at" binding:"oneof=name price created_at"`
	Order  string `form:"order,default=desc" binding:"oneof=asc desc"`
}

type ProductResponse struct {
	ID          uuid.UUID           `json:"id"`
	AgentID     uuid.UUID           `json:"agent_id"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Price       decimal.Decimal     `json:"price"`
	Image       string              `json:"image,omitempty"`
	Gallery     []string            `json:"gallery,omitempty"`
	Status      model.ProductStatus `json:"status"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

type ProductListResponse struct {
	Products []ProductResponse `json:"products"`
	Total    int               `json:"total"`
	Page     int               `json:"page"`
	Limit    int               `json:"limit"`
}

// --- Order ---

type ListOrdersRequest struct {
	Status string `form:"status,default=all" binding:"oneof=all pending shipped delivered rejected"`
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=shipped rejected"`
}

type OrderItemResponse struct {
	ID              uuid.UUID       `json:"id"`
	ProductID       uuid.UUID       `json:"product_id"`
	Quantity        int             `json:"quantity"`
	PriceAtPurchase decimal.Decimal `json:"price_at_purchase"`
	ProductName     string          `json:"product_name"`
	ProductImage    string          `json:"product_image,omitempty"`
}

type OrderResponse struct {
	ID              uuid.UUID           `json:"id"`
	UserID          uuid.UUID           `json:"user_id"`
	Status          model.OrderStatus   `json:"status"`
	TotalAmount     decimal.Decimal     `json:"total_amount"`
	ShippingAddress string              `json:"shipping_address"`
	Items           []OrderItemResponse `json:"items"`
	CreatedAt       time.Time           `json:"created_at"`
}

type OrderListResponse struct {
	Orders []OrderResponse `json:"orders"`
	Total  int             `json:"total"`
}

// --- Geo ---

type ReverseGeocodeRequest struct {
	Lat float64 `form:"lat" binding:"required,min=-90,max=90"`
	Lon float64 `form:"lon" binding:"required,min=-180,max=180"`
}

type PlaceResponse struct {
	DisplayName string  `json:"display_name"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
}
