package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/bakehouse/storefront-api/internal/dto"
	"github.com/bakehouse/storefront-api/internal/middleware"
	"github.com/bakehouse/storefront-api/internal/model"
	"github.com/bakehouse/storefront-api/internal/service"
)

type OrderHandler struct {
	orderService *service.OrderService
}

func NewOrderHandler(orderService *service.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

// History lists the caller's orders, optionally narrowed by status.
func (h *OrderHandler) History(c *gin.Context) {
	var req dto.ListOrdersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	orders, err := h.orderService.History(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	filtered := service.FilterByStatus(orders, req.Status)
	c.JSON(http.StatusOK, toOrderListResponse(filtered))
}

func (h *OrderHandler) ConfirmDelivery(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order ID"})
		return
	}

	if err := h.orderService.ConfirmDelivery(c.Request.Context(), middleware.GetUserID(c), orderID); err != nil {
		respondOrderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": string(model.OrderStatusDelivered)})
}

func (h *OrderHandler) ListAgentOrders(c *gin.Context) {
	orders, err := h.orderService.ListAgentOrders(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, toOrderListResponse(orders))
}

func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order ID"})
		return
	}

	var req dto.UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err = h.orderService.UpdateAgentStatus(c.Request.Context(), middleware.GetUserID(c), orderID, model.OrderStatus(req.Status))
	if err != nil {
		respondOrderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": req.Status})
}

func respondOrderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
	case errors.Is(err, service.ErrOrderAccessDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
	case errors.Is(err, service.ErrOrderNotShipped), errors.Is(err, service.ErrInvalidTransition):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func toOrderListResponse(orders []model.Order) dto.OrderListResponse {
	items := make([]dto.OrderResponse, 0, len(orders))
	for _, o := range orders {
		items = append(items, toOrderResponse(&o))
	}
	return dto.OrderListResponse{Orders: items, Total: len(items)}
}

func toOrderResponse(order *model.Order) dto.OrderResponse {
	var items []dto.OrderItemResponse
	for _, item := range order.Items {
		resp := dto.OrderItemResponse{
			ID:              item.ID,
			ProductID:       item.ProductID,
			Quantity:        item.Quantity,
			PriceAtPurchase: item.PriceAtPurchase,
		}
		if item.Product != nil {
			resp.ProductName = item.Product.Name
			resp.ProductImage = item.Product.Image
		}
		items = append(items, resp)
	}
	return dto.OrderResponse{
		ID:              order.ID,
		UserID:          order.UserID,
		Status:          order.Status,
		TotalAmount:     order.TotalAmount,
		ShippingAddress: order.ShippingAddress,
		Items:           items,
		CreatedAt:       order.CreatedAt,
	}
}
