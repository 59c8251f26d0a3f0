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

type AddressHandler struct {
	addressService *service.AddressService
}

func NewAddressHandler(addressService *service.AddressService) *AddressHandler {
	return &AddressHandler{addressService: addressService}
}

func (h *AddressHandler) List(c *gin.Context) {
	addresses, err := h.addressService.List(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, toAddressListResponse(addresses))
}

func (h *AddressHandler) Add(c *gin.Context) {
	var req dto.SaveAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	addresses, err := h.addressService.Add(c.Request.Context(), middleware.GetUserID(c), req)
	if err != nil {
		respondAddressError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toAddressListResponse(addresses))
}

func (h *AddressHandler) Update(c *gin.Context) {
	addressID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid address ID"})
		return
	}

	var req dto.SaveAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	addresses, err := h.addressService.Update(c.Request.Context(), middleware.GetUserID(c), addressID, req)
	if err != nil {
		respondAddressError(c, err)
		return
	}
	c.JSON(http.StatusOK, toAddressListResponse(addresses))
}

func (h *AddressHandler) Delete(c *gin.Context) {
	addressID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid address ID"})
		return
	}

	addresses, err := h.addressService.Delete(c.Request.Context(), middleware.GetUserID(c), addressID)
	if err != nil {
		respondAddressError(c, err)
		return
	}
	c.JSON(http.StatusOK, toAddressListResponse(addresses))
}

func respondAddressError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAddressIncomplete), errors.Is(err, service.ErrNoCoordinates):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrAddressNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "address not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func toAddressListResponse(addresses []model.Address) dto.AddressListResponse {
	items := make([]dto.AddressResponse, 0, len(addresses))
	for _, a := range addresses {
		items = append(items, dto.AddressResponse{
			ID:        a.ID,
			Label:     a.Label,
			Detail:    a.Detail,
			Latitude:  a.Latitude,
			Longitude: a.Longitude,
			CreatedAt: a.CreatedAt,
		})
	}
	return dto.AddressListResponse{Addresses: items, Total: len(items)}
}
