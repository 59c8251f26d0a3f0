package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bakehouse/storefront-api/internal/dto"
	"github.com/bakehouse/storefront-api/internal/geo"
)

type GeoHandler struct {
	geocoder *geo.Client
}

func NewGeoHandler(geocoder *geo.Client) *GeoHandler {
	return &GeoHandler{geocoder: geocoder}
}

// Reverse turns a map tap into a human-readable place.
func (h *GeoHandler) Reverse(c *gin.Context) {
	var req dto.ReverseGeocodeRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	place, err := h.geocoder.Reverse(c.Request.Context(), req.Lat, req.Lon)
	if err != nil {
		if errors.Is(err, geo.ErrUnavailable) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "geocoder unavailable"})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "reverse geocoding failed"})
		return
	}

	c.JSON(http.StatusOK, dto.PlaceResponse{
		DisplayName: place.DisplayName,
		Latitude:    place.Latitude,
		Longitude:   place.Longitude,
	})
}
