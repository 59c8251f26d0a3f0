package geo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"
)

// ErrUnavailable is returned while the circuit is open; callers fail fast
// instead of waiting out another timeout.
var ErrUnavailable = errors.New("geocoder unavailable")

// Place is a resolved map location.
type Place struct {
	DisplayName string
	Latitude    float64
	Longitude   float64
}

// Client talks to a Nominatim-style reverse-geocoding service. Failures are
// tracked by a circuit breaker; there are no automatic retries.
type Client struct {
	http    *resty.Client
	breaker *gobreaker.CircuitBreaker
}

func NewClient(baseURL string, timeout time.Duration, log *slog.Logger) *Client {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "geocoder",
		MaxRequests: 3,
		Interval:    15 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Info("circuit breaker state changed", "circuit", name, "from", from.String(), "to", to.String())
		},
	})

	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetRetryCount(0).
			SetHeader("User-Agent", "storefront-api"),
		breaker: breaker,
	}
}

type reverseResponse struct {
	DisplayName string `json:"display_name"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
}

// Reverse resolves a coordinate pair into a display name.
func (c *Client) Reverse(ctx context.Context, lat, lon float64) (*Place, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		var out reverseResponse
		resp, err := c.http.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"lat":    strconv.FormatFloat(lat, 'f', -1, 64),
				"lon":    strconv.FormatFloat(lon, 'f', -1, 64),
				"format": "jsonv2",
			}).
			SetResult(&out).
			Get("/reverse")
		if err != nil {
			return nil, fmt.Errorf("reverse geocode: %w", err)
		}
		if resp.IsError() {
			return nil, fmt.Errorf("reverse geocode: status %d", resp.StatusCode())
		}
		return &out, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, ErrUnavailable
		}
		return nil, err
	}

	out := result.(*reverseResponse)
	place := &Place{DisplayName: out.DisplayName, Latitude: lat, Longitude: lon}
	if v, err := strconv.ParseFloat(out.Lat, 64); err == nil {
		place.Latitude = v
	}
	if v, err := strconv.ParseFloat(out.Lon, 64); err == nil {
		place.Longitude = v
	}
	return place, nil
}
