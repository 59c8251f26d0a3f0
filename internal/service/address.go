package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/bakehouse/storefront-api/internal/dto"
	"github.com/bakehouse/storefront-api/internal/model"
	"github.com/bakehouse/storefront-api/internal/repository"
)

var (
	ErrAddressIncomplete = errors.New("address label and detail are required")
	ErrNoCoordinates     = errors.New("address coordinates are required")
	ErrAddressNotFound   = errors.New("address not found")
)

// AddressService keeps the backend as the single source of truth: every
// mutation is followed by an authoritative re-read instead of a local merge.
type AddressService struct {
	addressRepo repository.AddressRepository
}

func NewAddressService(addressRepo repository.AddressRepository) *AddressService {
	return &AddressService{addressRepo: addressRepo}
}

func (s *AddressService) List(ctx context.Context, userID uuid.UUID) ([]model.Address, error) {
	addresses, err := s.addressRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list addresses: %w", err)
	}
	return addresses, nil
}

func (s *AddressService) Add(ctx context.Context, userID uuid.UUID, req dto.SaveAddressRequest) ([]model.Address, error) {
	if err := validateAddress(req); err != nil {
		return nil, err
	}

	address := &model.Address{
		UserID:    userID,
		Label:     req.Label,
		Detail:    req.Detail,
		Latitude:  *req.Latitude,
		Longitude: *req.Longitude,
	}
	if err := s.addressRepo.Create(ctx, address); err != nil {
		return nil, fmt.Errorf("add address: %w", err)
	}
	return s.List(ctx, userID)
}

// Update rewrites the address in place as a single statement, addressed by
// its stable id. The old delete-then-recreate flow could lose the address
// when the second step failed; this cannot.
func (s *AddressService) Update(ctx context.Context, userID, addressID uuid.UUID, req dto.SaveAddressRequest) ([]model.Address, error) {
	if err := validateAddress(req); err != nil {
		return nil, err
	}

	address := &model.Address{
		ID:        addressID,
		UserID:    userID,
		Label:     req.Label,
		Detail:    req.Detail,
		Latitude:  *req.Latitude,
		Longitude: *req.Longitude,
	}
	if err := s.addressRepo.Update(ctx, address); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAddressNotFound
		}
		return nil, fmt.Errorf("update address: %w", err)
	}
	return s.List(ctx, userID)
}

func (s *AddressService) Delete(ctx context.Context, userID, addressID uuid.UUID) ([]model.Address, error) {
	if err := s.addressRepo.Delete(ctx, userID, addressID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAddressNotFound
		}
		return nil, fmt.Errorf("delete address: %w", err)
	}
	return s.List(ctx, userID)
}

func validateAddress(req dto.SaveAddressRequest) error {
	if strings.TrimSpace(req.Label) == "" || strings.TrimSpace(req.Detail) == "" {
		return ErrAddressIncomplete
	}
	if req.Latitude == nil || req.Longitude == nil {
		return ErrNoCoordinates
	}
	return nil
}
