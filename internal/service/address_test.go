package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bakehouse/storefront-api/internal/dto"
	"github.com/bakehouse/storefront-api/internal/model"
)

type mockAddressRepo struct {
	addresses map[uuid.UUID]*model.Address
	inserted  []uuid.UUID
}

func newMockAddressRepo() *mockAddressRepo {
	return &mockAddressRepo{addresses: make(map[uuid.UUID]*model.Address)}
}

func (m *mockAddressRepo) ListByUserID(_ context.Context, userID uuid.UUID) ([]model.Address, error) {
	var out []model.Address
	for _, id := range m.inserted {
		if a, ok := m.addresses[id]; ok && a.UserID == userID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *mockAddressRepo) Create(_ context.Context, a *model.Address) error {
	a.ID = uuid.New()
	a.CreatedAt = time.Now()
	a.UpdatedAt = time.Now()
	m.addresses[a.ID] = a
	m.inserted = append(m.inserted, a.ID)
	return nil
}

func (m *mockAddressRepo) Update(_ context.Context, a *model.Address) error {
	existing, ok := m.addresses[a.ID]
	if !ok || existing.UserID != a.UserID {
		return pgx.ErrNoRows
	}
	a.CreatedAt = existing.CreatedAt
	a.UpdatedAt = time.Now()
	m.addresses[a.ID] = a
	return nil
}

func (m *mockAddressRepo) Delete(_ context.Context, userID, addressID uuid.UUID) error {
	existing, ok := m.addresses[addressID]
	if !ok || existing.UserID != userID {
		return pgx.ErrNoRows
	}
	delete(m.addresses, addressID)
	return nil
}

func ptr(v float64) *float64 { return &v }

func saveReq(label, detail string, lat, lon *float64) dto.SaveAddressRequest {
	return dto.SaveAddressRequest{Label: label, Detail: detail, Latitude: lat, Longitude: lon}
}

func TestAddressService_Add(t *testing.T) {
	svc := NewAddressService(newMockAddressRepo())
	userID := uuid.New()

	addresses, err := svc.Add(context.Background(), userID, saveReq("Home", "Jl. Merdeka 1", ptr(-6.2), ptr(106.8)))
	require.NoError(t, err)
	require.Len(t, addresses, 1)
	assert.Equal(t, "Home", addresses[0].Label)
	assert.Equal(t, -6.2, addresses[0].Latitude)
	assert.NotEqual(t, uuid.Nil, addresses[0].ID)
}

func TestAddressService_Add_MissingLabel(t *testing.T) {
	svc := NewAddressService(newMockAddressRepo())

	_, err := svc.Add(context.Background(), uuid.New(), saveReq("  ", "Jl. Merdeka 1", ptr(-6.2), ptr(106.8)))
	assert.ErrorIs(t, err, ErrAddressIncomplete)
}

func TestAddressService_Add_MissingCoordinates(t *testing.T) {
	svc := NewAddressService(newMockAddressRepo())

	_, err := svc.Add(context.Background(), uuid.New(), saveReq("Home", "Jl. Merdeka 1", ptr(-6.2), nil))
	assert.ErrorIs(t, err, ErrNoCoordinates)

	_, err = svc.Add(context.Background(), uuid.New(), saveReq("Home", "Jl. Merdeka 1", nil, nil))
	assert.ErrorIs(t, err, ErrNoCoordinates)
}

func TestAddressService_Update(t *testing.T) {
	repo := newMockAddressRepo()
	svc := NewAddressService(repo)
	userID := uuid.New()

	addresses, err := svc.Add(context.Background(), userID, saveReq("Home", "Jl. Merdeka 1", ptr(-6.2), ptr(106.8)))
	require.NoError(t, err)
	addressID := addresses[0].ID

	updated, err := svc.Update(context.Background(), userID, addressID, saveReq("Office", "Jl. Sudirman 5", ptr(-6.21), ptr(106.82)))
	require.NoError(t, err)
	require.Len(t, updated, 1)
	assert.Equal(t, addressID, updated[0].ID)
	assert.Equal(t, "Office", updated[0].Label)
	assert.Equal(t, -6.21, updated[0].Latitude)
}

func TestAddressService_Update_NotFound(t *testing.T) {
	svc := NewAddressService(newMockAddressRepo())

	_, err := svc.Update(context.Background(), uuid.New(), uuid.New(), saveReq("Home", "Jl. Merdeka 1", ptr(-6.2), ptr(106.8)))
	assert.ErrorIs(t, err, ErrAddressNotFound)
}

func TestAddressService_Update_WrongOwner(t *testing.T) {
	repo := newMockAddressRepo()
	svc := NewAddressService(repo)
	owner := uuid.New()

	addresses, err := svc.Add(context.Background(), owner, saveReq("Home", "Jl. Merdeka 1", ptr(-6.2), ptr(106.8)))
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), uuid.New(), addresses[0].ID, saveReq("Stolen", "Elsewhere", ptr(0.0), ptr(0.0)))
	assert.ErrorIs(t, err, ErrAddressNotFound)
}

func TestAddressService_Delete(t *testing.T) {
	repo := newMockAddressRepo()
	svc := NewAddressService(repo)
	userID := uuid.New()

	addresses, err := svc.Add(context.Background(), userID, saveReq("Home", "Jl. Merdeka 1", ptr(-6.2), ptr(106.8)))
	require.NoError(t, err)

	remaining, err := svc.Delete(context.Background(), userID, addresses[0].ID)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

// Deleting an address and re-adding the same (label, detail) with new
// coordinates must end with exactly one address carrying the new pair.
func TestAddressService_DeleteThenReAdd(t *testing.T) {
	repo := newMockAddressRepo()
	svc := NewAddressService(repo)
	userID := uuid.New()

	addresses, err := svc.Add(context.Background(), userID, saveReq("Home", "Jl. Merdeka 1", ptr(-6.2), ptr(106.8)))
	require.NoError(t, err)

	_, err = svc.Delete(context.Background(), userID, addresses[0].ID)
	require.NoError(t, err)

	final, err := svc.Add(context.Background(), userID, saveReq("Home", "Jl. Merdeka 1", ptr(-7.0), ptr(110.0)))
	require.NoError(t, err)
	require.Len(t, final, 1)
	assert.Equal(t, "Home", final[0].Label)
	assert.Equal(t, -7.0, final[0].Latitude)
	assert.Equal(t, 110.0, final[0].Longitude)
}
