package repository

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bakehouse/storefront-api/internal/model"
)

func newTestUser(t *testing.T, email string, role model.UserRole) *model.User {
	t.Helper()
	user := &model.User{Email: email, Password: "hashed", Name: "Test User", Role: role}
	require.NoError(t, NewUserRepository(testPool).Create(context.Background(), user))
	return user
}

func newTestProduct(t *testing.T, agentID uuid.UUID, name string, price int64) *model.Product {
	t.Helper()
	product := &model.Product{
		AgentID: agentID, Name: name, Description: "test product",
		Price: decimal.NewFromInt(price), Status: model.ProductStatusActive,
	}
	require.NoError(t, NewProductRepository(testPool).Create(context.Background(), product))
	return product
}

func TestUserRepo_CreateAndGetByEmail(t *testing.T) {
	cleanupTable(t, "order_items", "orders", "addresses", "products", "users")

	repo := NewUserRepository(testPool)
	ctx := context.Background()

	user := &model.User{
		Email: "test@example.com", Password: "hashed",
		Name: "John Doe", Role: model.RoleCustomer,
	}
	require.NoError(t, repo.Create(ctx, user))
	assert.NotEqual(t, uuid.Nil, user.ID)

	found, err := repo.GetByEmail(ctx, "test@example.com")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, user.ID, found.ID)
	assert.Equal(t, model.RoleCustomer, found.Role)

	missing, err := repo.GetByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestAddressRepo_CRUD(t *testing.T) {
	cleanupTable(t, "order_items", "orders", "addresses", "products", "users")

	user := newTestUser(t, "addr@example.com", model.RoleCustomer)
	repo := NewAddressRepository(testPool)
	ctx := context.Background()

	address := &model.Address{
		UserID: user.ID, Label: "Home", Detail: "Jl. Merdeka 1",
		Latitude: -6.2, Longitude: 106.8,
	}
	require.NoError(t, repo.Create(ctx, address))
	assert.NotEqual(t, uuid.Nil, address.ID)

	address.Detail = "Jl. Merdeka 2"
	address.Latitude = -6.21
	require.NoError(t, repo.Update(ctx, address))

	list, err := repo.ListByUserID(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, address.ID, list[0].ID)
	assert.Equal(t, "Jl. Merdeka 2", list[0].Detail)
	assert.InDelta(t, -6.21, list[0].Latitude, 1e-9)

	require.NoError(t, repo.Delete(ctx, user.ID, address.ID))
	list, err = repo.ListByUserID(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestAddressRepo_UpdateIsOwnerScoped(t *testing.T) {
	cleanupTable(t, "order_items", "orders", "addresses", "products", "users")

	owner := newTestUser(t, "owner@example.com", model.RoleCustomer)
	other := newTestUser(t, "other@example.com", model.RoleCustomer)
	repo := NewAddressRepository(testPool)
	ctx := context.Background()

	address := &model.Address{
		UserID: owner.ID, Label: "Home", Detail: "Jl. Merdeka 1",
		Latitude: -6.2, Longitude: 106.8,
	}
	require.NoError(t, repo.Create(ctx, address))

	stolen := *address
	stolen.UserID = other.ID
	stolen.Detail = "hijacked"
	assert.ErrorIs(t, repo.Update(ctx, &stolen), pgx.ErrNoRows)
	assert.ErrorIs(t, repo.Delete(ctx, other.ID, address.ID), pgx.ErrNoRows)

	list, err := repo.ListByUserID(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Jl. Merdeka 1", list[0].Detail)
}

func TestAddressRepo_DeleteThenReAdd(t *testing.T) {
	cleanupTable(t, "order_items", "orders", "addresses", "products", "users")

	user := newTestUser(t, "readd@example.com", model.RoleCustomer)
	repo := NewAddressRepository(testPool)
	ctx := context.Background()

	first := &model.Address{
		UserID: user.ID, Label: "Home", Detail: "Jl. Merdeka 1",
		Latitude: -6.2, Longitude: 106.8,
	}
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Delete(ctx, user.ID, first.ID))

	second := &model.Address{
		UserID: user.ID, Label: "Home", Detail: "Jl. Merdeka 1",
		Latitude: -7.0, Longitude: 110.0,
	}
	require.NoError(t, repo.Create(ctx, second))
	assert.NotEqual(t, first.ID, second.ID)

	list, err := repo.ListByUserID(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.InDelta(t, -7.0, list[0].Latitude, 1e-9)
	assert.InDelta(t, 110.0, list[0].Longitude, 1e-9)
}

func TestProductRepo_CRUD(t *testing.T) {
	cleanupTable(t, "order_items", "orders", "addresses", "products", "users")

	agent := newTestUser(t, "agent@example.com", model.RoleAgent)
	repo := NewProductRepository(testPool)
	ctx := context.Background()

	product := newTestProduct(t, agent.ID, "Sourdough", 45000)

	found, err := repo.GetByID(ctx, product.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "Sourdough", found.Name)
	assert.True(t, decimal.NewFromInt(45000).Equal(found.Price))

	product.Name = "Sourdough Loaf"
	require.NoError(t, repo.Update(ctx, product))

	found, err = repo.GetByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, "Sourdough Loaf", found.Name)

	byAgent, err := repo.ListByAgent(ctx, agent.ID)
	require.NoError(t, err)
	require.Len(t, byAgent, 1)

	require.NoError(t, repo.Delete(ctx, product.ID))
	found, err = repo.GetByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestProductRepo_ListActiveOnly(t *testing.T) {
	cleanupTable(t, "order_items", "orders", "addresses", "products", "users")

	agent := newTestUser(t, "agent2@example.com", model.RoleAgent)
	repo := NewProductRepository(testPool)
	ctx := context.Background()

	newTestProduct(t, agent.ID, "Visible", 10000)
	hidden := &model.Product{
		AgentID: agent.ID, Name: "Hidden", Description: "off the shelf",
		Price: decimal.NewFromInt(10000), Status: model.ProductStatusInactive,
	}
	require.NoError(t, repo.Create(ctx, hidden))

	list, total, err := repo.List(ctx, 20, 0, "", "created_at", "desc")
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, list, 1)
	assert.Equal(t, "Visible", list[0].Name)
}

func TestOrderRepo_CreateAndGet(t *testing.T) {
	cleanupTable(t, "order_items", "orders", "addresses", "products", "users")

	customer := newTestUser(t, "order@example.com", model.RoleCustomer)
	agent := newTestUser(t, "agent3@example.com", model.RoleAgent)
	product := newTestProduct(t, agent.ID, "Croissant", 25000)

	repo := NewOrderRepository(testPool)
	ctx := context.Background()

	order := &model.Order{
		UserID: customer.ID, Status: model.OrderStatusPending,
		TotalAmount:     decimal.NewFromInt(50000),
		ShippingAddress: "Jl. Merdeka 1",
		Items: []model.OrderItem{
			{ProductID: product.ID, Quantity: 2, PriceAtPurchase: product.Price},
		},
	}
	require.NoError(t, repo.Create(ctx, order))
	assert.NotEqual(t, uuid.Nil, order.ID)

	found, err := repo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, model.OrderStatusPending, found.Status)
	require.Len(t, found.Items, 1)
	assert.Equal(t, 2, found.Items[0].Quantity)
	assert.True(t, product.Price.Equal(found.Items[0].PriceAtPurchase))

	agentIDs, err := repo.AgentIDsForOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, agentIDs, 1)
	assert.Equal(t, agent.ID, agentIDs[0])
}

func TestOrderRepo_UpdateStatusGuard(t *testing.T) {
	cleanupTable(t, "order_items", "orders", "addresses", "products", "users")

	customer := newTestUser(t, "guard@example.com", model.RoleCustomer)
	agent := newTestUser(t, "agent4@example.com", model.RoleAgent)
	product := newTestProduct(t, agent.ID, "Bagel", 15000)

	repo := NewOrderRepository(testPool)
	ctx := context.Background()

	order := &model.Order{
		UserID: customer.ID, Status: model.OrderStatusPending,
		TotalAmount:     decimal.NewFromInt(15000),
		ShippingAddress: "Jl. Merdeka 1",
		Items: []model.OrderItem{
			{ProductID: product.ID, Quantity: 1, PriceAtPurchase: product.Price},
		},
	}
	require.NoError(t, repo.Create(ctx, order))

	// Guard mismatch: order is pending, not shipped.
	err := repo.UpdateStatus(ctx, order.ID, model.OrderStatusShipped, model.OrderStatusDelivered)
	assert.ErrorIs(t, err, pgx.ErrNoRows)

	require.NoError(t, repo.UpdateStatus(ctx, order.ID, model.OrderStatusPending, model.OrderStatusShipped))
	require.NoError(t, repo.UpdateStatus(ctx, order.ID, model.OrderStatusShipped, model.OrderStatusDelivered))

	found, err := repo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusDelivered, found.Status)
}

func TestOrderRepo_ListByAgentID(t *testing.T) {
	cleanupTable(t, "order_items", "orders", "addresses", "products", "users")

	customer := newTestUser(t, "fanout@example.com", model.RoleCustomer)
	agent := newTestUser(t, "agent5@example.com", model.RoleAgent)
	other := newTestUser(t, "agent6@example.com", model.RoleAgent)
	mine := newTestProduct(t, agent.ID, "Mine", 10000)
	theirs := newTestProduct(t, other.ID, "Theirs", 10000)

	repo := NewOrderRepository(testPool)
	ctx := context.Background()

	withMine := &model.Order{
		UserID: customer.ID, Status: model.OrderStatusPending,
		TotalAmount: decimal.NewFromInt(10000), ShippingAddress: "A",
		Items: []model.OrderItem{
			{ProductID: mine.ID, Quantity: 1, PriceAtPurchase: mine.Price},
		},
	}
	require.NoError(t, repo.Create(ctx, withMine))

	withTheirs := &model.Order{
		UserID: customer.ID, Status: model.OrderStatusPending,
		TotalAmount: decimal.NewFromInt(10000), ShippingAddress: "B",
		Items: []model.OrderItem{
			{ProductID: theirs.ID, Quantity: 1, PriceAtPurchase: theirs.Price},
		},
	}
	require.NoError(t, repo.Create(ctx, withTheirs))

	orders, err := repo.ListByAgentID(ctx, agent.ID)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, withMine.ID, orders[0].ID)

	items, err := repo.ListItemsByProductIDs(ctx, []uuid.UUID{mine.ID})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, withMine.ID, items[0].OrderID)
}
