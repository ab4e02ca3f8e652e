package service

import (
	"context"
	"testing"
	"time"

	"shareit/internal/database"
	"shareit/internal/domain"
	"shareit/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newItemFixture() (*ItemService, *mockUserRepo, *mockItemRepo, *mockBookingRepo) {
	users := new(mockUserRepo)
	items := new(mockItemRepo)
	bookings := new(mockBookingRepo)
	logger := testLogger()
	svc := NewItemService(items, bookings, NewDirectory(users, items, logger), domain.FixedClock(testNow), logger)
	return svc, users, items, bookings
}

func ptr[T any](v T) *T { return &v }

func TestCreateItem(t *testing.T) {
	ctx := context.Background()
	svc, users, items, _ := newItemFixture()
	users.On("UserExists", ctx, int64(1)).Return(true, nil)
	items.On("CreateItem", ctx, mock.AnythingOfType("*models.Item")).
		Run(func(args mock.Arguments) { args.Get(1).(*models.Item).ID = 10 }).
		Return(nil)

	item, err := svc.CreateItem(ctx, 1, &models.Item{Name: "Drill", Description: "cordless", Available: true})
	require.NoError(t, err)
	assert.Equal(t, int64(10), item.ID)
	assert.Equal(t, int64(1), item.OwnerID)

	svc, users, items, _ = newItemFixture()
	users.On("UserExists", ctx, int64(9)).Return(false, nil)
	_, err = svc.CreateItem(ctx, 9, &models.Item{Name: "Saw"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	items.AssertNotCalled(t, "CreateItem", mock.Anything, mock.Anything)
}

func TestUpdateItem(t *testing.T) {
	ctx := context.Background()

	t.Run("PartialPatch", func(t *testing.T) {
		svc, users, items, _ := newItemFixture()
		users.On("UserExists", ctx, int64(1)).Return(true, nil)
		items.On("GetItemByID", ctx, int64(10)).Return(drill(), nil)
		items.On("UpdateItem", ctx, mock.AnythingOfType("*models.Item")).Return(nil)

		item, err := svc.UpdateItem(ctx, 1, 10, models.ItemPatch{Available: ptr(false)})
		require.NoError(t, err)
		assert.Equal(t, "Drill", item.Name)
		assert.False(t, item.Available)
	})

	t.Run("NonOwnerSeesNotFound", func(t *testing.T) {
		svc, users, items, _ := newItemFixture()
		users.On("UserExists", ctx, int64(2)).Return(true, nil)
		items.On("GetItemByID", ctx, int64(10)).Return(drill(), nil)

		_, err := svc.UpdateItem(ctx, 2, 10, models.ItemPatch{Name: ptr("Hammer")})
		assert.ErrorIs(t, err, domain.ErrNotFound)
		items.AssertNotCalled(t, "UpdateItem", mock.Anything, mock.Anything)
	})

	t.Run("MissingItem", func(t *testing.T) {
		svc, users, items, _ := newItemFixture()
		users.On("UserExists", ctx, int64(1)).Return(true, nil)
		items.On("GetItemByID", ctx, int64(10)).Return(nil, database.ErrNotFound)

		_, err := svc.UpdateItem(ctx, 1, 10, models.ItemPatch{})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestGetItemWindowOwnerOnly(t *testing.T) {
	ctx := context.Background()
	dates := []models.BookingDates{
		{ItemID: 10, Start: testNow.Add(-72 * time.Hour), End: testNow.Add(-48 * time.Hour)},
		{ItemID: 10, Start: testNow.Add(24 * time.Hour), End: testNow.Add(48 * time.Hour)},
	}

	svc, users, items, bookings := newItemFixture()
	users.On("UserExists", ctx, int64(1)).Return(true, nil)
	items.On("GetItemByID", ctx, int64(10)).Return(drill(), nil)
	bookings.On("GetItemBookingDates", ctx, int64(10)).Return(dates, nil)

	view, err := svc.GetItem(ctx, 1, 10)
	require.NoError(t, err)
	require.NotNil(t, view.LastBooking)
	require.NotNil(t, view.NextBooking)
	assert.True(t, view.LastBooking.Equal(dates[0].End))
	assert.True(t, view.NextBooking.Equal(dates[1].Start))

	svc, users, items, bookings = newItemFixture()
	users.On("UserExists", ctx, int64(2)).Return(true, nil)
	items.On("GetItemByID", ctx, int64(10)).Return(drill(), nil)

	view, err = svc.GetItem(ctx, 2, 10)
	require.NoError(t, err)
	assert.Nil(t, view.LastBooking)
	assert.Nil(t, view.NextBooking)
	bookings.AssertNotCalled(t, "GetItemBookingDates", mock.Anything, mock.Anything)
}

func TestGetOwnerItems(t *testing.T) {
	ctx := context.Background()
	svc, users, items, bookings := newItemFixture()

	saw := &models.Item{ID: 11, OwnerID: 1, Name: "Saw", Available: true}
	users.On("UserExists", ctx, int64(1)).Return(true, nil)
	items.On("GetItemsByOwner", ctx, int64(1)).Return([]*models.Item{drill(), saw}, nil)
	bookings.On("GetOwnerBookingDates", ctx, int64(1)).Return([]models.BookingDates{
		{ItemID: 10, Start: testNow.Add(time.Hour), End: testNow.Add(2 * time.Hour)},
	}, nil)

	views, err := svc.GetOwnerItems(ctx, 1)
	require.NoError(t, err)
	require.Len(t, views, 2)

	assert.Equal(t, int64(10), views[0].ID)
	assert.Nil(t, views[0].LastBooking)
	require.NotNil(t, views[0].NextBooking)
	assert.True(t, views[0].NextBooking.Equal(testNow.Add(time.Hour)))

	assert.Equal(t, int64(11), views[1].ID)
	assert.Nil(t, views[1].LastBooking)
	assert.Nil(t, views[1].NextBooking)
}

func TestSearchItems(t *testing.T) {
	ctx := context.Background()

	svc, users, items, _ := newItemFixture()
	users.On("UserExists", ctx, int64(1)).Return(true, nil)
	found, err := svc.SearchItems(ctx, 1, "   ")
	require.NoError(t, err)
	assert.Empty(t, found)
	items.AssertNotCalled(t, "SearchAvailableItems", mock.Anything, mock.Anything)

	items.On("SearchAvailableItems", ctx, "drill").Return([]*models.Item{drill()}, nil)
	found, err = svc.SearchItems(ctx, 1, " drill ")
	require.NoError(t, err)
	assert.Len(t, found, 1)
}
