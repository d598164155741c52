package repositories_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/kumarketplace/marketplace/app/models"
	"github.com/kumarketplace/marketplace/app/repositories"
	"github.com/kumarketplace/marketplace/internal/testdb"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func seedUser(t *testing.T, db *gorm.DB, email string) models.User {
	t.Helper()
	u := models.User{FullName: "Test User", Email: email, PasswordHash: "x"}
	require.NoError(t, db.Create(&u).Error)
	return u
}

func newOrder(userID uint, phone string, at time.Time, titles ...string) *models.Order {
	o := &models.Order{
		UserID:           userID,
		ShippingName:     "Jane Doe",
		ShippingAddress1: "1 Main St",
		ShippingCity:     "Lawrence",
		ShippingState:    "KS",
		ShippingZip:      "66045",
		ShippingPhone:    phone,
		Subtotal:         dec("39.98"),
		Tax:              dec("3.20"),
		ShippingFee:      dec("5.00"),
		Total:            dec("48.18"),
		Status:           models.StatusProcessing,
		OrderDate:        at,
	}
	for _, title := range titles {
		o.Items = append(o.Items, models.OrderItem{ProductTitle: title, ProductPrice: dec("19.99"), Quantity: 2})
	}
	return o
}

func TestCreateAndFindByID(t *testing.T) {
	db := testdb.Open(t)
	repo := repositories.NewOrderRepository(db)
	ctx := context.Background()
	u := seedUser(t, db, "a@x.test")

	o := newOrder(u.ID, "555-123-4567", time.Now(), "Lamp")
	require.NoError(t, repo.Create(ctx, o))
	require.NotZero(t, o.ID)
	require.Len(t, o.Items, 1)
	assert.Equal(t, o.ID, o.Items[0].OrderID)

	got, err := repo.FindByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusProcessing, got.Status)
	assert.Equal(t, "", got.ShippingAddress2)
	assert.True(t, got.Total.Equal(dec("48.18")), "total %s", got.Total)
	assert.True(t, got.Tax.Equal(dec("3.2")), "tax %s", got.Tax)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "Lamp", got.Items[0].ProductTitle)
	assert.True(t, got.Items[0].ProductPrice.Equal(dec("19.99")))
	assert.Equal(t, 2, got.Items[0].Quantity)
}

func TestCreateRollsBackWhenItemsFail(t *testing.T) {
	db := testdb.Open(t)
	u := seedUser(t, db, "a@x.test")

	require.NoError(t, db.Callback().Create().Before("gorm:create").Register("test:fail_items", func(tx *gorm.DB) {
		if tx.Statement.Table == "order_items" {
			_ = tx.AddError(errors.New("disk full"))
		}
	}))

	repo := repositories.NewOrderRepository(db)
	err := repo.Create(context.Background(), newOrder(u.ID, "555-123-4567", time.Now(), "Lamp"))
	require.Error(t, err)

	var n int64
	require.NoError(t, db.Model(&models.Order{}).Count(&n).Error)
	assert.Zero(t, n, "header must not survive a failed item insert")
}

func TestFindForUserHidesOtherUsersOrders(t *testing.T) {
	db := testdb.Open(t)
	repo := repositories.NewOrderRepository(db)
	ctx := context.Background()
	owner := seedUser(t, db, "owner@x.test")
	other := seedUser(t, db, "other@x.test")

	o := newOrder(owner.ID, "555-123-4567", time.Now(), "Lamp")
	require.NoError(t, repo.Create(ctx, o))

	_, err := repo.FindForUser(ctx, o.ID, other.ID)
	assert.ErrorIs(t, err, repositories.ErrNotFound)

	got, err := repo.FindForUser(ctx, o.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, o.ID, got.ID)

	_, err = repo.FindByID(ctx, 9999)
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestListByUserNewestFirst(t *testing.T) {
	db := testdb.Open(t)
	repo := repositories.NewOrderRepository(db)
	ctx := context.Background()
	u := seedUser(t, db, "a@x.test")
	other := seedUser(t, db, "b@x.test")

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	older := newOrder(u.ID, "555-000-0001", base, "Old")
	newer := newOrder(u.ID, "555-000-0002", base.Add(time.Hour), "New", "Newer")
	require.NoError(t, repo.Create(ctx, older))
	require.NoError(t, repo.Create(ctx, newer))
	require.NoError(t, repo.Create(ctx, newOrder(other.ID, "555-000-0003", base, "Theirs")))

	orders, err := repo.ListByUser(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, newer.ID, orders[0].ID)
	assert.Len(t, orders[0].Items, 2)
	assert.Equal(t, older.ID, orders[1].ID)

	none, err := repositories.NewOrderRepository(db).ListByUser(ctx, 12345)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestListAllCarriesOwnerEmail(t *testing.T) {
	db := testdb.Open(t)
	repo := repositories.NewOrderRepository(db)
	ctx := context.Background()
	u := seedUser(t, db, "a@x.test")

	require.NoError(t, repo.Create(ctx, newOrder(u.ID, "555-123-4567", time.Now(), "Lamp", "Bulb")))

	orders, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "a@x.test", orders[0].UserEmail)
	assert.Len(t, orders[0].Items, 2)
}

func TestSearchByDayAndPhone(t *testing.T) {
	db := testdb.Open(t)
	repo := repositories.NewOrderRepository(db)
	ctx := context.Background()
	u := seedUser(t, db, "a@x.test")

	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	onDay := newOrder(u.ID, "555-123-4567", day.Add(10*time.Hour), "A")
	lastSecond := newOrder(u.ID, "785-000-1111", day.Add(24*time.Hour-time.Second), "B")
	nextDay := newOrder(u.ID, "555-123-9999", day.Add(24*time.Hour), "C")
	for _, o := range []*models.Order{onDay, lastSecond, nextDay} {
		require.NoError(t, repo.Create(ctx, o))
	}

	byDay, err := repo.Search(ctx, repositories.SearchFilter{From: day, To: day.AddDate(0, 0, 1)})
	require.NoError(t, err)
	require.Len(t, byDay, 2)
	assert.Equal(t, lastSecond.ID, byDay[0].ID)
	assert.Equal(t, onDay.ID, byDay[1].ID)

	byPhone, err := repo.Search(ctx, repositories.SearchFilter{Phone: "123"})
	require.NoError(t, err)
	require.Len(t, byPhone, 2)
	assert.Equal(t, nextDay.ID, byPhone[0].ID)

	both, err := repo.Search(ctx, repositories.SearchFilter{From: day, To: day.AddDate(0, 0, 1), Phone: "123"})
	require.NoError(t, err)
	require.Len(t, both, 1)
	assert.Equal(t, onDay.ID, both[0].ID)
	assert.Equal(t, "a@x.test", both[0].UserEmail)
}

func TestSearchBindsPhoneAsData(t *testing.T) {
	db := testdb.Open(t)
	repo := repositories.NewOrderRepository(db)
	ctx := context.Background()
	u := seedUser(t, db, "a@x.test")
	require.NoError(t, repo.Create(ctx, newOrder(u.ID, "555-123-4567", time.Now(), "A")))

	orders, err := repo.Search(ctx, repositories.SearchFilter{Phone: "' OR '1'='1"})
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestCancel(t *testing.T) {
	db := testdb.Open(t)
	repo := repositories.NewOrderRepository(db)
	ctx := context.Background()
	owner := seedUser(t, db, "owner@x.test")
	other := seedUser(t, db, "other@x.test")

	o := newOrder(owner.ID, "555-123-4567", time.Now(), "Lamp")
	require.NoError(t, repo.Create(ctx, o))

	assert.ErrorIs(t, repo.Cancel(ctx, o.ID, other.ID), repositories.ErrNotFound)
	require.NoError(t, repo.Cancel(ctx, o.ID, owner.ID))
	assert.ErrorIs(t, repo.Cancel(ctx, o.ID, owner.ID), repositories.ErrNotCancellable)

	got, err := repo.FindByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, got.Status)
}

func TestConcurrentCancelHasOneWinner(t *testing.T) {
	db := testdb.Open(t)
	repo := repositories.NewOrderRepository(db)
	ctx := context.Background()
	u := seedUser(t, db, "a@x.test")
	o := newOrder(u.ID, "555-123-4567", time.Now(), "Lamp")
	require.NoError(t, repo.Create(ctx, o))

	const n = 8
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = repo.Cancel(ctx, o.ID, u.ID)
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
		} else {
			assert.ErrorIs(t, err, repositories.ErrNotCancellable)
		}
	}
	assert.Equal(t, 1, wins)
}

func TestUpdateStatus(t *testing.T) {
	db := testdb.Open(t)
	repo := repositories.NewOrderRepository(db)
	ctx := context.Background()
	u := seedUser(t, db, "a@x.test")
	o := newOrder(u.ID, "555-123-4567", time.Now(), "Lamp")
	require.NoError(t, repo.Create(ctx, o))

	require.NoError(t, repo.UpdateStatus(ctx, o.ID, "shipped"))
	require.NoError(t, repo.UpdateStatus(ctx, o.ID, "shipped"))
	assert.ErrorIs(t, repo.UpdateStatus(ctx, 9999, "shipped"), repositories.ErrNotFound)

	got, err := repo.FindByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "shipped", got.Status)

	// An admin may move an order anywhere, including back to processing.
	require.NoError(t, repo.UpdateStatus(ctx, o.ID, models.StatusProcessing))
	require.NoError(t, repo.Cancel(ctx, o.ID, u.ID))
}
