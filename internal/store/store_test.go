package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/eliseohh/shipbot/internal/models"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.sqlite")
	require.NoError(t, Migrate(path))

	db, err := NewDB(path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMigrate_SeedsCarriersOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.sqlite")
	require.NoError(t, Migrate(path))
	require.NoError(t, Migrate(path))

	db, err := NewDB(path, nil)
	require.NoError(t, err)
	defer db.Close()

	carriers, err := db.ListCarriers(context.Background())
	require.NoError(t, err)
	require.Len(t, carriers, 2)
	assert.Equal(t, "GHN", carriers[0].Name)
	assert.Equal(t, "https://donhang.ghn.vn/?order_code=$$CODE$$", carriers[0].URLTemplate)
	assert.Equal(t, "SPX", carriers[1].Name)
	assert.Equal(t, "https://spx.vn/track?$$CODE$$", carriers[1].URLTemplate)
}

func TestCarriers(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	c, err := db.InsertCarrier(ctx, "VNPOST", "https://vnpost.vn/?q=$$CODE$$")
	require.NoError(t, err)
	assert.NotZero(t, c.ID)

	_, err = db.InsertCarrier(ctx, "VNPOST", "https://other")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConflict))

	got, err := db.GetCarrier(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "VNPOST", got.Name)

	byName, err := db.GetCarrierByName(ctx, "VNPOST")
	require.NoError(t, err)
	assert.Equal(t, c.ID, byName.ID)

	_, err = db.GetCarrierByName(ctx, "NOPE")
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = db.GetCarrier(ctx, 9999)
	assert.True(t, errors.Is(err, ErrNotFound))

	all, err := db.ListCarriers(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "VNPOST", all[2].Name)
}

func TestShipments(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	ghn, err := db.GetCarrierByName(ctx, "GHN")
	require.NoError(t, err)

	require.NoError(t, db.InsertShipment(ctx, models.Shipment{ID: uuid.NewString(), Code: "ABC1", CarrierID: ghn.ID}))
	require.NoError(t, db.InsertShipment(ctx, models.Shipment{ID: uuid.NewString(), Code: "ABC2", CarrierID: ghn.ID}))

	t.Run("duplicate code", func(t *testing.T) {
		err := db.InsertShipment(ctx, models.Shipment{ID: uuid.NewString(), Code: "ABC1", CarrierID: ghn.ID})
		assert.True(t, errors.Is(err, ErrConflict))
	})

	t.Run("unknown carrier id", func(t *testing.T) {
		err := db.InsertShipment(ctx, models.Shipment{ID: uuid.NewString(), Code: "ZZZ", CarrierID: 4242})
		assert.True(t, errors.Is(err, ErrInvalidReference))

		ok, err := db.ShipmentExists(ctx, "ZZZ")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("view", func(t *testing.T) {
		v, err := db.GetShipmentView(ctx, "ABC1")
		require.NoError(t, err)
		assert.Equal(t, "GHN", v.Carrier.Name)
		assert.False(t, v.Delivered)

		_, err = db.GetShipmentView(ctx, "missing")
		assert.True(t, errors.Is(err, ErrNotFound))
	})

	t.Run("status update", func(t *testing.T) {
		n, err := db.UpdateShipmentStatus(ctx, "ABC1", true)
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)

		n, err = db.UpdateShipmentStatus(ctx, "missing", true)
		require.NoError(t, err)
		assert.EqualValues(t, 0, n)

		v, err := db.GetShipmentView(ctx, "ABC1")
		require.NoError(t, err)
		assert.True(t, v.Delivered)
	})

	t.Run("list by status", func(t *testing.T) {
		ongoing, err := db.ListShipmentsByStatus(ctx, false)
		require.NoError(t, err)
		require.Len(t, ongoing, 1)
		assert.Equal(t, "ABC2", ongoing[0].Code)

		delivered, err := db.ListShipmentsByStatus(ctx, true)
		require.NoError(t, err)
		require.Len(t, delivered, 1)
		assert.Equal(t, "ABC1", delivered[0].Code)
	})
}
