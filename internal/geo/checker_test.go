package geo

import (
	"context"
	"testing"

	"github.com/aydinemre/menubot-backend/pkg/db/models"
	"github.com/aydinemre/menubot-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStores struct {
	stores []models.Store
	err    error
}

func (s *stubStores) ListActiveStores(_ context.Context, _ uuid.UUID) ([]models.Store, error) {
	return s.stores, s.err
}

// Kadıköy center; ~1100m and ~4400m reference points nearby.
var (
	center  = types.Coordinates{Lat: 40.9900, Lng: 29.0250}
	nearby  = types.Coordinates{Lat: 41.0000, Lng: 29.0250}
	distant = types.Coordinates{Lat: 41.0300, Lng: 29.0250}
)

func store(name string, at types.Coordinates, radius, minBasket int) models.Store {
	return models.Store{
		ID:                   uuid.New(),
		TenantID:             uuid.New(),
		Name:                 name,
		Location:             at,
		DeliveryRadiusMeters: radius,
		MinBasketKurus:       minBasket,
		DeliveryFeeKurus:     500,
		Active:               true,
	}
}

func TestCheckAreaWithinRadius(t *testing.T) {
	covering := store("Kadikoy", center, 3000, 10000)
	checker, err := NewChecker(&stubStores{stores: []models.Store{covering}})
	require.NoError(t, err)

	result, err := checker.CheckArea(context.Background(), covering.TenantID, nearby)
	require.NoError(t, err)

	assert.True(t, result.WithinArea)
	require.NotNil(t, result.Store)
	assert.Equal(t, covering.ID, result.Store.ID)
	assert.Equal(t, 10000, result.MinBasketKurus)
	assert.Equal(t, 500, result.DeliveryFeeKurus)
	assert.InDelta(t, 1110, result.DistanceMeters, 30)
	assert.Empty(t, result.Alternatives)
}

func TestCheckAreaPicksClosestCoveringStore(t *testing.T) {
	far := store("Uskudar", distant, 10000, 5000)
	nearStore := store("Kadikoy", center, 3000, 10000)
	checker, err := NewChecker(&stubStores{stores: []models.Store{far, nearStore}})
	require.NoError(t, err)

	result, err := checker.CheckArea(context.Background(), nearStore.TenantID, nearby)
	require.NoError(t, err)

	assert.True(t, result.WithinArea)
	assert.Equal(t, nearStore.ID, result.Store.ID)
}

func TestCheckAreaOutOfAreaListsAlternatives(t *testing.T) {
	// ~4400m away with a 3000m radius: outside, but within 2x.
	alt := store("Kadikoy", center, 3000, 10000)
	// Zero radius stores never cover or suggest.
	dead := store("Kapali", center, 0, 0)
	checker, err := NewChecker(&stubStores{stores: []models.Store{alt, dead}})
	require.NoError(t, err)

	result, err := checker.CheckArea(context.Background(), alt.TenantID, distant)
	require.NoError(t, err)

	assert.False(t, result.WithinArea)
	assert.Nil(t, result.Store)
	require.Len(t, result.Alternatives, 1)
	assert.Equal(t, alt.ID, result.Alternatives[0].Store.ID)
}

func TestCheckAreaNoCoverageAtAll(t *testing.T) {
	alt := store("Kadikoy", center, 1000, 10000)
	checker, err := NewChecker(&stubStores{stores: []models.Store{alt}})
	require.NoError(t, err)

	result, err := checker.CheckArea(context.Background(), alt.TenantID, distant)
	require.NoError(t, err)

	assert.False(t, result.WithinArea)
	assert.Empty(t, result.Alternatives)
}

func TestHaversineMeters(t *testing.T) {
	assert.InDelta(t, 0, HaversineMeters(center, center), 1e-6)
	// One degree of latitude is ~111km.
	assert.InDelta(t, 111000, HaversineMeters(
		types.Coordinates{Lat: 40, Lng: 29},
		types.Coordinates{Lat: 41, Lng: 29},
	), 500)
}
