// Package geo answers the delivery question: which store, if any, covers a
// customer location, and what delivery rule applies there.
package geo

import (
	"context"
	"math"
	"sort"

	"github.com/aydinemre/menubot-backend/pkg/db/models"
	pkgerrors "github.com/aydinemre/menubot-backend/pkg/errors"
	"github.com/aydinemre/menubot-backend/pkg/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const earthRadiusMeters = 6371000.0

// Alternative is a store that would cover the customer if they were a bit
// closer; surfaced when nothing covers them outright.
type Alternative struct {
	Store          models.Store
	DistanceMeters float64
}

// CheckResult is the verdict for one location.
type CheckResult struct {
	WithinArea       bool
	Store            *models.Store
	DistanceMeters   float64
	MinBasketKurus   int
	DeliveryFeeKurus int
	Alternatives     []Alternative
}

type storeLister interface {
	ListActiveStores(ctx context.Context, tenantID uuid.UUID) ([]models.Store, error)
}

// Repository loads the tenant's active stores.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ListActiveStores returns every active store of the tenant.
func (r *Repository) ListActiveStores(ctx context.Context, tenantID uuid.UUID) ([]models.Store, error) {
	var stores []models.Store
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND active = ?", tenantID, true).
		Find(&stores).Error
	if err != nil {
		return nil, err
	}
	return stores, nil
}

// Checker runs the service-area check against store radii.
type Checker struct {
	repo storeLister
}

// NewChecker validates dependencies and builds the checker.
func NewChecker(repo storeLister) (*Checker, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "geo: repository is required")
	}
	return &Checker{repo: repo}, nil
}

// CheckArea finds the closest store whose delivery radius covers the
// location. When none covers it, stores within twice their radius are
// returned as alternatives, nearest first.
func (c *Checker) CheckArea(ctx context.Context, tenantID uuid.UUID, location types.Coordinates) (*CheckResult, error) {
	stores, err := c.repo.ListActiveStores(ctx, tenantID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "geo: load stores")
	}

	result := &CheckResult{}
	var covering *models.Store
	coveringDistance := math.MaxFloat64

	for i := range stores {
		store := stores[i]
		if store.DeliveryRadiusMeters <= 0 {
			continue
		}
		distance := HaversineMeters(store.Location, location)
		if distance <= float64(store.DeliveryRadiusMeters) {
			if distance < coveringDistance {
				covering = &stores[i]
				coveringDistance = distance
			}
			continue
		}
		if distance <= 2*float64(store.DeliveryRadiusMeters) {
			result.Alternatives = append(result.Alternatives, Alternative{
				Store:          store,
				DistanceMeters: distance,
			})
		}
	}

	if covering != nil {
		result.WithinArea = true
		result.Store = covering
		result.DistanceMeters = coveringDistance
		result.MinBasketKurus = covering.MinBasketKurus
		result.DeliveryFeeKurus = covering.DeliveryFeeKurus
		result.Alternatives = nil
		return result, nil
	}

	sort.Slice(result.Alternatives, func(i, j int) bool {
		return result.Alternatives[i].DistanceMeters < result.Alternatives[j].DistanceMeters
	})
	return result, nil
}

// HaversineMeters is the great-circle distance between two coordinates.
func HaversineMeters(a, b types.Coordinates) float64 {
	latA := a.Lat * math.Pi / 180
	latB := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(latA)*math.Cos(latB)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(h))
}
