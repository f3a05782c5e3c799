package catalog

import (
	"context"
	"testing"

	"github.com/aydinemre/menubot-backend/pkg/db/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupCatalogTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	menuCategories := `
CREATE TABLE IF NOT EXISTS menu_categories (
  id TEXT PRIMARY KEY,
  tenant_id TEXT NOT NULL,
  name TEXT NOT NULL,
  sort_order INTEGER NOT NULL DEFAULT 0,
  active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`
	menuItems := `
CREATE TABLE IF NOT EXISTS menu_items (
  id TEXT PRIMARY KEY,
  tenant_id TEXT NOT NULL,
  category_id TEXT NOT NULL,
  name TEXT NOT NULL,
  description TEXT,
  base_price_kurus INTEGER NOT NULL,
  active INTEGER NOT NULL DEFAULT 1,
  option_group_ids TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	optionGroups := `
CREATE TABLE IF NOT EXISTS option_groups (
  id TEXT PRIMARY KEY,
  tenant_id TEXT NOT NULL,
  name TEXT NOT NULL,
  type TEXT NOT NULL DEFAULT 'single',
  required INTEGER NOT NULL DEFAULT 0,
  min_select INTEGER NOT NULL DEFAULT 0,
  max_select INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`
	menuOptions := `
CREATE TABLE IF NOT EXISTS menu_options (
  id TEXT PRIMARY KEY,
  group_id TEXT NOT NULL,
  name TEXT NOT NULL,
  price_delta_kurus INTEGER NOT NULL DEFAULT 0,
  is_default INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	synonyms := `
CREATE TABLE IF NOT EXISTS synonyms (
  id TEXT PRIMARY KEY,
  tenant_id TEXT NOT NULL,
  phrase TEXT NOT NULL,
  maps_to_id TEXT NOT NULL,
  weight REAL NOT NULL DEFAULT 1,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(menuCategories).Error)
	require.NoError(t, db.Exec(menuItems).Error)
	require.NoError(t, db.Exec(optionGroups).Error)
	require.NoError(t, db.Exec(menuOptions).Error)
	require.NoError(t, db.Exec(synonyms).Error)
	return db
}

func newCategory(t *testing.T, db *gorm.DB, tenantID uuid.UUID, name string, sortOrder int, active bool) *models.MenuCategory {
	t.Helper()
	category := &models.MenuCategory{
		ID:        uuid.New(),
		TenantID:  tenantID,
		Name:      name,
		SortOrder: sortOrder,
		Active:    active,
	}
	require.NoError(t, db.Create(category).Error)
	return category
}

func newItem(t *testing.T, db *gorm.DB, tenantID, categoryID uuid.UUID, name string, price int, active bool, groupIDs ...uuid.UUID) *models.MenuItem {
	t.Helper()
	item := &models.MenuItem{
		ID:             uuid.New(),
		TenantID:       tenantID,
		CategoryID:     categoryID,
		Name:           name,
		BasePriceKurus: price,
		Active:         active,
		OptionGroupIDs: groupIDs,
	}
	require.NoError(t, db.Create(item).Error)
	return item
}

func TestPublishedMenuFiltersInactive(t *testing.T) {
	db := setupCatalogTestDB(t)
	tenantID := uuid.New()

	drinks := newCategory(t, db, tenantID, "Icecekler", 2, true)
	mains := newCategory(t, db, tenantID, "Ana Yemekler", 1, true)
	hidden := newCategory(t, db, tenantID, "Kampanyalar", 3, false)

	doner := newItem(t, db, tenantID, mains.ID, "Tavuk Doner", 9500, true)
	newItem(t, db, tenantID, mains.ID, "Eski Burger", 8000, false)
	kola := newItem(t, db, tenantID, drinks.ID, "Kola", 2500, true)
	newItem(t, db, tenantID, hidden.ID, "Gizli Menu", 100, true)

	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)

	snapshot, err := svc.PublishedMenu(context.Background(), tenantID)
	require.NoError(t, err)

	require.Len(t, snapshot.Categories, 2)
	assert.Equal(t, "Ana Yemekler", snapshot.Categories[0].Name)
	assert.Equal(t, "Icecekler", snapshot.Categories[1].Name)

	require.Len(t, snapshot.Categories[0].Items, 1)
	assert.Equal(t, doner.ID, snapshot.Categories[0].Items[0].ID)
	assert.Equal(t, "Ana Yemekler", snapshot.Categories[0].Items[0].CategoryName)

	assert.NotNil(t, snapshot.ItemByID(kola.ID))
	assert.Nil(t, snapshot.ItemByID(uuid.New()))
}

func TestPublishedMenuResolvesOptionGroupsAndSynonyms(t *testing.T) {
	db := setupCatalogTestDB(t)
	tenantID := uuid.New()

	group := &models.OptionGroup{
		ID:        uuid.New(),
		TenantID:  tenantID,
		Name:      "Boyut",
		Type:      "single",
		Required:  true,
		MaxSelect: 1,
	}
	require.NoError(t, db.Create(group).Error)
	require.NoError(t, db.Create(&models.MenuOption{
		ID:              uuid.New(),
		GroupID:         group.ID,
		Name:            "Buyuk",
		PriceDeltaKurus: 1000,
	}).Error)

	category := newCategory(t, db, tenantID, "Ana Yemekler", 1, true)
	doner := newItem(t, db, tenantID, category.ID, "Tavuk Doner", 9500, true, group.ID)

	require.NoError(t, db.Create(&models.Synonym{
		ID:       uuid.New(),
		TenantID: tenantID,
		Phrase:   "dürüm",
		MapsToID: doner.ID,
		Weight:   0.9,
	}).Error)

	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)

	snapshot, err := svc.PublishedMenu(context.Background(), tenantID)
	require.NoError(t, err)

	item := snapshot.ItemByID(doner.ID)
	require.NotNil(t, item)

	groups := snapshot.GroupsFor(item)
	require.Len(t, groups, 1)
	assert.Equal(t, "Boyut", groups[0].Name)
	require.Len(t, groups[0].Options, 1)
	assert.Equal(t, 1000, groups[0].Options[0].PriceDeltaKurus)

	matched := snapshot.SynonymsFor(doner.ID)
	require.Len(t, matched, 1)
	assert.Equal(t, "dürüm", matched[0].Phrase)
	assert.InDelta(t, 0.9, matched[0].Weight, 1e-9)
}

func TestSnapshotSummary(t *testing.T) {
	snapshot := &Snapshot{
		Categories: []Category{
			{
				Name: "Icecekler",
				Items: []Item{
					{Name: "Kola", BasePriceKurus: 2500},
					{Name: "Ayran", BasePriceKurus: 1550},
				},
			},
			{Name: "Bos Kategori"},
		},
	}

	summary := snapshot.Summary()
	assert.Equal(t, "*Icecekler*\n- Kola (25 TL)\n- Ayran (15,50 TL)", summary)
}

func TestNewServiceRequiresRepo(t *testing.T) {
	_, err := NewService(nil)
	require.Error(t, err)
}
