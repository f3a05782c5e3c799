package catalog

import (
	"context"

	"github.com/aydinemre/menubot-backend/pkg/db/models"
	pkgerrors "github.com/aydinemre/menubot-backend/pkg/errors"
	"github.com/google/uuid"
)

// Provider yields the published menu snapshot of a tenant.
type Provider interface {
	PublishedMenu(ctx context.Context, tenantID uuid.UUID) (*Snapshot, error)
}

type menuReader interface {
	ListCategories(ctx context.Context, tenantID uuid.UUID) ([]models.MenuCategory, error)
	ListOptionGroups(ctx context.Context, tenantID uuid.UUID) ([]models.OptionGroup, error)
	ListSynonyms(ctx context.Context, tenantID uuid.UUID) ([]models.Synonym, error)
}

type service struct {
	repo menuReader
}

// NewService builds the snapshot provider on top of the repository.
func NewService(repo menuReader) (Provider, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "catalog: repository is required")
	}
	return &service{repo: repo}, nil
}

// PublishedMenu assembles the full snapshot: categories with items, option
// groups keyed by id, and the synonym list. Items whose category was
// deactivated never appear.
func (s *service) PublishedMenu(ctx context.Context, tenantID uuid.UUID) (*Snapshot, error) {
	categories, err := s.repo.ListCategories(ctx, tenantID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "catalog: load categories")
	}
	groups, err := s.repo.ListOptionGroups(ctx, tenantID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "catalog: load option groups")
	}
	synonyms, err := s.repo.ListSynonyms(ctx, tenantID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "catalog: load synonyms")
	}

	snapshot := &Snapshot{
		TenantID:     tenantID,
		Categories:   make([]Category, 0, len(categories)),
		OptionGroups: make(map[uuid.UUID]OptionGroup, len(groups)),
		Synonyms:     make([]Synonym, 0, len(synonyms)),
	}

	for _, category := range categories {
		mapped := Category{
			ID:    category.ID,
			Name:  category.Name,
			Items: make([]Item, 0, len(category.Items)),
		}
		for _, item := range category.Items {
			description := ""
			if item.Description != nil {
				description = *item.Description
			}
			mapped.Items = append(mapped.Items, Item{
				ID:             item.ID,
				CategoryID:     category.ID,
				CategoryName:   category.Name,
				Name:           item.Name,
				Description:    description,
				BasePriceKurus: item.BasePriceKurus,
				OptionGroupIDs: item.OptionGroupIDs,
			})
		}
		snapshot.Categories = append(snapshot.Categories, mapped)
	}

	for _, group := range groups {
		mapped := OptionGroup{
			ID:        group.ID,
			Name:      group.Name,
			Type:      group.Type,
			Required:  group.Required,
			MinSelect: group.MinSelect,
			MaxSelect: group.MaxSelect,
			Options:   make([]Option, 0, len(group.Options)),
		}
		for _, option := range group.Options {
			mapped.Options = append(mapped.Options, Option{
				ID:              option.ID,
				Name:            option.Name,
				PriceDeltaKurus: option.PriceDeltaKurus,
				IsDefault:       option.IsDefault,
			})
		}
		snapshot.OptionGroups[group.ID] = mapped
	}

	for _, synonym := range synonyms {
		snapshot.Synonyms = append(snapshot.Synonyms, Synonym{
			Phrase:   synonym.Phrase,
			MapsToID: synonym.MapsToID,
			Weight:   synonym.Weight,
		})
	}

	return snapshot, nil
}
