package draft

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aydinemre/menubot-backend/internal/catalog"
	"github.com/aydinemre/menubot-backend/internal/extraction"
	"github.com/aydinemre/menubot-backend/internal/textnorm"
	"github.com/aydinemre/menubot-backend/pkg/db"
	"github.com/aydinemre/menubot-backend/pkg/db/models"
	"github.com/aydinemre/menubot-backend/pkg/enums"
	pkgerrors "github.com/aydinemre/menubot-backend/pkg/errors"
	"github.com/aydinemre/menubot-backend/pkg/logger"
	"github.com/aydinemre/menubot-backend/pkg/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Outcome reports what a merge did to the draft.
type Outcome struct {
	Order   *models.Order
	Created bool
	Deleted bool
}

// Service is the merge engine plus draft lifecycle operations. Every write
// path runs inside one transaction so a single inbound message is atomic.
type Service struct {
	client *db.Client
	log    *logger.Logger
}

// NewService validates dependencies and builds the service.
func NewService(client *db.Client, log *logger.Logger) (*Service, error) {
	if client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "draft: db client is required")
	}
	return &Service{client: client, log: log}, nil
}

// Merge applies a sanitized extraction result to the conversation's draft,
// creating it on the first add and deleting it when the line set empties.
func (s *Service) Merge(ctx context.Context, tenantID, conversationID uuid.UUID, snapshot *catalog.Snapshot, result *extraction.Result) (*Outcome, error) {
	if snapshot == nil || result == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "draft: snapshot and result are required")
	}

	outcome := &Outcome{}
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := NewRepository(tx)
		order, err := repo.FindDraft(ctx, conversationID)
		if err != nil {
			return err
		}

		for _, extracted := range result.Items {
			item := snapshot.ItemByID(extracted.MenuItemID)
			if item == nil {
				continue
			}

			switch extracted.Action {
			case enums.IntentActionAdd:
				if order == nil {
					order = &models.Order{
						ID:             uuid.New(),
						TenantID:       tenantID,
						ConversationID: conversationID,
						Status:         enums.OrderStatusDraft,
					}
					if err := repo.CreateOrder(ctx, order); err != nil {
						return err
					}
					outcome.Created = true
				}
				if err := s.applyAdd(ctx, repo, order, item, snapshot, extracted); err != nil {
					return err
				}

			case enums.IntentActionRemove:
				if order == nil {
					continue
				}
				if err := s.applyRemove(ctx, repo, order, extracted); err != nil {
					return err
				}

			case enums.IntentActionKeep:
				if order == nil {
					continue
				}
				if line := applyKeep(order, extracted); line != nil {
					if err := repo.SaveItem(ctx, line); err != nil {
						return err
					}
				}
			}
		}

		if order == nil {
			return nil
		}

		if result.OrderNotes != "" {
			order.OrderNotes = appendNote(order.OrderNotes, result.OrderNotes)
		}

		if len(order.Items) == 0 {
			if err := repo.DeleteOrder(ctx, order.ID); err != nil {
				return err
			}
			outcome.Deleted = true
			outcome.Order = nil
			return nil
		}

		order.TotalKurus = recomputeTotal(order)
		if err := repo.SaveOrder(ctx, order); err != nil {
			return err
		}
		outcome.Order = order
		return nil
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "draft: merge failed")
	}
	return outcome, nil
}

func (s *Service) applyAdd(ctx context.Context, repo *Repository, order *models.Order, item *catalog.Item, snapshot *catalog.Snapshot, extracted extraction.Item) error {
	key := extracted.Options.Fingerprint()
	unit := item.BasePriceKurus + resolveDeltaSum(snapshot, item, extracted.Options)

	if line := findLine(order, item.ID, key); line != nil {
		line.Quantity += extracted.Qty
		line.UnitPriceKurus = unit
		if extracted.Notes != "" {
			notes := extracted.Notes
			line.Notes = &notes
		}
		if len(extracted.Extras) > 0 {
			line.Extras = types.StringSlice(extracted.Extras)
		}
		return repo.SaveItem(ctx, line)
	}

	line := models.OrderItem{
		ID:             uuid.New(),
		OrderID:        order.ID,
		MenuItemID:     item.ID,
		Name:           item.Name,
		Quantity:       extracted.Qty,
		UnitPriceKurus: unit,
		Options:        extracted.Options,
		OptionsKey:     key,
		Extras:         types.StringSlice(extracted.Extras),
	}
	if extracted.Notes != "" {
		notes := extracted.Notes
		line.Notes = &notes
	}
	if err := repo.CreateItem(ctx, &line); err != nil {
		return err
	}
	order.Items = append(order.Items, line)
	return nil
}

// applyRemove deletes by exact identity; when the options do not match any
// line it falls back to the first line for the same menu item.
func (s *Service) applyRemove(ctx context.Context, repo *Repository, order *models.Order, extracted extraction.Item) error {
	line := findLine(order, extracted.MenuItemID, extracted.Options.Fingerprint())
	if line == nil {
		line = firstLineForItem(order, extracted.MenuItemID)
	}
	if line == nil {
		return nil
	}
	if err := repo.DeleteItem(ctx, line.ID); err != nil {
		return err
	}
	dropLine(order, line.ID)
	return nil
}

func applyKeep(order *models.Order, extracted extraction.Item) *models.OrderItem {
	line := findLine(order, extracted.MenuItemID, extracted.Options.Fingerprint())
	if line == nil {
		line = firstLineForItem(order, extracted.MenuItemID)
	}
	if line == nil {
		return nil
	}
	if extracted.Notes != "" {
		line.Notes = appendNote(line.Notes, extracted.Notes)
	}
	if len(extracted.Extras) > 0 {
		line.Extras = mergeExtras(line.Extras, extracted.Extras)
	}
	return line
}

// VoidDraft cancels the conversation's draft. Returns whether one existed.
func (s *Service) VoidDraft(ctx context.Context, conversationID uuid.UUID) (bool, error) {
	existed := false
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := NewRepository(tx)
		order, err := repo.FindDraft(ctx, conversationID)
		if err != nil || order == nil {
			return err
		}
		existed = true
		now := time.Now().UTC()
		order.Status = enums.OrderStatusCancelled
		order.CancelledAt = &now
		return repo.SaveOrder(ctx, order)
	})
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "draft: void failed")
	}
	return existed, nil
}

// Draft returns the conversation's current draft order, or nil.
func (s *Service) Draft(ctx context.Context, conversationID uuid.UUID) (*models.Order, error) {
	order, err := NewRepository(s.client.DB()).FindDraft(ctx, conversationID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "draft: load failed")
	}
	return order, nil
}

// MarkPendingConfirmation moves the order out of draft, stamping the
// serialized per-tenant order number exactly once.
func (s *Service) MarkPendingConfirmation(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var result *models.Order
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := NewRepository(tx)
		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		if !order.Status.CanTransitionTo(enums.OrderStatusPendingConfirmation) {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("draft: cannot submit order in status %s", order.Status))
		}
		if order.OrderNumber == nil {
			number, err := repo.NextOrderNumber(ctx, order.TenantID)
			if err != nil {
				return err
			}
			order.OrderNumber = &number
		}
		now := time.Now().UTC()
		order.Status = enums.OrderStatusPendingConfirmation
		order.ConfirmedAt = &now
		if err := repo.SaveOrder(ctx, order); err != nil {
			return err
		}
		result = order
		return nil
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "draft: submit failed")
	}
	return result, nil
}

// AttachDelivery stamps the covering store and delivery terms on the order
// after a successful service-area check.
func (s *Service) AttachDelivery(ctx context.Context, orderID, storeID uuid.UUID, location types.Coordinates, feeKurus int, addressText *string) (*models.Order, error) {
	return s.mutate(ctx, orderID, func(order *models.Order) error {
		order.StoreID = &storeID
		order.DeliveryLocation = &location
		order.DeliveryFeeKurus = feeKurus
		order.DeliveryAddressText = addressText
		return nil
	})
}

// SetPaymentMethod records the customer's payment choice.
func (s *Service) SetPaymentMethod(ctx context.Context, orderID uuid.UUID, method enums.PaymentMethod) (*models.Order, error) {
	return s.mutate(ctx, orderID, func(order *models.Order) error {
		if !method.IsValid() {
			return pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("draft: invalid payment method %q", method))
		}
		order.PaymentMethod = &method
		return nil
	})
}

// AttachPaymentLink stores the checkout link so expiry can be judged later.
func (s *Service) AttachPaymentLink(ctx context.Context, orderID uuid.UUID, url string, createdAt time.Time) (*models.Order, error) {
	return s.mutate(ctx, orderID, func(order *models.Order) error {
		order.PaymentLinkURL = &url
		order.PaymentLinkCreatedAt = &createdAt
		return nil
	})
}

func (s *Service) mutate(ctx context.Context, orderID uuid.UUID, apply func(*models.Order) error) (*models.Order, error) {
	var result *models.Order
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := NewRepository(tx)
		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		if err := apply(order); err != nil {
			return err
		}
		if err := repo.SaveOrder(ctx, order); err != nil {
			return err
		}
		result = order
		return nil
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "draft: update failed")
	}
	return result, nil
}

// Summary renders the customer-facing draft summary with the running total.
func Summary(order *models.Order) string {
	if order == nil || len(order.Items) == 0 {
		return ""
	}
	var b strings.Builder
	for _, line := range order.Items {
		fmt.Fprintf(&b, "%dx %s", line.Quantity, line.Name)
		if len(line.Options) > 0 {
			names := make([]string, 0, len(line.Options))
			for _, option := range line.Options {
				names = append(names, option.OptionName)
			}
			fmt.Fprintf(&b, " (%s)", strings.Join(names, ", "))
		}
		fmt.Fprintf(&b, " - %s\n", catalog.FormatKurus(line.LineTotalKurus()))
		if line.Notes != nil && *line.Notes != "" {
			fmt.Fprintf(&b, "  not: %s\n", *line.Notes)
		}
	}
	fmt.Fprintf(&b, "Toplam: %s", catalog.FormatKurus(order.TotalKurus))
	if order.OrderNotes != nil && *order.OrderNotes != "" {
		fmt.Fprintf(&b, "\nSiparis notu: %s", *order.OrderNotes)
	}
	return b.String()
}

func recomputeTotal(order *models.Order) int {
	total := 0
	for _, line := range order.Items {
		total += line.LineTotalKurus()
	}
	return total
}

func findLine(order *models.Order, menuItemID uuid.UUID, key string) *models.OrderItem {
	for i := range order.Items {
		if order.Items[i].MenuItemID == menuItemID && order.Items[i].OptionsKey == key {
			return &order.Items[i]
		}
	}
	return nil
}

func firstLineForItem(order *models.Order, menuItemID uuid.UUID) *models.OrderItem {
	for i := range order.Items {
		if order.Items[i].MenuItemID == menuItemID {
			return &order.Items[i]
		}
	}
	return nil
}

func dropLine(order *models.Order, lineID uuid.UUID) {
	for i := range order.Items {
		if order.Items[i].ID == lineID {
			order.Items = append(order.Items[:i], order.Items[i+1:]...)
			return
		}
	}
}

// resolveDeltaSum prefers the catalog's price deltas over whatever the
// extraction step reported, matching group and option names loosely.
func resolveDeltaSum(snapshot *catalog.Snapshot, item *catalog.Item, selections types.OptionSelections) int {
	groups := snapshot.GroupsFor(item)
	sum := 0
	for _, selection := range selections {
		sum += resolveDelta(groups, selection)
	}
	return sum
}

func resolveDelta(groups []catalog.OptionGroup, selection types.OptionSelection) int {
	groupName := textnorm.Normalize(selection.GroupName)
	optionName := textnorm.Normalize(selection.OptionName)
	for _, group := range groups {
		if textnorm.Normalize(group.Name) != groupName {
			continue
		}
		for _, option := range group.Options {
			if textnorm.Normalize(option.Name) == optionName {
				return option.PriceDeltaKurus
			}
		}
	}
	return selection.PriceDelta
}

func appendNote(existing *string, note string) *string {
	if existing == nil || strings.TrimSpace(*existing) == "" {
		return &note
	}
	merged := *existing + ", " + note
	return &merged
}

func mergeExtras(existing types.StringSlice, incoming []string) types.StringSlice {
	seen := make(map[string]bool, len(existing))
	for _, extra := range existing {
		seen[extra] = true
	}
	for _, extra := range incoming {
		if !seen[extra] {
			existing = append(existing, extra)
			seen[extra] = true
		}
	}
	return existing
}
