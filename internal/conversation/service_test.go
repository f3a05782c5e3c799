package conversation

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aydinemre/menubot-backend/internal/candidates"
	"github.com/aydinemre/menubot-backend/internal/catalog"
	"github.com/aydinemre/menubot-backend/internal/draft"
	"github.com/aydinemre/menubot-backend/internal/extraction"
	"github.com/aydinemre/menubot-backend/internal/geo"
	"github.com/aydinemre/menubot-backend/internal/outbound"
	"github.com/aydinemre/menubot-backend/internal/payments"
	"github.com/aydinemre/menubot-backend/pkg/config"
	"github.com/aydinemre/menubot-backend/pkg/db"
	"github.com/aydinemre/menubot-backend/pkg/db/models"
	"github.com/aydinemre/menubot-backend/pkg/enums"
	pkgerrors "github.com/aydinemre/menubot-backend/pkg/errors"
	"github.com/aydinemre/menubot-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const testPhone = "905551112233"

func setupConversationTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{`
CREATE TABLE IF NOT EXISTS conversations (
  id TEXT PRIMARY KEY,
  tenant_id TEXT NOT NULL,
  customer_phone TEXT NOT NULL,
  phase TEXT NOT NULL DEFAULT 'idle',
  status TEXT NOT NULL DEFAULT 'open',
  active_order_id TEXT,
  last_geo_check TEXT,
  last_message_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS conversation_messages (
  id TEXT PRIMARY KEY,
  conversation_id TEXT NOT NULL,
  direction TEXT NOT NULL,
  kind TEXT NOT NULL DEFAULT 'text',
  body TEXT NOT NULL,
  created_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS order_intents (
  id TEXT PRIMARY KEY,
  tenant_id TEXT NOT NULL,
  conversation_id TEXT NOT NULL,
  message_text TEXT NOT NULL,
  raw_result TEXT,
  confidence REAL NOT NULL,
  clarification_requested INTEGER NOT NULL DEFAULT 0,
  candidate_item_ids TEXT,
  feedback TEXT,
  feedback_at DATETIME,
  created_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS customer_addresses (
  id TEXT PRIMARY KEY,
  tenant_id TEXT NOT NULL,
  customer_phone TEXT NOT NULL,
  label TEXT NOT NULL,
  address_text TEXT,
  location TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  tenant_id TEXT NOT NULL,
  conversation_id TEXT NOT NULL,
  store_id TEXT,
  status TEXT NOT NULL DEFAULT 'draft',
  payment_method TEXT,
  total_kurus INTEGER NOT NULL DEFAULT 0,
  delivery_fee_kurus INTEGER NOT NULL DEFAULT 0,
  order_number INTEGER,
  order_notes TEXT,
  delivery_location TEXT,
  delivery_address_text TEXT,
  payment_link_url TEXT,
  payment_link_created_at DATETIME,
  confirmed_at DATETIME,
  cancelled_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  menu_item_id TEXT NOT NULL,
  name TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  unit_price_kurus INTEGER NOT NULL,
  options TEXT,
  options_key TEXT NOT NULL DEFAULT '',
  notes TEXT,
  extras TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS tenant_counters (
  tenant_id TEXT PRIMARY KEY,
  next_order_number INTEGER NOT NULL DEFAULT 1,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS outbound_messages (
  id TEXT PRIMARY KEY,
  tenant_id TEXT NOT NULL,
  conversation_id TEXT NOT NULL,
  recipient TEXT NOT NULL,
  payload TEXT,
  status TEXT NOT NULL DEFAULT 'pending',
  attempts INTEGER NOT NULL DEFAULT 0,
  last_error TEXT,
  sent_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`}
	for _, statement := range statements {
		require.NoError(t, conn.Exec(statement).Error)
	}
	return conn
}

type stubMenu struct {
	snapshot *catalog.Snapshot
}

func (s stubMenu) PublishedMenu(context.Context, uuid.UUID) (*catalog.Snapshot, error) {
	return s.snapshot, nil
}

type stubStores struct {
	stores []models.Store
}

func (s stubStores) ListActiveStores(context.Context, uuid.UUID) ([]models.Store, error) {
	return s.stores, nil
}

type scriptedExtractor struct {
	results  map[string]*extraction.Result
	requests []extraction.Request
	err      error
}

func (s *scriptedExtractor) Extract(_ context.Context, req extraction.Request) (*extraction.Result, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return nil, s.err
	}
	if result, ok := s.results[req.Text]; ok {
		return result, nil
	}
	return &extraction.Result{Confidence: 1}, nil
}

type fakeLockStore struct {
	held       map[string]bool
	beforeHold func() // runs once, just before the next successful grant
}

func newFakeLockStore() *fakeLockStore {
	return &fakeLockStore{held: map[string]bool{}}
}

func (f *fakeLockStore) SetNX(_ context.Context, key string, _ any, _ time.Duration) (bool, error) {
	if f.held[key] {
		return false, nil
	}
	if hook := f.beforeHold; hook != nil {
		f.beforeHold = nil
		hook()
	}
	f.held[key] = true
	return true, nil
}

func (f *fakeLockStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.held, key)
	}
	return nil
}

func (f *fakeLockStore) ConversationLockKey(conversationID string) string {
	return "lock:" + conversationID
}

type stubLinkInitiator struct {
	link *payments.Link
	err  error
}

func (s stubLinkInitiator) InitiateCardPayment(context.Context, *models.Order) (*payments.Link, error) {
	return s.link, s.err
}

type fixture struct {
	conn      *gorm.DB
	svc       *Service
	extractor *scriptedExtractor
	locks     *fakeLockStore
	tenantID  uuid.UUID
	kolaID    uuid.UUID
	storeID   uuid.UUID
}

func centerStore(tenantID, storeID uuid.UUID) models.Store {
	return models.Store{
		ID:                   storeID,
		TenantID:             tenantID,
		Name:                 "Kadıköy",
		Location:             types.Coordinates{Lat: 40.99, Lng: 29.025},
		DeliveryRadiusMeters: 3000,
		MinBasketKurus:       3000,
		DeliveryFeeKurus:     1000,
		Active:               true,
	}
}

func newFixture(t *testing.T, stores []models.Store, initiator payments.Initiator) *fixture {
	t.Helper()

	conn := setupConversationTestDB(t)
	client := db.NewFromGorm(conn)

	tenantID := uuid.New()
	kolaID := uuid.New()
	storeID := uuid.New()
	if stores == nil {
		stores = []models.Store{centerStore(tenantID, storeID)}
	}

	snapshot := &catalog.Snapshot{
		TenantID: tenantID,
		Categories: []catalog.Category{{
			ID:   uuid.New(),
			Name: "Icecekler",
			Items: []catalog.Item{{
				ID:             kolaID,
				CategoryName:   "Icecekler",
				Name:           "Kola",
				BasePriceKurus: 2500,
			}},
		}},
	}

	drafts, err := draft.NewService(client, nil)
	require.NoError(t, err)
	checker, err := geo.NewChecker(stubStores{stores: stores})
	require.NoError(t, err)
	outbox, err := outbound.NewService(outbound.NewRepository(conn), nil)
	require.NoError(t, err)

	extractor := &scriptedExtractor{results: map[string]*extraction.Result{}}
	locks := newFakeLockStore()

	svc, err := NewService(Deps{
		Client:    client,
		Repo:      NewRepository(conn),
		Menu:      stubMenu{snapshot: snapshot},
		Retriever: candidates.NewRetriever(nil, nil),
		Extractor: extractor,
		Drafts:    drafts,
		Geo:       checker,
		Payments:  payments.NewService(initiator, config.PaymentsConfig{}),
		Outbox:    outbox,
		Locks:     locks,
		Extraction: config.ExtractionConfig{
			MinConfidence:     0.7,
			MinItemConfidence: 0.5,
			HistoryTurns:      10,
		},
	})
	require.NoError(t, err)

	return &fixture{
		conn:      conn,
		svc:       svc,
		extractor: extractor,
		locks:     locks,
		tenantID:  tenantID,
		kolaID:    kolaID,
		storeID:   storeID,
	}
}

func (f *fixture) scriptAdd(text string, qty int, confidence float64) {
	f.extractor.results[text] = &extraction.Result{
		Items: []extraction.Item{{
			MenuItemID:     f.kolaID,
			Qty:            qty,
			Action:         enums.IntentActionAdd,
			ItemConfidence: 0.9,
		}},
		Confidence: confidence,
	}
}

func (f *fixture) text(body string) Inbound {
	return Inbound{TenantID: f.tenantID, From: testPhone, Kind: enums.MessageKindText, Text: body}
}

func (f *fixture) send(t *testing.T, in Inbound) {
	t.Helper()
	require.NoError(t, f.svc.HandleInbound(context.Background(), in))
}

func (f *fixture) conversation(t *testing.T) *models.Conversation {
	t.Helper()
	var conv models.Conversation
	require.NoError(t, f.conn.Where("customer_phone = ?", testPhone).First(&conv).Error)
	return &conv
}

func (f *fixture) lastReply(t *testing.T) string {
	t.Helper()
	var row models.ConversationMessage
	require.NoError(t, f.conn.
		Where("direction = ?", models.MessageDirectionOutbound).
		Order("created_at DESC, rowid DESC").
		First(&row).Error)
	return row.Body
}

func (f *fixture) activeOrder(t *testing.T) *models.Order {
	t.Helper()
	conv := f.conversation(t)
	require.NotNil(t, conv.ActiveOrderID)
	var order models.Order
	require.NoError(t, f.conn.Preload("Items").First(&order, "id = ?", *conv.ActiveOrderID).Error)
	return &order
}

// advance drives the happy path up to the payment method prompt.
func (f *fixture) advanceToPaymentSelection(t *testing.T) {
	t.Helper()
	f.scriptAdd("2 kola", 2, 0.95)
	f.send(t, f.text("2 kola"))
	f.send(t, f.text("evet"))
	f.send(t, f.text("evet"))
	f.send(t, Inbound{
		TenantID: f.tenantID,
		From:     testPhone,
		Kind:     enums.MessageKindLocation,
		Location: &types.Coordinates{Lat: 40.99, Lng: 29.025},
	})
	require.Equal(t, enums.PhasePaymentMethodSelection, f.conversation(t).Phase)
}

func TestCashOrderFlowEndToEnd(t *testing.T) {
	f := newFixture(t, nil, nil)

	f.scriptAdd("2 kola", 2, 0.95)
	f.send(t, f.text("2 kola"))

	conv := f.conversation(t)
	assert.Equal(t, enums.PhaseOrderCollecting, conv.Phase)
	order := f.activeOrder(t)
	require.Len(t, order.Items, 1)
	assert.Equal(t, 2, order.Items[0].Quantity)
	assert.Equal(t, 5000, order.TotalKurus)
	assert.Contains(t, f.lastReply(t), "2x Kola")

	f.send(t, f.text("evet"))
	assert.Equal(t, enums.PhaseOrderReview, f.conversation(t).Phase)
	assert.Contains(t, f.lastReply(t), "Toplam: 50 TL")

	f.send(t, f.text("evet"))
	conv = f.conversation(t)
	assert.Equal(t, enums.PhaseLocationRequest, conv.Phase)
	assert.Contains(t, f.lastReply(t), "konumunuzu")

	f.send(t, Inbound{
		TenantID: f.tenantID,
		From:     testPhone,
		Kind:     enums.MessageKindLocation,
		Location: &types.Coordinates{Lat: 40.99, Lng: 29.025},
	})
	conv = f.conversation(t)
	assert.Equal(t, enums.PhasePaymentMethodSelection, conv.Phase)
	require.NotNil(t, conv.LastGeoCheck)
	assert.True(t, conv.LastGeoCheck.WithinArea)

	f.send(t, Inbound{
		TenantID:       f.tenantID,
		From:           testPhone,
		Kind:           enums.MessageKindInteractive,
		SelectionID:    selectionPayCash,
		SelectionTitle: "Nakit",
	})
	conv = f.conversation(t)
	assert.Equal(t, enums.PhaseOrderConfirmed, conv.Phase)

	order = f.activeOrder(t)
	assert.Equal(t, enums.OrderStatusPendingConfirmation, order.Status)
	require.NotNil(t, order.OrderNumber)
	assert.EqualValues(t, 1, *order.OrderNumber)
	require.NotNil(t, order.PaymentMethod)
	assert.Equal(t, enums.PaymentMethodCash, *order.PaymentMethod)
	assert.Equal(t, 1000, order.DeliveryFeeKurus)

	reply := f.lastReply(t)
	assert.Contains(t, reply, "Sipariş numaranız: 1")
	assert.Contains(t, reply, "60 TL")
}

func TestOutOfAreaStaysInLocationRequest(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.scriptAdd("2 kola", 2, 0.95)
	f.send(t, f.text("2 kola"))
	f.send(t, f.text("evet"))
	f.send(t, f.text("evet"))

	// ~4.5 km north of the store, outside radius but within twice it.
	f.send(t, Inbound{
		TenantID: f.tenantID,
		From:     testPhone,
		Kind:     enums.MessageKindLocation,
		Location: &types.Coordinates{Lat: 41.03, Lng: 29.025},
	})

	conv := f.conversation(t)
	assert.Equal(t, enums.PhaseLocationRequest, conv.Phase)
	require.NotNil(t, conv.LastGeoCheck)
	assert.False(t, conv.LastGeoCheck.WithinArea)

	reply := f.lastReply(t)
	assert.Contains(t, reply, "teslimat yapamıyoruz")
	assert.Contains(t, reply, "Kadıköy")
}

func TestMinBasketShortfallReturnsToCollecting(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.scriptAdd("bir kola", 1, 0.95)
	f.send(t, f.text("bir kola"))
	f.send(t, f.text("evet"))
	f.send(t, f.text("evet"))

	f.send(t, Inbound{
		TenantID: f.tenantID,
		From:     testPhone,
		Kind:     enums.MessageKindLocation,
		Location: &types.Coordinates{Lat: 40.99, Lng: 29.025},
	})

	conv := f.conversation(t)
	assert.Equal(t, enums.PhaseOrderCollecting, conv.Phase)
	assert.Contains(t, f.lastReply(t), "minimum sepet")
	assert.Contains(t, f.lastReply(t), "30 TL")
}

func TestMinBasketNudgeRepeatsUntilCleared(t *testing.T) {
	store := centerStore(uuid.New(), uuid.New())
	store.MinBasketKurus = 6000
	f := newFixture(t, []models.Store{store}, nil)
	f.scriptAdd("bir kola", 1, 0.95)
	f.send(t, f.text("bir kola"))
	f.send(t, f.text("evet"))
	f.send(t, f.text("evet"))

	f.send(t, Inbound{
		TenantID: f.tenantID,
		From:     testPhone,
		Kind:     enums.MessageKindLocation,
		Location: &types.Coordinates{Lat: 40.99, Lng: 29.025},
	})
	require.Equal(t, enums.PhaseOrderCollecting, f.conversation(t).Phase)

	// Still short of the 60 TL minimum after the second item, so the
	// summary carries the reminder.
	f.scriptAdd("bir kola daha", 1, 0.95)
	f.send(t, f.text("bir kola daha"))

	reply := f.lastReply(t)
	assert.Contains(t, reply, "2x Kola")
	assert.Contains(t, reply, "minimum sepet tutarı")
	assert.Contains(t, reply, "60 TL")
}

func TestResetCancelsDraftFromAnyPhase(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.scriptAdd("2 kola", 2, 0.95)
	f.send(t, f.text("2 kola"))
	f.send(t, f.text("evet"))
	require.Equal(t, enums.PhaseOrderReview, f.conversation(t).Phase)

	f.send(t, f.text("sıfırla"))

	conv := f.conversation(t)
	assert.Equal(t, enums.PhaseIdle, conv.Phase)
	assert.Nil(t, conv.ActiveOrderID)

	var order models.Order
	require.NoError(t, f.conn.First(&order).Error)
	assert.Equal(t, enums.OrderStatusCancelled, order.Status)
}

func TestResetFromIdleIsHarmless(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.send(t, f.text("baştan başla"))

	conv := f.conversation(t)
	assert.Equal(t, enums.PhaseIdle, conv.Phase)
	assert.Nil(t, conv.ActiveOrderID)
	assert.Contains(t, f.lastReply(t), "Baştan başlıyoruz")

	var orders int64
	require.NoError(t, f.conn.Model(&models.Order{}).Count(&orders).Error)
	assert.Zero(t, orders)
}

func TestClarificationBlocksMerge(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.extractor.results["kola gibi bisey"] = &extraction.Result{
		Confidence:            0.4,
		ClarificationQuestion: "Kola mı Fanta mı istersiniz?",
	}

	f.send(t, f.text("kola gibi bisey"))

	conv := f.conversation(t)
	assert.Equal(t, enums.PhaseOrderCollecting, conv.Phase)
	assert.Nil(t, conv.ActiveOrderID)
	assert.Equal(t, "Kola mı Fanta mı istersiniz?", f.lastReply(t))

	var orders int64
	require.NoError(t, f.conn.Model(&models.Order{}).Count(&orders).Error)
	assert.Zero(t, orders)
}

func TestExtractionFailureHandsOffThenRecovers(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.extractor.err = errors.New("model unavailable")

	f.send(t, f.text("2 kola"))
	conv := f.conversation(t)
	assert.Equal(t, enums.PhaseAgentHandoff, conv.Phase)
	assert.Equal(t, enums.ConversationStatusPendingAgent, conv.Status)
	assert.Contains(t, f.lastReply(t), "temsilcimiz")

	f.extractor.err = nil
	f.scriptAdd("2 kola", 2, 0.95)
	f.send(t, f.text("2 kola"))

	conv = f.conversation(t)
	assert.Equal(t, enums.PhaseOrderCollecting, conv.Phase)
	assert.Equal(t, enums.ConversationStatusOpen, conv.Status)
}

func TestProcessingLockRejectsConcurrentMessage(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.send(t, f.text("merhaba"))

	conv := f.conversation(t)
	f.locks.held["lock:"+conv.ID.String()] = true

	err := f.svc.HandleInbound(context.Background(), f.text("2 kola"))
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeLockConflict, typed.Code())
}

func TestCardPaymentFlowWithCallback(t *testing.T) {
	initiator := stubLinkInitiator{link: &payments.Link{
		CheckoutURL: "https://pay.example/abc",
		CreatedAt:   time.Now().UTC(),
	}}
	f := newFixture(t, nil, initiator)
	f.advanceToPaymentSelection(t)

	f.send(t, Inbound{
		TenantID:       f.tenantID,
		From:           testPhone,
		Kind:           enums.MessageKindInteractive,
		SelectionID:    selectionPayCard,
		SelectionTitle: "Kart",
	})

	conv := f.conversation(t)
	assert.Equal(t, enums.PhasePaymentPending, conv.Phase)
	assert.Contains(t, f.lastReply(t), "https://pay.example/abc")

	order := f.activeOrder(t)
	require.NotNil(t, order.PaymentLinkURL)
	assert.Equal(t, enums.OrderStatusDraft, order.Status)

	require.NoError(t, f.svc.HandlePaymentCallback(context.Background(), payments.Callback{
		OrderID: order.ID,
		Success: true,
	}))

	conv = f.conversation(t)
	assert.Equal(t, enums.PhaseOrderConfirmed, conv.Phase)
	order = f.activeOrder(t)
	assert.Equal(t, enums.OrderStatusPendingConfirmation, order.Status)
	require.NotNil(t, order.OrderNumber)
	assert.Contains(t, f.lastReply(t), "Siparişiniz alındı")
}

func TestPaymentCallbackFailureKeepsPending(t *testing.T) {
	initiator := stubLinkInitiator{link: &payments.Link{
		CheckoutURL: "https://pay.example/abc",
		CreatedAt:   time.Now().UTC(),
	}}
	f := newFixture(t, nil, initiator)
	f.advanceToPaymentSelection(t)
	f.send(t, Inbound{
		TenantID:    f.tenantID,
		From:        testPhone,
		Kind:        enums.MessageKindInteractive,
		SelectionID: selectionPayCard,
	})

	order := f.activeOrder(t)
	require.NoError(t, f.svc.HandlePaymentCallback(context.Background(), payments.Callback{
		OrderID: order.ID,
		Success: false,
	}))

	conv := f.conversation(t)
	assert.Equal(t, enums.PhasePaymentPending, conv.Phase)
	assert.Contains(t, f.lastReply(t), "Ödeme alınamadı")
	assert.Equal(t, enums.OrderStatusDraft, f.activeOrder(t).Status)
}

func TestCardLinkFailureOffersCash(t *testing.T) {
	f := newFixture(t, nil, stubLinkInitiator{err: errors.New("provider down")})
	f.advanceToPaymentSelection(t)

	f.send(t, Inbound{
		TenantID:    f.tenantID,
		From:        testPhone,
		Kind:        enums.MessageKindInteractive,
		SelectionID: selectionPayCard,
	})

	conv := f.conversation(t)
	assert.Equal(t, enums.PhasePaymentMethodSelection, conv.Phase)
	assert.Contains(t, f.lastReply(t), "nakit")

	f.send(t, f.text("nakit"))
	assert.Equal(t, enums.PhaseOrderConfirmed, f.conversation(t).Phase)
}

func TestSavedAddressSelection(t *testing.T) {
	f := newFixture(t, nil, nil)
	addressText := "Moda Cad. 12"
	address := models.CustomerAddress{
		ID:            uuid.New(),
		TenantID:      f.tenantID,
		CustomerPhone: testPhone,
		Label:         "Ev",
		AddressText:   &addressText,
		Location:      types.Coordinates{Lat: 40.99, Lng: 29.025},
	}
	require.NoError(t, f.conn.Create(&address).Error)

	f.scriptAdd("2 kola", 2, 0.95)
	f.send(t, f.text("2 kola"))
	f.send(t, f.text("evet"))
	f.send(t, f.text("evet"))
	require.Equal(t, enums.PhaseLocationRequest, f.conversation(t).Phase)

	f.send(t, Inbound{
		TenantID:       f.tenantID,
		From:           testPhone,
		Kind:           enums.MessageKindInteractive,
		SelectionID:    addressSelectPrefix + address.ID.String(),
		SelectionTitle: "Ev",
	})

	assert.Equal(t, enums.PhasePaymentMethodSelection, f.conversation(t).Phase)
	order := f.activeOrder(t)
	require.NotNil(t, order.DeliveryAddressText)
	assert.Equal(t, addressText, *order.DeliveryAddressText)
	require.NotNil(t, order.StoreID)
}

func TestIntentAuditAndFeedback(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.scriptAdd("2 kola", 2, 0.95)
	f.send(t, f.text("2 kola"))

	conv := f.conversation(t)
	intent, err := f.svc.repo.LatestIntent(context.Background(), conv.ID)
	require.NoError(t, err)
	require.NotNil(t, intent)
	assert.Equal(t, "2 kola", intent.MessageText)
	assert.InDelta(t, 0.95, intent.Confidence, 0.001)
	assert.False(t, intent.ClarificationRequested)
	assert.Contains(t, intent.CandidateItemIDs, f.kolaID)

	require.NoError(t, f.svc.RecordIntentFeedback(context.Background(), intent.ID, enums.IntentFeedbackCorrect))
	updated, err := f.svc.repo.LatestIntent(context.Background(), conv.ID)
	require.NoError(t, err)
	require.NotNil(t, updated.Feedback)
	assert.Equal(t, enums.IntentFeedbackCorrect, *updated.Feedback)
	require.NotNil(t, updated.FeedbackAt)

	err = f.svc.RecordIntentFeedback(context.Background(), uuid.New(), enums.IntentFeedbackIncorrect)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestSendAgentReplyQueuesMessage(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.send(t, f.text("merhaba"))
	conv := f.conversation(t)

	require.NoError(t, f.svc.SendAgentReply(context.Background(), conv.ID, "Siparişinizle ben ilgileniyorum."))
	assert.Equal(t, "Siparişinizle ben ilgileniyorum.", f.lastReply(t))

	conv = f.conversation(t)
	assert.Equal(t, enums.PhaseAgentHandoff, conv.Phase)
	assert.Equal(t, enums.ConversationStatusPendingAgent, conv.Status)

	var queued int64
	require.NoError(t, f.conn.Model(&models.OutboundMessage{}).
		Where("status = ?", enums.OutboundStatusPending).Count(&queued).Error)
	assert.GreaterOrEqual(t, queued, int64(2))

	err := f.svc.SendAgentReply(context.Background(), conv.ID, "   ")
	require.Error(t, err)
}

func TestMenuKeywordRepliesWithSummary(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.send(t, f.text("menü"))

	reply := f.lastReply(t)
	assert.True(t, strings.Contains(reply, "Kola"))
	assert.Equal(t, enums.PhaseIdle, f.conversation(t).Phase)
}

func TestTurnRacingPriorMessageSeesItsWrites(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.scriptAdd("2 kola", 2, 0.95)
	f.send(t, f.text("2 kola"))
	f.send(t, f.text("evet"))
	f.send(t, f.text("evet"))
	require.Equal(t, enums.PhaseLocationRequest, f.conversation(t).Phase)

	// The location message runs to completion while "nakit" is already past
	// its conversation lookup and waiting on the processing lock. The cash
	// choice must be applied to the phase the location message left behind,
	// not the one "nakit" saw before the lock.
	f.locks.beforeHold = func() {
		f.send(t, Inbound{
			TenantID: f.tenantID,
			From:     testPhone,
			Kind:     enums.MessageKindLocation,
			Location: &types.Coordinates{Lat: 40.99, Lng: 29.025},
		})
	}
	f.send(t, f.text("nakit"))

	conv := f.conversation(t)
	assert.Equal(t, enums.PhaseOrderConfirmed, conv.Phase)
	require.NotNil(t, conv.LastGeoCheck)
	assert.True(t, conv.LastGeoCheck.WithinArea)

	order := f.activeOrder(t)
	assert.Equal(t, enums.OrderStatusPendingConfirmation, order.Status)
	require.NotNil(t, order.PaymentMethod)
	assert.Equal(t, enums.PaymentMethodCash, *order.PaymentMethod)
}

func TestClarificationAnswerKeepsPriorCandidates(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.extractor.results["kola gibi bisey"] = &extraction.Result{
		Confidence:            0.4,
		ClarificationQuestion: "Kola mı demek istediniz?",
	}
	f.send(t, f.text("kola gibi bisey"))
	require.Equal(t, enums.PhaseOrderCollecting, f.conversation(t).Phase)

	// The answer never names the item; the previous turn's candidate set
	// has to reach the extractor again for the merge to resolve.
	f.scriptAdd("iki tane olsun", 2, 0.9)
	f.send(t, f.text("iki tane olsun"))

	require.Len(t, f.extractor.requests, 2)
	ids := make([]uuid.UUID, 0, len(f.extractor.requests[1].Candidates))
	for _, candidate := range f.extractor.requests[1].Candidates {
		ids = append(ids, candidate.Item.ID)
	}
	assert.Contains(t, ids, f.kolaID)

	order := f.activeOrder(t)
	require.Len(t, order.Items, 1)
	assert.Equal(t, 2, order.Items[0].Quantity)
	assert.Equal(t, "Kola", order.Items[0].Name)
}

func TestOrderConfirmedResetsOnNextMessage(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.advanceToPaymentSelection(t)
	f.send(t, f.text("nakit"))
	require.Equal(t, enums.PhaseOrderConfirmed, f.conversation(t).Phase)

	f.send(t, f.text("teşekkürler"))
	conv := f.conversation(t)
	assert.Equal(t, enums.PhaseIdle, conv.Phase)
	assert.Nil(t, conv.ActiveOrderID)
	assert.Contains(t, f.lastReply(t), "Rica ederiz")
}
