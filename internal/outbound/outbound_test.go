package outbound

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aydinemre/menubot-backend/pkg/config"
	"github.com/aydinemre/menubot-backend/pkg/db"
	"github.com/aydinemre/menubot-backend/pkg/db/models"
	"github.com/aydinemre/menubot-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupOutboxTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
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
);`
	require.NoError(t, conn.Exec(schema).Error)
	return conn
}

type recordingTransport struct {
	sent []Message
	errs []error
}

func (r *recordingTransport) Send(_ context.Context, _ string, message Message) error {
	if len(r.errs) > 0 {
		err := r.errs[0]
		r.errs = r.errs[1:]
		if err != nil {
			return err
		}
	}
	r.sent = append(r.sent, message)
	return nil
}

func TestMessagePayloadRoundTrip(t *testing.T) {
	original := Buttons("Nasıl ödersiniz?",
		Button{ID: "pay_cash", Title: "Nakit"},
		Button{ID: "pay_card", Title: "Kart"},
	)

	payload, err := original.ToPayload()
	require.NoError(t, err)

	restored, err := FromPayload(payload)
	require.NoError(t, err)
	assert.Equal(t, original, restored)
}

func TestEnqueueIsTransactional(t *testing.T) {
	conn := setupOutboxTestDB(t)
	client := db.NewFromGorm(conn)
	svc, err := NewService(NewRepository(conn), nil)
	require.NoError(t, err)

	tenantID, convID := uuid.New(), uuid.New()

	err = client.WithTx(context.Background(), func(tx *gorm.DB) error {
		if err := svc.Enqueue(context.Background(), tx, tenantID, convID, "905551112233",
			Text("Siparişiniz alındı"), LocationRequest("Konumunuzu paylaşır mısınız?")); err != nil {
			return err
		}
		return errors.New("boom")
	})
	require.Error(t, err)

	var count int64
	require.NoError(t, conn.Model(&models.OutboundMessage{}).Count(&count).Error)
	assert.Zero(t, count, "rollback must discard staged messages")

	require.NoError(t, client.WithTx(context.Background(), func(tx *gorm.DB) error {
		return svc.Enqueue(context.Background(), tx, tenantID, convID, "905551112233", Text("Merhaba"))
	}))
	require.NoError(t, conn.Model(&models.OutboundMessage{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestWorkerDrainMarksSent(t *testing.T) {
	conn := setupOutboxTestDB(t)
	repo := NewRepository(conn)
	svc, err := NewService(repo, nil)
	require.NoError(t, err)

	require.NoError(t, db.NewFromGorm(conn).WithTx(context.Background(), func(tx *gorm.DB) error {
		return svc.Enqueue(context.Background(), tx, uuid.New(), uuid.New(), "905551112233",
			Text("ilk"), Text("ikinci"))
	}))

	transport := &recordingTransport{}
	worker, err := NewWorker(repo, transport, config.OutboundConfig{BatchSize: 10, MaxAttempts: 3}, nil, nil)
	require.NoError(t, err)

	require.NoError(t, worker.DrainOnce(context.Background()))
	assert.Len(t, transport.sent, 2)

	var pending int64
	require.NoError(t, conn.Model(&models.OutboundMessage{}).
		Where("status = ?", enums.OutboundStatusPending).Count(&pending).Error)
	assert.Zero(t, pending)
}

func TestWorkerRetriesThenFailsTerminally(t *testing.T) {
	conn := setupOutboxTestDB(t)
	repo := NewRepository(conn)
	svc, err := NewService(repo, nil)
	require.NoError(t, err)

	require.NoError(t, db.NewFromGorm(conn).WithTx(context.Background(), func(tx *gorm.DB) error {
		return svc.Enqueue(context.Background(), tx, uuid.New(), uuid.New(), "905551112233", Text("zor mesaj"))
	}))

	transport := &recordingTransport{errs: []error{errors.New("timeout"), errors.New("timeout")}}
	worker, err := NewWorker(repo, transport, config.OutboundConfig{BatchSize: 10, MaxAttempts: 2}, nil, nil)
	require.NoError(t, err)

	require.NoError(t, worker.DrainOnce(context.Background()))
	require.NoError(t, worker.DrainOnce(context.Background()))

	var row models.OutboundMessage
	require.NoError(t, conn.First(&row).Error)
	assert.Equal(t, enums.OutboundStatusFailed, row.Status)
	assert.Equal(t, 2, row.Attempts)
	require.NotNil(t, row.LastError)
	assert.Equal(t, "timeout", *row.LastError)
}

func TestWhatsAppTransportRendersInteractive(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token-123", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &captured))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	transport := NewWhatsAppTransport(config.TransportConfig{
		BaseURL:     server.URL,
		AccessToken: "token-123",
		Timeout:     time.Second,
	})

	err := transport.Send(context.Background(), "905551112233",
		Buttons("Ödeme yöntemi?", Button{ID: "pay_cash", Title: "Nakit"}))
	require.NoError(t, err)

	assert.Equal(t, "whatsapp", captured["messaging_product"])
	assert.Equal(t, "905551112233", captured["to"])
	assert.Equal(t, "interactive", captured["type"])
}

func TestWhatsAppTransportRequiresToken(t *testing.T) {
	transport := NewWhatsAppTransport(config.TransportConfig{BaseURL: "http://localhost"})
	err := transport.Send(context.Background(), "905551112233", Text("merhaba"))
	assert.Error(t, err)
}
