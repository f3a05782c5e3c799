package conversation

import (
	"context"
	"time"

	pkgerrors "github.com/aydinemre/menubot-backend/pkg/errors"
	"github.com/google/uuid"
)

// processingStore is the slice of the redis client the processing lock
// uses.
type processingStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	ConversationLockKey(conversationID string) string
}

// processingLock serializes inbound handling per conversation. Messages
// that lose the race are rejected, not queued; WhatsApp retries for us.
type processingLock struct {
	store processingStore
	ttl   time.Duration
}

func newProcessingLock(store processingStore, ttl time.Duration) *processingLock {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &processingLock{store: store, ttl: ttl}
}

// acquire takes the lock or fails with CodeLockConflict. The returned
// release is safe to call on any path; the TTL covers crashed handlers.
func (p *processingLock) acquire(ctx context.Context, conversationID uuid.UUID) (func(), error) {
	key := p.store.ConversationLockKey(conversationID.String())
	ok, err := p.store.SetNX(ctx, key, "1", p.ttl)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "conversation: acquire processing lock")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeLockConflict, "conversation: message already being processed")
	}
	return func() { _ = p.store.Del(context.WithoutCancel(ctx), key) }, nil
}
