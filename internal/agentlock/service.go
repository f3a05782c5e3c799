// Package agentlock is the human-takeover serialization domain: a TTL lock
// per conversation, single holder, refreshable, fenced by an opaque token.
// It is independent of the message-processing lock.
package agentlock

import (
	"context"
	"strings"
	"time"

	"github.com/aydinemre/menubot-backend/pkg/config"
	pkgerrors "github.com/aydinemre/menubot-backend/pkg/errors"
	"github.com/aydinemre/menubot-backend/pkg/redis"
	"github.com/google/uuid"
)

type lockStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Expire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	AgentLockKey(conversationID string) string
}

// Lock is a granted takeover claim. Token fences every later refresh,
// release, and reply against a lock that expired and was re-acquired.
type Lock struct {
	ConversationID uuid.UUID
	AgentID        string
	Token          string
	TTL            time.Duration
}

// Service manages agent takeover locks on Redis. Expiry is enforced by the
// key TTL itself, so stale locks vanish without an explicit sweep.
type Service struct {
	store lockStore
	ttl   time.Duration
}

// NewService validates dependencies and builds the service.
func NewService(store lockStore, cfg config.AgentLockConfig) (*Service, error) {
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "agentlock: store is required")
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &Service{store: store, ttl: ttl}, nil
}

// Acquire claims the conversation for an agent. Fails with a lock conflict
// while another agent holds a live claim; re-acquiring your own live claim
// rotates the token.
func (s *Service) Acquire(ctx context.Context, conversationID uuid.UUID, agentID string) (*Lock, error) {
	if strings.TrimSpace(agentID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "agentlock: agent id is required")
	}

	key := s.store.AgentLockKey(conversationID.String())
	token := uuid.NewString()
	value := encode(agentID, token)

	ok, err := s.store.SetNX(ctx, key, value, s.ttl)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "agentlock: acquire")
	}
	if !ok {
		holder, _, err := s.current(ctx, key)
		if err != nil {
			return nil, err
		}
		if holder != agentID {
			return nil, pkgerrors.New(pkgerrors.CodeLockConflict, "agentlock: conversation is locked").
				WithDetails(map[string]string{"held_by": holder})
		}
		// Same agent re-acquiring: replace value and restart the TTL.
		if err := s.store.Set(ctx, key, value, s.ttl); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "agentlock: reacquire")
		}
	}

	return &Lock{
		ConversationID: conversationID,
		AgentID:        agentID,
		Token:          token,
		TTL:            s.ttl,
	}, nil
}

// Refresh extends a held lock. The token must match the live claim.
func (s *Service) Refresh(ctx context.Context, conversationID uuid.UUID, token string) error {
	key := s.store.AgentLockKey(conversationID.String())
	if err := s.verify(ctx, key, token); err != nil {
		return err
	}
	ok, err := s.store.Expire(ctx, key, s.ttl)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "agentlock: refresh")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "agentlock: lock expired")
	}
	return nil
}

// Release drops a held lock. The token must match the live claim.
func (s *Service) Release(ctx context.Context, conversationID uuid.UUID, token string) error {
	key := s.store.AgentLockKey(conversationID.String())
	if err := s.verify(ctx, key, token); err != nil {
		return err
	}
	if err := s.store.Del(ctx, key); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "agentlock: release")
	}
	return nil
}

// Holder reports who currently holds the conversation, if anyone.
func (s *Service) Holder(ctx context.Context, conversationID uuid.UUID) (string, bool, error) {
	key := s.store.AgentLockKey(conversationID.String())
	holder, _, err := s.current(ctx, key)
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeNotFound {
			return "", false, nil
		}
		return "", false, err
	}
	return holder, true, nil
}

// Verify checks that the given token still fences the live claim. Used to
// gate agent replies.
func (s *Service) Verify(ctx context.Context, conversationID uuid.UUID, token string) error {
	return s.verify(ctx, s.store.AgentLockKey(conversationID.String()), token)
}

func (s *Service) verify(ctx context.Context, key, token string) error {
	_, liveToken, err := s.current(ctx, key)
	if err != nil {
		return err
	}
	if liveToken != token {
		return pkgerrors.New(pkgerrors.CodeLockConflict, "agentlock: token mismatch")
	}
	return nil
}

func (s *Service) current(ctx context.Context, key string) (holder, token string, err error) {
	value, err := s.store.Get(ctx, key)
	if err != nil {
		if err == redis.Nil {
			return "", "", pkgerrors.New(pkgerrors.CodeNotFound, "agentlock: not held")
		}
		return "", "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "agentlock: read")
	}
	holder, token = decode(value)
	return holder, token, nil
}

func encode(agentID, token string) string {
	return agentID + "|" + token
}

func decode(value string) (agentID, token string) {
	idx := strings.LastIndex(value, "|")
	if idx < 0 {
		return value, ""
	}
	return value[:idx], value[idx+1:]
}
