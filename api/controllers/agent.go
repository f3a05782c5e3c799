package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/aydinemre/menubot-backend/api/responses"
	"github.com/aydinemre/menubot-backend/api/validators"
	"github.com/aydinemre/menubot-backend/internal/agentlock"
	"github.com/aydinemre/menubot-backend/pkg/enums"
	pkgerrors "github.com/aydinemre/menubot-backend/pkg/errors"
	"github.com/aydinemre/menubot-backend/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type agentLocker interface {
	Acquire(ctx context.Context, conversationID uuid.UUID, agentID string) (*agentlock.Lock, error)
	Refresh(ctx context.Context, conversationID uuid.UUID, token string) error
	Release(ctx context.Context, conversationID uuid.UUID, token string) error
	Verify(ctx context.Context, conversationID uuid.UUID, token string) error
}

type agentReplier interface {
	SendAgentReply(ctx context.Context, conversationID uuid.UUID, text string) error
}

type intentFeedbackRecorder interface {
	RecordIntentFeedback(ctx context.Context, intentID uuid.UUID, feedback enums.IntentFeedback) error
}

type acquireLockRequest struct {
	AgentID string `json:"agent_id" validate:"required,min=1,max=128"`
}

type lockTokenRequest struct {
	Token string `json:"token" validate:"required"`
}

type agentReplyRequest struct {
	Token string `json:"token" validate:"required"`
	Text  string `json:"text" validate:"required,max=4096"`
}

type intentFeedbackRequest struct {
	Feedback string `json:"feedback" validate:"required,oneof=correct incorrect"`
}

type lockResponse struct {
	ConversationID string `json:"conversation_id"`
	AgentID        string `json:"agent_id"`
	Token          string `json:"token"`
	ExpiresInSec   int    `json:"expires_in_sec"`
}

// AcquireAgentLock claims a conversation for a human agent.
func AcquireAgentLock(locks agentLocker, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		conversationID, err := conversationIDParam(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var req acquireLockRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		lock, err := locks.Acquire(ctx, conversationID, req.AgentID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, lockResponse{
			ConversationID: lock.ConversationID.String(),
			AgentID:        lock.AgentID,
			Token:          lock.Token,
			ExpiresInSec:   int(lock.TTL / time.Second),
		})
	}
}

// RefreshAgentLock extends a held lock with its fencing token.
func RefreshAgentLock(locks agentLocker, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		conversationID, err := conversationIDParam(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var req lockTokenRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := locks.Refresh(ctx, conversationID, req.Token); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "refreshed"})
	}
}

// ReleaseAgentLock drops a held lock with its fencing token.
func ReleaseAgentLock(locks agentLocker, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		conversationID, err := conversationIDParam(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var req lockTokenRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := locks.Release(ctx, conversationID, req.Token); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "released"})
	}
}

// SendAgentReply delivers a human reply into the conversation. The lock
// token is verified first so a takeover that expired mid-typing cannot
// send under a newer holder.
func SendAgentReply(locks agentLocker, replier agentReplier, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		conversationID, err := conversationIDParam(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var req agentReplyRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := locks.Verify(ctx, conversationID, req.Token); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if err := replier.SendAgentReply(ctx, conversationID, req.Text); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "queued"})
	}
}

// RecordIntentFeedback marks an extraction audit row correct or incorrect.
func RecordIntentFeedback(recorder intentFeedbackRecorder, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		intentID, err := uuid.Parse(chi.URLParam(r, "intentID"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid intent id"))
			return
		}
		var req intentFeedbackRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := recorder.RecordIntentFeedback(ctx, intentID, enums.IntentFeedback(req.Feedback)); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "recorded"})
	}
}

func conversationIDParam(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "conversationID"))
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid conversation id")
	}
	return id, nil
}
