package outbound

import (
	"context"
	"time"

	"github.com/aydinemre/menubot-backend/pkg/config"
	"github.com/aydinemre/menubot-backend/pkg/db/models"
	pkgerrors "github.com/aydinemre/menubot-backend/pkg/errors"
	"github.com/aydinemre/menubot-backend/pkg/logger"
	"github.com/aydinemre/menubot-backend/pkg/metrics"
)

// Worker drains pending outbox rows to the transport.
type Worker struct {
	repo      *Repository
	transport Transport
	cfg       config.OutboundConfig
	logg      *logger.Logger
	metrics   *metrics.ConversationMetrics
}

// NewWorker validates dependencies and builds the worker.
func NewWorker(repo *Repository, transport Transport, cfg config.OutboundConfig, logg *logger.Logger, m *metrics.ConversationMetrics) (*Worker, error) {
	if repo == nil || transport == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "outbound: repository and transport are required")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 500 * time.Millisecond
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 10
	}
	return &Worker{repo: repo, transport: transport, cfg: cfg, logg: logg, metrics: m}, nil
}

// Run polls until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.DrainOnce(ctx); err != nil && w.logg != nil {
				w.logg.Error(ctx, "outbound drain failed", err)
			}
		}
	}
}

// DrainOnce delivers one batch of pending rows.
func (w *Worker) DrainOnce(ctx context.Context) error {
	rows, err := w.repo.FetchPending(ctx, w.cfg.BatchSize)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "outbound: fetch pending")
	}
	for i := range rows {
		w.deliver(ctx, &rows[i])
	}
	return nil
}

func (w *Worker) deliver(ctx context.Context, row *models.OutboundMessage) {
	message, err := FromPayload(row.Payload)
	if err == nil {
		err = w.transport.Send(ctx, row.Recipient, message)
	}

	if err != nil {
		w.metrics.IncOutbound("failed")
		if w.logg != nil {
			w.logg.Error(w.logg.WithConversationID(ctx, row.ConversationID.String()),
				"outbound delivery failed", err)
		}
		if markErr := w.repo.MarkAttemptFailed(ctx, row, err, w.cfg.MaxAttempts); markErr != nil && w.logg != nil {
			w.logg.Error(ctx, "outbound failure bookkeeping failed", markErr)
		}
		return
	}

	w.metrics.IncOutbound("sent")
	if err := w.repo.MarkSent(ctx, row); err != nil && w.logg != nil {
		w.logg.Error(ctx, "outbound sent bookkeeping failed", err)
	}
}
