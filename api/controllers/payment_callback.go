package controllers

import (
	"context"
	"net/http"

	"github.com/aydinemre/menubot-backend/api/responses"
	"github.com/aydinemre/menubot-backend/api/validators"
	"github.com/aydinemre/menubot-backend/internal/payments"
	pkgerrors "github.com/aydinemre/menubot-backend/pkg/errors"
	"github.com/aydinemre/menubot-backend/pkg/logger"
	"github.com/google/uuid"
)

type paymentCallbackHandler interface {
	HandlePaymentCallback(ctx context.Context, cb payments.Callback) error
}

type paymentCallbackRequest struct {
	OrderID string `json:"order_id" validate:"required,uuid"`
	Success *bool  `json:"success" validate:"required"`
}

// PaymentCallback receives the provider's completion notification and
// advances or holds the conversation accordingly.
func PaymentCallback(handler paymentCallbackHandler, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req paymentCallbackRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		orderID, err := uuid.Parse(req.OrderID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id"))
			return
		}

		cb := payments.Callback{OrderID: orderID, Success: *req.Success}
		if err := handler.HandlePaymentCallback(ctx, cb); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "processed"})
	}
}
