package payments

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/prepnest/prepnest-backend/api/middleware"
	"github.com/prepnest/prepnest-backend/api/responses"
	"github.com/prepnest/prepnest-backend/internal/settlement"
	pkgerrors "github.com/prepnest/prepnest-backend/pkg/errors"
	"github.com/prepnest/prepnest-backend/pkg/logger"
)

type verifyRequest struct {
	GatewayOrderID   string `json:"gateway_order_id" validate:"required"`
	GatewayPaymentID string `json:"gateway_payment_id" validate:"required"`
	Signature        string `json:"signature" validate:"required"`
}

// Verify settles a payment from the signed checkout callback.
func Verify(svc settlement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		userID, err := uuid.Parse(middleware.UserIDFromContext(ctx))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		var req verifyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid request body"))
			return
		}
		if err := validate.Struct(req); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid verify request"))
			return
		}

		result, err := svc.Verify(ctx, settlement.VerifyInput{
			UserID:           userID,
			GatewayOrderID:   req.GatewayOrderID,
			GatewayPaymentID: req.GatewayPaymentID,
			Signature:        req.Signature,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
