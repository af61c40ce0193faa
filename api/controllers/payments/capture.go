package payments

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/prepnest/prepnest-backend/api/middleware"
	"github.com/prepnest/prepnest-backend/api/responses"
	paymentsvc "github.com/prepnest/prepnest-backend/internal/payments"
	pkgerrors "github.com/prepnest/prepnest-backend/pkg/errors"
	"github.com/prepnest/prepnest-backend/pkg/logger"
)

const idempotencyKeyHeader = "Idempotency-Key"

var validate = validator.New()

type captureRequest struct {
	ItemIDs []string `json:"item_ids" validate:"required,min=1,dive,uuid4"`
}

// Capture registers a purchase intent with the payment gateway.
func Capture(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		userID, err := uuid.Parse(middleware.UserIDFromContext(ctx))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		var req captureRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid request body"))
			return
		}
		if err := validate.Struct(req); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid capture request"))
			return
		}

		seriesIDs := make([]uuid.UUID, 0, len(req.ItemIDs))
		for _, raw := range req.ItemIDs {
			id, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid series id"))
				return
			}
			seriesIDs = append(seriesIDs, id)
		}

		intent, err := svc.CreateIntent(ctx, paymentsvc.CreateIntentInput{
			UserID:         userID,
			SeriesIDs:      seriesIDs,
			IdempotencyKey: strings.TrimSpace(r.Header.Get(idempotencyKeyHeader)),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		status := http.StatusCreated
		if intent.Reused {
			status = http.StatusOK
		}
		responses.WriteSuccessStatus(w, status, intent)
	}
}
