package settlement

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/prepnest/prepnest-backend/pkg/db/models"
	pkgerrors "github.com/prepnest/prepnest-backend/pkg/errors"
)

// VerificationRepository manages the immutable settlement records.
type VerificationRepository interface {
	WithTx(tx *gorm.DB) VerificationRepository
	Create(ctx context.Context, record *models.PaymentVerification) error
	FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*models.PaymentVerification, error)
}

type verificationRepository struct {
	db *gorm.DB
}

// NewVerificationRepository returns a verification repository bound to the
// provided database.
func NewVerificationRepository(db *gorm.DB) VerificationRepository {
	return &verificationRepository{db: db}
}

func (r *verificationRepository) WithTx(tx *gorm.DB) VerificationRepository {
	if tx == nil {
		return r
	}
	return &verificationRepository{db: tx}
}

func (r *verificationRepository) Create(ctx context.Context, record *models.PaymentVerification) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *verificationRepository) FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*models.PaymentVerification, error) {
	var record models.PaymentVerification
	err := r.db.WithContext(ctx).
		Where("gateway_order_id = ?", gatewayOrderID).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "verification record not found")
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}
