package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/prepnest/prepnest-backend/pkg/db/models"
)

// Repository manages read access to the purchasable series catalog.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.MockTestSeries, error)
	FindPurchasable(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]models.MockTestSeries, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a catalog repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.MockTestSeries, error) {
	var series []models.MockTestSeries
	if len(ids) == 0 {
		return series, nil
	}
	if err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&series).Error; err != nil {
		return nil, err
	}
	return series, nil
}

// FindPurchasable returns the published series among ids that the user does
// not already own.
func (r *repository) FindPurchasable(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]models.MockTestSeries, error) {
	var series []models.MockTestSeries
	if len(ids) == 0 {
		return series, nil
	}
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Where("is_published = ?", true).
		Where("id NOT IN (?)", r.db.WithContext(ctx).
			Model(&models.Enrollment{}).
			Select("series_id").
			Where("user_id = ?", userID)).
		Find(&series).Error
	if err != nil {
		return nil, err
	}
	return series, nil
}
