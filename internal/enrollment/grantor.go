package enrollment

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/prepnest/prepnest-backend/pkg/db/models"
)

// Grantor records series ownership for users. Grants are set-adds: replaying
// a grant never duplicates rows or disturbs existing enrollments.
type Grantor interface {
	WithTx(tx *gorm.DB) Grantor
	Grant(ctx context.Context, userID uuid.UUID, seriesIDs []uuid.UUID) error
	AnyEnrolled(ctx context.Context, userID uuid.UUID, seriesIDs []uuid.UUID) (bool, error)
}

type grantor struct {
	db *gorm.DB
}

// NewGrantor returns an enrollment grantor bound to the provided database.
func NewGrantor(db *gorm.DB) Grantor {
	return &grantor{db: db}
}

func (g *grantor) WithTx(tx *gorm.DB) Grantor {
	if tx == nil {
		return g
	}
	return &grantor{db: tx}
}

func (g *grantor) Grant(ctx context.Context, userID uuid.UUID, seriesIDs []uuid.UUID) error {
	if userID == uuid.Nil {
		return fmt.Errorf("user id is required")
	}
	if len(seriesIDs) == 0 {
		return fmt.Errorf("at least one series id is required")
	}

	rows := make([]models.Enrollment, 0, len(seriesIDs))
	for _, seriesID := range seriesIDs {
		if seriesID == uuid.Nil {
			return fmt.Errorf("series id is required")
		}
		rows = append(rows, models.Enrollment{UserID: userID, SeriesID: seriesID})
	}

	return g.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows).Error
}

func (g *grantor) AnyEnrolled(ctx context.Context, userID uuid.UUID, seriesIDs []uuid.UUID) (bool, error) {
	if userID == uuid.Nil || len(seriesIDs) == 0 {
		return false, nil
	}
	var count int64
	err := g.db.WithContext(ctx).
		Model(&models.Enrollment{}).
		Where("user_id = ? AND series_id IN ?", userID, seriesIDs).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
