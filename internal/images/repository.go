package images

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, img *Image) error {
	if err := r.db.WithContext(ctx).Create(img).Error; err != nil {
		return fmt.Errorf("create image: %w", err)
	}
	return nil
}

// CountByUser returns how many prediction records the user owns. Used for
// sequential artifact naming; reading the count and inserting the row are
// separate statements, so two simultaneous requests from the same user can
// observe the same count.
func (r *Repository) CountByUser(ctx context.Context, userID uint) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&Image{}).Where("user_id = ?", userID).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count images: %w", err)
	}
	return n, nil
}

// FindByUser returns the user's records in creation order.
func (r *Repository) FindByUser(ctx context.Context, userID uint) ([]Image, error) {
	var imgs []Image
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("id ASC").Find(&imgs).Error; err != nil {
		return nil, fmt.Errorf("find images: %w", err)
	}
	return imgs, nil
}
