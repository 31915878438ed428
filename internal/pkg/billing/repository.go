package billing

import (
	"gorm.io/gorm"

	"github.com/KizitoNaanma/MS-VAS-sub001/app/models"
)

// Repository provides the subscription writes driven by lifecycle events.
type Repository interface {
	CreateSubscription(sub *models.Subscription) error
	CancelActiveSubscription(msisdn, productID string) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a billing repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) CreateSubscription(sub *models.Subscription) error {
	return r.db.Create(sub).Error
}

func (r *gormRepository) CancelActiveSubscription(msisdn, productID string) error {
	var sub models.Subscription
	err := r.db.
		Where("user_phone_number = ? AND product_id = ? AND status = ?",
			msisdn, productID, models.SubscriptionStatusActive).
		Order("created_at DESC").
		First(&sub).Error
	if err != nil {
		return err
	}
	return r.db.Model(&sub).Update("status", models.SubscriptionStatusCancelled).Error
}
