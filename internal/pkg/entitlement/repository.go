package entitlement

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/KizitoNaanma/MS-VAS-sub001/app/models"
)

// Repository provides the subscription reads and the atomic access-count
// consume used by the guard.
type Repository interface {
	// FindCurrentSubscription returns the most-recently-created ACTIVE
	// subscription whose end date is null or in the future, or nil when the
	// caller has none.
	FindCurrentSubscription(msisdn string, now time.Time) (*models.Subscription, error)

	// ConsumeAccess increments access_count by one iff the ceiling has not
	// been reached, flipping status to EXHAUSTED when the increment lands on
	// max_access. Returns false when a concurrent consumer already exhausted
	// the row.
	ConsumeAccess(subscriptionID uint) (bool, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates an entitlement repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) FindCurrentSubscription(msisdn string, now time.Time) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.
		Where("user_phone_number = ? AND status = ? AND (end_date IS NULL OR end_date > ?)",
			msisdn, models.SubscriptionStatusActive, now).
		Order("created_at DESC").
		First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *gormRepository) ConsumeAccess(subscriptionID uint) (bool, error) {
	// Single conditional UPDATE so concurrent consumers cannot push
	// access_count past max_access. MySQL applies SET assignments left to
	// right and later assignments see the updated value, so the IF reads
	// access_count post-increment.
	res := r.db.Exec(
		`UPDATE subscriptions
		 SET access_count = access_count + 1,
		     status = IF(access_count >= max_access, ?, status)
		 WHERE id = ? AND status = ? AND access_count < max_access`,
		models.SubscriptionStatusExhausted,
		subscriptionID,
		models.SubscriptionStatusActive,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
