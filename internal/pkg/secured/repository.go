package secured

import (
	"time"

	"gorm.io/gorm"

	"github.com/KizitoNaanma/MS-VAS-sub001/app/models"
)

// Repository provides DB operations used by the SecureD processor.
type Repository interface {
	CreateRecord(rec *models.SecureDRecord) error
	TouchLastSecureDHit(at time.Time) error
	FindLatestDatasyncRecord(msisdn, productID string) (*models.DatasyncRecord, error)
	CreateRetryJob(job *models.SecureDRetryJob) error
	GetRetryJob(id uint) (*models.SecureDRetryJob, error)
	ResolveRetryJob(job *models.SecureDRetryJob) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a SecureD repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) CreateRecord(rec *models.SecureDRecord) error {
	return r.db.Create(rec).Error
}

func (r *gormRepository) TouchLastSecureDHit(at time.Time) error {
	var td models.TrafficData
	if err := r.db.First(&td).Error; err != nil {
		td = models.TrafficData{LastSecureDHit: &at}
		return r.db.Create(&td).Error
	}
	return r.db.Model(&td).Update("last_secure_d_hit", &at).Error
}

func (r *gormRepository) FindLatestDatasyncRecord(msisdn, productID string) (*models.DatasyncRecord, error) {
	var rec models.DatasyncRecord
	err := r.db.
		Where("msisdn = ? AND product_id = ?", msisdn, productID).
		Order("created_at DESC").
		First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *gormRepository) CreateRetryJob(job *models.SecureDRetryJob) error {
	return r.db.Create(job).Error
}

func (r *gormRepository) GetRetryJob(id uint) (*models.SecureDRetryJob, error) {
	var job models.SecureDRetryJob
	if err := r.db.First(&job, id).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *gormRepository) ResolveRetryJob(job *models.SecureDRetryJob) error {
	now := time.Now()
	job.ResolvedAt = &now
	return r.db.Save(job).Error
}
