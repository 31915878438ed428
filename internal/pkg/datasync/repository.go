package datasync

import (
	"time"

	"gorm.io/gorm"

	"github.com/KizitoNaanma/MS-VAS-sub001/app/models"
)

// Repository provides DB operations used by the datasync processor.
type Repository interface {
	CreateRecord(rec *models.DatasyncRecord) error
	TouchLastDatasyncHit(at time.Time) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a datasync repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) CreateRecord(rec *models.DatasyncRecord) error {
	return r.db.Create(rec).Error
}

func (r *gormRepository) TouchLastDatasyncHit(at time.Time) error {
	var td models.TrafficData
	if err := r.db.First(&td).Error; err != nil {
		td = models.TrafficData{LastDatasyncHit: &at}
		return r.db.Create(&td).Error
	}
	return r.db.Model(&td).Update("last_datasync_hit", &at).Error
}
