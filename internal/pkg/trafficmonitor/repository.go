package trafficmonitor

import (
	"errors"

	"gorm.io/gorm"

	"github.com/KizitoNaanma/MS-VAS-sub001/app/models"
)

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a traffic-data repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetTrafficData() (*models.TrafficData, error) {
	var td models.TrafficData
	err := r.db.First(&td).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// No webhook has ever hit; report an empty row rather than an error.
		return &models.TrafficData{}, nil
	}
	if err != nil {
		return nil, err
	}
	return &td, nil
}
