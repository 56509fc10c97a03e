package repository

import (
	"errors"

	"quizgen_gateway/internal/model"
	"quizgen_gateway/internal/util"

	"gorm.io/gorm"
)

type ResultRepository struct {
	DB *gorm.DB
}

func NewResultRepository(db *gorm.DB) *ResultRepository {
	return &ResultRepository{DB: db}
}

func (r *ResultRepository) Create(record *model.QuizResultRecord) error {
	return r.DB.Create(record).Error
}

func (r *ResultRepository) ListByOwner(ownerID string, quizID string, limit, offset int) ([]model.QuizResultRecord, int64, error) {
	var records []model.QuizResultRecord
	var total int64

	db := r.DB.Model(&model.QuizResultRecord{}).Where("owner_id = ?", ownerID)
	if quizID != "" {
		db = db.Where("quiz_id = ?", quizID)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Order("created_at DESC").Limit(limit).Offset(offset).Find(&records).Error
	return records, total, err
}

func (r *ResultRepository) FindByAttempt(ownerID, attemptID string) (*model.QuizResultRecord, error) {
	var record model.QuizResultRecord
	err := r.DB.Where("owner_id = ? AND attempt_id = ?", ownerID, attemptID).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}
