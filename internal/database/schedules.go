package database

import (
	"context"
	"errors"

	"nrm-schedules/internal/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ScheduleRepo stores schedule documents for the processing pipeline.
type ScheduleRepo struct {
	db *gorm.DB
}

func NewScheduleRepo(db *gorm.DB) *ScheduleRepo {
	return &ScheduleRepo{db: db}
}

func (r *ScheduleRepo) CreateSchedule(ctx context.Context, s *models.Schedule) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *ScheduleRepo) GetSchedule(ctx context.Context, id string) (*models.Schedule, error) {
	var s models.Schedule
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&s).Error; err != nil {
		return nil, NotFound(err)
	}
	return &s, nil
}

func (r *ScheduleRepo) SaveSchedule(ctx context.Context, s *models.Schedule) error {
	return r.db.WithContext(ctx).Save(s).Error
}

// NotFound maps gorm's missing-record error onto models.ErrNotFound.
func NotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.ErrNotFound
	}
	return err
}

func (r *ScheduleRepo) DeleteSchedule(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("schedule_id = ?", id).Delete(&models.ScheduleView{}).Error; err != nil {
			return err
		}
		// packs outlive the schedule but lose their row references
		if err := tx.Model(&models.Pack{}).Where("schedule_id = ?", id).
			Updates(map[string]any{"schedule_id": "", "row_indexes": datatypes.JSONSlice[int]{}}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&models.Schedule{}).Error
	})
}
