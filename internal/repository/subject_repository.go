package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"hwtracker/internal/model"
)

// SubjectRepository manages the subject catalog.
type SubjectRepository struct {
	db *gorm.DB
}

func NewSubjectRepository(db *gorm.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

func (r *SubjectRepository) ListAll(ctx context.Context) ([]model.Subject, error) {
	var subjects []model.Subject
	if err := r.db.WithContext(ctx).Preload("Classes").Order("code ASC").Find(&subjects).Error; err != nil {
		return nil, err
	}
	return subjects, nil
}

func (r *SubjectRepository) FindByID(ctx context.Context, id uint) (*model.Subject, error) {
	var subject model.Subject
	if err := r.db.WithContext(ctx).First(&subject, id).Error; err != nil {
		return nil, err
	}
	return &subject, nil
}

func (r *SubjectRepository) FindByCode(ctx context.Context, code string) (*model.Subject, error) {
	var subject model.Subject
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&subject).Error; err != nil {
		return nil, err
	}
	return &subject, nil
}

// Seed upserts the subject catalog, replacing each subject's class slots.
// Run at startup from the deployment's subjects file.
func (r *SubjectRepository) Seed(ctx context.Context, subjects []model.Subject) error {
	db := r.db.WithContext(ctx)
	for _, sub := range subjects {
		var existing model.Subject
		err := db.Where("code = ?", sub.Code).First(&existing).Error
		switch {
		case err == nil:
			existing.Name = sub.Name
			existing.Link = sub.Link
			if err := db.Save(&existing).Error; err != nil {
				return fmt.Errorf("update subject %q: %w", sub.Code, err)
			}
			if err := db.Where("subject_id = ?", existing.ID).Delete(&model.ClassSlot{}).Error; err != nil {
				return fmt.Errorf("clear class slots for %q: %w", sub.Code, err)
			}
			for i := range sub.Classes {
				sub.Classes[i].ID = 0
				sub.Classes[i].SubjectID = existing.ID
			}
			if len(sub.Classes) > 0 {
				if err := db.Create(&sub.Classes).Error; err != nil {
					return fmt.Errorf("create class slots for %q: %w", sub.Code, err)
				}
			}
		case err == gorm.ErrRecordNotFound:
			if err := db.Create(&sub).Error; err != nil {
				return fmt.Errorf("create subject %q: %w", sub.Code, err)
			}
		default:
			return fmt.Errorf("find subject %q: %w", sub.Code, err)
		}
	}
	return nil
}
