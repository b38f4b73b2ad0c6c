package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"hwtracker/internal/model"
)

// HomeworkRepository handles CRUD for homework. Deletion is always a soft
// delete; rows keep their DeletedAt timestamp so "list all" can show them.
type HomeworkRepository struct {
	db *gorm.DB
}

func NewHomeworkRepository(db *gorm.DB) *HomeworkRepository {
	return &HomeworkRepository{db: db}
}

func (r *HomeworkRepository) Create(ctx context.Context, hw *model.Homework) error {
	if err := r.db.WithContext(ctx).Create(hw).Error; err != nil {
		return fmt.Errorf("create homework: %w", err)
	}
	return nil
}

func (r *HomeworkRepository) Save(ctx context.Context, hw *model.Homework) error {
	if err := r.db.WithContext(ctx).Save(hw).Error; err != nil {
		return fmt.Errorf("save homework: %w", err)
	}
	return nil
}

// FindActive returns a homework that has not been soft-deleted.
func (r *HomeworkRepository) FindActive(ctx context.Context, id uint) (*model.Homework, error) {
	var hw model.Homework
	if err := r.db.WithContext(ctx).First(&hw, id).Error; err != nil {
		return nil, err
	}
	return &hw, nil
}

// FindAny returns a homework regardless of its deletion state.
func (r *HomeworkRepository) FindAny(ctx context.Context, id uint) (*model.Homework, error) {
	var hw model.Homework
	if err := r.db.WithContext(ctx).Unscoped().First(&hw, id).Error; err != nil {
		return nil, err
	}
	return &hw, nil
}

// List returns homework sorted by due date, items without one last.
// With withDeleted, soft-deleted rows are included.
func (r *HomeworkRepository) List(ctx context.Context, withDeleted bool) ([]model.Homework, error) {
	var hws []model.Homework
	db := r.db.WithContext(ctx)
	if withDeleted {
		db = db.Unscoped()
	}
	if err := db.Order("due_date IS NULL, due_date ASC").Find(&hws).Error; err != nil {
		return nil, err
	}
	return hws, nil
}

// FindPending returns every live homework that has a due date, i.e. the
// set whose reminder schedules must exist.
func (r *HomeworkRepository) FindPending(ctx context.Context) ([]model.Homework, error) {
	var hws []model.Homework
	if err := r.db.WithContext(ctx).Where("due_date IS NOT NULL").
		Order("due_date ASC").
		Find(&hws).Error; err != nil {
		return nil, err
	}
	return hws, nil
}

// SoftDelete marks a homework deleted without removing the row.
func (r *HomeworkRepository) SoftDelete(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&model.Homework{}, id).Error; err != nil {
		return fmt.Errorf("delete homework: %w", err)
	}
	return nil
}

// MarkExpired is the deadline-hit write. It is the same soft delete;
// repeating it for an already-deleted row is a harmless no-op.
func (r *HomeworkRepository) MarkExpired(ctx context.Context, id uint) error {
	if err := r.SoftDelete(ctx, id); err != nil {
		return fmt.Errorf("expire homework: %w", err)
	}
	return nil
}
