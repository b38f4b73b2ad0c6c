package service

import (
	"context"
	"fmt"
	"time"

	"hwtracker/internal/model"
	"hwtracker/internal/repository"
	"hwtracker/internal/schedule"
)

// Field caps keep any single rendered list section well under Telegram's
// 4096-character message limit, whichever surface the input came from.
const (
	MaxTitleLength  = 200
	MaxDetailLength = 300
)

// Scheduler is what the service needs from the reminder subsystem.
type Scheduler interface {
	Schedule(hw model.Homework) error
	Cancel(id uint)
}

// HomeworkInput represents data required to create or edit a homework.
type HomeworkInput struct {
	Title       string
	Detail      string
	SubjectCode string
	DueDate     *time.Time
	// HasDueTime tells whether DueDate carries a meaningful time of day.
	// Date-only deadlines are normalized to end of day.
	HasDueTime bool
	AuthorID   int64
}

// HomeworkService wraps homework lifecycle logic and keeps the reminder
// cascade in sync with every mutation.
type HomeworkService struct {
	hwRepo      *repository.HomeworkRepository
	subjectRepo *repository.SubjectRepository
	scheduler   Scheduler
}

func NewHomeworkService(hwRepo *repository.HomeworkRepository, subjectRepo *repository.SubjectRepository, scheduler Scheduler) *HomeworkService {
	return &HomeworkService{hwRepo: hwRepo, subjectRepo: subjectRepo, scheduler: scheduler}
}

// Create stores a new homework and registers its reminder cascade when a
// due date is present.
func (s *HomeworkService) Create(ctx context.Context, input HomeworkInput) (*model.Homework, error) {
	if input.Title == "" {
		return nil, fmt.Errorf("title is required")
	}
	if err := validateLengths(input); err != nil {
		return nil, err
	}

	subjectID, err := s.resolveSubject(ctx, input.SubjectCode)
	if err != nil {
		return nil, err
	}

	hw := model.Homework{
		SubjectID:  subjectID,
		Title:      input.Title,
		Detail:     input.Detail,
		DueDate:    normalizeDue(input.DueDate, input.HasDueTime),
		HasDueTime: input.HasDueTime,
		AuthorID:   input.AuthorID,
	}

	if err := s.hwRepo.Create(ctx, &hw); err != nil {
		return nil, err
	}

	if hw.DueDate != nil {
		if err := s.scheduler.Schedule(hw); err != nil {
			return nil, fmt.Errorf("schedule reminders: %w", err)
		}
	}

	return &hw, nil
}

// Update edits a homework. Outstanding timers are cancelled before the
// store is touched, then the cascade is re-registered for the new due
// date.
func (s *HomeworkService) Update(ctx context.Context, id uint, input HomeworkInput) (*model.Homework, error) {
	if err := validateLengths(input); err != nil {
		return nil, err
	}

	hw, err := s.hwRepo.FindActive(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Title != "" {
		hw.Title = input.Title
	}
	hw.Detail = input.Detail
	if input.SubjectCode != "" {
		subjectID, err := s.resolveSubject(ctx, input.SubjectCode)
		if err != nil {
			return nil, err
		}
		hw.SubjectID = subjectID
	}
	hw.DueDate = normalizeDue(input.DueDate, input.HasDueTime)
	hw.HasDueTime = input.HasDueTime

	// Cancel first so a stale timer cannot fire between the write and
	// the re-registration.
	s.scheduler.Cancel(id)

	if err := s.hwRepo.Save(ctx, hw); err != nil {
		return nil, err
	}

	if hw.DueDate != nil {
		if err := s.scheduler.Schedule(*hw); err != nil {
			return nil, fmt.Errorf("reschedule reminders: %w", err)
		}
	}

	return hw, nil
}

// Delete soft-deletes a homework after sweeping its timers.
func (s *HomeworkService) Delete(ctx context.Context, id uint) (*model.Homework, error) {
	hw, err := s.hwRepo.FindActive(ctx, id)
	if err != nil {
		return nil, err
	}

	s.scheduler.Cancel(id)

	if err := s.hwRepo.SoftDelete(ctx, id); err != nil {
		return nil, err
	}
	return hw, nil
}

func (s *HomeworkService) Get(ctx context.Context, id uint) (*model.Homework, error) {
	return s.hwRepo.FindActive(ctx, id)
}

func (s *HomeworkService) List(ctx context.Context, withDeleted bool) ([]model.Homework, error) {
	return s.hwRepo.List(ctx, withDeleted)
}

func (s *HomeworkService) Subjects(ctx context.Context) ([]model.Subject, error) {
	return s.subjectRepo.ListAll(ctx)
}

func (s *HomeworkService) resolveSubject(ctx context.Context, code string) (*uint, error) {
	if code == "" {
		return nil, nil
	}
	subject, err := s.subjectRepo.FindByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("unknown subject %q: %w", code, err)
	}
	return &subject.ID, nil
}

func validateLengths(input HomeworkInput) error {
	if len(input.Title) > MaxTitleLength {
		return fmt.Errorf("title cannot exceed %d characters", MaxTitleLength)
	}
	if len(input.Detail) > MaxDetailLength {
		return fmt.Errorf("detail cannot exceed %d characters", MaxDetailLength)
	}
	return nil
}

func normalizeDue(due *time.Time, hasTime bool) *time.Time {
	if due == nil {
		return nil
	}
	if hasTime {
		d := *due
		return &d
	}
	d := schedule.EndOfDay(*due)
	return &d
}
