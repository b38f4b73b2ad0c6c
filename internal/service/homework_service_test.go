package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"gorm.io/gorm"

	"hwtracker/internal/model"
	"hwtracker/internal/repository"
)

type stubScheduler struct {
	calls []string // "schedule:<id>" / "cancel:<id>"
}

func (s *stubScheduler) Schedule(hw model.Homework) error {
	s.calls = append(s.calls, fmt.Sprintf("schedule:%d", hw.ID))
	return nil
}

func (s *stubScheduler) Cancel(id uint) {
	s.calls = append(s.calls, fmt.Sprintf("cancel:%d", id))
}

func newTestService(t *testing.T) (*HomeworkService, *stubScheduler, *repository.HomeworkRepository) {
	t.Helper()
	db, err := repository.NewDB(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	hwRepo := repository.NewHomeworkRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	if err := subjectRepo.Seed(context.Background(), []model.Subject{
		{Code: "MATH", Name: "Mathematics"},
	}); err != nil {
		t.Fatalf("seed subjects: %v", err)
	}
	sched := &stubScheduler{}
	return NewHomeworkService(hwRepo, subjectRepo, sched), sched, hwRepo
}

func TestCreateNormalizesDateOnlyDeadline(t *testing.T) {
	svc, sched, _ := newTestService(t)

	day := time.Date(2026, 9, 10, 0, 0, 0, 0, time.Local)
	hw, err := svc.Create(context.Background(), HomeworkInput{
		Title:       "essay",
		SubjectCode: "MATH",
		DueDate:     &day,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	want := time.Date(2026, 9, 10, 23, 59, 59, 0, time.Local)
	if hw.DueDate == nil || !hw.DueDate.Equal(want) {
		t.Errorf("due date = %v, want %s", hw.DueDate, want)
	}
	if len(sched.calls) != 1 || sched.calls[0] != fmt.Sprintf("schedule:%d", hw.ID) {
		t.Errorf("scheduler calls = %v, want one schedule", sched.calls)
	}
}

func TestCreateWithoutDueDateSkipsScheduling(t *testing.T) {
	svc, sched, _ := newTestService(t)

	hw, err := svc.Create(context.Background(), HomeworkInput{Title: "reading"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if hw.DueDate != nil {
		t.Errorf("due date = %v, want nil", hw.DueDate)
	}
	if len(sched.calls) != 0 {
		t.Errorf("scheduler calls = %v, want none", sched.calls)
	}
}

func TestCreateRequiresTitle(t *testing.T) {
	svc, _, _ := newTestService(t)
	if _, err := svc.Create(context.Background(), HomeworkInput{}); err == nil {
		t.Fatalf("expected error for empty title")
	}
}

func TestCreateRejectsOversizedFields(t *testing.T) {
	// Title and detail are capped so a rendered list section can never
	// outgrow a single chat message.
	svc, sched, _ := newTestService(t)

	tests := []struct {
		name  string
		input HomeworkInput
	}{
		{"long title", HomeworkInput{Title: strings.Repeat("t", MaxTitleLength+1)}},
		{"long detail", HomeworkInput{Title: "ok", Detail: strings.Repeat("d", MaxDetailLength+1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Create(context.Background(), tt.input); err == nil {
				t.Errorf("expected error for %s", tt.name)
			}
		})
	}
	if len(sched.calls) != 0 {
		t.Errorf("scheduler calls = %v, want none for rejected input", sched.calls)
	}
}

func TestUpdateRejectsOversizedTitle(t *testing.T) {
	svc, _, _ := newTestService(t)

	hw, err := svc.Create(context.Background(), HomeworkInput{Title: "reading"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Update(context.Background(), hw.ID, HomeworkInput{
		Title: strings.Repeat("t", MaxTitleLength+1),
	}); err == nil {
		t.Fatalf("expected error for oversized title on update")
	}
}

func TestUpdateCancelsBeforeRescheduling(t *testing.T) {
	svc, sched, _ := newTestService(t)

	due := time.Now().Add(48 * time.Hour)
	hw, err := svc.Create(context.Background(), HomeworkInput{
		Title: "lab report", DueDate: &due, HasDueTime: true,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	sched.calls = nil

	newDue := due.Add(24 * time.Hour)
	if _, err := svc.Update(context.Background(), hw.ID, HomeworkInput{
		Title: "lab report v2", DueDate: &newDue, HasDueTime: true,
	}); err != nil {
		t.Fatalf("update: %v", err)
	}

	want := []string{
		fmt.Sprintf("cancel:%d", hw.ID),
		fmt.Sprintf("schedule:%d", hw.ID),
	}
	if len(sched.calls) != 2 || sched.calls[0] != want[0] || sched.calls[1] != want[1] {
		t.Errorf("scheduler calls = %v, want %v", sched.calls, want)
	}
}

func TestDeleteCancelsAndSoftDeletes(t *testing.T) {
	svc, sched, hwRepo := newTestService(t)

	due := time.Now().Add(time.Hour)
	hw, err := svc.Create(context.Background(), HomeworkInput{
		Title: "quiz prep", DueDate: &due, HasDueTime: true,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	sched.calls = nil

	if _, err := svc.Delete(context.Background(), hw.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(sched.calls) != 1 || sched.calls[0] != fmt.Sprintf("cancel:%d", hw.ID) {
		t.Errorf("scheduler calls = %v, want one cancel", sched.calls)
	}

	if _, err := hwRepo.FindActive(context.Background(), hw.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("FindActive after delete: err = %v, want record not found", err)
	}
	if _, err := hwRepo.FindAny(context.Background(), hw.ID); err != nil {
		t.Errorf("FindAny after delete: %v (soft delete should keep the row)", err)
	}

	all, err := svc.List(context.Background(), true)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	found := false
	for _, item := range all {
		if item.ID == hw.ID && item.DeletedAt.Valid {
			found = true
		}
	}
	if !found {
		t.Errorf("deleted homework missing from withDeleted listing")
	}
}

func TestMarkExpiredIsIdempotent(t *testing.T) {
	svc, _, hwRepo := newTestService(t)

	due := time.Now().Add(time.Hour)
	hw, err := svc.Create(context.Background(), HomeworkInput{
		Title: "worksheet", DueDate: &due, HasDueTime: true,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := hwRepo.MarkExpired(context.Background(), hw.ID); err != nil {
		t.Fatalf("first expire: %v", err)
	}
	if err := hwRepo.MarkExpired(context.Background(), hw.ID); err != nil {
		t.Fatalf("second expire should be a no-op, got: %v", err)
	}
}
