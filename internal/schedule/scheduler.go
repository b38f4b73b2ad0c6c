package schedule

import (
	"context"
	"fmt"
	"log"
	"time"

	"hwtracker/internal/model"
)

// Store is the persistence boundary the scheduler needs: the pending
// set for recovery, a liveness re-check at dispatch time, and the
// deadline-hit write.
type Store interface {
	FindPending(ctx context.Context) ([]model.Homework, error)
	FindActive(ctx context.Context, id uint) (*model.Homework, error)
	MarkExpired(ctx context.Context, id uint) error
}

// Notification is an opaque handle to a sent message, good enough to
// retract it later.
type Notification interface{}

// Notifier delivers reminder and deadline messages to the announce
// channel. Implementations own the rendering.
type Notifier interface {
	SendReminder(hw model.Homework, stage Stage) (Notification, error)
	SendDeadline(hw model.Homework) error
	Retract(n Notification) error
}

// Flags exposes the per-stage kill switches. Consulted when a timer
// fires, never cached at registration time.
type Flags interface {
	StageEnabled(name string) bool
}

// callbackTimeout bounds the store and send calls inside one timer
// callback.
const callbackTimeout = 30 * time.Second

// Scheduler owns the reminder cascade for every homework with a due
// date. One instance per process, injected into whatever creates,
// edits or deletes homework.
type Scheduler struct {
	stages   []Stage
	registry *Registry
	store    Store
	notifier Notifier
	flags    Flags
}

func NewScheduler(store Store, notifier Notifier, flags Flags, stages []Stage) *Scheduler {
	if len(stages) == 0 {
		stages = DefaultStages
	}
	return &Scheduler{
		stages:   stages,
		registry: NewRegistry(),
		store:    store,
		notifier: notifier,
		flags:    flags,
	}
}

// SetNotifier installs the notifier after construction. The bot and the
// scheduler reference each other, so one of them has to be wired late.
// Must be called before any Schedule or Recover.
func (s *Scheduler) SetNotifier(n Notifier) {
	s.notifier = n
}

// Registry exposes the timer registry, mainly for diagnostics and tests.
func (s *Scheduler) Registry() *Registry {
	return s.registry
}

// Schedule registers the full cascade for one homework: a timer per
// reminder stage plus the terminal expiry at the due time. Stages whose
// fire time is already past fire immediately. An existing entry for the
// same id is cancelled and replaced.
func (s *Scheduler) Schedule(hw model.Homework) error {
	if hw.DueDate == nil {
		return fmt.Errorf("homework %d: %w", hw.ID, ErrNoDueDate)
	}

	fires := BuildSchedule(s.stages, *hw.DueDate)
	timers := make([]*time.Timer, 0, len(fires))
	for _, f := range fires {
		f := f
		var cb func()
		if f.Terminal {
			cb = func() { s.expire(hw) }
		} else {
			cb = func() { s.dispatch(hw.ID, f.Stage) }
		}
		timers = append(timers, time.AfterFunc(time.Until(f.At), cb))
	}
	s.registry.Register(hw.ID, timers)

	log.Printf("[DEBUG] scheduled %d timer(s) for homework %d due %s",
		len(timers), hw.ID, hw.DueDate.Format(time.RFC3339))
	return nil
}

// Cancel sweeps every outstanding timer for the id. Callers must cancel
// before mutating the store so the expiry callback cannot observe the
// mutation mid-flight; a callback that already started still runs to
// completion and may send a stale notification.
func (s *Scheduler) Cancel(id uint) {
	if s.registry.Cancel(id) {
		log.Printf("[DEBUG] cancelled timers for homework %d", id)
	}
}

// Recover rebuilds the registry from the store after a restart. Must run
// before any external trigger can create or cancel homework. Items whose
// deadline passed while the process was down fire their expiry (and any
// still-due reminders) immediately; missed reminders are not suppressed.
// A record that fails to schedule is logged and skipped.
func (s *Scheduler) Recover(ctx context.Context) (int, error) {
	hws, err := s.store.FindPending(ctx)
	if err != nil {
		return 0, fmt.Errorf("load pending homework: %w", err)
	}

	for _, hw := range hws {
		if hw.DueDate == nil {
			log.Printf("[WARN] pending homework %d has no due date, skipping", hw.ID)
			continue
		}
		if err := s.Schedule(hw); err != nil {
			log.Printf("[WARN] recover homework %d: %v", hw.ID, err)
		}
	}

	n := s.registry.Size()
	log.Printf("[INFO] %d reminder schedule(s) recovered", n)
	return n, nil
}

// dispatch runs when a reminder stage fires. It re-checks the stage
// flag, re-fetches the record, sends the notification and arranges its
// retraction after the stage's grace window. Every failure is local to
// this stage; siblings and the terminal expiry are unaffected.
func (s *Scheduler) dispatch(id uint, stage Stage) {
	if !s.flags.StageEnabled(stage.Name) {
		log.Printf("[DEBUG] stage %q disabled, skipping reminder for homework %d", stage.Name, id)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), callbackTimeout)
	defer cancel()

	hw, err := s.store.FindActive(ctx, id)
	if err != nil {
		// Deleted in a race with cancellation, or store trouble. Either
		// way this stage stays silent.
		log.Printf("[DEBUG] homework %d unavailable at %q reminder: %v", id, stage.Name, err)
		return
	}

	handle, err := s.notifier.SendReminder(*hw, stage)
	if err != nil {
		log.Printf("[WARN] send %q reminder for homework %d: %v", stage.Name, id, err)
		return
	}
	log.Printf("[DEBUG] sent %q reminder for homework %d", stage.Name, id)

	// Untracked on purpose: retraction is cosmetic cleanup, not part of
	// the cancellable cascade.
	time.AfterFunc(stage.Grace, func() {
		if err := s.notifier.Retract(handle); err != nil {
			log.Printf("[DEBUG] retract %q reminder for homework %d: %v", stage.Name, id, err)
		}
	})
}

// expire runs at the deadline: soft-delete the record, then announce the
// deadline hit. The notification goes out even when the write fails so
// somebody notices the inconsistency. The registry entry stays behind;
// its timers are all spent and the next cancel or restart clears it.
func (s *Scheduler) expire(hw model.Homework) {
	ctx, cancel := context.WithTimeout(context.Background(), callbackTimeout)
	defer cancel()

	if err := s.store.MarkExpired(ctx, hw.ID); err != nil {
		log.Printf("[ERROR] expire homework %d: %v", hw.ID, err)
	} else {
		log.Printf("[DEBUG] auto-expired homework %d", hw.ID)
	}

	if err := s.notifier.SendDeadline(hw); err != nil {
		log.Printf("[WARN] send deadline notice for homework %d: %v", hw.ID, err)
	}
}
