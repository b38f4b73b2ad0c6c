package model

import (
	"time"

	"gorm.io/gorm"
)

// Homework is a single tracked assignment. A nil DueDate means the item
// never expires and gets no reminders.
type Homework struct {
	ID        uint  `gorm:"primaryKey"`
	SubjectID *uint `gorm:"index"`
	Title     string
	Detail    string
	DueDate   *time.Time
	// HasDueTime records whether the author gave a time of day. Date-only
	// deadlines are stored normalized to end of day but rendered without
	// the clock part.
	HasDueTime bool
	AuthorID   int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
	DeletedAt  gorm.DeletedAt `gorm:"index"`
}

// IsNew reports whether the homework was added within the last day,
// used for display flair only.
func (h Homework) IsNew(now time.Time) bool {
	return now.Sub(h.CreatedAt) < 24*time.Hour
}
