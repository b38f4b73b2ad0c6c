package model

import "time"

// Subject is a course that homework belongs to.
type Subject struct {
	ID        uint   `gorm:"primaryKey"`
	Code      string `gorm:"uniqueIndex"`
	Name      string
	Link      string // optional classroom / meeting URL
	CreatedAt time.Time
	UpdatedAt time.Time
	Classes   []ClassSlot `gorm:"foreignKey:SubjectID"`
}

// ClassSlot is one weekly meeting of a subject, expressed as a weekday
// plus a period number from the deployment's period table.
type ClassSlot struct {
	ID        uint `gorm:"primaryKey"`
	SubjectID uint `gorm:"index"`
	Weekday   int  // 0 = Sunday
	Period    int
	Length    int // number of consecutive periods, at least 1
}
