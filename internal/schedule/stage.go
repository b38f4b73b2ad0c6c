// Package schedule implements the reminder cascade for homework with a
// due date: a set of one-shot timers per item (one per reminder stage
// plus the terminal expiry), a registry tracking them so edits and
// deletions can cancel the cascade, and the startup pass that rebuilds
// everything from the database.
package schedule

import "time"

// Stage is one named offset before a deadline at which a warning is sent.
// The set of stages is deployment configuration, not per-item data.
type Stage struct {
	Name   string
	Offset time.Duration
	// Grace is how long the fired notification stays visible before the
	// dispatcher retracts it. Chosen as the gap to the next stage so
	// consecutive reminders don't pile up in the chat.
	Grace time.Duration
}

// DefaultStages is the production cascade: day, hour, ten minutes and
// five minutes before the deadline.
var DefaultStages = []Stage{
	{Name: "1 day", Offset: 24 * time.Hour, Grace: 23 * time.Hour},
	{Name: "1 hour", Offset: time.Hour, Grace: 50 * time.Minute},
	{Name: "10 minutes", Offset: 10 * time.Minute, Grace: 5 * time.Minute},
	{Name: "5 minutes", Offset: 5 * time.Minute, Grace: 5 * time.Minute},
}
