package schedule

import (
	"errors"
	"sort"
	"time"
)

// ErrNoDueDate is returned when a schedule is requested for homework
// without a due date. The creation and recovery paths must skip such
// items, so hitting this error indicates a bug upstream.
var ErrNoDueDate = errors.New("schedule: homework has no due date")

// Fire is one planned timer firing. Terminal marks the at-deadline
// expiry entry; its Stage is the zero value.
type Fire struct {
	Stage    Stage
	At       time.Time
	Terminal bool
}

// BuildSchedule computes the absolute fire times for every stage plus
// the terminal expiry at the due time itself, sorted ascending. Fire
// times already in the past are kept; the timer layer fires those
// immediately rather than erroring. Pure computation, no side effects.
func BuildSchedule(stages []Stage, due time.Time) []Fire {
	fires := make([]Fire, 0, len(stages)+1)
	for _, st := range stages {
		fires = append(fires, Fire{Stage: st, At: due.Add(-st.Offset)})
	}
	fires = append(fires, Fire{At: due, Terminal: true})
	sort.Slice(fires, func(i, j int) bool { return fires[i].At.Before(fires[j].At) })
	return fires
}

// EndOfDay normalizes a date-only deadline to the last second of that
// day in its location.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, 0, t.Location())
}
