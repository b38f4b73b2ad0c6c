package schedule

import (
	"testing"
	"time"
)

func TestBuildScheduleDefaultStages(t *testing.T) {
	due := time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)

	fires := BuildSchedule(DefaultStages, due)

	want := []time.Time{
		due.Add(-24 * time.Hour),
		due.Add(-time.Hour),
		due.Add(-10 * time.Minute),
		due.Add(-5 * time.Minute),
		due,
	}
	if len(fires) != len(want) {
		t.Fatalf("got %d fires, want %d", len(fires), len(want))
	}
	for i, f := range fires {
		if !f.At.Equal(want[i]) {
			t.Errorf("fire %d at %s, want %s", i, f.At, want[i])
		}
		if i > 0 && fires[i-1].At.After(f.At) {
			t.Errorf("fires not sorted ascending at index %d", i)
		}
	}
	for i, f := range fires[:len(fires)-1] {
		if f.Terminal {
			t.Errorf("fire %d (%q) marked terminal", i, f.Stage.Name)
		}
	}
	if last := fires[len(fires)-1]; !last.Terminal || !last.At.Equal(due) {
		t.Errorf("last fire = %+v, want terminal at due time", last)
	}
}

func TestBuildScheduleSortsUnorderedStages(t *testing.T) {
	due := time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)
	stages := []Stage{
		{Name: "near", Offset: time.Minute},
		{Name: "far", Offset: time.Hour},
	}

	fires := BuildSchedule(stages, due)

	if fires[0].Stage.Name != "far" || fires[1].Stage.Name != "near" {
		t.Errorf("expected far-before-near ordering, got %q then %q", fires[0].Stage.Name, fires[1].Stage.Name)
	}
	if !fires[2].Terminal {
		t.Errorf("expected terminal entry last")
	}
}

func TestEndOfDay(t *testing.T) {
	in := time.Date(2026, 3, 14, 0, 0, 0, 0, time.Local)
	got := EndOfDay(in)
	want := time.Date(2026, 3, 14, 23, 59, 59, 0, time.Local)
	if !got.Equal(want) {
		t.Errorf("EndOfDay(%s) = %s, want %s", in, got, want)
	}
}
