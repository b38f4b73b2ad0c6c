package service

import (
	"os"
	"path/filepath"
	"testing"

	"hwtracker/internal/model"
)

func TestLoadSubjectsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subjects.json")
	data := `[
		{"code": "MATH", "name": "Mathematics", "link": "https://example.com/math", "classes": ["1 2 2", "3 5"]},
		{"code": "PHYS", "name": "Physics", "classes": ["2 99", "bogus"]},
		{"name": "no code, skipped"}
	]`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	subjects, err := LoadSubjectsFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(subjects) != 2 {
		t.Fatalf("got %d subjects, want 2", len(subjects))
	}

	math := subjects[0]
	if math.Code != "MATH" || len(math.Classes) != 2 {
		t.Errorf("math = %+v, want 2 class slots", math)
	}
	if math.Classes[0].Weekday != 1 || math.Classes[0].Period != 2 || math.Classes[0].Length != 2 {
		t.Errorf("slot = %+v, want weekday 1 period 2 length 2", math.Classes[0])
	}
	if math.Classes[1].Length != 1 {
		t.Errorf("slot without length should default to 1, got %d", math.Classes[1].Length)
	}

	// Both of PHYS's slots are malformed and must be dropped.
	if len(subjects[1].Classes) != 0 {
		t.Errorf("phys slots = %+v, want none", subjects[1].Classes)
	}
}

func TestLoadSubjectsFileMissing(t *testing.T) {
	subjects, err := LoadSubjectsFile(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("missing file should not error, got: %v", err)
	}
	if subjects != nil {
		t.Errorf("subjects = %v, want nil", subjects)
	}
}

func TestPeriodTimes(t *testing.T) {
	begin, end := PeriodTimes(model.ClassSlot{Period: 2, Length: 2})
	if begin != "9:20" || end != "10:50" {
		t.Errorf("PeriodTimes = %s-%s, want 9:20-10:50", begin, end)
	}
}
