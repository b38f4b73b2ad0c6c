package bot

import (
	"strings"
	"testing"
	"time"

	"hwtracker/internal/model"
)

func TestBookIcon(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		due  *time.Time
		want string
	}{
		{"no due date", nil, "📘"},
		{"under a day", timePtr(now.Add(6 * time.Hour)), "📕"},
		{"under 3 days", timePtr(now.Add(48 * time.Hour)), "📙"},
		{"later", timePtr(now.Add(96 * time.Hour)), "📗"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := bookIcon(tt.due, now); got != tt.want {
				t.Errorf("bookIcon = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestFormatHomeworkShowsIDAndFlair(t *testing.T) {
	now := time.Now()
	due := now.Add(2 * time.Hour)
	hw := model.Homework{
		ID:        17,
		Title:     "essay <draft>",
		Detail:    "two pages",
		DueDate:   &due,
		CreatedAt: now.Add(-time.Hour),
	}

	out := formatHomework(hw, nil, now, true)

	if !strings.Contains(out, "<code>17</code>") {
		t.Errorf("missing id: %q", out)
	}
	if !strings.Contains(out, "🆕") {
		t.Errorf("missing new flair for fresh item: %q", out)
	}
	if !strings.Contains(out, "essay &lt;draft&gt;") {
		t.Errorf("title not escaped: %q", out)
	}
	if strings.Contains(out, "(expired)") {
		t.Errorf("live item rendered as expired: %q", out)
	}
}

func TestPaginateSplitsOnLimit(t *testing.T) {
	sections := []string{
		strings.Repeat("a", 40),
		strings.Repeat("b", 40),
		strings.Repeat("c", 40),
	}
	pages := paginate(sections, 90)
	if len(pages) != 2 {
		t.Fatalf("got %d pages, want 2", len(pages))
	}
	if len(pages[0]) != 80 || len(pages[1]) != 40 {
		t.Errorf("page sizes = %d, %d; want 80, 40", len(pages[0]), len(pages[1]))
	}
}

func TestPaginateKeepsOversizedSectionWhole(t *testing.T) {
	pages := paginate([]string{strings.Repeat("x", 200)}, 90)
	if len(pages) != 1 || len(pages[0]) != 200 {
		t.Fatalf("oversized section must stay one page, got %d pages", len(pages))
	}
}

func TestRemaining(t *testing.T) {
	now := time.Now()
	tests := []struct {
		in   time.Duration
		want string
	}{
		{30 * time.Second, "less than a minute"},
		{30 * time.Minute, "30 min"},
		{5 * time.Hour, "5 h"},
		{96 * time.Hour, "4 days"},
		{-time.Hour, "past due"},
	}
	for _, tt := range tests {
		if got := remaining(now.Add(tt.in), now); got != tt.want {
			t.Errorf("remaining(+%s) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func timePtr(t time.Time) *time.Time { return &t }
