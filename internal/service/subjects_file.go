package service

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"hwtracker/internal/model"
)

// subjectFileEntry mirrors one record in the subjects file. Classes are
// "weekday period [length]" strings, weekday 0 = Sunday.
type subjectFileEntry struct {
	Code    string   `json:"code"`
	Name    string   `json:"name"`
	Link    string   `json:"link"`
	Classes []string `json:"classes"`
}

// LoadSubjectsFile reads the subject catalog from a JSON file. A missing
// file is not an error; the catalog is simply empty. Malformed class
// slots are logged and skipped.
func LoadSubjectsFile(path string) ([]model.Subject, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("[INFO] no subjects file at %s", path)
			return nil, nil
		}
		return nil, fmt.Errorf("read subjects file: %w", err)
	}

	var entries []subjectFileEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse subjects file: %w", err)
	}

	subjects := make([]model.Subject, 0, len(entries))
	for _, e := range entries {
		if e.Code == "" || e.Name == "" {
			log.Printf("[WARN] subjects file: entry without code or name skipped")
			continue
		}
		sub := model.Subject{Code: e.Code, Name: e.Name, Link: e.Link}
		for _, c := range e.Classes {
			slot, err := parseClassSlot(c)
			if err != nil {
				log.Printf("[WARN] subject %s: %v", e.Code, err)
				continue
			}
			sub.Classes = append(sub.Classes, slot)
		}
		subjects = append(subjects, sub)
	}
	return subjects, nil
}

func parseClassSlot(raw string) (model.ClassSlot, error) {
	fields := strings.Fields(raw)
	if len(fields) < 2 || len(fields) > 3 {
		return model.ClassSlot{}, fmt.Errorf("bad class slot %q, want \"weekday period [length]\"", raw)
	}

	weekday, err := strconv.Atoi(fields[0])
	if err != nil || weekday < 0 || weekday > 6 {
		return model.ClassSlot{}, fmt.Errorf("bad weekday in class slot %q", raw)
	}
	period, err := strconv.Atoi(fields[1])
	if err != nil {
		return model.ClassSlot{}, fmt.Errorf("bad period in class slot %q", raw)
	}
	if _, ok := periodsBegin[period]; !ok {
		return model.ClassSlot{}, fmt.Errorf("unknown period %d in class slot %q", period, raw)
	}

	length := 1
	if len(fields) == 3 {
		length, err = strconv.Atoi(fields[2])
		if err != nil || length < 1 {
			return model.ClassSlot{}, fmt.Errorf("bad length in class slot %q", raw)
		}
	}

	return model.ClassSlot{Weekday: weekday, Period: period, Length: length}, nil
}
