package service

import (
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"hwtracker/internal/model"
)

// periodsBegin and periodsEnd map period numbers to wall-clock times of
// the deployment's timetable.
var periodsBegin = map[int]string{
	1: "8:30",
	2: "9:20",
	3: "10:10",
	4: "11:00",
	5: "12:40",
	6: "13:30",
	7: "14:20",
}

var periodsEnd = map[int]string{
	1: "9:10",
	2: "10:00",
	3: "10:50",
	4: "11:40",
	5: "13:20",
	6: "14:10",
	7: "15:00",
}

// Announcer posts class-session notices to the announce channel.
type Announcer interface {
	AnnounceClass(subject model.Subject, slot model.ClassSlot)
	AnnounceUpcoming(subject model.Subject)
}

// AnnounceService registers recurring class-start announcements (and a
// five-minutes-before heads-up) from the subject catalog.
type AnnounceService struct {
	cron      *cron.Cron
	announcer Announcer
}

func NewAnnounceService(loc *time.Location, announcer Announcer) *AnnounceService {
	return &AnnounceService{
		cron:      cron.New(cron.WithLocation(loc), cron.WithSeconds()),
		announcer: announcer,
	}
}

// RegisterSubjects adds cron jobs for every class slot. Slots that point
// at unknown periods are logged and skipped.
func (s *AnnounceService) RegisterSubjects(subjects []model.Subject) int {
	registered := 0
	for _, subject := range subjects {
		subject := subject
		for _, slot := range subject.Classes {
			slot := slot
			begin, ok := periodsBegin[slot.Period]
			if !ok {
				log.Printf("[WARN] subject %s: unknown period %d, skipping slot", subject.Code, slot.Period)
				continue
			}
			var hour, min int
			if _, err := fmt.Sscanf(begin, "%d:%d", &hour, &min); err != nil {
				log.Printf("[WARN] subject %s: bad period time %q: %v", subject.Code, begin, err)
				continue
			}

			startSpec := fmt.Sprintf("0 %d %d * * %d", min, hour, slot.Weekday)
			if _, err := s.cron.AddFunc(startSpec, func() {
				s.announcer.AnnounceClass(subject, slot)
			}); err != nil {
				log.Printf("[WARN] subject %s: register class job: %v", subject.Code, err)
				continue
			}

			upMin, upHour := min-5, hour
			if upMin < 0 {
				upMin += 60
				upHour--
			}
			upcomingSpec := fmt.Sprintf("0 %d %d * * %d", upMin, upHour, slot.Weekday)
			if _, err := s.cron.AddFunc(upcomingSpec, func() {
				s.announcer.AnnounceUpcoming(subject)
			}); err != nil {
				log.Printf("[WARN] subject %s: register upcoming job: %v", subject.Code, err)
				continue
			}
			registered++
		}
	}
	return registered
}

func (s *AnnounceService) Start() {
	s.cron.Start()
}

func (s *AnnounceService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// PeriodTimes returns the begin and end wall-clock strings for a slot
// spanning Length consecutive periods.
func PeriodTimes(slot model.ClassSlot) (begin, end string) {
	begin = periodsBegin[slot.Period]
	length := slot.Length
	if length < 1 {
		length = 1
	}
	end = periodsEnd[slot.Period+length-1]
	return begin, end
}
