package service

import (
	"strings"
	"time"
)

// CalendarService performs day arithmetic in a single, stable time zone to
// eliminate drift across requests. Every operation pins to UTC by contract;
// none uses a local-timezone calendar API.
type CalendarService struct{}

// NewCalendarService constructs a calendar service. It carries no state.
func NewCalendarService() *CalendarService {
	return &CalendarService{}
}

// Today returns the current civil date at midnight UTC.
func (s *CalendarService) Today() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// AddDays returns d advanced by n civil days.
func (s *CalendarService) AddDays(d time.Time, n int) time.Time {
	return d.UTC().AddDate(0, 0, n)
}

// Format returns the canonical YYYY-MM-DD representation of d.
func (s *CalendarService) Format(d time.Time) string {
	return d.UTC().Format("2006-01-02")
}

// DayOfWeek returns a normalized lowercase English weekday name for d.
func (s *CalendarService) DayOfWeek(d time.Time) string {
	return strings.ToLower(d.UTC().Weekday().String())
}

// EligibleDates enumerates the ordered dates in [start, start+horizon) that
// are neither a configured weekly off-day nor an explicit blackout date.
func (s *CalendarService) EligibleDates(start time.Time, horizonDays int, offDays map[string]struct{}, blackoutDates map[string]struct{}) []time.Time {
	if horizonDays <= 0 {
		return nil
	}

	start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	dates := make([]time.Time, 0, horizonDays)

	for i := 0; i < horizonDays; i++ {
		d := s.AddDays(start, i)
		if _, off := offDays[s.DayOfWeek(d)]; off {
			continue
		}
		if _, blackout := blackoutDates[s.Format(d)]; blackout {
			continue
		}
		dates = append(dates, d)
	}

	return dates
}

// ToSet converts a slice of day-of-week or YYYY-MM-DD strings into a lookup set.
func ToSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[strings.ToLower(strings.TrimSpace(v))] = struct{}{}
	}
	return set
}
