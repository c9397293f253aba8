package timeslot

import (
	"sort"
	"time"

	"github.com/hackgods/clinic-booking/internal/apperr"
)

var (
	ErrInvalidHours    = apperr.New(apperr.KindInvalid, "hours must satisfy 0 <= startHour < endHour <= 24")
	ErrInvalidInterval = apperr.New(apperr.KindInvalid, "intervalMinutes must be between 1 and 60")
)

// GenerateDefaultSlots emits day at hour:minute for every hour in
// [startHour, endHour) and every minute in [0, 60) stepping by
// intervalMinutes, in the location of day. Intervals that do not divide 60
// leave a shorter gap before the next hour.
func GenerateDefaultSlots(day time.Time, startHour, endHour, intervalMinutes int) ([]time.Time, error) {
	if startHour < 0 || endHour > 24 || startHour >= endHour {
		return nil, ErrInvalidHours
	}
	if intervalMinutes < 1 || intervalMinutes > 60 {
		return nil, ErrInvalidInterval
	}

	y, m, d := day.Date()
	loc := day.Location()

	perHour := (59 / intervalMinutes) + 1
	slots := make([]time.Time, 0, (endHour-startHour)*perHour)
	for hour := startHour; hour < endHour; hour++ {
		for minute := 0; minute < 60; minute += intervalMinutes {
			slots = append(slots, time.Date(y, m, d, hour, minute, 0, 0, loc))
		}
	}
	return slots, nil
}

// StartOfDay returns midnight of t's calendar day in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// normalize sorts slots and drops duplicate instants.
func normalize(slots []time.Time) []time.Time {
	out := make([]time.Time, 0, len(slots))
	seen := make(map[int64]struct{}, len(slots))
	for _, s := range slots {
		k := s.UnixMicro()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// subtract removes every slot that equals one of taken to the microsecond.
func subtract(slots, taken []time.Time) []time.Time {
	booked := make(map[int64]struct{}, len(taken))
	for _, t := range taken {
		booked[t.UnixMicro()] = struct{}{}
	}
	out := make([]time.Time, 0, len(slots))
	for _, s := range slots {
		if _, ok := booked[s.UnixMicro()]; !ok {
			out = append(out, s)
		}
	}
	return out
}
