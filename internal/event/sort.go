package event

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// SortOrder represents the available sorting options
type SortOrder string

const (
	SortNone       SortOrder = ""
	SortByDate     SortOrder = "date"
	SortByName     SortOrder = "name"
	SortByLocation SortOrder = "location"
)

// ParseSortOrder accepts "", "date", "name" or "location", in any case
func ParseSortOrder(s string) (SortOrder, error) {
	switch o := SortOrder(strings.ToLower(strings.TrimSpace(s))); o {
	case SortNone, SortByDate, SortByName, SortByLocation:
		return o, nil
	default:
		return SortNone, fmt.Errorf("invalid sort order %q (want date, name or location)", s)
	}
}

// Sort orders events in place. SortNone keeps persisted order.
// The sort is stable so ties keep persisted order too.
func Sort(events []*Event, order SortOrder) {
	switch order {
	case SortByDate:
		sort.SliceStable(events, func(i, j int) bool {
			return compareBySchedule(events[i], events[j])
		})
	case SortByName:
		sort.SliceStable(events, func(i, j int) bool {
			a, b := strings.ToLower(events[i].Name), strings.ToLower(events[j].Name)
			if a != b {
				return a < b
			}
			// If names are equal, sort by date
			return compareBySchedule(events[i], events[j])
		})
	case SortByLocation:
		sort.SliceStable(events, func(i, j int) bool {
			a, b := strings.ToLower(events[i].Location), strings.ToLower(events[j].Location)
			if a != b {
				return a < b
			}
			return compareBySchedule(events[i], events[j])
		})
	}
}

// compareBySchedule reports whether i is scheduled before j.
// Events with an unparsable schedule go last.
func compareBySchedule(i, j *Event) bool {
	ti, errI := i.ScheduledAt(time.UTC)
	tj, errJ := j.ScheduledAt(time.UTC)

	switch {
	case errI == nil && errJ == nil:
		return ti.Before(tj)
	case errI == nil:
		return true
	default:
		return false
	}
}
