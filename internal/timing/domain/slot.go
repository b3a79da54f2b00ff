// Package domain contains the minute-level timing model: the canonical
// week grid, engagement curves, and the timing decision aggregate.
package domain

import (
	"errors"
	"fmt"
	"time"
)

const (
	// MinutesPerWeek is the size of the canonical slot grid.
	MinutesPerWeek = 10080
	// MinutesPerDay is the number of slots covering one day.
	MinutesPerDay = 1440
	// MinutesPerHour is the number of slots covering one hour.
	MinutesPerHour = 60
)

var ErrInvalidSlot = errors.New("minute slot must be in [0, 10080)")

var dayNames = [7]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// ToSlot maps an instant to its canonical minute slot.
// Slot 0 is Monday 00:00 UTC; the mapping is evaluated in UTC.
func ToSlot(t time.Time) int {
	utc := t.UTC()
	// time.Weekday counts from Sunday; the grid counts from Monday.
	day := (int(utc.Weekday()) + 6) % 7
	return (day*MinutesPerDay + utc.Hour()*MinutesPerHour + utc.Minute()) % MinutesPerWeek
}

// SlotTime converts a slot back to an instant relative to a week anchor.
// The anchor is the Monday 00:00 UTC that starts the reference week.
func SlotTime(slot int, weekStart time.Time) (time.Time, error) {
	if slot < 0 || slot >= MinutesPerWeek {
		return time.Time{}, fmt.Errorf("%w: got %d", ErrInvalidSlot, slot)
	}
	return weekStart.UTC().Add(time.Duration(slot) * time.Minute), nil
}

// WeekStart returns the Monday 00:00 UTC anchor of the week containing t.
func WeekStart(t time.Time) time.Time {
	utc := t.UTC()
	day := (int(utc.Weekday()) + 6) % 7
	midnight := time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)
	return midnight.AddDate(0, 0, -day)
}

// SlotLabel renders a slot as "Day HH:MM" for explanations and CLI output.
func SlotLabel(slot int) string {
	slot = ((slot % MinutesPerWeek) + MinutesPerWeek) % MinutesPerWeek
	day := slot / MinutesPerDay
	rem := slot % MinutesPerDay
	return fmt.Sprintf("%s %02d:%02d", dayNames[day], rem/MinutesPerHour, rem%MinutesPerHour)
}
