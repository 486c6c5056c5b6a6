package queue

import (
	"fmt"
	"time"
)

// Schedule computes the next run time of a periodic task.
type Schedule interface {
	Next(from time.Time) time.Time
	String() string
}

type intervalSchedule time.Duration

func (s intervalSchedule) Next(from time.Time) time.Time { return from.Add(time.Duration(s)) }
func (s intervalSchedule) String() string               { return "every " + time.Duration(s).String() }

// EveryInterval runs d after the previous run was scheduled.
func EveryInterval(d time.Duration) Schedule {
	return intervalSchedule(max(d, time.Second))
}

type hourlySchedule struct{ minute int }

func (s hourlySchedule) Next(from time.Time) time.Time {
	next := from.Truncate(time.Hour).Add(time.Duration(s.minute) * time.Minute)
	if !next.After(from) {
		next = next.Add(time.Hour)
	}
	return next
}

func (s hourlySchedule) String() string { return fmt.Sprintf("hourly at :%02d", s.minute) }

// HourlyAt runs once an hour at the given minute.
func HourlyAt(minute int) Schedule {
	return hourlySchedule{minute: ((minute % 60) + 60) % 60}
}

// Hourly runs at the top of every hour.
func Hourly() Schedule { return HourlyAt(0) }

type dailySchedule struct{ hour, minute int }

func (s dailySchedule) Next(from time.Time) time.Time {
	next := time.Date(from.Year(), from.Month(), from.Day(), s.hour, s.minute, 0, 0, from.Location())
	if !next.After(from) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func (s dailySchedule) String() string { return fmt.Sprintf("daily at %02d:%02d", s.hour, s.minute) }

// DailyAt runs once a day at hour:minute in the location of the time passed
// to Next.
func DailyAt(hour, minute int) Schedule {
	return dailySchedule{hour: ((hour % 24) + 24) % 24, minute: ((minute % 60) + 60) % 60}
}
