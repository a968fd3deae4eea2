package timemachine

import (
	"time"

	"github.com/FeanorKingofNoldor/prometheus-v2-sub000/pkg/market"
)

// Calendar decides which days trade. Implementations must be deterministic:
// the same calendar always classifies the same date the same way.
type Calendar interface {
	IsTradingDay(date time.Time) bool
}

// WeekdayCalendar treats Monday through Friday as trading days, minus an
// explicit holiday set.
type WeekdayCalendar struct {
	holidays map[time.Time]struct{}
}

func NewWeekdayCalendar(holidays ...time.Time) *WeekdayCalendar {
	c := &WeekdayCalendar{holidays: make(map[time.Time]struct{}, len(holidays))}
	for _, h := range holidays {
		c.holidays[market.Day(h)] = struct{}{}
	}
	return c
}

func (c *WeekdayCalendar) IsTradingDay(date time.Time) bool {
	day := market.Day(date)
	switch day.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	_, holiday := c.holidays[day]
	return !holiday
}
