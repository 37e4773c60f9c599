// Package season maps wall-clock time onto season weeks and the per-week
// progression tables.
package season

import (
	"time"

	"github.com/okian/vaultsync/internal/domain/model"
)

type anchor struct {
	week  int
	start time.Time
	// global anchors ignore the regional reset offset.
	global bool
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// anchors must stay sorted by week.
var anchors = []anchor{
	{week: -2, start: date(2026, time.February, 26), global: true},
	{week: -1, start: date(2026, time.March, 3)},
	{week: 0, start: date(2026, time.March, 10)},
	{week: 1, start: date(2026, time.March, 17)},
	{week: 2, start: date(2026, time.March, 24)},
	{week: 3, start: date(2026, time.March, 31)},
	{week: 4, start: date(2026, time.April, 7)},
	{week: 5, start: date(2026, time.April, 14)},
	{week: 6, start: date(2026, time.April, 21)},
	{week: 7, start: date(2026, time.April, 28)},
	{week: 8, start: date(2026, time.May, 5)},
	{week: 9, start: date(2026, time.May, 12)},
}

// FirstWeek is the earliest defined week.
const FirstWeek = -2

// CurrentWeek returns the last week whose regional start date is on or before
// today. Only the calendar date of today is considered.
func CurrentWeek(region model.Region, today time.Time) int {
	day := date(today.Year(), today.Month(), today.Day())
	current := FirstWeek
	for _, a := range anchors {
		start := a.start
		if region.LateReset() && !a.global {
			start = start.AddDate(0, 0, 1)
		}
		if start.After(day) {
			break
		}
		current = a.week
	}
	return current
}

var targetIlvl = map[int]int{
	-2: 200, -1: 230, 0: 240, 1: 250, 2: 266, 3: 273, 4: 274,
	5: 276, 6: 278, 7: 279, 8: 281, 9: 284, 10: 286, 11: 287, 12: 289,
}

const (
	minTargetWeek = -2
	maxTargetWeek = 12
)

// WeeklyTargetIlvl returns the suggested average item level for week, clamped
// to the ends of the table.
func WeeklyTargetIlvl(week int) int {
	week = min(max(week, minTargetWeek), maxTargetWeek)
	return targetIlvl[week]
}

const crestsPerWeek = 100

// WeeklyCrestCap returns the cumulative crest cap in effect during week.
func WeeklyCrestCap(week int) int {
	if week < 1 {
		return 0
	}
	return crestsPerWeek * week
}

// CrestBudget is the cumulative crest spend guide for a week.
type CrestBudget struct {
	Heroic int `json:"heroic"`
	Mythic int `json:"mythic"`
}

var crestBudgets = map[int]CrestBudget{
	2: {Heroic: 220},
	3: {Heroic: 320, Mythic: 160},
	4: {Heroic: 420, Mythic: 320},
	5: {Heroic: 520, Mythic: 480},
	6: {Heroic: 560, Mythic: 620},
	7: {Heroic: 560, Mythic: 700},
	8: {Heroic: 560, Mythic: 780},
	9: {Heroic: 560, Mythic: 860},
}

const lastBudgetWeek = 9

// CrestBudgetFor returns the crest budget for week. Weeks before crests drop
// have an empty budget; weeks past the table reuse the last row.
func CrestBudgetFor(week int) CrestBudget {
	return crestBudgets[min(week, lastBudgetWeek)]
}

// Weekly reset boundaries in UTC.
const (
	earlyResetDay  = time.Tuesday
	earlyResetHour = 15
	lateResetDay   = time.Wednesday
	lateResetHour  = 7
)

// WeekResetTime returns the most recent weekly reset boundary at or before now.
func WeekResetTime(region model.Region, now time.Time) time.Time {
	now = now.UTC()
	day, hour := earlyResetDay, earlyResetHour
	if region.LateReset() {
		day, hour = lateResetDay, lateResetHour
	}
	back := (int(now.Weekday()) - int(day) + 7) % 7
	reset := time.Date(now.Year(), now.Month(), now.Day()-back, hour, 0, 0, 0, time.UTC)
	if reset.After(now) {
		reset = reset.AddDate(0, 0, -7)
	}
	return reset
}

// WeekResetTimestamp returns WeekResetTime as Unix seconds.
func WeekResetTimestamp(region model.Region, now time.Time) int64 {
	return WeekResetTime(region, now).Unix()
}

// WeekStart returns the reset that opens week in region: the regional anchor
// date at the regional reset hour. The global launch week opens at midnight.
// Weeks past the table continue at seven day steps; weeks before it open
// with the first anchor.
func WeekStart(region model.Region, week int) time.Time {
	a := anchors[0]
	extra := 0
	for _, cand := range anchors {
		if cand.week > week {
			break
		}
		a = cand
	}
	if last := anchors[len(anchors)-1]; week > last.week {
		extra = week - last.week
	}
	if a.global {
		return a.start
	}
	start, hour := a.start, earlyResetHour
	if region.LateReset() {
		start, hour = start.AddDate(0, 0, 1), lateResetHour
	}
	return start.AddDate(0, 0, 7*extra).Add(time.Duration(hour) * time.Hour)
}

// RunBoundary returns the earliest completion time that still counts toward
// the week current at now. Between the calendar start of a week and its
// reset the boundary lies in the future, so nothing counts yet.
func RunBoundary(region model.Region, now time.Time) time.Time {
	reset := WeekResetTime(region, now)
	if start := WeekStart(region, CurrentWeek(region, now)); start.After(reset) {
		return start
	}
	return reset
}
