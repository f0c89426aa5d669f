// Package utils provides shared utility functions.
package utils

import (
	"time"
)

var easternTZ = mustLoadLocation("America/New_York")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// NextFriday returns the upcoming Friday, offset by the given number of
// weeks. When now already is Friday (or the weekend) the following week's
// Friday is returned, matching weekly option expiration cycles.
func NextFriday(now time.Time, offsetWeeks int) time.Time {
	daysAhead := int(time.Friday) - int(now.Weekday())
	if daysAhead <= 0 {
		daysAhead += 7
	}
	target := now.AddDate(0, 0, daysAhead+offsetWeeks*7)
	return time.Date(target.Year(), target.Month(), target.Day(), 0, 0, 0, 0, time.UTC)
}

// IsTradingHours reports whether t falls inside the US regular session
// (9:30-16:00 Eastern, weekdays).
func IsTradingHours(t time.Time) bool {
	et := t.In(easternTZ)
	if et.Weekday() == time.Saturday || et.Weekday() == time.Sunday {
		return false
	}
	minutes := et.Hour()*60 + et.Minute()
	return minutes >= 9*60+30 && minutes <= 16*60
}

// ValidateNetCredit checks that the credit collected from a roll covers
// round-trip commission plus a slippage buffer. Returns the net dollar
// amount alongside the verdict.
func ValidateNetCredit(newCredit, oldCost float64, contracts int, commissionPerContract, slippage float64) (bool, float64) {
	totalCommission := commissionPerContract * float64(contracts) * 2 // close + open
	minBuffer := totalCommission + slippage*float64(contracts)*100

	net := (newCredit - oldCost) * 100 * float64(contracts)
	return net > minBuffer, net
}
