package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// StatementPeriod is a month-granularity token such as "NOVEMBER2025".
// It scopes almost every read and write against the ledger server.
type StatementPeriod string

var monthNames = map[string]time.Month{
	"JANUARY": time.January, "FEBRUARY": time.February, "MARCH": time.March,
	"APRIL": time.April, "MAY": time.May, "JUNE": time.June,
	"JULY": time.July, "AUGUST": time.August, "SEPTEMBER": time.September,
	"OCTOBER": time.October, "NOVEMBER": time.November, "DECEMBER": time.December,
}

// PeriodOf returns the statement period containing the given time.
func PeriodOf(t time.Time) StatementPeriod {
	return StatementPeriod(fmt.Sprintf("%s%d", strings.ToUpper(t.Month().String()), t.Year()))
}

// Valid reports whether the token is a recognized MONTHYEAR value.
func (p StatementPeriod) Valid() bool {
	_, _, err := p.parse()
	return err == nil
}

// Time returns the first instant of the statement period.
func (p StatementPeriod) Time() (time.Time, error) {
	month, year, err := p.parse()
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC), nil
}

func (p StatementPeriod) parse() (time.Month, int, error) {
	s := strings.ToUpper(strings.TrimSpace(string(p)))
	for name, month := range monthNames {
		rest, ok := strings.CutPrefix(s, name)
		if !ok {
			continue
		}
		year, err := strconv.Atoi(rest)
		if err != nil || year < 1900 || year > 9999 {
			return 0, 0, fmt.Errorf("invalid statement period year in %q", p)
		}
		return month, year, nil
	}
	return 0, 0, fmt.Errorf("invalid statement period %q", p)
}

func (p StatementPeriod) String() string {
	return string(p)
}
