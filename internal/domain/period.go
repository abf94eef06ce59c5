package domain

import "strings"

type Period string

const (
	Period1M Period = "1mo"
	Period3M Period = "3mo"
	Period6M Period = "6mo"
	Period1Y Period = "1y"
	Period2Y Period = "2y"
	Period5Y Period = "5y"
)

const DefaultPeriod = Period1Y

var periodDays = map[Period]int{
	Period1M: 30,
	Period3M: 90,
	Period6M: 180,
	Period1Y: 365,
	Period2Y: 730,
	Period5Y: 1825,
}

// ParsePeriod normalizes s, falling back to DefaultPeriod for anything unrecognized.
func ParsePeriod(s string) Period {
	p := Period(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := periodDays[p]; ok {
		return p
	}
	return DefaultPeriod
}

func (p Period) Days() int {
	if d, ok := periodDays[p]; ok {
		return d
	}
	return periodDays[DefaultPeriod]
}
