package risk

import "time"

// NSE cash session, IST.
const (
	marketOpenHour   = 9
	marketOpenMin    = 15
	marketCloseHour  = 15
	marketCloseMin   = 30
	marketTimeZone   = "Asia/Kolkata"
	marketTZFallback = 5*time.Hour + 30*time.Minute
)

// MarketOpen reports whether now falls inside the equity session window
// (weekdays 09:15-15:30 IST).
func MarketOpen(now time.Time) bool {
	loc, err := time.LoadLocation(marketTimeZone)
	if err != nil {
		loc = time.FixedZone("IST", int(marketTZFallback/time.Second))
	}
	local := now.In(loc)

	switch local.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}

	minutes := local.Hour()*60 + local.Minute()
	open := marketOpenHour*60 + marketOpenMin
	close := marketCloseHour*60 + marketCloseMin
	return minutes >= open && minutes <= close
}
