package market

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeUnit is the calendar unit of a Timeframe.
type TimeUnit int

// Timeframe units, smallest first.
const (
	UnitSecond TimeUnit = iota
	UnitMinute
	UnitHour
	UnitDay
	UnitWeek
	UnitMonth
)

var unitSuffix = [...]string{"s", "m", "h", "d", "w", "M"}

var unitDuration = [...]time.Duration{
	time.Second,
	time.Minute,
	time.Hour,
	24 * time.Hour,
	7 * 24 * time.Hour,
	// Months are calendar units; 30 days is the conventional width used
	// for elapsed-time checks on monthly klines.
	30 * 24 * time.Hour,
}

// Timeframe is a candlestick interval, e.g. 1m or 4h. The zero value is
// invalid; build one with the constructors or ParseTimeframe.
type Timeframe struct {
	N    int
	Unit TimeUnit
}

// Seconds returns an n-second timeframe.
func Seconds(n int) Timeframe { return Timeframe{N: n, Unit: UnitSecond} }

// Minutes returns an n-minute timeframe.
func Minutes(n int) Timeframe { return Timeframe{N: n, Unit: UnitMinute} }

// Hours returns an n-hour timeframe.
func Hours(n int) Timeframe { return Timeframe{N: n, Unit: UnitHour} }

// Days returns an n-day timeframe.
func Days(n int) Timeframe { return Timeframe{N: n, Unit: UnitDay} }

// Weeks returns an n-week timeframe.
func Weeks(n int) Timeframe { return Timeframe{N: n, Unit: UnitWeek} }

// Months returns an n-month timeframe.
func Months(n int) Timeframe { return Timeframe{N: n, Unit: UnitMonth} }

// ParseTimeframe reads the compact "<n><unit>" form: 1s, 5m, 4h, 1d, 1w, 1M.
// Lowercase m is minutes, uppercase M is months.
func ParseTimeframe(s string) (Timeframe, error) {
	if len(s) < 2 {
		return Timeframe{}, fmt.Errorf("cannot parse timeframe %q", s)
	}
	suffix := s[len(s)-1:]
	n, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || n <= 0 {
		return Timeframe{}, fmt.Errorf("cannot parse timeframe %q", s)
	}
	for unit, suf := range unitSuffix {
		if suffix == suf {
			return Timeframe{N: n, Unit: TimeUnit(unit)}, nil
		}
	}
	return Timeframe{}, fmt.Errorf("cannot parse timeframe %q: unknown unit %q", s, suffix)
}

// IsZero reports whether the timeframe is unset.
func (tf Timeframe) IsZero() bool { return tf.N == 0 }

// String renders the compact form, e.g. "5m" or "1M".
func (tf Timeframe) String() string {
	return strconv.Itoa(tf.N) + unitSuffix[tf.Unit]
}

// Duration returns the timeframe's width. Months count as 30 days.
func (tf Timeframe) Duration() time.Duration {
	return time.Duration(tf.N) * unitDuration[tf.Unit]
}

// Minutes returns the timeframe's width in whole minutes, the form Bybit and
// MEXC futures take for sub-daily intervals.
func (tf Timeframe) Minutes() int {
	return int(tf.Duration() / time.Minute)
}

// In reports whether the timeframe appears in allowed.
func (tf Timeframe) In(allowed []Timeframe) bool {
	for _, a := range allowed {
		if tf == a {
			return true
		}
	}
	return false
}

// FormatTimeframes renders a timeframe list for error messages.
func FormatTimeframes(tfs []Timeframe) string {
	parts := make([]string, len(tfs))
	for i, tf := range tfs {
		parts[i] = tf.String()
	}
	return strings.Join(parts, ", ")
}
