package market

import "fmt"

// UnsupportedTimeframeError means the exchange has no kline interval matching
// the requested timeframe. It is raised before any network activity.
type UnsupportedTimeframeError struct {
	Provided Timeframe
	Allowed  []Timeframe
}

// Error implements the error interface.
func (e *UnsupportedTimeframeError) Error() string {
	return fmt.Sprintf("timeframe %s not supported; allowed: %s", e.Provided, FormatTimeframes(e.Allowed))
}

// OutOfRangeError means a request parameter fell outside the exchange's
// accepted range, e.g. a kline limit above the endpoint maximum.
type OutOfRangeError struct {
	Param    string
	Provided string
	Allowed  string
}

// Error implements the error interface.
func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("%s=%s out of range; allowed: %s", e.Param, e.Provided, e.Allowed)
}

// MethodNotSupportedError means an operation is not available for the given
// instrument class on the given exchange.
type MethodNotSupportedError struct {
	Exchange   string
	Instrument Instrument
}

// Error implements the error interface.
func (e *MethodNotSupportedError) Error() string {
	return fmt.Sprintf("%s does not support this method for %s instruments", e.Exchange, e.Instrument)
}
