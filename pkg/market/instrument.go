package market

// Instrument is the product class a symbol trades as.
type Instrument int

// Instrument classes.
const (
	// Spot is immediate-settlement trading of the base asset.
	Spot Instrument = iota
	// Perp is a linear perpetual futures contract.
	Perp
	// InversePerp is a coin-margined perpetual futures contract.
	InversePerp
	// Margin is leveraged spot trading.
	Margin
	// Options is an options contract.
	Options
)

// String returns the string representation of the instrument.
func (i Instrument) String() string {
	return [...]string{"spot", "perp", "inverse-perp", "margin", "options"}[i]
}
