package ledger

// ConversionRate returns how many Credits one Chain Code buys for a
// character of the given level. Rates improve as characters level up.
func ConversionRate(level int) int {
	switch {
	case level >= 17:
		return 12
	case level >= 11:
		return 10
	case level >= 5:
		return 8
	default:
		return 5
	}
}

// convertedCCFor returns the minimum whole CC that covers a credit shortfall
// at the given rate.
func convertedCCFor(shortfall, rate int) int {
	if shortfall <= 0 {
		return 0
	}
	return (shortfall + rate - 1) / rate
}
